package personalizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/answerengine/internal/model"
)

func ptrFeatures(f model.ContentFeatures) *model.ContentFeatures { return &f }

func TestApply_EmptyArmScoresIsIdentity(t *testing.T) {
	ranked := []model.RankedDoc{{ID: "a", Score: 0.5}}
	out := Apply(ranked, nil)
	require.Equal(t, ranked, out)
}

func TestApply_BoostsDocsMatchingFavoredArms(t *testing.T) {
	ranked := []model.RankedDoc{
		{ID: "a", Score: 0.5, Features: ptrFeatures(model.ContentFeatures{Depth: "expert", Style: "academic", Format: "reference", Approach: "practical", Density: "moderate"})},
		{ID: "b", Score: 0.5, Features: ptrFeatures(model.DefaultContentFeatures())},
	}
	armScores := map[string]float64{"depth:expert": 0.9, "style:academic": 0.9}

	out := Apply(ranked, armScores)
	require.Equal(t, "a", out[0].ID)
	require.Greater(t, out[0].Score, 0.5)
	require.Contains(t, out[0].RankingReason, "personalized")
}

func TestApply_MultiplierNeverExceedsCap(t *testing.T) {
	ranked := []model.RankedDoc{
		{ID: "a", Score: 1.0, Features: ptrFeatures(model.ContentFeatures{Depth: "expert", Style: "academic", Format: "reference", Approach: "practical", Density: "moderate"})},
	}
	armScores := map[string]float64{
		"depth:expert": 1.0, "style:academic": 1.0, "format:reference": 1.0,
		"approach:practical": 1.0, "density:moderate": 1.0,
	}
	out := Apply(ranked, armScores)
	require.LessOrEqual(t, out[0].Score, 1.3+1e-9)
}

func TestApply_NeutralArmsYieldNoBoost(t *testing.T) {
	ranked := []model.RankedDoc{{ID: "a", Score: 0.5, Features: ptrFeatures(model.DefaultContentFeatures())}}
	armScores := map[string]float64{}
	for _, arm := range model.AllArms() {
		armScores[arm] = 0.5
	}
	out := Apply(ranked, armScores)
	require.InDelta(t, 0.5, out[0].Score, 1e-9)
	require.NotContains(t, out[0].RankingReason, "personalized")
}
