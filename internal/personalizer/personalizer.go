// Package personalizer implements the Personalizer (spec.md §4.9): a capped
// multiplicative boost that nudges ranked documents toward content features
// a user's bandit state favors, without ever letting personalization
// dominate the underlying relevance ranking.
package personalizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hyperifyio/answerengine/internal/model"
)

const (
	boostWeight     = 0.3
	maxMultiplier   = 1.3
	reasonThreshold = 0.05
)

// Apply joins each ranked doc with the bandit's arm scores, boosts its score
// by up to 30% based on how strongly the user's bandit favors the doc's
// feature arms, and re-sorts. When armScores is empty, it returns ranked
// unchanged (the identity case for users with no bandit state yet).
func Apply(ranked []model.RankedDoc, armScores map[string]float64) []model.RankedDoc {
	if len(armScores) == 0 {
		return ranked
	}

	out := make([]model.RankedDoc, len(ranked))
	copy(out, ranked)

	for i := range out {
		features := out[i].Features
		if features == nil {
			continue
		}
		boost, topArms := meanBoost(features.Arms(), armScores)
		multiplier := 1 + boostWeight*boost
		if multiplier > maxMultiplier {
			multiplier = maxMultiplier
		}
		out[i].Score *= multiplier
		if boost > reasonThreshold && len(topArms) > 0 {
			out[i].RankingReason = out[i].RankingReason + fmt.Sprintf(" + personalized (%s)", strings.Join(topArms, ", "))
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// meanBoost averages the bandit score (recentered around the flat prior of
// 0.5, so a neutral arm contributes zero boost) across a doc's present arms,
// and returns the top two arm values by score for the ranking-reason
// annotation.
func meanBoost(arms []string, armScores map[string]float64) (float64, []string) {
	present := make([]string, 0, len(arms))
	var sum float64
	for _, arm := range arms {
		score, ok := armScores[arm]
		if !ok {
			continue
		}
		present = append(present, arm)
		sum += score - 0.5
	}
	if len(present) == 0 {
		return 0, nil
	}
	boost := sum / float64(len(present))
	if boost < 0 {
		boost = 0
	}

	sort.SliceStable(present, func(i, j int) bool { return armScores[present[i]] > armScores[present[j]] })
	top := present
	if len(top) > 2 {
		top = top[:2]
	}
	values := make([]string, 0, len(top))
	for _, arm := range top {
		if idx := strings.IndexByte(arm, ':'); idx >= 0 {
			values = append(values, arm[idx+1:])
		} else {
			values = append(values, arm)
		}
	}
	return boost, values
}
