package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/answerengine/internal/eventstore"
	"github.com/hyperifyio/answerengine/internal/extract"
	"github.com/hyperifyio/answerengine/internal/model"
	"github.com/hyperifyio/answerengine/internal/search"
	"github.com/hyperifyio/answerengine/internal/synth"
)

type fakePlanner struct{ plan model.Plan }

func (f *fakePlanner) Plan(_ context.Context, query string) model.Plan { return f.plan }

type fakeSearchProvider struct{ hits []model.SearchHit }

func (f *fakeSearchProvider) Name() string { return "fake" }
func (f *fakeSearchProvider) Search(_ context.Context, _ string, _ int) ([]model.SearchHit, error) {
	return f.hits, nil
}

func TestRun_EmitsProgressThenTerminalError(t *testing.T) {
	plan := model.Plan{OriginalQuery: "q", SubQueries: []model.SubQuery{"q"}, Strategy: "fallback"}
	hits := []model.SearchHit{}

	opts := Options{
		Planner:        &fakePlanner{plan: plan},
		SearchProvider: &fakeSearchProvider{hits: hits},
		PageFetcher:    &extract.PageFetcher{},
		Synthesizer:    &synth.Synthesizer{}, // no client: Synthesize will error
		Events:         eventstore.New(),
		Now:            func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	}

	var events []Event
	Run(context.Background(), "q", "", opts, func(e Event) { events = append(events, e) })

	require.NotEmpty(t, events)
	require.Equal(t, "progress", events[0].Type)
	require.Equal(t, StagePlanning, events[0].Stage)
	last := events[len(events)-1]
	require.Equal(t, "error", last.Type) // unconfigured synthesizer errors
}

func TestRun_CancelledContextStopsBeforeComplete(t *testing.T) {
	plan := model.Plan{OriginalQuery: "q", SubQueries: []model.SubQuery{"q"}}
	opts := Options{
		Planner:        &fakePlanner{plan: plan},
		SearchProvider: &fakeSearchProvider{},
		PageFetcher:    &extract.PageFetcher{},
		Synthesizer:    &synth.Synthesizer{},
		Events:         eventstore.New(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var events []Event
	Run(ctx, "q", "", opts, func(e Event) { events = append(events, e) })

	for _, e := range events {
		require.NotEqual(t, "complete", e.Type)
	}
}

var _ search.Provider = (*fakeSearchProvider)(nil)
