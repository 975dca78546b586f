// Package pipeline implements the Pipeline Orchestrator (spec.md §4.11): it
// sequences planning, parallel search, extraction+tagging, ranking,
// personalization, and synthesis for one request, emitting progress events
// as it goes and exactly one terminal event.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/answerengine/internal/eventstore"
	"github.com/hyperifyio/answerengine/internal/extract"
	"github.com/hyperifyio/answerengine/internal/model"
	"github.com/hyperifyio/answerengine/internal/parallelsearch"
	"github.com/hyperifyio/answerengine/internal/personalizer"
	"github.com/hyperifyio/answerengine/internal/planner"
	"github.com/hyperifyio/answerengine/internal/ranker"
	"github.com/hyperifyio/answerengine/internal/search"
	"github.com/hyperifyio/answerengine/internal/synth"
	"github.com/hyperifyio/answerengine/internal/tagger"
)

// Stage identifies a progress event's phase, per spec.md §6.1.
type Stage string

const (
	StagePlanning     Stage = "planning"
	StageSearching    Stage = "searching"
	StageAnalyzing    Stage = "analyzing"
	StageSynthesizing Stage = "synthesizing"
)

// Event is one frame emitted over the course of a request, matching the SSE
// frame shapes of spec.md §6.1.
type Event struct {
	Type     string // "progress", "chunk", "complete", "error"
	Stage    Stage
	Chunk    string
	Answer   *model.AnswerPacket
	Err      error
}

// Options configures one pipeline run.
type Options struct {
	Planner              planner.Planner
	SearchProvider       search.Provider
	PageFetcher          *extract.PageFetcher
	Tagger               tagger.Tagger
	Synthesizer          *synth.Synthesizer
	Events               *eventstore.Store
	ExtractConcurrency   int // default 5
	PendingImpressionTTL time.Duration
	Now                  func() time.Time
}

func (o Options) withDefaults() Options {
	if o.ExtractConcurrency <= 0 {
		o.ExtractConcurrency = 5
	}
	if o.PendingImpressionTTL <= 0 {
		o.PendingImpressionTTL = 25 * time.Second
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	return o
}

// Run executes one request end to end, sending Events to emit until ctx is
// canceled or the pipeline reaches a terminal state. Exactly one of
// "complete" or "error" is ever sent, and only if ctx is not already done by
// the time the pipeline would emit it.
func Run(ctx context.Context, query, userID string, opts Options, emit func(Event)) {
	opts = opts.withDefaults()

	var armScores map[string]float64
	if userID != "" && opts.Events != nil {
		armScores = opts.Events.ResolveAndScore(userID, opts.PendingImpressionTTL)
	}

	emit(Event{Type: "progress", Stage: StagePlanning})
	plan := opts.Planner.Plan(ctx, query)
	if ctx.Err() != nil {
		return
	}

	emit(Event{Type: "progress", Stage: StageSearching})
	hits := parallelsearch.Run(ctx, opts.SearchProvider, plan, parallelsearch.Options{Concurrency: opts.ExtractConcurrency})
	if ctx.Err() != nil {
		return
	}

	candidates := extractAndTag(ctx, hits, opts)
	if ctx.Err() != nil {
		return
	}

	emit(Event{Type: "progress", Stage: StageAnalyzing})
	ranked := ranker.Rank(query, candidates, opts.Now())
	if userID != "" {
		ranked = personalizer.Apply(ranked, armScores)
	}
	if ctx.Err() != nil {
		return
	}

	queryID := newQueryID()
	if userID != "" && opts.Events != nil {
		recordImpressions(opts.Events, userID, queryID, ranked)
	}

	emit(Event{Type: "progress", Stage: StageSynthesizing})
	answer, err := opts.Synthesizer.Synthesize(ctx, query, ranked, func(chunk string) {
		emit(Event{Type: "chunk", Chunk: chunk})
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		emit(Event{Type: "error", Err: err})
		return
	}
	answer.QueryID = queryID
	emit(Event{Type: "complete", Answer: &answer})
}

const impressionTopK = 8

func recordImpressions(store *eventstore.Store, userID, queryID string, ranked []model.RankedDoc) {
	top := ranked
	if len(top) > impressionTopK {
		top = top[:impressionTopK]
	}
	for _, doc := range top {
		if doc.Features == nil {
			continue
		}
		store.RecordPendingImpression(userID, doc.Features.Arms(), queryID, doc.ID)
	}
}

func extractAndTag(ctx context.Context, hits []model.SearchHit, opts Options) []ranker.Candidate {
	out := make([]ranker.Candidate, len(hits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.ExtractConcurrency)

	for i, hit := range hits {
		i, hit := i, hit
		out[i].Hit = hit
		g.Go(func() error {
			pe := opts.PageFetcher.Fetch(gctx, hit.URL)
			if pe == nil {
				return nil
			}
			if opts.Tagger != nil {
				features := opts.Tagger.Tag(gctx, pe.Title, pe.Body)
				pe.Features = &features
			}
			out[i].Extract = pe
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Debug().Err(err).Msg("pipeline: extract/tag fan-out reported an error")
	}
	return out
}

func newQueryID() string {
	return uuid.NewString()
}
