// Package parallelsearch implements the Parallel Searcher (spec.md §4.3):
// fan-out over a plan's sub-queries with bounded concurrency, per-task
// timeouts, failure isolation, URL dedup, round-robin interleaving, an
// authority (Wikipedia/Wikimedia) filter with a floor guard, and a fallback
// supplementation pass when too few hits survive.
package parallelsearch

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/answerengine/internal/model"
	"github.com/hyperifyio/answerengine/internal/search"
	"github.com/hyperifyio/answerengine/internal/urlnorm"
)

// Options configures one Parallel Searcher invocation.
type Options struct {
	Concurrency        int           // default 5
	PerSearchTimeout   time.Duration // default 15s
	MaxResultsPerQuery int           // default 10
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 5
	}
	if o.PerSearchTimeout <= 0 {
		o.PerSearchTimeout = 15 * time.Second
	}
	if o.MaxResultsPerQuery <= 0 {
		o.MaxResultsPerQuery = 10
	}
	return o
}

const (
	finalTruncateLimit = 20
	authorityFloor      = 5
)

// Run executes the algorithm of spec.md §4.3 and always returns a (possibly
// empty) ordered hit list — a single sub-query's failure is never fatal, and
// only total failure falls back to one search of the original query.
func Run(ctx context.Context, provider search.Provider, plan model.Plan, opts Options) []model.SearchHit {
	opts = opts.withDefaults()

	subQueries := plan.SubQueries
	if len(subQueries) == 0 {
		hits, err := singleSearch(ctx, provider, plan.OriginalQuery, opts)
		if err != nil {
			log.Warn().Err(err).Str("query", plan.OriginalQuery).Msg("parallelsearch: single search failed")
			return nil
		}
		return finalize(hits, nil, opts)
	}

	groups := fanOut(ctx, provider, subQueries, opts)

	allFailed := true
	for _, g := range groups {
		if g.err == nil {
			allFailed = false
			break
		}
	}
	if allFailed {
		hits, err := singleSearch(ctx, provider, plan.OriginalQuery, opts)
		if err != nil {
			log.Warn().Err(err).Msg("parallelsearch: total failure, fallback search also failed")
			return nil
		}
		return finalize(hits, nil, opts)
	}

	merged := mergeAndInterleave(groups)
	return finalize(merged, &fallbackSupplement{provider: provider, originalQuery: plan.OriginalQuery, opts: opts}, opts)
}

type group struct {
	sourceQuery string
	hits        []model.SearchHit
	err         error
}

// fanOut batches sub-queries at the concurrency cap and runs each
// independently with its own per-task timeout. A sub-query's failure is
// logged and recorded, never propagated.
func fanOut(ctx context.Context, provider search.Provider, subQueries []model.SubQuery, opts Options) []group {
	groups := make([]group, len(subQueries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, sq := range subQueries {
		i, sq := i, sq
		groups[i].sourceQuery = string(sq)
		g.Go(func() error {
			taskCtx, cancel := context.WithTimeout(gctx, opts.PerSearchTimeout)
			defer cancel()
			hits, err := provider.Search(taskCtx, string(sq), opts.MaxResultsPerQuery)
			if err != nil {
				log.Warn().Err(err).Str("subQuery", string(sq)).Msg("parallelsearch: sub-query failed")
				groups[i].err = err
				return nil // isolate: never abort the errgroup
			}
			for rank, h := range hits {
				h.Provenance = model.Provenance{SourceQuery: string(sq), OriginalRank: rank + 1}
				hits[rank] = h
			}
			groups[i].hits = hits
			return nil
		})
	}
	_ = g.Wait()
	return groups
}

func singleSearch(ctx context.Context, provider search.Provider, query string, opts Options) ([]model.SearchHit, error) {
	taskCtx, cancel := context.WithTimeout(ctx, opts.PerSearchTimeout)
	defer cancel()
	hits, err := provider.Search(taskCtx, query, opts.MaxResultsPerQuery)
	if err != nil {
		return nil, err
	}
	for rank, h := range hits {
		h.Provenance = model.Provenance{SourceQuery: query, OriginalRank: rank + 1}
		hits[rank] = h
	}
	return hits, nil
}

// mergeAndInterleave deduplicates hits across groups by normalized URL
// (merging snippets on collision) and then interleaves the surviving,
// per-group ordered lists round-robin: first pass takes the top 3 from the
// first two groups and the top 2 from each remaining group; subsequent
// passes take 1 per group.
func mergeAndInterleave(groups []group) []model.SearchHit {
	seen := map[string]*model.SearchHit{}
	perGroup := make([][]string, len(groups)) // ordered normalized URL keys unique to this group

	for gi, grp := range groups {
		for _, h := range grp.hits {
			key := urlnorm.Normalize(h.URL)
			if existing, ok := seen[key]; ok {
				existing.Snippet = mergeSnippets(existing.Snippet, h.Snippet)
				continue
			}
			hCopy := h
			seen[key] = &hCopy
			perGroup[gi] = append(perGroup[gi], key)
		}
	}

	return interleave(perGroup, seen)
}

func interleave(perGroup [][]string, byKey map[string]*model.SearchHit) []model.SearchHit {
	idx := make([]int, len(perGroup))
	out := make([]model.SearchHit, 0, finalTruncateLimit*2)

	take := func(groupIdx int, n int) {
		for c := 0; c < n && idx[groupIdx] < len(perGroup[groupIdx]); c++ {
			key := perGroup[groupIdx][idx[groupIdx]]
			idx[groupIdx]++
			out = append(out, *byKey[key])
		}
	}

	// First pass: top 3 from the first two groups, top 2 from each remaining.
	for gi := range perGroup {
		if gi < 2 {
			take(gi, 3)
		} else {
			take(gi, 2)
		}
	}

	// Subsequent passes: 1 per group, round-robin, until all groups drained.
	for {
		progressed := false
		for gi := range perGroup {
			before := len(out)
			take(gi, 1)
			if len(out) > before {
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return out
}

func mergeSnippets(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if strings.Contains(a, b) {
		return a
	}
	if strings.Contains(b, a) {
		return b
	}
	merged := a + " | " + b
	if len(merged) > 500 {
		merged = merged[:500]
	}
	return merged
}

// fallbackSupplement performs step 8 of §4.3: when too few hits survive the
// authority filter, one extra search of the original query is run and merged
// with the same dedup rules.
type fallbackSupplement struct {
	provider      search.Provider
	originalQuery string
	opts          Options
}

func finalize(hits []model.SearchHit, supplement *fallbackSupplement, opts Options) []model.SearchHit {
	filtered, filteredOut := applyAuthorityFilter(hits)
	if len(filtered) < authorityFloor {
		// Skip the filter for this request: Wikipedia/Wikimedia hits are
		// retained rather than leaving an under-sized result set.
		filtered = append(append([]model.SearchHit{}, filtered...), filteredOut...)
	}

	if len(filtered) < authorityFloor && supplement != nil {
		extra, err := singleSearch(context.Background(), supplement.provider, supplement.originalQuery, supplement.opts)
		if err != nil {
			log.Warn().Err(err).Msg("parallelsearch: supplemental search failed")
		} else {
			filtered = dedupAppend(filtered, extra)
		}
	}

	if len(filtered) > finalTruncateLimit {
		filtered = filtered[:finalTruncateLimit]
	}
	return filtered
}

func applyAuthorityFilter(hits []model.SearchHit) (kept, dropped []model.SearchHit) {
	for _, h := range hits {
		host := h.Domain
		if host == "" {
			host = urlnorm.Host(h.URL)
		}
		if urlnorm.MatchesSuffix(host, "wikipedia.org") || urlnorm.MatchesSuffix(host, "wikimedia.org") {
			dropped = append(dropped, h)
			continue
		}
		kept = append(kept, h)
	}
	return kept, dropped
}

func dedupAppend(base []model.SearchHit, extra []model.SearchHit) []model.SearchHit {
	seen := map[string]struct{}{}
	for _, h := range base {
		seen[urlnorm.Normalize(h.URL)] = struct{}{}
	}
	out := append([]model.SearchHit{}, base...)
	for _, h := range extra {
		key := urlnorm.Normalize(h.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, h)
	}
	return out
}
