package parallelsearch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/answerengine/internal/model"
)

// fakeProvider returns canned results per sub-query, or an error for
// sub-queries listed in failOn. Every returned hit gets a unique URL derived
// from the sub-query and its rank so dedup tests can control collisions
// explicitly via the hits map.
type fakeProvider struct {
	hits   map[string][]model.SearchHit
	failOn map[string]bool
	calls  []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Search(_ context.Context, subQuery string, maxResults int) ([]model.SearchHit, error) {
	f.calls = append(f.calls, subQuery)
	if f.failOn[subQuery] {
		return nil, errors.New("boom")
	}
	hits := f.hits[subQuery]
	if maxResults > 0 && len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	return hits, nil
}

func mkHits(prefix string, n int) []model.SearchHit {
	out := make([]model.SearchHit, 0, n)
	for i := 0; i < n; i++ {
		u := fmt.Sprintf("https://example.com/%s-%d", prefix, i)
		out = append(out, model.SearchHit{ID: u, URL: u, Title: fmt.Sprintf("%s %d", prefix, i), Domain: "example.com"})
	}
	return out
}

func TestRun_DedupAndInterleave(t *testing.T) {
	plan := model.Plan{
		OriginalQuery: "original",
		SubQueries:    []model.SubQuery{"sq1", "sq2", "sq3"},
	}
	p := &fakeProvider{hits: map[string][]model.SearchHit{
		"sq1": mkHits("a", 5),
		"sq2": mkHits("b", 5),
		"sq3": mkHits("c", 5),
	}}

	out := Run(context.Background(), p, plan, Options{})
	require.NotEmpty(t, out)

	seen := map[string]bool{}
	for _, h := range out {
		require.False(t, seen[h.ID], "duplicate hit in output: %s", h.ID)
		seen[h.ID] = true
	}

	// First pass takes 3 from sq1, 3 from sq2, 2 from sq3.
	require.Equal(t, "https://example.com/a-0", out[0].URL)
	require.Equal(t, "https://example.com/a-1", out[1].URL)
	require.Equal(t, "https://example.com/a-2", out[2].URL)
	require.Equal(t, "https://example.com/b-0", out[3].URL)
	require.Equal(t, "https://example.com/b-1", out[4].URL)
	require.Equal(t, "https://example.com/b-2", out[5].URL)
	require.Equal(t, "https://example.com/c-0", out[6].URL)
	require.Equal(t, "https://example.com/c-1", out[7].URL)
}

func TestRun_DedupMergesSnippets(t *testing.T) {
	plan := model.Plan{OriginalQuery: "original", SubQueries: []model.SubQuery{"sq1", "sq2"}}
	dup := "https://example.com/shared"
	p := &fakeProvider{hits: map[string][]model.SearchHit{
		"sq1": {{ID: dup, URL: dup, Title: "Shared", Snippet: "first snippet", Domain: "example.com"}},
		"sq2": {{ID: dup, URL: dup, Title: "Shared", Snippet: "second snippet", Domain: "example.com"}},
	}}

	out := Run(context.Background(), p, plan, Options{})
	require.Len(t, out, 1)
	require.Equal(t, "first snippet | second snippet", out[0].Snippet)
}

func TestRun_PartialFailureIsolation(t *testing.T) {
	plan := model.Plan{OriginalQuery: "original", SubQueries: []model.SubQuery{"sq1", "sq2"}}
	p := &fakeProvider{
		hits:   map[string][]model.SearchHit{"sq1": mkHits("a", 6)},
		failOn: map[string]bool{"sq2": true},
	}

	out := Run(context.Background(), p, plan, Options{})
	require.NotEmpty(t, out)
	for _, h := range out {
		require.Contains(t, h.URL, "a-")
	}
}

func TestRun_TotalFailureFallsBackToOriginalQuery(t *testing.T) {
	plan := model.Plan{OriginalQuery: "original", SubQueries: []model.SubQuery{"sq1", "sq2"}}
	p := &fakeProvider{
		hits:   map[string][]model.SearchHit{"original": mkHits("fallback", 3)},
		failOn: map[string]bool{"sq1": true, "sq2": true},
	}

	out := Run(context.Background(), p, plan, Options{})
	require.Len(t, out, 3)
	require.Contains(t, p.calls, "original")
}

func TestRun_AuthorityFilterDropsWikipediaAboveFloor(t *testing.T) {
	plan := model.Plan{OriginalQuery: "original", SubQueries: []model.SubQuery{"sq1"}}
	hits := mkHits("a", 6)
	hits = append(hits, model.SearchHit{ID: "wiki", URL: "https://en.wikipedia.org/wiki/Topic", Domain: "en.wikipedia.org"})
	p := &fakeProvider{hits: map[string][]model.SearchHit{"sq1": hits}}

	out := Run(context.Background(), p, plan, Options{})
	for _, h := range out {
		require.NotContains(t, h.Domain, "wikipedia")
	}
}

func TestRun_AuthorityFilterGuardKeepsWikipediaBelowFloor(t *testing.T) {
	plan := model.Plan{OriginalQuery: "original", SubQueries: []model.SubQuery{"sq1"}}
	hits := mkHits("a", 2)
	hits = append(hits, model.SearchHit{ID: "wiki", URL: "https://en.wikipedia.org/wiki/Topic", Domain: "en.wikipedia.org"})
	p := &fakeProvider{hits: map[string][]model.SearchHit{
		"sq1":      hits,
		"original": nil,
	}}

	out := Run(context.Background(), p, plan, Options{})
	found := false
	for _, h := range out {
		if h.ID == "wiki" {
			found = true
		}
	}
	require.True(t, found, "wikipedia hit should be kept when dropping it would leave too few results")
}

func TestRun_EmptySubQueriesSearchesOriginal(t *testing.T) {
	plan := model.Plan{OriginalQuery: "original"}
	p := &fakeProvider{hits: map[string][]model.SearchHit{"original": mkHits("o", 4)}}

	out := Run(context.Background(), p, plan, Options{})
	require.Len(t, out, 4)
}
