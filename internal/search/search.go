// Package search implements the Search Client (spec.md §4.2): one search
// over one sub-query, normalized to SearchHit. It is never called directly
// by the pipeline — only through the Parallel Searcher.
package search

import (
	"context"

	"github.com/hyperifyio/answerengine/internal/model"
	"github.com/hyperifyio/answerengine/internal/urlnorm"
)

// Provider is a minimal interface for search providers.
type Provider interface {
	Search(ctx context.Context, subQuery string, maxResults int) ([]model.SearchHit, error)
	Name() string
}

// DomainPolicy allows providers to filter or block results by host.
// Denylist takes precedence over Allowlist.
type DomainPolicy struct {
	Allowlist []string
	Denylist  []string
}

func isDomainBlocked(rawURL string, allow, deny []string) (bool, string) {
	host := urlnorm.Host(rawURL)
	if host == "" {
		return true, ""
	}
	for _, d := range deny {
		if urlnorm.MatchesSuffix(host, d) {
			return true, host
		}
	}
	if len(allow) > 0 {
		for _, a := range allow {
			if urlnorm.MatchesSuffix(host, a) {
				return false, host
			}
		}
		return true, host
	}
	return false, host
}

// NewHit builds a SearchHit from raw provider fields, computing the stable
// id and domain.
func NewHit(title, rawURL, snippet, publishedHint string) model.SearchHit {
	return model.SearchHit{
		ID:            urlnorm.ID(rawURL),
		URL:           rawURL,
		Title:         title,
		Snippet:       snippet,
		Domain:        urlnorm.Host(rawURL),
		PublishedHint: publishedHint,
	}
}
