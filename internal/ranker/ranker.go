// Package ranker implements the Ranker (spec.md §4.7): it blends relevance,
// recency, source quality, and coverage signals into a single score per
// candidate document and produces a human-readable ranking rationale.
package ranker

import (
	"sort"
	"strings"
	"time"

	"github.com/hyperifyio/answerengine/internal/bm25"
	"github.com/hyperifyio/answerengine/internal/model"
)

const (
	weightRelevance     = 0.5
	weightRecency       = 0.2
	weightSourceQuality = 0.2
	weightCoverage      = 0.1

	recencyDecayDays = 365.0
	coverageWordCap  = 1000.0
)

// Candidate bundles everything the Ranker needs about one extracted page.
type Candidate struct {
	Hit     model.SearchHit
	Extract *model.PageExtract
}

// Rank scores and sorts candidates, returning one model.RankedDoc per
// candidate with a non-nil Extract, in descending score order.
func Rank(query string, candidates []Candidate, now time.Time) []model.RankedDoc {
	bodies := make([]string, 0, len(candidates))
	usable := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Extract == nil {
			continue
		}
		bodies = append(bodies, c.Extract.Title+" "+c.Extract.Excerpt)
		usable = append(usable, c)
	}
	corpus := bm25.NewCorpus(bodies)

	out := make([]model.RankedDoc, 0, len(usable))
	for i, c := range usable {
		signals := model.Signals{
			Relevance:     corpus.Score(query, i),
			Recency:       recencyScore(c.Extract.PublishedDate, now),
			SourceQuality: sourceQuality(c.Hit.Domain),
			Coverage:      coverage(c.Extract.Body),
		}
		score := weightRelevance*signals.Relevance +
			weightRecency*signals.Recency +
			weightSourceQuality*signals.SourceQuality +
			weightCoverage*signals.Coverage

		doc := model.RankedDoc{
			ID:            c.Hit.ID,
			URL:           c.Hit.URL,
			Title:         firstNonEmpty(c.Extract.Title, c.Hit.Title),
			Excerpt:       c.Extract.Excerpt,
			Domain:        c.Hit.Domain,
			PublishedDate: c.Extract.PublishedDate,
			Signals:       signals,
			Score:         score,
		}
		features := c.Extract.Features
		if features == nil {
			defaults := model.DefaultContentFeatures()
			features = &defaults
		}
		doc.Features = features
		doc.RankingReason = rankingReason(signals)
		out = append(out, doc)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// recencyScore maps a publish date to [0,1]: unknown dates are treated as
// neutral, future-dated pages (clock skew, scheduled posts) as maximally
// recent, and everything else decays linearly to 0 over one year.
func recencyScore(published *time.Time, now time.Time) float64 {
	if published == nil {
		return 0.5
	}
	age := now.Sub(*published)
	if age < 0 {
		return 1.0
	}
	days := age.Hours() / 24
	if days >= recencyDecayDays {
		return 0
	}
	return 1 - days/recencyDecayDays
}

var domainQuality = []struct {
	suffix string
	score  float64
}{
	{".edu", 0.9},
	{".gov", 0.9},
	{".org", 0.7},
}

func sourceQuality(domain string) float64 {
	domain = strings.ToLower(domain)
	for _, dq := range domainQuality {
		if strings.HasSuffix(domain, dq.suffix) {
			return dq.score
		}
	}
	return 0.5
}

func coverage(body string) float64 {
	words := len(strings.Fields(body))
	c := float64(words) / coverageWordCap
	if c > 1 {
		return 1
	}
	return c
}

func rankingReason(s model.Signals) string {
	if s.SourceQuality > 0.7 {
		return ".edu/.gov domain"
	}
	if s.Recency > 0.7 {
		return "recent"
	}
	if s.Relevance > 0.8 {
		return "highly relevant"
	}
	return "matched query"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
