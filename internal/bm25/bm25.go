// Package bm25 implements the Okapi BM25 relevance score used by the
// Ranker (spec.md §4.6) to score each extracted page against the original
// query. k1 and b take their conventional textbook values.
package bm25

import (
	"math"
	"regexp"
	"strings"
)

const (
	k1 = 1.5
	b  = 0.75
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Tokenize lowercases and splits on non-alphanumeric runs, dropping tokens
// of length <= 2 as noise (stopword-ish short tokens, punctuation debris).
func Tokenize(s string) []string {
	lower := strings.ToLower(s)
	raw := tokenPattern.FindAllString(lower, -1)
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		if len(tok) > 2 {
			out = append(out, tok)
		}
	}
	return out
}

// Corpus holds the document-frequency statistics needed to score a set of
// documents against a query under BM25.
type Corpus struct {
	docTokens [][]string
	avgDocLen float64
	docFreq   map[string]int
	totalDocs int
}

// NewCorpus builds document-frequency statistics over the given document
// bodies (already extracted page text, one entry per ranked candidate).
func NewCorpus(documents []string) *Corpus {
	c := &Corpus{docFreq: map[string]int{}}
	c.docTokens = make([][]string, len(documents))
	totalLen := 0
	for i, doc := range documents {
		toks := Tokenize(doc)
		c.docTokens[i] = toks
		totalLen += len(toks)
		seen := map[string]bool{}
		for _, tok := range toks {
			if !seen[tok] {
				seen[tok] = true
				c.docFreq[tok]++
			}
		}
	}
	c.totalDocs = len(documents)
	if c.totalDocs > 0 {
		c.avgDocLen = float64(totalLen) / float64(c.totalDocs)
	}
	return c
}

// Score returns the BM25 relevance of document index docIdx against query,
// scaled into [0, 1] by dividing the raw BM25 sum by 10 and clamping.
func (c *Corpus) Score(query string, docIdx int) float64 {
	if docIdx < 0 || docIdx >= len(c.docTokens) {
		return 0
	}
	qTokens := Tokenize(query)
	docToks := c.docTokens[docIdx]
	docLen := float64(len(docToks))

	termFreq := map[string]int{}
	for _, tok := range docToks {
		termFreq[tok]++
	}

	var score float64
	for _, qt := range qTokens {
		tf := float64(termFreq[qt])
		if tf == 0 {
			continue
		}
		n := c.docFreq[qt]
		idf := idfValue(c.totalDocs, n)
		denom := tf + k1*(1-b+b*docLen/avgOrOne(c.avgDocLen))
		score += idf * (tf * (k1 + 1)) / denom
	}

	scaled := score / 10.0
	if scaled < 0 {
		scaled = 0
	}
	if scaled > 1 {
		scaled = 1
	}
	return scaled
}

// idfValue uses the standard non-negative BM25 IDF variant so that terms
// appearing in every document contribute a small positive weight instead of
// going negative.
func idfValue(totalDocs, docsContaining int) float64 {
	return math.Log((float64(totalDocs-docsContaining)+0.5)/(float64(docsContaining)+0.5) + 1)
}

func avgOrOne(avg float64) float64 {
	if avg <= 0 {
		return 1
	}
	return avg
}
