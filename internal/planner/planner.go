// Package planner decomposes a user query into 2-5 sub-queries via a single
// structured LLM call, falling back to a one-sub-query plan on any failure
// (spec.md §4.1). The planner never returns an error to its caller: failure
// degrades the plan instead.
package planner

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/answerengine/internal/llm"
	"github.com/hyperifyio/answerengine/internal/model"
)

const (
	minSubQueries = 2
	maxSubQueries = 5
)

// rawPlan is the strict JSON schema the LLM must satisfy.
type rawPlan struct {
	SubQueries []string `json:"subQueries"`
}

// Planner produces a Plan for a raw user query.
type Planner interface {
	Plan(ctx context.Context, query string) model.Plan
}

// LLMPlanner calls an OpenAI-compatible endpoint and enforces the
// subQueries[2..5] JSON contract. Plan never returns an error; on any
// transport, parse, or validation failure it degrades to the fallback plan.
type LLMPlanner struct {
	Client  llm.ChatClient
	Model   string
	Verbose bool
}

func systemPrompt() string {
	return "You are a search query planning assistant. Respond with strict JSON only, no narration. " +
		"The JSON schema is {\"subQueries\": string[2..5]}. Sub-queries must be diverse, concise, non-empty, " +
		"and together cover the distinct facets of the user's question."
}

// Plan decomposes query into 2-5 sub-queries, or returns a single-sub-query
// fallback plan with strategy="fallback" if the LLM call fails validation.
func (p *LLMPlanner) Plan(ctx context.Context, query string) model.Plan {
	query = strings.TrimSpace(query)
	if p.Client == nil || strings.TrimSpace(p.Model) == "" {
		return fallback(query)
	}

	var raw rawPlan
	err := llm.CallStructured(ctx, p.Client, p.Model, query, llm.StructuredOptions{
		SystemPrompt: systemPrompt(),
		Temperature:  0.15,
		MaxTokens:    300,
	}, &raw)
	if err != nil {
		if p.Verbose {
			log.Debug().Err(err).Msg("planner: structured call failed, degrading to fallback")
		}
		return fallback(query)
	}

	sanitized := sanitize(raw.SubQueries)
	if len(sanitized) < minSubQueries {
		return fallback(query)
	}
	if len(sanitized) > maxSubQueries {
		sanitized = sanitized[:maxSubQueries]
	}

	subQueries := make([]model.SubQuery, 0, len(sanitized))
	for _, s := range sanitized {
		subQueries = append(subQueries, model.SubQuery(s))
	}
	return model.Plan{
		OriginalQuery: query,
		SubQueries:    subQueries,
		Strategy:      "llm",
	}
}

func fallback(query string) model.Plan {
	if query == "" {
		query = "research topic"
	}
	return model.Plan{
		OriginalQuery: query,
		SubQueries:    []model.SubQuery{model.SubQuery(query)},
		Strategy:      "fallback",
	}
}

// sanitize trims, deduplicates (case-insensitively), and drops empty entries.
func sanitize(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, q := range in {
		s := strings.TrimSpace(q)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
