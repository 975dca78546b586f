// Package tagger implements the Feature Tagger (spec.md §4.5): a single
// structured LLM call that classifies an extracted page into the shared
// five-dimension content feature tuple used by both the Ranker and the
// bandit's arm space.
package tagger

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/answerengine/internal/llm"
	"github.com/hyperifyio/answerengine/internal/model"
)

const bodyPreviewLen = 1500

type rawFeatures struct {
	Depth    string `json:"depth"`
	Style    string `json:"style"`
	Format   string `json:"format"`
	Approach string `json:"approach"`
	Density  string `json:"density"`
}

// Tagger classifies a page's content features. It never returns an error:
// classification failures fall back to model.DefaultContentFeatures() so a
// single bad LLM response never blocks the pipeline.
type Tagger interface {
	Tag(ctx context.Context, title, body string) model.ContentFeatures
}

type LLMTagger struct {
	Client  llm.ChatClient
	Model   string
	Verbose bool
}

func (t *LLMTagger) systemPrompt() string {
	return "You classify a web page's content style. Respond with strict JSON only, no narration. " +
		"The JSON schema is {\"depth\": one of " + joinQuoted(model.DepthValues) + ", " +
		"\"style\": one of " + joinQuoted(model.StyleValues) + ", " +
		"\"format\": one of " + joinQuoted(model.FormatValues) + ", " +
		"\"approach\": one of " + joinQuoted(model.ApproachValues) + ", " +
		"\"density\": one of " + joinQuoted(model.DensityValues) + "}. " +
		"Pick exactly one value per dimension."
}

func (t *LLMTagger) Tag(ctx context.Context, title, body string) model.ContentFeatures {
	fallback := model.DefaultContentFeatures()
	if t.Client == nil || t.Model == "" {
		return fallback
	}

	preview := body
	if len(preview) > bodyPreviewLen {
		preview = preview[:bodyPreviewLen]
	}

	prompt := "Title: " + title + "\n\nContent:\n" + preview

	var raw rawFeatures
	err := llm.CallStructured(ctx, t.Client, t.Model, prompt, llm.StructuredOptions{
		SystemPrompt: t.systemPrompt(),
		Temperature:  0.1,
		MaxTokens:    100,
	}, &raw)
	if err != nil {
		if t.Verbose {
			log.Debug().Err(err).Str("title", title).Msg("tagger: classification failed, using defaults")
		}
		return fallback
	}

	features := model.ContentFeatures{
		Depth:    pickOrDefault(raw.Depth, model.DepthValues, fallback.Depth),
		Style:    pickOrDefault(raw.Style, model.StyleValues, fallback.Style),
		Format:   pickOrDefault(raw.Format, model.FormatValues, fallback.Format),
		Approach: pickOrDefault(raw.Approach, model.ApproachValues, fallback.Approach),
		Density:  pickOrDefault(raw.Density, model.DensityValues, fallback.Density),
	}
	return features
}

func pickOrDefault(value string, allowed []string, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, v := range allowed {
		if v == value {
			return v
		}
	}
	return fallback
}

func joinQuoted(values []string) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('"')
		b.WriteString(v)
		b.WriteByte('"')
	}
	return b.String()
}
