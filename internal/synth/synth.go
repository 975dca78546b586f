// Package synth implements the Synthesizer (spec.md §4.10): a streaming LLM
// call over the top ranked sources that produces inline-cited prose, with
// post-generation citation validation so every [n] marker in the final
// answer resolves to one of the sources actually offered to the model.
package synth

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hyperifyio/answerengine/internal/budget"
	"github.com/hyperifyio/answerengine/internal/llm"
	"github.com/hyperifyio/answerengine/internal/model"
)

const (
	maxSources        = 8
	synthTemperature  = 0.3
	reservedOutputTok = 1024
	maxPassageLen     = 200
)

// Synthesizer streams a cited answer over a capped set of ranked sources.
type Synthesizer struct {
	Client  llm.ChatClient
	Model   string
	Verbose bool
}

// Synthesize streams the answer, invoking onChunk for each delta as it
// arrives, and returns the final validated model.AnswerPacket. ctx
// cancellation stops the stream; the stream error is returned wrapped
// with a "synthesis stream" prefix.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, ranked []model.RankedDoc, onChunk func(string)) (model.AnswerPacket, error) {
	sources := ranked
	if len(sources) > maxSources {
		sources = sources[:maxSources]
	}

	system := systemPrompt()
	user := s.buildUserPrompt(query, sources)

	text, err := llm.StreamCompletion(ctx, s.Client, s.Model, user, llm.StreamOptions{
		SystemPrompt: system,
		Temperature:  synthTemperature,
		MaxTokens:    reservedOutputTok,
		OnChunk:      onChunk,
	})
	if err != nil {
		return model.AnswerPacket{}, fmt.Errorf("synthesis stream: %w", err)
	}

	finalText, citations := validateCitations(text, sources)
	return model.AnswerPacket{
		Text:      finalText,
		Citations: citations,
		Sources:   sources,
	}, nil
}

func (s *Synthesizer) buildUserPrompt(query string, sources []model.RankedDoc) string {
	var sb strings.Builder
	sb.WriteString("Question: ")
	sb.WriteString(query)
	sb.WriteString("\n\nSources (cite with [n] matching the number below; use only these facts):\n")

	reserved := budget.EstimateTokens(systemPrompt()) + budget.EstimateTokens(query) + 200
	remaining := budget.RemainingContextWithHeadroom(s.Model, reservedOutputTok, reserved)
	perSourceBudget := 400
	if len(sources) > 0 {
		if v := remaining / len(sources); v > 0 {
			perSourceBudget = v
		}
	}

	for i, src := range sources {
		excerpt := truncateToTokenBudget(src.Excerpt, perSourceBudget)
		sb.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, src.Title, src.Domain))
		if excerpt != "" {
			sb.WriteString(excerpt)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func truncateToTokenBudget(text string, tokenBudget int) string {
	if tokenBudget <= 0 {
		return ""
	}
	maxChars := tokenBudget * 4
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars]
}

func systemPrompt() string {
	return "You are a research answer assistant. Answer the question using only the numbered sources provided. " +
		"Every factual sentence must end with one or more bracketed citation markers like [1] or [2,3] that refer to " +
		"the source numbers. Write 2 to 5 paragraphs. Draw on a diverse set of the sources rather than just one or two. " +
		"If sources disagree, say so explicitly. If the sources do not fully answer the question, say what is missing. " +
		"Never cite a number that was not given to you."
}

var citationPattern = regexp.MustCompile(`\[([0-9, ]+)\]`)

// validateCitations extracts every [n] or [n,m,...] marker from text. For
// in-range indices it records a model.Citation; for out-of-range indices it
// strips the marker from the text rather than leaving a dangling reference,
// since the sources that would support a remap are not reliably known.
func validateCitations(text string, sources []model.RankedDoc) (string, []model.Citation) {
	numSources := len(sources)
	citationsByIndex := map[int]model.Citation{}
	var order []int

	out := citationPattern.ReplaceAllStringFunc(text, func(match string) string {
		inner := citationPattern.FindStringSubmatch(match)[1]
		parts := strings.Split(inner, ",")
		var kept []string
		for _, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || n < 1 || n > numSources {
				continue
			}
			kept = append(kept, strconv.Itoa(n))
			if _, ok := citationsByIndex[n]; !ok {
				src := sources[n-1]
				citationsByIndex[n] = model.Citation{
					Index:    n,
					SourceID: src.ID,
					Passage:  passageExcerpt(src.Excerpt),
				}
				order = append(order, n)
			}
		}
		if len(kept) == 0 {
			return ""
		}
		return "[" + strings.Join(kept, ",") + "]"
	})

	sort.Ints(order)
	citations := make([]model.Citation, 0, len(order))
	for _, n := range order {
		citations = append(citations, citationsByIndex[n])
	}
	return out, citations
}

func passageExcerpt(excerpt string) string {
	if len(excerpt) <= maxPassageLen {
		return excerpt
	}
	return excerpt[:maxPassageLen]
}
