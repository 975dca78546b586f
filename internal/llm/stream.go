package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// StreamOptions configures a StreamCompletion invocation.
type StreamOptions struct {
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
	// OnChunk is invoked for every token/fragment as it arrives. It must not
	// block the stream consumer; callers that forward chunks to a slow
	// network transport should buffer asynchronously (spec.md §5).
	OnChunk func(chunk string)
}

// StreamCompletion streams a free-form completion, forwarding each fragment
// through opts.OnChunk and returning the accumulated full text. Retries up to
// 3 times on transient failure, but only while no chunk has yet been
// delivered to the caller — once streaming has started, a disconnect is
// surfaced as an error rather than replayed, since OnChunk has no undo.
func StreamCompletion(ctx context.Context, client ChatClient, model string, userPrompt string, opts StreamOptions) (string, error) {
	if client == nil || strings.TrimSpace(model) == "" {
		return "", errors.New("llm client not configured")
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: opts.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		N:           1,
		Stream:      true,
	}

	var full strings.Builder
	started := false
	err := withRetry(ctx, func() error {
		if started {
			return errors.New("stream already started; not retryable")
		}
		stream, err := client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			return fmt.Errorf("stream open: %w", err)
		}
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				if started {
					return fmt.Errorf("stream recv (non-retryable, partial output delivered): %w", err)
				}
				return fmt.Errorf("stream recv: %w", err)
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			started = true
			full.WriteString(delta)
			if opts.OnChunk != nil {
				opts.OnChunk(delta)
			}
		}
	})
	if err != nil {
		return full.String(), err
	}
	return full.String(), nil
}
