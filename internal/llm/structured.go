package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// StructuredOptions configures a CallStructured invocation.
type StructuredOptions struct {
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
}

// CallStructured issues a chat completion under a strict JSON-only contract
// and unmarshals the response into out (a pointer), retrying transient
// failures up to 3 times (spec.md §6.2). Schema validation is the caller's
// responsibility after this returns: the planner and tagger check their own
// bounds and value sets on out, so those checks stay in their own package.
func CallStructured(ctx context.Context, client ChatClient, model string, userPrompt string, opts StructuredOptions, out any) error {
	if client == nil || strings.TrimSpace(model) == "" {
		return errors.New("llm client not configured")
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
	}
	var raw string
	err := withRetry(ctx, func() error {
		resp, err := client.CreateChatCompletion(ctx, req)
		if err != nil {
			return fmt.Errorf("structured call: %w", err)
		}
		if len(resp.Choices) == 0 {
			return errors.New("no choices returned")
		}
		raw = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("parse structured json: %w", err)
	}
	return nil
}
