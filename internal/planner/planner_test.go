package planner

import (
	"context"
	"encoding/json"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

type fakeChatClient struct {
	content string
	err     error
}

func (f *fakeChatClient) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.content},
		}},
	}, nil
}

func (f *fakeChatClient) CreateChatCompletionStream(_ context.Context, _ openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error) {
	return nil, nil
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestLLMPlanner_ValidResponse(t *testing.T) {
	client := &fakeChatClient{content: mustJSON(t, rawPlan{SubQueries: []string{"a", "b", "c"}})}
	p := &LLMPlanner{Client: client, Model: "test-model"}

	plan := p.Plan(context.Background(), "what is x")

	require.Equal(t, "llm", plan.Strategy)
	require.Len(t, plan.SubQueries, 3)
	require.GreaterOrEqual(t, len(plan.SubQueries), minSubQueries)
	require.LessOrEqual(t, len(plan.SubQueries), maxSubQueries)
}

func TestLLMPlanner_TruncatesOverflow(t *testing.T) {
	client := &fakeChatClient{content: mustJSON(t, rawPlan{SubQueries: []string{"a", "b", "c", "d", "e", "f", "g"}})}
	p := &LLMPlanner{Client: client, Model: "test-model"}

	plan := p.Plan(context.Background(), "q")

	require.Len(t, plan.SubQueries, maxSubQueries)
}

func TestLLMPlanner_DegradesToFallbackOnMalformedJSON(t *testing.T) {
	client := &fakeChatClient{content: "not json"}
	p := &LLMPlanner{Client: client, Model: "test-model"}

	plan := p.Plan(context.Background(), "the original query")

	require.Equal(t, "fallback", plan.Strategy)
	require.Len(t, plan.SubQueries, 1)
	require.EqualValues(t, "the original query", plan.SubQueries[0])
}

func TestLLMPlanner_DegradesToFallbackOnTransportError(t *testing.T) {
	client := &fakeChatClient{err: context.DeadlineExceeded}
	p := &LLMPlanner{Client: client, Model: "test-model"}

	plan := p.Plan(context.Background(), "q")

	require.Equal(t, "fallback", plan.Strategy)
	require.Len(t, plan.SubQueries, 1)
}

func TestLLMPlanner_DegradesWhenTooFewSubQueries(t *testing.T) {
	client := &fakeChatClient{content: mustJSON(t, rawPlan{SubQueries: []string{"only one"}})}
	p := &LLMPlanner{Client: client, Model: "test-model"}

	plan := p.Plan(context.Background(), "q")

	require.Equal(t, "fallback", plan.Strategy)
}

func TestFallback_EmptyQueryUsesPlaceholder(t *testing.T) {
	plan := fallback("")
	require.Equal(t, "research topic", plan.OriginalQuery)
}
