// Command llm-stub is a local OpenAI-compatible stand-in for the planner's,
// tagger's, and synthesizer's chat completion calls, so the pipeline can be
// exercised end to end without a real upstream API key.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

func main() {
	model := envOr("MODEL_ID", "test-model")
	addr := envOr("ADDR", ":8081")

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", handleModels(model))
	mux.HandleFunc("/v1/chat/completions", handleChatCompletions)

	log.Printf("llm-stub listening on %s (model=%s)", addr, model)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func handleModels(model string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	}
}

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}
	sys := ""
	if len(req.Messages) > 0 {
		sys = req.Messages[0].Content
	}
	user := ""
	if len(req.Messages) > 1 {
		user = req.Messages[1].Content
	}

	content, ok := dispatch(sys, user)
	if !ok {
		http.Error(w, "unexpected system prompt", http.StatusBadRequest)
		return
	}

	if req.Stream {
		streamCompletion(w, content)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
}

func dispatch(sys, user string) (string, bool) {
	switch {
	case strings.Contains(sys, "search query planning assistant"):
		return plannerResponse(user), true
	case strings.Contains(sys, "classify a web page's content style"):
		return taggerResponse(), true
	case strings.Contains(sys, "research answer assistant"):
		return synthesisResponse(user), true
	default:
		return "", false
	}
}

func plannerResponse(query string) string {
	b, _ := json.Marshal(map[string]any{
		"subQueries": []string{
			query + " overview",
			query + " details",
			query + " examples",
		},
	})
	return string(b)
}

func taggerResponse() string {
	b, _ := json.Marshal(map[string]string{
		"depth":    "intermediate",
		"style":    "journalistic",
		"format":   "reference",
		"approach": "practical",
		"density":  "moderate",
	})
	return string(b)
}

// synthesisResponse cites every numbered source block it finds in the user
// prompt, in source order, so the stub's output always passes citation
// validation.
func synthesisResponse(user string) string {
	n := 0
	for strings.Contains(user, "\n"+strconv.Itoa(n+1)+". ") {
		n++
	}
	if n == 0 {
		n = 1
	}
	var sb strings.Builder
	sb.WriteString("Summary drawing on the provided sources.\n\n")
	for i := 1; i <= n; i++ {
		sb.WriteString("Supporting point from source " + strconv.Itoa(i) + " [" + strconv.Itoa(i) + "].\n")
	}
	return sb.String()
}

// streamCompletion emits the content as OpenAI-style SSE chunks terminated
// by "data: [DONE]", splitting on whitespace so callers exercise their
// chunk-accumulation logic rather than receiving one giant frame.
func streamCompletion(w http.ResponseWriter, content string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	words := strings.SplitAfter(content, " ")
	for _, word := range words {
		chunk := map[string]any{
			"choices": []map[string]any{
				{"delta": map[string]string{"content": word}},
			},
		}
		b, _ := json.Marshal(chunk)
		fmt.Fprintf(w, "data: %s\n\n", b)
		flusher.Flush()
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}
