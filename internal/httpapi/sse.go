package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// sseWriter frames JSON payloads as Server-Sent Events, each a single
// "data: {type, data}\n\n" frame per spec.md §6.1.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseWriter{w: w, flusher: flusher}, true
}

type sseFrame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (s *sseWriter) send(eventType string, data any) {
	b, err := json.Marshal(sseFrame{Type: eventType, Data: data})
	if err != nil {
		log.Error().Err(err).Str("eventType", eventType).Msg("httpapi: failed to marshal SSE payload")
		return
	}
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return
	}
	if _, err := s.w.Write(b); err != nil {
		return
	}
	if _, err := s.w.Write([]byte("\n\n")); err != nil {
		return
	}
	s.flusher.Flush()
}
