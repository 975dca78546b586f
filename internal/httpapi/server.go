// Package httpapi exposes the external HTTP/SSE surface (spec.md §6.1): the
// only collaborator-facing interface into the pipeline. Routing is a bare
// net/http.ServeMux, since no example repo in the corpus wires a router
// framework for a surface this narrow.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/answerengine/internal/eventstore"
	"github.com/hyperifyio/answerengine/internal/extract"
	"github.com/hyperifyio/answerengine/internal/model"
	"github.com/hyperifyio/answerengine/internal/parallelsearch"
	"github.com/hyperifyio/answerengine/internal/pipeline"
	"github.com/hyperifyio/answerengine/internal/planner"
	"github.com/hyperifyio/answerengine/internal/search"
	"github.com/hyperifyio/answerengine/internal/synth"
	"github.com/hyperifyio/answerengine/internal/tagger"
)

// preferencesTopK is the number of arms returned by GET /api/preferences.
const preferencesTopK = 5

// Server wires the pipeline's components into the HTTP surface.
type Server struct {
	Planner        planner.Planner
	SearchProvider search.Provider
	PageFetcher    *extract.PageFetcher
	Tagger         tagger.Tagger
	Synthesizer    *synth.Synthesizer
	Events         *eventstore.Store
	WebOrigin      string

	PendingImpressionTTL time.Duration
	Now                  func() time.Time
}

// Handler builds the routed, CORS-wrapped http.Handler for this server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/answer", s.handleAnswer)
	mux.HandleFunc("POST /api/events", s.handlePostEvent)
	mux.HandleFunc("GET /api/events", s.handleGetEvents)
	mux.HandleFunc("GET /api/preferences", s.handleGetPreferences)
	mux.HandleFunc("DELETE /api/preferences", s.handleDeletePreferences)
	mux.HandleFunc("GET /health", s.handleHealth)
	return cors(s.WebOrigin, mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchResponse struct {
	Plan    model.Plan        `json:"plan"`
	Results []model.SearchHit `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing required query parameter: q")
		return
	}

	plan := s.Planner.Plan(r.Context(), q)
	results := parallelsearch.Run(r.Context(), s.SearchProvider, plan, parallelsearch.Options{})
	writeJSON(w, http.StatusOK, searchResponse{Plan: plan, Results: results})
}

type answerRequest struct {
	Query  string      `json:"query"`
	UserID string      `json:"userId"`
	Plan   *model.Plan `json:"plan"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "missing required field: query")
		return
	}

	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	opts := pipeline.Options{
		Planner:              s.Planner,
		SearchProvider:       s.SearchProvider,
		PageFetcher:          s.PageFetcher,
		Tagger:               s.Tagger,
		Synthesizer:          s.Synthesizer,
		Events:               s.Events,
		PendingImpressionTTL: s.PendingImpressionTTL,
		Now:                  s.Now,
	}

	pipeline.Run(r.Context(), req.Query, req.UserID, opts, func(e pipeline.Event) {
		switch e.Type {
		case "progress":
			sse.send("progress", map[string]string{"stage": string(e.Stage)})
		case "chunk":
			sse.send("chunk", map[string]string{"text": e.Chunk})
		case "complete":
			sse.send("complete", e.Answer)
		case "error":
			sse.send("error", map[string]string{"message": e.Err.Error()})
		}
	})
}

func (s *Server) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	var event model.UserEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if event.UserID == "" {
		writeError(w, http.StatusBadRequest, "missing required field: userId")
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock()
	}
	s.Events.AppendEvent(event)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing required query parameter: userId")
		return
	}
	writeJSON(w, http.StatusOK, s.Events.Events(userID))
}

type preferencesResponse struct {
	TopArms           []model.ArmScore `json:"topArms"`
	TotalInteractions int              `json:"totalInteractions"`
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing required query parameter: userId")
		return
	}
	writeJSON(w, http.StatusOK, preferencesResponse{
		TopArms:           s.Events.TopK(userID, preferencesTopK),
		TotalInteractions: s.Events.InteractionCount(userID),
	})
}

func (s *Server) handleDeletePreferences(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing required query parameter: userId")
		return
	}
	s.Events.Reset(userID)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("httpapi: failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
