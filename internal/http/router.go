// Package http exposes the service's REST control plane: session listing,
// per-session filter configuration, and agent speaking transitions.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"voice-interrupt-filter/internal/filter"
	"voice-interrupt-filter/internal/observability"
	"voice-interrupt-filter/internal/service/session"
)

// filterConfigResponse is the wire shape of a session's filter settings.
type filterConfigResponse struct {
	IgnoredPhrases   []string `json:"ignoredPhrases"`
	InterruptPhrases []string `json:"interruptPhrases"`
	MinConfidence    float64  `json:"minConfidence"`
	CaseSensitive    bool     `json:"caseSensitive"`
}

type speakingRequest struct {
	Speaking bool `json:"speaking"`
}

type sessionSummary struct {
	SessionID     string `json:"sessionId"`
	InteractionID string `json:"interactionId"`
	TenantID      string `json:"tenantId"`
	SegmentID     string `json:"segmentId"`
	AgentSpeaking bool   `json:"agentSpeaking"`
	Utterances    int    `json:"utterances"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(manager *session.Manager, ingest http.Handler) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestLogger)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Handle("/stream", ingest)

		r.Get("/sessions", listSessions(manager))
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/filter/config", getFilterConfig(manager))
			r.Put("/filter/config", putFilterConfig(manager))
			r.Post("/speaking", postSpeaking(manager))
		})
	})

	return r
}

func listSessions(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions := manager.List()
		out := make([]sessionSummary, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, sessionSummary{
				SessionID:     s.ID(),
				InteractionID: s.InteractionID(),
				TenantID:      s.TenantID(),
				SegmentID:     s.SegmentID(),
				AgentSpeaking: s.Engine().AgentSpeaking(),
				Utterances:    s.UtteranceCount(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getFilterConfig(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(manager, w, r)
		if !ok {
			return
		}
		cfg := s.Engine().Config()
		writeJSON(w, http.StatusOK, filterConfigResponse{
			IgnoredPhrases:   cfg.IgnoredPhrases,
			InterruptPhrases: cfg.InterruptPhrases,
			MinConfidence:    cfg.MinConfidence,
			CaseSensitive:    cfg.CaseSensitive,
		})
	}
}

// putFilterConfig applies a partial filter update. A concurrent in-flight
// update yields 409 Conflict; the caller retries.
func putFilterConfig(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(manager, w, r)
		if !ok {
			return
		}
		var update filter.ConfigUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed config update: " + err.Error()})
			return
		}
		if update.MinConfidence != nil && (*update.MinConfidence < 0 || *update.MinConfidence > 1) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "minConfidence must be within [0,1]"})
			return
		}
		if !s.Engine().UpdateConfig(update) {
			writeJSON(w, http.StatusConflict, errorResponse{Error: "config update already in progress"})
			return
		}
		cfg := s.Engine().Config()
		writeJSON(w, http.StatusOK, filterConfigResponse{
			IgnoredPhrases:   cfg.IgnoredPhrases,
			InterruptPhrases: cfg.InterruptPhrases,
			MinConfidence:    cfg.MinConfidence,
			CaseSensitive:    cfg.CaseSensitive,
		})
	}
}

func postSpeaking(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(manager, w, r)
		if !ok {
			return
		}
		var req speakingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed speaking request: " + err.Error()})
			return
		}
		s.SetAgentSpeaking(req.Speaking)
		writeJSON(w, http.StatusOK, map[string]bool{"speaking": req.Speaking})
	}
}

func lookup(manager *session.Manager, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	s, ok := manager.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found: " + id})
		return nil, false
	}
	return s, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
