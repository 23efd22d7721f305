// Package httpadapter exposes the health endpoint and a REST fallback for
// text-only sessions, used by integrations that cannot hold a WebSocket.
package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tkc-cmd/rxvoice/internal/app/orchestrator"
	"github.com/tkc-cmd/rxvoice/internal/app/session"
	"github.com/tkc-cmd/rxvoice/internal/domain"
)

type Server struct {
	orch *orchestrator.Orchestrator
}

func NewServer(orch *orchestrator.Orchestrator) http.Handler {
	s := &Server{orch: orch}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealth)

	// /sessions → create session (POST)
	mux.HandleFunc("/sessions", s.handleSessions)

	// /sessions/{id}          → GET: state + transcript, DELETE: end
	// /sessions/{id}/messages → POST: send text input
	mux.HandleFunc("/sessions/", s.handleSessionWithID)

	return chainMiddlewares(mux, withLogging, withRequestID, withCORS)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type healthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
}

type createSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

type turnResponse struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionResponse struct {
	ID               string         `json:"id"`
	State            string         `json:"state"`
	IdentityVerified bool           `json:"identity_verified"`
	Closed           bool           `json:"closed"`
	CreatedAt        time.Time      `json:"created_at"`
	Transcript       []turnResponse `json:"transcript"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	State string         `json:"state"`
	Reply *turnResponse  `json:"reply,omitempty"`
	Turns []turnResponse `json:"turns"`
}

// ─────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		ActiveSessions: s.orch.Registry().Count(),
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSession(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := domain.SessionID(parts[0])
	if id == "" {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSession(w, r, id)
		case http.MethodDelete:
			s.handleEndSession(w, r, id)
		default:
			methodNotAllowed(w)
		}
		return
	}

	if len(parts) == 2 && parts[1] == "messages" {
		switch r.Method {
		case http.MethodPost:
			s.handleSendMessage(w, r, id)
		default:
			methodNotAllowed(w)
		}
		return
	}

	http.NotFound(w, r)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
	}

	id, err := s.orch.OnSessionStart(r.Context(), domain.SessionID(req.SessionID))
	if err != nil {
		if errors.Is(err, session.ErrExists) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "session already exists"})
			return
		}
		internalError(w, err)
		return
	}

	snap, err := s.orch.Snapshot(id)
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(snap))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	snap, err := s.orch.Snapshot(id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(snap))
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}

	before := 0
	if snap, err := s.orch.Snapshot(id); err == nil {
		before = len(snap.History)
	}

	if err := s.orch.OnTextInput(id, req.Text); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		internalError(w, err)
		return
	}

	snap, err := s.orch.Snapshot(id)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	turns := toTurnsResponse(snap.History[before:])
	resp := sendMessageResponse{
		State: string(snap.State),
		Turns: turns,
	}
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == string(domain.RoleAssistant) {
			resp.Reply = &turns[i]
			break
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	if err := s.orch.OnSessionEnd(id, "client request"); err != nil {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

func toSessionResponse(snap orchestrator.SessionSnapshot) sessionResponse {
	return sessionResponse{
		ID:               string(snap.ID),
		State:            string(snap.State),
		IdentityVerified: snap.IdentityVerified,
		Closed:           snap.Closed,
		CreatedAt:        snap.CreatedAt,
		Transcript:       toTurnsResponse(snap.History),
	}
}

func toTurnsResponse(turns []domain.ConversationTurn) []turnResponse {
	out := make([]turnResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, turnResponse{
			Role:      string(t.Role),
			Text:      t.Text,
			CreatedAt: t.CreatedAt,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
