// Package control is the operator's HTTP surface: join, leave, transition,
// session listing, health, event streaming, and warm-pool dispatch. Every
// mutating endpoint sits behind the shared-secret gate.
package control

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/wispworks/wisp/api"
	"github.com/wispworks/wisp/config"
	"github.com/wispworks/wisp/events"
	"github.com/wispworks/wisp/pkg/slogx"
)

// Orchestrator is the session-lifecycle surface the server drives. The
// supervisor implements it.
type Orchestrator interface {
	StartSession(ctx context.Context, req api.JoinRequest) (api.JoinResponse, error)
	Transition(ctx context.Context, sessionID string, req api.TransitionRequest) (api.JoinResponse, error)
	Teardown(ctx context.Context, sessionID, reason string) (string, error)
	LeaveRoom(ctx context.Context, roomURL string) (api.LeaveResponse, error)
	Sessions() []api.SessionSummary
	Health() api.HealthResponse
}

// Server serves the control plane.
type Server struct {
	cfg config.Config
	orc Orchestrator
	bus events.Bus
	log *slog.Logger
}

// NewServer assembles the control plane over an orchestrator and bus.
func NewServer(cfg config.Config, orc Orchestrator, bus events.Bus, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg: cfg,
		orc: orc,
		bus: bus,
		log: logger.With(slogx.LoggerName("wisp.control")),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /join", s.requireAuth(http.HandlerFunc(s.handleJoin)))
	mux.Handle("POST /leave", s.requireAuth(http.HandlerFunc(s.handleLeave)))
	mux.Handle("POST /sessions/{id}/transition", s.requireAuth(http.HandlerFunc(s.handleTransition)))
	mux.Handle("POST /sessions/{id}/leave", s.requireAuth(http.HandlerFunc(s.handleSessionLeave)))
	mux.Handle("GET /sessions", s.requireAuth(http.HandlerFunc(s.handleSessions)))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /events", s.requireAuth(http.HandlerFunc(s.handleEvents)))
	mux.Handle("GET /ws/events", s.requireAuth(http.HandlerFunc(s.handleWSEvents)))
	return mux
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req api.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if req.RoomURL == "" {
		writeError(w, http.StatusUnprocessableEntity, "room_url is required")
		return
	}

	resp, err := s.orc.StartSession(r.Context(), req)
	switch {
	case errors.Is(err, api.ErrRoomBusy):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.log.Error("join failed", slogx.Error(err), slogx.Room(req.RoomURL))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	var req api.LeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if req.RoomURL == "" {
		writeError(w, http.StatusUnprocessableEntity, "room_url is required")
		return
	}

	resp, err := s.orc.LeaveRoom(r.Context(), req.RoomURL)
	if err != nil {
		s.log.Error("leave failed", slogx.Error(err), slogx.Room(req.RoomURL))
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req api.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if req.NewRoomURL == "" {
		writeError(w, http.StatusUnprocessableEntity, "new_room_url is required")
		return
	}

	resp, err := s.orc.Transition(r.Context(), r.PathValue("id"), req)
	switch {
	case errors.Is(err, api.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, api.ErrRoomBusy):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.log.Error("transition failed", slogx.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleSessionLeave(w http.ResponseWriter, r *http.Request) {
	status, err := s.orc.Teardown(r.Context(), r.PathValue("id"), "leave")
	switch {
	case errors.Is(err, api.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		s.log.Error("session leave failed", slogx.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": status})
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.orc.Sessions())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.orc.Health())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
