// Package server exposes the HTTP/JSON surface: registry operations for
// agent hooks and dashboards, the live-update stream, and the static
// dashboard assets, all behind the access gate.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ncr5012/executive/internal/api"
	"github.com/ncr5012/executive/internal/events"
	"github.com/ncr5012/executive/internal/gate"
	"github.com/ncr5012/executive/internal/registry"
)

type Config struct {
	// PublicDir holds the dashboard's static assets; empty disables
	// static serving.
	PublicDir string
	// ManualTasks enables dashboard-created tasks.
	ManualTasks bool
}

type Server struct {
	registry *registry.Registry
	broker   *events.Broker
	gate     *gate.Gate
	cfg      Config
}

func NewServer(reg *registry.Registry, br *events.Broker, g *gate.Gate, cfg Config) *Server {
	return &Server{registry: reg, broker: br, gate: g, cfg: cfg}
}

// Handler builds the routed handler with the gate applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/complete", s.handleComplete)
	mux.HandleFunc("POST /api/resume", s.handleResume)
	mux.HandleFunc("POST /api/autopilot", s.handleAutopilot)
	mux.HandleFunc("PATCH /api/tasks/{id}", s.handlePatchTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.handleDeleteTask)
	mux.HandleFunc("POST /api/tasks/manual", s.handleCreateManual)
	if s.gate.SessionsEnabled() {
		mux.HandleFunc("POST /api/login", s.handleLogin)
		mux.HandleFunc("POST /api/logout", s.handleLogout)
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.cfg.PublicDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.cfg.PublicDir)))
	}
	return s.withGate(mux)
}

// withGate rejects requests that pass no policy: API paths get a 401 JSON
// body, page paths are redirected to the login surface when sessions are
// enabled. The health check, the login surface, and — in the shared-secret
// deployment — static pages stay open.
func (s *Server) withGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.open(r) || s.gate.Authorize(r) {
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		http.Redirect(w, r, "/login.html", http.StatusFound)
	})
}

func (s *Server) open(r *http.Request) bool {
	switch {
	case r.URL.Path == "/healthz":
		return true
	case s.gate.SessionsEnabled() && r.URL.Path == "/login.html":
		return true
	case s.gate.SessionsEnabled() && r.Method == http.MethodPost && r.URL.Path == "/api/login":
		return true
	case !s.gate.SessionsEnabled() && !strings.HasPrefix(r.URL.Path, "/api/"):
		// Without password sessions there is no login surface; pages are
		// served openly and only the API is gated.
		return true
	}
	return false
}

// handleEvents holds the connection open and streams registry mutations as
// server-sent events until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx proxy support

	ch, unsub := s.broker.Subscribe()
	defer unsub()

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
			flusher.Flush()
		}
	}
}

func (s *Server) handleListTasks(w http.ResponseWriter, _ *http.Request) {
	doc, err := s.registry.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	taskID, resumed, err := s.registry.Register(req.SessionID, req.Machine, req.Cwd)
	if errors.Is(err, registry.ErrValidation) {
		writeError(w, http.StatusBadRequest, "sessionId required")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}
	writeJSON(w, http.StatusOK, api.RegisterResponse{TaskID: taskID, Resumed: resumed})
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.registry.Complete)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.registry.Resume)
}

// handleTransition covers the shared complete/resume contract: a bare
// taskId body, 400 when it is missing, 404 when unknown, success otherwise.
func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request, op func(string) error) {
	var req api.TaskRef
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	err := op(req.TaskID)
	switch {
	case errors.Is(err, registry.ErrValidation):
		writeError(w, http.StatusBadRequest, "taskId required")
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to update task")
	default:
		writeJSON(w, http.StatusOK, api.SuccessResponse{Success: true})
	}
}

// handleAutopilot never reports an error: malformed bodies and unknown ids
// all answer allow=false.
func (s *Server) handleAutopilot(w http.ResponseWriter, r *http.Request) {
	var req api.AutopilotRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	allow := s.registry.CheckAutopilot(req.TaskID, req.Check)
	writeJSON(w, http.StatusOK, api.AutopilotResponse{Allow: allow})
}

func (s *Server) handleCreateManual(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.ManualTasks {
		// The route exists regardless of the feature flag so that the mux
		// does not answer 405 off the sibling /api/tasks/{id} methods.
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	var req api.ManualTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	task, err := s.registry.CreateManual(req.Title)
	if errors.Is(err, registry.ErrValidation) {
		writeError(w, http.StatusBadRequest, "title required")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handlePatchTask(w http.ResponseWriter, r *http.Request) {
	var patch api.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	task, err := s.registry.Patch(r.PathValue("id"), patch)
	if errors.Is(err, registry.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}
	writeJSON(w, http.StatusOK, api.SuccessResponse{Success: true})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	token, err := s.gate.Login(req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	cookie, err := s.gate.IssueCookie(token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue session")
		return
	}
	http.SetCookie(w, cookie)
	writeJSON(w, http.StatusOK, api.SuccessResponse{Success: true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, s.gate.Logout(r))
	writeJSON(w, http.StatusOK, api.SuccessResponse{Success: true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, api.ErrorResponse{Error: msg})
}
