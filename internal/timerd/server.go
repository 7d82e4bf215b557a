package timerd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/workclock/workclock/internal/model"
	"github.com/workclock/workclock/internal/timer"
)

// Authority is the subset of the timer authority the daemon exposes.
type Authority interface {
	Start(ctx context.Context, req timer.StartRequest) error
	Pause(ctx context.Context) error
	Clear(ctx context.Context) error
	Status(ctx context.Context) (timer.StatusReply, error)
	SettingsUpdated(ctx context.Context, s model.Settings) error
}

// Server exposes the timer authority to observer processes over a
// loopback HTTP endpoint. Bind it to localhost only.
type Server struct {
	authority Authority
	httpSrv   *http.Server
}

// NewServer returns a server bound to addr but not yet listening.
func NewServer(addr string, authority Authority) *Server {
	s := &Server{authority: authority}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the route table, exported so tests can drive the server
// without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/timer/start", s.handleStart)
	mux.HandleFunc("/api/timer/pause", s.handlePause)
	mux.HandleFunc("/api/timer/clear", s.handleClear)
	mux.HandleFunc("/api/timer/status", s.handleStatus)
	mux.HandleFunc("/api/settings/updated", s.handleSettingsUpdated)
	return mux
}

// ListenAndServe serves requests until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req timer.StartRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.authority.Start(r.Context(), req); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "started"})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.authority.Pause(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "paused"})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.authority.Clear(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "cleared"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	reply, err := s.authority.Status(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, reply)
}

func (s *Server) handleSettingsUpdated(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var settings model.Settings
	if err := decodeBody(w, r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.authority.SettingsUpdated(r.Context(), settings); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// decodeBody parses an optional JSON body. An empty body leaves v as its
// zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading request body: %w", err)
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, timer.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrInvalidState):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}); err != nil {
		log.Printf("timerd: encoding error response: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("timerd: encoding response: %v", err)
	}
}
