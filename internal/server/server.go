// Package server exposes the query pipeline over HTTP. Each request is
// independent: one slow or failed generation call never affects another.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"ragbot/internal/config"
	"ragbot/internal/observability"
	"ragbot/internal/rag"
	"ragbot/internal/vector"
)

// Answerer is the single operation the transport layer needs from the core.
type Answerer interface {
	Answer(ctx context.Context, question string) (rag.Answer, error)
}

// Server serves the /ask endpoint plus health probes.
type Server struct {
	svc  Answerer
	repo vector.Repository
	cfg  config.ServerConfig
}

// New creates a server around the query service. repo is only used for the
// health probe and may be nil in tests.
func New(svc Answerer, repo vector.Repository, cfg config.ServerConfig) *Server {
	return &Server{svc: svc, repo: repo, cfg: cfg}
}

type askRequest struct {
	Question string `json:"question"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the HTTP handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	return s.cors(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.cfg.Addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	ctx, span := observability.StartSpan(r.Context(), "ask")

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.EndSpan(span, err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		observability.EndSpan(span, nil)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question is required"})
		return
	}

	answer, err := s.svc.Answer(ctx, req.Question)
	observability.EndSpan(span, err)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, context.Canceled) {
			status = 499 // client closed request
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	type health struct {
		Status  string `json:"status"`
		Entries int    `json:"entries,omitempty"`
		Message string `json:"message,omitempty"`
	}

	if s.repo == nil {
		writeJSON(w, http.StatusOK, health{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	n, err := s.repo.Count(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, health{Status: "unhealthy", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, health{Status: "ok", Entries: n})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "ragbot up. POST /ask {question}",
	})
}

// cors applies the configured allowed origins; an empty list allows any
// origin, matching a private deployment behind its own perimeter.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.cfg.CORSOrigins) > 0 {
			origin = ""
			for _, o := range s.cfg.CORSOrigins {
				if o == r.Header.Get("Origin") {
					origin = o
					break
				}
			}
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
