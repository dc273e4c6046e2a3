// Package api exposes the watched orders over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/julianstephens/dietline/internal/logger"
	"github.com/julianstephens/dietline/internal/order"
)

const shutdownTimeout = 5 * time.Second

// Fleet is the set of orders the server reports on.
type Fleet interface {
	Snapshots() []order.Snapshot
	Snapshot(id string) (order.Snapshot, bool)
	Cancel(ctx context.Context, id string) (order.Snapshot, error)
}

type Handler struct {
	fleet Fleet
}

func NewHandler(f Fleet) *Handler {
	return &Handler{fleet: f}
}

// Router builds the chi router with every route mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", h.Health)
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}/status", h.Status)
		r.Post("/{id}/cancel", h.Cancel)
	})
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"orders": h.fleet.Snapshots()})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, ok := h.fleet.Snapshot(id)
	if !ok {
		writeProblem(w, http.StatusNotFound, "not_found", "order "+id+" is not being watched")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := h.fleet.Cancel(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, snap)
	case errors.Is(err, order.ErrUnknownOrder):
		writeProblem(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, order.ErrAlreadyCompleted),
		errors.Is(err, order.ErrCancelInFlight),
		errors.Is(err, order.ErrNotLoaded):
		writeProblem(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, order.ErrCommand):
		writeProblem(w, http.StatusBadGateway, "command_failed", err.Error())
	default:
		writeProblem(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

// Server serves the router until its context ends.
type Server struct {
	srv *http.Server
}

func NewServer(addr string, f Fleet) *Server {
	return &Server{srv: &http.Server{
		Addr:         addr,
		Handler:      NewHandler(f).Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}}
}

// Serve accepts connections on ln until ctx ends, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	logger.Info("HTTP API listening", "addr", ln.Addr().String())
	return s.Serve(ctx, ln)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProblem writes a simplified RFC 7807 problem document.
func writeProblem(w http.ResponseWriter, code int, typ, detail string) {
	writeJSON(w, code, map[string]any{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}
