package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/five82/honeywatch/internal/state"
)

const (
	// sseWriteTimeout bounds a single SSE write so a stalled client cannot
	// pin its handler goroutine past shutdown.
	sseWriteTimeout = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

// StateSource is the read side of state.Store.
type StateSource interface {
	Snapshot() state.SyncState
	Subscribe() <-chan state.SyncState
	Unsubscribe(<-chan state.SyncState)
	Closed() bool
}

// Options configure the status server.
type Options struct {
	Addr    string
	Store   StateSource
	Metrics http.Handler
	// Trigger requests an immediate poll cycle. Nil disables POST /api/refresh.
	Trigger func()
	Logger  *slog.Logger
}

// Server exposes the sync state over HTTP:
//   - GET /healthz: liveness, reports whether the collector is reachable
//   - GET /api/state: current SyncState as JSON
//   - GET /api/events: Server-Sent Events stream of SyncState updates
//   - POST /api/refresh: request an immediate poll cycle
//   - GET /metrics: prometheus metrics
type Server struct {
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// New creates a Server. It does not listen until Start is called.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{opts: opts, logger: logger}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/events", s.handleEvents)
		if s.opts.Trigger != nil {
			r.Post("/refresh", s.handleRefresh)
		}
	})
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}
	return r
}

// Start binds the listener synchronously and serves in the background until
// ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s.opts.Store == nil {
		return errors.New("server: store is required")
	}
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind status server to %s: %w", s.opts.Addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	s.mu.Lock()
	s.httpServer = srv
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("status server shutdown error", "error", err)
		}
	}()

	s.logger.Info("status server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

type healthResponse struct {
	Status         string `json:"status"`
	ActiveEndpoint string `json:"active_endpoint,omitempty"`
	LastUpdate     string `json:"last_update,omitempty"`
	Error          string `json:"error,omitempty"`
}

// handleHealth always answers 200 while the process runs; the body reports
// whether the collector is currently reachable.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.opts.Store.Snapshot()
	resp := healthResponse{
		Status:         "ok",
		ActiveEndpoint: snap.ActiveEndpoint,
		Error:          snap.ErrorMessage,
	}
	switch {
	case snap.Loading:
		resp.Status = "loading"
	case snap.ErrorMessage != "":
		resp.Status = "degraded"
	}
	if snap.HasData() {
		resp.LastUpdate = snap.LastUpdate.UTC().Format(time.RFC3339Nano)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.opts.Store.Snapshot())
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.opts.Trigger()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh requested"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}
	if s.opts.Store.Closed() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	rc := http.NewResponseController(w)
	deadlinesSupported := true

	send := func(snap state.SyncState) error {
		data, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				deadlinesSupported = false
			}
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.opts.Store.Subscribe()
	defer s.opts.Store.Unsubscribe(ch)

	if err := send(s.opts.Store.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if err := send(snap); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
