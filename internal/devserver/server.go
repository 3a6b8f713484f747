// Package devserver is a local stand-in for the onboarding backend. It serves
// the same four endpoints the client calls, backed by the sqlite store and a
// deterministic preview generator.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/g960059/exile-onboard/internal/appclient"
	"github.com/g960059/exile-onboard/internal/config"
	"github.com/g960059/exile-onboard/internal/db"
	"github.com/g960059/exile-onboard/internal/metrics"
)

const maxBodyBytes = 1 << 20

type Server struct {
	cfg      config.Config
	store    *db.Store
	logger   *slog.Logger
	registry *prometheus.Registry
	requests *metrics.HTTPMetrics
	handler  http.Handler
	httpSrv  *http.Server
	newID    func() string
	now      func() time.Time

	mu          sync.Mutex
	listener    net.Listener
	shutdown    sync.Once
	shutdownErr error
}

func NewServer(cfg config.Config, store *db.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	reg := prometheus.NewRegistry()
	s := &Server{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		registry: reg,
		requests: metrics.NewHTTPMetrics(reg),
		newID:    uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
	}
	reg.MustRegister(metrics.NewStoreCollector(store, logger))

	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.writeDetail(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.healthHandler)
	r.Handle("/metrics", metrics.Handler(reg))
	r.Route("/api/onboard", func(r chi.Router) {
		r.Get("/characters", s.charactersHandler)
		r.Post("/run", s.createRunHandler)
		r.Get("/run/{runID}", s.getRunHandler)
		r.Post("/interest", s.interestHandler)
	})

	s.handler = r
	s.httpSrv = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr reports the bound address once Start is listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.DevAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.DevAddr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("dev backend listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			_ = s.Shutdown(context.Background())
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdown.Do(func() {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.shutdownErr = fmt.Errorf("shutdown http: %w", err)
		}
		s.mu.Lock()
		s.listener = nil
		s.mu.Unlock()
	})
	return s.shutdownErr
}

// requestID echoes the caller's request id, minting one when absent.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(appclient.RequestIDHeader))
		if id == "" {
			id = s.newID()
		}
		w.Header().Set(appclient.RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		s.requests.Observe(r.Method, route, status)
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"request_id", w.Header().Get(appclient.RequestIDHeader),
			"duration", time.Since(start),
		)
	})
}
