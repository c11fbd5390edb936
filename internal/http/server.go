// Package http exposes the fee store over a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"feetax/internal/log"
	"feetax/internal/metrics"
	"feetax/internal/middleware/ratelimit"
	"feetax/internal/middleware/security"
	"feetax/internal/middleware/trace"
	"feetax/internal/services"
)

// ReadyFunc reports whether dependencies are usable.
type ReadyFunc func(ctx context.Context) error

// Options configures NewServer. Only Service is required.
type Options struct {
	Service        *services.FeeService
	Logger         *log.Logger
	Metrics        *metrics.Metrics
	Limiter        *ratelimit.Limiter
	Ready          ReadyFunc
	MaxUploadBytes int64
}

type Server struct {
	http.Server
	svc       *services.FeeService
	logger    *log.Logger
	metrics   *metrics.Metrics
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	ready     ReadyFunc
	maxUpload int64
}

func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		svc:       opts.Service,
		logger:    logger.WithComponent(log.ComponentHTTP),
		metrics:   opts.Metrics,
		limiter:   opts.Limiter,
		detector:  security.NewDetector(logger),
		ready:     opts.Ready,
		maxUpload: opts.MaxUploadBytes,
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	if s.maxUpload <= 0 {
		s.maxUpload = 10 << 20
	}

	mux := http.NewServeMux()
	s.route(mux, "GET /healthz", handleHealth)
	s.route(mux, "GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.route(mux, "POST /api/upload", s.handleUpload)
	s.route(mux, "POST /api/import/sheets", s.handleImportSheets)
	s.route(mux, "GET /api/records", s.handleListRecords)
	s.route(mux, "DELETE /api/records", s.handleClear)
	s.route(mux, "POST /api/process", s.handleProcess)
	s.route(mux, "GET /api/summary", s.handleSummary)
	s.route(mux, "GET /api/export", s.handleExport)
	s.route(mux, "GET /api/settings", s.handleGetSettings)
	s.route(mux, "PATCH /api/settings", s.handleUpdateSettings)
	s.route(mux, "GET /api/ui", s.handleGetUI)
	s.route(mux, "POST /api/ui/analytics", s.handleToggleAnalytics)
	s.route(mux, "POST /api/ui/settings", s.handleToggleSettings)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ClientIP, rateLimited)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = trace.NewMiddleware(logger, s.detector.ClientIP).Middleware(h)
	s.Handler = h
	return s
}

func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	var handler http.Handler = h
	if s.metrics != nil {
		handler = s.metrics.Middleware(pattern, handler)
	}
	mux.Handle(pattern, handler)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, retry in a minute"})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
