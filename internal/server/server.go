// Package server exposes the usage store over HTTP: the stats document the
// dashboard polls, ingestion endpoints, and prometheus metrics. Run also
// starts the OTLP gRPC receiver.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nixlim/tooltop/internal/config"
	"github.com/nixlim/tooltop/internal/receiver"
	"github.com/nixlim/tooltop/internal/storage"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	router   *chi.Mux
	logger   *zap.Logger
	cfg      config.ServerConfig
	store    storage.Store
	registry *prometheus.Registry
	metrics  *Metrics
	now      func() time.Time

	receiverOpts []receiver.Option
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithReceiverOptions passes options through to both OTLP receivers.
func WithReceiverOptions(opts ...receiver.Option) Option {
	return func(s *Server) { s.receiverOpts = append(s.receiverOpts, opts...) }
}

func New(cfg config.ServerConfig, store storage.Store, opts ...Option) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		logger:   zap.NewNop(),
		cfg:      cfg,
		store:    store,
		registry: prometheus.NewRegistry(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.RecentLimit < 1 {
		s.cfg.RecentLimit = storage.DefaultRecentLimit
	}
	s.logger = s.logger.Named("server")

	s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s.metrics = NewMetrics(s.registry, func() float64 { return float64(store.DroppedWrites()) })

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/api/stats", s.handleStats)
	r.Post("/api/usage", s.handleUsage)
	r.Method(http.MethodPost, "/v1/logs", s.otlpHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}

func (s *Server) otlpHandler() http.Handler {
	opts := append([]receiver.Option{receiver.WithLogger(s.logger), receiver.WithClock(s.now)}, s.receiverOpts...)
	return receiver.NewHTTPHandler(s.recorder("otlp-http"), opts...)
}

// requestLogger logs each request at debug and feeds the HTTP metrics.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		code := strconv.Itoa(status)

		s.metrics.TotalRequests.WithLabelValues(route, code).Inc()
		s.metrics.RequestDuration.WithLabelValues(route, code).Observe(elapsed.Seconds())

		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves HTTP on cfg.Bind:cfg.HTTPPort and OTLP gRPC on cfg.GRPCPort
// until ctx is cancelled, then shuts both down.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Bind, strconv.Itoa(s.cfg.HTTPPort)))
	if err != nil {
		return fmt.Errorf("listening on http port %d: %w", s.cfg.HTTPPort, err)
	}
	return s.serve(ctx, lis)
}

func (s *Server) serve(ctx context.Context, lis net.Listener) error {
	opts := append([]receiver.Option{receiver.WithLogger(s.logger), receiver.WithClock(s.now)}, s.receiverOpts...)
	grpcRecv := receiver.NewGRPCReceiver(s.cfg.Bind, s.cfg.GRPCPort, s.recorder("grpc"), opts...)
	if err := grpcRecv.Start(ctx); err != nil {
		_ = lis.Close()
		return fmt.Errorf("starting OTLP receiver: %w", err)
	}
	defer grpcRecv.Stop()

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(lis)
	}()
	s.logger.Info("stats server listening", zap.String("addr", lis.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.logger.Info("stats server stopped")
	return nil
}
