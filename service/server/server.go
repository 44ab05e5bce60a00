package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/FlipZ3ro/superswapui/service/catalog"
	"github.com/FlipZ3ro/superswapui/service/metrics"
	"github.com/FlipZ3ro/superswapui/service/pool"
	"github.com/FlipZ3ro/superswapui/service/quote"
	"github.com/FlipZ3ro/superswapui/service/swap"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server for the swap service.
type Server struct {
	addr         string
	cache        *catalog.Cache
	pricer       quote.Pricer
	orchestrator *pool.Orchestrator
	executor     *swap.Executor
	metrics      *metrics.Metrics
	logger       *slog.Logger
	server       *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The orchestrator and executor are optional - if nil, the pool-creation and
// swap endpoints won't be available (no signing wallet configured).
// The metrics is optional - if nil, the metrics endpoint won't be available.
func New(addr string, cache *catalog.Cache, pricer quote.Pricer, orchestrator *pool.Orchestrator, executor *swap.Executor, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:         addr,
		cache:        cache,
		pricer:       pricer,
		orchestrator: orchestrator,
		executor:     executor,
		metrics:      m,
		logger:       logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	withMetrics := func(name string, h http.Handler) http.Handler {
		return metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
	}

	// Asset directory routes
	mux.Handle("GET /api/v1/tokens", withMetrics("/api/v1/tokens", handleListTokens(s.cache, s.logger)))

	// Quote route
	mux.Handle("GET /api/v1/quote", withMetrics("/api/v1/quote", handleGetQuote(s.cache, s.pricer, s.logger)))

	// Pool routes (if a signing wallet is configured)
	if s.orchestrator != nil {
		mux.Handle("GET /api/v1/pools/{mintX}/{mintY}", withMetrics("/api/v1/pools/derive", handleGetPool(s.orchestrator, s.logger)))
		mux.Handle("POST /api/v1/pools", withMetrics("/api/v1/pools", handleCreatePool(s.orchestrator, s.logger)))
		s.logger.Info("pool endpoints enabled")
	} else {
		s.logger.Warn("no wallet configured, pool endpoints disabled")
	}

	// Swap route (if a signing wallet is configured)
	if s.executor != nil {
		mux.Handle("POST /api/v1/swaps", withMetrics("/api/v1/swaps", handleExecuteSwap(s.cache, s.pricer, s.executor, s.logger)))
		s.logger.Info("swap endpoint enabled")
	} else {
		s.logger.Warn("no wallet configured, swap endpoint disabled")
	}

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	// Wrap mux with CORS middleware
	handler := corsMiddleware(mux)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
