// Package httpapi exposes wrapped statistics and token metadata over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"bridge-wrapped/internal/aggregator"
	"bridge-wrapped/internal/metrics"
	"bridge-wrapped/internal/tokens"
)

const (
	maxRequestBodyBytes = 1 << 16
	maxTokenAddresses   = 100
	shutdownTimeout     = 10 * time.Second
)

// StatsService computes wrapped statistics.
type StatsService interface {
	GetWrappedStats(ctx context.Context, address string, year int) (*aggregator.Stats, error)
}

// TokenService resolves token metadata in batches.
type TokenService interface {
	ResolveMany(ctx context.Context, addresses []string) map[string]tokens.Info
}

// Options tune the HTTP API.
type Options struct {
	Addr           string
	DefaultYear    int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	Metrics        *metrics.Collector
}

// Server serves the caller-facing API.
type Server struct {
	stats   StatsService
	tokens  TokenService
	opts    Options
	metrics *metrics.Collector
	logger  zerolog.Logger
}

// NewServer wires the API. tokens may be nil, which disables /api/token-info.
func NewServer(stats StatsService, tokenSvc TokenService, opts Options, logger zerolog.Logger) *Server {
	return &Server{
		stats:   stats,
		tokens:  tokenSvc,
		opts:    opts,
		metrics: opts.Metrics,
		logger:  logger.With().Str("component", "httpapi").Logger(),
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "GET /api/bridge-stats/{address}", "bridge_stats", s.handleBridgeStats)
	s.route(mux, "POST /api/token-info", "token_info", s.handleTokenInfo)
	s.route(mux, "GET /healthz", "healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// ListenAndServe blocks until ctx is cancelled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.opts.Addr).Msg("http api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info().Msg("http api shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON writes v as JSON with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: RequestID(r.Context())})
}
