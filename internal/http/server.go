package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"milkledger/internal/ledger"
	"milkledger/internal/log"
	"milkledger/internal/metrics"
	"milkledger/internal/middleware/ratelimit"
	"milkledger/internal/middleware/security"
	"milkledger/internal/middleware/trace"
)

const defaultReportCacheSize = 128

// Options tunes a Server. The zero value is usable.
type Options struct {
	Logger             *log.Logger
	RateLimitPerMinute int
	ReportCacheSize    int
	// Ready overrides the readiness probe, which by default loads the ledger.
	Ready func(ctx context.Context) error
}

// Server wraps http.Server with the ledger routes and its middleware state.
type Server struct {
	http.Server
	store    *ledger.Store
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	reports  *lru.Cache[string, renderedReport]
	ready    func(ctx context.Context) error
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, store *ledger.Store, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}
	size := opts.ReportCacheSize
	if size <= 0 {
		size = defaultReportCacheSize
	}
	// lru.New only fails for a non-positive size.
	reports, _ := lru.New[string, renderedReport](size)

	s := &Server{
		store:    store,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(),
		reports:  reports,
		ready:    opts.Ready,
		started:  time.Now(),
	}
	if s.ready == nil {
		s.ready = func(ctx context.Context) error {
			_, err := store.List(ctx)
			return err
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/records", s.handleListRecords)
	mux.Handle("POST /api/records", s.limited(s.handleCreateRecord))
	mux.Handle("PUT /api/records/{index}", s.limited(s.handleUpdateRecord))
	mux.Handle("DELETE /api/records/{index}", s.limited(s.handleDeleteRecord))
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /api/price", s.handlePrice)

	var handler http.Handler = mux
	handler = trace.NewMiddleware(logger, s.detector.ClientIP).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// limited applies the per-client rate limit to a mutating handler.
func (s *Server) limited(h http.HandlerFunc) http.Handler {
	return s.limiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		metrics.RateLimitedTotal.Inc()
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		ErrorResponse(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
	})(h)
}

// Shutdown stops background cleanup and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
