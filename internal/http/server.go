// Package http exposes the chat, expense and statistics operations as a JSON
// API.
package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"jizhang/internal/core"
	"jizhang/internal/log"
	"jizhang/internal/middleware/ratelimit"
	"jizhang/internal/middleware/security"
	"jizhang/internal/middleware/trace"
	"jizhang/internal/services"
)

type (
	// ChatAPI is the conversation side used by the handlers.
	ChatAPI interface {
		Submit(ctx context.Context, text string) (services.ChatReply, error)
		History(ctx context.Context, limit int) ([]core.ChatMessage, error)
		ClearHistory(ctx context.Context) error
		RecentExpenses(ctx context.Context, limit int) ([]core.ExpenseRecord, error)
		GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error)
		DeleteExpense(ctx context.Context, id string) error
		ClearAll(ctx context.Context) error
	}

	// StatsAPI serves the aggregated views.
	StatsAPI interface {
		Report(ctx context.Context, period, from, to string) (services.Report, error)
		Dashboard(ctx context.Context) (services.Dashboard, error)
		CategoryDetail(ctx context.Context, category, period, from, to string, limit int) (services.CategoryDetail, error)
	}

	// Pinger reports whether the store is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

type Server struct {
	http.Server
	chat   ChatAPI
	stats  StatsAPI
	pinger Pinger
	logger *log.Logger

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	startedAt   time.Time
	submissions atomic.Int64
	recorded    atomic.Int64

	shutdownOnce sync.Once
}

// Options tunes NewServer. The zero value uses the defaults.
type Options struct {
	RateLimit ratelimit.Config
	Headers   *security.HeadersConfig
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, chat ChatAPI, stats StatsAPI, pinger Pinger, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	headers := security.DefaultHeadersConfig()
	if opts.Headers != nil {
		headers = *opts.Headers
	}

	s := &Server{
		chat:        chat,
		stats:       stats,
		pinger:      pinger,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: ratelimit.NewLimiter(opts.RateLimit),
		detector:    security.NewDetector(),
		startedAt:   time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/messages", s.handleListMessages)
	mux.HandleFunc("DELETE /api/messages", s.handleClearMessages)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("DELETE /api/expenses", s.handleClearAll)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/stats/categories/{category}", s.handleCategoryDetail)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, isMutation, s.onRateLimited)(mux)
	var handler http.Handler = security.NewHeadersMiddleware(headers).Middleware(limited)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Chat requests wait on the inference provider.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// isMutation selects the requests counted by the rate limiter.
func isMutation(r *http.Request) bool {
	return r.Method == http.MethodPost || r.Method == http.MethodDelete
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
