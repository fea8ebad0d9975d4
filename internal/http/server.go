// Package http serves the FinWise dashboard: server-rendered pages with htmx
// partials, a small JSON API over the same ledger, and the ops endpoints.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"finwise/internal/cache"
	"finwise/internal/core"
	applog "finwise/internal/log"
	"finwise/internal/middleware/ratelimit"
	"finwise/internal/middleware/security"
	"finwise/internal/middleware/trace"
	"finwise/internal/services"
	appweb "finwise/web"
)

// ReadinessCheck probes a dependency for /readyz.
type ReadinessCheck func(ctx context.Context) error

// Options configures NewServer. Service is required.
type Options struct {
	Addr               string
	Service            *services.TransactionService
	Logger             *applog.Logger
	CacheSize          int
	CacheTTL           time.Duration
	RateLimitPerMinute int
	ReadinessChecks    map[string]ReadinessCheck

	// Now defaults to time.Now; the summary cards cover its month.
	Now func() time.Time
	// TemplatesFS and StaticFS default to the embedded web assets.
	TemplatesFS fs.FS
	StaticFS    fs.FS
}

type Server struct {
	http.Server
	templates *template.Template
	svc       *services.TransactionService
	logger    *applog.Logger
	events    *applog.StructuredLogger
	now       func() time.Time

	summaryMemo  *cache.Memo[core.Summary]
	monthsMemo   *cache.Memo[[]core.MonthView]
	cacheManager *cache.Manager

	rateLimiter     *ratelimit.Limiter
	traceMiddleware *trace.Middleware
	clientIP        *security.ClientIPResolver
	readiness       map[string]ReadinessCheck

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime            time.Time
	transactionsAdded atomic.Int64
	paidToggles       atomic.Int64
	validationErrors  atomic.Int64
}

// NewServer configures routes and templates, returning a ready-to-run
// server. Template parse errors are logged; / then answers 500 and /readyz
// reports not ready.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}
	if opts.TemplatesFS == nil {
		opts.TemplatesFS = appweb.TemplatesFS
	}
	if opts.StaticFS == nil {
		opts.StaticFS = appweb.StaticFS
	}

	s := &Server{
		svc:          opts.Service,
		logger:       logger,
		events:       applog.NewStructuredLogger(logger),
		now:          opts.Now,
		summaryMemo:  cache.NewMemo[core.Summary](opts.CacheSize, opts.CacheTTL),
		monthsMemo:   cache.NewMemo[[]core.MonthView](opts.CacheSize, opts.CacheTTL),
		cacheManager: cache.NewManager(),
		rateLimiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		clientIP:     security.NewClientIPResolver(),
		readiness:    opts.ReadinessChecks,
		appMetrics:   &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.clientIP.ExtractClientIP, s.events)

	s.cacheManager.Register(s.summaryMemo)
	s.cacheManager.Register(s.monthsMemo)
	if opts.CacheTTL > 0 {
		s.cacheManager.StartCleanup(opts.CacheTTL)
	}

	t, err := template.New("finwise").Funcs(templateFuncs).ParseFS(opts.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", applog.FieldError, err)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()

	if sub, err := fs.Sub(opts.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount static FS", applog.FieldError, err)
	}

	limited := s.rateLimiter.Middleware(s.clientIP.ExtractClientIP, s.handleRateLimited)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/summary", s.handleSummaryPartial)
	mux.HandleFunc("GET /ui/months", s.handleMonthsPartial)
	mux.Handle("POST /transactions", limited(http.HandlerFunc(s.handleCreateTransaction)))
	mux.Handle("POST /transactions/{id}/toggle-paid", limited(http.HandlerFunc(s.handleTogglePaid)))

	mux.HandleFunc("GET /api/transactions", s.handleAPITransactions)
	mux.HandleFunc("GET /api/summary", s.handleAPISummary)
	mux.HandleFunc("GET /api/months", s.handleAPIMonths)
	mux.HandleFunc("GET /api/categories", s.handleAPICategories)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = mux
	handler = headers.Middleware(handler)
	handler = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = applog.Middleware(logger)(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.clientIP.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	if wantsJSON(r) {
		writeJSON(w, http.StatusTooManyRequests, errorJSON{Error: "rate limit exceeded"})
		return
	}
	ErrorResponse(http.StatusTooManyRequests, "Muitas requisições. Tente novamente em instantes.").Write(w)
}

// summaryAt returns the summary of ref's month for the current ledger
// version.
func (s *Server) summaryAt(ref time.Time) core.Summary {
	txs, version := s.svc.Snapshot()
	key := core.MonthKeyOf(ref).String() + "@" + ref.Location().String()
	return s.summaryMemo.Get(version, key, func() core.Summary {
		return core.CurrentMonthSummary(txs, ref)
	})
}

// monthViews returns the grouped list for the current ledger version. The
// result is shared and must not be modified.
func (s *Server) monthViews(showPaid bool) []core.MonthView {
	txs, version := s.svc.Snapshot()
	key := "months:hidden"
	if showPaid {
		key = "months:all"
	}
	return s.monthsMemo.Get(version, key, func() []core.MonthView {
		return core.BuildMonthViews(txs, showPaid)
	})
}
