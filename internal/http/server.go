// Package http serves the tax dashboard, its JSON API and the health and
// metrics endpoints.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"taxdash/internal/cache"
	applog "taxdash/internal/log"
	"taxdash/internal/middleware/ratelimit"
	"taxdash/internal/middleware/security"
	"taxdash/internal/middleware/trace"
	"taxdash/internal/store"
	appweb "taxdash/web"
)

// ExportPublisher announces a saved form version for export.
type ExportPublisher interface {
	PublishReportExport(ctx context.Context, key string, version int64) error
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Addr  string
	Forms store.FormStore

	// Optional collaborators.
	Publisher  ExportPublisher
	Pinger     Pinger
	CacheStats func() cache.Stats

	Logger             *applog.Logger
	RateLimitPerMinute int
	CookieSecure       bool
}

type Server struct {
	http.Server
	templates    *template.Template
	forms        store.FormStore
	publisher    ExportPublisher
	pinger       Pinger
	cacheStats   func() cache.Stats
	logger       *applog.Logger
	events       *applog.StructuredLogger
	cookieSecure bool

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	calculations   atomic.Int64
	exportsQueued  atomic.Int64
	exportFailures atomic.Int64
	uptime         time.Time
}

// NewServer configures routes, middleware and templates.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		forms:            opts.Forms,
		publisher:        opts.Publisher,
		pinger:           opts.Pinger,
		cacheStats:       opts.CacheStats,
		logger:           logger,
		events:           applog.NewStructuredLogger(logger),
		cookieSecure:     opts.CookieSecure,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: security.NewDetector(),
	}
	s.appMetrics.uptime = time.Now()
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.WithComponent(applog.ComponentTemplate).Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /calculate", s.handleCalculate)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("GET /report", s.handleReport)
	mux.HandleFunc("POST /api/v1/calculate", s.handleAPICalculate)
	mux.HandleFunc("GET /api/v1/charts", s.handleAPICharts)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please slow down.").Write(w)
	}, http.MethodPost)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	s.Handler = s.traceMiddleware.Middleware(
		s.securityDetector.Middleware(
			headers.Middleware(
				limited(mux))))
	return s
}

// Shutdown stops the rate limiter sweeper and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// log returns the request-scoped logger set by the trace middleware.
func (s *Server) log(ctx context.Context) *applog.Logger {
	return applog.FromContext(ctx).WithComponent(applog.ComponentHTTP)
}
