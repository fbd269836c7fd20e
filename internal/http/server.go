// Package http serves the JSON API: authentication, categories,
// transactions and the analytics dashboard.
package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/cors"

	"fintrack/internal/analytics"
	"fintrack/internal/auth"
	"fintrack/internal/cache"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

const (
	// HeaderInternalKey authenticates service-to-service calls.
	HeaderInternalKey = "X-Internal-Key"

	dashboardCacheSize = 500
	cacheCleanupEvery  = 5 * time.Minute
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config carries everything NewServer needs. Logger and DB are optional.
type Config struct {
	Addr               string
	Transactions       *services.TransactionService
	Categories         *services.CategoryService
	Users              *services.UserService
	Analytics          *analytics.Service
	Tokens             *auth.Tokens
	Cookie             auth.CookieOptions
	InternalKey        string
	CORSOrigins        []string
	RateLimitPerMinute int
	DashboardCacheTTL  time.Duration
	DB                 Pinger
	Logger             *applog.Logger
}

type Server struct {
	http.Server

	transactions *services.TransactionService
	categories   *services.CategoryService
	users        *services.UserService
	analytics    *analytics.Service
	tokens       *auth.Tokens
	cookie       auth.CookieOptions
	internalKey  string
	db           Pinger
	logger       *applog.Logger
	events       *applog.Events

	// nil when DASHBOARD_CACHE_TTL is 0
	dashboards    *cache.LRUCache[*analytics.Dashboard]
	dashboardGens dashboardGenerations
	cacheManager  *cache.Manager

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	transactionsWritten int64
	cacheHits           int64
	cacheMisses         int64
	uptime              time.Time
}

func (m *appMetrics) hit()   { atomic.AddInt64(&m.cacheHits, 1) }
func (m *appMetrics) miss()  { atomic.AddInt64(&m.cacheMisses, 1) }
func (m *appMetrics) wrote() { atomic.AddInt64(&m.transactionsWritten, 1) }

// NewServer builds the router and middleware chain, returning a ready-to-run
// http.Server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		transactions:     cfg.Transactions,
		categories:       cfg.Categories,
		users:            cfg.Users,
		analytics:        cfg.Analytics,
		tokens:           cfg.Tokens,
		cookie:           cfg.Cookie,
		internalKey:      cfg.InternalKey,
		db:               cfg.DB,
		logger:           logger,
		events:           applog.NewEvents(logger),
		cacheManager:     cache.NewManager(),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute, CleanupInterval: cacheCleanupEvery}),
		securityDetector: security.NewDetector(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger)

	if cfg.DashboardCacheTTL > 0 {
		s.dashboards = cache.NewLRUCache[*analytics.Dashboard](dashboardCacheSize, cfg.DashboardCacheTTL)
		s.cacheManager.Register(s.dashboards)
		s.cacheManager.StartCleanup(cacheCleanupEvery)
	}

	mux := http.NewServeMux()
	s.routes(mux)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			HeaderInternalKey,
			trace.HeaderRequestID,
		},
		ExposedHeaders:   []string{trace.HeaderRequestID},
		AllowCredentials: true,
	})

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = mux
	handler = s.securityDetector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = corsHandler.Handler(handler)
	handler = applog.Middleware(logger)(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.requireInternalKey(s.handleMetrics))

	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, writeRateLimited)

	mux.HandleFunc("POST /api/auth/signup", s.handleSignup)
	mux.Handle("POST /api/auth/login", limited(http.HandlerFunc(s.handleLogin)))
	mux.Handle("POST /api/auth/login/google", limited(http.HandlerFunc(s.handleGoogleLogin)))
	mux.HandleFunc("POST /api/auth/signout", s.handleSignout)
	mux.HandleFunc("GET /api/auth/me", s.requireUser(s.handleMe))
	mux.HandleFunc("POST /api/auth/changePreferences", s.requireUser(s.handleChangePreferences))
	mux.HandleFunc("PATCH /api/auth/profile", s.requireUser(s.handleUpdateProfile))
	mux.Handle("POST /api/auth/changePassword", limited(http.HandlerFunc(s.requireUser(s.handleChangePassword))))

	mux.HandleFunc("POST /api/categories/create-default", s.requireInternalKey(s.handleCreateDefaultCategories))
	mux.HandleFunc("GET /api/categories", s.requireUser(s.handleListCategories))
	mux.HandleFunc("POST /api/categories/create", s.requireUser(s.handleCreateCategory))
	mux.HandleFunc("PATCH /api/categories/{id}", s.requireUser(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.requireUser(s.handleDeleteCategory))

	mux.HandleFunc("POST /api/transactions/create", s.requireUser(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions", s.requireUser(s.handleListTransactions))
	mux.HandleFunc("GET /api/transactions/month-summary", s.requireUser(s.handleMonthSummary))
	mux.HandleFunc("GET /api/transactions/{id}", s.requireUser(s.handleGetTransaction))
	mux.HandleFunc("PATCH /api/transactions/{id}", s.requireUser(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.requireUser(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/analytics/dashboard", s.requireUser(s.handleDashboard))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})
}

// Shutdown gracefully shuts down the server and its background cleanups.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
}
