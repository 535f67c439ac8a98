package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"traccia/internal/auth"
	"traccia/internal/cache"
	"traccia/internal/middleware/ratelimit"
	"traccia/internal/observability"
	"traccia/internal/middleware/security"
	"traccia/internal/middleware/trace"
	"traccia/internal/services"
)

// Config holds HTTP server configuration.
type Config struct {
	Addr      string
	Auth      auth.Config
	CacheTTL  time.Duration
	CacheSize int
}

// Server wires the activity service behind an authenticated JSON API with
// cached read views.
type Server struct {
	http.Server
	service ActivityAPI

	listCache   *cache.LRUCache[[]services.ActivityWithCounts]
	detailCache *cache.LRUCache[services.ActivityDetail]
	cacheMgr    *cache.Manager

	rateLimiter *ratelimit.Limiter

	readyCheck func(context.Context) error

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, service ActivityAPI, readyCheck func(context.Context) error) *Server {
	mux := http.NewServeMux()

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 512
	}

	s := &Server{
		service:     service,
		listCache:   cache.NewLRUCache[[]services.ActivityWithCounts](cfg.CacheSize, cfg.CacheTTL),
		detailCache: cache.NewLRUCache[services.ActivityDetail](cfg.CacheSize, cfg.CacheTTL),
		cacheMgr:    cache.NewManager(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		readyCheck:  readyCheck,
	}

	s.cacheMgr.Register(s.listCache)
	s.cacheMgr.Register(s.detailCache)
	s.cacheMgr.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/v1/activities", s.handleActivities)
	mux.HandleFunc("/v1/activities/", s.handleActivityByID)
	mux.HandleFunc("/v1/logs/", s.handleLogByID)
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	authMW := auth.NewMiddleware(cfg.Auth, func(r *http.Request) bool {
		switch r.URL.Path {
		case "/healthz", "/readyz", "/metrics":
			return true
		}
		return false
	})

	observability.RegisterRateLimitClients(s.rateLimiter.ActiveClients)

	traceMW := trace.NewMiddleware(extractClientIP, observability.RecordHTTPRequest)
	headersMW := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	rateMW := s.rateLimiter.Middleware(extractClientIP, nil)

	handler := traceMW.Middleware(headersMW.Middleware(rateMW(authMW.Wrap(mux))))

	s.Server = http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheMgr.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// invalidate drops the view cache entries a mutation reported as stale.
func (s *Server) invalidate(keys services.Invalidations) {
	for _, key := range keys {
		s.listCache.Delete(key)
		s.detailCache.Delete(key)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.readyCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.readyCheck(ctx); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// extractClientIP resolves the client address, preferring proxy headers.
func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if idx := strings.IndexByte(ip, ','); idx >= 0 {
			ip = ip[:idx]
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
