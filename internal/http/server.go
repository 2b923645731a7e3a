// Package http exposes the dashboard API: the monthly report, driver detail,
// history, and every ingestion path. Reads aggregate straight off the record
// store; writes go through the ledger service.
package http

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"entregas/internal/cache"
	"entregas/internal/middleware/ratelimit"
	"entregas/internal/middleware/security"
	"entregas/internal/middleware/trace"
	"entregas/internal/report"
	"entregas/internal/roster"
	"entregas/internal/services"
	appweb "entregas/web"
)

type Server struct {
	http.Server

	ledger *services.LedgerService
	ros    *roster.Roster
	now    func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector

	// Computed reports are cached per month. The version counter is part of
	// the cache key and bumps on every mutation, so stale entries are never
	// served; they age out through the cache's TTL and size cap.
	reportCache  *cache.LRUCache[report.Report]
	cacheManager *cache.Manager
	version      atomic.Int64

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger *services.LedgerService, ros *roster.Roster) *Server {
	mux := http.NewServeMux()

	s := &Server{
		ledger:       ledger,
		ros:          ros,
		now:          time.Now,
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:     security.NewDetector(),
		reportCache:  cache.NewLRUCache[report.Report](50, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}
	s.cacheManager.Register(s.reportCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /api/months", s.handleMonths)
	mux.HandleFunc("GET /api/drivers/{name}", s.handleDriverDetail)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/status", s.handleStatus)

	mux.HandleFunc("POST /api/records", s.handleCreateRecord)
	mux.HandleFunc("PUT /api/records/{id}", s.handleUpdateRecord)
	mux.HandleFunc("DELETE /api/records/{id}", s.handleDeleteRecord)
	mux.HandleFunc("POST /api/records/bulk", s.handleBulk)
	mux.HandleFunc("POST /api/records/day", s.handleDayEdit)
	mux.HandleFunc("POST /api/occurrences", s.handleCreateOccurrence)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("POST /api/clear", s.handleClear)

	// Static UI (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
		mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFileFS(w, r, sub, "index.html")
		})
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.detector.ExtractClientIP)

	s.Server = http.Server{
		Addr:    addr,
		Handler: tracer.Middleware(headers.Middleware(s.limitMutations(mux))),
	}
	return s
}

// limitMutations rate-limits everything except reads and logs probing
// traffic that has nothing to do with the dashboard.
func (s *Server) limitMutations(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request detected",
				"client_ip", s.detector.ExtractClientIP(r), "method", r.Method, "path", r.URL.Path)
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			clientIP := s.detector.ExtractClientIP(r)
			if !s.limiter.Allow(clientIP) {
				slog.WarnContext(r.Context(), "Rate limit exceeded",
					"client_ip", clientIP, "method", r.Method, "path", r.URL.Path)
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// reportFor returns the aggregate view for one month, cached per mutation
// generation.
func (s *Server) reportFor(month string) report.Report {
	key := month + "@" + strconv.FormatInt(s.version.Load(), 10)
	if rep, ok := s.reportCache.Get(key); ok {
		return rep
	}
	st := s.ledger.Store()
	rep := report.Compute(st.Records(), st.Occurrences(), month, s.ros, s.now())
	s.reportCache.Set(key, rep)
	return rep
}

// bump marks the aggregate caches stale after a successful mutation.
func (s *Server) bump() {
	s.version.Add(1)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
