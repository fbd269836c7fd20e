package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.db == nil {
		checks["database"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else if err := s.db.Ping(ctx); err != nil {
		checks["database"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	dashboardEntries := 0
	if s.dashboards != nil {
		dashboardEntries = s.dashboards.Size()
	}
	checks["cache"] = map[string]any{
		"enabled":           s.dashboards != nil,
		"dashboard_entries": dashboardEntries,
		"status":            "ok",
	}
	checks["rate_limiter"] = map[string]any{
		"enabled":        s.rateLimiter.Enabled(),
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes application and security counters in Prometheus text
// format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	dashboardEntries := 0
	if s.dashboards != nil {
		dashboardEntries = s.dashboards.Size()
	}

	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "http_server_errors_total", "counter", "Total number of 5xx responses", traceMetrics.ServerErrors)
	writeMetric(w, "transactions_written_total", "counter", "Total transaction writes", atomic.LoadInt64(&s.appMetrics.transactionsWritten))
	writeMetric(w, "cache_hits_total", "counter", "Total dashboard cache hits", atomic.LoadInt64(&s.appMetrics.cacheHits))
	writeMetric(w, "cache_misses_total", "counter", "Total dashboard cache misses", atomic.LoadInt64(&s.appMetrics.cacheMisses))
	writeMetric(w, "cache_entries", "gauge", "Current dashboard cache entries", int64(dashboardEntries))
	writeMetric(w, "rate_limit_hits_total", "counter", "Total rate limit hits", s.rateLimiter.Hits())
	writeMetric(w, "suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	writeMetric(w, "active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", int64(s.rateLimiter.ActiveClients()))
	writeMetric(w, "uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.appMetrics.uptime).Seconds()))
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}
