package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"jizhang/internal/core"
)

const readyTimeout = 5 * time.Second

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady reports 503 until the store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	switch {
	case s.pinger == nil:
		checks["store"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	default:
		if err := s.pinger.Ping(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	security := s.detector.GetMetrics()
	limits := s.rateLimiter.GetMetrics()
	traces := s.tracer.GetMetrics()

	metrics := []struct {
		name, help, kind string
		value            any
	}{
		{"http_requests_total", "Total number of HTTP requests", "counter", traces.TotalRequests},
		{"chat_submissions_total", "Total chat messages submitted", "counter", s.submissions.Load()},
		{"expenses_recorded_total", "Total expenses recorded through chat", "counter", s.recorded.Load()},
		{"rate_limit_hits_total", "Total rate limit hits", "counter", limits.TotalHits},
		{"active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", limits.ClientCount},
		{"suspicious_requests_total", "Total suspicious requests detected", "counter", security.SuspiciousRequests},
		{"uptime_seconds", "Application uptime in seconds", "gauge", int64(time.Since(s.startedAt).Seconds())},
	}

	w.WriteHeader(http.StatusOK)
	for _, m := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", m.name, m.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", m.name, m.kind)
		fmt.Fprintf(w, "%s %d\n\n", m.name, m.value)
	}
}

// handleCategories lists the category vocabulary in prompt order.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	out := make([]categoryResponse, 0, len(core.Categories))
	for _, c := range core.Categories {
		out = append(out, categoryResponse{Label: c, Icon: core.IconFor(c)})
	}
	writeJSON(w, http.StatusOK, out)
}
