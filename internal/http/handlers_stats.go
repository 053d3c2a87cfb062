package http

import (
	"net/http"
	"strings"

	"jizhang/internal/log"
)

// handleStats serves one period. Query: period=month|year|range, with
// start and end as YYYY-MM-DD for range.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period := strings.TrimSpace(q.Get("period"))
	start := strings.TrimSpace(q.Get("start"))
	end := strings.TrimSpace(q.Get("end"))

	report, err := s.stats.Report(r.Context(), period, start, end)
	if err != nil {
		s.fail(w, r, log.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, toReport(report))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.stats.Dashboard(r.Context())
	if err != nil {
		s.fail(w, r, log.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		Month: toReport(d.Month),
		Year:  toReport(d.Year),
	})
}

// handleCategoryDetail lists one category's spending in a period. It takes
// the same query as handleStats plus limit.
func (s *Server) handleCategoryDetail(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	d, err := s.stats.CategoryDetail(r.Context(),
		r.PathValue("category"),
		strings.TrimSpace(q.Get("period")),
		strings.TrimSpace(q.Get("start")),
		strings.TrimSpace(q.Get("end")),
		limit)
	if err != nil {
		s.fail(w, r, log.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDetail(d))
}
