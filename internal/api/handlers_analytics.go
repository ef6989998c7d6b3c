package api

import "net/http"

// handleAnalyticsSummary returns the aggregated dashboard series:
// hourly temperature averages, daily power totals, and hourly motion
// counts.
func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.analytics.Summarize(r.Context())
	if err != nil {
		s.logger.Error("analytics summary failed", "error", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
