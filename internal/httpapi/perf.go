package httpapi

import "net/http"

// handlePerfLatency serves the rolling stage-latency snapshot for quick
// inspection without scraping Prometheus.
func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "metrics not configured")
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.StageSnapshot())
}
