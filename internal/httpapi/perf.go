package httpapi

import "net/http"

// handlePerfLatency reports the rolling gateway and submit latency window.
func (s *Server) handlePerfLatency(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("reset") == "1" {
		s.metrics.ResetLatencyWindow()
	}
	respondJSON(w, http.StatusOK, s.metrics.LatencySnapshot())
}
