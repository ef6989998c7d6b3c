package api

import "net/http"

// handleToggleAutomation flips the rule engine on or off and returns
// the new setting. The flag takes effect on the next tick.
func (s *Server) handleToggleAutomation(w http.ResponseWriter, _ *http.Request) {
	enabled := s.gateway.ToggleAutomation()

	writeJSON(w, http.StatusOK, map[string]any{
		"automationEnabled": enabled,
	})
}

// handleListEvents returns the automation event log, newest first.
func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"events": s.gateway.Events().Snapshot(),
	})
}
