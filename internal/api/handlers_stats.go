package api

import (
	"net/http"

	"github.com/dgallion1/docseg/internal/qagen"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}
	resp := struct {
		Model      string              `json:"model"`
		QueueDepth int                 `json:"queue_depth"`
		Stats      qagen.StatsSnapshot `json:"stats"`
	}{
		Model: s.cfg.AnthropicModel,
		Stats: s.stats.Snapshot(),
	}
	if s.orchestrator != nil {
		resp.QueueDepth = s.orchestrator.QueueDepth()
	}
	writeJSON(w, http.StatusOK, resp)
}
