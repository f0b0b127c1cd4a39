package api

import (
	"log/slog"
	"net/http"
)

type statsHandler struct {
	knowledge StatsProvider
	logger    *slog.Logger
}

// getStats returns the knowledge base document counts.
func (h *statsHandler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.knowledge.Stats(r.Context())
	if err != nil {
		h.logger.Error("fetching knowledge stats", "error", err)
		writeError(w, http.StatusInternalServerError, "stats_failed", "failed to fetch knowledge base stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
