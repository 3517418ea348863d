package api

import (
	"net/http"

	"github.com/kjannette/hype-stats-backend/internal/logger"
	"github.com/kjannette/hype-stats-backend/internal/models"
)

const errFetchHypeStats = "Failed to fetch hype stats"

// handleHypeStats returns today's records, oldest first, exactly as stored.
func (s *Server) handleHypeStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	recs, err := s.stats.GetToday(ctx)
	if err != nil {
		log.Error("Failed to fetch hype stats", "error", err)
		writeError(w, http.StatusInternalServerError, errFetchHypeStats)
		return
	}
	if recs == nil {
		recs = []models.StatsRecord{}
	}

	if err := writeJSON(w, http.StatusOK, recs); err != nil {
		log.Error("Failed to fetch hype stats", "error", err, "records", len(recs))
		writeError(w, http.StatusInternalServerError, errFetchHypeStats)
		return
	}
	log.Debug("served hype stats", "records", len(recs))
}
