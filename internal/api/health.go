package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	Database string `json:"database"`
}

// handleHealth reports store reachability. Each call dials, pings and
// closes its own connection since nothing is pooled.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "connected"
	if err := s.stats.Ping(r.Context()); err != nil {
		dbStatus = "disconnected"
	}

	_ = writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  healthServices{Database: dbStatus},
	})
}
