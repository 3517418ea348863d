package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjannette/hype-stats-backend/internal/logger"
	"github.com/kjannette/hype-stats-backend/internal/metrics"
	"github.com/kjannette/hype-stats-backend/internal/models"
)

// StatsSource is the read side the API needs from the store.
type StatsSource interface {
	GetToday(ctx context.Context) ([]models.StatsRecord, error)
	Ping(ctx context.Context) error
}

type Server struct {
	stats      StatsSource
	httpServer *http.Server
}

func NewServer(stats StatsSource, port int, corsOrigin string) *Server {
	s := &Server{stats: stats}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/hype_stats", s.handleHypeStats)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := logger.Middleware(metrics.Middleware(corsMiddleware(mux, corsOrigin)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	slog.Info("REST API server started", "addr", "http://localhost"+s.httpServer.Addr)
	slog.Info("Hype stats endpoint", "url", "http://localhost"+s.httpServer.Addr+"/api/hype_stats")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- response helpers ---

// writeJSON encodes v before touching the response so an encoding failure
// can still be reported with a proper status.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"error": msg})
}
