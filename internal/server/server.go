// Package server exposes the read-only metrics API over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/yapay-ai/provider-sentinel/pkg/breaker"
	"github.com/yapay-ai/provider-sentinel/pkg/gateway"
	"github.com/yapay-ai/provider-sentinel/pkg/model"
)

// Server provides health check and metrics API endpoints.
type Server struct {
	gateway  *gateway.Gateway
	breakers *breaker.Registry
	quota    model.QuotaPolicy
	mux      *http.ServeMux
	logger   *slog.Logger
}

// NewServer creates an API server.
func NewServer(gw *gateway.Gateway, breakers *breaker.Registry, quota model.QuotaPolicy, logger *slog.Logger) *Server {
	s := &Server{
		gateway:  gw,
		breakers: breakers,
		quota:    quota,
		mux:      http.NewServeMux(),
		logger:   logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/usage", s.handleUsage)
	s.mux.HandleFunc("GET /api/v1/summary", s.handleSummary)
	s.mux.HandleFunc("GET /api/v1/quota", s.handleQuota)
	s.mux.HandleFunc("GET /api/v1/cache/stats", s.handleCacheStats)
	s.mux.HandleFunc("GET /api/v1/breakers", s.handleBreakers)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := model.ReportFilter{
		Provider:  r.URL.Query().Get("provider"),
		Operation: r.URL.Query().Get("operation"),
		Model:     r.URL.Query().Get("model"),
	}

	events, err := s.gateway.UsageEvents(ctx, filter)
	if err != nil {
		s.logger.Error("query usage", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	period := model.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = model.PeriodDaily
	}

	summary, err := s.gateway.UsageSummary(ctx, model.PeriodWindow(period))
	if err != nil {
		s.logger.Error("aggregate usage", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status, err := s.gateway.CheckQuota(ctx, s.quota)
	if err != nil {
		s.logger.Error("check quota", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	stats, err := s.gateway.CacheStats()
	if err != nil {
		s.logger.Error("cache stats", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (s *Server) handleBreakers(w http.ResponseWriter, _ *http.Request) {
	states := s.breakers.States()
	out := make(map[string]string, len(states))
	for provider, state := range states {
		out[provider] = state.String()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
