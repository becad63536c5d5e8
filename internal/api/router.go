package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/gray-logic-hubsync/internal/synchronizer"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/refresh", s.handleRefresh)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Get("/state", s.handleGetDeviceState)
				r.Put("/state", s.handleSetDeviceState)
				r.Get("/history", s.handleGetDeviceHistory)
			})
		})

		r.Get("/hub/{collection}/{id}", s.handleHubGet)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// Health states reported by /health.
const (
	healthOK       = "ok"
	healthStarting = "starting"
	healthDegraded = "degraded"
)

// handleHealth reports the outcome of the most recent refresh passes.
// It answers 503 until the first successful pass.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h := s.syncer.Health()
	status := healthStatus(h)

	body := map[string]any{
		"status":         status,
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"synchronizer":   h,
		"websocket":      map[string]int{"connected_clients": s.hub.ClientCount()},
	}
	if s.mqtt != nil {
		body["mqtt"] = map[string]bool{"connected": s.mqtt.IsConnected()}
	}

	code := http.StatusOK
	if h.Generation == 0 {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, body)
}

func healthStatus(h synchronizer.Health) string {
	switch {
	case h.Generation == 0 && h.LastError == "":
		return healthStarting
	case h.LastError != "":
		return healthDegraded
	default:
		return healthOK
	}
}

// handleRefresh runs a discovery pass now and waits for it.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	devices, err := s.syncer.Refresh(r.Context())
	if err != nil {
		s.logger.Warn("manual refresh failed", "error", err)
		writeCommandError(w, err)
		return
	}

	snap := s.syncer.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":                   len(devices),
		"generation":              snap.Generation,
		"refreshed_at":            snap.RefreshedAt,
		"unsupported_collections": snap.Unsupported,
	})
}
