// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/geofleet/geofleet/internal/config"
	"github.com/geofleet/geofleet/internal/middleware"
)

// NewRouter assembles the HTTP surface: the versioned query API, the
// websocket upgrade endpoint, health probes, and Prometheus metrics.
func NewRouter(handler *Handler, cfg *config.APIConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.PrometheusMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health/live", handler.HealthLive)
		r.Get("/health/ready", handler.HealthReady)

		// The websocket upgrade sits outside the rate limiter: a
		// subscriber holds one long-lived connection, not many requests.
		r.Get("/ws", handler.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))

			r.Post("/history", handler.History)
			r.Get("/aliases", handler.Aliases)
			r.Get("/last-locations", handler.LastLocations)
			r.Get("/stats", handler.Stats)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
