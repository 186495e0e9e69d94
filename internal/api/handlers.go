// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/geofleet/geofleet/internal/logging"
	"github.com/geofleet/geofleet/internal/models"
	"github.com/geofleet/geofleet/internal/websocket"
)

// Store is the read surface the query API needs from storage.
type Store interface {
	QueryHistory(ctx context.Context, filter models.HistoryFilter) ([]models.LocationReport, error)
	ListAliases(ctx context.Context) (map[string]string, error)
	LastLocations(ctx context.Context) ([]models.LastLocation, error)
	GetStats(ctx context.Context) (*models.FleetStats, error)
	Ping(ctx context.Context) error
}

// BatchStatus exposes the accumulator's state for stats and readiness.
type BatchStatus interface {
	Pending() int
	BreakerState() string
	LastFlush() time.Time
}

// Handler serves the query endpoints.
type Handler struct {
	store          Store
	batch          BatchStatus
	hub            *websocket.Hub
	maxHistoryRows int
}

// NewHandler creates the API handler.
func NewHandler(store Store, batch BatchStatus, hub *websocket.Hub, maxHistoryRows int) *Handler {
	if maxHistoryRows <= 0 {
		maxHistoryRows = 10_000
	}
	return &Handler{
		store:          store,
		batch:          batch,
		hub:            hub,
		maxHistoryRows: maxHistoryRows,
	}
}

// History serves POST /api/v1/history: reports inside a closed
// datetime range, optionally filtered by alias.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req models.HistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	filter, err := parseHistoryRequest(&req, h.maxHistoryRows)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidationFailed, err.Error())
		return
	}

	reports, err := h.store.QueryHistory(r.Context(), *filter)
	if err != nil {
		logging.Error().Err(err).Msg("History query failed")
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "history query failed")
		return
	}

	respondJSON(w, http.StatusOK, reports, started, len(reports))
}

// Aliases serves GET /api/v1/aliases: every device-to-alias assignment.
func (h *Handler) Aliases(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	aliases, err := h.store.ListAliases(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("Alias listing failed")
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "alias listing failed")
		return
	}

	respondJSON(w, http.StatusOK, aliases, started, len(aliases))
}

// LastLocations serves GET /api/v1/last-locations: the most recent
// position per device.
func (h *Handler) LastLocations(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	locations, err := h.store.LastLocations(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("Last locations query failed")
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "last locations query failed")
		return
	}

	respondJSON(w, http.StatusOK, locations, started, len(locations))
}

// Stats serves GET /api/v1/stats: stored totals plus live pipeline
// state.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("Stats query failed")
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "stats query failed")
		return
	}
	if h.batch != nil {
		stats.PendingBatch = h.batch.Pending()
		if last := h.batch.LastFlush(); !last.IsZero() {
			stats.LastFlushTime = &last
		}
	}

	respondJSON(w, http.StatusOK, stats, started, 0)
}

// HealthLive serves GET /api/v1/health/live: process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"}, time.Now(), 0)
}

// HealthReady serves GET /api/v1/health/ready: storage reachability
// and breaker state.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "database unreachable")
		return
	}
	if h.batch != nil && h.batch.BreakerState() == "open" {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "storage circuit breaker open")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"}, time.Now(), 0)
}

// WebSocket serves GET /api/v1/ws: upgrades the connection and
// registers the subscriber with the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWS(h.hub, w, r)
}

// historyTimeLayout is the request datetime shape, the HTML
// datetime-local format.
const historyTimeLayout = "2006-01-02T15:04"

var errRangeOrder = errors.New("end must not be before start")

func errInvalidRange(field, value string) error {
	return fmt.Errorf("invalid %s datetime %q, expected YYYY-MM-DDTHH:MM", field, value)
}

// parseHistoryRequest validates a request and expands it to a filter
// with second precision: the start floors to :00, the end ceils to :59
// so the closed range covers the full minutes named.
func parseHistoryRequest(req *models.HistoryRequest, maxRows int) (*models.HistoryFilter, error) {
	start, err := time.Parse(historyTimeLayout, strings.TrimSpace(req.Start))
	if err != nil {
		return nil, errInvalidRange("start", req.Start)
	}
	end, err := time.Parse(historyTimeLayout, strings.TrimSpace(req.End))
	if err != nil {
		return nil, errInvalidRange("end", req.End)
	}
	if end.Before(start) {
		return nil, errRangeOrder
	}

	return &models.HistoryFilter{
		StartDate: start.Format("2006-01-02"),
		StartTime: start.Format("15:04") + ":00",
		EndDate:   end.Format("2006-01-02"),
		EndTime:   end.Format("15:04") + ":59",
		Alias:     strings.TrimSpace(req.Alias),
		Limit:     maxRows,
	}, nil
}
