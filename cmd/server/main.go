// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

// Command server runs the full Geofleet process: the TCP telemetry
// listener, the batch writer, the websocket fan-out, and the HTTP
// query API, all under one supervision tree.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/geofleet/geofleet/internal/alias"
	"github.com/geofleet/geofleet/internal/api"
	"github.com/geofleet/geofleet/internal/batch"
	"github.com/geofleet/geofleet/internal/broadcast"
	"github.com/geofleet/geofleet/internal/config"
	"github.com/geofleet/geofleet/internal/database"
	"github.com/geofleet/geofleet/internal/dedup"
	"github.com/geofleet/geofleet/internal/ingest"
	"github.com/geofleet/geofleet/internal/logging"
	"github.com/geofleet/geofleet/internal/metrics"
	"github.com/geofleet/geofleet/internal/supervisor"
	"github.com/geofleet/geofleet/internal/supervisor/services"
	"github.com/geofleet/geofleet/internal/websocket"
)

const pubSubBuffer = 1024

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "geofleet: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("version", version).
		Str("ingest_addr", fmt.Sprintf("%s:%d", cfg.Ingest.Host, cfg.Ingest.Port)).
		Str("http_addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Msg("Starting Geofleet")
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	registry := alias.NewRegistry(db)
	if known, err := db.ListAliases(ctx); err != nil {
		logging.Warn().Err(err).Msg("Alias cache warm-up failed, continuing cold")
	} else {
		registry.Warm(known)
	}

	filter := dedup.NewFilter(cfg.Dedup.MaxEntries, cfg.Dedup.Window)
	accumulator := batch.NewAccumulator(db, batch.Config{
		FlushInterval:    cfg.Batch.FlushInterval,
		BreakerThreshold: cfg.Batch.BreakerFailureThreshold,
		BreakerCooldown:  cfg.Batch.BreakerCooldown,
	})

	pubsub := broadcast.NewPubSub(pubSubBuffer)
	defer pubsub.Close()

	hub := websocket.NewHub()
	broadcaster := broadcast.NewBroadcaster(hub, cfg.Broadcast.ThrottleInterval)
	relay := broadcast.NewRelay(pubsub, broadcaster)

	pipeline := ingest.NewPipeline(filter, registry, accumulator, pubsub)
	ingestServer := ingest.NewServer(ingest.ServerConfig{
		Host:          cfg.Ingest.Host,
		Port:          cfg.Ingest.Port,
		AcceptTimeout: cfg.Ingest.AcceptTimeout,
		Session: ingest.SessionConfig{
			Timeout:           cfg.Ingest.SessionTimeout,
			MaxLineBytes:      cfg.Ingest.MaxLineBytes,
			MessagesPerSecond: cfg.Ingest.MessagesPerSecond,
			Burst:             cfg.Ingest.MessageBurst,
		},
	}, pipeline)

	handler := api.NewHandler(db, accumulator, hub, cfg.API.MaxHistoryRows)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler, &cfg.API),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddIngestService(services.NewIngestService(ingestServer))
	tree.AddIngestService(services.NewFlushService(accumulator, cfg.Batch.FlushInterval))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(services.NewRelayService(relay))
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))

	err = tree.Serve(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("supervision tree: %w", err)
	}

	logging.Info().Msg("Geofleet stopped")
	return nil
}
