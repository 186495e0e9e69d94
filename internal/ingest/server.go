// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/geofleet/geofleet/internal/logging"
)

// ServerConfig configures the telemetry listener.
type ServerConfig struct {
	Host string
	Port int

	// AcceptTimeout bounds one Accept call. An expired accept is
	// retried; it exists so the loop can observe context cancellation
	// instead of blocking forever.
	AcceptTimeout time.Duration

	Session SessionConfig
}

// Server owns the TCP listener and one goroutine per device session.
type Server struct {
	cfg      ServerConfig
	pipeline *Pipeline
}

// NewServer creates the telemetry listener.
func NewServer(cfg ServerConfig, pipeline *Pipeline) *Server {
	if cfg.AcceptTimeout <= 0 {
		cfg.AcceptTimeout = 20 * time.Second
	}
	return &Server{cfg: cfg, pipeline: pipeline}
}

// Serve listens and accepts device sessions until the context is
// canceled, then waits for in-flight sessions to finish.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	tcpListener, ok := listener.(*net.TCPListener)
	if !ok {
		closeErr := listener.Close()
		return errors.Join(fmt.Errorf("unexpected listener type %T", listener), closeErr)
	}
	defer func() { _ = tcpListener.Close() }()

	logging.Info().Str("addr", addr).Msg("Telemetry listener started")

	// Unblock a pending Accept on shutdown.
	stop := context.AfterFunc(ctx, func() { _ = tcpListener.Close() })
	defer stop()

	var wg sync.WaitGroup
	for {
		if err := tcpListener.SetDeadline(time.Now().Add(s.cfg.AcceptTimeout)); err != nil {
			return fmt.Errorf("set accept deadline: %w", err)
		}

		conn, err := tcpListener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				// Nobody connected inside the window; keep listening.
				continue
			}
			logging.Error().Err(err).Msg("Accept failed")
			continue
		}

		session := NewSession(conn, s.pipeline, s.cfg.Session)
		wg.Add(1)
		go func() {
			defer wg.Done()
			session.Run(ctx)
		}()
	}

	logging.Info().Str("component", "ingest-server").Msg("Telemetry listener stopping, draining sessions")
	wg.Wait()
	logging.Info().Str("component", "ingest-server").Msg("Telemetry listener stopped")
	return ctx.Err()
}
