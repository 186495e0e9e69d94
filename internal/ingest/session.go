// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/geofleet/geofleet/internal/logging"
	"github.com/geofleet/geofleet/internal/metrics"
)

// SessionConfig bounds one device connection.
type SessionConfig struct {
	// Timeout is the read inactivity limit; every completed read
	// resets it.
	Timeout time.Duration

	// MaxLineBytes caps one wire message.
	MaxLineBytes int

	// MessagesPerSecond and Burst rate-limit the session. A device
	// exceeding them is delayed, not disconnected.
	MessagesPerSecond float64
	Burst             int
}

// Session reads newline-delimited telemetry from one connection and
// answers each message with the pipeline's reply.
type Session struct {
	conn     net.Conn
	pipeline *Pipeline
	cfg      SessionConfig
	limiter  *rate.Limiter
}

// NewSession wraps an accepted connection.
func NewSession(conn net.Conn, pipeline *Pipeline, cfg SessionConfig) *Session {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = 1024
	}
	var limiter *rate.Limiter
	if cfg.MessagesPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.MessagesPerSecond), burst)
	}
	return &Session{
		conn:     conn,
		pipeline: pipeline,
		cfg:      cfg,
		limiter:  limiter,
	}
}

// Run serves the connection until the device disconnects, goes silent
// past the timeout, or the context is canceled.
func (s *Session) Run(ctx context.Context) {
	remote := s.conn.RemoteAddr().String()
	metrics.IngestSessionsActive.Inc()
	metrics.IngestSessionsTotal.Inc()
	defer func() {
		metrics.IngestSessionsActive.Dec()
		_ = s.conn.Close()
	}()

	logging.Debug().Str("remote", remote).Msg("Device session opened")

	// Close the connection when the server shuts down so the blocked
	// read below returns.
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	scanner := bufio.NewScanner(s.conn)
	scanner.Buffer(make([]byte, 0, s.cfg.MaxLineBytes), s.cfg.MaxLineBytes)

	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.Timeout)); err != nil {
			logging.Error().Err(err).Str("remote", remote).Msg("Failed to set session deadline")
			return
		}

		if !scanner.Scan() {
			s.logSessionEnd(remote, scanner.Err())
			return
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
		}

		reply := s.pipeline.Handle(ctx, line)
		if err := s.write(reply); err != nil {
			logging.Debug().Err(err).Str("remote", remote).Msg("Failed to write reply, closing session")
			return
		}
	}
}

// write sends one reply line under a write deadline.
func (s *Session) write(reply string) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.Timeout)); err != nil {
		return err
	}
	_, err := s.conn.Write([]byte(reply + "\n"))
	return err
}

func (s *Session) logSessionEnd(remote string, err error) {
	switch {
	case err == nil:
		logging.Debug().Str("remote", remote).Msg("Device disconnected")
	case errors.Is(err, os.ErrDeadlineExceeded):
		metrics.IngestSessionTimeouts.Inc()
		logging.Info().Str("remote", remote).Msg("Device session timed out")
	case errors.Is(err, net.ErrClosed):
		// Shutdown path closed the connection under us.
	case errors.Is(err, bufio.ErrTooLong):
		logging.Warn().Str("remote", remote).Msg("Device sent oversized message, closing session")
	default:
		logging.Debug().Err(err).Str("remote", remote).Msg("Device session read error")
	}
}
