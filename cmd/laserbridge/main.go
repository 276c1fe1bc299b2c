// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

// laserbridge connects one laser controller's MSH serial shell to a
// local WebSocket endpoint. It polls the controller for telemetry,
// fans events out to subscribers, gates client commands through the
// safety policy, and appends an audit record for every command
// attempt.
//
// Configuration comes from an optional YAML file (LASERBRIDGE_CONFIG
// or --config), the SERIAL_DEV/BAUD/WS_HOST/WS_PORT/POLL_HZ/AUDIT_PATH
// environment variables, and finally the command-line flags, in that
// order of precedence.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/lydia-systems/laserbridge/arbiter"
	"github.com/lydia-systems/laserbridge/audit"
	"github.com/lydia-systems/laserbridge/gateway"
	"github.com/lydia-systems/laserbridge/lib/clock"
	"github.com/lydia-systems/laserbridge/lib/config"
	"github.com/lydia-systems/laserbridge/msh"
	"github.com/lydia-systems/laserbridge/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "laserbridge:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "path to YAML config file (overrides LASERBRIDGE_CONFIG)")
		serialDev  = flag.String("serial", "", "serial device path")
		baud       = flag.Int("baud", 0, "serial baud rate")
		host       = flag.String("host", "", "WebSocket bind address")
		port       = flag.Int("port", 0, "WebSocket listen port")
		pollHz     = flag.Float64("hz", 0, "status poll rate in Hz")
		auditPath  = flag.String("audit", "", "audit log file path")
		verbose    = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *serialDev != "" {
		cfg.Serial.Device = *serialDev
	}
	if *baud != 0 {
		cfg.Serial.Baud = *baud
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *pollHz != 0 {
		cfg.Telemetry.PollHz = min(max(*pollHz, config.MinPollHz), config.MaxPollHz)
	}
	if *auditPath != "" {
		cfg.Audit.Path = *auditPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	clk := clock.Real()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	aud, err := audit.New(cfg.Audit.Path, audit.Options{}, clk, logger)
	if err != nil {
		return err
	}
	defer aud.Close()

	// An unreachable serial device at startup is the one unrecoverable
	// failure: there is nothing to bridge. Later link failures are
	// handled by the arbiter's redial loop.
	session, err := msh.Open(cfg.Serial.Device, cfg.Serial.Baud, clk, logger)
	if err != nil {
		return fmt.Errorf("open serial device: %w", err)
	}

	// The dial function runs only on the arbiter's worker goroutine.
	// The first call hands over the session opened above; later calls
	// reopen the device after a link failure.
	firstSession := session
	dial := func() (arbiter.Session, error) {
		if s := firstSession; s != nil {
			firstSession = nil
			return s, nil
		}
		return msh.Open(cfg.Serial.Device, cfg.Serial.Baud, clk, logger)
	}

	arb := arbiter.New(dial, arbiter.Options{}, aud, clk, logger)

	// The poller's sink and the gateway's getall cache point at each
	// other; the sink closure breaks the construction cycle. Nothing
	// emits before both exist.
	var srv *gateway.Server
	poller := telemetry.New(arb, cfg.Telemetry.PollHz, func(e telemetry.Event) { srv.Broadcast(e) }, clk, logger)
	srv = gateway.New(arb, poller, aud, gateway.Options{}, clk, logger)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		arb.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()

	httpServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler: srv,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()
	logger.Info("laserbridge running",
		"addr", httpServer.Addr,
		"serial", cfg.Serial.Device,
		"baud", cfg.Serial.Baud,
		"poll_hz", cfg.Telemetry.PollHz,
	)

	select {
	case err := <-serveErr:
		stop()
		wg.Wait()
		return fmt.Errorf("listen on %s: %w", httpServer.Addr, err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	wg.Wait()
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server", "error", err)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
