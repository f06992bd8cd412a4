package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bucknalla/galileo-acquisition-sim/acquisition"
	"github.com/Bucknalla/galileo-acquisition-sim/internal/logging"
)

func main() {
	config := acquisition.DefaultConfig()
	var (
		addr      string
		staticDir string
		logLevel  string
		logFormat string
	)

	flag.StringVar(&addr, "addr", ":8080", "HTTP listen address")
	flag.StringVar(&staticDir, "static", "", "Directory with a web UI to serve (empty to disable)")
	flag.DurationVar(&config.TickInterval, "rate", config.TickInterval, "Progress tick interval")
	flag.IntVar(&config.Step, "step", config.Step, "Progress added per tick (1-100)")
	flag.BoolVar(&config.RerollReveal, "reroll", config.RerollReveal, "Re-randomize revealed satellites every tick of the reveal window")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&logFormat, "log-format", "text", "Log format (text or json)")
	flag.Parse()

	logger := logging.NewFromEnv(logging.Config{Level: logLevel, Format: logFormat})
	ctx := context.Background()

	webServer, err := NewWebServer(config, logger)
	if err != nil {
		logger.Error(ctx, "invalid configuration", logging.Err(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start the broadcast goroutine
	go webServer.hub.Run(ctx)

	server := &http.Server{
		Addr:         addr,
		Handler:      webServer.Router(staticDir),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := webServer.simulator.Stop(); err != nil && !errors.Is(err, acquisition.ErrSimulatorNotRunning) {
			logger.Warn(shutdownCtx, "failed to stop simulator", logging.Err(err))
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error(shutdownCtx, "server shutdown failed", logging.Err(err))
		}
	}()

	logger.Info(ctx, "starting Galileo acquisition web server", logging.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(ctx, "server failed", logging.Err(err))
		os.Exit(1)
	}
	logger.Info(context.Background(), "server stopped")
}
