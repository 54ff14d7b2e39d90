// Package main runs the greedy Battlesnake HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brensch/greedysnek/api"
	"github.com/brensch/greedysnek/config"
	"github.com/brensch/greedysnek/greedy"
	"github.com/brensch/greedysnek/logging"
	"github.com/brensch/greedysnek/server"
	"github.com/brensch/greedysnek/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "battlesnake: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("battlesnake", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configPath := fs.String("config", config.GetEnvOrDefault(config.PathEnv, config.DefaultPath), "YAML config file")
	listen := fs.String("listen", "", "HTTP listen address (overrides config)")
	seed := fs.Int64("seed", 0, "Random seed (overrides config; 0 keeps config)")
	logLevel := fs.String("log-level", "", "debug, info, warn or error (overrides config)")
	logFormat := fs.String("log-format", "", "pretty, json or text (overrides config)")
	record := fs.Bool("record", false, "Write every decision to parquet")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("flag parse: %w", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *record {
		cfg.Record.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger, err := logging.New(os.Stderr, logging.Options{Format: cfg.Log.Format, Level: level, AddSource: cfg.Log.AddSource})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	selector := greedy.New(greedy.NewLockedSource(cfg.Seed))

	opts := server.Options{
		Selector: selector,
		Info: api.InfoResponse{
			APIVersion: "1",
			Author:     cfg.Appearance.Author,
			Color:      cfg.Appearance.Color,
			Head:       cfg.Appearance.Head,
			Tail:       cfg.Appearance.Tail,
			Version:    cfg.Appearance.Version,
		},
		Logger: logger,
	}

	var recorder *store.Recorder
	if cfg.Record.Enabled {
		if err := os.MkdirAll(cfg.Record.OutDir, 0o755); err != nil {
			return fmt.Errorf("creating record dir: %w", err)
		}
		written, err := store.OpenWrittenLog(cfg.Record.LogPath)
		if err != nil {
			return err
		}
		defer written.Close()

		recorder = store.NewRecorder(store.RecorderConfig{
			OutDir:      cfg.Record.OutDir,
			FlushGames:  cfg.Record.FlushGames,
			IdleTimeout: cfg.Record.IdleTimeout,
		}, written, logger)
		opts.Recorder = recorder
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.New(opts).Handler(),
		ReadHeaderTimeout: cfg.Timeouts.ReadHeader,
		ReadTimeout:       cfg.Timeouts.Read,
		WriteTimeout:      cfg.Timeouts.Write,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("battlesnake server listening", "addr", cfg.Listen, "seed", cfg.Seed, "record", cfg.Record.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if recorder == nil {
		return g.Wait()
	}

	// The flush loop outlives the server: handlers still record while
	// Shutdown drains them, and Close must come after the last one.
	flushCtx, stopFlush := context.WithCancel(context.Background())
	flushDone := make(chan error, 1)
	go func() { flushDone <- recorder.Run(flushCtx, cfg.Record.FlushEvery) }()

	err = g.Wait()
	stopFlush()
	<-flushDone
	recorder.Close()
	return err
}
