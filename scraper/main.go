// Command scraper replays real leaderboard games through the greedy selector
// and writes each decision, with the move the real snake made, to parquet.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brensch/greedysnek/config"
	"github.com/brensch/greedysnek/greedy"
	"github.com/brensch/greedysnek/logging"
	"github.com/brensch/greedysnek/scraper/discovery"
	"github.com/brensch/greedysnek/scraper/downloader"
	"github.com/brensch/greedysnek/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "scraper: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scraper", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	outDir := fs.String("out-dir", config.GetEnvOrDefault("OUT_DIR", "data/replays"), "Directory to write batch .parquet files")
	logPath := fs.String("log-path", config.GetEnvOrDefault("WRITTEN_LOG", "data/replays/written_games.log"), "Append-only log of game IDs already written")
	flushGames := fs.Int("flush-games", config.GetEnvIntOrDefault("FLUSH_GAMES", 1000), "Flush when buffered games reaches this count")
	flushEvery := fs.Duration("flush-every", config.GetEnvDurationOrDefault("FLUSH_EVERY", time.Hour), "Flush at this interval regardless of buffered count")
	maxPlayers := fs.Int("max-players", config.GetEnvIntOrDefault("MAX_PLAYERS", 50), "Maximum number of players to check per leaderboard")
	requestDelay := fs.Duration("delay", config.GetEnvDurationOrDefault("DELAY", 500*time.Millisecond), "Delay between HTTP requests")
	seed := fs.Int64("seed", int64(config.GetEnvIntOrDefault("SEED", 0)), "Selector seed (0 picks one from the clock)")
	logFormat := fs.String("log-format", config.GetEnvOrDefault("LOG_FORMAT", logging.FormatPretty), "pretty, json or text")
	logLevel := fs.String("log-level", config.GetEnvOrDefault("LOG_LEVEL", "info"), "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("flag parse: %w", err)
	}

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		return err
	}
	logger, err := logging.New(os.Stderr, logging.Options{Format: *logFormat, Level: level})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("creating out dir: %w", err)
	}
	written, err := store.OpenWrittenLog(*logPath)
	if err != nil {
		return err
	}
	defer written.Close()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	logger.Info("starting scraper",
		"out_dir", *outDir,
		"written_log", *logPath,
		"already_written", written.Count(),
		"flush_games", *flushGames,
		"flush_every", *flushEvery,
		"max_players", *maxPlayers,
		"delay", *requestDelay,
		"seed", *seed,
	)

	discCfg := discovery.DefaultConfig()
	discCfg.MaxPlayers = *maxPlayers
	discCfg.RequestDelay = *requestDelay

	recorder := store.NewRecorder(store.RecorderConfig{OutDir: *outDir, FlushGames: *flushGames}, written, logger)
	s := &scraper{
		disc:     discovery.NewWorker(discCfg, written.Snapshot(), logger),
		dlCfg:    downloader.DefaultConfig(),
		selector: greedy.New(greedy.NewLockedSource(*seed)),
		recorder: recorder,
		written:  written,
		log:      logger,
	}

	g, gctx := errgroup.WithContext(ctx)
	ids := make(chan string, 1000)

	g.Go(func() error {
		defer close(ids)
		return s.disc.Discover(gctx, ids)
	})

	// The flush loop outlives the pipeline; Close writes the final batch once
	// the consumer has stopped.
	flushCtx, stopFlush := context.WithCancel(context.Background())
	flushDone := make(chan error, 1)
	go func() { flushDone <- recorder.Run(flushCtx, *flushEvery) }()

	g.Go(func() error {
		return s.consume(gctx, ids)
	})

	err = g.Wait()
	stopFlush()
	<-flushDone
	recorder.Close()

	st := recorder.Stats()
	logger.Info("scraping complete",
		"attempted", s.stats.attempted,
		"downloaded", s.stats.downloaded,
		"skipped", s.stats.skipped,
		"failed", s.stats.failed,
		"decisions", s.agreement.Decisions,
		"agreement", s.agreement.Rate(),
		"batches", st.Batches,
		"rows_written", st.RowsWritten,
	)

	if ctx.Err() != nil {
		// Interrupted; the final batch is already on disk.
		return nil
	}
	return err
}

type scraper struct {
	disc     *discovery.Worker
	dlCfg    downloader.Config
	selector *greedy.Selector
	recorder *store.Recorder
	written  *store.WrittenLog
	log      *slog.Logger

	stats struct {
		attempted, downloaded, skipped, failed int
	}
	agreement downloader.Agreement
}

func (s *scraper) consume(ctx context.Context, ids <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case gameID, ok := <-ids:
			if !ok {
				return nil
			}
			s.process(ctx, gameID)
		}
	}
}

func (s *scraper) process(ctx context.Context, gameID string) {
	if s.written.Has(gameID) {
		s.stats.skipped++
		return
	}
	s.stats.attempted++

	info, frames, err := downloader.DownloadGame(ctx, gameID, s.dlCfg)
	if err != nil {
		s.fail(gameID, "download", err)
		return
	}
	if len(frames) < 2 {
		s.fail(gameID, "download", fmt.Errorf("not enough frames: %d", len(frames)))
		return
	}

	rows, agreement, err := downloader.Evaluate(frames, info, s.selector)
	if err != nil {
		s.fail(gameID, "evaluate", err)
		return
	}
	if len(rows) == 0 {
		s.fail(gameID, "evaluate", fmt.Errorf("no live snakes"))
		return
	}

	s.recorder.Add(gameID, rows)
	s.agreement.Merge(agreement)
	s.stats.downloaded++

	s.log.Debug("game evaluated",
		"game_id", gameID,
		"turns", len(frames),
		"winner", downloader.Winner(frames),
		"rows", len(rows),
		"agreement", agreement.Rate(),
	)
	if s.stats.downloaded%50 == 0 {
		st := s.recorder.Stats()
		s.log.Info("progress",
			"downloaded", s.stats.downloaded,
			"skipped", s.stats.skipped,
			"failed", s.stats.failed,
			"buffered_games", st.BufferedGames,
			"buffered_rows", st.BufferedRows,
			"agreement", s.agreement.Rate(),
		)
	}
}

// fail logs every 50th failure so a dead engine does not flood the log.
func (s *scraper) fail(gameID, stage string, err error) {
	s.stats.failed++
	if s.stats.failed%50 == 1 {
		s.log.Warn("game failed", "stage", stage, "failures", s.stats.failed, "game_id", gameID, "err", err)
	}
}
