package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type RecorderConfig struct {
	OutDir string
	// FlushGames triggers a batch once this many games have ended.
	FlushGames int
	// IdleTimeout ends open games that saw no row for this long, so a lost
	// /end does not pin them in memory. 0 disables eviction.
	IdleTimeout time.Duration
}

type RecorderStats struct {
	OpenGames     int
	BufferedGames int
	BufferedRows  int
	Batches       int
	RowsWritten   int
	Evicted       int
}

type openGame struct {
	rows     []MoveRow
	lastSeen time.Time
}

// Recorder buffers move rows per game and writes finished games in batches.
// It is safe for concurrent use by request handlers.
type Recorder struct {
	cfg     RecorderConfig
	written *WrittenLog
	log     *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	open      map[string]*openGame
	rows      []MoveRow
	games     []string
	batches   int
	rowsTotal int
	evicted   int
}

// NewRecorder returns a recorder writing into cfg.OutDir. written may be nil,
// in which case games are not deduplicated across restarts.
func NewRecorder(cfg RecorderConfig, written *WrittenLog, logger *slog.Logger) *Recorder {
	if cfg.FlushGames <= 0 {
		cfg.FlushGames = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		cfg:     cfg,
		written: written,
		log:     logger.With("component", "recorder"),
		now:     time.Now,
		open:    make(map[string]*openGame),
	}
}

// Begin opens a buffer for gameID. Games already in the written log are ignored.
func (r *Recorder) Begin(gameID string) {
	if r.written != nil && r.written.Has(gameID) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch(gameID)
}

// Record appends a row to its game's buffer, opening it if Begin was missed.
func (r *Recorder) Record(row MoveRow) {
	if r.written != nil && r.written.Has(row.GameID) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.touch(row.GameID)
	g.rows = append(g.rows, row)
}

// touch must be called with mu held.
func (r *Recorder) touch(gameID string) *openGame {
	g, ok := r.open[gameID]
	if !ok {
		g = &openGame{}
		r.open[gameID] = g
	}
	g.lastSeen = r.now()
	return g
}

// End moves the game's rows into the pending batch and flushes when enough
// games have accumulated.
func (r *Recorder) End(gameID string) {
	r.mu.Lock()
	if g, ok := r.open[gameID]; ok {
		delete(r.open, gameID)
		r.finish(gameID, g)
	}
	full := len(r.games) >= r.cfg.FlushGames
	r.mu.Unlock()

	if full {
		r.Flush("count")
	}
}

// finish must be called with mu held.
func (r *Recorder) finish(gameID string, g *openGame) {
	if len(g.rows) == 0 {
		return
	}
	r.rows = append(r.rows, g.rows...)
	r.games = append(r.games, gameID)
}

// Add buffers rows of an already finished game in one step.
func (r *Recorder) Add(gameID string, rows []MoveRow) {
	if len(rows) == 0 {
		return
	}
	r.Begin(gameID)
	for _, row := range rows {
		r.Record(row)
	}
	r.End(gameID)
}

// EvictIdle ends every open game whose last row is older than IdleTimeout
// at now. It returns the number of games ended.
func (r *Recorder) EvictIdle(now time.Time) int {
	if r.cfg.IdleTimeout <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, g := range r.open {
		if now.Sub(g.lastSeen) < r.cfg.IdleTimeout {
			continue
		}
		delete(r.open, id)
		r.finish(id, g)
		n++
	}
	r.evicted += n
	return n
}

// Flush writes every finished game as one batch. It returns the batch path,
// or "" when nothing was pending or the write failed.
func (r *Recorder) Flush(reason string) string {
	r.mu.Lock()
	rows, games := r.rows, r.games
	r.rows, r.games = nil, nil
	r.mu.Unlock()

	if len(games) == 0 {
		return ""
	}

	path, err := WriteMoveBatchAtomic(r.cfg.OutDir, rows)
	if err != nil {
		r.log.Error("flush failed", "reason", reason, "games", len(games), "err", err)
		// Keep the rows for the next attempt.
		r.mu.Lock()
		r.rows = append(rows, r.rows...)
		r.games = append(games, r.games...)
		r.mu.Unlock()
		return ""
	}

	if r.written != nil {
		if err := r.written.AddMany(games); err != nil {
			// The batch is on disk; a missing log entry only risks a duplicate.
			r.log.Warn("written log append failed", "reason", reason, "err", err)
		}
	}

	r.mu.Lock()
	r.batches++
	r.rowsTotal += len(rows)
	r.mu.Unlock()

	r.log.Info("flushed batch", "reason", reason, "games", len(games), "rows", len(rows), "path", path)
	return path
}

// Close ends every open game and flushes. Call it once no more rows can
// arrive, i.e. after the producers have stopped.
func (r *Recorder) Close() string {
	r.mu.Lock()
	for id, g := range r.open {
		r.finish(id, g)
	}
	r.open = make(map[string]*openGame)
	r.mu.Unlock()

	return r.Flush("shutdown")
}

// Run evicts idle games and flushes on a ticker until ctx is done. It does
// not close the recorder: rows may still arrive while producers drain.
func (r *Recorder) Run(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = time.Hour
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.EvictIdle(r.now()); n > 0 {
				r.log.Info("evicted idle games", "games", n)
			}
			r.Flush("ticker")
		}
	}
}

func (r *Recorder) Stats() RecorderStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RecorderStats{
		OpenGames:     len(r.open),
		BufferedGames: len(r.games),
		BufferedRows:  len(r.rows),
		Batches:       r.batches,
		RowsWritten:   r.rowsTotal,
		Evicted:       r.evicted,
	}
}
