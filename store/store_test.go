package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/greedysnek/game"
	"github.com/brensch/greedysnek/greedy"
)

func sampleState(gameID string, turn int) *game.GameState {
	me := game.Snake{ID: "me", Health: 80, Body: []game.Point{{X: 5, Y: 5}, {X: 5, Y: 4}, {X: 5, Y: 3}}}
	enemy := game.Snake{ID: "enemy", Health: 60, Body: []game.Point{{X: 1, Y: 1}, {X: 1, Y: 2}}}
	return &game.GameState{
		Game: game.Game{ID: gameID},
		Turn: turn,
		Board: game.Board{
			Width: 11, Height: 11,
			Food:    []game.Point{{X: 2, Y: 5}},
			Hazards: []game.Point{{X: 0, Y: 10}},
			Snakes:  []game.Snake{me, enemy},
		},
		You: me,
	}
}

func sampleRow(t *testing.T, gameID string, turn int) MoveRow {
	t.Helper()
	state := sampleState(gameID, turn)
	d, err := greedy.New(greedy.NewLockedSource(1)).Decide(state)
	require.NoError(t, err)
	return NewMoveRow(state, d, SourceServer)
}

func TestNewMoveRow(t *testing.T) {
	row := sampleRow(t, "g1", 7)

	assert.Equal(t, "g1", row.GameID)
	assert.Equal(t, int32(7), row.Turn)
	assert.Equal(t, "me", row.YouID)
	assert.Equal(t, int32(game.Left), row.Move)
	assert.Equal(t, "food", row.Reason)
	assert.Equal(t, []int32{int32(game.Up), int32(game.Left), int32(game.Right)}, row.SafeMoves)
	assert.True(t, row.HasTarget)
	assert.Equal(t, int32(2), row.TargetX)
	assert.Equal(t, int32(NoMove), row.ActualMove)
	require.Len(t, row.Snakes, 2)
	assert.Equal(t, []int32{5, 5, 5}, row.Snakes[0].BodyX)
	assert.Equal(t, []int32{5, 4, 3}, row.Snakes[0].BodyY)

	back := row.State()
	assert.Equal(t, sampleState("g1", 7).Board.Snakes[1].Body, back.Board.Snakes[1].Body)
	assert.Equal(t, "me", back.You.ID)
	assert.Equal(t, game.Point{X: 5, Y: 5}, back.You.Head)
}

func TestWriteMoveBatchAtomic_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	rows := []MoveRow{sampleRow(t, "g1", 0), sampleRow(t, "g1", 1)}

	path, err := WriteMoveBatchAtomic(dir, rows)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	tmp, err := os.ReadDir(filepath.Join(dir, "tmp"))
	require.NoError(t, err)
	assert.Empty(t, tmp, "tmp file is renamed away")

	got, err := ReadMoveRows(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, rows[1].Turn, got[1].Turn)
	assert.Equal(t, rows[0].Snakes, got[0].Snakes)
	assert.Equal(t, rows[0].SafeMoves, got[0].SafeMoves)
	assert.Equal(t, rows[0].Reason, got[0].Reason)

	_, err = WriteMoveBatchAtomic(dir, nil)
	assert.Error(t, err)
}

func TestWrittenLog_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "written.log")

	l, err := OpenWrittenLog(path)
	require.NoError(t, err)
	require.NoError(t, l.AddMany([]string{"a", "b", "", "a"}))
	assert.Equal(t, 2, l.Count())
	require.NoError(t, l.Close())
	assert.Error(t, l.AddMany([]string{"c"}))

	l, err = OpenWrittenLog(path)
	require.NoError(t, err)
	defer l.Close()
	assert.True(t, l.Has("a"))
	assert.True(t, l.Has("b"))
	assert.False(t, l.Has("c"))
	assert.Equal(t, map[string]bool{"a": true, "b": true}, l.Snapshot())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(data))
}

func TestRecorder_FlushesOnGameCount(t *testing.T) {
	dir := t.TempDir()
	written, err := OpenWrittenLog(filepath.Join(dir, "written.log"))
	require.NoError(t, err)
	defer written.Close()

	rec := NewRecorder(RecorderConfig{OutDir: dir, FlushGames: 2}, written, nil)

	rec.Begin("g1")
	rec.Record(sampleRow(t, "g1", 0))
	rec.Record(sampleRow(t, "g1", 1))
	rec.End("g1")
	assert.Equal(t, RecorderStats{BufferedGames: 1, BufferedRows: 2}, rec.Stats())

	rec.Add("g2", []MoveRow{sampleRow(t, "g2", 0)})

	stats := rec.Stats()
	assert.Equal(t, 1, stats.Batches)
	assert.Equal(t, 3, stats.RowsWritten)
	assert.Zero(t, stats.BufferedGames)
	assert.True(t, written.Has("g1"))
	assert.True(t, written.Has("g2"))

	matches, err := filepath.Glob(filepath.Join(dir, "moves_*.parquet"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	rows, err := ReadMoveRows(matches[0])
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	// A game already in the log is not recorded again.
	rec.Begin("g1")
	rec.Record(sampleRow(t, "g1", 5))
	assert.Zero(t, rec.Stats().OpenGames)
}

func TestRecorder_CloseFlushesOpenGames(t *testing.T) {
	dir := t.TempDir()
	rec := NewRecorder(RecorderConfig{OutDir: dir, FlushGames: 10}, nil, nil)

	assert.Empty(t, rec.Flush("empty"))

	rec.Record(sampleRow(t, "g1", 0))
	assert.Equal(t, 1, rec.Stats().OpenGames)

	path := rec.Close()
	require.NotEmpty(t, path)
	rows, err := ReadMoveRows(path)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Zero(t, rec.Stats().OpenGames)
}

func TestRecorder_RowsAfterRunStopsStillReachDisk(t *testing.T) {
	dir := t.TempDir()
	written, err := OpenWrittenLog(filepath.Join(dir, "written.log"))
	require.NoError(t, err)
	defer written.Close()

	rec := NewRecorder(RecorderConfig{OutDir: dir, FlushGames: 10}, written, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx, time.Hour) }()

	rec.Begin("g1")
	rec.Record(sampleRow(t, "g1", 1))
	cancel()
	require.NoError(t, <-done)

	// A request still draining after the flush loop stopped.
	rec.Record(sampleRow(t, "g1", 2))
	rec.End("g1")
	assert.Equal(t, 2, rec.Stats().BufferedRows)

	path := rec.Close()
	require.NotEmpty(t, path)
	rows, err := ReadMoveRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int32(1), rows[0].Turn)
	assert.Equal(t, int32(2), rows[1].Turn)
	assert.True(t, written.Has("g1"))
	assert.Zero(t, rec.Stats().BufferedRows)
}

func TestRecorder_EvictIdle(t *testing.T) {
	dir := t.TempDir()
	rec := NewRecorder(RecorderConfig{OutDir: dir, FlushGames: 10, IdleTimeout: time.Minute}, nil, nil)

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rec.now = func() time.Time { return start }
	rec.Record(sampleRow(t, "stale", 0))
	rec.Begin("empty")

	rec.now = func() time.Time { return start.Add(50 * time.Second) }
	rec.Record(sampleRow(t, "live", 0))

	assert.Zero(t, rec.EvictIdle(start.Add(30*time.Second)))
	assert.Equal(t, 2, rec.EvictIdle(start.Add(90*time.Second)))

	stats := rec.Stats()
	assert.Equal(t, 1, stats.OpenGames, "live game stays open")
	assert.Equal(t, 1, stats.BufferedGames, "empty game is dropped")
	assert.Equal(t, 1, stats.BufferedRows)
	assert.Equal(t, 2, stats.Evicted)

	path := rec.Flush("test")
	require.NotEmpty(t, path)
	rows, err := ReadMoveRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "stale", rows[0].GameID)
}

func TestRecorder_EvictIdleDisabled(t *testing.T) {
	rec := NewRecorder(RecorderConfig{OutDir: t.TempDir()}, nil, nil)
	rec.Record(sampleRow(t, "g1", 0))
	assert.Zero(t, rec.EvictIdle(time.Now().Add(24*time.Hour)))
	assert.Equal(t, 1, rec.Stats().OpenGames)
}
