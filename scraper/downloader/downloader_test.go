package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/greedysnek/game"
	"github.com/brensch/greedysnek/greedy"
	"github.com/brensch/greedysnek/store"
)

func event(t *testing.T, typ string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	b, err := json.Marshal(GameEvent{Type: typ, Data: raw})
	require.NoError(t, err)
	return b
}

// Two snakes on a 7x7 board. "a" walks left onto the food at (1,3); "b" turns
// up the right wall and then runs off the board.
func sampleGame() (GameInfo, []FrameData) {
	info := GameInfo{
		Game:    GameDetails{ID: "game-1", Width: 7, Height: 7, Timeout: 500},
		Ruleset: RulesetInfo{Name: "standard"},
	}
	frames := []FrameData{
		{Turn: 0, Food: []Coord{{1, 3}}, Snakes: []SnakeData{
			{ID: "a", Name: "alpha", Health: 100, Body: []Coord{{3, 3}, {4, 3}, {5, 3}}},
			{ID: "b", Name: "beta", Health: 100, Body: []Coord{{6, 0}, {5, 0}, {4, 0}}},
		}},
		{Turn: 1, Food: []Coord{{1, 3}}, Snakes: []SnakeData{
			{ID: "a", Name: "alpha", Health: 99, Body: []Coord{{2, 3}, {3, 3}, {4, 3}}},
			{ID: "b", Name: "beta", Health: 99, Body: []Coord{{6, 1}, {6, 0}, {5, 0}}},
		}},
		{Turn: 2, Snakes: []SnakeData{
			{ID: "a", Name: "alpha", Health: 100, Body: []Coord{{1, 3}, {2, 3}, {3, 3}, {3, 3}}},
			{ID: "b", Name: "beta", Health: 0, Body: []Coord{{7, 1}, {6, 1}, {6, 0}}, Death: &Death{Cause: "wall-collision", Turn: 2}},
		}},
	}
	return info, frames
}

func newEngine(t *testing.T, send func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/games/game-1/events" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		send(conn)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func testConfig(ts *httptest.Server) Config {
	return Config{
		EngineURL:      "ws" + strings.TrimPrefix(ts.URL, "http") + "/games/%s/events",
		ConnectTimeout: time.Second,
		ReadTimeout:    2 * time.Second,
	}
}

func TestDownloadGame(t *testing.T) {
	info, frames := sampleGame()
	// Out of order on purpose, plus some noise.
	messages := [][]byte{
		event(t, "game_info", info),
		event(t, "frame", frames[1]),
		[]byte("not json"),
		event(t, "frame", frames[0]),
		event(t, "frame", frames[2]),
		event(t, "game_end", map[string]any{}),
	}
	ts := newEngine(t, func(conn *websocket.Conn) {
		for _, m := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, m); err != nil {
				return
			}
		}
	})

	gotInfo, gotFrames, err := DownloadGame(context.Background(), "game-1", testConfig(ts))
	require.NoError(t, err)
	assert.Equal(t, "game-1", gotInfo.Game.ID)
	assert.Equal(t, 7, gotInfo.Game.Width)
	require.Len(t, gotFrames, 3)
	for i, f := range gotFrames {
		assert.Equal(t, i, f.Turn)
	}
	assert.Equal(t, "alpha", Winner(gotFrames))
}

func TestDownloadGame_CloseWithoutFrames(t *testing.T) {
	ts := newEngine(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	})

	_, _, err := DownloadGame(context.Background(), "game-1", testConfig(ts))
	assert.ErrorIs(t, err, ErrNoFrames)
}

func TestDownloadGame_Unreachable(t *testing.T) {
	ts := newEngine(t, func(*websocket.Conn) {})
	_, _, err := DownloadGame(context.Background(), "other", testConfig(ts))
	assert.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	info, frames := sampleGame()
	rows, stats, err := Evaluate(frames, info, greedy.New(greedy.NewLockedSource(1)))
	require.NoError(t, err)

	// Two live snakes on turns 0 and 1.
	require.Len(t, rows, 4)
	assert.Equal(t, 4, stats.Decisions)
	assert.Equal(t, 4, stats.Known)

	byKey := make(map[string]store.MoveRow)
	for _, r := range rows {
		assert.Equal(t, store.SourceReplay, r.Source)
		assert.Equal(t, "game-1", r.GameID)
		byKey[fmt.Sprintf("%s%d", r.YouID, r.Turn)] = r
	}

	a0 := byKey["a0"]
	assert.Equal(t, int32(game.Left), a0.Move)
	assert.Equal(t, int32(game.Left), a0.ActualMove)
	assert.Equal(t, "food", a0.Reason)

	// b's only open move is up, and it went up.
	b0 := byKey["b0"]
	assert.Equal(t, int32(game.Up), b0.Move)
	assert.Equal(t, int32(game.Up), b0.ActualMove)

	// b then moved right into the wall; the selector never would.
	b1 := byKey["b1"]
	assert.Equal(t, int32(game.Right), b1.ActualMove)
	assert.NotEqual(t, b1.ActualMove, b1.Move)

	assert.Equal(t, 3, stats.Agreed)
	assert.InDelta(t, 0.75, stats.Rate(), 1e-9)
}

func TestFrameState_SkipsDeadAndDefaultsSize(t *testing.T) {
	_, frames := sampleGame()
	state := FrameState(frames[2], GameInfo{})

	assert.Equal(t, 11, state.Board.Width)
	require.Len(t, state.Board.Snakes, 1)
	assert.Equal(t, "a", state.Board.Snakes[0].ID)
	assert.Equal(t, 4, state.Board.Snakes[0].Length)
}

func TestAgreement_Merge(t *testing.T) {
	a := Agreement{Decisions: 2, Known: 2, Agreed: 1}
	a.Merge(Agreement{Decisions: 3, Known: 2, Agreed: 2, NoSafe: 1})
	assert.Equal(t, Agreement{Decisions: 5, Known: 4, Agreed: 3, NoSafe: 1}, a)
	assert.Zero(t, Agreement{}.Rate())
}
