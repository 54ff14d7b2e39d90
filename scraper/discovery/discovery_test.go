package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/leaderboard/standard", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><table>
			<tr><td><a href="/leaderboard/standard/alice/stats">alice</a></td></tr>
			<tr><td><a href="/leaderboard/standard/bob/stats">bob</a></td></tr>
			<tr><td><a href="/leaderboard/standard/alice/stats">alice again</a></td></tr>
			<tr><td><a href="/leaderboard/standard">self</a></td></tr>
		</table></body></html>`)
	})
	mux.HandleFunc("/leaderboard/standard/alice/stats", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="/game/aaaa-1111">g</a><a href="/game/bbbb-2222">g</a><a href="/game/aaaa-1111">dup</a>`)
	})
	mux.HandleFunc("/leaderboard/standard/bob/stats", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="/game/bbbb-2222">g</a><a href="/game/cccc-3333">g</a>`)
	})
	mux.HandleFunc("/leaderboard/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func collect(t *testing.T, w *Worker) []string {
	t.Helper()
	out := make(chan string, 100)
	require.NoError(t, w.Discover(context.Background(), out))
	close(out)
	var ids []string
	for id := range out {
		ids = append(ids, id)
	}
	return ids
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDiscover_FindsUniqueGames(t *testing.T) {
	ts := newSite(t)
	w := NewWorker(Config{BaseURL: ts.URL, Leaderboards: []string{"/leaderboard/broken", "/leaderboard/standard"}}, nil, quietLogger())

	assert.Equal(t, []string{"aaaa-1111", "bbbb-2222", "cccc-3333"}, collect(t, w))
}

func TestDiscover_SkipsKnownAndCapsPlayers(t *testing.T) {
	ts := newSite(t)
	known := map[string]bool{"aaaa-1111": true}
	w := NewWorker(Config{BaseURL: ts.URL, Leaderboards: []string{"/leaderboard/standard"}, MaxPlayers: 1}, known, quietLogger())

	assert.Equal(t, []string{"bbbb-2222"}, collect(t, w))

	w.AddKnownID("cccc-3333")
	w.cfg.MaxPlayers = 0
	assert.Empty(t, collect(t, w))
}

func TestDiscover_Cancelled(t *testing.T) {
	ts := newSite(t)
	w := NewWorker(Config{BaseURL: ts.URL, Leaderboards: []string{"/leaderboard/standard"}}, nil, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Discover(ctx, make(chan string))
	assert.ErrorIs(t, err, context.Canceled)
}
