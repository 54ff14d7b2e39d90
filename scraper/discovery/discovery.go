// Package discovery crawls the public leaderboards for recent game ids.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "greedysnek-scraper/1.0 (replay-evaluation)"

type Config struct {
	// BaseURL resolves the relative links found on leaderboard pages.
	BaseURL      string
	Leaderboards []string // paths under BaseURL, e.g. /leaderboard/standard
	RequestDelay time.Duration
	// MaxPlayers caps players checked per leaderboard; 0 means no cap.
	MaxPlayers int
}

func DefaultConfig() Config {
	return Config{
		BaseURL: "https://play.battlesnake.com",
		Leaderboards: []string{
			"/leaderboard/standard",
			"/leaderboard/standard-duels",
		},
		RequestDelay: 500 * time.Millisecond,
		MaxPlayers:   100,
	}
}

var (
	gameIDRe = regexp.MustCompile(`/game/([a-f0-9-]+)`)
	// /leaderboard/{arena}/{username}/stats
	playerRe = regexp.MustCompile(`/leaderboard/[^/]+/([^/]+)/stats`)
	arenaRe  = regexp.MustCompile(`/leaderboard/([^/]+)/?$`)
)

type Worker struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger

	mu    sync.Mutex
	known map[string]bool
}

// NewWorker returns a crawler that never emits an id in known.
func NewWorker(cfg Config, known map[string]bool, logger *slog.Logger) *Worker {
	if known == nil {
		known = make(map[string]bool)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    logger.With("component", "discovery"),
		known:  known,
	}
}

type player struct {
	username string
	statsURL string
}

// Discover sends every new game id to out. It returns when all leaderboards
// have been crawled or ctx is done. Failing pages are logged and skipped.
func (w *Worker) Discover(ctx context.Context, out chan<- string) error {
	total := 0
	for _, board := range w.cfg.Leaderboards {
		boardURL := w.cfg.BaseURL + board
		players, arena, err := w.leaderboardPlayers(ctx, boardURL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Warn("leaderboard failed", "url", boardURL, "err", err)
			continue
		}
		if w.cfg.MaxPlayers > 0 && len(players) > w.cfg.MaxPlayers {
			players = players[:w.cfg.MaxPlayers]
		}
		w.log.Info("leaderboard", "arena", arena, "players", len(players))

		found := 0
		for i, p := range players {
			ids, err := w.playerGames(ctx, p.statsURL)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.log.Warn("player games failed", "player", p.username, "err", err)
				continue
			}
			w.log.Debug("player", "arena", arena, "n", i+1, "of", len(players), "player", p.username, "games", len(ids))

			for _, id := range ids {
				if !w.markNew(id) {
					continue
				}
				select {
				case out <- id:
					found++
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			if err := sleep(ctx, w.cfg.RequestDelay); err != nil {
				return err
			}
		}
		w.log.Info("leaderboard done", "arena", arena, "new_games", found)
		total += found
	}
	w.log.Info("discovery complete", "new_games", total)
	return nil
}

// AddKnownID stops id from being emitted.
func (w *Worker) AddKnownID(id string) {
	w.markNew(id)
}

func (w *Worker) markNew(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.known[id] {
		return false
	}
	w.known[id] = true
	return true
}

func (w *Worker) leaderboardPlayers(ctx context.Context, boardURL string) ([]player, string, error) {
	doc, err := w.fetch(ctx, boardURL)
	if err != nil {
		return nil, "", err
	}

	arena := "unknown"
	if m := arenaRe.FindStringSubmatch(boardURL); len(m) >= 2 {
		arena = m[1]
	}

	var players []player
	seen := make(map[string]bool)
	doc.Find("a[href*='/leaderboard/']").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		m := playerRe.FindStringSubmatch(href)
		if len(m) < 2 || seen[m[1]] {
			return
		}
		seen[m[1]] = true
		players = append(players, player{username: m[1], statsURL: w.resolve(href)})
	})
	return players, arena, nil
}

func (w *Worker) playerGames(ctx context.Context, statsURL string) ([]string, error) {
	doc, err := w.fetch(ctx, statsURL)
	if err != nil {
		return nil, err
	}

	var ids []string
	seen := make(map[string]bool)
	doc.Find("a[href*='/game/']").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		m := gameIDRe.FindStringSubmatch(href)
		if len(m) < 2 || seen[m[1]] {
			return
		}
		seen[m[1]] = true
		ids = append(ids, m[1])
	})
	return ids, nil
}

func (w *Worker) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %d", pageURL, resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

func (w *Worker) resolve(href string) string {
	base, err := url.Parse(w.cfg.BaseURL)
	if err != nil {
		return w.cfg.BaseURL + href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return w.cfg.BaseURL + href
	}
	return base.ResolveReference(ref).String()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
