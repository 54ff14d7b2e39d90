// Package downloader streams finished games from the engine's websocket feed.
package downloader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/gorilla/websocket"
)

var ErrNoFrames = errors.New("game has no frames")

type Config struct {
	// EngineURL is a template with one %s for the game id.
	EngineURL      string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		EngineURL:      "wss://engine.battlesnake.com/games/%s/events",
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    30 * time.Second,
	}
}

// GameEvent is one message on the event stream.
type GameEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// GameInfo is the "game_info" event.
type GameInfo struct {
	Game    GameDetails `json:"game"`
	Ruleset RulesetInfo `json:"ruleset"`
}

type GameDetails struct {
	ID      string `json:"id"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Timeout int    `json:"timeout"`
	Map     string `json:"map"`
}

type RulesetInfo struct {
	Name     string          `json:"name"`
	Version  string          `json:"version"`
	Settings json.RawMessage `json:"settings"`
}

// FrameData is a "frame" event: the board after Turn moves.
type FrameData struct {
	Turn    int         `json:"turn"`
	Snakes  []SnakeData `json:"snakes"`
	Food    []Coord     `json:"food"`
	Hazards []Coord     `json:"hazards"`
}

type SnakeData struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Health int     `json:"health"`
	Body   []Coord `json:"body"`
	Author string  `json:"author,omitempty"`
	Squad  string  `json:"squad,omitempty"`
	Death  *Death  `json:"death,omitempty"`
}

type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Death struct {
	Cause string `json:"cause"`
	Turn  int    `json:"turn"`
}

// DownloadGame reads the event stream of gameID until game_end or the server
// closes the socket. Frames are returned in turn order.
func DownloadGame(ctx context.Context, gameID string, cfg Config) (GameInfo, []FrameData, error) {
	url := fmt.Sprintf(cfg.EngineURL, gameID)
	dialer := websocket.Dialer{HandshakeTimeout: cfg.ConnectTimeout}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return GameInfo{}, nil, fmt.Errorf("connecting to %s: %w", url, err)
	}
	defer conn.Close()

	// Unblock ReadMessage on cancellation.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var (
		info   GameInfo
		frames []FrameData
	)

read:
	for {
		if cfg.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return info, nil, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || len(frames) > 0 {
				break
			}
			return info, nil, fmt.Errorf("reading %s: %w", gameID, err)
		}

		var event GameEvent
		if err := json.Unmarshal(message, &event); err != nil {
			slog.Debug("skipping unparseable event", "game_id", gameID, "err", err)
			continue
		}

		switch event.Type {
		case "game_info":
			if err := json.Unmarshal(event.Data, &info); err != nil {
				slog.Debug("bad game_info", "game_id", gameID, "err", err)
			}
		case "frame":
			var frame FrameData
			if err := json.Unmarshal(event.Data, &frame); err != nil {
				slog.Debug("bad frame", "game_id", gameID, "err", err)
				continue
			}
			frames = append(frames, frame)
		case "game_end":
			break read
		}
	}

	if len(frames) == 0 {
		return info, nil, fmt.Errorf("%s: %w", gameID, ErrNoFrames)
	}
	slices.SortStableFunc(frames, func(a, b FrameData) int { return a.Turn - b.Turn })
	if info.Game.ID == "" {
		info.Game.ID = gameID
	}
	return info, frames, nil
}

// Winner returns the name of the only snake alive in the last frame, or
// "draw".
func Winner(frames []FrameData) string {
	if len(frames) == 0 {
		return "unknown"
	}
	var alive []SnakeData
	for _, s := range frames[len(frames)-1].Snakes {
		if s.Death == nil && s.Health > 0 {
			alive = append(alive, s)
		}
	}
	if len(alive) == 1 {
		return alive[0].Name
	}
	return "draw"
}
