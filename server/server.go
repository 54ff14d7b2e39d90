// Package server exposes the move selector over the Battlesnake HTTP API.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/brensch/greedysnek/api"
	"github.com/brensch/greedysnek/greedy"
	"github.com/brensch/greedysnek/store"
)

// Recorder receives every decision. *store.Recorder implements it.
type Recorder interface {
	Begin(gameID string)
	Record(row store.MoveRow)
	End(gameID string)
}

type Options struct {
	Selector *greedy.Selector
	Info     api.InfoResponse
	Logger   *slog.Logger
	// Recorder is optional.
	Recorder Recorder
}

type Server struct {
	selector *greedy.Selector
	info     api.InfoResponse
	log      *slog.Logger
	recorder Recorder
}

func New(opts Options) *Server {
	info := opts.Info
	if info.APIVersion == "" {
		info.APIVersion = "1"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		selector: opts.Selector,
		info:     info,
		log:      logger,
		recorder: opts.Recorder,
	}
}

// Handler routes the four Battlesnake endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /start", s.handleStart)
	mux.HandleFunc("POST /move", s.handleMove)
	mux.HandleFunc("POST /end", s.handleEnd)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.log.Debug("info")
	s.writeJSON(w, s.info)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	s.log.Info("game start",
		"game_id", req.Game.ID,
		"ruleset", req.Game.Ruleset.Name,
		"turn", req.Turn,
		"you", req.You.Name,
		"width", req.Board.Width,
		"height", req.Board.Height,
	)
	if s.recorder != nil {
		s.recorder.Begin(req.Game.ID)
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	state := api.ToGameState(req)

	d, err := s.selector.Decide(state)
	if err != nil {
		s.log.Error("move failed", "game_id", state.Game.ID, "turn", state.Turn, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.log.Info("move",
		"game_id", state.Game.ID,
		"turn", state.Turn,
		"move", d.Move,
		"reason", d.Reason.String(),
		"safe", safeTokens(d.Safe),
		"elapsed", time.Since(startTime),
		"timeout_ms", state.Game.Timeout,
	)
	if d.Reason == greedy.ReasonNoSafeMoves {
		s.log.Warn("no safe moves detected", "game_id", state.Game.ID, "turn", state.Turn, "move", d.Move)
	}

	if s.recorder != nil {
		s.recorder.Record(store.NewMoveRow(state, d, store.SourceServer))
	}

	s.writeJSON(w, api.MoveResponse{
		Move:  d.Move.String(),
		Shout: d.Reason.String(),
	})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	youAlive := false
	for _, snake := range req.Board.Snakes {
		if snake.ID == req.You.ID {
			youAlive = true
			break
		}
	}

	result := "lost"
	if youAlive {
		result = "won"
	} else if len(req.Board.Snakes) == 0 {
		result = "draw"
	}

	s.log.Info("game over", "game_id", req.Game.ID, "turn", req.Turn, "result", result)
	if s.recorder != nil {
		s.recorder.End(req.Game.ID)
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*api.GameRequest, bool) {
	req, err := api.DecodeGameRequest(r.Body)
	if err != nil {
		s.log.Warn("bad request", "path", r.URL.Path, "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return req, true
}

func safeTokens(m greedy.SafetyMap) []string {
	moves := m.Moves()
	out := make([]string, len(moves))
	for i, d := range moves {
		out[i] = d.String()
	}
	return out
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "err", err)
	}
}
