package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/greedysnek/arena"
)

type GameUpdate struct {
	WorkerID int
	Result   arena.Result
}

type TickMsg time.Time

type model struct {
	gamesPlayed int
	draws       int
	totalTurns  int
	wins        map[string]int
	moves       int64
	startTime   time.Time
	recentGames []string
	updates     chan GameUpdate
}

func initialModel(updates chan GameUpdate) model {
	return model{
		startTime: time.Now(),
		wins:      make(map[string]int),
		updates:   updates,
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func waitForUpdate(updates chan GameUpdate) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		m.moves = totalMoves.Load()
		return m, tickCmd()
	case GameUpdate:
		m.gamesPlayed++
		m.totalTurns += msg.Result.Turns
		winner := msg.Result.Winner
		if winner == "" {
			m.draws++
			winner = "draw"
		} else {
			m.wins[winner]++
		}
		line := fmt.Sprintf("Worker %d: %s winner %s, turns %d", msg.WorkerID, msg.Result.GameID, winner, msg.Result.Turns)
		m.recentGames = append([]string{line}, m.recentGames...)
		if len(m.recentGames) > 10 {
			m.recentGames = m.recentGames[:10]
		}
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	gamesPerSec, movesPerSec := 0.0, 0.0
	if duration.Seconds() >= 1 {
		gamesPerSec = float64(m.gamesPlayed) / duration.Seconds()
		movesPerSec = float64(m.moves) / duration.Seconds()
	}
	avgTurns := 0.0
	if m.gamesPlayed > 0 {
		avgTurns = float64(m.totalTurns) / float64(m.gamesPlayed)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Games Played:   %d\n", m.gamesPlayed)
	fmt.Fprintf(&b, "Draws:          %d\n", m.draws)
	fmt.Fprintf(&b, "Avg Turns:      %.1f\n", avgTurns)
	fmt.Fprintf(&b, "Total Moves:    %d\n", m.moves)
	fmt.Fprintf(&b, "Duration:       %s\n", duration.Round(time.Second))
	fmt.Fprintf(&b, "Games/Sec:      %.2f\n", gamesPerSec)
	fmt.Fprintf(&b, "Moves/Sec:      %.2f\n\n", movesPerSec)

	b.WriteString("Wins by seat:\n")
	for i := 1; i <= 8; i++ {
		id := fmt.Sprintf("snake%d", i)
		if n, ok := m.wins[id]; ok {
			fmt.Fprintf(&b, "  %-8s %d\n", id, n)
		}
	}

	b.WriteString("\nRecent Games:\n")
	for _, g := range m.recentGames {
		b.WriteString(g + "\n")
	}

	b.WriteString("\nPress q to quit.\n")
	return b.String()
}
