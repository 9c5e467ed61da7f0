package response

import (
	"time"

	"github.com/mcoot/fourinarow/internal/model"
)

// Board represents a game board, top row first.
// Empty cells are represented as empty strings.
type Board struct {
	Cells [][]string `json:"cells"`
}

// BoardFromModel converts model.Board to response Board
func BoardFromModel(b *model.Board) Board {
	cells := make([][]string, model.BoardRows)
	for row := range model.BoardRows {
		cells[row] = make([]string, model.BoardCols)
		if b == nil {
			continue
		}
		for col := range model.BoardCols {
			if side := b.Cells[row][col]; side != model.SideNone {
				cells[row][col] = side.String()
			}
		}
	}
	return Board{Cells: cells}
}

// Player is one side of an archived game
type Player struct {
	Name        string `json:"name"`
	Side        string `json:"side"`
	IsAutomated bool   `json:"is_automated,omitempty"`
}

// Move is one disc drop in an archived game
type Move struct {
	Player    string    `json:"player"`
	Column    int       `json:"column"`
	Row       int       `json:"row"`
	Timestamp time.Time `json:"timestamp"`
}

// GameRecord represents a finished game in API responses
type GameRecord struct {
	ID         string    `json:"id"`
	Players    []Player  `json:"players"`
	Winner     *string   `json:"winner"`
	EndReason  string    `json:"end_reason"`
	Board      Board     `json:"board"`
	Moves      []Move    `json:"moves"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMS int64     `json:"duration_ms"`
}

// GameRecordFromModel converts model.GameRecord
func GameRecordFromModel(r *model.GameRecord) GameRecord {
	var winner *string
	if !r.IsDraw() {
		w := string(r.Winner)
		winner = &w
	}

	moves := make([]Move, len(r.Moves))
	for i, m := range r.Moves {
		moves[i] = Move{
			Player:    string(m.Player),
			Column:    m.Column,
			Row:       m.Row,
			Timestamp: m.Timestamp,
		}
	}

	return GameRecord{
		ID: string(r.ID),
		Players: []Player{
			{Name: string(r.PlayerA.ID), Side: model.SideA.String(), IsAutomated: r.PlayerA.IsAutomated},
			{Name: string(r.PlayerB.ID), Side: model.SideB.String(), IsAutomated: r.PlayerB.IsAutomated},
		},
		Winner:     winner,
		EndReason:  string(r.EndReason),
		Board:      BoardFromModel(r.Board),
		Moves:      moves,
		StartedAt:  r.StartedAt,
		EndedAt:    r.EndedAt,
		DurationMS: r.Duration.Milliseconds(),
	}
}

// GameSummary is the list form of a finished game, seen from one player
type GameSummary struct {
	ID        string    `json:"id"`
	Opponent  string    `json:"opponent"`
	Result    string    `json:"result"`
	EndReason string    `json:"end_reason"`
	Moves     int       `json:"moves"`
	EndedAt   time.Time `json:"ended_at"`
}

// Results reported in GameSummary
const (
	ResultWin  = "win"
	ResultLoss = "loss"
	ResultDraw = "draw"
)

// GameSummaryFromModel summarizes a record from the given player's point of view
func GameSummaryFromModel(r *model.GameRecord, player model.PlayerID) GameSummary {
	opponent := r.PlayerA.ID
	if opponent == player {
		opponent = r.PlayerB.ID
	}

	result := ResultLoss
	switch {
	case r.IsDraw():
		result = ResultDraw
	case r.Winner == player:
		result = ResultWin
	}

	return GameSummary{
		ID:        string(r.ID),
		Opponent:  string(opponent),
		Result:    result,
		EndReason: string(r.EndReason),
		Moves:     len(r.Moves),
		EndedAt:   r.EndedAt,
	}
}

// GameList is the response for a player's recent games
type GameList struct {
	Player string        `json:"player"`
	Games  []GameSummary `json:"games"`
}

// PlayerStats represents aggregated results for a player
type PlayerStats struct {
	Player                string    `json:"player"`
	GamesPlayed           int       `json:"games_played"`
	GamesWon              int       `json:"games_won"`
	GamesLost             int       `json:"games_lost"`
	GamesDrawn            int       `json:"games_drawn"`
	TotalMoves            int       `json:"total_moves"`
	WinRate               float64   `json:"win_rate"`
	AverageGameDurationMS int64     `json:"average_game_duration_ms"`
	LastPlayedAt          time.Time `json:"last_played_at"`
}

// PlayerStatsFromModel converts model.PlayerStats
func PlayerStatsFromModel(s *model.PlayerStats) PlayerStats {
	return PlayerStats{
		Player:                string(s.Player),
		GamesPlayed:           s.GamesPlayed,
		GamesWon:              s.GamesWon,
		GamesLost:             s.GamesLost,
		GamesDrawn:            s.GamesDrawn,
		TotalMoves:            s.TotalMoves,
		WinRate:               s.WinRate(),
		AverageGameDurationMS: s.AverageGameDuration().Milliseconds(),
		LastPlayedAt:          s.LastPlayedAt,
	}
}

// Health is the response for the health endpoint
type Health struct {
	Status           string `json:"status"`
	ActiveSessions   int    `json:"active_sessions"`
	QueueSize        int    `json:"queue_size"`
	OpenRooms        int    `json:"open_rooms"`
	ConnectedPlayers int    `json:"connected_players"`
	ConnectedClients int    `json:"connected_clients"`
}
