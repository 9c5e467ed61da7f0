package model

import "time"

// RecordPlayer describes one side of an archived game
type RecordPlayer struct {
	ID          PlayerID `json:"id"`
	IsAutomated bool     `json:"is_automated"`
}

// GameRecord is the archived form of a completed session
type GameRecord struct {
	ID        SessionID     `json:"id"`
	PlayerA   RecordPlayer  `json:"player_a"`
	PlayerB   RecordPlayer  `json:"player_b"`
	Board     *Board        `json:"board"`
	Moves     []Move        `json:"moves"`
	Winner    PlayerID      `json:"winner,omitempty"`
	EndReason EndReason     `json:"end_reason"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Duration  time.Duration `json:"duration"`
}

// NewGameRecord builds the archive record for a completed session
func NewGameRecord(s *Session) *GameRecord {
	rec := &GameRecord{
		ID:        s.ID,
		PlayerA:   RecordPlayer{ID: s.PlayerA.ID, IsAutomated: s.PlayerA.IsAutomated},
		PlayerB:   RecordPlayer{ID: s.PlayerB.ID, IsAutomated: s.PlayerB.IsAutomated},
		Board:     s.Board.Clone(),
		Moves:     append([]Move(nil), s.Moves...),
		Winner:    s.Winner,
		EndReason: s.EndReason,
		StartedAt: s.StartedAt,
	}
	if s.EndedAt != nil {
		rec.EndedAt = *s.EndedAt
		rec.Duration = s.EndedAt.Sub(s.StartedAt)
	}
	return rec
}

// Humans returns the ids of the non-automated players
func (r *GameRecord) Humans() []PlayerID {
	var ids []PlayerID
	for _, p := range []RecordPlayer{r.PlayerA, r.PlayerB} {
		if !p.IsAutomated {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// IsDraw reports whether the game ended without a winner
func (r *GameRecord) IsDraw() bool {
	return r.Winner == ""
}

// Involves reports whether the player took part in the game
func (r *GameRecord) Involves(id PlayerID) bool {
	return r.PlayerA.ID == id || r.PlayerB.ID == id
}

// MovesBy counts the moves made by the given player
func (r *GameRecord) MovesBy(id PlayerID) int {
	n := 0
	for _, m := range r.Moves {
		if m.Player == id {
			n++
		}
	}
	return n
}
