package model

import "time"

// SessionUpdate is emitted by the session registry after every accepted move.
// It carries participant ids so receivers never need to query the registry.
type SessionUpdate struct {
	SessionID SessionID   `json:"session_id"`
	PlayerA   Participant `json:"player_a"`
	PlayerB   Participant `json:"player_b"`
	Board     *Board      `json:"board"`
	Turn      Side        `json:"turn"`
	LastMove  Move        `json:"last_move"`
	IsOver    bool        `json:"is_over"`
}

// SessionEnd is emitted once when a session completes
type SessionEnd struct {
	SessionID    SessionID   `json:"session_id"`
	PlayerA      Participant `json:"player_a"`
	PlayerB      Participant `json:"player_b"`
	Winner       PlayerID    `json:"winner,omitempty"`
	Reason       EndReason   `json:"reason"`
	WinningCells []Position  `json:"winning_cells,omitempty"`
	Board        *Board      `json:"board"`
	EndedAt      time.Time   `json:"ended_at"`
}

// Participants returns both participants in side order
func (e SessionEnd) Participants() []Participant {
	return []Participant{e.PlayerA, e.PlayerB}
}

// Participants returns both participants in side order
func (u SessionUpdate) Participants() []Participant {
	return []Participant{u.PlayerA, u.PlayerB}
}
