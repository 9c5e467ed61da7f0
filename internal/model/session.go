package model

import "time"

// SessionID uniquely identifies a live game session
type SessionID string

// SessionStatus is the lifecycle state of a session
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
)

// EndReason explains why a session completed
type EndReason string

const (
	EndReasonHorizontal           EndReason = "horizontal"
	EndReasonVertical             EndReason = "vertical"
	EndReasonDiagonal             EndReason = "diagonal"
	EndReasonDraw                 EndReason = "draw"
	EndReasonForfeit              EndReason = "forfeit"
	EndReasonOpponentDisconnected EndReason = "opponent_disconnected"
)

// EndReasonForAxis maps a winning axis to the end reason reported to players
func EndReasonForAxis(axis Axis) EndReason {
	switch axis {
	case AxisHorizontal:
		return EndReasonHorizontal
	case AxisVertical:
		return EndReasonVertical
	default:
		return EndReasonDiagonal
	}
}

// ConnectionState tracks whether a participant currently has a live connection
type ConnectionState string

const (
	ConnectionConnected    ConnectionState = "connected"
	ConnectionDisconnected ConnectionState = "disconnected"
)

// Participant occupies one side of a session
type Participant struct {
	ID             PlayerID        `json:"id"`
	Side           Side            `json:"side"`
	IsAutomated    bool            `json:"is_automated"`
	Connection     ConnectionState `json:"connection"`
	DisconnectedAt *time.Time      `json:"disconnected_at,omitempty"`
}

// Move is a single disc drop, appended to the session's move log
type Move struct {
	Player    PlayerID  `json:"player"`
	Side      Side      `json:"side"`
	Column    int       `json:"column"`
	Row       int       `json:"row"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one two-party game. SideA always moves first.
type Session struct {
	ID           SessionID     `json:"id"`
	Board        *Board        `json:"board"`
	PlayerA      Participant   `json:"player_a"`
	PlayerB      Participant   `json:"player_b"`
	Turn         Side          `json:"turn"`
	Status       SessionStatus `json:"status"`
	Winner       PlayerID      `json:"winner,omitempty"`
	EndReason    EndReason     `json:"end_reason,omitempty"`
	WinningCells []Position    `json:"winning_cells,omitempty"`
	Moves        []Move        `json:"moves"`
	StartedAt    time.Time     `json:"started_at"`
	EndedAt      *time.Time    `json:"ended_at,omitempty"`
}

// Participant returns the participant on the given side, or nil
func (s *Session) Participant(side Side) *Participant {
	switch side {
	case SideA:
		return &s.PlayerA
	case SideB:
		return &s.PlayerB
	default:
		return nil
	}
}

// SideOf returns the side occupied by the player, or SideNone
func (s *Session) SideOf(id PlayerID) Side {
	switch id {
	case s.PlayerA.ID:
		return SideA
	case s.PlayerB.ID:
		return SideB
	default:
		return SideNone
	}
}

// Opponent returns the participant facing the given player, or nil if not a participant
func (s *Session) Opponent(id PlayerID) *Participant {
	side := s.SideOf(id)
	if side == SideNone {
		return nil
	}
	return s.Participant(side.Opponent())
}

// IsInProgress reports whether moves are still accepted
func (s *Session) IsInProgress() bool {
	return s.Status == SessionStatusInProgress
}

// LastMove returns the most recent move, or nil if none were made
func (s *Session) LastMove() *Move {
	if len(s.Moves) == 0 {
		return nil
	}
	m := s.Moves[len(s.Moves)-1]
	return &m
}

// Humans returns the ids of the non-automated participants
func (s *Session) Humans() []PlayerID {
	var ids []PlayerID
	for _, p := range []Participant{s.PlayerA, s.PlayerB} {
		if !p.IsAutomated {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Clone returns a deep copy safe to hand outside the owning registry
func (s *Session) Clone() *Session {
	c := *s
	c.Board = s.Board.Clone()
	c.PlayerA = cloneParticipant(s.PlayerA)
	c.PlayerB = cloneParticipant(s.PlayerB)
	c.Moves = append([]Move(nil), s.Moves...)
	c.WinningCells = append([]Position(nil), s.WinningCells...)
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	return &c
}

func cloneParticipant(p Participant) Participant {
	if p.DisconnectedAt != nil {
		t := *p.DisconnectedAt
		p.DisconnectedAt = &t
	}
	return p
}
