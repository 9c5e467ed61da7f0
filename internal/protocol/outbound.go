package protocol

import (
	"time"

	"github.com/mcoot/fourinarow/internal/model"
)

type IdentityJoined struct {
	Name model.PlayerID `json:"name"`
}

type QueueJoined struct {
	Position int `json:"position"`
}

type QueueLeft struct {
	WasQueued bool `json:"was_queued"`
}

// SessionStarted is sent to each human participant when a session begins
type SessionStarted struct {
	SessionID         model.SessionID `json:"session_id"`
	Opponent          model.PlayerID  `json:"opponent"`
	OpponentAutomated bool            `json:"opponent_automated"`
	YourSide          model.Side      `json:"your_side"`
	YourTurn          bool            `json:"your_turn"`
	// ReconnectToken is presented with reconnect after a dropped connection
	ReconnectToken string `json:"reconnect_token,omitempty"`
}

type BoardUpdated struct {
	SessionID model.SessionID `json:"session_id"`
	Board     *model.Board    `json:"board"`
	Turn      model.Side      `json:"turn"`
	LastMove  model.Move      `json:"last_move"`
	IsOver    bool            `json:"is_over"`
}

// SessionEnded carries a null winner for a draw
type SessionEnded struct {
	SessionID    model.SessionID  `json:"session_id"`
	Winner       *model.PlayerID  `json:"winner"`
	Reason       model.EndReason  `json:"reason"`
	WinningCells []model.Position `json:"winning_cells"`
	Board        *model.Board     `json:"board"`
}

// SessionState is the full snapshot sent after a reconnect
type SessionState struct {
	SessionID         model.SessionID     `json:"session_id"`
	Board             *model.Board        `json:"board"`
	Turn              model.Side          `json:"turn"`
	Status            model.SessionStatus `json:"status"`
	YourSide          model.Side          `json:"your_side"`
	Opponent          model.PlayerID      `json:"opponent"`
	OpponentAutomated bool                `json:"opponent_automated"`
	Moves             []model.Move        `json:"moves"`
}

type RoomCreated struct {
	Code model.RoomCode `json:"code"`
}

type ChatMessage struct {
	SessionID model.SessionID `json:"session_id"`
	From      model.PlayerID  `json:"from"`
	Text      string          `json:"text"`
	SentAt    time.Time       `json:"sent_at"`
}

// Rejection is the payload of room-error, move-rejected and error messages
type Rejection struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// NewSessionEnded builds the session-ended payload from a registry notification
func NewSessionEnded(e model.SessionEnd) SessionEnded {
	out := SessionEnded{
		SessionID:    e.SessionID,
		Reason:       e.Reason,
		WinningCells: e.WinningCells,
		Board:        e.Board,
	}
	if e.Winner != "" {
		w := e.Winner
		out.Winner = &w
	}
	return out
}

// NewSessionState builds a snapshot of s from player's point of view
func NewSessionState(s *model.Session, player model.PlayerID) SessionState {
	side := s.SideOf(player)
	opp := s.Participant(side.Opponent())
	state := SessionState{
		SessionID: s.ID,
		Board:     s.Board,
		Turn:      s.Turn,
		Status:    s.Status,
		YourSide:  side,
		Moves:     s.Moves,
	}
	if opp != nil {
		state.Opponent = opp.ID
		state.OpponentAutomated = opp.IsAutomated
	}
	return state
}
