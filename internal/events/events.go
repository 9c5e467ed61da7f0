// Package events publishes game lifecycle events to an external bus.
// Publishing is best-effort: callers log failures and carry on.
package events

import (
	"context"
	"time"

	"github.com/mcoot/fourinarow/internal/model"
)

// Event topic constants
const (
	TopicSessionStarted     = "fourinarow.session.started"
	TopicMoveMade           = "fourinarow.move.made"
	TopicSessionEnded       = "fourinarow.session.ended"
	TopicPlayerJoined       = "fourinarow.player.joined"
	TopicPlayerDisconnected = "fourinarow.player.disconnected"
	TopicPlayerReconnected  = "fourinarow.player.reconnected"
	TopicChatMessage        = "fourinarow.chat.message"
)

// Publisher sends events to a topic
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Event types

type SessionStarted struct {
	SessionID model.SessionID   `json:"session_id"`
	PlayerA   model.Participant `json:"player_a"`
	PlayerB   model.Participant `json:"player_b"`
	StartedAt time.Time         `json:"started_at"`
}

type MoveMade struct {
	SessionID model.SessionID `json:"session_id"`
	Move      model.Move      `json:"move"`
	MoveCount int             `json:"move_count"`
}

type SessionEnded struct {
	SessionID model.SessionID `json:"session_id"`
	Winner    model.PlayerID  `json:"winner,omitempty"`
	Reason    model.EndReason `json:"reason"`
	MoveCount int             `json:"move_count"`
	Duration  time.Duration   `json:"duration"`
	EndedAt   time.Time       `json:"ended_at"`
}

type PlayerJoined struct {
	Player model.PlayerID `json:"player"`
}

type PlayerDisconnected struct {
	Player    model.PlayerID  `json:"player"`
	SessionID model.SessionID `json:"session_id,omitempty"`
}

type PlayerReconnected struct {
	Player    model.PlayerID  `json:"player"`
	SessionID model.SessionID `json:"session_id"`
}

type ChatMessage struct {
	SessionID model.SessionID `json:"session_id"`
	From      model.PlayerID  `json:"from"`
	Text      string          `json:"text"`
	SentAt    time.Time       `json:"sent_at"`
}
