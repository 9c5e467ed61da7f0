package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcoot/fourinarow/internal/model"
)

var (
	ErrUnknownType      = errors.New("unknown message type")
	ErrMalformedPayload = errors.New("malformed payload")
)

// Event is a decoded inbound message. The concrete types below are the only
// implementations.
type Event interface {
	Type() string
	validate() error
}

// Identified is implemented by events that carry the sender's name
type Identified interface {
	Event
	Identity() model.PlayerID
}

type JoinIdentity struct {
	Name model.PlayerID `json:"name"`
}

type QueueJoin struct {
	Name model.PlayerID `json:"name"`
}

type QueueJoinAutomated struct {
	Name model.PlayerID `json:"name"`
}

type QueueLeave struct{}

type RoomCreate struct {
	Name model.PlayerID `json:"name"`
}

type RoomJoin struct {
	Name model.PlayerID `json:"name"`
	Code string         `json:"code"`
}

type RoomLeave struct{}

type SubmitMove struct {
	SessionID model.SessionID `json:"session_id"`
	Column    int             `json:"column"`
}

type Reconnect struct {
	SessionID model.SessionID `json:"session_id"`
	Name      model.PlayerID  `json:"name"`
	Token     string          `json:"token,omitempty"`
}

// Resign concedes the session to the opponent
type Resign struct {
	SessionID model.SessionID `json:"session_id"`
}

type SendChat struct {
	SessionID model.SessionID `json:"session_id"`
	Name      model.PlayerID  `json:"name"`
	Text      string          `json:"text"`
}

func (JoinIdentity) Type() string       { return TypeJoinIdentity }
func (QueueJoin) Type() string          { return TypeQueueJoin }
func (QueueJoinAutomated) Type() string { return TypeQueueJoinAutomated }
func (QueueLeave) Type() string         { return TypeQueueLeave }
func (RoomCreate) Type() string         { return TypeRoomCreate }
func (RoomJoin) Type() string           { return TypeRoomJoin }
func (RoomLeave) Type() string          { return TypeRoomLeave }
func (SubmitMove) Type() string         { return TypeSubmitMove }
func (Reconnect) Type() string          { return TypeReconnect }
func (SendChat) Type() string           { return TypeSendChat }
func (Resign) Type() string             { return TypeResign }

func (e JoinIdentity) Identity() model.PlayerID       { return e.Name }
func (e QueueJoin) Identity() model.PlayerID          { return e.Name }
func (e QueueJoinAutomated) Identity() model.PlayerID { return e.Name }
func (e RoomCreate) Identity() model.PlayerID         { return e.Name }
func (e RoomJoin) Identity() model.PlayerID           { return e.Name }
func (e SendChat) Identity() model.PlayerID           { return e.Name }

func (e JoinIdentity) validate() error       { return requireName(e.Name) }
func (e QueueJoin) validate() error          { return requireName(e.Name) }
func (e QueueJoinAutomated) validate() error { return requireName(e.Name) }
func (QueueLeave) validate() error           { return nil }
func (e RoomCreate) validate() error         { return requireName(e.Name) }
func (RoomLeave) validate() error            { return nil }

func (e RoomJoin) validate() error {
	if e.Code == "" {
		return fmt.Errorf("%w: code is required", ErrMalformedPayload)
	}
	return requireName(e.Name)
}

func (e SubmitMove) validate() error {
	if e.SessionID == "" {
		return fmt.Errorf("%w: session_id is required", ErrMalformedPayload)
	}
	return nil
}

func (e Reconnect) validate() error {
	if e.SessionID == "" {
		return fmt.Errorf("%w: session_id is required", ErrMalformedPayload)
	}
	return requireName(e.Name)
}

func (e Resign) validate() error {
	if e.SessionID == "" {
		return fmt.Errorf("%w: session_id is required", ErrMalformedPayload)
	}
	return nil
}

func (e SendChat) validate() error {
	if e.SessionID == "" {
		return fmt.Errorf("%w: session_id is required", ErrMalformedPayload)
	}
	return requireName(e.Name)
}

// UnmarshalJSON rejects a move without a column rather than defaulting to 0
func (e *SubmitMove) UnmarshalJSON(data []byte) error {
	var wire struct {
		SessionID model.SessionID `json:"session_id"`
		Column    *int            `json:"column"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Column == nil {
		return fmt.Errorf("%w: column is required", ErrMalformedPayload)
	}
	e.SessionID = wire.SessionID
	e.Column = *wire.Column
	return nil
}

// ValidateName checks a player name's length
func ValidateName(name model.PlayerID) error {
	if name == "" || len([]rune(string(name))) > model.MaxPlayerIDLength {
		return model.ErrInvalidPlayerID
	}
	return nil
}

func requireName(name model.PlayerID) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrMalformedPayload)
	}
	return nil
}

// Decode turns an envelope into its typed event
func Decode(msg Message) (Event, error) {
	var ev Event
	switch msg.Type {
	case TypeJoinIdentity:
		ev = &JoinIdentity{}
	case TypeQueueJoin:
		ev = &QueueJoin{}
	case TypeQueueJoinAutomated:
		ev = &QueueJoinAutomated{}
	case TypeQueueLeave:
		return QueueLeave{}, nil
	case TypeRoomCreate:
		ev = &RoomCreate{}
	case TypeRoomJoin:
		ev = &RoomJoin{}
	case TypeRoomLeave:
		return RoomLeave{}, nil
	case TypeSubmitMove:
		ev = &SubmitMove{}
	case TypeReconnect:
		ev = &Reconnect{}
	case TypeSendChat:
		ev = &SendChat{}
	case TypeResign:
		ev = &Resign{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}

	if err := msg.Unmarshal(ev); err != nil {
		return nil, err
	}
	if err := ev.validate(); err != nil {
		return nil, err
	}
	return deref(ev), nil
}

// deref returns events by value so callers can switch on value types
func deref(ev Event) Event {
	switch e := ev.(type) {
	case *JoinIdentity:
		return *e
	case *QueueJoin:
		return *e
	case *QueueJoinAutomated:
		return *e
	case *RoomCreate:
		return *e
	case *RoomJoin:
		return *e
	case *SubmitMove:
		return *e
	case *Reconnect:
		return *e
	case *SendChat:
		return *e
	case *Resign:
		return *e
	}
	return ev
}
