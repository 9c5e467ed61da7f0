// Package protocol defines the websocket wire format: a typed envelope,
// the events clients send and the messages the server pushes back.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Inbound message types
const (
	TypeJoinIdentity       = "join-identity"
	TypeQueueJoin          = "queue-join"
	TypeQueueJoinAutomated = "queue-join-automated"
	TypeQueueLeave         = "queue-leave"
	TypeRoomCreate         = "room-create"
	TypeRoomJoin           = "room-join"
	TypeRoomLeave          = "room-leave"
	TypeSubmitMove         = "submit-move"
	TypeReconnect          = "reconnect"
	TypeSendChat           = "send-chat"
	TypeResign             = "resign"
)

// Outbound message types
const (
	TypeIdentityJoined = "identity-joined"
	TypeQueueJoined    = "queue-joined"
	TypeQueueLeft      = "queue-left"
	TypeSessionStarted = "session-started"
	TypeBoardUpdated   = "board-updated"
	TypeSessionEnded   = "session-ended"
	TypeSessionState   = "session-state"
	TypeRoomCreated    = "room-created"
	TypeRoomError      = "room-error"
	TypeMoveRejected   = "move-rejected"
	TypeChatMessage    = "chat-message"
	TypeError          = "error"
)

// Message is the envelope for every frame in either direction
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode builds an envelope around payload. A nil payload is omitted.
func Encode(msgType string, payload any) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s: %w", msgType, err)
	}
	msg.Payload = raw
	return msg, nil
}

// Unmarshal decodes a message payload into v
func (m Message) Unmarshal(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s: %w", m.Type, ErrMalformedPayload)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%s: %w: %v", m.Type, ErrMalformedPayload, err)
	}
	return nil
}
