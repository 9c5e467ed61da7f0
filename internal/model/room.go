package model

import "time"

// RoomCode is the short human-typeable token that identifies a private room
type RoomCode string

// Room code generation settings
const (
	RoomCodeLength   = 6
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no I, O, 0, 1
)

// Room is a private pairing slot waiting for a friend to join
type Room struct {
	Code      RoomCode  `json:"code"`
	Host      PlayerID  `json:"host"`
	CreatedAt time.Time `json:"created_at"`
}
