package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound  = errors.New("player not found")
	ErrInvalidPlayerID = errors.New("invalid player name")

	// Board errors
	ErrInvalidColumn = errors.New("invalid column")
	ErrColumnFull    = errors.New("column is full")
	ErrNoValidMoves  = errors.New("no valid moves available")

	// Session errors
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionNotInProgress = errors.New("session is not in progress")
	ErrNotAParticipant      = errors.New("player is not a participant in this session")
	ErrNotYourTurn          = errors.New("not this player's turn")
	ErrAlreadyInSession     = errors.New("player already has a live session")

	// Room errors
	ErrRoomNotFound        = errors.New("room not found")
	ErrCannotJoinOwnRoom   = errors.New("cannot join own room")
	ErrRoomCodeUnavailable = errors.New("could not allocate a unique room code")

	// Connection errors
	ErrNotIdentified      = errors.New("connection has not joined with a name")
	ErrIdentityTaken      = errors.New("name is in use by another connection")
	ErrIdentityMismatch   = errors.New("name does not match this connection")
	ErrReconnectRequired  = errors.New("player has a live session and must reconnect")
	ErrInvalidTicket      = errors.New("invalid or expired reconnect ticket")
	ErrInvalidChatMessage = errors.New("chat message must be 1 to 500 characters")

	// Archive errors
	ErrGameRecordNotFound = errors.New("game record not found")
)
