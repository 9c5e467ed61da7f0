package protocol

import (
	"errors"

	"github.com/mcoot/fourinarow/internal/model"
)

// Rejection reason codes
const (
	ReasonInvalidColumn        = "invalid_column"
	ReasonColumnFull           = "column_full"
	ReasonNotYourTurn          = "not_your_turn"
	ReasonNotAParticipant      = "not_a_participant"
	ReasonSessionNotInProgress = "session_not_in_progress"
	ReasonSessionNotFound      = "session_not_found"
	ReasonAlreadyInSession     = "already_in_session"
	ReasonRoomNotFound         = "room_not_found"
	ReasonCannotJoinOwnRoom    = "cannot_join_own_room"
	ReasonRoomCodeUnavailable  = "room_code_unavailable"
	ReasonInvalidName          = "invalid_name"
	ReasonNameTaken            = "name_taken"
	ReasonIdentityMismatch     = "identity_mismatch"
	ReasonNotIdentified        = "not_identified"
	ReasonReconnectRequired    = "reconnect_required"
	ReasonInvalidTicket        = "invalid_ticket"
	ReasonInvalidChat          = "invalid_chat_message"
	ReasonUnknownType          = "unknown_type"
	ReasonMalformedPayload     = "malformed_payload"
	ReasonInternal             = "internal_error"
)

var reasons = []struct {
	err    error
	reason string
}{
	{model.ErrInvalidColumn, ReasonInvalidColumn},
	{model.ErrColumnFull, ReasonColumnFull},
	{model.ErrNotYourTurn, ReasonNotYourTurn},
	{model.ErrNotAParticipant, ReasonNotAParticipant},
	{model.ErrSessionNotInProgress, ReasonSessionNotInProgress},
	{model.ErrSessionNotFound, ReasonSessionNotFound},
	{model.ErrAlreadyInSession, ReasonAlreadyInSession},
	{model.ErrRoomNotFound, ReasonRoomNotFound},
	{model.ErrCannotJoinOwnRoom, ReasonCannotJoinOwnRoom},
	{model.ErrRoomCodeUnavailable, ReasonRoomCodeUnavailable},
	{model.ErrInvalidPlayerID, ReasonInvalidName},
	{model.ErrIdentityTaken, ReasonNameTaken},
	{model.ErrIdentityMismatch, ReasonIdentityMismatch},
	{model.ErrNotIdentified, ReasonNotIdentified},
	{model.ErrReconnectRequired, ReasonReconnectRequired},
	{model.ErrInvalidTicket, ReasonInvalidTicket},
	{model.ErrInvalidChatMessage, ReasonInvalidChat},
	{ErrUnknownType, ReasonUnknownType},
	{ErrMalformedPayload, ReasonMalformedPayload},
}

// ReasonFor maps an error to its wire reason code
func ReasonFor(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ReasonInternal
}

// IsMoveError reports whether err rejects a submitted move
func IsMoveError(err error) bool {
	return errors.Is(err, model.ErrInvalidColumn) ||
		errors.Is(err, model.ErrColumnFull) ||
		errors.Is(err, model.ErrNotYourTurn) ||
		errors.Is(err, model.ErrNotAParticipant) ||
		errors.Is(err, model.ErrSessionNotInProgress) ||
		errors.Is(err, model.ErrSessionNotFound)
}

// IsRoomError reports whether err is a private room failure
func IsRoomError(err error) bool {
	return errors.Is(err, model.ErrRoomNotFound) ||
		errors.Is(err, model.ErrCannotJoinOwnRoom) ||
		errors.Is(err, model.ErrRoomCodeUnavailable)
}

// NewRejection builds a rejection payload for err
func NewRejection(err error) Rejection {
	reason := ReasonFor(err)
	msg := err.Error()
	if reason == ReasonInternal {
		msg = "internal error"
	}
	return Rejection{Reason: reason, Message: msg}
}
