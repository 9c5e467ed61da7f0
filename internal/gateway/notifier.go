package gateway

import (
	"log/slog"

	"github.com/mcoot/fourinarow/internal/model"
	"github.com/mcoot/fourinarow/internal/protocol"
)

// SessionStarted tells each connected human about their new session and
// hands them a reconnect ticket for it.
func (g *Gateway) SessionStarted(s *model.Session) {
	for _, p := range []model.Participant{s.PlayerA, s.PlayerB} {
		if p.IsAutomated {
			continue
		}
		conn := g.connFor(p.ID)
		if conn == nil {
			g.logger.Warn("participant not connected at session start",
				slog.String("player", string(p.ID)),
				slog.String("session_id", string(s.ID)),
			)
			continue
		}

		opp := s.Opponent(p.ID)
		payload := protocol.SessionStarted{
			SessionID:         s.ID,
			Opponent:          opp.ID,
			OpponentAutomated: opp.IsAutomated,
			YourSide:          p.Side,
			YourTurn:          s.Turn == p.Side,
		}
		if g.tickets != nil {
			token, err := g.tickets.Issue(p.ID, s.ID)
			if err != nil {
				g.logger.Error("failed to issue reconnect ticket",
					slog.String("player", string(p.ID)),
					slog.String("error", err.Error()),
				)
			}
			payload.ReconnectToken = token
		}
		g.send(conn, protocol.TypeSessionStarted, payload)
	}
}

// BoardUpdated broadcasts the board after a move
func (g *Gateway) BoardUpdated(u model.SessionUpdate) {
	g.broadcast(u.Participants(), protocol.TypeBoardUpdated, protocol.BoardUpdated{
		SessionID: u.SessionID,
		Board:     u.Board,
		Turn:      u.Turn,
		LastMove:  u.LastMove,
		IsOver:    u.IsOver,
	})
}

// SessionEnded broadcasts the result and drops the session's tickets and timers
func (g *Gateway) SessionEnded(e model.SessionEnd) {
	g.broadcast(e.Participants(), protocol.TypeSessionEnded, protocol.NewSessionEnded(e))

	if g.tickets != nil {
		g.tickets.RevokeSession(e.SessionID)
	}

	g.mu.Lock()
	for _, p := range e.Participants() {
		g.stopGraceLocked(p.ID, e.SessionID)
	}
	g.mu.Unlock()
}
