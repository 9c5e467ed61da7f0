package auth

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/fourinarow/internal/dependencies/clock"
	"github.com/mcoot/fourinarow/internal/model"
)

// TokenLength is the length of issued reconnect tokens
const TokenLength = 32

// Ticket is an issued reconnect ticket. Only the token hash is kept.
type Ticket struct {
	Player    model.PlayerID
	SessionID model.SessionID
	Hash      []byte
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type ticketKey struct {
	player    model.PlayerID
	sessionID model.SessionID
}

// Config holds configuration for the ticket service
type Config struct {
	TTL time.Duration
	// Cost is the bcrypt cost used to hash tokens
	Cost int
}

// DefaultConfig returns default ticket configuration. Tokens are random, so
// the minimum bcrypt cost is used; Issue runs while a session is starting.
func DefaultConfig() Config {
	return Config{
		TTL:  time.Hour,
		Cost: bcrypt.MinCost,
	}
}

// Service issues and verifies session-bound reconnect tickets
type Service struct {
	clock  clock.Clock
	logger *slog.Logger
	cfg    Config

	mu      sync.RWMutex
	tickets map[ticketKey]*Ticket
}

// New creates a new ticket Service
func New(clk clock.Clock, logger *slog.Logger, cfg Config) *Service {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.Cost == 0 {
		cfg.Cost = DefaultConfig().Cost
	}
	return &Service{
		clock:   clk,
		logger:  logger.With(slog.String("component", "reconnect-tickets")),
		cfg:     cfg,
		tickets: make(map[ticketKey]*Ticket),
	}
}

// Issue creates a ticket letting player rejoin sessionID and returns its token.
// A previous ticket for the same pair is replaced.
func (s *Service) Issue(player model.PlayerID, sessionID model.SessionID) (string, error) {
	token, err := gonanoid.New(TokenLength)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), s.cfg.Cost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}

	now := s.clock.Now()
	s.mu.Lock()
	s.tickets[ticketKey{player, sessionID}] = &Ticket{
		Player:    player,
		SessionID: sessionID,
		Hash:      hash,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}
	s.mu.Unlock()

	s.logger.Debug("ticket issued",
		slog.String("player", string(player)),
		slog.String("session_id", string(sessionID)),
	)
	return token, nil
}

// Verify checks that token was issued to player for sessionID and has not expired
func (s *Service) Verify(player model.PlayerID, sessionID model.SessionID, token string) error {
	key := ticketKey{player, sessionID}

	s.mu.RLock()
	t, ok := s.tickets[key]
	s.mu.RUnlock()
	if !ok || token == "" {
		return model.ErrInvalidTicket
	}

	if s.clock.Now().After(t.ExpiresAt) {
		s.mu.Lock()
		if s.tickets[key] == t {
			delete(s.tickets, key)
		}
		s.mu.Unlock()
		return model.ErrInvalidTicket
	}

	if err := bcrypt.CompareHashAndPassword(t.Hash, []byte(token)); err != nil {
		s.logger.Warn("ticket mismatch",
			slog.String("player", string(player)),
			slog.String("session_id", string(sessionID)),
		)
		return model.ErrInvalidTicket
	}
	return nil
}

// RevokeSession drops every ticket bound to sessionID
func (s *Service) RevokeSession(sessionID model.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.tickets {
		if key.sessionID == sessionID {
			delete(s.tickets, key)
		}
	}
}

// CleanExpired removes expired tickets (call periodically) and returns how many were dropped
func (s *Service) CleanExpired() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, t := range s.tickets {
		if now.After(t.ExpiresAt) {
			delete(s.tickets, key)
			removed++
		}
	}
	return removed
}

// Count returns the number of stored tickets
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tickets)
}
