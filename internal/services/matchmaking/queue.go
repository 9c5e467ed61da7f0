package matchmaking

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/fourinarow/internal/dependencies/clock"
	"github.com/mcoot/fourinarow/internal/dependencies/random"
	"github.com/mcoot/fourinarow/internal/model"
	"github.com/mcoot/fourinarow/internal/services/bot"
)

// DefaultTimeout is how long a player waits before being paired with a bot
const DefaultTimeout = 10 * time.Second

// SessionCreator starts sessions for matched players
type SessionCreator interface {
	CreateSession(ctx context.Context, a, b model.PlayerID, bAutomated bool) (*model.Session, error)
	GetSessionByParticipant(player model.PlayerID) (*model.Session, bool)
}

// JoinStatus describes what Join did with the player
type JoinStatus string

const (
	JoinQueued        JoinStatus = "queued"
	JoinMatched       JoinStatus = "matched"
	JoinAlreadyQueued JoinStatus = "already_queued"
	JoinInSession     JoinStatus = "in_session"
)

// JoinResult is returned by Join. Session is set when the player was matched.
type JoinResult struct {
	Status  JoinStatus
	Session *model.Session
}

type entry struct {
	player   model.PlayerID
	joinedAt time.Time
	timer    clock.Timer
}

// Queue pairs waiting players in arrival order and falls back to an
// automated opponent once a player has waited for the timeout.
type Queue struct {
	mu      sync.Mutex
	entries []*entry

	sessions SessionCreator
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger
	timeout  time.Duration
}

// New creates a new Queue
func New(sessions SessionCreator, clk clock.Clock, rnd random.Random, logger *slog.Logger, timeout time.Duration) *Queue {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Queue{
		sessions: sessions,
		clock:    clk,
		random:   rnd,
		logger:   logger.With(slog.String("component", "match-queue")),
		timeout:  timeout,
	}
}

// Join enqueues player and runs a pairing pass
func (q *Queue) Join(ctx context.Context, player model.PlayerID) (JoinResult, error) {
	if s, ok := q.sessions.GetSessionByParticipant(player); ok {
		q.logger.DebugContext(ctx, "join ignored, player in session",
			slog.String("player", string(player)),
			slog.String("session_id", string(s.ID)),
		)
		return JoinResult{Status: JoinInSession, Session: s}, nil
	}

	q.mu.Lock()
	if q.indexLocked(player) >= 0 {
		q.mu.Unlock()
		q.logger.DebugContext(ctx, "join ignored, player already queued", slog.String("player", string(player)))
		return JoinResult{Status: JoinAlreadyQueued}, nil
	}

	e := &entry{player: player, joinedAt: q.clock.Now()}
	e.timer = q.clock.AfterFunc(q.timeout, func() {
		q.expire(e)
	})
	q.entries = append(q.entries, e)
	older, newer, paired := q.popPairLocked()
	size := len(q.entries)
	q.mu.Unlock()

	if !paired {
		q.logger.InfoContext(ctx, "player queued",
			slog.String("player", string(player)),
			slog.Int("queue_size", size),
		)
		return JoinResult{Status: JoinQueued}, nil
	}

	s, err := q.sessions.CreateSession(ctx, older.player, newer.player, false)
	if err != nil {
		q.logger.ErrorContext(ctx, "failed to create matched session",
			slog.String("player_a", string(older.player)),
			slog.String("player_b", string(newer.player)),
			slog.String("error", err.Error()),
		)
		return JoinResult{}, err
	}

	q.logger.InfoContext(ctx, "players matched",
		slog.String("session_id", string(s.ID)),
		slog.String("player_a", string(older.player)),
		slog.String("player_b", string(newer.player)),
		slog.Duration("waited", q.clock.Now().Sub(older.joinedAt)),
	)
	return JoinResult{Status: JoinMatched, Session: s}, nil
}

// PlayBot skips the wait and starts a session against an automated opponent
func (q *Queue) PlayBot(ctx context.Context, player model.PlayerID) (*model.Session, error) {
	if _, ok := q.sessions.GetSessionByParticipant(player); ok {
		return nil, model.ErrAlreadyInSession
	}
	q.Leave(player)
	return q.startBotSession(ctx, player)
}

// Leave removes player from the queue. It reports whether the player was queued.
func (q *Queue) Leave(player model.PlayerID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexLocked(player)
	if i < 0 {
		return false
	}
	q.entries[i].timer.Stop()
	q.removeLocked(i)
	q.logger.Debug("player left queue", slog.String("player", string(player)))
	return true
}

// Size returns the number of waiting players
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Contains reports whether player is waiting
func (q *Queue) Contains(player model.PlayerID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.indexLocked(player) >= 0
}

// expire runs when e's timer fires. A stale timer for an entry that already
// left or was paired does nothing.
func (q *Queue) expire(e *entry) {
	q.mu.Lock()
	i := -1
	for j, cur := range q.entries {
		if cur == e {
			i = j
			break
		}
	}
	if i < 0 {
		q.mu.Unlock()
		return
	}
	q.removeLocked(i)
	q.mu.Unlock()

	ctx := context.Background()
	q.logger.InfoContext(ctx, "matchmaking timed out, starting automated session",
		slog.String("player", string(e.player)),
		slog.Duration("waited", q.clock.Now().Sub(e.joinedAt)),
	)
	if _, err := q.startBotSession(ctx, e.player); err != nil {
		q.logger.ErrorContext(ctx, "failed to create automated session",
			slog.String("player", string(e.player)),
			slog.String("error", err.Error()),
		)
	}
}

func (q *Queue) startBotSession(ctx context.Context, player model.PlayerID) (*model.Session, error) {
	return q.sessions.CreateSession(ctx, player, bot.Name(q.random, player), true)
}

// popPairLocked dequeues the two oldest entries if at least two are waiting
func (q *Queue) popPairLocked() (older, newer *entry, ok bool) {
	if len(q.entries) < 2 {
		return nil, nil, false
	}
	older, newer = q.entries[0], q.entries[1]
	older.timer.Stop()
	newer.timer.Stop()
	q.entries = q.entries[2:]
	return older, newer, true
}

func (q *Queue) indexLocked(player model.PlayerID) int {
	for i, e := range q.entries {
		if e.player == player {
			return i
		}
	}
	return -1
}

func (q *Queue) removeLocked(i int) {
	q.entries = append(q.entries[:i:i], q.entries[i+1:]...)
}
