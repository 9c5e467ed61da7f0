package game

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/fourinarow/internal/dependencies/clock"
	"github.com/mcoot/fourinarow/internal/dependencies/random"
	"github.com/mcoot/fourinarow/internal/events"
	"github.com/mcoot/fourinarow/internal/model"
	"github.com/mcoot/fourinarow/internal/services/board"
	"github.com/mcoot/fourinarow/internal/services/bot"
)

// Notifier receives session state changes. Calls are made while the session
// lock is held, so implementations must not call back into the Registry.
type Notifier interface {
	SessionStarted(s *model.Session)
	BoardUpdated(u model.SessionUpdate)
	SessionEnded(e model.SessionEnd)
}

// Archiver persists finished games
type Archiver interface {
	Archive(ctx context.Context, rec *model.GameRecord) error
}

// Config holds registry timing settings
type Config struct {
	// BotMoveDelay paces automated replies
	BotMoveDelay time.Duration
	// SideEffectTimeout bounds each archive or publish call
	SideEffectTimeout time.Duration
}

// DefaultConfig returns the default registry settings
func DefaultConfig() Config {
	return Config{
		BotMoveDelay:      time.Second,
		SideEffectTimeout: 10 * time.Second,
	}
}

// MoveOutcome describes an accepted move
type MoveOutcome struct {
	Move         model.Move
	Outcome      board.Outcome
	Winner       model.PlayerID
	Reason       model.EndReason
	WinningCells []model.Position
	NextTurn     model.Side
}

type liveSession struct {
	mu       sync.Mutex
	session  *model.Session
	botTimer clock.Timer
}

// Registry owns every live session and the player to session index.
// Lock order is session, then the live map, then the index.
type Registry struct {
	sessionsMu sync.RWMutex
	sessions   map[model.SessionID]*liveSession

	indexMu sync.RWMutex
	index   map[model.PlayerID]model.SessionID

	notifier  Notifier
	archiver  Archiver
	publisher events.Publisher
	strategy  bot.Strategy
	clock     clock.Clock
	random    random.Random
	logger    *slog.Logger
	cfg       Config

	// tracks background archive and publish calls
	pendingMu sync.Mutex
	pending   sync.WaitGroup
	draining  bool
}

// NewRegistry creates a new session Registry
func NewRegistry(
	archiver Archiver,
	publisher events.Publisher,
	strategy bot.Strategy,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
	cfg Config,
) *Registry {
	return &Registry{
		sessions:  make(map[model.SessionID]*liveSession),
		index:     make(map[model.PlayerID]model.SessionID),
		notifier:  nopNotifier{},
		archiver:  archiver,
		publisher: publisher,
		strategy:  strategy,
		clock:     clk,
		random:    rnd,
		logger:    logger.With(slog.String("component", "session-registry")),
		cfg:       cfg,
	}
}

// SetNotifier installs the connection layer. Call before the registry is used.
func (r *Registry) SetNotifier(n Notifier) {
	r.notifier = n
}

// CreateSession starts a game between a (side A, moves first) and b
func (r *Registry) CreateSession(ctx context.Context, a, b model.PlayerID, bAutomated bool) (*model.Session, error) {
	if a == "" || b == "" || a == b {
		return nil, model.ErrInvalidPlayerID
	}

	s := &model.Session{
		ID:    model.SessionID(r.random.UUID()),
		Board: board.New(),
		PlayerA: model.Participant{
			ID:         a,
			Side:       model.SideA,
			Connection: model.ConnectionConnected,
		},
		PlayerB: model.Participant{
			ID:          b,
			Side:        model.SideB,
			IsAutomated: bAutomated,
			Connection:  model.ConnectionConnected,
		},
		Turn:      model.SideA,
		Status:    model.SessionStatusInProgress,
		Moves:     []model.Move{},
		StartedAt: r.clock.Now(),
	}

	ls := &liveSession{session: s}
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if busy, ok := r.registerLocked(ls); !ok {
		r.logger.WarnContext(ctx, "session refused, player already in a session",
			slog.String("player", string(busy)),
		)
		return nil, model.ErrAlreadyInSession
	}

	r.logger.InfoContext(ctx, "session created",
		slog.String("session_id", string(s.ID)),
		slog.String("player_a", string(a)),
		slog.String("player_b", string(b)),
		slog.Bool("automated", bAutomated),
	)

	r.notifier.SessionStarted(s.Clone())
	r.publishAsync(events.TopicSessionStarted, events.SessionStarted{
		SessionID: s.ID,
		PlayerA:   s.PlayerA,
		PlayerB:   s.PlayerB,
		StartedAt: s.StartedAt,
	})

	return s.Clone(), nil
}

// SubmitMove drops player's disc into col
func (r *Registry) SubmitMove(ctx context.Context, id model.SessionID, player model.PlayerID, col int) (*MoveOutcome, error) {
	ls := r.live(id)
	if ls == nil {
		return nil, model.ErrSessionNotFound
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	out, err := r.applyMoveLocked(ls, player, col)
	if err != nil {
		r.logger.DebugContext(ctx, "move rejected",
			slog.String("session_id", string(id)),
			slog.String("player", string(player)),
			slog.Int("column", col),
			slog.String("error", err.Error()),
		)
	}
	return out, err
}

func (r *Registry) applyMoveLocked(ls *liveSession, player model.PlayerID, col int) (*MoveOutcome, error) {
	s := ls.session
	if !s.IsInProgress() {
		return nil, model.ErrSessionNotInProgress
	}
	side := s.SideOf(player)
	if side == model.SideNone {
		return nil, model.ErrNotAParticipant
	}
	if side != s.Turn {
		return nil, model.ErrNotYourTurn
	}

	res, err := board.MakeMove(s.Board, col, side)
	if err != nil {
		return nil, err
	}

	move := model.Move{
		Player:    player,
		Side:      side,
		Column:    col,
		Row:       res.Row,
		Timestamp: r.clock.Now(),
	}
	s.Moves = append(s.Moves, move)
	out := &MoveOutcome{Move: move, Outcome: res.Outcome}

	r.publishAsync(events.TopicMoveMade, events.MoveMade{
		SessionID: s.ID,
		Move:      move,
		MoveCount: len(s.Moves),
	})

	switch res.Outcome {
	case board.OutcomeWin:
		out.Winner = player
		out.Reason = model.EndReasonForAxis(res.Win.Axis)
		out.WinningCells = res.Win.Cells
		s.Turn = model.SideNone
		r.notifyBoardLocked(s, move, true)
		r.completeLocked(ls, side, out.Reason, res.Win.Cells)
	case board.OutcomeDraw:
		out.Reason = model.EndReasonDraw
		s.Turn = model.SideNone
		r.notifyBoardLocked(s, move, true)
		r.completeLocked(ls, model.SideNone, model.EndReasonDraw, nil)
	default:
		s.Turn = side.Opponent()
		out.NextTurn = s.Turn
		r.notifyBoardLocked(s, move, false)
		if s.Participant(s.Turn).IsAutomated {
			r.scheduleBotLocked(ls)
		}
	}

	return out, nil
}

func (r *Registry) notifyBoardLocked(s *model.Session, move model.Move, over bool) {
	r.notifier.BoardUpdated(model.SessionUpdate{
		SessionID: s.ID,
		PlayerA:   s.PlayerA,
		PlayerB:   s.PlayerB,
		Board:     s.Board.Clone(),
		Turn:      s.Turn,
		LastMove:  move,
		IsOver:    over,
	})
}

// completeLocked ends the session and runs the completion side effects.
// winner is SideNone for a draw.
func (r *Registry) completeLocked(ls *liveSession, winner model.Side, reason model.EndReason, cells []model.Position) {
	s := ls.session
	now := r.clock.Now()

	s.Status = model.SessionStatusCompleted
	s.Turn = model.SideNone
	s.EndReason = reason
	s.EndedAt = &now
	s.WinningCells = cells
	if p := s.Participant(winner); p != nil {
		s.Winner = p.ID
	}

	if ls.botTimer != nil {
		ls.botTimer.Stop()
		ls.botTimer = nil
	}

	r.sessionsMu.Lock()
	delete(r.sessions, s.ID)
	r.sessionsMu.Unlock()

	r.indexMu.Lock()
	for _, id := range s.Humans() {
		if r.index[id] == s.ID {
			delete(r.index, id)
		}
	}
	r.indexMu.Unlock()

	r.logger.Info("session completed",
		slog.String("session_id", string(s.ID)),
		slog.String("winner", string(s.Winner)),
		slog.String("reason", string(reason)),
		slog.Int("moves", len(s.Moves)),
	)

	r.notifier.SessionEnded(model.SessionEnd{
		SessionID:    s.ID,
		PlayerA:      s.PlayerA,
		PlayerB:      s.PlayerB,
		Winner:       s.Winner,
		Reason:       reason,
		WinningCells: append([]model.Position(nil), cells...),
		Board:        s.Board.Clone(),
		EndedAt:      now,
	})

	rec := model.NewGameRecord(s)
	r.goSideEffect("archive", func(ctx context.Context) error {
		return r.archiver.Archive(ctx, rec)
	}, slog.String("session_id", string(s.ID)))

	r.publishAsync(events.TopicSessionEnded, events.SessionEnded{
		SessionID: s.ID,
		Winner:    s.Winner,
		Reason:    reason,
		MoveCount: len(s.Moves),
		Duration:  rec.Duration,
		EndedAt:   now,
	})
}

func (r *Registry) scheduleBotLocked(ls *liveSession) {
	id := ls.session.ID
	if ls.botTimer != nil {
		ls.botTimer.Stop()
	}
	ls.botTimer = r.clock.AfterFunc(r.cfg.BotMoveDelay, func() {
		r.playBotTurn(id)
	})
}

// playBotTurn runs when the bot delay elapses. It re-checks that the session
// is still live and waiting on its automated participant.
func (r *Registry) playBotTurn(id model.SessionID) {
	ls := r.live(id)
	if ls == nil {
		return
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.botTimer = nil
	s := ls.session
	if !s.IsInProgress() {
		return
	}
	p := s.Participant(s.Turn)
	if p == nil || !p.IsAutomated {
		return
	}

	col, err := r.strategy.ChooseColumn(s.Board, s.Turn)
	if err != nil {
		r.logger.Error("bot could not choose a move",
			slog.String("session_id", string(id)),
			slog.String("error", err.Error()),
		)
		return
	}

	if _, err := r.applyMoveLocked(ls, p.ID, col); err != nil {
		r.logger.Error("bot move rejected",
			slog.String("session_id", string(id)),
			slog.Int("column", col),
			slog.String("error", err.Error()),
		)
	}
}

// GetSession returns a snapshot of a live session
func (r *Registry) GetSession(id model.SessionID) (*model.Session, error) {
	ls := r.live(id)
	if ls == nil {
		return nil, model.ErrSessionNotFound
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if !ls.session.IsInProgress() {
		return nil, model.ErrSessionNotFound
	}
	return ls.session.Clone(), nil
}

// GetSessionByParticipant returns a snapshot of the player's live session.
// An index entry pointing at a session that is no longer live is removed.
func (r *Registry) GetSessionByParticipant(player model.PlayerID) (*model.Session, bool) {
	r.indexMu.RLock()
	id, ok := r.index[player]
	r.indexMu.RUnlock()
	if !ok {
		return nil, false
	}

	s, err := r.GetSession(id)
	if err != nil {
		r.indexMu.Lock()
		if r.index[player] == id {
			delete(r.index, player)
		}
		r.indexMu.Unlock()
		r.logger.Debug("removed stale session index entry",
			slog.String("player", string(player)),
			slog.String("session_id", string(id)),
		)
		return nil, false
	}
	return s, true
}

// ForceForfeit ends the session with loser's opponent as winner.
// It is a no-op for sessions that are unknown or already completed, and a
// disconnect forfeit is a no-op once the loser is connected again.
func (r *Registry) ForceForfeit(ctx context.Context, id model.SessionID, loser model.PlayerID, reason model.EndReason) error {
	ls := r.live(id)
	if ls == nil {
		return nil
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	s := ls.session
	if !s.IsInProgress() {
		return nil
	}
	side := s.SideOf(loser)
	if side == model.SideNone {
		return model.ErrNotAParticipant
	}
	// a reconnect may have landed after the grace timer fired
	if reason == model.EndReasonOpponentDisconnected && s.Participant(side).Connection != model.ConnectionDisconnected {
		r.logger.InfoContext(ctx, "forfeit skipped, player is connected",
			slog.String("session_id", string(id)),
			slog.String("player", string(loser)),
		)
		return nil
	}

	r.logger.InfoContext(ctx, "forcing forfeit",
		slog.String("session_id", string(id)),
		slog.String("loser", string(loser)),
		slog.String("reason", string(reason)),
	)
	r.completeLocked(ls, side.Opponent(), reason, nil)
	return nil
}

// MarkConnection records whether player currently has a live connection and
// returns the id of the player's live session, if any.
func (r *Registry) MarkConnection(player model.PlayerID, connected bool) (model.SessionID, bool) {
	r.indexMu.RLock()
	id, ok := r.index[player]
	r.indexMu.RUnlock()
	if !ok {
		return "", false
	}

	ls := r.live(id)
	if ls == nil {
		return "", false
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	s := ls.session
	if !s.IsInProgress() {
		return "", false
	}
	p := s.Participant(s.SideOf(player))
	if p == nil {
		return "", false
	}

	if connected {
		p.Connection = model.ConnectionConnected
		p.DisconnectedAt = nil
	} else {
		now := r.clock.Now()
		p.Connection = model.ConnectionDisconnected
		p.DisconnectedAt = &now
	}
	return id, true
}

// ActiveSessions returns the number of live sessions
func (r *Registry) ActiveSessions() int {
	r.sessionsMu.RLock()
	defer r.sessionsMu.RUnlock()
	return len(r.sessions)
}

// Wait blocks until background archive and publish calls have finished
func (r *Registry) Wait() {
	r.pending.Wait()
}

// Shutdown waits for background archive and publish calls. Side effects
// requested afterwards run inline.
func (r *Registry) Shutdown() {
	r.pendingMu.Lock()
	r.draining = true
	r.pendingMu.Unlock()
	r.pending.Wait()
}

// registerLocked adds ls to the live map and indexes its humans. It refuses
// when a human is still indexed to a live session; stale entries are
// overwritten.
func (r *Registry) registerLocked(ls *liveSession) (model.PlayerID, bool) {
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()
	r.indexMu.Lock()
	defer r.indexMu.Unlock()

	humans := ls.session.Humans()
	for _, id := range humans {
		if cur, ok := r.index[id]; ok {
			if _, live := r.sessions[cur]; live {
				return id, false
			}
		}
	}

	r.sessions[ls.session.ID] = ls
	for _, id := range humans {
		r.index[id] = ls.session.ID
	}
	return "", true
}

func (r *Registry) live(id model.SessionID) *liveSession {
	r.sessionsMu.RLock()
	defer r.sessionsMu.RUnlock()
	return r.sessions[id]
}

func (r *Registry) publishAsync(topic string, event any) {
	r.goSideEffect("publish", func(ctx context.Context) error {
		return r.publisher.Publish(ctx, topic, event)
	}, slog.String("topic", topic))
}

// goSideEffect runs fn in the background, or inline once Shutdown has been
// called. Failures are logged and dropped.
func (r *Registry) goSideEffect(name string, fn func(ctx context.Context) error, attrs ...any) {
	r.pendingMu.Lock()
	if r.draining {
		r.pendingMu.Unlock()
		r.runSideEffect(name, fn, attrs...)
		return
	}
	r.pending.Add(1)
	r.pendingMu.Unlock()

	go func() {
		defer r.pending.Done()
		r.runSideEffect(name, fn, attrs...)
	}()
}

func (r *Registry) runSideEffect(name string, fn func(ctx context.Context) error, attrs ...any) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.SideEffectTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		r.logger.Warn(name+" failed", append(attrs, slog.String("error", err.Error()))...)
	}
}

type nopNotifier struct{}

func (nopNotifier) SessionStarted(*model.Session)    {}
func (nopNotifier) BoardUpdated(model.SessionUpdate) {}
func (nopNotifier) SessionEnded(model.SessionEnd)    {}
