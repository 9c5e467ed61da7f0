// Package gateway binds player names to live connections, dispatches inbound
// protocol events and pushes session state back out.
package gateway

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mcoot/fourinarow/internal/dependencies/clock"
	"github.com/mcoot/fourinarow/internal/events"
	"github.com/mcoot/fourinarow/internal/model"
	"github.com/mcoot/fourinarow/internal/protocol"
	"github.com/mcoot/fourinarow/internal/services/game"
	"github.com/mcoot/fourinarow/internal/services/matchmaking"
)

// MaxChatLength is the longest accepted chat message, in characters
const MaxChatLength = 500

// Conn is a live client connection
type Conn interface {
	ID() string
	Send(msg protocol.Message) error
	Close() error
}

// Sessions is the session registry as seen by the gateway
type Sessions interface {
	SubmitMove(ctx context.Context, id model.SessionID, player model.PlayerID, col int) (*game.MoveOutcome, error)
	GetSession(id model.SessionID) (*model.Session, error)
	GetSessionByParticipant(player model.PlayerID) (*model.Session, bool)
	ForceForfeit(ctx context.Context, id model.SessionID, loser model.PlayerID, reason model.EndReason) error
	MarkConnection(player model.PlayerID, connected bool) (model.SessionID, bool)
}

// Queue is public matchmaking
type Queue interface {
	Join(ctx context.Context, player model.PlayerID) (matchmaking.JoinResult, error)
	PlayBot(ctx context.Context, player model.PlayerID) (*model.Session, error)
	Leave(player model.PlayerID) bool
	Size() int
}

// Rooms is private room pairing
type Rooms interface {
	Create(ctx context.Context, host model.PlayerID) (model.RoomCode, error)
	Join(ctx context.Context, joiner model.PlayerID, code string) (*model.Session, error)
	CancelByHost(host model.PlayerID) bool
}

// Tickets issues and checks reconnect tickets
type Tickets interface {
	Issue(player model.PlayerID, sessionID model.SessionID) (string, error)
	Verify(player model.PlayerID, sessionID model.SessionID, token string) error
	RevokeSession(sessionID model.SessionID)
}

// Config holds gateway settings
type Config struct {
	// GracePeriod is how long a disconnected player has to come back
	GracePeriod time.Duration
	// RequireTicket makes reconnect present the ticket issued at session start
	RequireTicket bool
	// PublishTimeout bounds each event publish
	PublishTimeout time.Duration
}

// DefaultConfig returns the default gateway settings
func DefaultConfig() Config {
	return Config{
		GracePeriod:    30 * time.Second,
		RequireTicket:  true,
		PublishTimeout: 10 * time.Second,
	}
}

type graceTimer struct {
	sessionID model.SessionID
	timer     clock.Timer
}

// Gateway implements game.Notifier
type Gateway struct {
	mu         sync.Mutex
	conns      map[model.PlayerID]Conn
	identities map[string]model.PlayerID
	grace      map[model.PlayerID]*graceTimer

	sessions  Sessions
	queue     Queue
	rooms     Rooms
	tickets   Tickets
	publisher events.Publisher
	clock     clock.Clock
	logger    *slog.Logger
	cfg       Config

	pendingMu sync.Mutex
	pending   sync.WaitGroup
	draining  bool
}

var _ game.Notifier = (*Gateway)(nil)

// New creates a new Gateway
func New(
	sessions Sessions,
	queue Queue,
	rooms Rooms,
	tickets Tickets,
	publisher events.Publisher,
	clk clock.Clock,
	logger *slog.Logger,
	cfg Config,
) *Gateway {
	return &Gateway{
		conns:      make(map[model.PlayerID]Conn),
		identities: make(map[string]model.PlayerID),
		grace:      make(map[model.PlayerID]*graceTimer),
		sessions:   sessions,
		queue:      queue,
		rooms:      rooms,
		tickets:    tickets,
		publisher:  publisher,
		clock:      clk,
		logger:     logger.With(slog.String("component", "gateway")),
		cfg:        cfg,
	}
}

// Connect registers a freshly accepted connection. It stays anonymous until
// it joins with a name.
func (g *Gateway) Connect(ctx context.Context, conn Conn) {
	g.logger.DebugContext(ctx, "connection opened", slog.String("conn_id", conn.ID()))
}

// HandleMessage dispatches one inbound frame. Failures are reported to conn only.
func (g *Gateway) HandleMessage(ctx context.Context, conn Conn, msg protocol.Message) {
	ev, err := protocol.Decode(msg)
	if err != nil {
		g.logger.DebugContext(ctx, "bad message",
			slog.String("conn_id", conn.ID()),
			slog.String("type", msg.Type),
			slog.String("error", err.Error()),
		)
		g.send(conn, protocol.TypeError, protocol.NewRejection(err))
		return
	}

	switch e := ev.(type) {
	case protocol.JoinIdentity:
		err = g.handleJoinIdentity(ctx, conn, e)
	case protocol.QueueJoin:
		err = g.handleQueueJoin(ctx, conn, e)
	case protocol.QueueJoinAutomated:
		err = g.handleQueueJoinAutomated(ctx, conn, e)
	case protocol.QueueLeave:
		err = g.handleQueueLeave(conn)
	case protocol.RoomCreate:
		err = g.handleRoomCreate(ctx, conn, e)
	case protocol.RoomJoin:
		err = g.handleRoomJoin(ctx, conn, e)
	case protocol.RoomLeave:
		err = g.handleRoomLeave(conn)
	case protocol.SubmitMove:
		err = g.handleSubmitMove(ctx, conn, e)
	case protocol.Reconnect:
		err = g.handleReconnect(ctx, conn, e)
	case protocol.SendChat:
		err = g.handleSendChat(ctx, conn, e)
	case protocol.Resign:
		err = g.handleResign(ctx, conn, e)
	default:
		err = protocol.ErrUnknownType
	}

	if err != nil {
		g.reject(ctx, conn, ev, err)
	}
}

func (g *Gateway) reject(ctx context.Context, conn Conn, ev protocol.Event, err error) {
	msgType := protocol.TypeError
	switch {
	case ev.Type() == protocol.TypeSubmitMove && protocol.IsMoveError(err):
		msgType = protocol.TypeMoveRejected
	case protocol.IsRoomError(err):
		msgType = protocol.TypeRoomError
	}

	level := slog.LevelDebug
	if protocol.ReasonFor(err) == protocol.ReasonInternal {
		level = slog.LevelError
	}
	g.logger.Log(ctx, level, "request rejected",
		slog.String("conn_id", conn.ID()),
		slog.String("type", ev.Type()),
		slog.String("error", err.Error()),
	)
	g.send(conn, msgType, protocol.NewRejection(err))
}

func (g *Gateway) handleJoinIdentity(ctx context.Context, conn Conn, e protocol.JoinIdentity) error {
	if err := g.bind(ctx, conn, e.Name); err != nil {
		return err
	}
	g.send(conn, protocol.TypeIdentityJoined, protocol.IdentityJoined{Name: e.Name})
	g.publishAsync(events.TopicPlayerJoined, events.PlayerJoined{Player: e.Name})

	// without tickets a returning player resumes by name alone
	if !g.cfg.RequireTicket {
		if s, ok := g.sessions.GetSessionByParticipant(e.Name); ok {
			g.resume(ctx, conn, e.Name, s.ID)
		}
	}
	return nil
}

func (g *Gateway) handleQueueJoin(ctx context.Context, conn Conn, e protocol.QueueJoin) error {
	player, err := g.ensureBound(ctx, conn, e.Name)
	if err != nil {
		return err
	}
	g.rooms.CancelByHost(player)

	res, err := g.queue.Join(ctx, player)
	if err != nil {
		return err
	}
	switch res.Status {
	case matchmaking.JoinInSession:
		return model.ErrAlreadyInSession
	case matchmaking.JoinQueued, matchmaking.JoinAlreadyQueued:
		g.send(conn, protocol.TypeQueueJoined, protocol.QueueJoined{Position: g.queue.Size()})
	}
	return nil
}

func (g *Gateway) handleQueueJoinAutomated(ctx context.Context, conn Conn, e protocol.QueueJoinAutomated) error {
	player, err := g.ensureBound(ctx, conn, e.Name)
	if err != nil {
		return err
	}
	g.rooms.CancelByHost(player)
	_, err = g.queue.PlayBot(ctx, player)
	return err
}

func (g *Gateway) handleQueueLeave(conn Conn) error {
	player, err := g.boundIdentity(conn)
	if err != nil {
		return err
	}
	g.send(conn, protocol.TypeQueueLeft, protocol.QueueLeft{WasQueued: g.queue.Leave(player)})
	return nil
}

func (g *Gateway) handleRoomCreate(ctx context.Context, conn Conn, e protocol.RoomCreate) error {
	player, err := g.ensureBound(ctx, conn, e.Name)
	if err != nil {
		return err
	}
	if _, ok := g.sessions.GetSessionByParticipant(player); ok {
		return model.ErrAlreadyInSession
	}
	code, err := g.rooms.Create(ctx, player)
	if err != nil {
		return err
	}
	g.send(conn, protocol.TypeRoomCreated, protocol.RoomCreated{Code: code})
	return nil
}

func (g *Gateway) handleRoomJoin(ctx context.Context, conn Conn, e protocol.RoomJoin) error {
	player, err := g.ensureBound(ctx, conn, e.Name)
	if err != nil {
		return err
	}
	if _, ok := g.sessions.GetSessionByParticipant(player); ok {
		return model.ErrAlreadyInSession
	}
	_, err = g.rooms.Join(ctx, player, e.Code)
	return err
}

func (g *Gateway) handleRoomLeave(conn Conn) error {
	player, err := g.boundIdentity(conn)
	if err != nil {
		return err
	}
	g.rooms.CancelByHost(player)
	return nil
}

func (g *Gateway) handleSubmitMove(ctx context.Context, conn Conn, e protocol.SubmitMove) error {
	player, err := g.boundIdentity(conn)
	if err != nil {
		return err
	}
	_, err = g.sessions.SubmitMove(ctx, e.SessionID, player, e.Column)
	return err
}

func (g *Gateway) handleResign(ctx context.Context, conn Conn, e protocol.Resign) error {
	player, err := g.boundIdentity(conn)
	if err != nil {
		return err
	}
	s, err := g.sessions.GetSession(e.SessionID)
	if err != nil {
		return err
	}
	if s.SideOf(player) == model.SideNone {
		return model.ErrNotAParticipant
	}
	g.logger.InfoContext(ctx, "player resigned",
		slog.String("player", string(player)),
		slog.String("session_id", string(s.ID)),
	)
	return g.sessions.ForceForfeit(ctx, s.ID, player, model.EndReasonForfeit)
}

func (g *Gateway) handleReconnect(ctx context.Context, conn Conn, e protocol.Reconnect) error {
	if err := protocol.ValidateName(e.Name); err != nil {
		return err
	}
	if bound, ok := g.identityOf(conn); ok && bound != e.Name {
		return model.ErrIdentityMismatch
	}

	s, err := g.sessions.GetSession(e.SessionID)
	if err != nil {
		return err
	}
	p := s.Participant(s.SideOf(e.Name))
	if p == nil || p.IsAutomated {
		return model.ErrNotAParticipant
	}
	if g.cfg.RequireTicket {
		if err := g.tickets.Verify(e.Name, e.SessionID, e.Token); err != nil {
			return err
		}
	}

	g.mu.Lock()
	stale := g.conns[e.Name]
	if stale != nil && stale.ID() == conn.ID() {
		stale = nil
	}
	if stale != nil {
		delete(g.identities, stale.ID())
	}
	g.bindLocked(conn, e.Name)
	g.mu.Unlock()

	if stale != nil {
		g.logger.InfoContext(ctx, "replacing stale connection",
			slog.String("player", string(e.Name)),
			slog.String("old_conn_id", stale.ID()),
			slog.String("conn_id", conn.ID()),
		)
		_ = stale.Close()
	}

	g.resume(ctx, conn, e.Name, e.SessionID)
	return nil
}

// resume cancels the player's grace timer and sends a full snapshot
func (g *Gateway) resume(ctx context.Context, conn Conn, player model.PlayerID, id model.SessionID) {
	g.stopGrace(player)
	g.sessions.MarkConnection(player, true)

	s, err := g.sessions.GetSession(id)
	if err != nil {
		g.send(conn, protocol.TypeError, protocol.NewRejection(err))
		return
	}

	g.logger.InfoContext(ctx, "player reconnected",
		slog.String("player", string(player)),
		slog.String("session_id", string(id)),
	)
	g.send(conn, protocol.TypeSessionState, protocol.NewSessionState(s, player))
	g.publishAsync(events.TopicPlayerReconnected, events.PlayerReconnected{Player: player, SessionID: id})
}

func (g *Gateway) handleSendChat(ctx context.Context, conn Conn, e protocol.SendChat) error {
	player, err := g.ensureBound(ctx, conn, e.Name)
	if err != nil {
		return err
	}
	if strings.TrimSpace(e.Text) == "" || utf8.RuneCountInString(e.Text) > MaxChatLength {
		return model.ErrInvalidChatMessage
	}

	s, err := g.sessions.GetSession(e.SessionID)
	if err != nil {
		return err
	}
	if s.SideOf(player) == model.SideNone {
		return model.ErrNotAParticipant
	}

	chat := protocol.ChatMessage{
		SessionID: s.ID,
		From:      player,
		Text:      e.Text,
		SentAt:    g.clock.Now(),
	}
	g.broadcast([]model.Participant{s.PlayerA, s.PlayerB}, protocol.TypeChatMessage, chat)
	g.publishAsync(events.TopicChatMessage, events.ChatMessage{
		SessionID: chat.SessionID,
		From:      chat.From,
		Text:      chat.Text,
		SentAt:    chat.SentAt,
	})
	return nil
}

// Disconnect tears down conn's binding. A connection that has already been
// replaced by a reconnect is ignored.
func (g *Gateway) Disconnect(ctx context.Context, conn Conn) {
	g.mu.Lock()
	player, ok := g.identities[conn.ID()]
	if !ok {
		g.mu.Unlock()
		g.logger.DebugContext(ctx, "anonymous connection closed", slog.String("conn_id", conn.ID()))
		return
	}
	delete(g.identities, conn.ID())
	if cur := g.conns[player]; cur == nil || cur.ID() != conn.ID() {
		g.mu.Unlock()
		return
	}
	delete(g.conns, player)
	g.mu.Unlock()

	g.queue.Leave(player)
	g.rooms.CancelByHost(player)

	id, inSession := g.sessions.MarkConnection(player, false)
	g.logger.InfoContext(ctx, "player disconnected",
		slog.String("player", string(player)),
		slog.String("conn_id", conn.ID()),
		slog.Bool("in_session", inSession),
	)
	if inSession {
		g.armGrace(player, id)
	}
	g.publishAsync(events.TopicPlayerDisconnected, events.PlayerDisconnected{Player: player, SessionID: id})
}

func (g *Gateway) armGrace(player model.PlayerID, id model.SessionID) {
	gt := &graceTimer{sessionID: id}

	g.mu.Lock()
	defer g.mu.Unlock()

	if old := g.grace[player]; old != nil {
		old.timer.Stop()
	}
	gt.timer = g.clock.AfterFunc(g.cfg.GracePeriod, func() {
		g.graceExpired(player, gt)
	})
	g.grace[player] = gt
}

// graceExpired forfeits the player's session if they are still gone and the
// session is still live with them in it.
func (g *Gateway) graceExpired(player model.PlayerID, gt *graceTimer) {
	g.mu.Lock()
	if g.grace[player] != gt {
		g.mu.Unlock()
		return
	}
	delete(g.grace, player)
	_, back := g.conns[player]
	g.mu.Unlock()
	if back {
		return
	}

	s, err := g.sessions.GetSession(gt.sessionID)
	if err != nil || s.SideOf(player) == model.SideNone {
		return
	}

	ctx := context.Background()
	g.logger.InfoContext(ctx, "grace period expired, forfeiting",
		slog.String("player", string(player)),
		slog.String("session_id", string(gt.sessionID)),
	)
	if err := g.sessions.ForceForfeit(ctx, gt.sessionID, player, model.EndReasonOpponentDisconnected); err != nil {
		g.logger.ErrorContext(ctx, "forfeit failed",
			slog.String("player", string(player)),
			slog.String("error", err.Error()),
		)
	}
}

func (g *Gateway) stopGrace(player model.PlayerID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopGraceLocked(player, "")
}

// stopGraceLocked cancels player's grace timer. A non-empty id only cancels
// a timer for that session.
func (g *Gateway) stopGraceLocked(player model.PlayerID, id model.SessionID) {
	gt := g.grace[player]
	if gt == nil || (id != "" && gt.sessionID != id) {
		return
	}
	gt.timer.Stop()
	delete(g.grace, player)
}

// bind attaches name to conn, rejecting names held by another live connection
func (g *Gateway) bind(ctx context.Context, conn Conn, name model.PlayerID) error {
	if err := protocol.ValidateName(name); err != nil {
		return err
	}
	if g.cfg.RequireTicket {
		if _, ok := g.sessions.GetSessionByParticipant(name); ok {
			if bound, _ := g.identityOf(conn); bound != name {
				return model.ErrReconnectRequired
			}
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if bound, ok := g.identities[conn.ID()]; ok {
		if bound != name {
			return model.ErrIdentityMismatch
		}
		return nil
	}
	if other, ok := g.conns[name]; ok && other.ID() != conn.ID() {
		return model.ErrIdentityTaken
	}
	g.bindLocked(conn, name)

	g.logger.InfoContext(ctx, "identity joined",
		slog.String("player", string(name)),
		slog.String("conn_id", conn.ID()),
	)
	return nil
}

func (g *Gateway) bindLocked(conn Conn, name model.PlayerID) {
	g.conns[name] = conn
	g.identities[conn.ID()] = name
}

// ensureBound returns conn's identity, binding name first if conn is anonymous
func (g *Gateway) ensureBound(ctx context.Context, conn Conn, name model.PlayerID) (model.PlayerID, error) {
	if bound, ok := g.identityOf(conn); ok {
		if bound != name {
			return "", model.ErrIdentityMismatch
		}
		return bound, nil
	}
	if err := g.bind(ctx, conn, name); err != nil {
		return "", err
	}
	return name, nil
}

func (g *Gateway) boundIdentity(conn Conn) (model.PlayerID, error) {
	player, ok := g.identityOf(conn)
	if !ok {
		return "", model.ErrNotIdentified
	}
	return player, nil
}

func (g *Gateway) identityOf(conn Conn) (model.PlayerID, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	player, ok := g.identities[conn.ID()]
	return player, ok
}

func (g *Gateway) connFor(player model.PlayerID) Conn {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conns[player]
}

// ConnectedPlayers returns the number of named connections
func (g *Gateway) ConnectedPlayers() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.conns)
}

// Wait blocks until background publishes have finished
func (g *Gateway) Wait() {
	g.pending.Wait()
}

// Shutdown waits for background publishes. Publishes requested afterwards
// run inline.
func (g *Gateway) Shutdown() {
	g.pendingMu.Lock()
	g.draining = true
	g.pendingMu.Unlock()
	g.pending.Wait()
}

func (g *Gateway) send(conn Conn, msgType string, payload any) {
	msg, err := protocol.Encode(msgType, payload)
	if err != nil {
		g.logger.Error("encode failed", slog.String("type", msgType), slog.String("error", err.Error()))
		return
	}
	if err := conn.Send(msg); err != nil {
		g.logger.Warn("send failed",
			slog.String("conn_id", conn.ID()),
			slog.String("type", msgType),
			slog.String("error", err.Error()),
		)
	}
}

// broadcast sends to every connected human among participants
func (g *Gateway) broadcast(participants []model.Participant, msgType string, payload any) {
	for _, p := range participants {
		if p.IsAutomated {
			continue
		}
		if conn := g.connFor(p.ID); conn != nil {
			g.send(conn, msgType, payload)
		}
	}
}

func (g *Gateway) publishAsync(topic string, event any) {
	g.pendingMu.Lock()
	if g.draining {
		g.pendingMu.Unlock()
		g.publish(topic, event)
		return
	}
	g.pending.Add(1)
	g.pendingMu.Unlock()

	go func() {
		defer g.pending.Done()
		g.publish(topic, event)
	}()
}

func (g *Gateway) publish(topic string, event any) {
	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.PublishTimeout)
	defer cancel()

	if err := g.publisher.Publish(ctx, topic, event); err != nil {
		g.logger.Warn("publish failed", slog.String("topic", topic), slog.String("error", err.Error()))
	}
}
