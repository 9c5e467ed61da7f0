package room

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/mcoot/fourinarow/internal/dependencies/clock"
	"github.com/mcoot/fourinarow/internal/dependencies/random"
	"github.com/mcoot/fourinarow/internal/model"
)

// MaxCodeAttempts bounds code generation when codes collide
const MaxCodeAttempts = 10

// SessionCreator starts the session once a guest joins
type SessionCreator interface {
	CreateSession(ctx context.Context, a, b model.PlayerID, bAutomated bool) (*model.Session, error)
}

// QueueLeaver removes players from public matchmaking
type QueueLeaver interface {
	Leave(player model.PlayerID) bool
}

// Registry holds open private rooms, at most one per host
type Registry struct {
	mu     sync.Mutex
	rooms  map[model.RoomCode]*model.Room
	byHost map[model.PlayerID]model.RoomCode

	sessions SessionCreator
	queue    QueueLeaver
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger
}

// New creates a new room Registry
func New(sessions SessionCreator, queue QueueLeaver, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Registry {
	return &Registry{
		rooms:    make(map[model.RoomCode]*model.Room),
		byHost:   make(map[model.PlayerID]model.RoomCode),
		sessions: sessions,
		queue:    queue,
		clock:    clk,
		random:   rnd,
		logger:   logger.With(slog.String("component", "room-registry")),
	}
}

// NormalizeCode upper-cases a user supplied room code
func NormalizeCode(code string) model.RoomCode {
	return model.RoomCode(strings.ToUpper(strings.TrimSpace(code)))
}

// Create opens a room hosted by host, replacing any room host already has
func (r *Registry) Create(ctx context.Context, host model.PlayerID) (model.RoomCode, error) {
	r.queue.Leave(host)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeByHostLocked(host)

	for attempt := 0; attempt < MaxCodeAttempts; attempt++ {
		code := model.RoomCode(r.random.String(model.RoomCodeLength, model.RoomCodeAlphabet))
		if _, taken := r.rooms[code]; taken || code == "" {
			continue
		}

		r.rooms[code] = &model.Room{Code: code, Host: host, CreatedAt: r.clock.Now()}
		r.byHost[host] = code
		r.logger.InfoContext(ctx, "room created",
			slog.String("code", string(code)),
			slog.String("host", string(host)),
		)
		return code, nil
	}

	r.logger.WarnContext(ctx, "could not allocate room code",
		slog.String("host", string(host)),
		slog.Int("attempts", MaxCodeAttempts),
	)
	return "", model.ErrRoomCodeUnavailable
}

// Join closes the room and starts a session between its host and joiner
func (r *Registry) Join(ctx context.Context, joiner model.PlayerID, code string) (*model.Session, error) {
	c := NormalizeCode(code)

	r.mu.Lock()
	room, ok := r.rooms[c]
	if !ok {
		r.mu.Unlock()
		return nil, model.ErrRoomNotFound
	}
	if room.Host == joiner {
		r.mu.Unlock()
		return nil, model.ErrCannotJoinOwnRoom
	}
	delete(r.rooms, c)
	delete(r.byHost, room.Host)
	r.removeByHostLocked(joiner)
	r.mu.Unlock()

	r.queue.Leave(room.Host)
	r.queue.Leave(joiner)

	s, err := r.sessions.CreateSession(ctx, room.Host, joiner, false)
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "room joined",
		slog.String("code", string(c)),
		slog.String("host", string(room.Host)),
		slog.String("joiner", string(joiner)),
		slog.String("session_id", string(s.ID)),
	)
	return s, nil
}

// CancelByHost closes host's room, if any
func (r *Registry) CancelByHost(host model.PlayerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeByHostLocked(host)
}

// CancelByCode closes the room with the given code, if any
func (r *Registry) CancelByCode(code string) bool {
	c := NormalizeCode(code)

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[c]
	if !ok {
		return false
	}
	delete(r.rooms, c)
	delete(r.byHost, room.Host)
	r.logger.Debug("room cancelled", slog.String("code", string(c)))
	return true
}

// Get returns a copy of the open room with the given code
func (r *Registry) Get(code string) (*model.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[NormalizeCode(code)]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	out := *room
	return &out, nil
}

// Count returns the number of open rooms
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func (r *Registry) removeByHostLocked(host model.PlayerID) bool {
	code, ok := r.byHost[host]
	if !ok {
		return false
	}
	delete(r.byHost, host)
	delete(r.rooms, code)
	r.logger.Debug("room cancelled",
		slog.String("code", string(code)),
		slog.String("host", string(host)),
	)
	return true
}
