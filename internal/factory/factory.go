package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mcoot/fourinarow/internal/api"
	"github.com/mcoot/fourinarow/internal/api/handler"
	"github.com/mcoot/fourinarow/internal/config"
	"github.com/mcoot/fourinarow/internal/dependencies/clock"
	"github.com/mcoot/fourinarow/internal/dependencies/random"
	"github.com/mcoot/fourinarow/internal/events"
	"github.com/mcoot/fourinarow/internal/gateway"
	"github.com/mcoot/fourinarow/internal/services/archive"
	"github.com/mcoot/fourinarow/internal/services/auth"
	"github.com/mcoot/fourinarow/internal/services/bot"
	"github.com/mcoot/fourinarow/internal/services/game"
	"github.com/mcoot/fourinarow/internal/services/matchmaking"
	"github.com/mcoot/fourinarow/internal/services/room"
	"github.com/mcoot/fourinarow/internal/storage"
	"github.com/mcoot/fourinarow/internal/storage/memory"
	"github.com/mcoot/fourinarow/internal/storage/postgres"
	redisstorage "github.com/mcoot/fourinarow/internal/storage/redis"
	"github.com/mcoot/fourinarow/internal/ws"
)

// TicketSweepInterval is how often expired reconnect tickets are dropped
const TicketSweepInterval = 5 * time.Minute

// App contains all wired application components
type App struct {
	Config config.Config
	Logger *slog.Logger

	// Storage and event bus
	Storage   storage.Storage
	Publisher events.Publisher

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Archive  *archive.Service
	Sessions *game.Registry
	Queue    *matchmaking.Queue
	Rooms    *room.Registry
	Tickets  *auth.Service
	Gateway  *gateway.Gateway
	Hub      *ws.Hub

	sweepMu    sync.Mutex
	sweepTimer clock.Timer
	closed     bool
}

// New creates a new application with all dependencies wired
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return newWithDependencies(cfg, store, publisher, clock.New(), random.New(), logger, bcryptCost(0))
}

func newStorage(cfg config.Config) (storage.Storage, error) {
	switch cfg.StorageType {
	case config.StorageTypeMemory:
		return memory.New(), nil
	case config.StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		store, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, fmt.Errorf("redis storage: %w", err)
		}
		return store, nil
	case config.StorageTypePostgres:
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres storage: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("invalid StorageType %q", cfg.StorageType)
	}
}

func newPublisher(cfg config.Config, logger *slog.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		logger.Info("NATS_URL not set, lifecycle events are disabled")
		return &events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	logger.Info("publishing lifecycle events", slog.String("nats_url", cfg.NATSURL))
	return pub, nil
}

type bcryptCost int

// newWithDependencies wires an App around the given dependencies
func newWithDependencies(
	cfg config.Config,
	store storage.Storage,
	publisher events.Publisher,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
	cost bcryptCost,
) (*App, error) {
	strategy, err := bot.NewStrategy(cfg.BotStrategy, rnd)
	if err != nil {
		return nil, err
	}

	archiveService := archive.New(store, logger)

	gameCfg := game.DefaultConfig()
	gameCfg.BotMoveDelay = cfg.BotMoveDelay
	sessions := game.NewRegistry(archiveService, publisher, strategy, clk, rnd, logger, gameCfg)

	queue := matchmaking.New(sessions, clk, rnd, logger, cfg.MatchmakingTimeout)
	rooms := room.New(sessions, queue, clk, rnd, logger)
	tickets := auth.New(clk, logger, auth.Config{TTL: cfg.TicketTTL, Cost: int(cost)})

	gwCfg := gateway.DefaultConfig()
	gwCfg.GracePeriod = cfg.ReconnectGrace
	gwCfg.RequireTicket = cfg.RequireReconnectTicket
	gw := gateway.New(sessions, queue, rooms, tickets, publisher, clk, logger, gwCfg)
	sessions.SetNotifier(gw)

	wsCfg := ws.DefaultConfig()
	wsCfg.AllowedOrigins = cfg.AllowedOrigins
	hub := ws.NewHub(gw, rnd, logger, wsCfg)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Storage:   store,
		Publisher: publisher,
		Clock:     clk,
		Random:    rnd,
		Archive:   archiveService,
		Sessions:  sessions,
		Queue:     queue,
		Rooms:     rooms,
		Tickets:   tickets,
		Gateway:   gw,
		Hub:       hub,
	}, nil
}

// Router builds the HTTP handler serving the REST API and the websocket endpoint
func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:  a.Logger,
		Archive: a.Archive,
		Rooms:   a.Rooms,
		Health: handler.HealthSources{
			ActiveSessions:   a.Sessions.ActiveSessions,
			QueueSize:        a.Queue.Size,
			OpenRooms:        a.Rooms.Count,
			ConnectedPlayers: a.Gateway.ConnectedPlayers,
			ConnectedClients: a.Hub.ClientCount,
		},
		WebSocket: a.Hub,
		PublicURL: a.Config.PublicURL,
	})
}

// StartTicketSweeper periodically drops expired reconnect tickets until Close
func (a *App) StartTicketSweeper(interval time.Duration) {
	a.sweepMu.Lock()
	defer a.sweepMu.Unlock()
	if a.closed || a.sweepTimer != nil {
		return
	}
	a.scheduleSweepLocked(interval)
}

func (a *App) scheduleSweepLocked(interval time.Duration) {
	a.sweepTimer = a.Clock.AfterFunc(interval, func() {
		if n := a.Tickets.CleanExpired(); n > 0 {
			a.Logger.Debug("dropped expired reconnect tickets", slog.Int("count", n))
		}
		a.sweepMu.Lock()
		defer a.sweepMu.Unlock()
		if !a.closed {
			a.scheduleSweepLocked(interval)
		}
	})
}

// Close disconnects every client, waits for pending archive and publish
// calls, then releases the event bus and storage.
func (a *App) Close(ctx context.Context) error {
	a.sweepMu.Lock()
	a.closed = true
	if a.sweepTimer != nil {
		a.sweepTimer.Stop()
	}
	a.sweepMu.Unlock()

	a.Hub.Close()

	done := make(chan struct{})
	go func() {
		a.Gateway.Shutdown()
		a.Sessions.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.Logger.Warn("gave up waiting for pending side effects", slog.String("error", ctx.Err().Error()))
	}

	return errors.Join(a.Publisher.Close(), a.Storage.Close())
}
