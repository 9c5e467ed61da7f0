// Package ws is the websocket transport: it upgrades HTTP requests, pumps
// JSON frames and hands them to the gateway.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/fourinarow/internal/dependencies/random"
	"github.com/mcoot/fourinarow/internal/gateway"
	"github.com/mcoot/fourinarow/internal/protocol"
)

// Handler receives connection lifecycle and inbound messages
type Handler interface {
	Connect(ctx context.Context, conn gateway.Conn)
	HandleMessage(ctx context.Context, conn gateway.Conn, msg protocol.Message)
	Disconnect(ctx context.Context, conn gateway.Conn)
}

// Config holds transport settings
type Config struct {
	// AllowedOrigins lists browser origins allowed to connect. Empty allows any.
	AllowedOrigins []string
	SendBufferSize int
	MaxMessageSize int64
}

// DefaultConfig returns the default transport settings
func DefaultConfig() Config {
	return Config{
		SendBufferSize: 256,
		MaxMessageSize: 4096,
	}
}

// Hub tracks every open websocket client
type Hub struct {
	handler  Handler
	random   random.Random
	logger   *slog.Logger
	cfg      Config
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
}

// NewHub creates a new Hub
func NewHub(handler Handler, rnd random.Random, logger *slog.Logger, cfg Config) *Hub {
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = DefaultConfig().SendBufferSize
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultConfig().MaxMessageSize
	}
	h := &Hub{
		handler: handler,
		random:  rnd,
		logger:  logger.With(slog.String("component", "ws")),
		cfg:     cfg,
		clients: make(map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeHTTP upgrades the request and serves the connection until it closes
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := newClient(h.random.UUID(), conn, h.cfg)
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	ctx := context.WithoutCancel(r.Context())
	h.handler.Connect(ctx, c)

	go c.writeLoop(h.logger)
	c.readLoop(func(msg protocol.Message) {
		h.handler.HandleMessage(ctx, c, msg)
	}, h.logger)

	h.unregister(c)
	h.handler.Disconnect(ctx, c)
}

// ClientCount returns the number of open connections
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.Close()
	}
	h.logger.Info("ws hub stopped", slog.Int("disconnected_clients", len(clients)))
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("ws client registered",
		slog.String("conn_id", c.id),
		slog.Int("total_clients", count))
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	_ = c.Close()
	h.logger.Info("ws client unregistered",
		slog.String("conn_id", c.id),
		slog.Duration("connection_duration", time.Since(c.connectedAt)),
		slog.Int("total_clients", count))
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		// non-browser clients
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}
