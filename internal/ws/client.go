package ws

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/fourinarow/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
)

var (
	ErrClientClosed   = errors.New("client connection closed")
	ErrSendBufferFull = errors.New("client send buffer full")
)

// Client is one websocket connection
type Client struct {
	id          string
	conn        *websocket.Conn
	send        chan protocol.Message
	done        chan struct{}
	closeOnce   sync.Once
	connectedAt time.Time
	maxMessage  int64
}

func newClient(id string, conn *websocket.Conn, cfg Config) *Client {
	return &Client{
		id:          id,
		conn:        conn,
		send:        make(chan protocol.Message, cfg.SendBufferSize),
		done:        make(chan struct{}),
		connectedAt: time.Now(),
		maxMessage:  cfg.MaxMessageSize,
	}
}

// ID returns the connection id
func (c *Client) ID() string {
	return c.id
}

// Send queues msg for delivery without blocking
func (c *Client) Send(msg protocol.Message) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the write loop, which closes the socket
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

// readLoop decodes frames until the connection fails or is closed
func (c *Client) readLoop(handle func(protocol.Message), logger *slog.Logger) {
	defer func() {
		_ = c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg protocol.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("unexpected websocket close",
					slog.String("conn_id", c.id),
					slog.String("error", err.Error()))
			}
			return
		}
		handle(msg)
	}
}

// writeLoop pumps queued messages and keepalive pings to the socket
func (c *Client) writeLoop(logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Debug("websocket write failed",
					slog.String("conn_id", c.id),
					slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.flush()
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// flush writes whatever is still queued before the socket closes
func (c *Client) flush() {
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}
