package testutil

import (
	"encoding/json"
	"sync"

	"github.com/mcoot/fourinarow/internal/protocol"
)

// FakeConn records every message sent to it
type FakeConn struct {
	id string

	mu       sync.Mutex
	messages []protocol.Message
	closed   bool
}

// NewFakeConn creates a FakeConn with the given connection id
func NewFakeConn(id string) *FakeConn {
	return &FakeConn{id: id}
}

func (c *FakeConn) ID() string {
	return c.id
}

func (c *FakeConn) Send(msg protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	return nil
}

func (c *FakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether Close was called
func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Messages returns a copy of everything sent so far
func (c *FakeConn) Messages() []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Message(nil), c.messages...)
}

// Types returns the type of every message sent so far, in order
func (c *FakeConn) Types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, len(c.messages))
	for i, m := range c.messages {
		types[i] = m.Type
	}
	return types
}

// Count returns how many messages of msgType were sent
func (c *FakeConn) Count(msgType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.messages {
		if m.Type == msgType {
			n++
		}
	}
	return n
}

// Last decodes the payload of the most recent message of msgType into v.
// It reports false if no such message was sent.
func (c *FakeConn) Last(msgType string, v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Type != msgType {
			continue
		}
		if v != nil && len(c.messages[i].Payload) > 0 {
			if err := json.Unmarshal(c.messages[i].Payload, v); err != nil {
				return false
			}
		}
		return true
	}
	return false
}

// Reset forgets all recorded messages
func (c *FakeConn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}
