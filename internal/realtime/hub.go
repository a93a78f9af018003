// Package realtime fans authoritative state out to connected clients over
// WebSocket or Server-Sent Events. Every message is a full snapshot of its
// kind; a client that connects receives the current state first.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/playperu/partynight/internal/party"
	"github.com/playperu/partynight/internal/scoreboard"
)

// Message types on the realtime channel.
const (
	TypeConnected        = "connected"
	TypeGameState        = "game-state"
	TypeScoreboardUpdate = "scoreboard-update"
)

type Message struct {
	Type    string     `json:"type"`
	Time    *time.Time `json:"time,omitempty"`
	Payload any        `json:"payload,omitempty"`
}

// Frame is an encoded message waiting in a client's queue.
type Frame struct {
	Type string
	Data []byte
}

// Snapshot is the state replayed to a client when it connects. Both parts
// are taken from the same state revision.
type Snapshot struct {
	Revision   uint64
	Game       party.GameState
	Scoreboard scoreboard.Payload
}

// Snapshotter supplies the current state replayed to new clients.
type Snapshotter interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

const minQueueSize = 4

type Hub struct {
	snap      Snapshotter
	clock     clockwork.Clock
	logger    *slog.Logger
	queueSize int

	mu      sync.RWMutex
	clients map[string]*Client
}

type Option func(*Hub)

func WithClock(c clockwork.Clock) Option {
	return func(h *Hub) { h.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// WithQueueSize sets how many frames may wait for a client before it is
// dropped as too slow.
func WithQueueSize(n int) Option {
	return func(h *Hub) { h.queueSize = n }
}

func NewHub(snap Snapshotter, opts ...Option) *Hub {
	h := &Hub{
		snap:      snap,
		clock:     clockwork.NewRealClock(),
		logger:    slog.Default(),
		queueSize: 16,
		clients:   make(map[string]*Client),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.queueSize = max(h.queueSize, minQueueSize)
	return h
}

// Client is one registered connection. Its queue is written only by the hub
// and drained by exactly one transport goroutine, so frames arrive in the
// order they were generated.
type Client struct {
	id     string
	send   chan Frame
	done   chan struct{}
	closed sync.Once

	// seen is the newest revision queued per message type. Guarded by Hub.mu.
	seen map[string]uint64
}

func (c *Client) ID() string { return c.id }

// Frames is the client's outbound queue.
func (c *Client) Frames() <-chan Frame { return c.send }

// Done is closed once the hub has dropped the client.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) close() {
	c.closed.Do(func() { close(c.done) })
}

// Register adds a client and queues, in order, the connected message, the
// current game state and the current scoreboard. Pushes that race with
// Register are delivered after the replay, and only if they are newer.
func (h *Hub) Register(ctx context.Context) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap, err := h.snap.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	now := h.clock.Now().UTC()
	replay := []Message{
		{Type: TypeConnected, Time: &now},
		{Type: TypeGameState, Payload: snap.Game},
		{Type: TypeScoreboardUpdate, Payload: snap.Scoreboard},
	}

	c := &Client{
		id:   uuid.NewString(),
		send: make(chan Frame, h.queueSize),
		done: make(chan struct{}),
		seen: map[string]uint64{
			TypeGameState:        snap.Revision,
			TypeScoreboardUpdate: snap.Revision,
		},
	}
	for _, m := range replay {
		f, err := encode(m)
		if err != nil {
			return nil, err
		}
		c.send <- f
	}
	h.clients[c.id] = c

	h.logger.Debug("realtime client registered", "client_id", c.id, "clients", len(h.clients))
	return c, nil
}

// Unregister removes a client. It is safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	n := len(h.clients)
	h.mu.Unlock()

	c.close()
	if ok {
		h.logger.Debug("realtime client removed", "client_id", c.id, "clients", n)
	}
}

// PushGameState broadcasts the game state as of revision rev.
func (h *Hub) PushGameState(rev uint64, gs party.GameState) {
	h.broadcast(rev, Message{Type: TypeGameState, Payload: gs})
}

// PushScoreboard broadcasts the scoreboard as of revision rev.
func (h *Hub) PushScoreboard(rev uint64, p scoreboard.Payload) {
	h.broadcast(rev, Message{Type: TypeScoreboardUpdate, Payload: p})
}

// Count is the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast encodes m once and queues it for every client without blocking.
// A client that already has a newer message of the same type skips m.
// Clients whose queue is full are dropped; the others are unaffected.
func (h *Hub) broadcast(rev uint64, m Message) {
	f, err := encode(m)
	if err != nil {
		h.logger.Error("encoding realtime message", "type", m.Type, "error", err)
		return
	}

	var slow []*Client
	h.mu.Lock()
	for _, c := range h.clients {
		if rev <= c.seen[m.Type] {
			continue
		}
		select {
		case c.send <- f:
			c.seen[m.Type] = rev
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow realtime client", "client_id", c.id, "type", m.Type)
		h.Unregister(c)
	}
}

func encode(m Message) (Frame, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return Frame{}, fmt.Errorf("encoding %s message: %w", m.Type, err)
	}
	return Frame{Type: m.Type, Data: data}, nil
}
