package realtime

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
)

const sendBuffer = 256

type Client struct {
	ID       uuid.UUID
	RaffleID uuid.UUID
	MemberID uuid.UUID
	Channels map[string]bool
	Outbound chan []byte

	done   chan struct{}
	closed bool
}

// Done is closed when the hub drops the client.
func (c *Client) Done() <-chan struct{} { return c.done }

// Hub fans envelopes out to the local connections subscribed to a channel.
// A client whose buffer is full is disconnected rather than silently
// skipped; it reconnects and reloads history, which keeps delivery
// at-least-once.
type Hub struct {
	mu            sync.RWMutex
	logger        *logger.Logger
	subscriptions map[string]map[*Client]bool
	onEvict       func()
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger:        log.With("component", "Hub"),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// NewClient registers a connection for member and subscribes it to the
// member's channel.
func (hub *Hub) NewClient(raffleID, memberID uuid.UUID) *Client {
	c := &Client{
		ID:       uuid.New(),
		RaffleID: raffleID,
		MemberID: memberID,
		Channels: make(map[string]bool),
		Outbound: make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
	hub.AddChannel(c, MemberChannel(raffleID, memberID))
	return c
}

// OnEvict registers fn to run each time a slow client is dropped. Call it
// before the hub is shared.
func (hub *Hub) OnEvict(fn func()) { hub.onEvict = fn }

func (hub *Hub) AddChannel(client *Client, channel string) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if client.closed {
		return
	}
	client.Channels[channel] = true
	clients, ok := hub.subscriptions[channel]
	if !ok {
		clients = make(map[*Client]bool)
		hub.subscriptions[channel] = clients
	}
	clients[client] = true
	hub.logger.Debug("client subscribed", "client_id", client.ID, "member_id", client.MemberID)
}

func (hub *Hub) removeLocked(client *Client) {
	for ch := range client.Channels {
		if subs, ok := hub.subscriptions[ch]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(hub.subscriptions, ch)
			}
		}
	}
	client.Channels = make(map[string]bool)
}

// Broadcast delivers env.Data to every client on env.Channel.
func (hub *Hub) Broadcast(env Envelope) {
	if env.Channel == "" {
		return
	}
	var slow []*Client
	hub.mu.RLock()
	for c := range hub.subscriptions[env.Channel] {
		select {
		case c.Outbound <- env.Data:
		default:
			slow = append(slow, c)
		}
	}
	hub.mu.RUnlock()

	for _, c := range slow {
		hub.logger.Warn("Disconnecting client; outbound buffer full", "client_id", c.ID)
		hub.CloseClient(c)
		if hub.onEvict != nil {
			hub.onEvict()
		}
	}
}

// Send queues data for one client. It reports false if the client is gone
// or its buffer is full.
func (hub *Hub) Send(client *Client, data []byte) bool {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if client.closed {
		return false
	}
	select {
	case client.Outbound <- data:
		return true
	default:
		return false
	}
}

// CloseClient unsubscribes the client and closes its Outbound channel. Safe
// to call more than once.
func (hub *Hub) CloseClient(client *Client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if client.closed {
		return
	}
	client.closed = true
	hub.removeLocked(client)
	close(client.done)
	close(client.Outbound)
}

// Connections returns how many clients listen on channel.
func (hub *Hub) Connections(channel string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.subscriptions[channel])
}

// CloseAll drops every client; their ServeWS loops then close the sockets.
func (hub *Hub) CloseAll() {
	hub.mu.RLock()
	seen := make(map[*Client]bool)
	for _, subs := range hub.subscriptions {
		for c := range subs {
			seen[c] = true
		}
	}
	hub.mu.RUnlock()
	for c := range seen {
		hub.CloseClient(c)
	}
}
