package relayclient

import (
	"bytes"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ConversationKey identifies a conversation the way the relay tags messages.
type ConversationKey struct {
	SantaID  uuid.UUID
	GifteeID uuid.UUID
}

// Conversation is the merged history and live view of one chat. History
// loads and live pushes race during reconnects, so messages are
// deduplicated by id only.
type Conversation struct {
	mu   sync.RWMutex
	seen map[uuid.UUID]struct{}
	msgs []Message
}

func NewConversation() *Conversation {
	return &Conversation{seen: make(map[uuid.UUID]struct{})}
}

// Merge adds unseen messages, keeps the view ordered by CreatedAt and
// returns how many were new.
func (c *Conversation) Merge(msgs ...Message) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	added := 0
	for _, m := range msgs {
		if _, ok := c.seen[m.ID]; ok {
			continue
		}
		c.seen[m.ID] = struct{}{}
		c.msgs = append(c.msgs, m)
		added++
	}
	if added > 0 {
		sort.SliceStable(c.msgs, func(i, j int) bool {
			a, b := c.msgs[i], c.msgs[j]
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return bytes.Compare(a.ID[:], b.ID[:]) < 0
		})
	}
	return added
}

func (c *Conversation) Seen(id uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.seen[id]
	return ok
}

func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Message(nil), c.msgs...)
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.msgs)
}

// Inbox holds every conversation seen by one member.
type Inbox struct {
	mu    sync.Mutex
	convs map[ConversationKey]*Conversation
}

func NewInbox() *Inbox {
	return &Inbox{convs: make(map[ConversationKey]*Conversation)}
}

func (in *Inbox) Conversation(key ConversationKey) *Conversation {
	in.mu.Lock()
	defer in.mu.Unlock()
	c, ok := in.convs[key]
	if !ok {
		c = NewConversation()
		in.convs[key] = c
	}
	return c
}

// Merge files each message under its conversation and returns the messages
// that were new, in input order.
func (in *Inbox) Merge(msgs ...Message) []Message {
	var fresh []Message
	for _, m := range msgs {
		if in.Conversation(m.Key()).Merge(m) == 1 {
			fresh = append(fresh, m)
		}
	}
	return fresh
}
