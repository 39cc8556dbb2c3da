package relayclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	RoleSanta  = "santa"
	RoleGiftee = "giftee"
)

var (
	ErrUnauthenticated = errors.New("relayclient: credential rejected")
	ErrNotConnected    = errors.New("relayclient: not connected")
	ErrClosed          = errors.New("relayclient: closed")
	ErrRunning         = errors.New("relayclient: already running")
)

// Message is one chat message as pushed by the relay or returned by history.
type Message struct {
	ID         uuid.UUID  `json:"id"`
	Content    string     `json:"content"`
	SantaID    uuid.UUID  `json:"santaId"`
	GifteeID   uuid.UUID  `json:"gifteeId"`
	SenderRole string     `json:"senderRole"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (m Message) Key() ConversationKey {
	return ConversationKey{SantaID: m.SantaID, GifteeID: m.GifteeID}
}

// ServerError is a frame the relay rejected. The connection stays up.
type ServerError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("relay: %s: %s", e.Code, e.Message)
}

// RejectedError is a handshake the server refused for a reason other than
// the credential. Retrying would not help, so Run stops.
type RejectedError struct {
	StatusCode int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("relayclient: connection rejected with status %d", e.StatusCode)
}

type outboundFrame struct {
	Content  string `json:"content"`
	Role     string `json:"role"`
	ClientID string `json:"clientId,omitempty"`
}

type inboundFrame struct {
	Error *ServerError `json:"error"`
	Message
}
