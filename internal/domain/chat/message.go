package chat

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSanta  Role = "santa"
	RoleGiftee Role = "giftee"
)

func (r Role) Valid() bool { return r == RoleSanta || r == RoleGiftee }

// ChatMessage belongs to exactly one conversation, identified by the
// (RaffleID, SantaID, GifteeID) triple. Content is sealed at rest.
type ChatMessage struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RaffleID uuid.UUID `gorm:"type:uuid;not null;index:idx_chat_conversation,priority:1" json:"raffle_id"`
	SantaID  uuid.UUID `gorm:"type:uuid;column:santa_id;not null;index:idx_chat_conversation,priority:2" json:"santa_id"`
	GifteeID uuid.UUID `gorm:"type:uuid;column:giftee_id;not null;index:idx_chat_conversation,priority:3" json:"giftee_id"`

	SenderRole Role   `gorm:"column:sender_role;not null" json:"sender_role"`
	Content    string `gorm:"column:content;type:text;not null" json:"-"`

	ReadAt    *time.Time `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null;index:idx_chat_conversation,priority:4" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_message" }

// SenderID is the member that wrote the message.
func (m *ChatMessage) SenderID() uuid.UUID {
	if m.SenderRole == RoleSanta {
		return m.SantaID
	}
	return m.GifteeID
}
