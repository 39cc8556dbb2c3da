package raffle

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Member is one participant of one raffle. The same user has a distinct
// Member per raffle.
type Member struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RaffleID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_member_raffle_user,priority:1" json:"raffle_id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_member_raffle_user,priority:2;index" json:"user_id"`
	DisplayName string    `gorm:"column:display_name;not null" json:"display_name"`
	Wishlist    string    `gorm:"column:wishlist;type:text;not null;default:''" json:"wishlist"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Member) TableName() string { return "raffle_member" }

func (m *Member) ProfileComplete() bool {
	return m != nil && strings.TrimSpace(m.DisplayName) != "" && strings.TrimSpace(m.Wishlist) != ""
}
