package raffle

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Raffle struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Name        string    `gorm:"column:name;not null" json:"name"`

	// IsDrawn flips to true in the same transaction that writes the
	// assignment rows and never flips back; deleting the raffle is the only
	// reset.
	IsDrawn  bool           `gorm:"column:is_drawn;not null;default:false;index" json:"is_drawn"`
	DrawnAt  *time.Time     `gorm:"column:drawn_at" json:"drawn_at,omitempty"`
	DrawMeta datatypes.JSON `gorm:"column:draw_meta" json:"draw_meta,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Raffle) TableName() string { return "raffle" }

// DrawMeta is what gets recorded in Raffle.DrawMeta at commit time.
type DrawMeta struct {
	Members    int    `json:"members"`
	Exclusions int    `json:"exclusions"`
	Phase      string `json:"phase"`
	Attempts   int    `json:"attempts"`
}
