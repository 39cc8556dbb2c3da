package raffle

import (
	"time"

	"github.com/google/uuid"
)

// Assignment is one giver -> receiver edge of a committed draw. The two unique
// indexes make every member a giver at most once and a receiver at most once.
type Assignment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RaffleID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_assignment_giver,priority:1;uniqueIndex:idx_assignment_receiver,priority:1" json:"raffle_id"`
	GiverID    uuid.UUID `gorm:"type:uuid;column:giver_id;not null;uniqueIndex:idx_assignment_giver,priority:2" json:"giver_id"`
	ReceiverID uuid.UUID `gorm:"type:uuid;column:receiver_id;not null;uniqueIndex:idx_assignment_receiver,priority:2" json:"receiver_id"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Assignment) TableName() string { return "raffle_assignment" }
