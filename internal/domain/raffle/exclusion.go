package raffle

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// Exclusion forbids MemberA and MemberB from being assigned to each other in
// either direction. Rows are stored with MemberA < MemberB so the unique
// index rejects the mirrored pair too.
type Exclusion struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RaffleID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_exclusion_pair,priority:1" json:"raffle_id"`
	MemberA  uuid.UUID `gorm:"type:uuid;column:member_a;not null;uniqueIndex:idx_exclusion_pair,priority:2;index" json:"member_a"`
	MemberB  uuid.UUID `gorm:"type:uuid;column:member_b;not null;uniqueIndex:idx_exclusion_pair,priority:3;index" json:"member_b"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Exclusion) TableName() string { return "raffle_exclusion" }

// Normalize orders the pair so MemberA < MemberB.
func (e *Exclusion) Normalize() {
	if bytes.Compare(e.MemberA[:], e.MemberB[:]) > 0 {
		e.MemberA, e.MemberB = e.MemberB, e.MemberA
	}
}
