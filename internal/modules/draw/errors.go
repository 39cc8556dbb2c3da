package draw

import (
	"errors"
	"fmt"
)

var (
	ErrInfeasibleConstraints = errors.New("no valid assignment satisfies the exclusions")
	ErrInsufficientMembers   = errors.New("at least two members are required")
	ErrDuplicateMember       = errors.New("member listed more than once")
	ErrInvalidPermutation    = errors.New("assignment is not a valid permutation")

	ErrDuplicateExclusion = errors.New("exclusion already exists")
	ErrSelfExclusion      = errors.New("a member cannot be excluded from themselves")
	ErrLocked             = errors.New("exclusions are locked after the draw")
	ErrExclusionNotFound  = errors.New("exclusion not found")
)

const (
	HintAddParticipants = "add_participants"
	HintRemoveExclusion = "remove_exclusions"
)

// InfeasibleError reports why a draw could not be produced.
type InfeasibleError struct {
	Members    int
	Exclusions int
	// Unmatched is the number of givers left without a receiver by the
	// maximum matching.
	Unmatched int
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("%s (members=%d exclusions=%d unmatched=%d)",
		ErrInfeasibleConstraints.Error(), e.Members, e.Exclusions, e.Unmatched)
}

func (e *InfeasibleError) Is(target error) bool { return target == ErrInfeasibleConstraints }

// Hint suggests which lever the owner should pull. With no exclusions a
// derangement always exists for n >= 2, so exclusions are always the cause
// once there are enough members.
func (e *InfeasibleError) Hint() string {
	if e.Exclusions == 0 || e.Members <= 3 {
		return HintAddParticipants
	}
	return HintRemoveExclusion
}
