package services

import (
	"errors"
	"fmt"

	"github.com/yungbote/secretsanta-backend/internal/modules/draw"
)

var (
	ErrAlreadyDrawn       = errors.New("raffle has already been drawn")
	ErrNotDrawnYet        = errors.New("raffle has not been drawn yet")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrValidation         = errors.New("validation failed")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrNotMember          = errors.New("not a member of this raffle")
	ErrAlreadyMember      = errors.New("already a member of this raffle")
	ErrProfilesIncomplete = errors.New("every member must complete their profile before the draw")

	// Re-exported so callers only need this package to branch on draw
	// failures.
	ErrLocked                = draw.ErrLocked
	ErrInsufficientMembers   = draw.ErrInsufficientMembers
	ErrInfeasibleConstraints = draw.ErrInfeasibleConstraints
	ErrDuplicateExclusion    = draw.ErrDuplicateExclusion
	ErrSelfExclusion         = draw.ErrSelfExclusion
)

// ValidationError describes rejected input. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// MembershipError reports a membership count below the draw minimum.
type MembershipError struct {
	Have int
	Need int
}

func (e *MembershipError) Error() string {
	return fmt.Sprintf("%s: have %d, need %d", draw.ErrInsufficientMembers.Error(), e.Have, e.Need)
}

func (e *MembershipError) Is(target error) bool { return target == draw.ErrInsufficientMembers }
