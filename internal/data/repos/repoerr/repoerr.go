package repoerr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrConflict indicates a unique constraint rejected the write.
	ErrConflict = errors.New("repo conflict")
	// ErrNotFound indicates the row does not exist.
	ErrNotFound = errors.New("repo not found")
	// ErrRetryable indicates a transient failure.
	ErrRetryable = errors.New("repo retryable")
)

// MapError normalizes driver errors so callers can branch with errors.Is
// without knowing which database is behind the repo.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrRetryable) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, errors.Join(ErrNotFound, err))
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, errors.Join(ErrConflict, err))
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, errors.Join(ErrRetryable, err))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return fmt.Errorf("%s: %w", op, errors.Join(ErrConflict, err)) // unique_violation
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%s: %w", op, errors.Join(ErrRetryable, err)) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"), strings.Contains(msg, "duplicate key"):
		return fmt.Errorf("%s: %w", op, errors.Join(ErrConflict, err))
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "deadlock"):
		return fmt.Errorf("%s: %w", op, errors.Join(ErrRetryable, err))
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
