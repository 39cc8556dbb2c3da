// Package keylock provides mutual exclusion scoped to a string key, such as
// one raffle. Different keys never contend.
package keylock

import (
	"context"
	"errors"
)

var ErrNotAcquired = errors.New("keylock: lock not acquired")

// Locker acquires the exclusive lock for key, blocking until it is held or
// ctx is done. The returned func releases it and is safe to call once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
