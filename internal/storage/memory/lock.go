package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/loyaltytiers/internal/domain/errors"
)

// userLocks hands out one binary semaphore per user. Semaphores are never
// removed; the map grows with the number of distinct users touched.
type userLocks struct {
	mu    sync.Mutex
	slots map[int64]chan struct{}
}

func newUserLocks() *userLocks {
	return &userLocks{slots: make(map[int64]chan struct{})}
}

func (l *userLocks) slot(userID int64) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[userID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[userID] = ch
	}
	return ch
}

// acquire blocks until the user's slot is free, ctx is done or timeout passes.
// The returned func releases the slot.
func (l *userLocks) acquire(ctx context.Context, userID int64, timeout time.Duration) (func(), error) {
	ch := l.slot(userID)

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("lock member %d: %w", userID, domainErrors.ErrConflict)
	}
}
