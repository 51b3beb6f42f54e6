// Package memory keeps users, membership records and purchases in process
// memory. It is selected when no database DSN is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/polkiloo/loyaltytiers/internal/domain/model"
	"github.com/polkiloo/loyaltytiers/internal/domain/repository"
)

const defaultLockTimeout = 2 * time.Second

// Store is a process-local repository factory.
type Store struct {
	mu sync.RWMutex

	users      map[int64]model.User
	logins     map[string]int64
	nextUserID int64

	records        map[int64]model.MembershipRecord
	purchases      map[int64][]model.Purchase
	orders         map[string]int64
	nextPurchaseID int64

	locks       *userLocks
	lockTimeout time.Duration
	now         func() time.Time
}

// Option customizes Store.
type Option func(*Store)

// WithLockTimeout bounds how long WithinUserLock waits for a busy user.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithClock overrides the clock used for bookkeeping timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		users:       make(map[int64]model.User),
		logins:      make(map[string]int64),
		records:     make(map[int64]model.MembershipRecord),
		purchases:   make(map[int64][]model.Purchase),
		orders:      make(map[string]int64),
		locks:       newUserLocks(),
		lockTimeout: defaultLockTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Users() repository.UserRepository {
	return &userRepository{store: s}
}

func (s *Store) Memberships() repository.MembershipRepository {
	return &membershipRepository{store: s}
}

// HealthCheck always succeeds unless ctx is already done.
func (s *Store) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op kept for parity with the PostgreSQL storage.
func (s *Store) Close() {}

var _ repository.Factory = (*Store)(nil)
