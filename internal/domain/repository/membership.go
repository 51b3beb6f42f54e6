package repository

import (
	"context"
	"time"

	"github.com/polkiloo/loyaltytiers/internal/domain/model"
)

// MembershipTx is a unit of work over a single user's membership record.
// Staged writes are applied only when the enclosing callback returns nil.
type MembershipTx interface {
	// Record returns the snapshot loaded when the lock was acquired.
	Record() model.MembershipRecord
	// Save stages the new record; a version mismatch yields ErrConflict.
	Save(ctx context.Context, record model.MembershipRecord) error
	// AppendPurchase stages a ledger entry and fills its identifier.
	AppendPurchase(ctx context.Context, purchase *model.Purchase) error
}

// MembershipRepository persists membership records with per-user serialization.
type MembershipRepository interface {
	// WithinUserLock runs fn while holding an exclusive lock on the user's record.
	// A missing record is created from seed when seed is non-nil, otherwise ErrNotFound is returned.
	WithinUserLock(ctx context.Context, userID int64, seed *model.MembershipRecord, fn func(MembershipTx) error) error
	Get(ctx context.Context, userID int64) (*model.MembershipRecord, error)
	ListPurchases(ctx context.Context, userID int64) ([]model.Purchase, error)
	// ListExpired returns up to limit users with id above afterID whose open
	// window ended before now, in ascending id order.
	ListExpired(ctx context.Context, now time.Time, afterID int64, limit int) ([]int64, error)
}
