package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/loyaltytiers/internal/domain/errors"
	"github.com/polkiloo/loyaltytiers/internal/domain/membership"
	"github.com/polkiloo/loyaltytiers/internal/domain/model"
	"github.com/polkiloo/loyaltytiers/internal/domain/repository"
)

// MembershipOptions tunes MembershipUseCase. Zero values select defaults.
type MembershipOptions struct {
	// LazyCreate creates the default record when an operation touches a user without one.
	LazyCreate bool
	// ConflictRetries is the number of extra attempts after ErrConflict.
	ConflictRetries int
	Clock           func() time.Time
	// BackOff builds the delay policy for one retried operation.
	BackOff func() backoff.BackOff
}

// MembershipUseCase drives the tier engine against the record store.
type MembershipUseCase struct {
	repo       repository.MembershipRepository
	engine     *membership.Engine
	logger     *slog.Logger
	now        func() time.Time
	lazyCreate bool
	retries    uint64
	newBackOff func() backoff.BackOff
}

// NewMembershipUseCase constructs MembershipUseCase.
func NewMembershipUseCase(repo repository.MembershipRepository, engine *membership.Engine, logger *slog.Logger, opts MembershipOptions) *MembershipUseCase {
	if engine == nil {
		engine = membership.NewEngine(nil)
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	newBackOff := opts.BackOff
	if newBackOff == nil {
		newBackOff = defaultBackOff
	}
	retries := opts.ConflictRetries
	if retries < 0 {
		retries = 0
	}
	return &MembershipUseCase{
		repo:       repo,
		engine:     engine,
		logger:     logger,
		now:        now,
		lazyCreate: opts.LazyCreate,
		retries:    uint64(retries),
		newBackOff: newBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 25 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second
	return b
}

// Tiers returns the configured tier table, lowest first.
func (u *MembershipUseCase) Tiers() []membership.Tier {
	return u.engine.Table().Tiers()
}

// Enroll creates the default record for userID if none exists.
func (u *MembershipUseCase) Enroll(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return domainErrors.ErrInvalidInput
	}
	seed := u.engine.NewRecord(userID)
	return u.withRetry(ctx, "enroll", userID, func() error {
		return u.repo.WithinUserLock(ctx, userID, &seed, func(repository.MembershipTx) error { return nil })
	})
}

// RecordPurchase counts a purchase into the user's accrual window and appends
// it to the ledger in one unit of work. Contended attempts are retried on a
// fresh snapshot.
func (u *MembershipUseCase) RecordPurchase(ctx context.Context, userID int64, in model.PurchaseInput) (*model.Purchase, error) {
	if userID <= 0 {
		return nil, domainErrors.ErrInvalidInput
	}

	amount := decimal.Zero
	if in.Amount != nil {
		amount = *in.Amount
	}
	occurredAt := u.now().UTC()
	if in.OccurredAt != nil {
		occurredAt = in.OccurredAt.UTC()
	}
	order := strings.TrimSpace(in.OrderNumber)
	if order != "" && !ValidateOrderNumber(order) {
		return nil, domainErrors.ErrInvalidOrderNumber
	}

	var recorded *model.Purchase
	err := u.withRetry(ctx, "record purchase", userID, func() error {
		return u.repo.WithinUserLock(ctx, userID, u.seed(userID), func(tx repository.MembershipTx) error {
			before := tx.Record()
			after := u.engine.RecordPurchase(before, amount, occurredAt)
			if err := tx.Save(ctx, after); err != nil {
				return err
			}

			purchase := &model.Purchase{
				UserID:      userID,
				OrderNumber: order,
				Amount:      amount,
				OccurredAt:  occurredAt,
				RecordedAt:  u.now().UTC(),
			}
			if err := tx.AppendPurchase(ctx, purchase); err != nil {
				return err
			}

			u.logTransition(ctx, userID, before, after)
			recorded = purchase
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return recorded, nil
}

// Status returns the user's projection after catching up any ended window.
// The record is written back only when the catch-up changed it.
func (u *MembershipUseCase) Status(ctx context.Context, userID int64) (*model.MembershipStatus, error) {
	if userID <= 0 {
		return nil, domainErrors.ErrInvalidInput
	}

	now := u.now().UTC()
	rec, err := u.repo.Get(ctx, userID)
	switch {
	case err == nil:
		if _, status, changed := u.engine.Status(*rec, now); !changed {
			return &status, nil
		}
	case errors.Is(err, domainErrors.ErrNotFound):
		if !u.lazyCreate {
			return nil, err
		}
	default:
		return nil, err
	}

	var status model.MembershipStatus
	err = u.withRetry(ctx, "status", userID, func() error {
		return u.repo.WithinUserLock(ctx, userID, u.seed(userID), func(tx repository.MembershipTx) error {
			before := tx.Record()
			after, projected, changed := u.engine.Status(before, u.now().UTC())
			if changed {
				if err := tx.Save(ctx, after); err != nil {
					return err
				}
				u.logTransition(ctx, userID, before, after)
			}
			status = projected
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// FinalizeExpired closes the user's window if it has ended. It never creates
// a record and reports whether anything changed.
func (u *MembershipUseCase) FinalizeExpired(ctx context.Context, userID int64) (bool, error) {
	if userID <= 0 {
		return false, domainErrors.ErrInvalidInput
	}

	var finalized bool
	err := u.withRetry(ctx, "finalize window", userID, func() error {
		finalized = false
		return u.repo.WithinUserLock(ctx, userID, nil, func(tx repository.MembershipTx) error {
			before := tx.Record()
			after, changed := u.engine.FinalizeIfEnded(before, u.now().UTC())
			if !changed {
				return nil
			}
			if err := tx.Save(ctx, after); err != nil {
				return err
			}
			u.logTransition(ctx, userID, before, after)
			finalized = true
			return nil
		})
	})
	if err != nil {
		return false, err
	}
	return finalized, nil
}

// ExpiredMembers lists users above afterID whose window ended before now.
func (u *MembershipUseCase) ExpiredMembers(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	return u.repo.ListExpired(ctx, u.now().UTC(), afterID, limit)
}

// Purchases returns the user's purchase ledger, newest first.
func (u *MembershipUseCase) Purchases(ctx context.Context, userID int64) ([]model.Purchase, error) {
	if userID <= 0 {
		return nil, domainErrors.ErrInvalidInput
	}
	return u.repo.ListPurchases(ctx, userID)
}

func (u *MembershipUseCase) seed(userID int64) *model.MembershipRecord {
	if !u.lazyCreate {
		return nil
	}
	rec := u.engine.NewRecord(userID)
	return &rec
}

func (u *MembershipUseCase) withRetry(ctx context.Context, op string, userID int64, fn func() error) error {
	attempts := 0
	policy := backoff.WithContext(backoff.WithMaxRetries(u.newBackOff(), u.retries), ctx)
	err := backoff.Retry(func() error {
		attempts++
		err := fn()
		if err == nil || domainErrors.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)

	if err != nil && domainErrors.IsRetryable(err) {
		u.logger.WarnContext(ctx, "membership update contended",
			slog.String("op", op),
			slog.Int64("user_id", userID),
			slog.Int("attempts", attempts),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}
	return err
}

func (u *MembershipUseCase) logTransition(ctx context.Context, userID int64, before, after model.MembershipRecord) {
	if after.TierLevel > before.TierLevel {
		u.logger.InfoContext(ctx, "membership tier promoted",
			slog.Int64("user_id", userID),
			slog.Int("from_level", before.TierLevel),
			slog.Int("to_level", after.TierLevel),
		)
	}
	if before.WindowOpen() && (!after.WindowOpen() || !after.WindowStart.Equal(*before.WindowStart)) {
		u.logger.DebugContext(ctx, "membership window finalized",
			slog.Int64("user_id", userID),
			slog.Time("window_start", *before.WindowStart),
			slog.String("window_total", before.WindowTotal.String()),
		)
	}
}
