package test

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/loyaltytiers/internal/domain/membership"
	"github.com/polkiloo/loyaltytiers/internal/domain/model"
)

// MembershipFacadeStub provides controllable behaviour for membership endpoints.
type MembershipFacadeStub struct {
	StatusFn    func(context.Context, int64) (*model.MembershipStatus, error)
	PurchaseFn  func(context.Context, int64, model.PurchaseInput) (*model.Purchase, error)
	PurchasesFn func(context.Context, int64) ([]model.Purchase, error)
	TiersVal    []membership.Tier
}

// MembershipStatus returns a lowest-tier projection unless overridden.
func (s MembershipFacadeStub) MembershipStatus(ctx context.Context, userID int64) (*model.MembershipStatus, error) {
	if s.StatusFn != nil {
		return s.StatusFn(ctx, userID)
	}
	engine := membership.NewEngine(nil)
	status := engine.Project(engine.NewRecord(userID))
	return &status, nil
}

// RecordPurchase echoes the input as a stored purchase unless overridden.
func (s MembershipFacadeStub) RecordPurchase(ctx context.Context, userID int64, in model.PurchaseInput) (*model.Purchase, error) {
	if s.PurchaseFn != nil {
		return s.PurchaseFn(ctx, userID, in)
	}
	p := &model.Purchase{ID: 1, UserID: userID, OrderNumber: in.OrderNumber, Amount: decimal.Zero, OccurredAt: time.Unix(0, 0).UTC()}
	if in.Amount != nil {
		p.Amount = *in.Amount
	}
	if in.OccurredAt != nil {
		p.OccurredAt = *in.OccurredAt
	}
	p.RecordedAt = p.OccurredAt
	return p, nil
}

func (s MembershipFacadeStub) Purchases(ctx context.Context, userID int64) ([]model.Purchase, error) {
	if s.PurchasesFn != nil {
		return s.PurchasesFn(ctx, userID)
	}
	return nil, nil
}

// Tiers returns TiersVal or the default table.
func (s MembershipFacadeStub) Tiers() []membership.Tier {
	if s.TiersVal != nil {
		return s.TiersVal
	}
	return membership.DefaultTable().Tiers()
}

// LoyaltyFacadeStub aggregates facade dependencies for HTTP layer tests.
type LoyaltyFacadeStub struct {
	AuthFacadeStub
	MembershipFacadeStub
	HealthFn func(context.Context) error
}

func (s LoyaltyFacadeStub) Health(ctx context.Context) error {
	if s.HealthFn != nil {
		return s.HealthFn(ctx)
	}
	return nil
}

// SweepFacadeStub mimics the sweeper's view of the loyalty facade.
type SweepFacadeStub struct {
	Batches    [][]int64
	ExpiredFn  func(context.Context, int64, int) ([]int64, error)
	FinalizeFn func(context.Context, int64) (bool, error)

	mu        sync.Mutex
	calls     int
	finalized []int64
}

// ExpiredMembers returns the configured batches in order, then nothing.
// The cursor is ignored.
func (s *SweepFacadeStub) ExpiredMembers(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	if s.ExpiredFn != nil {
		return s.ExpiredFn(ctx, afterID, limit)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= len(s.Batches) {
		return s.Batches[s.calls-1], nil
	}
	return nil, nil
}

// FinalizeWindow records the user id and reports a change.
func (s *SweepFacadeStub) FinalizeWindow(ctx context.Context, userID int64) (bool, error) {
	if s.FinalizeFn != nil {
		return s.FinalizeFn(ctx, userID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalized = append(s.finalized, userID)
	return true, nil
}

// Finalized returns a copy of finalized user ids.
func (s *SweepFacadeStub) Finalized() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.finalized...)
}
