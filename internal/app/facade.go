package app

import (
	"context"

	"github.com/polkiloo/loyaltytiers/internal/domain/membership"
	"github.com/polkiloo/loyaltytiers/internal/domain/model"
	"github.com/polkiloo/loyaltytiers/internal/domain/repository"
	"github.com/polkiloo/loyaltytiers/internal/usecase"
)

// LoyaltyFacade is the single entry point used by transport and background workers.
type LoyaltyFacade struct {
	auth       *usecase.AuthUseCase
	membership *usecase.MembershipUseCase
	storage    repository.Factory
}

func NewLoyaltyFacade(auth *usecase.AuthUseCase, membership *usecase.MembershipUseCase, storage repository.Factory) *LoyaltyFacade {
	return &LoyaltyFacade{auth: auth, membership: membership, storage: storage}
}

func (f *LoyaltyFacade) Register(ctx context.Context, login, password string) (string, error) {
	_, token, err := f.auth.Register(ctx, login, password)
	return token, err
}

func (f *LoyaltyFacade) Authenticate(ctx context.Context, login, password string) (string, error) {
	_, token, err := f.auth.Authenticate(ctx, login, password)
	return token, err
}

func (f *LoyaltyFacade) ParseToken(token string) (int64, error) {
	return f.auth.ParseToken(token)
}

func (f *LoyaltyFacade) MembershipStatus(ctx context.Context, userID int64) (*model.MembershipStatus, error) {
	return f.membership.Status(ctx, userID)
}

func (f *LoyaltyFacade) RecordPurchase(ctx context.Context, userID int64, in model.PurchaseInput) (*model.Purchase, error) {
	return f.membership.RecordPurchase(ctx, userID, in)
}

func (f *LoyaltyFacade) Purchases(ctx context.Context, userID int64) ([]model.Purchase, error) {
	return f.membership.Purchases(ctx, userID)
}

func (f *LoyaltyFacade) Tiers() []membership.Tier {
	return f.membership.Tiers()
}

// ExpiredMembers lists users whose accrual window is due for finalization.
func (f *LoyaltyFacade) ExpiredMembers(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	return f.membership.ExpiredMembers(ctx, afterID, limit)
}

func (f *LoyaltyFacade) FinalizeWindow(ctx context.Context, userID int64) (bool, error) {
	return f.membership.FinalizeExpired(ctx, userID)
}

// Health reports storage availability.
func (f *LoyaltyFacade) Health(ctx context.Context) error {
	return f.storage.HealthCheck(ctx)
}
