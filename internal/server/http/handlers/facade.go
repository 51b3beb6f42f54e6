package handlers

import (
	"context"

	"github.com/polkiloo/loyaltytiers/internal/domain/membership"
	"github.com/polkiloo/loyaltytiers/internal/domain/model"
)

// AuthFacade describes authentication capabilities required by handlers.
type AuthFacade interface {
	Register(ctx context.Context, login, password string) (string, error)
	Authenticate(ctx context.Context, login, password string) (string, error)
	ParseToken(token string) (int64, error)
}

// MembershipFacade exposes tier accrual over HTTP.
type MembershipFacade interface {
	MembershipStatus(ctx context.Context, userID int64) (*model.MembershipStatus, error)
	RecordPurchase(ctx context.Context, userID int64, in model.PurchaseInput) (*model.Purchase, error)
	Purchases(ctx context.Context, userID int64) ([]model.Purchase, error)
	Tiers() []membership.Tier
}

type HealthFacade interface {
	Health(ctx context.Context) error
}

// LoyaltyFacade aggregates the full set of operations used across handlers.
type LoyaltyFacade interface {
	AuthFacade
	MembershipFacade
	HealthFacade
}
