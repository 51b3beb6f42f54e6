package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is a ledger entry counted into a membership window.
type Purchase struct {
	ID          int64
	UserID      int64
	OrderNumber string
	Amount      decimal.Decimal
	OccurredAt  time.Time
	RecordedAt  time.Time
}

// PurchaseInput carries caller supplied purchase data; nil fields take defaults.
type PurchaseInput struct {
	Amount      *decimal.Decimal
	OccurredAt  *time.Time
	OrderNumber string
}
