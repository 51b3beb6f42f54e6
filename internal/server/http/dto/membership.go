package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/loyaltytiers/internal/domain/membership"
	"github.com/polkiloo/loyaltytiers/internal/domain/model"
)

// StatusResponse is the membership projection. Decimals are encoded as
// strings; next tier and window fields are null when absent.
type StatusResponse struct {
	CurrentLevel     int              `json:"current_level"`
	CurrentTierName  string           `json:"current_tier_name"`
	CashbackRate     decimal.Decimal  `json:"cashback_rate"`
	WindowStart      *time.Time       `json:"window_start"`
	WindowEnd        *time.Time       `json:"window_end"`
	WindowTotal      decimal.Decimal  `json:"window_total"`
	NextLevel        *int             `json:"next_level"`
	NextTierName     *string          `json:"next_tier_name"`
	NextCashbackRate *decimal.Decimal `json:"next_cashback_rate"`
	AmountToNext     decimal.Decimal  `json:"amount_to_next"`
}

// NewStatusResponse converts a domain projection.
func NewStatusResponse(s model.MembershipStatus) StatusResponse {
	return StatusResponse{
		CurrentLevel:     s.CurrentLevel,
		CurrentTierName:  s.CurrentTierName,
		CashbackRate:     s.CashbackRate,
		WindowStart:      s.WindowStart,
		WindowEnd:        s.WindowEnd,
		WindowTotal:      s.WindowTotal,
		NextLevel:        s.NextLevel,
		NextTierName:     s.NextTierName,
		NextCashbackRate: s.NextCashbackRate,
		AmountToNext:     s.AmountToNext,
	}
}

// PurchaseRequest accepts amount as a JSON string or number.
type PurchaseRequest struct {
	Amount     *decimal.Decimal `json:"amount"`
	OccurredAt *time.Time       `json:"occurred_at"`
	Order      string           `json:"order"`
}

// Input converts the request into use case input.
func (r PurchaseRequest) Input() model.PurchaseInput {
	return model.PurchaseInput{Amount: r.Amount, OccurredAt: r.OccurredAt, OrderNumber: r.Order}
}

type PurchaseResponse struct {
	ID         int64           `json:"id"`
	Order      string          `json:"order,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
	RecordedAt time.Time       `json:"recorded_at"`
}

func NewPurchaseResponse(p model.Purchase) PurchaseResponse {
	return PurchaseResponse{
		ID:         p.ID,
		Order:      p.OrderNumber,
		Amount:     p.Amount,
		OccurredAt: p.OccurredAt,
		RecordedAt: p.RecordedAt,
	}
}

// TierResponse describes one rung of the tier table.
type TierResponse struct {
	Level        int             `json:"level"`
	Name         string          `json:"name"`
	Threshold    decimal.Decimal `json:"threshold"`
	CashbackRate decimal.Decimal `json:"cashback_rate"`
}

func NewTierResponses(tiers []membership.Tier) []TierResponse {
	out := make([]TierResponse, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, TierResponse{Level: t.Level, Name: t.Name(), Threshold: t.Threshold, CashbackRate: t.CashbackRate})
	}
	return out
}
