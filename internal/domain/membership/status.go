package membership

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/loyaltytiers/internal/domain/model"
)

// Project builds the status view of rec without finalizing anything.
func (e *Engine) Project(rec model.MembershipRecord) model.MembershipStatus {
	current := e.table.Resolve(rec.TierLevel)

	total := decimal.Zero
	if rec.WindowOpen() {
		total = rec.WindowTotal
	}

	status := model.MembershipStatus{
		CurrentLevel:    current.Level,
		CurrentTierName: current.Name(),
		CashbackRate:    current.CashbackRate,
		WindowStart:     copyTime(rec.WindowStart),
		WindowEnd:       copyTime(rec.WindowEnd),
		WindowTotal:     total,
		AmountToNext:    decimal.Zero,
	}

	if next, ok := e.table.Next(current.Level); ok {
		level, name, rate := next.Level, next.Name(), next.CashbackRate
		status.NextLevel = &level
		status.NextTierName = &name
		status.NextCashbackRate = &rate
		status.AmountToNext = e.table.AmountToNext(current.Level, total)
	}

	return status
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
