package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MembershipRecord is the per-user accrual state. A nil WindowStart means no window is open.
type MembershipRecord struct {
	UserID      int64
	TierLevel   int
	WindowStart *time.Time
	WindowEnd   *time.Time
	WindowTotal decimal.Decimal
	Version     int64
	UpdatedAt   time.Time
}

// WindowOpen reports whether an accrual window is active.
func (r MembershipRecord) WindowOpen() bool {
	return r.WindowStart != nil
}

// Equal compares accrual state, ignoring persistence bookkeeping.
func (r MembershipRecord) Equal(other MembershipRecord) bool {
	return r.UserID == other.UserID &&
		r.TierLevel == other.TierLevel &&
		timePtrEqual(r.WindowStart, other.WindowStart) &&
		timePtrEqual(r.WindowEnd, other.WindowEnd) &&
		r.WindowTotal.Equal(other.WindowTotal)
}

// Clone returns a copy that shares no pointers with r.
func (r MembershipRecord) Clone() MembershipRecord {
	r.WindowStart = cloneTime(r.WindowStart)
	r.WindowEnd = cloneTime(r.WindowEnd)
	return r
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// MembershipStatus is the read projection of a membership record.
// Next* fields are nil when the user already holds the highest tier.
type MembershipStatus struct {
	CurrentLevel     int
	CurrentTierName  string
	CashbackRate     decimal.Decimal
	WindowStart      *time.Time
	WindowEnd        *time.Time
	WindowTotal      decimal.Decimal
	NextLevel        *int
	NextTierName     *string
	NextCashbackRate *decimal.Decimal
	AmountToNext     decimal.Decimal
}
