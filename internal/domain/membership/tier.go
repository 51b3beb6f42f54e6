// Package membership holds the tier table and the window accrual engine.
// Everything here is pure computation over explicit record values; locking
// and persistence belong to the caller.
package membership

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidTable is returned by NewTable for inconsistent tier definitions.
var ErrInvalidTable = errors.New("invalid tier table")

// Tier is one rung of the membership ladder.
type Tier struct {
	Level        int
	Threshold    decimal.Decimal
	CashbackRate decimal.Decimal
}

// Name returns the display name of the tier.
func (t Tier) Name() string {
	return fmt.Sprintf("Member Level %d", t.Level)
}

// Table is an ordered, immutable list of tiers.
type Table struct {
	tiers []Tier
}

var defaultTiers = []Tier{
	{Level: 1, Threshold: decimal.NewFromInt(0), CashbackRate: decimal.RequireFromString("0.01")},
	{Level: 2, Threshold: decimal.NewFromInt(500), CashbackRate: decimal.RequireFromString("0.03")},
	{Level: 3, Threshold: decimal.NewFromInt(2000), CashbackRate: decimal.RequireFromString("0.05")},
	{Level: 4, Threshold: decimal.NewFromInt(5000), CashbackRate: decimal.RequireFromString("0.08")},
	{Level: 5, Threshold: decimal.NewFromInt(10000), CashbackRate: decimal.RequireFromString("0.12")},
}

// DefaultTable returns the five level production table.
func DefaultTable() *Table {
	table, err := NewTable(defaultTiers...)
	if err != nil {
		panic(err)
	}
	return table
}

// NewTable validates tiers and builds a table. Levels must start at 1 and
// grow by one, the first threshold must be zero, thresholds must strictly
// increase and cashback rates must lie in [0,1).
func NewTable(tiers ...Tier) (*Table, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: no tiers", ErrInvalidTable)
	}
	one := decimal.NewFromInt(1)
	for i, t := range tiers {
		if t.Level != i+1 {
			return nil, fmt.Errorf("%w: tier %d has level %d", ErrInvalidTable, i+1, t.Level)
		}
		if t.CashbackRate.IsNegative() || t.CashbackRate.GreaterThanOrEqual(one) {
			return nil, fmt.Errorf("%w: level %d cashback rate %s out of range", ErrInvalidTable, t.Level, t.CashbackRate)
		}
		if i == 0 {
			if !t.Threshold.IsZero() {
				return nil, fmt.Errorf("%w: lowest threshold must be zero", ErrInvalidTable)
			}
			continue
		}
		if !t.Threshold.GreaterThan(tiers[i-1].Threshold) {
			return nil, fmt.Errorf("%w: level %d threshold %s does not exceed %s", ErrInvalidTable, t.Level, t.Threshold, tiers[i-1].Threshold)
		}
	}
	copied := make([]Tier, len(tiers))
	copy(copied, tiers)
	return &Table{tiers: copied}, nil
}

// Tiers returns a copy of the table rows ordered by level.
func (t *Table) Tiers() []Tier {
	out := make([]Tier, len(t.tiers))
	copy(out, t.tiers)
	return out
}

// Lowest returns the entry tier.
func (t *Table) Lowest() Tier {
	return t.tiers[0]
}

// Highest returns the top tier.
func (t *Table) Highest() Tier {
	return t.tiers[len(t.tiers)-1]
}

// Tier looks up a tier by level.
func (t *Table) Tier(level int) (Tier, bool) {
	if level < 1 || level > len(t.tiers) {
		return Tier{}, false
	}
	return t.tiers[level-1], true
}

// Resolve returns the tier for level, clamped into the table range.
func (t *Table) Resolve(level int) Tier {
	if tier, ok := t.Tier(level); ok {
		return tier
	}
	if level < 1 {
		return t.Lowest()
	}
	return t.Highest()
}

// ForAmount returns the highest tier whose threshold does not exceed total.
func (t *Table) ForAmount(total decimal.Decimal) Tier {
	for i := len(t.tiers) - 1; i > 0; i-- {
		if t.tiers[i].Threshold.LessThanOrEqual(total) {
			return t.tiers[i]
		}
	}
	return t.tiers[0]
}

// Next returns the tier one level above level.
func (t *Table) Next(level int) (Tier, bool) {
	return t.Tier(level + 1)
}

// AmountToNext is the spend still missing to reach the tier above level.
// It is zero at the top of the table.
func (t *Table) AmountToNext(level int, total decimal.Decimal) decimal.Decimal {
	next, ok := t.Next(level)
	if !ok {
		return decimal.Zero
	}
	diff := next.Threshold.Sub(total)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff
}
