package membership

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/loyaltytiers/internal/domain/model"
)

// WindowLength is the span between window start and end. Both endpoints are inclusive.
const WindowLength = 30*24*time.Hour - time.Second

// WindowEnd returns the last instant of a window opened at start.
func WindowEnd(start time.Time) time.Time {
	return start.Add(WindowLength)
}

// Engine applies purchases and window finalization to membership records.
type Engine struct {
	table *Table
}

// NewEngine creates an engine over table, falling back to DefaultTable.
func NewEngine(table *Table) *Engine {
	if table == nil {
		table = DefaultTable()
	}
	return &Engine{table: table}
}

// Table exposes the tier table used by the engine.
func (e *Engine) Table() *Table {
	return e.table
}

// NewRecord builds the default record for a user: lowest tier, no window.
func (e *Engine) NewRecord(userID int64) model.MembershipRecord {
	return model.MembershipRecord{
		UserID:      userID,
		TierLevel:   e.table.Lowest().Level,
		WindowTotal: decimal.Zero,
	}
}

// RecordPurchase counts amount into exactly one window. A window that ended
// before occurredAt is finalized first; a closed record opens a new window
// starting at occurredAt.
func (e *Engine) RecordPurchase(rec model.MembershipRecord, amount decimal.Decimal, occurredAt time.Time) model.MembershipRecord {
	rec = normalize(rec)
	rec, _ = e.FinalizeIfEnded(rec, occurredAt)

	if !rec.WindowOpen() {
		rec = openWindow(rec, occurredAt, decimal.Zero)
	}

	if !occurredAt.After(*rec.WindowEnd) {
		rec.WindowTotal = rec.WindowTotal.Add(amount)
		return rec
	}

	// Unreachable for a window opened at occurredAt; the purchase seeds a
	// fresh window instead of being added twice.
	rec = e.finalize(rec)
	return openWindow(rec, occurredAt, amount)
}

// FinalizeIfEnded closes the window when now is strictly after its end,
// promoting the record if the window total earns a higher tier.
func (e *Engine) FinalizeIfEnded(rec model.MembershipRecord, now time.Time) (model.MembershipRecord, bool) {
	rec = normalize(rec)
	if !rec.WindowOpen() || !now.After(*rec.WindowEnd) {
		return rec, false
	}
	return e.finalize(rec), true
}

// Status finalizes an ended window at now and projects the result.
// The returned flag reports whether the record changed and must be persisted.
func (e *Engine) Status(rec model.MembershipRecord, now time.Time) (model.MembershipRecord, model.MembershipStatus, bool) {
	updated, finalized := e.FinalizeIfEnded(rec, now)
	return updated, e.Project(updated), finalized
}

func (e *Engine) finalize(rec model.MembershipRecord) model.MembershipRecord {
	target := e.table.ForAmount(rec.WindowTotal)
	if target.Level > rec.TierLevel {
		rec.TierLevel = target.Level
	}
	rec.WindowStart = nil
	rec.WindowEnd = nil
	rec.WindowTotal = decimal.Zero
	return rec
}

func openWindow(rec model.MembershipRecord, start time.Time, total decimal.Decimal) model.MembershipRecord {
	end := WindowEnd(start)
	rec.WindowStart = &start
	rec.WindowEnd = &end
	rec.WindowTotal = total
	return rec
}

// normalize repairs records whose window bounds disagree.
func normalize(rec model.MembershipRecord) model.MembershipRecord {
	switch {
	case rec.WindowStart != nil && rec.WindowEnd == nil:
		end := WindowEnd(*rec.WindowStart)
		rec.WindowEnd = &end
	case rec.WindowStart == nil && rec.WindowEnd != nil:
		rec.WindowEnd = nil
		rec.WindowTotal = decimal.Zero
	}
	return rec
}
