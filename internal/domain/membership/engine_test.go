package membership

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/polkiloo/loyaltytiers/internal/domain/model"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

func TestWindowEnd(t *testing.T) {
	end := WindowEnd(t0)
	require.Equal(t, time.Date(2024, 3, 31, 11, 59, 59, 0, time.UTC), end)
	require.Equal(t, 30*day-time.Second, end.Sub(t0))
}

func TestNewRecord(t *testing.T) {
	rec := NewEngine(nil).NewRecord(7)
	require.Equal(t, int64(7), rec.UserID)
	require.Equal(t, 1, rec.TierLevel)
	require.False(t, rec.WindowOpen())
	require.Nil(t, rec.WindowEnd)
	require.True(t, rec.WindowTotal.IsZero())
}

func TestScenarioWalkthrough(t *testing.T) {
	engine := NewEngine(DefaultTable())
	rec := engine.NewRecord(1)

	// new user, first purchase opens the window
	rec = engine.RecordPurchase(rec, dec("300"), t0)
	require.Equal(t, 1, rec.TierLevel)
	require.Equal(t, t0, *rec.WindowStart)
	require.Equal(t, t0.Add(30*day-time.Second), *rec.WindowEnd)
	require.True(t, rec.WindowTotal.Equal(dec("300")))
	status := engine.Project(rec)
	require.True(t, status.AmountToNext.Equal(dec("200")))

	// second purchase inside the window accumulates without promotion
	rec = engine.RecordPurchase(rec, dec("300"), t0.Add(day))
	require.Equal(t, 1, rec.TierLevel)
	require.True(t, rec.WindowTotal.Equal(dec("600")))
	require.Equal(t, t0, *rec.WindowStart)
	status = engine.Project(rec)
	require.Equal(t, 1, status.CurrentLevel)
	require.True(t, status.AmountToNext.IsZero(), "level 2 threshold already covered, got %s", status.AmountToNext)

	// status read after expiry finalizes and promotes
	rec, status, changed := engine.Status(rec, t0.Add(31*day))
	require.True(t, changed)
	require.Equal(t, 2, rec.TierLevel)
	require.False(t, rec.WindowOpen())
	require.Equal(t, 2, status.CurrentLevel)
	require.Equal(t, "Member Level 2", status.CurrentTierName)
	require.True(t, status.CashbackRate.Equal(dec("0.03")))
	require.Nil(t, status.WindowStart)
	require.Nil(t, status.WindowEnd)
	require.True(t, status.WindowTotal.IsZero())
	require.True(t, status.AmountToNext.Equal(dec("2000")))

	// a small later window never demotes
	rec = engine.RecordPurchase(rec, dec("100"), t0.Add(40*day))
	require.Equal(t, 2, rec.TierLevel)
	require.Equal(t, t0.Add(40*day), *rec.WindowStart)
	require.True(t, rec.WindowTotal.Equal(dec("100")))

	rec, _, changed = engine.Status(rec, t0.Add(80*day))
	require.True(t, changed)
	require.Equal(t, 2, rec.TierLevel)
}

func TestMaxTierStatus(t *testing.T) {
	engine := NewEngine(nil)
	rec := engine.NewRecord(5)
	rec.TierLevel = 5
	rec = engine.RecordPurchase(rec, dec("50"), t0)

	status := engine.Project(rec)
	require.Equal(t, 5, status.CurrentLevel)
	require.True(t, status.CashbackRate.Equal(dec("0.12")))
	require.Nil(t, status.NextLevel)
	require.Nil(t, status.NextTierName)
	require.Nil(t, status.NextCashbackRate)
	require.True(t, status.AmountToNext.IsZero())
	require.True(t, status.WindowTotal.Equal(dec("50")))
}

func TestNextFieldsBelowMax(t *testing.T) {
	engine := NewEngine(nil)
	status := engine.Project(engine.NewRecord(1))
	require.NotNil(t, status.NextLevel)
	require.Equal(t, 2, *status.NextLevel)
	require.Equal(t, "Member Level 2", *status.NextTierName)
	require.True(t, status.NextCashbackRate.Equal(dec("0.03")))
	require.True(t, status.AmountToNext.Equal(dec("500")))
}

func TestPurchaseAfterWindowEndFinalizesFirst(t *testing.T) {
	engine := NewEngine(nil)
	rec := engine.RecordPurchase(engine.NewRecord(1), dec("2500"), t0)

	late := t0.Add(45 * day)
	rec = engine.RecordPurchase(rec, dec("40"), late)

	require.Equal(t, 3, rec.TierLevel)
	require.Equal(t, late, *rec.WindowStart)
	require.True(t, rec.WindowTotal.Equal(dec("40")), "late purchase must seed only the new window")
}

func TestWindowEndIsInclusive(t *testing.T) {
	engine := NewEngine(nil)
	rec := engine.RecordPurchase(engine.NewRecord(1), dec("400"), t0)
	end := *rec.WindowEnd

	rec = engine.RecordPurchase(rec, dec("100"), end)
	require.Equal(t, t0, *rec.WindowStart)
	require.True(t, rec.WindowTotal.Equal(dec("500")))

	same, changed := engine.FinalizeIfEnded(rec, end)
	require.False(t, changed)
	require.True(t, same.Equal(rec))

	closed, changed := engine.FinalizeIfEnded(rec, end.Add(time.Nanosecond))
	require.True(t, changed)
	require.Equal(t, 2, closed.TierLevel)
}

func TestFinalizeNeverDemotes(t *testing.T) {
	engine := NewEngine(nil)
	rec := engine.NewRecord(1)
	rec.TierLevel = 4
	rec = engine.RecordPurchase(rec, dec("10"), t0)

	rec, changed := engine.FinalizeIfEnded(rec, t0.Add(60*day))
	require.True(t, changed)
	require.Equal(t, 4, rec.TierLevel)
	require.False(t, rec.WindowOpen())
	require.True(t, rec.WindowTotal.IsZero())
}

func TestFinalizeClosedRecordIsNoop(t *testing.T) {
	engine := NewEngine(nil)
	rec := engine.NewRecord(3)
	got, changed := engine.FinalizeIfEnded(rec, t0)
	require.False(t, changed)
	require.True(t, got.Equal(rec))
}

func TestBackdatedPurchaseCountsIntoOpenWindow(t *testing.T) {
	engine := NewEngine(nil)
	rec := engine.RecordPurchase(engine.NewRecord(1), dec("100"), t0)
	rec = engine.RecordPurchase(rec, dec("50"), t0.Add(-time.Hour))

	require.Equal(t, t0, *rec.WindowStart)
	require.True(t, rec.WindowTotal.Equal(dec("150")))
}

func TestNegativeAmountPassesThrough(t *testing.T) {
	engine := NewEngine(nil)
	rec := engine.RecordPurchase(engine.NewRecord(1), dec("700"), t0)
	rec = engine.RecordPurchase(rec, dec("-300"), t0.Add(time.Hour))
	require.True(t, rec.WindowTotal.Equal(dec("400")))

	rec, _ = engine.FinalizeIfEnded(rec, t0.Add(31*day))
	require.Equal(t, 1, rec.TierLevel)
}

func TestNormalizeRepairsHalfOpenWindow(t *testing.T) {
	engine := NewEngine(nil)
	start := t0
	rec := model.MembershipRecord{UserID: 1, TierLevel: 1, WindowStart: &start, WindowTotal: dec("900")}

	rec = engine.RecordPurchase(rec, dec("1"), t0.Add(time.Hour))
	require.NotNil(t, rec.WindowEnd)
	require.Equal(t, WindowEnd(t0), *rec.WindowEnd)
	require.True(t, rec.WindowTotal.Equal(dec("901")))

	end := t0
	dangling := model.MembershipRecord{UserID: 1, TierLevel: 1, WindowEnd: &end, WindowTotal: dec("900")}
	got, changed := engine.FinalizeIfEnded(dangling, t0.Add(day))
	require.False(t, changed)
	require.Nil(t, got.WindowEnd)
	require.True(t, got.WindowTotal.IsZero())
}

func TestProjectionDoesNotAliasRecord(t *testing.T) {
	engine := NewEngine(nil)
	rec := engine.RecordPurchase(engine.NewRecord(1), dec("1"), t0)
	status := engine.Project(rec)
	*status.WindowStart = t0.Add(day)
	require.Equal(t, t0, *rec.WindowStart)
}
