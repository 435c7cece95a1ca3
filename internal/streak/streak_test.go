package streak

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"dailymint/internal/apperr"
	"dailymint/internal/models"
	"dailymint/internal/store/memory"
)

func mustDay(t *testing.T, s string) Day {
	t.Helper()
	d, err := ParseDay(s)
	require.NoError(t, err)
	return d
}

func apply(t *testing.T, rec models.StreakRecord, days ...Day) (models.StreakRecord, []Outcome) {
	t.Helper()
	var outcomes []Outcome
	for _, d := range days {
		upd, err := Advance(rec, d)
		require.NoError(t, err)
		rec = upd.Record
		outcomes = append(outcomes, upd.Outcome)
	}
	return rec, outcomes
}

func TestAdvance_FirstCreation(t *testing.T) {
	d := mustDay(t, "2024-01-05")
	upd, err := Advance(models.StreakRecord{UserID: "u1"}, d)
	require.NoError(t, err)

	assert.Equal(t, Started, upd.Outcome)
	assert.Equal(t, 1, upd.Record.CurrentStreak)
	assert.Equal(t, 1, upd.Record.LongestStreak)
	assert.Equal(t, 1, upd.Record.TotalCreations)
	require.NotNil(t, upd.Record.LastCreationDate)
	assert.Equal(t, d, DayFromTime(*upd.Record.LastCreationDate))
	assert.Equal(t, d, DayFromTime(*upd.Record.StreakStartDate))
}

func TestAdvance_Scenario(t *testing.T) {
	d5 := mustDay(t, "2024-01-05")
	rec, outcomes := apply(t, models.StreakRecord{}, d5, d5+1, d5+1, d5+4)

	assert.Equal(t, []Outcome{Started, Extended, Unchanged, Reset}, outcomes)
	assert.Equal(t, 1, rec.CurrentStreak)
	assert.Equal(t, 2, rec.LongestStreak)
	assert.Equal(t, 3, rec.TotalCreations)
	assert.Equal(t, d5+4, DayFromTime(*rec.LastCreationDate))
	assert.Equal(t, d5+4, DayFromTime(*rec.StreakStartDate))
}

func TestAdvance_ResetKeepsLongest(t *testing.T) {
	d := mustDay(t, "2024-02-01")
	rec, _ := apply(t, models.StreakRecord{}, d, d+1, d+2, d+3, d+4)
	require.Equal(t, 5, rec.CurrentStreak)

	upd, err := Advance(rec, d+6)
	require.NoError(t, err)
	assert.Equal(t, Reset, upd.Outcome)
	assert.Equal(t, 1, upd.Record.CurrentStreak)
	assert.Equal(t, 5, upd.Record.LongestStreak)
}

func TestAdvance_OutOfOrder(t *testing.T) {
	d := mustDay(t, "2024-03-10")
	rec, _ := apply(t, models.StreakRecord{}, d)

	upd, err := Advance(rec, d-1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrOutOfOrder))
	assert.Equal(t, rec, upd.Record)
}

func TestAdvance_SameDayIsIdempotent(t *testing.T) {
	d := mustDay(t, "2024-03-10")
	rec, _ := apply(t, models.StreakRecord{}, d, d+1)

	upd, err := Advance(rec, d+1)
	require.NoError(t, err)
	assert.False(t, upd.Changed())
	assert.Equal(t, rec, upd.Record)
}

func TestProperty_StreakInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		start := Day(rapid.Int64Range(18000, 21000).Draw(rt, "start"))
		gaps := rapid.SliceOfN(rapid.IntRange(0, 4), 1, 40).Draw(rt, "gaps")

		rec := models.StreakRecord{}
		day := start
		for i, g := range gaps {
			if i > 0 {
				day += Day(g)
			}
			prev := rec
			upd, err := Advance(rec, day)
			if err != nil {
				rt.Fatalf("unexpected error: %v", err)
			}
			rec = upd.Record

			if rec.CurrentStreak < 0 || rec.CurrentStreak > rec.LongestStreak {
				rt.Fatalf("0 <= current <= longest violated: %+v", rec)
			}
			if rec.LongestStreak < prev.LongestStreak {
				rt.Fatalf("longest decreased from %d to %d", prev.LongestStreak, rec.LongestStreak)
			}
			switch {
			case i > 0 && g == 0:
				if upd.Outcome != Unchanged || rec != prev {
					rt.Fatalf("same-day repeat changed the record")
				}
			case i > 0 && g == 1:
				if rec.CurrentStreak != prev.CurrentStreak+1 {
					rt.Fatalf("consecutive day did not extend: %d -> %d", prev.CurrentStreak, rec.CurrentStreak)
				}
			case i > 0 && g >= 2:
				if rec.CurrentStreak != 1 {
					rt.Fatalf("gap of %d days did not reset: %d", g, rec.CurrentStreak)
				}
			}
		}
	})
}

func TestLedger_RecordQualifyingCreation(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	now := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)
	l := NewLedger(s, func() time.Time { return now })

	d := DayKey(now, nil)
	upd, err := l.RecordQualifyingCreation(ctx, "u1", d-1)
	require.NoError(t, err)
	assert.Equal(t, Started, upd.Outcome)

	upd, err = l.RecordQualifyingCreation(ctx, "u1", d)
	require.NoError(t, err)
	assert.Equal(t, Extended, upd.Outcome)

	upd, err = l.RecordQualifyingCreation(ctx, "u1", d)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, upd.Outcome)

	_, err = l.RecordQualifyingCreation(ctx, "u1", d-3)
	assert.ErrorIs(t, err, apperr.ErrOutOfOrder)

	rec, err := l.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.CurrentStreak)
	assert.Equal(t, 2, rec.LongestStreak)
	assert.Equal(t, 2, rec.TotalCreations)
	assert.Equal(t, now, rec.UpdatedAt)
}
