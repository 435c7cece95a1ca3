// Package streak keeps the per-user daily streak. Days come from the server
// clock through DayKey; a record changes at most once per day.
package streak

import (
	"context"
	"time"

	"dailymint/internal/apperr"
	"dailymint/internal/models"
	"dailymint/internal/store"
)

// Outcome describes how a qualifying creation changed the record.
type Outcome string

const (
	Started   Outcome = "started"
	Extended  Outcome = "extended"
	Reset     Outcome = "reset"
	Unchanged Outcome = "unchanged"
)

// Update is the result of recording a qualifying creation.
type Update struct {
	Record  models.StreakRecord
	Outcome Outcome
	Day     Day
}

// Changed reports whether the record has to be persisted.
func (u Update) Changed() bool { return u.Outcome != Unchanged }

// LastDay returns the last qualifying day of rec, if any.
func LastDay(rec models.StreakRecord) (Day, bool) {
	if rec.LastCreationDate == nil {
		return 0, false
	}
	return DayFromTime(*rec.LastCreationDate), true
}

// Advance applies a qualifying creation on day to rec.
func Advance(rec models.StreakRecord, day Day) (Update, error) {
	last, ok := LastDay(rec)
	next := rec
	dayTime := day.Time()

	switch {
	case !ok:
		next.CurrentStreak = 1
		next.StreakStartDate = &dayTime
		next.TotalCreations++
		next.LastCreationDate = &dayTime
		next.LongestStreak = max(next.LongestStreak, next.CurrentStreak)
		return Update{Record: next, Outcome: Started, Day: day}, nil
	case day == last:
		return Update{Record: rec, Outcome: Unchanged, Day: day}, nil
	case day < last:
		return Update{Record: rec, Outcome: Unchanged, Day: day},
			apperr.OutOfOrder("creation day %s precedes last qualifying day %s", day, last)
	case day == last+1:
		next.CurrentStreak++
		if next.StreakStartDate == nil {
			next.StreakStartDate = &dayTime
		}
		next.LongestStreak = max(next.LongestStreak, next.CurrentStreak)
		next.TotalCreations++
		next.LastCreationDate = &dayTime
		return Update{Record: next, Outcome: Extended, Day: day}, nil
	default:
		next.CurrentStreak = 1
		next.StreakStartDate = &dayTime
		next.LongestStreak = max(next.LongestStreak, next.CurrentStreak)
		next.TotalCreations++
		next.LastCreationDate = &dayTime
		return Update{Record: next, Outcome: Reset, Day: day}, nil
	}
}

// Tx is the part of a store transaction the streak ledger needs.
type Tx interface {
	LockStreak(ctx context.Context) (models.StreakRecord, error)
	SaveStreak(ctx context.Context, rec models.StreakRecord) error
}

// RecordIn records a qualifying creation inside an open transaction.
func RecordIn(ctx context.Context, tx Tx, day Day, now time.Time) (Update, error) {
	rec, err := tx.LockStreak(ctx)
	if err != nil {
		return Update{}, err
	}
	upd, err := Advance(rec, day)
	if err != nil || !upd.Changed() {
		return upd, err
	}
	upd.Record.UpdatedAt = now
	if err := tx.SaveStreak(ctx, upd.Record); err != nil {
		return Update{}, err
	}
	return upd, nil
}

// Ledger records qualifying creations in their own per-user transaction.
type Ledger struct {
	store store.Store
	clock Clock
}

func NewLedger(s store.Store, clock Clock) *Ledger {
	if clock == nil {
		clock = time.Now
	}
	return &Ledger{store: s, clock: clock}
}

func (l *Ledger) RecordQualifyingCreation(ctx context.Context, userID string, day Day) (Update, error) {
	var out Update
	err := l.store.InUserTx(ctx, userID, func(tx store.Tx) error {
		upd, err := RecordIn(ctx, tx, day, l.clock())
		if err != nil {
			return err
		}
		out = upd
		return nil
	})
	return out, err
}

// Get returns the user's current record; users without creations get a zero record.
func (l *Ledger) Get(ctx context.Context, userID string) (models.StreakRecord, error) {
	return l.store.GetStreak(ctx, userID)
}
