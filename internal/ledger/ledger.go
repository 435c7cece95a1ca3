// Package ledger is the append-only token ledger. Balances are derived from
// the entries and never stored.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dailymint/internal/apperr"
	"dailymint/internal/models"
	"dailymint/internal/store"
)

// BalanceCache caches derived balances. Every append invalidates the user's
// entry and bumps a per-user generation, so a balance read before the append
// cannot be stored after it.
type BalanceCache interface {
	Get(ctx context.Context, userID string) (int64, bool, error)
	// Generation returns the user's invalidation counter.
	Generation(ctx context.Context, userID string) (int64, error)
	// SetIfGeneration stores balance only while the counter still equals gen.
	SetIfGeneration(ctx context.Context, userID string, balance, gen int64) (bool, error)
	Invalidate(ctx context.Context, userID string) error
}

// NewEntry builds a validated entry with a fresh id.
func NewEntry(userID string, amount int64, reason models.TransactionType, description string, creationID *string, now time.Time) (models.LedgerEntry, error) {
	switch reason {
	case models.TxEarned, models.TxBonus:
		if amount <= 0 {
			return models.LedgerEntry{}, apperr.InvalidAmount("%s entry needs a positive amount, got %d", reason, amount)
		}
	case models.TxSpent:
		if amount >= 0 {
			return models.LedgerEntry{}, apperr.InvalidAmount("spent entry needs a negative amount, got %d", amount)
		}
	default:
		return models.LedgerEntry{}, apperr.InvalidAmount("unknown transaction type %q", reason)
	}
	return models.LedgerEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        reason,
		Amount:      amount,
		Description: description,
		CreationID:  creationID,
		CreatedAt:   now,
	}, nil
}

// Appender is the part of a store transaction the ledger writes through.
type Appender interface {
	AppendEntry(ctx context.Context, e *models.LedgerEntry) error
}

// AppendIn validates and appends an entry inside an open transaction.
// Callers must Invalidate the user's cached balance after commit.
func AppendIn(ctx context.Context, tx Appender, e models.LedgerEntry) (models.LedgerEntry, error) {
	if _, err := NewEntry(e.UserID, e.Amount, e.Type, e.Description, e.CreationID, e.CreatedAt); err != nil {
		return models.LedgerEntry{}, err
	}
	if err := tx.AppendEntry(ctx, &e); err != nil {
		return models.LedgerEntry{}, err
	}
	return e, nil
}

type Ledger struct {
	store  store.Store
	cache  BalanceCache
	logger *zap.Logger
	clock  func() time.Time
}

// New returns a ledger; cache may be nil.
func New(s store.Store, cache BalanceCache, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: s, cache: cache, logger: logger, clock: time.Now}
}

// Append records amount for userID in its own transaction.
func (l *Ledger) Append(ctx context.Context, userID string, amount int64, reason models.TransactionType, description string, creationID *string) (models.LedgerEntry, error) {
	e, err := NewEntry(userID, amount, reason, description, creationID, l.clock())
	if err != nil {
		return models.LedgerEntry{}, err
	}
	var out models.LedgerEntry
	err = l.store.InUserTx(ctx, userID, func(tx store.Tx) error {
		var err error
		out, err = AppendIn(ctx, tx, e)
		return err
	})
	if err != nil {
		return models.LedgerEntry{}, err
	}
	l.Invalidate(ctx, userID)
	return out, nil
}

// Balance is the sum of all of the user's entries.
func (l *Ledger) Balance(ctx context.Context, userID string) (int64, error) {
	if l.cache != nil {
		if v, ok, err := l.cache.Get(ctx, userID); err != nil {
			l.logger.Warn("balance cache read failed", zap.String("user_id", userID), zap.Error(err))
		} else if ok {
			return v, nil
		}
	}
	var gen int64
	var genErr error
	if l.cache != nil {
		// read before the store so an append in between makes the write a no-op
		gen, genErr = l.cache.Generation(ctx, userID)
	}
	bal, err := l.store.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}
	switch {
	case l.cache == nil:
	case genErr != nil:
		l.logger.Warn("balance cache generation read failed", zap.String("user_id", userID), zap.Error(genErr))
	default:
		stored, err := l.cache.SetIfGeneration(ctx, userID, bal, gen)
		if err != nil {
			l.logger.Warn("balance cache write failed", zap.String("user_id", userID), zap.Error(err))
		} else if !stored {
			l.logger.Debug("balance cache write skipped after concurrent append", zap.String("user_id", userID))
		}
	}
	return bal, nil
}

// Invalidate drops the cached balance of userID.
func (l *Ledger) Invalidate(ctx context.Context, userID string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Invalidate(ctx, userID); err != nil {
		l.logger.Error("balance cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return l.store.ListEntries(ctx, userID, limit)
}
