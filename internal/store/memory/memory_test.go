package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailymint/internal/apperr"
	"dailymint/internal/models"
	"dailymint/internal/store"
)

var day = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func TestInUserTx_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	err := s.InUserTx(ctx, "u1", func(tx store.Tx) error {
		rec, err := tx.LockStreak(ctx)
		require.NoError(t, err)
		rec.CurrentStreak, rec.LongestStreak = 1, 1
		require.NoError(t, tx.SaveStreak(ctx, rec))
		require.NoError(t, tx.AppendEntry(ctx, &models.LedgerEntry{ID: "e1", UserID: "u1", Type: models.TxEarned, Amount: 110}))
		require.NoError(t, tx.InsertCreation(ctx, &models.Creation{ID: "c1", UserID: "u1", CreationDay: day, IsValid: true}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	rec, err := s.GetStreak(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, rec.CurrentStreak)
	bal, err := s.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, bal)
	_, err = s.GetCreation(ctx, "c1")
	assert.ErrorIs(t, err, store.ErrCreationNotFound)
}

func TestAppendEntry_RejectsOtherUser(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.InUserTx(ctx, "u1", func(tx store.Tx) error {
		return tx.AppendEntry(ctx, &models.LedgerEntry{ID: "e1", UserID: "u2", Type: models.TxEarned, Amount: 10})
	})
	require.ErrorIs(t, err, store.ErrEntryUserMismatch)

	for _, u := range []string{"u1", "u2"} {
		bal, err := s.Balance(ctx, u)
		require.NoError(t, err)
		assert.Zero(t, bal, u)
	}
}

func TestInsertCreation_DuplicateDay(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.InUserTx(ctx, "u1", func(tx store.Tx) error {
		return tx.InsertCreation(ctx, &models.Creation{ID: "c1", UserID: "u1", CreationDay: day, IsValid: true})
	}))

	err := s.InUserTx(ctx, "u1", func(tx store.Tx) error {
		dup, err := tx.HasValidCreation(ctx, day)
		require.NoError(t, err)
		assert.True(t, dup)
		return tx.InsertCreation(ctx, &models.Creation{ID: "c2", UserID: "u1", CreationDay: day.Add(3 * time.Hour), IsValid: true})
	})
	assert.ErrorIs(t, err, apperr.ErrDuplicateSubmission)

	// another user, same day
	require.NoError(t, s.InUserTx(ctx, "u2", func(tx store.Tx) error {
		return tx.InsertCreation(ctx, &models.Creation{ID: "c3", UserID: "u2", CreationDay: day, IsValid: true})
	}))
}

func TestCreatePrompt_SingleActive(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreatePrompt(ctx, &models.DailyPrompt{ID: "p1", Title: "one", Active: true}))
	require.NoError(t, s.CreatePrompt(ctx, &models.DailyPrompt{ID: "p2", Title: "two", Active: true}))
	require.NoError(t, s.CreatePrompt(ctx, &models.DailyPrompt{ID: "p3", Title: "draft"}))

	active, err := s.ActivePrompt(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p2", active.ID)

	p1, err := s.GetPrompt(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, p1.Active)

	require.NoError(t, s.DeactivatePrompt(ctx, "p2"))
	_, err = s.ActivePrompt(ctx)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, s.DeactivatePrompt(ctx, "missing"), store.ErrPromptNotFound)
}

func TestMarkMinted_Once(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.InUserTx(ctx, "u1", func(tx store.Tx) error {
		return tx.InsertCreation(ctx, &models.Creation{ID: "c1", UserID: "u1", CreationDay: day, IsValid: true, IsPublic: true})
	}))

	hash := "0xabc"
	c, err := s.MarkMinted(ctx, "c1", "0x0000000000000000000000000000000000000001", &hash)
	require.NoError(t, err)
	assert.True(t, c.IsMinted)
	require.NotNil(t, c.CoinAddress)

	_, err = s.MarkMinted(ctx, "c1", "0x0000000000000000000000000000000000000002", nil)
	assert.ErrorIs(t, err, store.ErrAlreadyMinted)
	_, err = s.MarkMinted(ctx, "missing", "0x0", nil)
	assert.ErrorIs(t, err, store.ErrCreationNotFound)
}

func TestClaimMint(t *testing.T) {
	ctx := context.Background()
	now := day
	s := New().WithClock(func() time.Time { return now })
	require.NoError(t, s.InUserTx(ctx, "u1", func(tx store.Tx) error {
		return tx.InsertCreation(ctx, &models.Creation{ID: "c1", UserID: "u1", CreationDay: day, IsValid: true, IsPublic: true})
	}))

	require.NoError(t, s.ClaimMint(ctx, "c1"))
	assert.ErrorIs(t, s.ClaimMint(ctx, "c1"), store.ErrMintInProgress)
	assert.ErrorIs(t, s.ClaimMint(ctx, "c1"), apperr.ErrConflict)

	require.NoError(t, s.ReleaseMint(ctx, "c1"))
	require.NoError(t, s.ClaimMint(ctx, "c1"))

	// a claim left behind by a crash expires
	now = now.Add(store.MintClaimTTL + time.Second)
	require.NoError(t, s.ClaimMint(ctx, "c1"))

	_, err := s.MarkMinted(ctx, "c1", "0x0000000000000000000000000000000000000001", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, s.ClaimMint(ctx, "c1"), store.ErrAlreadyMinted)
	assert.ErrorIs(t, s.ClaimMint(ctx, "missing"), store.ErrCreationNotFound)
}

func TestUsers_EnsureUpdateDeactivate(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := t0
	s := New().WithClock(func() time.Time { return now })

	u, err := s.EnsureUser(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, t0, u.CreatedAt)

	now = t0.Add(time.Hour)
	u, err = s.EnsureUser(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, t0, u.CreatedAt)
	assert.Equal(t, now, u.LastLogin)

	name := "alice"
	u, err = s.UpdateUser(ctx, "42", models.UserUpdate{Username: &name})
	require.NoError(t, err)
	assert.Equal(t, "alice", *u.Username)

	require.NoError(t, s.DeactivateUser(ctx, "42"))
	u, err = s.GetUser(ctx, "42")
	require.NoError(t, err)
	assert.NotNil(t, u.DeactivatedAt)

	_, err = s.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestLeaderboard(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"a", "b", "c"} {
		_, err := s.EnsureUser(ctx, id)
		require.NoError(t, err)
	}
	seed := func(id string, current, total int, tokens int64) {
		require.NoError(t, s.InUserTx(ctx, id, func(tx store.Tx) error {
			if err := tx.SaveStreak(ctx, models.StreakRecord{CurrentStreak: current, LongestStreak: current, TotalCreations: total}); err != nil {
				return err
			}
			return tx.AppendEntry(ctx, &models.LedgerEntry{ID: id + "-e", UserID: id, Type: models.TxEarned, Amount: tokens})
		}))
	}
	seed("a", 3, 10, 500)
	seed("b", 7, 7, 900)
	seed("c", 3, 12, 100)
	require.NoError(t, s.DeactivateUser(ctx, "c"))

	rows, err := s.Leaderboard(ctx, models.ByStreak, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].UserID)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "a", rows[1].UserID)

	rows, err = s.Leaderboard(ctx, models.ByCreations, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].UserID)

	rows, err = s.Leaderboard(ctx, models.ByTokens, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(900), rows[0].TotalTokens)
}
