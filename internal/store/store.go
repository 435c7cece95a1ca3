// Package store defines the persistence contract used by the services.
// Implementations live in store/postgres and store/memory.
package store

import (
	"context"
	"time"

	"dailymint/internal/models"
)

// Tx is a per-user unit of work. Writes become visible only when the
// function passed to InUserTx returns nil; any error discards them.
type Tx interface {
	// LockStreak returns the user's streak record, creating a zero record if
	// none exists, and holds it for the rest of the transaction.
	LockStreak(ctx context.Context) (models.StreakRecord, error)
	SaveStreak(ctx context.Context, rec models.StreakRecord) error
	HasValidCreation(ctx context.Context, day time.Time) (bool, error)
	InsertCreation(ctx context.Context, c *models.Creation) error
	AppendEntry(ctx context.Context, e *models.LedgerEntry) error
}

type Users interface {
	// EnsureUser creates the user on first authentication and refreshes last_login.
	EnsureUser(ctx context.Context, id string) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	UpdateUser(ctx context.Context, id string, upd models.UserUpdate) (models.User, error)
	DeactivateUser(ctx context.Context, id string) error
}

type Prompts interface {
	ActivePrompt(ctx context.Context) (models.DailyPrompt, error)
	GetPrompt(ctx context.Context, id string) (models.DailyPrompt, error)
	// CreatePrompt inserts p; when p.Active it deactivates any other active prompt atomically.
	CreatePrompt(ctx context.Context, p *models.DailyPrompt) error
	DeactivatePrompt(ctx context.Context, id string) error
}

type Creations interface {
	GetCreation(ctx context.Context, id string) (models.Creation, error)
	ListCreations(ctx context.Context, userID string, limit int) ([]models.Creation, error)
	// ClaimMint reserves an unminted creation for one deployment. A live claim
	// yields ErrMintInProgress; claims older than MintClaimTTL are taken over.
	ClaimMint(ctx context.Context, id string) error
	// ReleaseMint drops the claim after a failed deployment.
	ReleaseMint(ctx context.Context, id string) error
	// MarkMinted attaches the on-chain reference once; a minted creation yields ErrAlreadyMinted.
	MarkMinted(ctx context.Context, id, coinAddress string, txHash *string) (models.Creation, error)
}

// MintClaimTTL bounds how long a crashed deployment blocks a retry.
const MintClaimTTL = 10 * time.Minute

type Ledger interface {
	Balance(ctx context.Context, userID string) (int64, error)
	ListEntries(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error)
}

type Store interface {
	Users
	Prompts
	Creations
	Ledger
	GetStreak(ctx context.Context, userID string) (models.StreakRecord, error)
	Leaderboard(ctx context.Context, by models.LeaderboardBy, limit int) ([]models.LeaderboardRow, error)
	InUserTx(ctx context.Context, userID string, fn func(Tx) error) error
	Ping(ctx context.Context) error
}
