// Package postgres implements store.Store on Postgres through sqlx and the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"dailymint/internal/apperr"
	"dailymint/internal/models"
	"dailymint/internal/store"
)

const uniqueViolation = "23505"

type Store struct {
	db *sqlx.DB
}

var _ store.Store = (*Store)(nil)

func New(db *sqlx.DB) *Store { return &Store{db: db} }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func dbErr(op string, err error) error {
	return apperr.Upstream("database", fmt.Errorf("%s: %w", op, err))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const userColumns = `id, username, display_name, pfp_url, wallet_address, created_at, updated_at, last_login, deactivated_at`

func (s *Store) EnsureUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowxContext(ctx, `INSERT INTO users (id) VALUES ($1)
		ON CONFLICT (id) DO UPDATE SET last_login = NOW()
		RETURNING `+userColumns, id).StructScan(&u)
	if err != nil {
		return models.User{}, dbErr("ensure user", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	if err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id=$1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, store.ErrUserNotFound
		}
		return models.User{}, dbErr("get user", err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, upd models.UserUpdate) (models.User, error) {
	setClauses := []string{}
	args := []any{}
	add := func(col string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		setClauses = append(setClauses, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	add("username", upd.Username)
	add("display_name", upd.DisplayName)
	add("pfp_url", upd.PfpURL)
	add("wallet_address", upd.WalletAddress)
	if len(setClauses) == 0 {
		return s.GetUser(ctx, id)
	}

	args = append(args, id)
	query := "UPDATE users SET " + strings.Join(setClauses, ", ") + ", updated_at=NOW() WHERE id=$" + fmt.Sprint(len(args)) + " RETURNING " + userColumns
	var u models.User
	if err := s.db.QueryRowxContext(ctx, query, args...).StructScan(&u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, store.ErrUserNotFound
		}
		return models.User{}, dbErr("update user", err)
	}
	return u, nil
}

func (s *Store) DeactivateUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET deactivated_at = COALESCE(deactivated_at, NOW()), updated_at = NOW() WHERE id=$1`, id)
	if err != nil {
		return dbErr("deactivate user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

const promptColumns = `id, title, prompt_text, prompt_type, prompt_date, active, active_from, active_until, created_by_user_id, is_community_generated, created_at, updated_at`

func (s *Store) ActivePrompt(ctx context.Context) (models.DailyPrompt, error) {
	var p models.DailyPrompt
	if err := s.db.GetContext(ctx, &p, `SELECT `+promptColumns+` FROM daily_prompts WHERE active LIMIT 1`); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DailyPrompt{}, store.ErrPromptNotFound
		}
		return models.DailyPrompt{}, dbErr("active prompt", err)
	}
	return p, nil
}

func (s *Store) GetPrompt(ctx context.Context, id string) (models.DailyPrompt, error) {
	var p models.DailyPrompt
	if err := s.db.GetContext(ctx, &p, `SELECT `+promptColumns+` FROM daily_prompts WHERE id=$1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DailyPrompt{}, store.ErrPromptNotFound
		}
		return models.DailyPrompt{}, dbErr("get prompt", err)
	}
	return p, nil
}

func (s *Store) CreatePrompt(ctx context.Context, p *models.DailyPrompt) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return dbErr("begin", err)
	}
	defer tx.Rollback()

	if p.Active {
		if _, err := tx.ExecContext(ctx, `UPDATE daily_prompts SET active=false, updated_at=NOW() WHERE active`); err != nil {
			return dbErr("deactivate prompts", err)
		}
	}
	err = tx.QueryRowxContext(ctx, `INSERT INTO daily_prompts (id, title, prompt_text, prompt_type, prompt_date, active, active_from, active_until, created_by_user_id, is_community_generated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		p.ID, p.Title, p.Text, p.Type, p.Date, p.Active, p.ActiveFrom, p.ActiveUntil, p.CreatedByUserID, p.IsCommunityGenerated,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("another prompt became active concurrently")
		}
		return dbErr("insert prompt", err)
	}
	if err := tx.Commit(); err != nil {
		return dbErr("commit", err)
	}
	return nil
}

func (s *Store) DeactivatePrompt(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE daily_prompts SET active=false, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return dbErr("deactivate prompt", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrPromptNotFound
	}
	return nil
}

const creationColumns = `id, user_id, prompt_id, content, content_type, creation_day, is_valid, is_public, is_minted, coin_address, mint_tx_hash, coins_earned, created_at, updated_at`

func (s *Store) GetCreation(ctx context.Context, id string) (models.Creation, error) {
	var c models.Creation
	if err := s.db.GetContext(ctx, &c, `SELECT `+creationColumns+` FROM creations WHERE id=$1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Creation{}, store.ErrCreationNotFound
		}
		return models.Creation{}, dbErr("get creation", err)
	}
	return c, nil
}

func (s *Store) ListCreations(ctx context.Context, userID string, limit int) ([]models.Creation, error) {
	out := []models.Creation{}
	if err := s.db.SelectContext(ctx, &out, `SELECT `+creationColumns+` FROM creations WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit); err != nil {
		return nil, dbErr("list creations", err)
	}
	return out, nil
}

func (s *Store) ClaimMint(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE creations SET minting_at=NOW()
		WHERE id=$1 AND NOT is_minted AND (minting_at IS NULL OR minting_at < NOW() - $2::interval)`,
		id, fmt.Sprintf("%d seconds", int(store.MintClaimTTL.Seconds())))
	if err != nil {
		return dbErr("claim mint", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return dbErr("claim mint", err)
	} else if n == 1 {
		return nil
	}
	c, err := s.GetCreation(ctx, id)
	if err != nil {
		return err
	}
	if c.IsMinted {
		return store.ErrAlreadyMinted
	}
	return store.ErrMintInProgress
}

func (s *Store) ReleaseMint(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE creations SET minting_at=NULL WHERE id=$1 AND NOT is_minted`, id); err != nil {
		return dbErr("release mint", err)
	}
	return nil
}

func (s *Store) MarkMinted(ctx context.Context, id, coinAddress string, txHash *string) (models.Creation, error) {
	var c models.Creation
	err := s.db.QueryRowxContext(ctx, `UPDATE creations SET is_minted=true, coin_address=$2, mint_tx_hash=$3, minting_at=NULL, updated_at=NOW()
		WHERE id=$1 AND NOT is_minted
		RETURNING `+creationColumns, id, coinAddress, txHash).StructScan(&c)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Creation{}, dbErr("mark minted", err)
	}
	// Either missing or already minted.
	if _, err := s.GetCreation(ctx, id); err != nil {
		return models.Creation{}, err
	}
	return models.Creation{}, store.ErrAlreadyMinted
}

func (s *Store) Balance(ctx context.Context, userID string) (int64, error) {
	var bal int64
	if err := s.db.GetContext(ctx, &bal, `SELECT COALESCE(SUM(amount), 0) FROM token_transactions WHERE user_id=$1`, userID); err != nil {
		return 0, dbErr("balance", err)
	}
	return bal, nil
}

const entryColumns = `id, user_id, transaction_type, amount, description, creation_id, created_at`

func (s *Store) ListEntries(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	out := []models.LedgerEntry{}
	if err := s.db.SelectContext(ctx, &out, `SELECT `+entryColumns+` FROM token_transactions WHERE user_id=$1 ORDER BY created_at DESC, id LIMIT $2`, userID, limit); err != nil {
		return nil, dbErr("list entries", err)
	}
	return out, nil
}

const streakColumns = `user_id, current_streak, longest_streak, last_creation_date, streak_start_date, total_creations, updated_at`

func (s *Store) GetStreak(ctx context.Context, userID string) (models.StreakRecord, error) {
	var rec models.StreakRecord
	if err := s.db.GetContext(ctx, &rec, `SELECT `+streakColumns+` FROM user_streaks WHERE user_id=$1`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.StreakRecord{UserID: userID}, nil
		}
		return models.StreakRecord{}, dbErr("get streak", err)
	}
	return rec, nil
}

func (s *Store) Leaderboard(ctx context.Context, by models.LeaderboardBy, limit int) ([]models.LeaderboardRow, error) {
	order := "current_streak DESC"
	switch by {
	case models.ByTokens:
		order = "total_tokens DESC"
	case models.ByCreations:
		order = "total_creations DESC"
	}
	query := `
		SELECT u.id AS user_id, u.username, u.display_name, u.pfp_url,
			COALESCE(s.current_streak, 0) AS current_streak,
			COALESCE(s.total_creations, 0) AS total_creations,
			COALESCE(t.total, 0) AS total_tokens
		FROM users u
		LEFT JOIN user_streaks s ON s.user_id = u.id
		LEFT JOIN (SELECT user_id, SUM(amount) AS total FROM token_transactions GROUP BY user_id) t ON t.user_id = u.id
		WHERE u.deactivated_at IS NULL
		ORDER BY ` + order + `, u.id
		LIMIT $1`
	rows := []models.LeaderboardRow{}
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, dbErr("leaderboard", err)
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

// InUserTx runs fn in a database transaction. The user's streak row is the
// lock that serializes concurrent submissions of the same user.
func (s *Store) InUserTx(ctx context.Context, userID string, fn func(store.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return dbErr("begin", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx, userID: userID}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateDay
		}
		return dbErr("commit", err)
	}
	return nil
}

type pgTx struct {
	tx     *sqlx.Tx
	userID string
}

func (t *pgTx) LockStreak(ctx context.Context) (models.StreakRecord, error) {
	if _, err := t.tx.ExecContext(ctx, `INSERT INTO user_streaks (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, t.userID); err != nil {
		return models.StreakRecord{}, dbErr("init streak", err)
	}
	var rec models.StreakRecord
	if err := t.tx.GetContext(ctx, &rec, `SELECT `+streakColumns+` FROM user_streaks WHERE user_id=$1 FOR UPDATE`, t.userID); err != nil {
		return models.StreakRecord{}, dbErr("lock streak", err)
	}
	return rec, nil
}

func (t *pgTx) SaveStreak(ctx context.Context, rec models.StreakRecord) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE user_streaks
		SET current_streak=$2, longest_streak=$3, last_creation_date=$4, streak_start_date=$5, total_creations=$6, updated_at=$7
		WHERE user_id=$1`,
		t.userID, rec.CurrentStreak, rec.LongestStreak, rec.LastCreationDate, rec.StreakStartDate, rec.TotalCreations, rec.UpdatedAt)
	if err != nil {
		return dbErr("save streak", err)
	}
	return nil
}

func (t *pgTx) HasValidCreation(ctx context.Context, day time.Time) (bool, error) {
	var exists bool
	if err := t.tx.QueryRowxContext(ctx, `SELECT EXISTS (SELECT 1 FROM creations WHERE user_id=$1 AND creation_day=$2 AND is_valid)`, t.userID, day).Scan(&exists); err != nil {
		return false, dbErr("check creation", err)
	}
	return exists, nil
}

func (t *pgTx) InsertCreation(ctx context.Context, c *models.Creation) error {
	err := t.tx.QueryRowxContext(ctx, `INSERT INTO creations (id, user_id, prompt_id, content, content_type, creation_day, is_valid, is_public, coins_earned)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		c.ID, t.userID, c.PromptID, c.Content, c.ContentType, c.CreationDay, c.IsValid, c.IsPublic, c.CoinsEarned,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateDay
		}
		return dbErr("insert creation", err)
	}
	return nil
}

func (t *pgTx) AppendEntry(ctx context.Context, e *models.LedgerEntry) error {
	if e.UserID != t.userID {
		return store.ErrEntryUserMismatch
	}
	err := t.tx.QueryRowxContext(ctx, `INSERT INTO token_transactions (id, user_id, transaction_type, amount, description, creation_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		e.ID, t.userID, e.Type, e.Amount, e.Description, e.CreationID,
	).Scan(&e.CreatedAt)
	if err != nil {
		return dbErr("append entry", err)
	}
	return nil
}
