// Package memory is an in-process Store used when no database is configured
// and in tests. Transactions are serialized per user and their writes are
// buffered until commit.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"dailymint/internal/models"
	"dailymint/internal/store"
)

type Store struct {
	mu        sync.RWMutex
	users     map[string]models.User
	prompts   map[string]models.DailyPrompt
	creations map[string]models.Creation
	streaks   map[string]models.StreakRecord
	entries   map[string][]models.LedgerEntry
	minting   map[string]time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:     make(map[string]models.User),
		prompts:   make(map[string]models.DailyPrompt),
		creations: make(map[string]models.Creation),
		streaks:   make(map[string]models.StreakRecord),
		entries:   make(map[string][]models.LedgerEntry),
		minting:   make(map[string]time.Time),
		locks:     make(map[string]*sync.Mutex),
		now:       time.Now,
	}
}

// WithClock overrides the clock used for timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) userLock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Users

func (s *Store) EnsureUser(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	u, ok := s.users[id]
	if !ok {
		u = models.User{ID: id, CreatedAt: now, UpdatedAt: now}
	}
	u.LastLogin = now
	s.users[id] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, id string, upd models.UserUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	if upd.Username != nil {
		u.Username = upd.Username
	}
	if upd.DisplayName != nil {
		u.DisplayName = upd.DisplayName
	}
	if upd.PfpURL != nil {
		u.PfpURL = upd.PfpURL
	}
	if upd.WalletAddress != nil {
		u.WalletAddress = upd.WalletAddress
	}
	u.UpdatedAt = s.now()
	s.users[id] = u
	return u, nil
}

func (s *Store) DeactivateUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	if u.DeactivatedAt == nil {
		now := s.now()
		u.DeactivatedAt = &now
		u.UpdatedAt = now
		s.users[id] = u
	}
	return nil
}

// Prompts

func (s *Store) ActivePrompt(context.Context) (models.DailyPrompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.prompts {
		if p.Active {
			return p, nil
		}
	}
	return models.DailyPrompt{}, store.ErrPromptNotFound
}

func (s *Store) GetPrompt(_ context.Context, id string) (models.DailyPrompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prompts[id]
	if !ok {
		return models.DailyPrompt{}, store.ErrPromptNotFound
	}
	return p, nil
}

func (s *Store) CreatePrompt(_ context.Context, p *models.DailyPrompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if p.Active {
		for id, other := range s.prompts {
			if other.Active {
				other.Active = false
				other.UpdatedAt = now
				s.prompts[id] = other
			}
		}
	}
	p.CreatedAt, p.UpdatedAt = now, now
	s.prompts[p.ID] = *p
	return nil
}

func (s *Store) DeactivatePrompt(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prompts[id]
	if !ok {
		return store.ErrPromptNotFound
	}
	p.Active = false
	p.UpdatedAt = s.now()
	s.prompts[id] = p
	return nil
}

// Creations

func (s *Store) GetCreation(_ context.Context, id string) (models.Creation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.creations[id]
	if !ok {
		return models.Creation{}, store.ErrCreationNotFound
	}
	return c, nil
}

func (s *Store) ListCreations(_ context.Context, userID string, limit int) ([]models.Creation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Creation
	for _, c := range s.creations {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ClaimMint(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.creations[id]
	if !ok {
		return store.ErrCreationNotFound
	}
	if c.IsMinted {
		return store.ErrAlreadyMinted
	}
	now := s.now()
	if at, held := s.minting[id]; held && now.Sub(at) < store.MintClaimTTL {
		return store.ErrMintInProgress
	}
	s.minting[id] = now
	return nil
}

func (s *Store) ReleaseMint(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.creations[id]; ok && !c.IsMinted {
		delete(s.minting, id)
	}
	return nil
}

func (s *Store) MarkMinted(_ context.Context, id, coinAddress string, txHash *string) (models.Creation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.creations[id]
	if !ok {
		return models.Creation{}, store.ErrCreationNotFound
	}
	if c.IsMinted {
		return models.Creation{}, store.ErrAlreadyMinted
	}
	c.IsMinted = true
	c.CoinAddress = &coinAddress
	c.MintTxHash = txHash
	c.UpdatedAt = s.now()
	s.creations[id] = c
	delete(s.minting, id)
	return c, nil
}

// Ledger

func (s *Store) Balance(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum int64
	for _, e := range s.entries[userID] {
		sum += e.Amount
	}
	return sum, nil
}

func (s *Store) ListEntries(_ context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.entries[userID]
	out := make([]models.LedgerEntry, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, src[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) GetStreak(_ context.Context, userID string) (models.StreakRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.streaks[userID]
	if !ok {
		return models.StreakRecord{UserID: userID}, nil
	}
	return rec, nil
}

func (s *Store) Leaderboard(_ context.Context, by models.LeaderboardBy, limit int) ([]models.LeaderboardRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]models.LeaderboardRow, 0, len(s.users))
	for id, u := range s.users {
		if u.DeactivatedAt != nil {
			continue
		}
		row := models.LeaderboardRow{UserID: id, Username: u.Username, DisplayName: u.DisplayName, PfpURL: u.PfpURL}
		if rec, ok := s.streaks[id]; ok {
			row.CurrentStreak = rec.CurrentStreak
			row.TotalCreations = rec.TotalCreations
		}
		for _, e := range s.entries[id] {
			row.TotalTokens += e.Amount
		}
		rows = append(rows, row)
	}
	key := func(r models.LeaderboardRow) int64 {
		switch by {
		case models.ByTokens:
			return r.TotalTokens
		case models.ByCreations:
			return int64(r.TotalCreations)
		default:
			return int64(r.CurrentStreak)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		ki, kj := key(rows[i]), key(rows[j])
		if ki != kj {
			return ki > kj
		}
		return rows[i].UserID < rows[j].UserID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

// Transactions

func (s *Store) InUserTx(ctx context.Context, userID string, fn func(store.Tx) error) error {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{s: s, userID: userID}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

type memTx struct {
	s         *Store
	userID    string
	streak    *models.StreakRecord
	creations []models.Creation
	entries   []models.LedgerEntry
}

func (t *memTx) LockStreak(context.Context) (models.StreakRecord, error) {
	if t.streak != nil {
		return *t.streak, nil
	}
	t.s.mu.RLock()
	rec, ok := t.s.streaks[t.userID]
	t.s.mu.RUnlock()
	if !ok {
		rec = models.StreakRecord{UserID: t.userID}
	}
	t.streak = &rec
	return rec, nil
}

func (t *memTx) SaveStreak(_ context.Context, rec models.StreakRecord) error {
	rec.UserID = t.userID
	t.streak = &rec
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (t *memTx) HasValidCreation(_ context.Context, day time.Time) (bool, error) {
	for _, c := range t.creations {
		if c.IsValid && sameDay(c.CreationDay, day) {
			return true, nil
		}
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.hasValidCreationLocked(t.userID, day), nil
}

func (s *Store) hasValidCreationLocked(userID string, day time.Time) bool {
	for _, c := range s.creations {
		if c.UserID == userID && c.IsValid && sameDay(c.CreationDay, day) {
			return true
		}
	}
	return false
}

func (t *memTx) InsertCreation(ctx context.Context, c *models.Creation) error {
	if c.IsValid {
		dup, err := t.HasValidCreation(ctx, c.CreationDay)
		if err != nil {
			return err
		}
		if dup {
			return store.ErrDuplicateDay
		}
	}
	now := t.s.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	t.creations = append(t.creations, *c)
	return nil
}

func (t *memTx) AppendEntry(_ context.Context, e *models.LedgerEntry) error {
	if e.UserID != t.userID {
		return store.ErrEntryUserMismatch
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = t.s.now()
	}
	t.entries = append(t.entries, *e)
	return nil
}

func (t *memTx) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.streak != nil {
		t.s.streaks[t.userID] = *t.streak
	}
	for _, c := range t.creations {
		t.s.creations[c.ID] = c
	}
	t.s.entries[t.userID] = append(t.s.entries[t.userID], t.entries...)
	return nil
}
