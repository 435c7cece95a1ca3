// Package submission ties validation, streak update, reward and ledger append
// into the single entry point for daily creations.
package submission

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dailymint/internal/apperr"
	"dailymint/internal/ledger"
	"dailymint/internal/metrics"
	"dailymint/internal/models"
	"dailymint/internal/rewards"
	"dailymint/internal/services"
	"dailymint/internal/store"
	"dailymint/internal/streak"
)

// State is the position of a submission in its lifecycle.
type State string

const (
	StateReceived       State = "received"
	StateValidated      State = "validated"
	StateStreakUpdated  State = "streak_updated"
	StateRewardComputed State = "reward_computed"
	StateLedgerAppended State = "ledger_appended"
	StateCommitted      State = "committed"
	StateRejected       State = "rejected"
)

const DefaultMaxContentLength = 2000

type Request struct {
	UserID   string
	PromptID string // empty selects the active prompt
	Content  string
	IsPublic bool
}

type Result struct {
	State    State               `json:"state"`
	Creation models.Creation     `json:"creation"`
	Streak   models.StreakRecord `json:"streak"`
	Outcome  streak.Outcome      `json:"streak_outcome"`
	Reward   int64               `json:"reward"`
	Balance  int64               `json:"balance"`
}

type Config struct {
	MaxContentLength int
	Rewards          rewards.Policy
}

type Orchestrator struct {
	store   store.Store
	ledger  *ledger.Ledger
	days    streak.Normalizer
	cfg     Config
	enc     *services.EncryptionService
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New wires an orchestrator. enc and m may be nil.
func New(s store.Store, l *ledger.Ledger, days streak.Normalizer, cfg Config, enc *services.EncryptionService, m *metrics.Metrics, logger *zap.Logger) *Orchestrator {
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = DefaultMaxContentLength
	}
	if cfg.Rewards == (rewards.Policy{}) {
		cfg.Rewards = rewards.DefaultPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{store: s, ledger: l, days: days, cfg: cfg, enc: enc, metrics: m, logger: logger.With(zap.String("component", "submission"))}
}

// Submit runs one submission attempt. Either everything commits or nothing
// is written; a retried identical request is rejected as a duplicate once
// the first attempt committed.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (Result, error) {
	res := Result{State: StateReceived}

	prompt, content, err := o.validate(ctx, req)
	if err != nil {
		return o.reject(res, req, err)
	}
	res.State = StateValidated

	now := o.days.Now()
	day := streak.DayKey(now, o.days.Location)
	creation := models.Creation{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		PromptID:    prompt.ID,
		Content:     content,
		ContentType: "text",
		CreationDay: day.Time(),
		IsValid:     true,
		IsPublic:    req.IsPublic,
	}

	err = o.store.InUserTx(ctx, req.UserID, func(tx store.Tx) error {
		dup, err := tx.HasValidCreation(ctx, creation.CreationDay)
		if err != nil {
			return err
		}
		if dup {
			return store.ErrDuplicateDay
		}

		upd, err := streak.RecordIn(ctx, tx, day, now)
		if err != nil {
			return err
		}
		if !upd.Changed() {
			// The streak already counted today.
			return store.ErrDuplicateDay
		}
		res.State = StateStreakUpdated
		res.Streak, res.Outcome = upd.Record, upd.Outcome

		res.Reward = o.cfg.Rewards.Compute(upd.Record.CurrentStreak)
		res.State = StateRewardComputed

		entry, err := ledger.NewEntry(req.UserID, res.Reward, models.TxEarned, "daily creation reward ("+day.String()+")", &creation.ID, now)
		if err != nil {
			return err
		}
		if _, err := ledger.AppendIn(ctx, tx, entry); err != nil {
			return err
		}
		res.State = StateLedgerAppended

		creation.CoinsEarned = res.Reward
		stored := creation
		if err := o.enc.EncryptCreation(&stored); err != nil {
			return apperr.Internal("could not encrypt content", err)
		}
		if err := tx.InsertCreation(ctx, &stored); err != nil {
			return err
		}
		creation.CreatedAt, creation.UpdatedAt = stored.CreatedAt, stored.UpdatedAt
		return nil
	})
	if err != nil {
		return o.fail(res, req, day, err)
	}

	res.State = StateCommitted
	res.Creation = creation
	o.ledger.Invalidate(ctx, req.UserID)
	if bal, err := o.ledger.Balance(ctx, req.UserID); err != nil {
		o.logger.Warn("balance after submission unavailable", zap.String("user_id", req.UserID), zap.Error(err))
	} else {
		res.Balance = bal
	}

	o.observe("committed")
	if o.metrics != nil {
		o.metrics.RewardsTotal.Add(float64(res.Reward))
		o.metrics.StreakLength.Observe(float64(res.Streak.CurrentStreak))
	}
	o.logger.Info("creation committed",
		zap.String("user_id", req.UserID),
		zap.String("creation_id", creation.ID),
		zap.String("day", day.String()),
		zap.String("streak_outcome", string(res.Outcome)),
		zap.Int("current_streak", res.Streak.CurrentStreak),
		zap.Int64("reward", res.Reward),
	)
	return res, nil
}

func (o *Orchestrator) validate(ctx context.Context, req Request) (models.DailyPrompt, string, error) {
	if req.UserID == "" {
		return models.DailyPrompt{}, "", apperr.Unauthorized("missing user", nil)
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return models.DailyPrompt{}, "", apperr.Validation("content must not be empty")
	}
	if n := utf8.RuneCountInString(content); n > o.cfg.MaxContentLength {
		return models.DailyPrompt{}, "", apperr.Validation("content is %d characters, the limit is %d", n, o.cfg.MaxContentLength)
	}

	var prompt models.DailyPrompt
	var err error
	if req.PromptID == "" {
		prompt, err = o.store.ActivePrompt(ctx)
	} else {
		if _, perr := uuid.Parse(req.PromptID); perr != nil {
			return models.DailyPrompt{}, "", apperr.Validation("prompt_id must be a uuid")
		}
		prompt, err = o.store.GetPrompt(ctx, req.PromptID)
	}
	if err != nil {
		return models.DailyPrompt{}, "", err
	}
	if !prompt.ActiveAt(o.days.Now()) {
		return models.DailyPrompt{}, "", apperr.Validation("prompt is not active")
	}
	return prompt, content, nil
}

func (o *Orchestrator) reject(res Result, req Request, err error) (Result, error) {
	res.State = StateRejected
	o.observe(string(apperr.KindOf(err)))
	o.logger.Info("submission rejected", zap.String("user_id", req.UserID), zap.Error(err))
	return res, err
}

func (o *Orchestrator) fail(res Result, req Request, day streak.Day, err error) (Result, error) {
	fields := []zap.Field{zap.String("user_id", req.UserID), zap.String("day", day.String()), zap.Error(err)}
	switch {
	case errors.Is(err, apperr.ErrDuplicateSubmission):
		res.State = StateRejected
		o.logger.Info("duplicate submission", fields...)
	case errors.Is(err, apperr.ErrOutOfOrder):
		res.State = StateRejected
		o.logger.Warn("out-of-order creation day", fields...)
	default:
		o.logger.Error("submission failed", fields...)
	}
	o.observe(string(apperr.KindOf(err)))
	return res, err
}

func (o *Orchestrator) observe(outcome string) {
	if o.metrics != nil {
		o.metrics.SubmissionsTotal.WithLabelValues(outcome).Inc()
	}
}
