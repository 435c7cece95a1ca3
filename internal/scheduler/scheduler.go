// Package scheduler rotates the daily prompt on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"dailymint/internal/models"
)

// Rotator activates a freshly generated prompt.
type Rotator interface {
	Rotate(ctx context.Context) (models.DailyPrompt, error)
}

type Scheduler struct {
	cron    *cron.Cron
	rotator Rotator
	timeout time.Duration
	logger  *zap.Logger
}

// New schedules rotation with a standard five-field spec evaluated in loc.
func New(spec string, loc *time.Location, rotator Rotator, logger *zap.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		rotator: rotator,
		timeout: 2 * time.Minute,
		logger:  logger.With(zap.String("component", "scheduler")),
	}
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("parse PROMPT_CRON %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce performs one rotation. Failures are logged and the current prompt stays active.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	p, err := s.rotator.Rotate(ctx)
	if err != nil {
		s.logger.Error("prompt rotation failed", zap.Error(err))
		return
	}
	s.logger.Info("prompt rotated", zap.String("prompt_id", p.ID), zap.String("title", p.Title))
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for a running rotation to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
