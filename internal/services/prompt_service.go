package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dailymint/internal/apperr"
	"dailymint/internal/llm"
	"dailymint/internal/models"
	"dailymint/internal/store"
	"dailymint/internal/streak"
)

// PromptService manages the daily prompt rotation.
type PromptService struct {
	store     store.Prompts
	generator llm.PromptGenerator
	days      streak.Normalizer
	logger    *zap.Logger
}

// NewPromptService wires the service; generator may be nil when no LLM is configured.
func NewPromptService(s store.Prompts, gen llm.PromptGenerator, days streak.Normalizer, logger *zap.Logger) *PromptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptService{store: s, generator: gen, days: days, logger: logger.With(zap.String("component", "prompts"))}
}

type NewPrompt struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Type        models.PromptType `json:"prompt_type"`
	ActiveFrom  *time.Time        `json:"active_from"`
	ActiveUntil *time.Time        `json:"active_until"`
	Activate    *bool             `json:"activate"`
}

func (s *PromptService) Active(ctx context.Context) (models.DailyPrompt, error) {
	return s.store.ActivePrompt(ctx)
}

// Create stores a prompt. Unless Activate is false it becomes the active
// prompt and the previous one is deactivated.
func (s *PromptService) Create(ctx context.Context, createdBy string, in NewPrompt) (models.DailyPrompt, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" || in.Description == "" {
		return models.DailyPrompt{}, apperr.Validation("title and description are required")
	}
	if in.Type == "" {
		in.Type = models.PromptText
	}
	if !in.Type.Valid() {
		return models.DailyPrompt{}, apperr.Validation("unknown prompt type %q", in.Type)
	}
	if in.ActiveFrom != nil && in.ActiveUntil != nil && !in.ActiveUntil.After(*in.ActiveFrom) {
		return models.DailyPrompt{}, apperr.Validation("active_until must be after active_from")
	}

	p := models.DailyPrompt{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Text:        in.Description,
		Type:        in.Type,
		Date:        s.days.Today().Time(),
		Active:      in.Activate == nil || *in.Activate,
		ActiveFrom:  in.ActiveFrom,
		ActiveUntil: in.ActiveUntil,
	}
	if createdBy != "" {
		p.CreatedByUserID = &createdBy
		p.IsCommunityGenerated = true
	}
	if err := s.store.CreatePrompt(ctx, &p); err != nil {
		return models.DailyPrompt{}, err
	}
	s.logger.Info("prompt created", zap.String("prompt_id", p.ID), zap.Bool("active", p.Active), zap.Bool("community", p.IsCommunityGenerated))
	return p, nil
}

// Rotate generates a prompt with the LLM and makes it the active one.
func (s *PromptService) Rotate(ctx context.Context) (models.DailyPrompt, error) {
	if s.generator == nil {
		return models.DailyPrompt{}, apperr.Upstream("anthropic", errNoGenerator)
	}
	gen, err := s.generator.Generate(ctx)
	if err != nil {
		s.logger.Error("prompt generation failed", zap.Error(err))
		return models.DailyPrompt{}, err
	}
	return s.Create(ctx, "", NewPrompt{Title: gen.Title, Description: gen.Description, Type: models.PromptText})
}

func (s *PromptService) Deactivate(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Validation("prompt id must be a uuid")
	}
	if err := s.store.DeactivatePrompt(ctx, id); err != nil {
		return err
	}
	s.logger.Info("prompt deactivated", zap.String("prompt_id", id))
	return nil
}
