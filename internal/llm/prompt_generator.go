// Package llm generates daily writing prompts with the Anthropic Messages API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"dailymint/internal/apperr"
	"dailymint/internal/breaker"
)

const (
	DefaultBaseURL = "https://api.anthropic.com/v1/messages"
	DefaultModel   = "claude-sonnet-4-5"
	apiVersion     = "2023-06-01"
	provider       = "anthropic"
)

const promptInstruction = `You are a creative writing prompt generator. Generate a daily writing prompt that is:
1. Engaging and thought-provoking
2. Open-ended enough for personal interpretation
3. Suitable for a 2-3 minute response
4. Focused on personal reflection or creative expression

Format your response as JSON with the following structure:
{
  "title": "A catchy, engaging title",
  "description": "The prompt itself, 1-2 sentences"
}

Keep the tone warm and encouraging.`

type GeneratedPrompt struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PromptGenerator produces a new daily prompt.
type PromptGenerator interface {
	Generate(ctx context.Context) (GeneratedPrompt, error)
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type AnthropicGenerator struct {
	cfg        Config
	httpClient *http.Client
	breakers   *breaker.Manager
	logger     *zap.Logger
}

func NewAnthropicGenerator(cfg Config, breakers *breaker.Manager, logger *zap.Logger) *AnthropicGenerator {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if breakers == nil {
		breakers = breaker.NewManager(breaker.DefaultConfig(), logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnthropicGenerator{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breakers:   breakers,
		logger:     logger.With(zap.String("component", "llm")),
	}
}

// Generate asks the model for one prompt. Failures are returned, not retried.
func (g *AnthropicGenerator) Generate(ctx context.Context) (GeneratedPrompt, error) {
	return breaker.Do(ctx, g.breakers, provider, g.generate)
}

func (g *AnthropicGenerator) generate(ctx context.Context) (GeneratedPrompt, error) {
	reqBody, err := json.Marshal(map[string]any{
		"model":       g.cfg.Model,
		"max_tokens":  500,
		"temperature": 0.7,
		"messages": []map[string]string{
			{"role": "user", "content": promptInstruction},
		},
	})
	if err != nil {
		return GeneratedPrompt{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return GeneratedPrompt{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", g.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return GeneratedPrompt{}, apperr.Upstream(provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return GeneratedPrompt{}, apperr.Upstream(provider, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		g.logger.Error("prompt generation failed", zap.Int("status", resp.StatusCode), zap.String("body", truncate(string(body), 512)))
		return GeneratedPrompt{}, apperr.Upstream(provider, fmt.Errorf("status %d", resp.StatusCode))
	}

	text := gjson.GetBytes(body, "content.0.text").String()
	p, err := ParseGenerated(text)
	if err != nil {
		return GeneratedPrompt{}, apperr.Upstream(provider, err)
	}
	return p, nil
}

// ParseGenerated extracts {title, description} from the model output, which
// may wrap the JSON object in prose or a code fence.
func ParseGenerated(text string) (GeneratedPrompt, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return GeneratedPrompt{}, errors.New("no JSON object in model output")
	}
	obj := text[start : end+1]
	if !gjson.Valid(obj) {
		return GeneratedPrompt{}, errors.New("malformed JSON in model output")
	}
	p := GeneratedPrompt{
		Title:       strings.TrimSpace(gjson.Get(obj, "title").String()),
		Description: strings.TrimSpace(gjson.Get(obj, "description").String()),
	}
	if p.Title == "" || p.Description == "" {
		return GeneratedPrompt{}, errors.New("model output misses title or description")
	}
	return p, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...[truncated]"
}
