// Package config loads service settings from the environment.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	Port            string        `env:"PORT,default=8080"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	DBMaxOpenConns  int           `env:"DB_MAX_OPEN_CONNS,default=10"`
	RedisURL        string        `env:"REDIS_URL"`
	BalanceCacheTTL time.Duration `env:"BALANCE_CACHE_TTL,default=5m"`

	JWTSecret  string `env:"AUTH_JWT_SECRET"`
	AuthDomain string `env:"AUTH_DOMAIN"`
	AuthIssuer string `env:"AUTH_ISSUER"`

	// AdminSubjects is a comma separated list of identity subjects allowed to manage prompts.
	AdminSubjects string `env:"ADMIN_SUBJECTS"`

	DayTimezone          string `env:"DAY_TIMEZONE,default=UTC"`
	ContentMaxLength     int    `env:"CONTENT_MAX_LENGTH,default=2000"`
	ContentEncryptionKey string `env:"CONTENT_ENCRYPTION_KEY"`
	RewardBase           int64  `env:"REWARD_BASE,default=100"`
	RewardPerDayBonus    int64  `env:"REWARD_PER_DAY_BONUS,default=10"`

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `env:"ANTHROPIC_MODEL,default=claude-sonnet-4-5"`
	PromptCron      string `env:"PROMPT_CRON,default=0 0 * * *"`

	CoinAPIURL    string `env:"COIN_API_URL"`
	CoinAPIKey    string `env:"COIN_API_KEY"`
	ChainRPCURL   string `env:"CHAIN_RPC_URL"`
	ChainID       int64  `env:"CHAIN_ID,default=8453"`
	PayoutAddress string `env:"PAYOUT_ADDRESS"`
	PublicURL     string `env:"PUBLIC_URL,default=http://localhost:8080"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS,default=1"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=5"`

	LogDev   bool   `env:"LOG_DEV,default=false"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// Load reads .env when present, then decodes the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	if _, err := time.LoadLocation(c.DayTimezone); err != nil {
		return fmt.Errorf("DAY_TIMEZONE: %w", err)
	}
	if c.ContentMaxLength <= 0 {
		return errors.New("CONTENT_MAX_LENGTH must be positive")
	}
	if c.RewardBase < 0 || c.RewardPerDayBonus < 0 || c.RewardBase+c.RewardPerDayBonus == 0 {
		return errors.New("REWARD_BASE and REWARD_PER_DAY_BONUS must be non-negative and not both zero")
	}
	if c.ContentEncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(c.ContentEncryptionKey)
		if err != nil || len(key) != 32 {
			return errors.New("CONTENT_ENCRYPTION_KEY must be 32 base64-encoded bytes")
		}
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("rate limit settings must be positive")
	}
	return nil
}

// Location is the day policy time zone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Admins returns the subjects listed in ADMIN_SUBJECTS.
func (c *Config) Admins() []string {
	var out []string
	for _, s := range strings.Split(c.AdminSubjects, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
