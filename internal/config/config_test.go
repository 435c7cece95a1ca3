package config

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10, cfg.DBMaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.BalanceCacheTTL)
	assert.Equal(t, 2000, cfg.ContentMaxLength)
	assert.Equal(t, int64(100), cfg.RewardBase)
	assert.Equal(t, int64(10), cfg.RewardPerDayBonus)
	assert.Equal(t, int64(8453), cfg.ChainID)
	assert.Equal(t, "0 0 * * *", cfg.PromptCron)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, "claude-sonnet-4-5", cfg.AnthropicModel)
	assert.Empty(t, cfg.Admins())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9000")
	t.Setenv("REWARD_BASE", "50")
	t.Setenv("DAY_TIMEZONE", "Europe/Berlin")
	t.Setenv("LOG_DEV", "true")
	t.Setenv("ADMIN_SUBJECTS", " 42, ,1007 ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, int64(50), cfg.RewardBase)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
	assert.True(t, cfg.LogDev)
	assert.Equal(t, []string{"42", "1007"}, cfg.Admins())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			JWTSecret:         "x",
			DayTimezone:       "UTC",
			ContentMaxLength:  2000,
			RewardBase:        100,
			RewardPerDayBonus: 10,
			RateLimitRPS:      1,
			RateLimitBurst:    5,
		}
	}
	c := valid()
	require.NoError(t, c.Validate())

	cases := map[string]func(*Config){
		"missing secret":  func(c *Config) { c.JWTSecret = "" },
		"bad timezone":    func(c *Config) { c.DayTimezone = "Mars/Olympus" },
		"zero length":     func(c *Config) { c.ContentMaxLength = 0 },
		"negative reward": func(c *Config) { c.RewardBase = -1 },
		"zero rewards":    func(c *Config) { c.RewardBase, c.RewardPerDayBonus = 0, 0 },
		"short key":       func(c *Config) { c.ContentEncryptionKey = base64.StdEncoding.EncodeToString([]byte("short")) },
		"zero rate":       func(c *Config) { c.RateLimitRPS = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
