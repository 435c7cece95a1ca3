// Package breaker guards calls to external providers with circuit breakers.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"dailymint/internal/apperr"
)

type Config struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

func DefaultConfig() Config {
	return Config{
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Manager keeps one breaker per provider.
type Manager struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
	cfg      Config
	logger   *zap.Logger
}

func NewManager(cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{breakers: make(map[string]*gobreaker.CircuitBreaker), cfg: cfg, logger: logger}
}

func (m *Manager) get(provider string) *gobreaker.CircuitBreaker {
	m.mu.RLock()
	cb, ok := m.breakers[provider]
	m.mu.RUnlock()
	if ok {
		return cb
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cb, ok = m.breakers[provider]; ok {
		return cb
	}
	cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider,
		MaxRequests: m.cfg.MaxRequests,
		Interval:    m.cfg.Interval,
		Timeout:     m.cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= m.cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.logger.Warn("circuit breaker state changed",
				zap.String("provider", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			// only provider failures count against the breaker
			var gone callerGone
			if errors.As(err, &gone) {
				return true
			}
			return err == nil || !errors.Is(err, apperr.ErrUpstream)
		},
	})
	m.breakers[provider] = cb
	return cb
}

// callerGone marks a failure caused by the caller's context ending, which
// says nothing about the provider.
type callerGone struct{ err error }

func (c callerGone) Error() string { return c.err.Error() }
func (c callerGone) Unwrap() error { return c.err }

// Do runs fn under the provider's breaker. An open breaker yields an upstream error.
func Do[T any](ctx context.Context, m *Manager, provider string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	out, err := m.get(provider).Execute(func() (interface{}, error) {
		if err := ctx.Err(); err != nil {
			return nil, callerGone{err}
		}
		v, err := fn(ctx)
		if err != nil && ctx.Err() != nil {
			return nil, callerGone{err}
		}
		return v, err
	})
	if err != nil {
		var gone callerGone
		if errors.As(err, &gone) {
			return zero, gone.err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, apperr.Upstream(provider, err)
		}
		return zero, err
	}
	return out.(T), nil
}

// State reports the provider's breaker state.
func (m *Manager) State(provider string) string {
	return m.get(provider).State().String()
}
