package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailymint/internal/models"
)

type fakeRotator struct {
	calls int
	err   error
}

func (f *fakeRotator) Rotate(context.Context) (models.DailyPrompt, error) {
	f.calls++
	if f.err != nil {
		return models.DailyPrompt{}, f.err
	}
	return models.DailyPrompt{ID: "p1", Title: "t"}, nil
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New("every day please", nil, &fakeRotator{}, nil)
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	r := &fakeRotator{}
	s, err := New("0 0 * * *", nil, r, nil)
	require.NoError(t, err)

	s.RunOnce()
	assert.Equal(t, 1, r.calls)

	r.err = errors.New("upstream down")
	s.RunOnce()
	assert.Equal(t, 2, r.calls)
}

func TestStartStop(t *testing.T) {
	s, err := New("@every 1h", nil, &fakeRotator{}, nil)
	require.NoError(t, err)
	s.Start()
	s.Stop(context.Background())
}
