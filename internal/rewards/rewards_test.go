package rewards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestCompute(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		streak int
		want   int64
	}{
		{0, 100},
		{1, 110},
		{7, 170},
		{30, 400},
		{-3, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Compute(tt.streak), "streak %d", tt.streak)
	}
}

func TestCompute_CustomPolicy(t *testing.T) {
	p := Policy{Base: 50, PerDayBonus: 5}
	assert.Equal(t, int64(75), p.Compute(5))
}

func TestProperty_Compute_MonotonicAndDeterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := Policy{
			Base:        rapid.Int64Range(0, 1000).Draw(rt, "base"),
			PerDayBonus: rapid.Int64Range(0, 100).Draw(rt, "bonus"),
		}
		s := rapid.IntRange(0, 10000).Draw(rt, "streak")

		if p.Compute(s) != p.Compute(s) {
			rt.Fatalf("Compute is not deterministic")
		}
		if p.Compute(s+1) < p.Compute(s) {
			rt.Fatalf("reward decreased from streak %d to %d", s, s+1)
		}
		if p.Compute(s) < p.Base {
			rt.Fatalf("reward below base")
		}
	})
}
