package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDayKey_UTCBoundaries(t *testing.T) {
	d1 := DayKey(time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC), nil)
	d2 := DayKey(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), nil)
	assert.Equal(t, d1+1, d2)
	assert.Equal(t, "2024-03-10", d1.String())
	assert.Equal(t, "2024-03-11", d2.String())
}

func TestDayKey_PolicyLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 02:00 UTC on the 11th is still the 10th in New York.
	instant := time.Date(2024, 3, 11, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-11", DayKey(instant, time.UTC).String())
	assert.Equal(t, "2024-03-10", DayKey(instant, ny).String())
}

func TestDayKey_IgnoresInputZone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	instant := time.Date(2024, 1, 1, 8, 0, 0, 0, tokyo) // 2023-12-31 23:00 UTC
	assert.Equal(t, "2023-12-31", DayKey(instant, nil).String())
}

func TestParseDayRoundTrip(t *testing.T) {
	d, err := ParseDay("2025-02-28")
	require.NoError(t, err)
	assert.Equal(t, "2025-02-28", d.String())
	assert.Equal(t, "2025-03-01", (d + 1).String())

	_, err = ParseDay("28/02/2025")
	assert.Error(t, err)
}

func TestDayFromTime_StoredDate(t *testing.T) {
	d, err := ParseDay("2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, d, DayFromTime(d.Time()))
}

func TestNormalizerToday(t *testing.T) {
	fixed := time.Date(2024, 5, 5, 12, 0, 0, 0, time.UTC)
	n := NewNormalizer(func() time.Time { return fixed }, nil)
	assert.Equal(t, "2024-05-05", n.Today().String())
	assert.Equal(t, time.UTC, n.Location)
}

func TestProperty_DayKey_Monotonic(t *testing.T) {
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.Int64Range(0, 40*365*86400).Draw(rt, "a")
		b := rapid.Int64Range(0, 40*365*86400).Draw(rt, "b")
		if a > b {
			a, b = b, a
		}
		t1 := base.Add(time.Duration(a) * time.Second)
		t2 := base.Add(time.Duration(b) * time.Second)
		if DayKey(t1, nil) > DayKey(t2, nil) {
			rt.Fatalf("DayKey(%v) > DayKey(%v)", t1, t2)
		}
	})
}
