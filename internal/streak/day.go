package streak

import "time"

const dateLayout = "2006-01-02"

// Day is a civil day counted from 1970-01-01, so consecutive days differ by one.
type Day int64

// DayKey maps an instant to its creation day under the policy location (UTC when nil).
func DayKey(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return DayFromTime(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// DayFromTime converts a stored DATE (midnight, any zone) back to a Day.
func DayFromTime(t time.Time) Day {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return Day(midnight.Unix() / 86400)
}

// ParseDay parses YYYY-MM-DD.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return 0, err
	}
	return DayFromTime(t), nil
}

// Time returns UTC midnight of the day.
func (d Day) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

func (d Day) String() string { return d.Time().Format(dateLayout) }

// Clock returns the authoritative server time.
type Clock func() time.Time

// Normalizer ties a clock to a day policy.
type Normalizer struct {
	Now      Clock
	Location *time.Location
}

func NewNormalizer(now Clock, loc *time.Location) Normalizer {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return Normalizer{Now: now, Location: loc}
}

// Today is the creation day of the current server time.
func (n Normalizer) Today() Day { return DayKey(n.Now(), n.Location) }
