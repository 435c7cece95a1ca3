package rewards

// Policy prices a qualifying creation from the streak it produced.
type Policy struct {
	Base        int64
	PerDayBonus int64
}

func DefaultPolicy() Policy { return Policy{Base: 100, PerDayBonus: 10} }

// Compute returns Base + streak*PerDayBonus. Negative streaks count as zero.
func (p Policy) Compute(streak int) int64 {
	if streak < 0 {
		streak = 0
	}
	return p.Base + int64(streak)*p.PerDayBonus
}
