package world

import "fmt"

// Base-unit ratios. One tick is one in-world second.
const (
	TicksPerRound uint64 = 10
	TicksPerTurn  uint64 = 600
	TicksPerHour  uint64 = 3600
	TicksPerDay   uint64 = 86400
)

type Unit string

const (
	UnitRound Unit = "ROUND"
	UnitTurn  Unit = "TURN"
	UnitHour  Unit = "HOUR"
	UnitDay   Unit = "DAY"
)

// Clock is the monotonic base time counter. It only ever moves forward.
type Clock struct {
	tick uint64
}

func NewClock(start uint64) *Clock { return &Clock{tick: start} }

func (c *Clock) Now() uint64 { return c.tick }

// Advance moves the counter forward by `by` ticks and returns the new value.
func (c *Clock) Advance(by int64) (uint64, error) {
	if by <= 0 {
		return c.tick, fmt.Errorf("advance by %d: %w", by, ErrInvalidDuration)
	}
	c.tick += uint64(by)
	return c.tick, nil
}

// TicksPer resolves a unit to its fixed tick ratio.
func TicksPer(u Unit) (uint64, error) {
	switch u {
	case UnitRound:
		return TicksPerRound, nil
	case UnitTurn:
		return TicksPerTurn, nil
	case UnitHour:
		return TicksPerHour, nil
	case UnitDay:
		return TicksPerDay, nil
	default:
		return 0, fmt.Errorf("unit %q: %w", u, ErrNotFound)
	}
}

// ToUnit converts ticks to whole units plus a tick remainder. Integer
// arithmetic only; FromUnit(ToUnit(v)) reconstructs v exactly via the
// remainder.
func ToUnit(ticks uint64, u Unit) (count, rem uint64, err error) {
	per, err := TicksPer(u)
	if err != nil {
		return 0, 0, err
	}
	return ticks / per, ticks % per, nil
}

// FromUnit converts whole units to ticks.
func FromUnit(count uint64, u Unit) (uint64, error) {
	per, err := TicksPer(u)
	if err != nil {
		return 0, err
	}
	return count * per, nil
}

// TimeOfDay is a pure presentation breakdown of a clock value.
type TimeOfDay struct {
	Day    uint64 `json:"day"`
	Hour   uint64 `json:"hour"`
	Minute uint64 `json:"minute"`
	Second uint64 `json:"second"`
}

func BreakdownTick(tick uint64) TimeOfDay {
	return TimeOfDay{
		Day:    tick / TicksPerDay,
		Hour:   (tick % TicksPerDay) / TicksPerHour,
		Minute: (tick % TicksPerHour) / 60,
		Second: tick % 60,
	}
}
