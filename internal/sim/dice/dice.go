// Package dice parses and rolls standard dice notation (1d6, 3d8+2, d20-1).
package dice

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

var pattern = regexp.MustCompile(`^(\d*)[dD](\d+)([+-]\d+)?$`)

// Spec is a parsed dice expression: Count dice of Sides sides plus Mod.
type Spec struct {
	Count int
	Sides int
	Mod   int
}

func Parse(notation string) (Spec, error) {
	m := pattern.FindStringSubmatch(strings.TrimSpace(notation))
	if m == nil {
		return Spec{}, fmt.Errorf("invalid dice notation %q", notation)
	}
	count := 1
	if m[1] != "" {
		count, _ = strconv.Atoi(m[1])
	}
	sides, _ := strconv.Atoi(m[2])
	if sides < 1 {
		return Spec{}, fmt.Errorf("invalid dice notation %q: die must have at least 1 side", notation)
	}
	mod := 0
	if m[3] != "" {
		mod, _ = strconv.Atoi(m[3])
	}
	return Spec{Count: count, Sides: sides, Mod: mod}, nil
}

// MustParse is for package-level constants known valid at compile time.
func MustParse(notation string) Spec {
	s, err := Parse(notation)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Spec) Roll(rnd *rand.Rand) int {
	total := s.Mod
	for i := 0; i < s.Count; i++ {
		total += rnd.Intn(s.Sides) + 1
	}
	return total
}

func (s Spec) Min() int { return s.Count + s.Mod }
func (s Spec) Max() int { return s.Count*s.Sides + s.Mod }

// Mid is the midpoint of the roll range, used to center a roll into a signed
// bounded factor.
func (s Spec) Mid() int { return (s.Min() + s.Max()) / 2 }

func (s Spec) String() string {
	out := fmt.Sprintf("%dd%d", s.Count, s.Sides)
	if s.Mod > 0 {
		out += fmt.Sprintf("+%d", s.Mod)
	} else if s.Mod < 0 {
		out += strconv.Itoa(s.Mod)
	}
	return out
}
