package world

import "math/rand"

// The random stream is stateless: every draw derives from (seed, tick, salt)
// through a splitmix-style hash, so a restored snapshot resumes the exact
// stream without persisting generator state.

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hashTick(seed int64, tick uint64, salt uint64) uint64 {
	v := uint64(seed) ^ (tick * 0x9e3779b97f4a7c15) ^ (salt * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// tickRand returns a generator seeded for one (tick, salt) draw site.
func tickRand(seed int64, tick uint64, salt uint64) *rand.Rand {
	return rand.New(rand.NewSource(int64(hashTick(seed, tick, salt))))
}

// entitySalt folds an entity id into a per-actor salt.
func entitySalt(id string) uint64 {
	var s uint64
	for _, c := range id {
		s = mix64(s + uint64(c))
	}
	return s
}

// Salts per draw site keep independent consumers off each other's streams.
const (
	saltCombat   uint64 = 1
	saltConflict uint64 = 2
	saltBehavior uint64 = 3
)
