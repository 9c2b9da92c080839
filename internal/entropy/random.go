// Package entropy provides the deterministic random source used by the
// simulation and a crypto-backed seed for worlds started without one.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	mrand "math/rand"
	"time"
)

// Initial xorshift128 state. Seeds are mixed into these words.
const (
	stateX uint32 = 123456789
	stateY uint32 = 362436069
	stateZ uint32 = 521288629
	stateW uint32 = 88675123
)

// XorShift is a xorshift128 generator. It implements rand.Source64 so it
// can back a *rand.Rand.
type XorShift struct {
	x, y, z, w uint32
}

var _ mrand.Source64 = (*XorShift)(nil)

// NewXorShift returns a generator seeded with seed.
func NewXorShift(seed int64) *XorShift {
	s := &XorShift{}
	s.Seed(seed)
	return s
}

// New returns a *rand.Rand drawing from a XorShift seeded with seed.
func New(seed int64) *mrand.Rand {
	return mrand.New(NewXorShift(seed))
}

// Seed resets the generator state from seed.
func (s *XorShift) Seed(seed int64) {
	mix := splitmix64(uint64(seed))
	s.x = stateX ^ uint32(mix)
	s.y = stateY ^ uint32(mix>>32)
	mix = splitmix64(mix)
	s.z = stateZ ^ uint32(mix)
	s.w = stateW ^ uint32(mix>>32)
	if s.x|s.y|s.z|s.w == 0 {
		s.w = stateW
	}
}

// Uint32 advances the generator and returns 32 random bits.
func (s *XorShift) Uint32() uint32 {
	t := s.x ^ (s.x << 11)
	s.x, s.y, s.z = s.y, s.z, s.w
	s.w = (s.w ^ (s.w >> 19)) ^ (t ^ (t >> 8))
	return s.w
}

// Uint64 returns 64 random bits.
func (s *XorShift) Uint64() uint64 {
	return uint64(s.Uint32())<<32 | uint64(s.Uint32())
}

// Int63 returns a non-negative 63-bit integer.
func (s *XorShift) Int63() int64 {
	return int64(s.Uint64() >> 1)
}

// Float64 returns a value in [0, 1).
func (s *XorShift) Float64() float64 {
	return float64(s.Uint64()>>11) / float64(1<<53)
}

func splitmix64(v uint64) uint64 {
	v += 0x9e3779b97f4a7c15
	v = (v ^ (v >> 30)) * 0xbf58476d1ce4e5b9
	v = (v ^ (v >> 27)) * 0x94d049bb133111eb
	return v ^ (v >> 31)
}

// RandomSeed returns a non-zero seed from crypto/rand. Falls back to the
// wall clock if the system source fails.
func RandomSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		slog.Debug("crypto seed failed, using clock", "error", err)
		return time.Now().UnixNano() | 1
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}
