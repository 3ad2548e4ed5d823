package sac

import (
	"math/rand"
)

// NewRandomSampler returns a uniform sampler over [0, n) drawing from rnd.
func NewRandomSampler(rnd *rand.Rand, n int) Sampler {
	if n < 0x8000000 {
		return &randomSampler31{rnd: rnd, n: int32(n)}
	}
	return &randomSampler63{rnd: rnd, n: int64(n)}
}

type randomSampler31 struct {
	rnd *rand.Rand
	n   int32
}

func (s *randomSampler31) Sample() int {
	return int(s.rnd.Int31n(s.n))
}

type randomSampler63 struct {
	rnd *rand.Rand
	n   int64
}

func (s *randomSampler63) Sample() int {
	return int(s.rnd.Int63n(s.n))
}
