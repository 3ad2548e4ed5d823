// Package sac implements sample consensus model fitting.
package sac

import (
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/seqsense/pcdcluster/mat"
)

type Sampler interface {
	Sample() int
}

type Model interface {
	NumRange() (min, max int)
	Fit([]int) (ModelCoefficients, bool)
}

type ModelCoefficients interface {
	Evaluate() int
	Inliers(float32) []int
	IsIn(mat.Vec3, float32) bool
}

// maxSampleRetries bounds redrawing of a degenerate sample in one
// iteration.
const maxSampleRetries = 16

type SAC struct {
	Sampler Sampler
	Model   Model

	// Workers is the number of goroutines evaluating hypotheses.
	// Values less than 2 evaluate sequentially.
	Workers int

	bestCoeff     ModelCoefficients
	bestIteration int
	bestScore     int
}

func New(s Sampler, m Model) *SAC {
	return &SAC{Sampler: s, Model: m}
}

type candidate struct {
	coeff     ModelCoefficients
	iteration int
	score     int
}

func (c candidate) betterThan(a candidate) bool {
	if a.coeff == nil {
		return c.coeff != nil
	}
	if c.coeff == nil {
		return false
	}
	if c.score != a.score {
		return c.score > a.score
	}
	return c.iteration < a.iteration
}

// Compute draws n hypotheses and keeps the one with the highest score.
// Samples are always drawn sequentially from the Sampler, so the result
// does not depend on Workers. It returns false if no sample could be fit,
// and an error if scoring a hypothesis failed.
func (s *SAC) Compute(n int) (bool, error) {
	num, _ := s.Model.NumRange()
	hypotheses := make([]ModelCoefficients, n)

	ids := make([]int, num)
	for i := 0; i < n; i++ {
		for r := 0; r < maxSampleRetries; r++ {
			s.sampleDistinct(ids)
			coeff, ok := s.Model.Fit(ids)
			if ok {
				hypotheses[i] = coeff
				break
			}
		}
	}

	workers := s.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	var best candidate
	if workers <= 1 {
		var err error
		if best, err = evaluateRange(hypotheses, 0, n); err != nil {
			return false, err
		}
	} else {
		results := make([]candidate, workers)
		chunk := (n + workers - 1) / workers
		var g errgroup.Group
		for w := 0; w < workers; w++ {
			w := w
			lo, hi := w*chunk, (w+1)*chunk
			if hi > n {
				hi = n
			}
			g.Go(func() error {
				c, err := evaluateRange(hypotheses, lo, hi)
				results[w] = c
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return false, err
		}
		for _, c := range results {
			if c.betterThan(best) {
				best = c
			}
		}
	}

	if best.coeff == nil {
		return false, nil
	}
	s.bestCoeff = best.coeff
	s.bestIteration = best.iteration
	s.bestScore = best.score
	return true, nil
}

// evaluateRange scores hypotheses[lo:hi]. A panic raised by a model while
// scoring is returned as an error.
func evaluateRange(hypotheses []ModelCoefficients, lo, hi int) (best candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			best, err = candidate{}, errors.Errorf("evaluating hypotheses [%d, %d): %v", lo, hi, r)
		}
	}()
	for i := lo; i < hi; i++ {
		if hypotheses[i] == nil {
			continue
		}
		c := candidate{
			coeff:     hypotheses[i],
			iteration: i,
			score:     hypotheses[i].Evaluate(),
		}
		if c.betterThan(best) {
			best = c
		}
	}
	return best, nil
}

func (s *SAC) sampleDistinct(ids []int) {
	for j := range ids {
		ids[j] = s.Sampler.Sample()
		for r := 0; r < maxSampleRetries && contains(ids[:j], ids[j]); r++ {
			ids[j] = s.Sampler.Sample()
		}
	}
}

func contains(ids []int, id int) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}

func (s *SAC) Coefficients() ModelCoefficients {
	return s.bestCoeff
}

// Iteration returns the iteration index of the selected hypothesis.
func (s *SAC) Iteration() int {
	return s.bestIteration
}

// Score returns the score of the selected hypothesis.
func (s *SAC) Score() int {
	return s.bestScore
}
