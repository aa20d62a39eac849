package capture

import "math"

// Interval returns the decimation step for sampling a sourceFPS stream at
// roughly targetFPS: max(1, floor(sourceFPS/targetFPS)).
func Interval(sourceFPS, targetFPS float64) int {
	if targetFPS <= 0 || sourceFPS <= 0 || math.IsNaN(sourceFPS) || math.IsInf(sourceFPS, 0) {
		return 1
	}
	n := int(math.Floor(sourceFPS / targetFPS))
	if n < 1 {
		return 1
	}
	return n
}

// Sampler decides which frame indices of a stream are kept.
type Sampler struct {
	interval int
	index    int
}

// NewSampler creates a Sampler for the given rates.
func NewSampler(sourceFPS, targetFPS float64) *Sampler {
	return &Sampler{interval: Interval(sourceFPS, targetFPS)}
}

// Next reports whether the next frame should be sampled, along with its
// zero-based index in the source stream.
func (s *Sampler) Next() (int, bool) {
	i := s.index
	s.index++
	return i, i%s.interval == 0
}

// Interval returns the decimation step.
func (s *Sampler) Interval() int {
	return s.interval
}
