package stage

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// samplesIn returns the number of samples spanning ms milliseconds.
func samplesIn(ms float64) int {
	return int(ms * SampleRate / 1000)
}

// timeAxis returns sample times in milliseconds for n samples.
func timeAxis(n int) []float64 {
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(i) * 1000 / SampleRate
	}
	return t
}

// indexAxis returns 1..n.
func indexAxis(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i + 1)
	}
	return x
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(x, x) / float64(len(x)))
}

func rectify(x []float64) []float64 {
	r := make([]float64, len(x))
	for i, v := range x {
		r[i] = math.Abs(v)
	}
	return r
}

func peakToPeak(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Max(x) - floats.Min(x)
}

// Window is a latency range after the stimulus, in milliseconds.
type Window struct {
	Start, End float64
}

// measure returns the peak-to-peak amplitude of sweep inside w.
func (w Window) measure(sweep []float64) float64 {
	lo, hi := samplesIn(w.Start), samplesIn(w.End)
	if lo < 0 {
		lo = 0
	}
	if hi > len(sweep) {
		hi = len(sweep)
	}
	if lo >= hi {
		return 0
	}
	return peakToPeak(sweep[lo:hi])
}

// sweep collects a fixed number of samples following a stimulus.
type sweep struct {
	need int
	buf  []float64
}

func (s *sweep) arm(n int) {
	s.need = n
	s.buf = make([]float64, 0, n)
}

func (s *sweep) armed() bool { return s.need > 0 }

// feed appends samples from batch and returns the finished sweep once enough
// samples have arrived.
func (s *sweep) feed(batch []float64) ([]float64, bool) {
	if s.need == 0 {
		return nil, false
	}
	take := s.need - len(s.buf)
	if take > len(batch) {
		take = len(batch)
	}
	s.buf = append(s.buf, batch[:take]...)
	if len(s.buf) < s.need {
		return nil, false
	}
	done := s.buf
	s.need, s.buf = 0, nil
	return done, true
}

// clamp keeps a selector read inside n options.
func clamp(i, n int) int {
	if i < 0 || n == 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
