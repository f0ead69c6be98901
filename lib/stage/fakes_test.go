package stage

import (
	"sync"

	"github.com/txbdc/stimjim"
)

type fakeStim struct {
	mu        sync.Mutex
	connected bool
	err       error
	trains    []*stimjim.PulseTrain
}

func (f *fakeStim) Connected() bool { return f.connected }

func (f *fakeStim) Stimulate(train *stimjim.PulseTrain) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.trains = append(f.trains, train)
	return nil
}

func (f *fakeStim) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var cmds []string
	for _, t := range f.trains {
		cmds = append(cmds, t.String())
	}
	return cmds
}

type recordingTarget struct {
	mu     sync.Mutex
	clears int
	title  string
	series []Series
}

func (r *recordingTarget) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clears++
	r.series = nil
}

func (r *recordingTarget) SetLabels(title, _, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.title = title
}

func (r *recordingTarget) Plot(s Series) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.series = append(r.series, s)
}

// drain returns the messages waiting on ch.
func drain(ch <-chan Message) []string {
	var out []string
	for {
		select {
		case m := <-ch:
			out = append(out, m.Text())
		default:
			return out
		}
	}
}

// evokedSweep returns a sweep of n samples with the given peak-to-peak
// responses inside the default M-wave and H-reflex windows.
func evokedSweep(n int, m, h float64) []float64 {
	x := make([]float64, n)
	// M-wave window 2-5 ms is samples 10-25.
	x[12], x[13] = m/2, -m/2
	// H-reflex window 6-12 ms is samples 30-60.
	x[40], x[41] = h/2, -h/2
	return x
}
