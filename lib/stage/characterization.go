package stage

import (
	"strings"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// Characterization records resting EMG for a subject and reports the RMS of
// each one-second window, giving the baseline later stages compare against.
type Characterization struct {
	Base

	mu        sync.Mutex
	pending   []float64
	lastRaw   []float64
	windowRMS []float64
}

var _ Stage = (*Characterization)(nil)

// NewCharacterization returns an idle EMG characterization stage.
func NewCharacterization() *Characterization {
	s := &Characterization{}
	s.bind(Info{
		Name:        "EMG Characterization",
		Description: "Record resting EMG to characterize the baseline signal.",
		Kind:        KindEMGCharacterization,
	}, s)
	return s
}

func (s *Characterization) Initialize(subjectID string) (bool, string) {
	if strings.TrimSpace(subjectID) == "" {
		return false, "Enter a subject ID before starting EMG characterization."
	}
	return s.begin(subjectID, func() {
		s.mu.Lock()
		s.pending, s.lastRaw, s.windowRMS = nil, nil, nil
		s.mu.Unlock()
	})
}

func (s *Characterization) Process(batch []float64) {
	if !s.active("process") {
		return
	}
	s.mu.Lock()
	s.pending = append(s.pending, batch...)
	var added []float64
	for len(s.pending) >= SampleRate {
		w := s.pending[:SampleRate]
		s.lastRaw = append([]float64(nil), w...)
		r := rms(w)
		s.windowRMS = append(s.windowRMS, r)
		added = append(added, r)
		s.pending = s.pending[SampleRate:]
	}
	n := len(s.windowRMS)
	s.mu.Unlock()

	if len(added) == 0 {
		return
	}
	for i, r := range added {
		s.signals.Messagef("second %d: RMS %.4f", n-len(added)+i+1, r)
	}
	s.redraw()
}

func (s *Characterization) Input(text string) {
	if !s.active("input") {
		return
	}
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "reset":
		s.mu.Lock()
		s.pending, s.lastRaw, s.windowRMS = nil, nil, nil
		s.mu.Unlock()
		s.signals.Messagef("characterization reset")
		s.redraw()
	default:
		s.signals.Messagef("unrecognized command %q (try \"reset\")", text)
	}
}

func (s *Characterization) Finalize() {
	if !s.finish() {
		return
	}
	s.mu.Lock()
	rmsCopy := append([]float64(nil), s.windowRMS...)
	s.pending = nil
	s.mu.Unlock()
	if len(rmsCopy) == 0 {
		s.signals.Messagef("characterization finished with no complete windows")
		return
	}
	mean, std := stat.MeanStdDev(rmsCopy, nil)
	if len(rmsCopy) == 1 {
		std = 0
	}
	s.signals.Messagef("characterization finished: %d s, baseline RMS %.4f +/- %.4f", len(rmsCopy), mean, std)
}

// BaselineRMS returns the mean RMS over all complete windows.
func (s *Characterization) BaselineRMS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.windowRMS) == 0 {
		return 0
	}
	return stat.Mean(s.windowRMS, nil)
}

func (s *Characterization) TrialPlotOptions() []string {
	return []string{"Raw EMG", "Rectified EMG"}
}

func (s *Characterization) SessionPlotOptions() []string {
	return []string{"RMS per second"}
}

func (s *Characterization) UpdateTrialPlot() {
	target, _ := s.targets()
	if target == nil {
		return
	}
	s.mu.Lock()
	raw := append([]float64(nil), s.lastRaw...)
	s.mu.Unlock()

	opts := s.TrialPlotOptions()
	name := opts[clamp(s.TrialPlotSelector(), len(opts))]
	y := raw
	if name == "Rectified EMG" {
		y = rectify(raw)
	}
	target.Clear()
	target.SetLabels(name, "Time (ms)", "EMG")
	target.Plot(Series{Name: name, X: timeAxis(len(y)), Y: y})
}

func (s *Characterization) UpdateSessionPlot() {
	_, target := s.targets()
	if target == nil {
		return
	}
	s.mu.Lock()
	y := append([]float64(nil), s.windowRMS...)
	s.mu.Unlock()

	target.Clear()
	target.SetLabels("RMS per second", "Second", "RMS")
	target.Plot(Series{Name: "RMS", X: indexAxis(len(y)), Y: y})
}
