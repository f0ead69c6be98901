package stage

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/txbdc/stimjim"
)

// SweepConfig sets how much EMG is captured after a stimulus and where the
// evoked responses are measured. Times are in milliseconds from the stimulus.
type SweepConfig struct {
	Length  float64
	MWave   Window
	HReflex Window
}

// DefaultSweepConfig returns windows suited to rat soleus recordings.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Length:  50,
		MWave:   Window{Start: 2, End: 5},
		HReflex: Window{Start: 6, End: 12},
	}
}

func (c SweepConfig) orDefault() SweepConfig {
	if c.Length <= 0 {
		return DefaultSweepConfig()
	}
	return c
}

// RecruitmentPoint is the response to one stimulus amplitude.
type RecruitmentPoint struct {
	AmplitudeMA float64
	MWave       float64
	HReflex     float64
}

// HMRatio returns HReflex/MWave, or 0 when there is no M-wave.
func (p RecruitmentPoint) HMRatio() float64 {
	if p.MWave == 0 {
		return 0
	}
	return p.HReflex / p.MWave
}

// RecruitmentCurve builds the M-wave and H-reflex recruitment curves. The
// operator enters a stimulus amplitude in milliamps; the stage delivers a
// monophasic pulse and measures both responses in the sweep that follows.
type RecruitmentCurve struct {
	Base

	stim Stimulator
	cfg  SweepConfig

	mu        sync.Mutex
	sweep     sweep
	pendingMA float64
	lastSweep []float64
	points    []RecruitmentPoint
}

var _ Stage = (*RecruitmentCurve)(nil)

// NewRecruitmentCurve returns an idle recruitment curve stage that stimulates
// through stim. A zero cfg uses DefaultSweepConfig.
func NewRecruitmentCurve(stim Stimulator, cfg SweepConfig) *RecruitmentCurve {
	s := &RecruitmentCurve{stim: stim, cfg: cfg.orDefault()}
	s.bind(Info{
		Name:        "M/H Recruitment Curve",
		Description: "Step the stimulus amplitude to measure M-wave and H-reflex recruitment.",
		Kind:        KindRecruitmentCurve,
	}, s)
	return s
}

func (s *RecruitmentCurve) Initialize(subjectID string) (bool, string) {
	if strings.TrimSpace(subjectID) == "" {
		return false, "Enter a subject ID before starting the recruitment curve."
	}
	if s.stim == nil || !s.stim.Connected() {
		return false, "The StimJim is not connected. Connect the stimulator and try again."
	}
	return s.begin(subjectID, func() {
		s.mu.Lock()
		s.sweep = sweep{}
		s.lastSweep, s.points = nil, nil
		s.mu.Unlock()
	})
}

func (s *RecruitmentCurve) Input(text string) {
	if !s.active("input") {
		return
	}
	ma, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || ma <= 0 {
		s.signals.Messagef("enter a positive stimulus amplitude in mA, got %q", text)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sweep.armed() {
		s.signals.Messagef("still recording the previous sweep; %.3f mA ignored", ma)
		return
	}
	train, err := stimjim.MonophasicPulse(ma)
	if err != nil {
		s.signals.Messagef("cannot stimulate at %.3f mA: %s", ma, err)
		return
	}
	if err := s.stim.Stimulate(train); err != nil {
		s.signals.Messagef("stimulation at %.3f mA failed: %s", ma, err)
		return
	}
	s.pendingMA = ma
	s.sweep.arm(samplesIn(s.cfg.Length))
	s.signals.Messagef("stimulating at %.3f mA", ma)
}

func (s *RecruitmentCurve) Process(batch []float64) {
	if !s.active("process") {
		return
	}
	s.mu.Lock()
	done, ok := s.sweep.feed(batch)
	if !ok {
		s.mu.Unlock()
		return
	}
	p := RecruitmentPoint{
		AmplitudeMA: s.pendingMA,
		MWave:       s.cfg.MWave.measure(done),
		HReflex:     s.cfg.HReflex.measure(done),
	}
	s.lastSweep = done
	s.points = append(s.points, p)
	s.mu.Unlock()

	s.signals.Messagef("%.3f mA: M-wave %.4f, H-reflex %.4f", p.AmplitudeMA, p.MWave, p.HReflex)
	s.redraw()
}

func (s *RecruitmentCurve) Finalize() {
	if !s.finish() {
		return
	}
	pts := s.Points()
	if len(pts) == 0 {
		s.signals.Messagef("recruitment curve finished with no sweeps")
		return
	}
	hmax := pts[0]
	for _, p := range pts[1:] {
		if p.HReflex > hmax.HReflex {
			hmax = p
		}
	}
	s.signals.Messagef("recruitment curve finished: %d sweeps, H-max %.4f at %.3f mA",
		len(pts), hmax.HReflex, hmax.AmplitudeMA)
}

// Points returns the recorded points ordered by stimulus amplitude.
func (s *RecruitmentCurve) Points() []RecruitmentPoint {
	s.mu.Lock()
	pts := append([]RecruitmentPoint(nil), s.points...)
	s.mu.Unlock()
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].AmplitudeMA < pts[j].AmplitudeMA })
	return pts
}

func (s *RecruitmentCurve) TrialPlotOptions() []string {
	return []string{"Sweep"}
}

func (s *RecruitmentCurve) SessionPlotOptions() []string {
	return []string{"M-wave", "H-reflex", "H/M ratio"}
}

func (s *RecruitmentCurve) UpdateTrialPlot() {
	target, _ := s.targets()
	if target == nil {
		return
	}
	s.mu.Lock()
	y := append([]float64(nil), s.lastSweep...)
	s.mu.Unlock()

	target.Clear()
	target.SetLabels("Sweep", "Time (ms)", "EMG")
	target.Plot(Series{Name: "Sweep", X: timeAxis(len(y)), Y: y})
}

func (s *RecruitmentCurve) UpdateSessionPlot() {
	_, target := s.targets()
	if target == nil {
		return
	}
	pts := s.Points()
	opts := s.SessionPlotOptions()
	name := opts[clamp(s.SessionPlotSelector(), len(opts))]

	x := make([]float64, len(pts))
	y := make([]float64, len(pts))
	for i, p := range pts {
		x[i] = p.AmplitudeMA
		switch name {
		case "M-wave":
			y[i] = p.MWave
		case "H-reflex":
			y[i] = p.HReflex
		default:
			y[i] = p.HMRatio()
		}
	}
	target.Clear()
	target.SetLabels(name, "Stimulus (mA)", name)
	target.Plot(Series{Name: name, X: x, Y: y})
}
