package stage

import (
	"strconv"
	"strings"
	"sync"

	"github.com/txbdc/stimjim"
)

// ExperimentConfig configures the conditioning stage.
type ExperimentConfig struct {
	Sweep SweepConfig

	// TestAmplitudeMA is the monophasic pulse that evokes the H-reflex.
	TestAmplitudeMA float64

	// Criterion is the H-reflex amplitude a trial must reach to be rewarded
	// with VNS. Zero means the subject has not been calibrated.
	Criterion float64
}

// Experiment runs H-reflex conditioning trials. Each trial evokes an H-reflex
// with a test pulse; when the reflex meets the criterion the stage pairs it
// with a standard VNS train.
type Experiment struct {
	Base

	stim Stimulator

	mu        sync.Mutex
	cfg       ExperimentConfig
	sweep     sweep
	lastSweep []float64
	hAmps     []float64
	successes []bool
}

var _ Stage = (*Experiment)(nil)

// NewExperiment returns an idle conditioning stage that stimulates through
// stim.
func NewExperiment(stim Stimulator, cfg ExperimentConfig) *Experiment {
	cfg.Sweep = cfg.Sweep.orDefault()
	if cfg.TestAmplitudeMA <= 0 {
		cfg.TestAmplitudeMA = 1.0
	}
	s := &Experiment{stim: stim, cfg: cfg}
	s.bind(Info{
		Name:        "H-Reflex Conditioning",
		Description: "Pair H-reflexes that meet the criterion with vagus nerve stimulation.",
		Kind:        KindExperiment,
	}, s)
	return s
}

// SetCriterion sets the H-reflex amplitude that earns VNS. Non-positive
// values are ignored.
func (s *Experiment) SetCriterion(v float64) {
	if v <= 0 {
		return
	}
	s.mu.Lock()
	s.cfg.Criterion = v
	s.mu.Unlock()
}

// Criterion returns the current H-reflex criterion.
func (s *Experiment) Criterion() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Criterion
}

func (s *Experiment) Initialize(subjectID string) (bool, string) {
	if strings.TrimSpace(subjectID) == "" {
		return false, "Enter a subject ID before starting the experiment."
	}
	if s.stim == nil || !s.stim.Connected() {
		return false, "The StimJim is not connected. Connect the stimulator and try again."
	}
	if s.Criterion() <= 0 {
		return false, "No H-reflex criterion has been set. Run the recruitment curve and set a criterion first."
	}
	return s.begin(subjectID, func() {
		s.mu.Lock()
		s.sweep = sweep{}
		s.lastSweep, s.hAmps, s.successes = nil, nil, nil
		s.mu.Unlock()
	})
}

func (s *Experiment) Input(text string) {
	if !s.active("input") {
		return
	}
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "trial":
		s.startTrial()
	case "criterion":
		if len(fields) != 2 {
			s.signals.Messagef("usage: criterion <amplitude>")
			return
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || v <= 0 {
			s.signals.Messagef("criterion must be a positive number, got %q", fields[1])
			return
		}
		s.SetCriterion(v)
		s.signals.Messagef("criterion set to %.4f", v)
		s.redraw()
	default:
		s.signals.Messagef("unrecognized command %q (try \"trial\" or \"criterion <amplitude>\")", text)
	}
}

func (s *Experiment) startTrial() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sweep.armed() {
		s.signals.Messagef("trial %d still recording", len(s.hAmps)+1)
		return
	}
	train, err := stimjim.MonophasicPulse(s.cfg.TestAmplitudeMA)
	if err != nil {
		s.signals.Messagef("cannot build test pulse: %s", err)
		return
	}
	if err := s.stim.Stimulate(train); err != nil {
		s.signals.Messagef("test pulse failed: %s", err)
		return
	}
	s.sweep.arm(samplesIn(s.cfg.Sweep.Length))
}

func (s *Experiment) Process(batch []float64) {
	if !s.active("process") {
		return
	}
	s.mu.Lock()
	done, ok := s.sweep.feed(batch)
	if !ok {
		s.mu.Unlock()
		return
	}
	h := s.cfg.Sweep.HReflex.measure(done)
	criterion := s.cfg.Criterion
	success := h >= criterion
	s.lastSweep = done
	s.hAmps = append(s.hAmps, h)
	s.successes = append(s.successes, success)
	n := len(s.hAmps)
	s.mu.Unlock()

	if success {
		if err := s.deliverVNS(); err != nil {
			s.signals.Messagef("trial %d: H-reflex %.4f met criterion %.4f, VNS failed: %s", n, h, criterion, err)
		} else {
			s.signals.Messagef("trial %d: H-reflex %.4f met criterion %.4f, VNS delivered", n, h, criterion)
		}
	} else {
		s.signals.Messagef("trial %d: H-reflex %.4f below criterion %.4f", n, h, criterion)
	}
	s.redraw()
}

func (s *Experiment) deliverVNS() error {
	train, err := stimjim.StandardVNS()
	if err != nil {
		return err
	}
	return s.stim.Stimulate(train)
}

func (s *Experiment) Finalize() {
	if !s.finish() {
		return
	}
	s.mu.Lock()
	n, hits := len(s.successes), 0
	for _, ok := range s.successes {
		if ok {
			hits++
		}
	}
	s.mu.Unlock()
	if n == 0 {
		s.signals.Messagef("experiment finished with no trials")
		return
	}
	s.signals.Messagef("experiment finished: %d of %d trials met criterion (%.1f%%)",
		hits, n, 100*float64(hits)/float64(n))
}

func (s *Experiment) TrialPlotOptions() []string {
	return []string{"Sweep"}
}

func (s *Experiment) SessionPlotOptions() []string {
	return []string{"H-reflex amplitude", "Success rate"}
}

func (s *Experiment) UpdateTrialPlot() {
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

func (s *Experiment) UpdateSessionPlot() {
	_, target := s.targets()
	if target == nil {
		return
	}
	s.mu.Lock()
	h := append([]float64(nil), s.hAmps...)
	succ := append([]bool(nil), s.successes...)
	criterion := s.cfg.Criterion
	s.mu.Unlock()

	opts := s.SessionPlotOptions()
	name := opts[clamp(s.SessionPlotSelector(), len(opts))]
	x := indexAxis(len(h))
	target.Clear()
	switch name {
	case "Success rate":
		rate := make([]float64, len(succ))
		hits := 0
		for i, ok := range succ {
			if ok {
				hits++
			}
			rate[i] = 100 * float64(hits) / float64(i+1)
		}
		target.SetLabels(name, "Trial", "Success (%)")
		target.Plot(Series{Name: name, X: x, Y: rate})
	default:
		line := make([]float64, len(h))
		for i := range line {
			line[i] = criterion
		}
		target.SetLabels(name, "Trial", "H-reflex")
		target.Plot(Series{Name: name, X: x, Y: h})
		target.Plot(Series{Name: "Criterion", X: x, Y: line})
	}
}
