package stage

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

type lifecycle int32

const (
	stateIdle lifecycle = iota
	stateActive
	stateFinalized
)

// Base holds the state every stage shares: metadata, subject, lifecycle, plot
// selectors and plot targets. Stage implementations embed it and call bind
// from their constructor.
type Base struct {
	info    Info
	signals *Signals
	self    Stage

	state   atomic.Int32
	subject atomic.Value // string

	// plotMu makes a selector change and its redraw one step.
	plotMu     sync.Mutex
	trialSel   atomic.Int64
	sessionSel atomic.Int64

	targetMu      sync.RWMutex
	trialTarget   PlotTarget
	sessionTarget PlotTarget
}

func (b *Base) bind(info Info, self Stage) {
	b.info = info
	b.self = self
	b.signals = NewSignals(info.Name)
	b.subject.Store("")
}

// Info returns the stage metadata.
func (b *Base) Info() Info { return b.info }

// Signals returns the stage's notification channel.
func (b *Base) Signals() *Signals { return b.signals }

// SubjectID returns the subject given to the last accepted Initialize.
func (b *Base) SubjectID() string { return b.subject.Load().(string) }

// SetPlotTargets binds the drawing surfaces. The stage does not own them.
func (b *Base) SetPlotTargets(trial, session PlotTarget) {
	b.targetMu.Lock()
	defer b.targetMu.Unlock()
	b.trialTarget = trial
	b.sessionTarget = session
}

func (b *Base) targets() (trial, session PlotTarget) {
	b.targetMu.RLock()
	defer b.targetMu.RUnlock()
	return b.trialTarget, b.sessionTarget
}

// TrialPlotSelector returns the index of the selected trial plot.
func (b *Base) TrialPlotSelector() int { return int(b.trialSel.Load()) }

// SessionPlotSelector returns the index of the selected session plot.
func (b *Base) SessionPlotSelector() int { return int(b.sessionSel.Load()) }

// SetTrialPlotSelector selects trial plot i and redraws it. An index outside
// TrialPlotOptions returns ErrSelectorRange and changes nothing.
func (b *Base) SetTrialPlotSelector(i int) error {
	b.plotMu.Lock()
	defer b.plotMu.Unlock()
	if n := len(b.self.TrialPlotOptions()); i < 0 || i >= n {
		return fmt.Errorf("%w: trial plot %d of %d", ErrSelectorRange, i, n)
	}
	b.trialSel.Store(int64(i))
	b.self.UpdateTrialPlot()
	return nil
}

// SetSessionPlotSelector selects session plot i and redraws it. An index
// outside SessionPlotOptions returns ErrSelectorRange and changes nothing.
func (b *Base) SetSessionPlotSelector(i int) error {
	b.plotMu.Lock()
	defer b.plotMu.Unlock()
	if n := len(b.self.SessionPlotOptions()); i < 0 || i >= n {
		return fmt.Errorf("%w: session plot %d of %d", ErrSelectorRange, i, n)
	}
	b.sessionSel.Store(int64(i))
	b.self.UpdateSessionPlot()
	return nil
}

// redraw refreshes both plots, serialized with selector changes.
func (b *Base) redraw() {
	b.plotMu.Lock()
	defer b.plotMu.Unlock()
	b.self.UpdateTrialPlot()
	b.self.UpdateSessionPlot()
}

// begin marks the stage active for subject, calling reset first if it is not
// nil. It fails, without calling reset, once finalized.
func (b *Base) begin(subjectID string, reset func()) (bool, string) {
	if lifecycle(b.state.Load()) == stateFinalized {
		return false, "This stage has already been finalized. Select it again to start a new run."
	}
	if reset != nil {
		reset()
	}
	b.subject.Store(subjectID)
	b.state.Store(int32(stateActive))
	return true, ""
}

// active reports whether Process and Input should run, logging when not.
func (b *Base) active(call string) bool {
	switch lifecycle(b.state.Load()) {
	case stateActive:
		return true
	case stateIdle:
		log.Printf("stage %s: %s before initialize ignored", b.info.Name, call)
	default:
		log.Printf("stage %s: %s after finalize ignored", b.info.Name, call)
	}
	return false
}

// finish moves the stage to its terminal state. It reports false if the stage
// was already finalized.
func (b *Base) finish() bool {
	return lifecycle(b.state.Swap(int32(stateFinalized))) != stateFinalized
}
