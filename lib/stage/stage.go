// Package stage defines the phases of an H-reflex conditioning session. A
// stage is initialized for a subject, fed EMG sample batches and operator
// input until it is finalized, and reports to observers through its Signals.
package stage

import (
	"errors"
	"fmt"

	"github.com/txbdc/stimjim"
)

// SampleRate is the EMG acquisition rate in samples per second.
const SampleRate = 5000

// Kind is the category of a stage, used by selection logic outside the stage.
type Kind int

// Stage kinds.
const (
	KindEMGCharacterization Kind = iota
	KindRecruitmentCurve
	KindExperiment
)

var kindDesc = map[Kind]string{
	KindEMGCharacterization: "EMG characterization",
	KindRecruitmentCurve:    "recruitment curve",
	KindExperiment:          "experiment",
}

func (k Kind) String() string {
	if s, ok := kindDesc[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Info is the descriptive metadata of a stage.
type Info struct {
	Name        string
	Description string
	Kind        Kind
}

// ErrSelectorRange is returned when a plot selector is set to an index outside
// the stage's plot options. The selection is left unchanged.
var ErrSelectorRange = errors.New("plot selector out of range")

// Series is one named line on a plot.
type Series struct {
	Name string
	X, Y []float64
}

// PlotTarget is a drawing surface owned by the UI.
type PlotTarget interface {
	Clear()
	SetLabels(title, x, y string)
	Plot(s Series)
}

// Stimulator delivers pulse trains without blocking the caller.
type Stimulator interface {
	Connected() bool
	Stimulate(train *stimjim.PulseTrain) error
}

// Stage is one phase of an experiment session.
//
// Initialize reports whether the stage can run; when it cannot, the message
// tells the operator what to fix. Once accepted, Process and Input may be
// called in any order until Finalize, after which the stage ignores further
// calls. Process receives batches in acquisition order and must return quickly.
//
// Setting a plot selector redraws the matching plot on the bound target.
type Stage interface {
	Info() Info
	Signals() *Signals
	SubjectID() string

	Initialize(subjectID string) (ok bool, msg string)
	Process(batch []float64)
	Input(text string)
	Finalize()

	TrialPlotOptions() []string
	SessionPlotOptions() []string
	UpdateTrialPlot()
	UpdateSessionPlot()

	SetPlotTargets(trial, session PlotTarget)
	TrialPlotSelector() int
	SessionPlotSelector() int
	SetTrialPlotSelector(i int) error
	SetSessionPlotSelector(i int) error
}
