package stage

// Nop is a stage that accepts every subject and does nothing. It stands in for
// phases that have no logic of their own.
type Nop struct {
	Base
}

// NewNop returns a Nop stage with the given metadata.
func NewNop(info Info) *Nop {
	s := &Nop{}
	s.bind(info, s)
	return s
}

func (s *Nop) Initialize(subjectID string) (bool, string) { return s.begin(subjectID, nil) }
func (s *Nop) Process([]float64)                          {}
func (s *Nop) Input(string)                               {}
func (s *Nop) Finalize()                                  { s.finish() }
func (s *Nop) TrialPlotOptions() []string                 { return nil }
func (s *Nop) SessionPlotOptions() []string               { return nil }
func (s *Nop) UpdateTrialPlot()                           {}
func (s *Nop) UpdateSessionPlot()                         {}
