// Package mcopt holds the per-repetition optimization state the MC Core
// mutates one step at a time: the current model intensity and linear
// alignment, trial scratch for one candidate step, and the counters that
// drive the termination condition.
package mcopt

import (
	"github.com/mcsas3/mcsas3-go/mcerr"
	"github.com/mcsas3/mcsas3-go/store"
)

// Opt is the optimization state for one repetition.
type Opt struct {
	ModelI []float64
	X0     [2]float64
	Gof    float64

	// TestModelI, TestX0, TestModelV are scratch for a trial step: the
	// candidate model intensity, its OSB alignment, and the picked
	// contribution's trial volume. They are only meaningful between a
	// step's trial and its accept/reject.
	TestModelI []float64
	TestX0     [2]float64
	TestModelV float64

	Step     int
	Accepted int

	MaxIter   int
	MaxAccept int
	ConvCrit  float64

	Repetition int
}

// New builds a fresh Opt with the given termination targets; ModelI/X0/Gof
// are populated separately by the MC Core's initialization step.
func New(maxIter, maxAccept int, convCrit float64, repetition int) (*Opt, error) {
	if maxIter < 1 {
		return nil, mcerr.Newf(mcerr.ConfigInvalid, "mcopt: maxIter must be >= 1, got %d", maxIter)
	}
	if maxAccept < 1 {
		return nil, mcerr.Newf(mcerr.ConfigInvalid, "mcopt: maxAccept must be >= 1, got %d", maxAccept)
	}
	if convCrit <= 0 {
		return nil, mcerr.Newf(mcerr.ConfigInvalid, "mcopt: convCrit must be > 0, got %g", convCrit)
	}
	return &Opt{
		MaxIter:    maxIter,
		MaxAccept:  maxAccept,
		ConvCrit:   convCrit,
		Repetition: repetition,
	}, nil
}

// Done reports whether the termination condition of §4.3 holds: loop while
// accepted < maxAccept ∧ step < maxIter ∧ gof > convCrit.
func (o *Opt) Done() bool {
	return !(o.Accepted < o.MaxAccept && o.Step < o.MaxIter && o.Gof > o.ConvCrit)
}

// Accept commits a trial step: modelI and x0 move to the trial values,
// gof moves to newGof, and accepted increments. Step is advanced by the
// caller, always, whether or not the trial was accepted.
func (o *Opt) Accept(newGof float64) {
	o.ModelI = o.TestModelI
	o.X0 = o.TestX0
	o.Gof = newGof
	o.Accepted++
}

// Snapshot writes the optimization state under path in s.
func (o *Opt) Snapshot(s store.Store, path string) error {
	if err := s.PutArray(path, "modelI", o.ModelI); err != nil {
		return err
	}
	if err := s.PutScalar(path, "scaling", o.X0[0]); err != nil {
		return err
	}
	if err := s.PutScalar(path, "background", o.X0[1]); err != nil {
		return err
	}
	if err := s.PutScalar(path, "gof", o.Gof); err != nil {
		return err
	}
	if err := s.PutScalar(path, "step", float64(o.Step)); err != nil {
		return err
	}
	if err := s.PutScalar(path, "accepted", float64(o.Accepted)); err != nil {
		return err
	}
	if err := s.PutScalar(path, "maxIter", float64(o.MaxIter)); err != nil {
		return err
	}
	if err := s.PutScalar(path, "maxAccept", float64(o.MaxAccept)); err != nil {
		return err
	}
	return s.PutScalar(path, "convCrit", o.ConvCrit)
}

// Restore rebuilds an Opt's persisted fields from path. Callers recompute
// ModelI/X0/Gof independently and compare against the restored values as
// the reload consistency check (§4.4); Restore itself does not re-derive
// anything.
func Restore(s store.Store, path string, repetition int) (*Opt, error) {
	modelI, err := s.GetArray(path, "modelI")
	if err != nil {
		return nil, err
	}
	scaling, err := s.GetScalar(path, "scaling")
	if err != nil {
		return nil, err
	}
	background, err := s.GetScalar(path, "background")
	if err != nil {
		return nil, err
	}
	gof, err := s.GetScalar(path, "gof")
	if err != nil {
		return nil, err
	}
	step, err := s.GetScalar(path, "step")
	if err != nil {
		return nil, err
	}
	accepted, err := s.GetScalar(path, "accepted")
	if err != nil {
		return nil, err
	}
	maxIter, err := s.GetScalar(path, "maxIter")
	if err != nil {
		return nil, err
	}
	maxAccept, err := s.GetScalar(path, "maxAccept")
	if err != nil {
		return nil, err
	}
	convCrit, err := s.GetScalar(path, "convCrit")
	if err != nil {
		return nil, err
	}
	return &Opt{
		ModelI:     modelI,
		X0:         [2]float64{scaling, background},
		Gof:        gof,
		Step:       int(step),
		Accepted:   int(accepted),
		MaxIter:    int(maxIter),
		MaxAccept:  int(maxAccept),
		ConvCrit:   convCrit,
		Repetition: repetition,
	}, nil
}
