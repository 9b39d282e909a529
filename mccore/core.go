// Package mccore implements the central Monte Carlo algorithm: ensemble
// initialization, the strict-descent accept/reject step, the termination
// condition, and the reload consistency check that guards a checkpoint
// against kernel drift or corruption.
package mccore

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/mcsas3/mcsas3-go/kernel"
	"github.com/mcsas3/mcsas3-go/mcerr"
	"github.com/mcsas3/mcsas3-go/mcmodel"
	"github.com/mcsas3/mcsas3-go/mcopt"
	"github.com/mcsas3/mcsas3-go/measdata"
	"github.com/mcsas3/mcsas3-go/osb"
	"github.com/mcsas3/mcsas3-go/store"
)

// Core binds one repetition's Ensemble, Opt, and Scale/Background Solver
// together and drives the iteration.
type Core struct {
	Meas     measdata.MeasData
	Ensemble *mcmodel.Ensemble
	Opt      *mcopt.Opt
	Solver   *osb.Solver
	Rnd      *rand.Rand
}

// initModelI computes (Fsq_i, V_i) for every contribution, sets
// Ensemble.Volumes in place, and returns modelI = (1/N_c) Σ Fsq_i/V_i.
func initModelI(e *mcmodel.Ensemble) ([]float64, error) {
	nc := e.NContrib()
	if nc == 0 {
		return nil, mcerr.Newf(mcerr.ConfigInvalid, "mccore: ensemble has no contributions")
	}
	var modelI []float64
	for i, c := range e.ParameterSet {
		fsq, v, err := e.CallKernel(c)
		if err != nil {
			return nil, err
		}
		e.Volumes[i] = v
		if modelI == nil {
			modelI = make([]float64, len(fsq))
		} else if len(fsq) != len(modelI) {
			return nil, mcerr.Newf(mcerr.KernelFailure, "mccore: kernel returned %d points, want %d", len(fsq), len(modelI))
		}
		for k := range fsq {
			modelI[k] += fsq[k] / v / float64(nc)
		}
	}
	return modelI, nil
}

// Init builds a fresh Core: initializes the ensemble's volumes and modelI,
// then calls the OSB once to obtain x0 and the initial gof (§4.3 Init).
func Init(meas measdata.MeasData, e *mcmodel.Ensemble, maxIter, maxAccept int, convCrit float64, fitNDoF, repetition int, rnd *rand.Rand) (*Core, error) {
	modelI, err := initModelI(e)
	if err != nil {
		return nil, err
	}
	solver, err := osb.New(meas.I, meas.ISigma, fitNDoF)
	if err != nil {
		return nil, err
	}
	x0, gof, err := solver.Match(modelI, [2]float64{1, 0})
	if err != nil {
		return nil, err
	}
	opt, err := mcopt.New(maxIter, maxAccept, convCrit, repetition)
	if err != nil {
		return nil, err
	}
	opt.ModelI = modelI
	opt.X0 = x0
	opt.Gof = gof

	return &Core{Meas: meas, Ensemble: e, Opt: opt, Solver: solver, Rnd: rnd}, nil
}

// Step performs one MC iteration (§4.3): pick a candidate, evaluate the
// trial model against the round-robin contribution, and accept on strict
// descent. Step always advances; acceptance is all-or-nothing state
// replacement.
func (c *Core) Step() error {
	e := c.Ensemble
	o := c.Opt
	nc := e.NContrib()

	e.Pick(c.Rnd)
	idx := o.Step % nc

	fsqOld, vOld, err := e.CallKernel(e.ParameterSet[idx])
	if err != nil {
		return err
	}
	fsqPick, vPick, err := e.CallKernel(e.PickParameters)
	if err != nil {
		return err
	}
	if len(fsqOld) != len(o.ModelI) || len(fsqPick) != len(o.ModelI) {
		return mcerr.Newf(mcerr.KernelFailure, "mccore: kernel returned a point count inconsistent with modelI")
	}

	testModelI := make([]float64, len(o.ModelI))
	for k := range testModelI {
		testModelI[k] = o.ModelI[k] + (fsqPick[k]/vPick-fsqOld[k]/vOld)/float64(nc)
	}

	testX0, newGof, err := c.Solver.Match(testModelI, o.X0)
	if err != nil {
		if mcerr.Is(err, mcerr.IllConditioned) {
			// An ill-conditioned trial fit is a rejection, not a fatal
			// error (§7): the prior still explores other contributions.
			o.Step++
			return nil
		}
		return err
	}

	if newGof < o.Gof {
		e.Commit(idx, vPick)
		o.TestModelI = testModelI
		o.TestX0 = testX0
		o.Accept(newGof)
	}
	o.Step++
	return nil
}

// Done reports whether the repetition's termination condition holds.
func (c *Core) Done() bool { return c.Opt.Done() }

// Store writes the ensemble and optimization snapshots for this repetition
// into s under resultNumber.
func (c *Core) Store(s store.Store, resultNumber int) error {
	if err := c.Ensemble.Snapshot(s, store.ModelPath(resultNumber, c.Opt.Repetition)); err != nil {
		return err
	}
	return c.Opt.Snapshot(s, store.OptPath(resultNumber, c.Opt.Repetition))
}

// approxEqual3SigFig reports whether a and b agree to 3 significant
// figures, mirroring np.testing.assert_approx_equal(..., significant=3).
func approxEqual3SigFig(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Pow(10, math.Floor(math.Log10(0.5*(math.Abs(a)+math.Abs(b)))))
	return math.Abs(a/scale-b/scale) < 1e-2
}

// Load reconstructs a Core for repetition from a checkpoint, then
// recomputes modelI/x0/gof from scratch and asserts 3-significant-figure
// agreement with the stored optimization scalars (§4.4). Disagreement in
// any of gof, scaling, or background raises mcerr.ReloadMismatch.
func Load(
	s store.Store,
	resultNumber, repetition int,
	fitParameterNames, staticParameterNames []string,
	k kernel.Kernel,
	meas measdata.MeasData,
	fitNDoF int,
) (*Core, error) {
	modelPath := store.ModelPath(resultNumber, repetition)
	optPath := store.OptPath(resultNumber, repetition)

	e, err := mcmodel.Restore(s, modelPath, fitParameterNames, staticParameterNames, k)
	if err != nil {
		return nil, err
	}
	storedOpt, err := mcopt.Restore(s, optPath, repetition)
	if err != nil {
		return nil, err
	}

	modelI, err := initModelI(e)
	if err != nil {
		return nil, err
	}
	if len(modelI) != len(storedOpt.ModelI) {
		return nil, mcerr.Newf(mcerr.ReloadMismatch, "mccore: recomputed modelI has %d points, stored has %d", len(modelI), len(storedOpt.ModelI))
	}

	solver, err := osb.New(meas.I, meas.ISigma, fitNDoF)
	if err != nil {
		return nil, err
	}
	x0, gof, err := solver.Match(modelI, storedOpt.X0)
	if err != nil {
		return nil, err
	}

	if !approxEqual3SigFig(gof, storedOpt.Gof) ||
		!approxEqual3SigFig(x0[0], storedOpt.X0[0]) ||
		!approxEqual3SigFig(x0[1], storedOpt.X0[1]) {
		return nil, mcerr.Newf(mcerr.ReloadMismatch,
			"mccore: reload consistency check failed: recomputed (gof=%g, scaling=%g, background=%g) vs stored (gof=%g, scaling=%g, background=%g)",
			gof, x0[0], x0[1], storedOpt.Gof, storedOpt.X0[0], storedOpt.X0[1])
	}

	storedOpt.ModelI = modelI
	storedOpt.X0 = x0
	storedOpt.Gof = gof

	return &Core{Meas: meas, Ensemble: e, Opt: storedOpt, Solver: solver}, nil
}
