// Package mcmodel holds the contribution ensemble: the table of scatterer
// parameter rows, their volumes, the static kernel parameters, the prior
// bounds fit parameters are drawn from, and the pick/commit operations the
// MC Core drives one step at a time.
package mcmodel

import (
	"sort"

	"golang.org/x/exp/rand"

	"github.com/mcsas3/mcsas3-go/kernel"
	"github.com/mcsas3/mcsas3-go/mcerr"
	"github.com/mcsas3/mcsas3-go/store"
)

// Contribution is one scatterer's parameter row: fit-parameter name to
// sampled value.
type Contribution map[string]float64

// Clone returns an independent copy of c.
func (c Contribution) Clone() Contribution {
	out := make(Contribution, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Ensemble is the table of N_c contributions plus the static configuration
// they share: kernel binding, fit-parameter priors, and static parameters.
type Ensemble struct {
	ParameterSet []Contribution
	Volumes      []float64

	StaticParameters   map[string]float64
	FitParameterLimits map[string]Prior

	// PickParameters is scratch: the last candidate drawn by Pick, not yet
	// committed into ParameterSet.
	PickParameters Contribution

	Kernel kernel.Kernel
}

// fitParamNames returns the fit-parameter names in deterministic order, so
// sampling and snapshotting do not depend on Go's randomized map order.
func (e *Ensemble) fitParamNames() []string {
	names := make([]string, 0, len(e.FitParameterLimits))
	for name := range e.FitParameterLimits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Construct draws nContrib independent initial contributions from the
// prior defined by fitParameterLimits, bound to kernel and staticParameters.
func Construct(
	nContrib int,
	fitParameterLimits map[string]Prior,
	staticParameters map[string]float64,
	k kernel.Kernel,
	rnd *rand.Rand,
) (*Ensemble, error) {
	if nContrib < 1 {
		return nil, mcerr.Newf(mcerr.ConfigInvalid, "mcmodel: nContrib must be >= 1, got %d", nContrib)
	}
	if len(fitParameterLimits) == 0 {
		return nil, mcerr.Newf(mcerr.ConfigInvalid, "mcmodel: at least one fit parameter is required")
	}
	for name := range fitParameterLimits {
		if _, clash := staticParameters[name]; clash {
			return nil, mcerr.Newf(mcerr.ConfigInvalid, "mcmodel: %q is both a fit and a static parameter", name)
		}
	}

	e := &Ensemble{
		ParameterSet:       make([]Contribution, nContrib),
		Volumes:            make([]float64, nContrib),
		StaticParameters:   staticParameters,
		FitParameterLimits: fitParameterLimits,
		Kernel:             k,
	}
	names := e.fitParamNames()
	for i := 0; i < nContrib; i++ {
		c := make(Contribution, len(names))
		for _, name := range names {
			c[name] = fitParameterLimits[name].Sample(rnd)
		}
		e.ParameterSet[i] = c
	}
	return e, nil
}

// Pick sets PickParameters to a fresh independent draw from the prior. It
// does not mutate ParameterSet.
func (e *Ensemble) Pick(rnd *rand.Rand) {
	names := e.fitParamNames()
	c := make(Contribution, len(names))
	for _, name := range names {
		c[name] = e.FitParameterLimits[name].Sample(rnd)
	}
	e.PickParameters = c
}

// Commit replaces ParameterSet[i] with PickParameters and Volumes[i] with v.
func (e *Ensemble) Commit(i int, v float64) {
	e.ParameterSet[i] = e.PickParameters
	e.Volumes[i] = v
}

// CallKernel evaluates the kernel for c merged with the ensemble's static
// parameters, returning the per-point intensity (Fsq) and volume (V).
func (e *Ensemble) CallKernel(c Contribution) (fsq []float64, v float64, err error) {
	merged := make(map[string]float64, len(c)+len(e.StaticParameters))
	for k, val := range e.StaticParameters {
		merged[k] = val
	}
	for k, val := range c {
		merged[k] = val
	}
	fsq, v, err = e.Kernel.Call(merged)
	if err != nil {
		return nil, 0, mcerr.New(mcerr.KernelFailure, err)
	}
	return fsq, v, nil
}

// NContrib returns the number of contributions in the ensemble.
func (e *Ensemble) NContrib() int { return len(e.ParameterSet) }

// Snapshot writes the full ensemble state under path in s.
func (e *Ensemble) Snapshot(s store.Store, path string) error {
	names := e.fitParamNames()
	if err := s.PutScalar(path, "nContrib", float64(e.NContrib())); err != nil {
		return err
	}
	if err := s.PutArray(path, "volumes", e.Volumes); err != nil {
		return err
	}
	for _, name := range names {
		row := make([]float64, e.NContrib())
		for i, c := range e.ParameterSet {
			row[i] = c[name]
		}
		if err := s.PutArray(path, "parameter_"+name, row); err != nil {
			return err
		}
		lim := e.FitParameterLimits[name]
		if err := s.PutArray(path, "limits_"+name, []float64{lim.Low, lim.High, float64(lim.Dist)}); err != nil {
			return err
		}
		// A marker group, so Restore can rediscover the fit-parameter
		// names from the store alone (see DiscoverParameterNames).
		if err := s.PutScalar(path+"/fitParams/"+name, "present", 1); err != nil {
			return err
		}
	}
	for name, v := range e.StaticParameters {
		if err := s.PutScalar(path, "static_"+name, v); err != nil {
			return err
		}
		if err := s.PutScalar(path+"/staticParams/"+name, "present", 1); err != nil {
			return err
		}
	}
	return nil
}

// DiscoverParameterNames reads back the fit- and static-parameter names
// a prior Snapshot recorded under path, without requiring the caller to
// already know them.
func DiscoverParameterNames(s store.Store, path string) (fitNames, staticNames []string, err error) {
	fitNames, err = s.Groups(path + "/fitParams")
	if err != nil {
		return nil, nil, err
	}
	staticNames, err = s.Groups(path + "/staticParams")
	if err != nil {
		return nil, nil, err
	}
	return fitNames, staticNames, nil
}

// Restore rebuilds an Ensemble from path, bound to k, from a prior Snapshot.
// fitParameterNames must list the fit parameters that were snapshotted (the
// store has no notion of "all children under a path" for arbitrary keys,
// only for group membership — see store.Store.Groups).
func Restore(s store.Store, path string, fitParameterNames, staticParameterNames []string, k kernel.Kernel) (*Ensemble, error) {
	nContribF, err := s.GetScalar(path, "nContrib")
	if err != nil {
		return nil, err
	}
	nContrib := int(nContribF)

	volumes, err := s.GetArray(path, "volumes")
	if err != nil {
		return nil, err
	}

	limits := make(map[string]Prior, len(fitParameterNames))
	rows := make(map[string][]float64, len(fitParameterNames))
	for _, name := range fitParameterNames {
		row, err := s.GetArray(path, "parameter_"+name)
		if err != nil {
			return nil, err
		}
		rows[name] = row
		lim, err := s.GetArray(path, "limits_"+name)
		if err != nil {
			return nil, err
		}
		if len(lim) != 3 {
			return nil, mcerr.Newf(mcerr.ReloadMismatch, "mcmodel: malformed stored limits for %q", name)
		}
		limits[name] = Prior{Low: lim[0], High: lim[1], Dist: Distribution(int(lim[2]))}
	}

	static := make(map[string]float64, len(staticParameterNames))
	for _, name := range staticParameterNames {
		v, err := s.GetScalar(path, "static_"+name)
		if err != nil {
			return nil, err
		}
		static[name] = v
	}

	parameterSet := make([]Contribution, nContrib)
	for i := 0; i < nContrib; i++ {
		c := make(Contribution, len(fitParameterNames))
		for _, name := range fitParameterNames {
			c[name] = rows[name][i]
		}
		parameterSet[i] = c
	}

	return &Ensemble{
		ParameterSet:       parameterSet,
		Volumes:            volumes,
		StaticParameters:   static,
		FitParameterLimits: limits,
		Kernel:             k,
	}, nil
}
