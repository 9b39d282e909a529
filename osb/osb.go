// Package osb implements the Scale/Background Solver: the closed-form
// weighted least-squares fit of a model intensity to measured data via a
// multiplicative scaling factor and an additive flat background.
package osb

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/mcsas3/mcsas3-go/mcerr"
)

// Solver holds the measured data and the fixed degrees-of-freedom
// consumption (ν) it was constructed with. It is a pure function object:
// Match has no side effects and performs no I/O.
type Solver struct {
	i      []float64
	w      []float64 // 1/sigma^2, zero where sigma==0 (excluded)
	nDoF   int
	nValid int
}

// New builds a Solver over the measured intensity i and uncertainty
// iSigma. nDoF is the number of free parameters to subtract from the point
// count when reducing chi-squared (2 for scale+background unless the
// caller overrides it).
func New(i, iSigma []float64, nDoF int) (*Solver, error) {
	if len(i) != len(iSigma) {
		return nil, mcerr.Newf(mcerr.DataInvalid, "osb: len(I)=%d != len(ISigma)=%d", len(i), len(iSigma))
	}
	w := make([]float64, len(iSigma))
	nValid := 0
	for k, s := range iSigma {
		if s > 0 {
			w[k] = 1 / (s * s)
			nValid++
		}
	}
	return &Solver{
		i:      append([]float64(nil), i...),
		w:      w,
		nDoF:   nDoF,
		nValid: nValid,
	}, nil
}

// Match finds (s*, b*) minimizing the weighted residual of m against the
// solver's measured data, warm-started from x0, and returns the resulting
// reduced chi-squared goodness-of-fit.
func (s *Solver) Match(m []float64, x0 [2]float64) (x [2]float64, gof float64, err error) {
	if len(m) != len(s.i) {
		return x0, math.NaN(), mcerr.Newf(mcerr.DataInvalid, "osb: len(m)=%d != len(I)=%d", len(m), len(s.i))
	}

	var sW, sWm, sWm2, sWi, sWmi float64
	for k, mv := range m {
		w := s.w[k]
		if w == 0 {
			continue
		}
		sW += w
		sWm += w * mv
		sWm2 += w * mv * mv
		sWi += w * s.i[k]
		sWmi += w * mv * s.i[k]
	}

	a := mat.NewDense(2, 2, []float64{sWm2, sWm, sWm, sW})
	b := mat.NewDense(2, 1, []float64{sWmi, sWi})
	var xMat mat.Dense
	if err := xMat.Solve(a, b); err != nil {
		return x0, math.NaN(), mcerr.New(mcerr.IllConditioned, err)
	}

	x = [2]float64{xMat.At(0, 0), xMat.At(1, 0)}

	dof := s.nValid - s.nDoF
	if dof <= 0 {
		return x, math.NaN(), mcerr.Newf(mcerr.IllConditioned, "osb: non-positive degrees of freedom (n=%d, nDoF=%d)", s.nValid, s.nDoF)
	}

	var chiSq float64
	for k, mv := range m {
		w := s.w[k]
		if w == 0 {
			continue
		}
		r := s.i[k] - (x[0]*mv + x[1])
		chiSq += w * r * r
	}
	gof = chiSq / float64(dof)
	return x, gof, nil
}
