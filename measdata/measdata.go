// Package measdata holds the measured scattering curve the Monte Carlo
// engine fits against. Parsing PDH/CSV/NeXus files into this shape is an
// external concern; this package only validates and carries the result.
package measdata

import (
	"math"

	"github.com/mcsas3/mcsas3-go/mcerr"
)

// MeasData is an immutable measured I(Q) curve: three parallel vectors over
// the momentum-transfer axis.
type MeasData struct {
	Q      []float64
	I      []float64
	ISigma []float64
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// New validates q, i, iSigma and returns the assembled MeasData.
//
// Q must be strictly positive and strictly increasing, all three vectors
// must share a length, and ISigma must be non-negative.
func New(q, i, iSigma []float64) (MeasData, error) {
	if len(q) == 0 {
		return MeasData{}, mcerr.Newf(mcerr.DataInvalid, "measdata: Q must not be empty")
	}
	if len(q) != len(i) || len(q) != len(iSigma) {
		return MeasData{}, mcerr.Newf(mcerr.DataInvalid,
			"measdata: length mismatch: len(Q)=%d len(I)=%d len(ISigma)=%d", len(q), len(i), len(iSigma))
	}
	prev := math.Inf(-1)
	for k, qv := range q {
		if !isFinite(qv) || qv <= 0 {
			return MeasData{}, mcerr.Newf(mcerr.DataInvalid, "measdata: Q[%d]=%v is not strictly positive", k, qv)
		}
		if qv <= prev {
			return MeasData{}, mcerr.Newf(mcerr.DataInvalid, "measdata: Q is not strictly increasing at index %d", k)
		}
		prev = qv
	}
	for k, iv := range i {
		if !isFinite(iv) {
			return MeasData{}, mcerr.Newf(mcerr.DataInvalid, "measdata: I[%d] is not finite", k)
		}
	}
	for k, sv := range iSigma {
		if !isFinite(sv) || sv < 0 {
			return MeasData{}, mcerr.Newf(mcerr.DataInvalid, "measdata: ISigma[%d]=%v is not non-negative", k, sv)
		}
	}

	out := MeasData{
		Q:      append([]float64(nil), q...),
		I:      append([]float64(nil), i...),
		ISigma: append([]float64(nil), iSigma...),
	}
	return out, nil
}

// Len returns the number of points on the Q-grid.
func (m MeasData) Len() int { return len(m.Q) }
