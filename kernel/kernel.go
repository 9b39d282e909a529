// Package kernel defines the form-factor evaluator contract the Monte
// Carlo engine consumes. The form-factor library itself (sasmodels-style
// scatterer models) is an external collaborator; only the interface and a
// single reference implementation (kernel/sphere) live in this module.
package kernel

// Kernel evaluates a scatterer's volume-weighted intensity and volume over
// the Q-grid it was constructed with. Call must be deterministic and pure:
// the same params always produce the same (Fsq, V).
type Kernel interface {
	// Call returns Fsq, the volume-weighted scattering intensity at every
	// point of the bound Q-grid, and V, the scatterer's volume, for the
	// given parameter dictionary (fit parameters merged with the run's
	// static parameters).
	Call(params map[string]float64) (fsq []float64, v float64, err error)

	// Q returns the Q-grid this kernel was constructed with.
	Q() []float64
}
