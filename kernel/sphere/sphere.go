// Package sphere is a reference kernel.Kernel implementing the classic
// homogeneous-sphere small-angle scattering form factor. It exists purely
// to exercise the engine end-to-end in tests and the example CLI; a real
// deployment plugs in a full form-factor library (e.g. sasmodels) instead.
package sphere

import (
	"math"

	"github.com/mcsas3/mcsas3-go/mcerr"
)

// Kernel evaluates the sphere form factor over a fixed Q-grid. Contributions
// are parameterized by "radius"; contrast is a fixed static parameter.
type Kernel struct {
	q []float64
}

// New binds a sphere kernel to q. q must be non-empty.
func New(q []float64) *Kernel {
	return &Kernel{q: append([]float64(nil), q...)}
}

// Q implements kernel.Kernel.
func (k *Kernel) Q() []float64 { return k.q }

// Call implements kernel.Kernel. params must contain "radius" (Å); an
// optional "scale" static parameter multiplies the volume-weighted
// intensity (defaults to 1, i.e. an SLD contrast of 1 Å^-2).
func (k *Kernel) Call(params map[string]float64) ([]float64, float64, error) {
	r, ok := params["radius"]
	if !ok || !(r > 0) {
		return nil, 0, mcerr.Newf(mcerr.KernelFailure, "sphere: missing or non-positive radius parameter")
	}
	scale := 1.0
	if s, ok := params["scale"]; ok {
		scale = s
	}

	v := (4.0 / 3.0) * math.Pi * r * r * r
	fsq := make([]float64, len(k.q))
	for i, q := range k.q {
		x := q * r
		f := sphereFormFactor(x)
		fsq[i] = scale * v * v * f * f
		if math.IsNaN(fsq[i]) || math.IsInf(fsq[i], 0) {
			return nil, 0, mcerr.Newf(mcerr.KernelFailure, "sphere: non-finite intensity at Q=%v, radius=%v", q, r)
		}
	}
	return fsq, v, nil
}

// sphereFormFactor returns the normalized (F(0)=1) sphere amplitude
// 3(sin x - x cos x)/x^3, handling the x→0 limit analytically.
func sphereFormFactor(x float64) float64 {
	if math.Abs(x) < 1e-8 {
		return 1.0
	}
	return 3.0 * (math.Sin(x) - x*math.Cos(x)) / (x * x * x)
}
