// Package mchist projects a completed ensemble onto a HistRange: bin
// heights, bin edges, and five statistical modes over the in-range,
// weighted contributions.
package mchist

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mcsas3/mcsas3-go/mcmodel"
	"github.com/mcsas3/mcsas3-go/runconfig"
)

// Modes are the five statistical summaries of a weighted, in-range sample
// (§4.5). They are the raw (population, non-excess) moments, not gonum's
// bias-corrected/excess-kurtosis conventions.
type Modes struct {
	TotalValue float64
	Mean       float64
	Variance   float64
	Skew       float64
	Kurtosis   float64
}

// Result is one HistRange's projection of an ensemble: bin edges (nBins+1
// values), bin heights (nBins values), and the modes over the same
// in-range weighted sample.
type Result struct {
	Edges   []float64
	Heights []float64
	Modes   Modes
}

// BinEdges returns the nBins+1 deterministic bin edges for r, spanning
// [r.RangeMin, r.RangeMax] uniformly in linear or log space. Edges depend
// only on (RangeMin, RangeMax, NBins, BinScale) — never on data extrema —
// so they are guaranteed identical across repetitions sharing the same
// HistRange.
func BinEdges(r runconfig.HistRange) []float64 {
	edges := make([]float64, r.NBins+1)
	switch r.BinScale {
	case runconfig.Log:
		logEdges := floats.Span(make([]float64, r.NBins+1), math.Log(r.RangeMin), math.Log(r.RangeMax))
		for i, v := range logEdges {
			edges[i] = math.Exp(v)
		}
	default:
		floats.Span(edges, r.RangeMin, r.RangeMax)
	}
	return edges
}

// weight returns the histogram weight for a contribution given its
// volume, per r.Weighting.
func weight(r runconfig.HistRange, volume float64) float64 {
	switch r.Weighting {
	case runconfig.WeightNumber:
		return 1
	case runconfig.WeightVolumeSquared:
		return volume * volume
	default:
		return volume
	}
}

// Project computes r's histogram and modes over e's contributions.
// Contributions whose r.Parameter value falls outside [RangeMin, RangeMax]
// are excluded from both the histogram and the modes (§4.5). An empty
// in-range sample yields totalValue = 0, NaN for the remaining modes, and
// a zero histogram — it does not raise (S4).
func Project(e *mcmodel.Ensemble, r runconfig.HistRange) Result {
	edges := BinEdges(r)

	var values, weights []float64
	for i, c := range e.ParameterSet {
		v, ok := c[r.Parameter]
		if !ok {
			continue
		}
		if v < r.RangeMin || v > r.RangeMax {
			continue
		}
		values = append(values, v)
		weights = append(weights, weight(r, e.Volumes[i]))
	}

	heights := make([]float64, r.NBins)
	if len(values) > 0 {
		sort.Sort(&byValue{values: values, weights: weights})
		// stat.Histogram needs edges[0] <= x < edges[n]; widen the outer
		// dividers so in-range values at RangeMin/RangeMax (or just past a
		// rounded log edge) land in the first/last bin instead of panicking.
		dividers := append([]float64(nil), edges...)
		dividers[0] = math.Min(dividers[0], r.RangeMin)
		last := len(dividers) - 1
		dividers[last] = math.Nextafter(math.Max(dividers[last], r.RangeMax), math.Inf(1))
		stat.Histogram(heights, dividers, values, weights)
	}

	return Result{
		Edges:   edges,
		Heights: heights,
		Modes:   computeModes(values, weights),
	}
}

// byValue sorts paired value/weight slices together by value, the
// ordering gonum's stat.Histogram requires of its x argument.
type byValue struct {
	values  []float64
	weights []float64
}

func (b *byValue) Len() int      { return len(b.values) }
func (b *byValue) Swap(i, j int) {
	b.values[i], b.values[j] = b.values[j], b.values[i]
	b.weights[i], b.weights[j] = b.weights[j], b.weights[i]
}
func (b *byValue) Less(i, j int) bool { return b.values[i] < b.values[j] }

// computeModes implements spec's raw-moment formulas directly: gonum's
// stat.Skew/ExKurtosis apply sample-size bias corrections and report
// excess kurtosis, neither of which this spec wants.
func computeModes(values, weights []float64) Modes {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return Modes{TotalValue: 0, Mean: math.NaN(), Variance: math.NaN(), Skew: math.NaN(), Kurtosis: math.NaN()}
	}

	var mean float64
	for i, w := range weights {
		mean += w * values[i]
	}
	mean /= total

	var variance, m3, m4 float64
	for i, w := range weights {
		d := values[i] - mean
		variance += w * d * d
		m3 += w * d * d * d
		m4 += w * d * d * d * d
	}
	variance /= total
	m3 /= total
	m4 /= total

	skew := m3 / math.Pow(variance, 1.5)
	kurtosis := m4 / (variance * variance)

	return Modes{
		TotalValue: total,
		Mean:       mean,
		Variance:   variance,
		Skew:       skew,
		Kurtosis:   kurtosis,
	}
}
