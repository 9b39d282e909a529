// Package mcanalysis aggregates the repetitions of a checkpointed run into
// per-bin and per-mode mean/std tables, following §4.6's seven steps.
package mcanalysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mcsas3/mcsas3-go/kernel"
	"github.com/mcsas3/mcsas3-go/mccore"
	"github.com/mcsas3/mcsas3-go/mcerr"
	"github.com/mcsas3/mcsas3-go/mchist"
	"github.com/mcsas3/mcsas3-go/measdata"
	"github.com/mcsas3/mcsas3-go/runconfig"
	"github.com/mcsas3/mcsas3-go/store"
)

// AveragedHistogram is one HistRange's aggregation across repetitions:
// bin edges/centers/widths, mean and std bin heights, and the Obs column
// (§4.6, reserved, always NaN — see DESIGN.md).
type AveragedHistogram struct {
	Edges   []float64
	XMean   []float64
	XWidth  []float64
	YMean   []float64
	YStd    []float64
	Obs     []float64
}

// ModeStats is the mean/std of one mode across repetitions.
type ModeStats struct {
	Mean, Std float64
}

// ScalarStats is the mean/std of one optimization scalar across
// repetitions.
type ScalarStats struct {
	Mean, Std float64
}

// RangeResult is one HistRange's full aggregation: the averaged
// histogram plus the per-mode stats.
type RangeResult struct {
	Histogram AveragedHistogram
	Modes     map[string]ModeStats
}

// Result is the complete multi-repetition aggregation for a result
// number: per-range histograms/modes, per-scalar stats, and the mean
// scaled model intensity.
type Result struct {
	RepetitionIDs []int
	// FailedRepetitionIDs lists stored repetitions that were skipped
	// because reloading them hit a kernel failure.
	FailedRepetitionIDs []int
	Ranges        map[string]RangeResult
	Scaling       ScalarStats
	Background    ScalarStats
	Gof           ScalarStats
	Accepted      ScalarStats
	Step          ScalarStats
	ModelIMean    []float64
	ModelIStd     []float64
}

// meanStdDDOF1 computes mean/std with ddof=1, except that n==1 collapses
// std to 0 rather than gonum's NaN from dividing by n-1=0 (spec's S5).
func meanStdDDOF1(x []float64) (float64, float64) {
	mean := stat.Mean(x, nil)
	if len(x) < 2 {
		return mean, 0
	}
	return mean, stat.StdDev(x, nil)
}

// Aggregate runs §4.6's seven steps for resultNumber: enumerate stored
// repetitions, reload each via mccore and project it through ranges,
// assert bin-edge agreement, then aggregate bins/modes/scalars and the
// mean scaled model intensity.
func Aggregate(
	s store.Store,
	resultNumber int,
	fitParameterNames, staticParameterNames []string,
	k kernel.Kernel,
	meas measdata.MeasData,
	fitNDoF int,
	ranges []runconfig.HistRange,
) (*Result, error) {
	groups, err := s.Groups(store.ModelGroupPath(resultNumber))
	if err != nil {
		return nil, err
	}

	var ids []int
	for _, g := range groups {
		idx, ok := store.ParseRepetitionIndex(g)
		if !ok {
			continue
		}
		ids = append(ids, idx)
	}
	sort.Ints(ids)

	type repData struct {
		core     *mccore.Core
		projections map[string]mchist.Result
	}
	reps := make([]repData, 0, len(ids))
	loaded := make([]int, 0, len(ids))
	var failed []int

	for _, id := range ids {
		core, err := mccore.Load(s, resultNumber, id, fitParameterNames, staticParameterNames, k, meas, fitNDoF)
		if err != nil {
			// A kernel failure on reload (e.g. a parameter value that no
			// longer evaluates) drops just this repetition and records it
			// as failed; every other error aborts the aggregation (§7).
			if mcerr.Is(err, mcerr.KernelFailure) {
				failed = append(failed, id)
				continue
			}
			return nil, err
		}
		proj := make(map[string]mchist.Result, len(ranges))
		for _, r := range ranges {
			proj[r.Parameter] = mchist.Project(core.Ensemble, r)
		}
		reps = append(reps, repData{core: core, projections: proj})
		loaded = append(loaded, id)
	}

	result := &Result{Ranges: make(map[string]RangeResult, len(ranges)), RepetitionIDs: loaded, FailedRepetitionIDs: failed}

	for _, r := range ranges {
		var refEdges []float64
		heights := make([][]float64, len(reps))
		modeSeries := map[string][]float64{
			"totalValue": nil, "mean": nil, "variance": nil, "skew": nil, "kurtosis": nil,
		}
		for i, rep := range reps {
			proj := rep.projections[r.Parameter]
			if refEdges == nil {
				refEdges = proj.Edges
			} else if !floats.Equal(refEdges, proj.Edges) {
				return nil, mcerr.Newf(mcerr.BinEdgeMismatch, "mcanalysis: bin edges disagree across repetitions for parameter %q", r.Parameter)
			}
			heights[i] = proj.Heights
			modeSeries["totalValue"] = append(modeSeries["totalValue"], proj.Modes.TotalValue)
			modeSeries["mean"] = append(modeSeries["mean"], proj.Modes.Mean)
			modeSeries["variance"] = append(modeSeries["variance"], proj.Modes.Variance)
			modeSeries["skew"] = append(modeSeries["skew"], proj.Modes.Skew)
			modeSeries["kurtosis"] = append(modeSeries["kurtosis"], proj.Modes.Kurtosis)
		}

		nBins := r.NBins
		yMean := make([]float64, nBins)
		yStd := make([]float64, nBins)
		for b := 0; b < nBins; b++ {
			col := make([]float64, len(heights))
			for i := range heights {
				col[i] = heights[i][b]
			}
			yMean[b], yStd[b] = meanStdDDOF1(col)
		}

		xMean := make([]float64, nBins)
		xWidth := make([]float64, nBins)
		for b := 0; b < nBins; b++ {
			xWidth[b] = refEdges[b+1] - refEdges[b]
			xMean[b] = refEdges[b] + xWidth[b]/2
		}

		modes := make(map[string]ModeStats, len(modeSeries))
		for name, series := range modeSeries {
			mean, std := meanStdDDOF1(series)
			modes[name] = ModeStats{Mean: mean, Std: std}
		}

		result.Ranges[r.Parameter] = RangeResult{
			Histogram: AveragedHistogram{
				Edges:  refEdges,
				XMean:  xMean,
				XWidth: xWidth,
				YMean:  yMean,
				YStd:   yStd,
				Obs:    nanSlice(nBins),
			},
			Modes: modes,
		}
	}

	scalingSeries := make([]float64, len(reps))
	backgroundSeries := make([]float64, len(reps))
	gofSeries := make([]float64, len(reps))
	acceptedSeries := make([]float64, len(reps))
	stepSeries := make([]float64, len(reps))
	var scaledISum []float64
	for i, rep := range reps {
		o := rep.core.Opt
		scalingSeries[i] = o.X0[0]
		backgroundSeries[i] = o.X0[1]
		gofSeries[i] = o.Gof
		acceptedSeries[i] = float64(o.Accepted)
		stepSeries[i] = float64(o.Step)

		scaledI := make([]float64, len(o.ModelI))
		for k := range scaledI {
			scaledI[k] = o.X0[0]*o.ModelI[k] + o.X0[1]
		}
		if scaledISum == nil {
			scaledISum = make([]float64, len(scaledI))
		}
		for k := range scaledI {
			scaledISum[k] += scaledI[k]
		}
	}

	result.Scaling.Mean, result.Scaling.Std = meanStdDDOF1(scalingSeries)
	result.Background.Mean, result.Background.Std = meanStdDDOF1(backgroundSeries)
	result.Gof.Mean, result.Gof.Std = meanStdDDOF1(gofSeries)
	result.Accepted.Mean, result.Accepted.Std = meanStdDDOF1(acceptedSeries)
	result.Step.Mean, result.Step.Std = meanStdDDOF1(stepSeries)

	if len(reps) > 0 {
		n := len(reps)
		modelIMean := make([]float64, len(scaledISum))
		for k := range scaledISum {
			modelIMean[k] = scaledISum[k] / float64(n)
		}
		// modelIStd is computed per-point across repetitions, same ddof=1
		// with n==1 special case as the scalar series above.
		modelIStd := make([]float64, len(modelIMean))
		if n > 1 {
			col := make([]float64, n)
			for k := range modelIMean {
				for i, rep := range reps {
					o := rep.core.Opt
					col[i] = o.X0[0]*o.ModelI[k] + o.X0[1]
				}
				_, modelIStd[k] = meanStdDDOF1(col)
			}
		}
		result.ModelIMean = modelIMean
		result.ModelIStd = modelIStd
	}

	return result, nil
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
