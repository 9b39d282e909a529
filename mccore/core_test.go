package mccore_test

import (
	"context"
	"math"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/mcsas3/mcsas3-go/kernel/sphere"
	"github.com/mcsas3/mcsas3-go/mccore"
	"github.com/mcsas3/mcsas3-go/mcerr"
	"github.com/mcsas3/mcsas3-go/mcmodel"
	"github.com/mcsas3/mcsas3-go/measdata"
	"github.com/mcsas3/mcsas3-go/store"
)

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}

func syntheticSphereData(t *testing.T, radius float64) measdata.MeasData {
	t.Helper()
	q := linspace(0.005, 0.2, 60)
	k := sphere.New(q)
	fsq, v, err := k.Call(map[string]float64{"radius": radius})
	require.NoError(t, err)
	i := make([]float64, len(q))
	sigma := make([]float64, len(q))
	for idx := range q {
		i[idx] = fsq[idx] / v
		sigma[idx] = 0.01 * i[idx]
		if sigma[idx] == 0 {
			sigma[idx] = 1e-12
		}
	}
	md, err := measdata.New(q, i, sigma)
	require.NoError(t, err)
	return md
}

func TestSingleSphereRecoversRadius(t *testing.T) {
	meas := syntheticSphereData(t, 50.0)
	k := sphere.New(meas.Q)
	rnd := rand.New(rand.NewSource(42))

	limits := map[string]mcmodel.Prior{
		"radius": {Low: 10, High: 200, Dist: mcmodel.LogUniform},
	}
	e, err := mcmodel.Construct(1, limits, nil, k, rnd)
	require.NoError(t, err)

	core, err := mccore.Init(meas, e, 20000, 2000, 1e-3, 2, 0, rnd)
	require.NoError(t, err)

	for !core.Done() {
		require.NoError(t, core.Step())
	}

	assert.InDelta(t, 50.0, e.ParameterSet[0]["radius"], 5.0)
}

func TestAcceptedStepsAreMonotoneAndStrictDescent(t *testing.T) {
	meas := syntheticSphereData(t, 50.0)
	k := sphere.New(meas.Q)
	rnd := rand.New(rand.NewSource(7))

	limits := map[string]mcmodel.Prior{
		"radius": {Low: 10, High: 200, Dist: mcmodel.LogUniform},
	}
	e, err := mcmodel.Construct(3, limits, nil, k, rnd)
	require.NoError(t, err)

	core, err := mccore.Init(meas, e, 5000, 500, 1e-3, 2, 0, rnd)
	require.NoError(t, err)

	prevAccepted := 0
	prevStep := 0
	lastGof := math.Inf(1)
	for !core.Done() {
		gofBefore := core.Opt.Gof
		acceptedBefore := core.Opt.Accepted
		require.NoError(t, core.Step())

		assert.GreaterOrEqual(t, core.Opt.Step, prevStep)
		assert.GreaterOrEqual(t, core.Opt.Accepted, prevAccepted)
		assert.LessOrEqual(t, core.Opt.Accepted, core.Opt.Step)

		if core.Opt.Accepted > acceptedBefore {
			assert.Less(t, core.Opt.Gof, gofBefore)
			assert.LessOrEqual(t, core.Opt.Gof, lastGof)
			lastGof = core.Opt.Gof
		}
		prevAccepted = core.Opt.Accepted
		prevStep = core.Opt.Step
	}
}

// After any accepted step, modelI must equal the plain (1/N_c) average of
// Fsq_i/V_i across the ensemble (spec.md §8 invariant 1).
func TestModelIMatchesEnsembleAverageAfterSteps(t *testing.T) {
	meas := syntheticSphereData(t, 50.0)
	k := sphere.New(meas.Q)
	rnd := rand.New(rand.NewSource(21))

	limits := map[string]mcmodel.Prior{
		"radius": {Low: 10, High: 200, Dist: mcmodel.LogUniform},
	}
	e, err := mcmodel.Construct(4, limits, nil, k, rnd)
	require.NoError(t, err)

	core, err := mccore.Init(meas, e, 3000, 300, 1e-3, 2, 0, rnd)
	require.NoError(t, err)
	for i := 0; i < 200 && !core.Done(); i++ {
		require.NoError(t, core.Step())
	}

	want := make([]float64, len(meas.Q))
	for _, c := range e.ParameterSet {
		fsq, v, err := k.Call(c)
		require.NoError(t, err)
		for idx := range want {
			want[idx] += fsq[idx] / v
		}
	}
	n := float64(e.NContrib())
	for idx := range want {
		want[idx] /= n
	}

	for idx, got := range core.Opt.ModelI {
		assert.InDelta(t, want[idx], got, math.Abs(want[idx])*1e-6+1e-12)
	}
}

func TestConvergesOnStepOneWithHugeConvCrit(t *testing.T) {
	meas := syntheticSphereData(t, 50.0)
	k := sphere.New(meas.Q)
	rnd := rand.New(rand.NewSource(1))

	limits := map[string]mcmodel.Prior{
		"radius": {Low: 10, High: 200, Dist: mcmodel.LogUniform},
	}
	e, err := mcmodel.Construct(5, limits, nil, k, rnd)
	require.NoError(t, err)

	core, err := mccore.Init(meas, e, 20000, 2000, 1e12, 2, 0, rnd)
	require.NoError(t, err)

	assert.True(t, core.Done())
	assert.Equal(t, 0, core.Opt.Step)
	assert.Equal(t, 0, core.Opt.Accepted)
}

func TestStoreLoadRoundTripPassesConsistencyCheck(t *testing.T) {
	meas := syntheticSphereData(t, 50.0)
	k := sphere.New(meas.Q)
	rnd := rand.New(rand.NewSource(99))

	limits := map[string]mcmodel.Prior{
		"radius": {Low: 10, High: 200, Dist: mcmodel.LogUniform},
	}
	e, err := mcmodel.Construct(3, limits, nil, k, rnd)
	require.NoError(t, err)

	core, err := mccore.Init(meas, e, 2000, 500, 1e-3, 2, 0, rnd)
	require.NoError(t, err)
	for i := 0; i < 50 && !core.Done(); i++ {
		require.NoError(t, core.Step())
	}

	s := store.NewMemStore()
	require.NoError(t, core.Store(s, 1))

	reloaded, err := mccore.Load(s, 1, 0, []string{"radius"}, nil, k, meas, 2)
	require.NoError(t, err)
	assert.InDelta(t, core.Opt.Gof, reloaded.Opt.Gof, math.Abs(core.Opt.Gof)*1e-2+1e-9)
}

func TestLoadDetectsCorruptedCheckpoint(t *testing.T) {
	meas := syntheticSphereData(t, 50.0)
	k := sphere.New(meas.Q)
	rnd := rand.New(rand.NewSource(17))

	limits := map[string]mcmodel.Prior{
		"radius": {Low: 10, High: 200, Dist: mcmodel.LogUniform},
	}
	e, err := mcmodel.Construct(3, limits, nil, k, rnd)
	require.NoError(t, err)
	core, err := mccore.Init(meas, e, 2000, 500, 1e-3, 2, 0, rnd)
	require.NoError(t, err)

	s := store.NewMemStore()
	require.NoError(t, core.Store(s, 1))
	require.NoError(t, s.PutScalar(store.OptPath(1, 0), "gof", core.Opt.Gof*10))

	_, err = mccore.Load(s, 1, 0, []string{"radius"}, nil, k, meas, 2)
	assert.True(t, mcerr.Is(err, mcerr.ReloadMismatch))
}

func TestRunRepetitionsProducesIndependentResults(t *testing.T) {
	meas := syntheticSphereData(t, 50.0)
	k := sphere.New(meas.Q)
	seed := uint64(7)

	cfg := mccore.RunConfig{
		NContrib: 2,
		FitParameterLimits: map[string]mcmodel.Prior{
			"radius": {Low: 10, High: 200, Dist: mcmodel.LogUniform},
		},
		MaxIter:   2000,
		MaxAccept: 200,
		ConvCrit:  1e-3,
		FitNDoF:   2,
		Seed:      &seed,
	}
	s := store.NewMemStore()
	ids, err := mccore.RunRepetitions(context.Background(), cfg, meas, k, s, 1, 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 1, 2}, ids)

	groups, err := s.Groups(store.ModelGroupPath(1))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"repetition0", "repetition1", "repetition2"}, groups)
}

// Fixed-seed repetitions must be independent of the worker pool's size
// (spec.md §8 invariant 8): each repetition's RNG and state are
// repetition-local, so running with a pool of 1 or a pool of 4 must
// produce byte-identical per-repetition gof values.
func TestRunRepetitionsIndependentOfWorkerCount(t *testing.T) {
	meas := syntheticSphereData(t, 50.0)
	k := sphere.New(meas.Q)
	seed := uint64(11)

	cfg := mccore.RunConfig{
		NContrib: 2,
		FitParameterLimits: map[string]mcmodel.Prior{
			"radius": {Low: 10, High: 200, Dist: mcmodel.LogUniform},
		},
		MaxIter:   1500,
		MaxAccept: 150,
		ConvCrit:  1e-3,
		FitNDoF:   2,
		Seed:      &seed,
	}

	gofsFor := func(poolSize int) map[int]float64 {
		prev := runtime.GOMAXPROCS(poolSize)
		defer runtime.GOMAXPROCS(prev)

		s := store.NewMemStore()
		_, err := mccore.RunRepetitions(context.Background(), cfg, meas, k, s, 1, 4)
		require.NoError(t, err)

		out := make(map[int]float64)
		groups, err := s.Groups(store.ModelGroupPath(1))
		require.NoError(t, err)
		for _, g := range groups {
			idx, ok := store.ParseRepetitionIndex(g)
			require.True(t, ok)
			gof, err := s.GetScalar(store.OptPath(1, idx), "gof")
			require.NoError(t, err)
			out[idx] = gof
		}
		return out
	}

	single := gofsFor(1)
	multi := gofsFor(4)
	assert.Equal(t, single, multi)
}
