package mccore

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"runtime"
	"sync"

	xrand "golang.org/x/exp/rand"

	"github.com/mcsas3/mcsas3-go/kernel"
	"github.com/mcsas3/mcsas3-go/logging"
	"github.com/mcsas3/mcsas3-go/mcerr"
	"github.com/mcsas3/mcsas3-go/mcmodel"
	"github.com/mcsas3/mcsas3-go/measdata"
	"github.com/mcsas3/mcsas3-go/store"
)

// checkpointEvery is the step cadence progress is logged and cancellation
// is polled at, matching the original source's print cadence (§4.4).
const checkpointEvery = 1000

// RunConfig is the subset of run parameters RunRepetitions needs; callers
// typically derive this from runconfig.RunConfig.
type RunConfig struct {
	NContrib           int
	FitParameterLimits map[string]mcmodel.Prior
	StaticParameters   map[string]float64
	MaxIter            int
	MaxAccept          int
	ConvCrit           float64
	FitNDoF            int
	Seed               *uint64
}

// seedFor derives a per-repetition seed: if cfg.Seed is set, it is mixed
// deterministically with the repetition index so re-running with the same
// seed reproduces the same ensembles; otherwise a fresh seed is drawn from
// OS entropy and returned so the caller can persist it.
func seedFor(cfg RunConfig, repetition int) (uint64, error) {
	if cfg.Seed != nil {
		return *cfg.Seed + uint64(repetition)*0x9e3779b97f4a7c15, nil
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, mcerr.New(mcerr.ConfigInvalid, err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// RunRepetitions runs nRep independent repetitions of the MC Core on a
// worker pool bounded by runtime.GOMAXPROCS(0), one goroutine per
// in-flight repetition (§5). Each worker owns its own RNG, Ensemble, and
// Opt; no state is shared across workers. Cancellation via ctx is
// cooperative: workers check ctx.Err() every checkpointEvery steps or on
// every accept, and return mcerr.Cancelled without writing a partial
// checkpoint.
func RunRepetitions(
	ctx context.Context,
	cfg RunConfig,
	meas measdata.MeasData,
	k kernel.Kernel,
	s store.Store,
	resultNumber, nRep int,
) ([]int, error) {
	if nRep < 1 {
		return nil, mcerr.Newf(mcerr.ConfigInvalid, "mccore: nRep must be >= 1, got %d", nRep)
	}

	poolSize := runtime.GOMAXPROCS(0)
	if poolSize > nRep {
		poolSize = nRep
	}

	sem := make(chan struct{}, poolSize)
	var wg sync.WaitGroup
	errs := make(chan error, nRep)
	completed := make(chan int, nRep)

	for rep := 0; rep < nRep; rep++ {
		rep := rep
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := runOneRepetition(ctx, cfg, meas, k, s, resultNumber, rep); err != nil {
				logging.Error(rep, err)
				errs <- err
				return
			}
			completed <- rep
		}()
	}
	wg.Wait()
	close(errs)
	close(completed)

	for err := range errs {
		return nil, err
	}

	ids := make([]int, 0, nRep)
	for id := range completed {
		ids = append(ids, id)
	}
	return ids, nil
}

func runOneRepetition(
	ctx context.Context,
	cfg RunConfig,
	meas measdata.MeasData,
	k kernel.Kernel,
	s store.Store,
	resultNumber, repetition int,
) error {
	seed, err := seedFor(cfg, repetition)
	if err != nil {
		return err
	}
	rnd := xrand.New(xrand.NewSource(seed))

	e, err := mcmodel.Construct(cfg.NContrib, cfg.FitParameterLimits, cfg.StaticParameters, k, rnd)
	if err != nil {
		return err
	}

	core, err := Init(meas, e, cfg.MaxIter, cfg.MaxAccept, cfg.ConvCrit, cfg.FitNDoF, repetition, rnd)
	if err != nil {
		return err
	}

	for !core.Done() {
		if core.Opt.Step%checkpointEvery == 1 {
			logging.Progress(repetition, core.Opt.Step, core.Opt.Accepted, core.Opt.Gof)
			if err := ctx.Err(); err != nil {
				return mcerr.New(mcerr.Cancelled, err)
			}
		}
		acceptedBefore := core.Opt.Accepted
		if err := core.Step(); err != nil {
			return err
		}
		if core.Opt.Accepted > acceptedBefore {
			if err := ctx.Err(); err != nil {
				return mcerr.New(mcerr.Cancelled, err)
			}
		}
	}

	logging.RunSummary(repetition, core.Opt.Step, core.Opt.Accepted, core.Opt.Gof)
	// Stored as float64 for a record/audit trail only; the seed is never
	// read back to reproduce a run, so precision loss above 2^53 is fine.
	if err := s.PutScalar(store.OptPath(resultNumber, repetition), "seed", float64(seed)); err != nil {
		return err
	}
	return core.Store(s, resultNumber)
}
