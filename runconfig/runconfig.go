// Package runconfig is the YAML-backed configuration surface: the run
// parameters the MC Core needs (contribution count, repetitions,
// termination targets, fit-parameter priors) and the histogram ranges the
// Aggregator projects the result onto.
package runconfig

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mcsas3/mcsas3-go/mcerr"
	"github.com/mcsas3/mcsas3-go/mcmodel"
)

// PriorConfig is the YAML form of a mcmodel.Prior: Dist is a string tag
// ("uniform" or "log-uniform") rather than the Go enum, since YAML has no
// native notion of Go's iota constants.
type PriorConfig struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
	Dist string  `yaml:"dist"`
}

// ToPrior converts p into the mcmodel.Prior the Ensemble samples from.
func (p PriorConfig) ToPrior() (mcmodel.Prior, error) {
	var dist mcmodel.Distribution
	switch p.Dist {
	case "", "uniform":
		dist = mcmodel.Uniform
	case "log-uniform":
		dist = mcmodel.LogUniform
	default:
		return mcmodel.Prior{}, mcerr.Newf(mcerr.ConfigInvalid, "runconfig: unknown distribution %q", p.Dist)
	}
	if p.Low <= 0 && dist == mcmodel.LogUniform {
		return mcmodel.Prior{}, mcerr.Newf(mcerr.ConfigInvalid, "runconfig: log-uniform prior requires low > 0, got %g", p.Low)
	}
	if p.High <= p.Low {
		return mcmodel.Prior{}, mcerr.Newf(mcerr.ConfigInvalid, "runconfig: prior high (%g) must exceed low (%g)", p.High, p.Low)
	}
	return mcmodel.Prior{Low: p.Low, High: p.High, Dist: dist}, nil
}

// FitNDoF is the default degrees-of-freedom charge for the OSB's linear
// scale+background fit (ν = 2, per spec.md §4.1).
const FitNDoF = 2

// RunConfig is the set of options a run needs, as read from
// --runConfigFile.
type RunConfig struct {
	ModelName          string                 `yaml:"modelName"`
	NContrib           int                    `yaml:"nContrib"`
	NRep               int                    `yaml:"nRep"`
	StaticParameters   map[string]float64     `yaml:"staticParameters"`
	FitParameterLimits map[string]PriorConfig `yaml:"fitParameterLimits"`
	MaxIter            int                    `yaml:"maxIter"`
	MaxAccept          int                    `yaml:"maxAccept"`
	ConvCrit           float64                `yaml:"convCrit"`
	Seed               *uint64                `yaml:"seed"`
	FitNDoF            int                    `yaml:"fitNDoF"`
}

// Validate checks RunConfig's fields and fills in defaults (FitNDoF).
func (c *RunConfig) Validate() error {
	if c.NContrib < 1 {
		return mcerr.Newf(mcerr.ConfigInvalid, "runconfig: nContrib must be >= 1, got %d", c.NContrib)
	}
	if c.NRep < 1 {
		return mcerr.Newf(mcerr.ConfigInvalid, "runconfig: nRep must be >= 1, got %d", c.NRep)
	}
	if len(c.FitParameterLimits) == 0 {
		return mcerr.Newf(mcerr.ConfigInvalid, "runconfig: at least one fit parameter is required")
	}
	for name := range c.FitParameterLimits {
		if _, clash := c.StaticParameters[name]; clash {
			return mcerr.Newf(mcerr.ConfigInvalid, "runconfig: %q is both a fit and a static parameter", name)
		}
	}
	if c.MaxIter < 1 {
		return mcerr.Newf(mcerr.ConfigInvalid, "runconfig: maxIter must be >= 1, got %d", c.MaxIter)
	}
	if c.MaxAccept < 1 {
		return mcerr.Newf(mcerr.ConfigInvalid, "runconfig: maxAccept must be >= 1, got %d", c.MaxAccept)
	}
	if c.ConvCrit <= 0 {
		return mcerr.Newf(mcerr.ConfigInvalid, "runconfig: convCrit must be > 0, got %g", c.ConvCrit)
	}
	if c.FitNDoF <= 0 {
		c.FitNDoF = FitNDoF
	}
	return nil
}

// Priors converts FitParameterLimits into the mcmodel.Prior map the
// Ensemble is constructed from.
func (c *RunConfig) Priors() (map[string]mcmodel.Prior, error) {
	out := make(map[string]mcmodel.Prior, len(c.FitParameterLimits))
	for name, pc := range c.FitParameterLimits {
		p, err := pc.ToPrior()
		if err != nil {
			return nil, err
		}
		out[name] = p
	}
	return out, nil
}

// LoadRunConfig reads and validates a RunConfig from filename.
func LoadRunConfig(filename string) (*RunConfig, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, mcerr.New(mcerr.ConfigInvalid, err)
	}
	var c RunConfig
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, mcerr.New(mcerr.ConfigInvalid, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// BinScale is the spacing a HistRange's bins are laid out in.
type BinScale int

const (
	// Lin lays out bins uniformly in linear space.
	Lin BinScale = iota
	// Log lays out bins uniformly in log space.
	Log
)

// Weighting is how a contribution's histogram weight is derived.
type Weighting int

const (
	// WeightVolume weights a contribution by its volume.
	WeightVolume Weighting = iota
	// WeightNumber weights every contribution equally (1).
	WeightNumber
	// WeightVolumeSquared weights a contribution by its squared volume.
	WeightVolumeSquared
)

// HistRange is one row of the histogram configuration: the parameter to
// project, its range and bin layout, and the weighting rule.
type HistRange struct {
	Parameter  string
	RangeMin   float64
	RangeMax   float64
	NBins      int
	BinScale   BinScale
	Weighting  Weighting
	Presamples int
}

// histRangeYAML is the on-disk shape of a HistRange: string tags for the
// enum fields, matching the rest of the YAML surface's convention of
// human-readable tags over raw integers.
type histRangeYAML struct {
	Parameter  string  `yaml:"parameter"`
	RangeMin   float64 `yaml:"rangeMin"`
	RangeMax   float64 `yaml:"rangeMax"`
	NBins      int     `yaml:"nBins"`
	BinScale   string  `yaml:"binScale"`
	Weighting  string  `yaml:"weighting"`
	Presamples int     `yaml:"presamples"`
}

// UnmarshalYAML decodes a HistRange from its human-readable YAML form.
func (h *HistRange) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var y histRangeYAML
	if err := unmarshal(&y); err != nil {
		return err
	}
	h.Parameter = y.Parameter
	h.RangeMin = y.RangeMin
	h.RangeMax = y.RangeMax
	h.NBins = y.NBins
	h.Presamples = y.Presamples

	switch y.BinScale {
	case "", "lin":
		h.BinScale = Lin
	case "log":
		h.BinScale = Log
	default:
		return mcerr.Newf(mcerr.ConfigInvalid, "runconfig: unknown binScale %q", y.BinScale)
	}

	switch y.Weighting {
	case "", "vol":
		h.Weighting = WeightVolume
	case "num":
		h.Weighting = WeightNumber
	case "vol2", "vol²":
		h.Weighting = WeightVolumeSquared
	default:
		return mcerr.Newf(mcerr.ConfigInvalid, "runconfig: unknown weighting %q", y.Weighting)
	}
	return nil
}

// Validate checks a HistRange's fields (nBins >= 1, rangeMin < rangeMax,
// parameter name non-empty).
func (h HistRange) Validate() error {
	if h.Parameter == "" {
		return mcerr.Newf(mcerr.ConfigInvalid, "runconfig: HistRange parameter name must not be empty")
	}
	if h.NBins < 1 {
		return mcerr.Newf(mcerr.ConfigInvalid, "runconfig: HistRange nBins must be >= 1, got %d", h.NBins)
	}
	if !(h.RangeMin < h.RangeMax) {
		return mcerr.Newf(mcerr.ConfigInvalid, "runconfig: HistRange rangeMin (%g) must be < rangeMax (%g)", h.RangeMin, h.RangeMax)
	}
	if h.BinScale == Log && h.RangeMin <= 0 {
		return mcerr.Newf(mcerr.ConfigInvalid, "runconfig: log-scale HistRange requires rangeMin > 0, got %g", h.RangeMin)
	}
	return nil
}

// LoadHistConfig reads and validates a list of HistRanges from filename.
func LoadHistConfig(filename string) ([]HistRange, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, mcerr.New(mcerr.ConfigInvalid, err)
	}
	var ranges []HistRange
	if err := yaml.Unmarshal(b, &ranges); err != nil {
		return nil, mcerr.New(mcerr.ConfigInvalid, err)
	}
	for _, r := range ranges {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	return ranges, nil
}
