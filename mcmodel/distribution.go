package mcmodel

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Distribution tags how a fit parameter's prior is sampled. A tagged
// variant, per the design note, rather than string dispatch.
type Distribution int

const (
	// Uniform samples linearly between Low and High.
	Uniform Distribution = iota
	// LogUniform samples uniformly in log-space between Low and High.
	LogUniform
)

// Prior is the random-pick bound and distribution for one fit parameter.
type Prior struct {
	Low, High float64
	Dist      Distribution
}

// Sample draws one value from the prior using rnd as the entropy source.
func (p Prior) Sample(rnd *rand.Rand) float64 {
	switch p.Dist {
	case LogUniform:
		u := distuv.Uniform{Min: math.Log(p.Low), Max: math.Log(p.High), Src: rnd}
		return math.Exp(u.Rand())
	default:
		u := distuv.Uniform{Min: p.Low, Max: p.High, Src: rnd}
		return u.Rand()
	}
}
