package osb_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcsas3/mcsas3-go/mcerr"
	"github.com/mcsas3/mcsas3-go/osb"
)

func TestMatchRecoversExactLinearRelation(t *testing.T) {
	m := []float64{1, 2, 3, 4, 5}
	const trueScale, trueBg = 2.5, 1.1
	i := make([]float64, len(m))
	sigma := make([]float64, len(m))
	for k, mv := range m {
		i[k] = trueScale*mv + trueBg
		sigma[k] = 0.01
	}

	s, err := osb.New(i, sigma, 2)
	assert.NoError(t, err)

	x, gof, err := s.Match(m, [2]float64{1, 0})
	assert.NoError(t, err)
	assert.InDelta(t, trueScale, x[0], 1e-6)
	assert.InDelta(t, trueBg, x[1], 1e-6)
	assert.InDelta(t, 0, gof, 1e-6)
}

func TestMatchExcludesZeroSigmaPoints(t *testing.T) {
	m := []float64{1, 2, 3}
	i := []float64{2, 4, 6}
	sigma := []float64{0.1, 0, 0.1}

	s, err := osb.New(i, sigma, 2)
	assert.NoError(t, err)
	x, gof, err := s.Match(m, [2]float64{1, 0})
	assert.NoError(t, err)
	assert.InDelta(t, 2, x[0], 1e-6)
	assert.False(t, math.IsNaN(gof))
}

func TestMatchReportsIllConditionedOnConstantModel(t *testing.T) {
	// A constant model intensity cannot separate scale from background:
	// the normal matrix is singular.
	m := []float64{5, 5, 5, 5}
	i := []float64{1, 2, 3, 4}
	sigma := []float64{1, 1, 1, 1}

	s, err := osb.New(i, sigma, 2)
	assert.NoError(t, err)
	_, _, err = s.Match(m, [2]float64{1, 0})
	assert.True(t, mcerr.Is(err, mcerr.IllConditioned))
}

func TestMatchReportsIllConditionedOnInsufficientDoF(t *testing.T) {
	m := []float64{1, 2}
	i := []float64{1, 2}
	sigma := []float64{1, 1}

	s, err := osb.New(i, sigma, 2)
	assert.NoError(t, err)
	_, _, err = s.Match(m, [2]float64{1, 0})
	assert.True(t, mcerr.Is(err, mcerr.IllConditioned))
}
