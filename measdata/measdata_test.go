package measdata_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcsas3/mcsas3-go/mcerr"
	"github.com/mcsas3/mcsas3-go/measdata"
)

func TestNewValid(t *testing.T) {
	md, err := measdata.New([]float64{0.1, 0.2, 0.3}, []float64{10, 5, 2}, []float64{1, 1, 1})
	assert.NoError(t, err)
	assert.Equal(t, 3, md.Len())
}

func TestNewRejectsLengthMismatch(t *testing.T) {
	_, err := measdata.New([]float64{0.1, 0.2}, []float64{10}, []float64{1, 1})
	assert.True(t, mcerr.Is(err, mcerr.DataInvalid))
}

func TestNewRejectsNonIncreasingQ(t *testing.T) {
	_, err := measdata.New([]float64{0.2, 0.1}, []float64{10, 5}, []float64{1, 1})
	assert.True(t, mcerr.Is(err, mcerr.DataInvalid))
}

func TestNewRejectsNonPositiveQ(t *testing.T) {
	_, err := measdata.New([]float64{0, 0.1}, []float64{10, 5}, []float64{1, 1})
	assert.True(t, mcerr.Is(err, mcerr.DataInvalid))
}

func TestNewRejectsNegativeSigma(t *testing.T) {
	_, err := measdata.New([]float64{0.1, 0.2}, []float64{10, 5}, []float64{1, -1})
	assert.True(t, mcerr.Is(err, mcerr.DataInvalid))
}

func TestNewCopiesInput(t *testing.T) {
	q := []float64{0.1, 0.2}
	md, err := measdata.New(q, []float64{10, 5}, []float64{1, 1})
	assert.NoError(t, err)
	q[0] = 99
	assert.Equal(t, 0.1, md.Q[0])
}
