package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcsas3/mcsas3-go/store"
)

func TestMemStoreRoundTrip(t *testing.T) {
	s := store.NewMemStore()
	path := store.ModelPath(1, 3)

	assert.NoError(t, s.PutScalar(path, "nContrib", 200))
	assert.NoError(t, s.PutArray(path, "volumes", []float64{1, 2, 3}))

	v, err := s.GetScalar(path, "nContrib")
	assert.NoError(t, err)
	assert.Equal(t, 200.0, v)

	arr, err := s.GetArray(path, "volumes")
	assert.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, arr)
}

func TestMemStoreGroupsDiscoversRepetitions(t *testing.T) {
	s := store.NewMemStore()
	for _, r := range []int{0, 2, 5} {
		assert.NoError(t, s.PutScalar(store.ModelPath(1, r), "nContrib", 10))
	}
	groups, err := s.Groups(store.ModelGroupPath(1))
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"repetition0", "repetition2", "repetition5"}, groups)

	for _, g := range groups {
		idx, ok := store.ParseRepetitionIndex(g)
		assert.True(t, ok)
		assert.Contains(t, []int{0, 2, 5}, idx)
	}
}

func TestFileStorePersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "result.mcsas3")

	fs, err := store.Open(file)
	assert.NoError(t, err)
	assert.NoError(t, fs.PutScalar("/entry1/analysis/MCResult1/optimization/repetition0", "gof", 1.23))
	assert.NoError(t, fs.PutArray("/entry1/analysis/MCResult1/model/repetition0", "volumes", []float64{4, 5, 6}))

	reopened, err := store.Open(file)
	assert.NoError(t, err)
	v, err := reopened.GetScalar("/entry1/analysis/MCResult1/optimization/repetition0", "gof")
	assert.NoError(t, err)
	assert.InDelta(t, 1.23, v, 1e-12)

	arr, err := reopened.GetArray("/entry1/analysis/MCResult1/model/repetition0", "volumes")
	assert.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 6}, arr)
}
