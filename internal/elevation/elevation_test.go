package elevation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMissingDirectoryYieldsEmptyAlwaysMissMap(t *testing.T) {
	m, err := New("/nonexistent/path/underpass-elevation-test")
	require.NoError(t, err)

	_, err = m.Lookup(0, 0)
	require.ErrorIs(t, err, ErrCoordNotFound)
}

func TestLookupWithNoIndexedTilesIsAlwaysAMiss(t *testing.T) {
	m := &Map{datasets: make(map[string]*datasetHandle)}

	_, err := m.Lookup(13.4, 52.5)
	require.True(t, errors.Is(err, ErrCoordNotFound))
}

func TestCoveringTileReportsMissOutsideAnyIndexedBounds(t *testing.T) {
	m := &Map{datasets: make(map[string]*datasetHandle)}
	m.tree.Insert([2]float64{0, 0}, [2]float64{1, 1}, "tile-a.tif")

	_, ok := m.coveringTile(5, 5)
	require.False(t, ok)

	path, ok := m.coveringTile(0.5, 0.5)
	require.True(t, ok)
	require.Equal(t, "tile-a.tif", path)
}

func TestHandleForReturnsTheSameHandleForARepeatedPath(t *testing.T) {
	m := &Map{datasets: make(map[string]*datasetHandle)}
	a := m.handleFor("tile.tif")
	b := m.handleFor("tile.tif")
	require.Same(t, a, b)
}
