package partition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func polyArea(p []vec) float64 {
	a := 0.0
	for i := range p {
		j := (i + 1) % len(p)
		a += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return math.Abs(a) / 2
}

var unitBox = []vec{{0, 0}, {10, 0}, {10, 10}, {0, 10}}

func TestVoronoiCells_TwoSeeds(t *testing.T) {
	cells := voronoiCells([]vec{{2, 5}, {8, 5}}, unitBox)
	require.Len(t, cells, 2)
	assert.InDelta(t, 50, polyArea(cells[0]), 1e-9)
	assert.InDelta(t, 50, polyArea(cells[1]), 1e-9)
	for _, v := range cells[0] {
		assert.LessOrEqual(t, v.X, 5+1e-9)
	}
}

func TestVoronoiCells_PartitionBox(t *testing.T) {
	seeds := []vec{{1, 1}, {9, 2}, {5, 5}, {2, 8}, {7, 9}, {4, 3}}
	cells := voronoiCells(seeds, unitBox)

	total := 0.0
	for i, c := range cells {
		require.GreaterOrEqual(t, len(c), 3, "cell %d", i)
		total += polyArea(c)
	}
	assert.InDelta(t, 100, total, 1e-6)
}

func TestVoronoiCells_SingleSeed(t *testing.T) {
	cells := voronoiCells([]vec{{3, 3}}, unitBox)
	require.Len(t, cells, 1)
	assert.InDelta(t, 100, polyArea(cells[0]), 1e-9)
}

func TestClipHalfPlane(t *testing.T) {
	half := clipHalfPlane(unitBox, vec{5, 0}, vec{5, 10})
	assert.InDelta(t, 50, polyArea(half), 1e-9)

	// The box lies entirely on the far side of the bisector.
	assert.Nil(t, clipHalfPlane(unitBox, vec{-20, 5}, vec{-10, 5}))
}

func TestDedupe(t *testing.T) {
	pts := dedupe([]vec{{0, 0}, {1, 1}, {0, 1e-9}, {1, 1}}, 1e-6)
	assert.Equal(t, []vec{{0, 0}, {1, 1}}, pts)
}
