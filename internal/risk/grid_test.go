package risk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbansafe/risk-engine/internal/domain"
	"github.com/urbansafe/risk-engine/internal/risk"
)

func collect(bounds risk.BoundingBox, step float64) []risk.GridPoint {
	var pts []risk.GridPoint
	for pt := range risk.Grid(bounds, step) {
		pts = append(pts, pt)
	}
	return pts
}

func TestGrid_InclusiveBounds(t *testing.T) {
	bounds := risk.BoundingBox{North: 1, South: 0, East: 1, West: 0}
	pts := collect(bounds, 0.5)

	require.Len(t, pts, 9, "3x3 grid over a unit square at step 0.5")

	want := []risk.GridPoint{
		{Lat: 0, Lon: 0}, {Lat: 0, Lon: 0.5}, {Lat: 0, Lon: 1},
		{Lat: 0.5, Lon: 0}, {Lat: 0.5, Lon: 0.5}, {Lat: 0.5, Lon: 1},
		{Lat: 1, Lon: 0}, {Lat: 1, Lon: 0.5}, {Lat: 1, Lon: 1},
	}
	assert.Equal(t, want, pts, "south to north, west to east")
}

func TestGrid_DegenerateBounds(t *testing.T) {
	tests := []struct {
		name   string
		bounds risk.BoundingBox
		step   float64
	}{
		{"zero-height box", risk.BoundingBox{North: 1, South: 1, East: 2, West: 0}, 0.5},
		{"inverted latitudes", risk.BoundingBox{North: 0, South: 1, East: 2, West: 0}, 0.5},
		{"zero-width box", risk.BoundingBox{North: 1, South: 0, East: 2, West: 2}, 0.5},
		{"zero step", risk.BoundingBox{North: 1, South: 0, East: 1, West: 0}, 0},
		{"negative step", risk.BoundingBox{North: 1, South: 0, East: 1, West: 0}, -0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, collect(tt.bounds, tt.step))
		})
	}
}

func TestGrid_Restartable(t *testing.T) {
	bounds := risk.BoundingBox{North: 1, South: 0, East: 1, West: 0}
	seq := risk.Grid(bounds, 0.25)

	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	assert.Equal(t, first, second, "the sequence can be iterated more than once")
	assert.Equal(t, 25, first)
}

func TestGrid_EarlyBreak(t *testing.T) {
	bounds := risk.BoundingBox{North: 1, South: 0, East: 1, West: 0}

	n := 0
	for range risk.Grid(bounds, 0.5) {
		n++
		if n == 4 {
			break
		}
	}
	assert.Equal(t, 4, n)
}

func TestBoundsFromIncidents(t *testing.T) {
	incidents := []domain.Incident{
		{Latitude: 40.70, Longitude: -74.02},
		{Latitude: 40.75, Longitude: -73.98},
		{Latitude: 40.72, Longitude: -74.00},
	}

	b := risk.BoundsFromIncidents(incidents)

	assert.InEpsilon(t, 40.76, b.North, 1e-9)
	assert.InEpsilon(t, 40.69, b.South, 1e-9)
	assert.InEpsilon(t, -73.97, b.East, 1e-9)
	assert.InEpsilon(t, -74.03, b.West, 1e-9)
}

func TestBoundsFromIncidents_SingleIncident(t *testing.T) {
	b := risk.BoundsFromIncidents([]domain.Incident{{Latitude: 40.7128, Longitude: -74.0060}})

	// Padding turns a single point into a box a grid can cover.
	assert.Greater(t, b.North, b.South)
	assert.Greater(t, b.East, b.West)
	assert.NotEmpty(t, collect(b, risk.DefaultGridStep))
}
