package risk

import (
	"iter"

	"github.com/urbansafe/risk-engine/internal/domain"
)

// BoundingBox is a north/south/east/west rectangle in decimal degrees.
// Date-line wrapping (west > east across ±180°) is not handled.
type BoundingBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// GridPoint is one sample location on the scoring grid.
type GridPoint struct {
	Lat float64
	Lon float64
}

// DefaultGridStep is ~1.1 km of latitude at the equator. Longitude spacing
// shrinks with meridian convergence at higher latitudes; the distortion is
// accepted, not corrected.
const DefaultGridStep = 0.01

// Grid returns a lazy, restartable sequence of evenly spaced sample points:
// lat steps south→north inclusive, and nested, lon steps west→east
// inclusive. Deterministic for identical bounds and step. Degenerate bounds
// (north <= south or east <= west) or a non-positive step yield an empty
// sequence rather than an error.
func Grid(bounds BoundingBox, step float64) iter.Seq[GridPoint] {
	return func(yield func(GridPoint) bool) {
		if step <= 0 || bounds.North <= bounds.South || bounds.East <= bounds.West {
			return
		}
		for lat := bounds.South; lat <= bounds.North; lat += step {
			for lon := bounds.West; lon <= bounds.East; lon += step {
				if !yield(GridPoint{Lat: lat, Lon: lon}) {
					return
				}
			}
		}
	}
}

// boundsPadding expands auto-computed bounds so edge incidents still get a
// ring of grid points around them.
const boundsPadding = 0.01

// BoundsFromIncidents computes the coordinate extrema of the incident set
// expanded by 0.01° in each direction. Callers must pass a non-empty slice.
func BoundsFromIncidents(incidents []domain.Incident) BoundingBox {
	b := BoundingBox{
		North: incidents[0].Latitude,
		South: incidents[0].Latitude,
		East:  incidents[0].Longitude,
		West:  incidents[0].Longitude,
	}
	for _, inc := range incidents[1:] {
		b.North = max(b.North, inc.Latitude)
		b.South = min(b.South, inc.Latitude)
		b.East = max(b.East, inc.Longitude)
		b.West = min(b.West, inc.Longitude)
	}
	b.North += boundsPadding
	b.South -= boundsPadding
	b.East += boundsPadding
	b.West -= boundsPadding
	return b
}
