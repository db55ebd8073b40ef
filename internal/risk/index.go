package risk

import (
	"math"

	"github.com/dhconnelly/rtreego"

	"github.com/urbansafe/risk-engine/internal/domain"
)

const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
	rtreeDimensions  = 2

	// kmPerDegreeLat converts a kilometer radius into a latitude span for
	// the rectangle pre-filter. Slightly undersized values would drop
	// incidents near the rectangle edge, so the conversion stays generous.
	kmPerDegreeLat = 110.574
)

// IncidentIndex is an immutable R-tree over one incident snapshot. It is
// built once per engine call and shared by every grid-point lookup in that
// call; concurrent reads are safe because nothing mutates it after New.
type IncidentIndex struct {
	tree *rtreego.Rtree
}

type indexEntry struct {
	incident domain.Incident
	rect     *rtreego.Rect
}

func (e *indexEntry) Bounds() *rtreego.Rect {
	return e.rect
}

// NewIncidentIndex builds an R-tree over the snapshot. Incidents with
// non-finite coordinates are skipped; the engine's contract assumes
// well-formed inputs, so dropping them beats crashing the tree.
func NewIncidentIndex(incidents []domain.Incident) *IncidentIndex {
	tree := rtreego.NewTree(rtreeDimensions, rtreeMinChildren, rtreeMaxChildren)
	for i := range incidents {
		lat, lon := incidents[i].Latitude, incidents[i].Longitude
		if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
			continue
		}
		p := rtreego.Point{lat, lon}
		tree.Insert(&indexEntry{incident: incidents[i], rect: p.ToRect(0)})
	}
	return &IncidentIndex{tree: tree}
}

// Candidates returns every incident whose coordinates fall inside the
// degree rectangle covering a radiusKm circle around the point. The result
// is a superset of the incidents actually within the radius; callers apply
// the exact Haversine filter.
func (ix *IncidentIndex) Candidates(lat, lon, radiusKm float64) []domain.Incident {
	latDelta := radiusKm / kmPerDegreeLat

	// Longitude degrees shrink with latitude. Clamp the cosine away from
	// zero so polar queries degrade to a wide rectangle instead of dividing
	// by ~0.
	cosLat := math.Cos(toRadians(lat))
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lonDelta := radiusKm / (kmPerDegreeLat * cosLat)

	rect, err := rtreego.NewRect(
		rtreego.Point{lat - latDelta, lon - lonDelta},
		[]float64{2 * latDelta, 2 * lonDelta},
	)
	if err != nil {
		return nil
	}

	results := ix.tree.SearchIntersect(rect)
	candidates := make([]domain.Incident, 0, len(results))
	for _, r := range results {
		entry, ok := r.(*indexEntry)
		if !ok {
			continue
		}
		candidates = append(candidates, entry.incident)
	}
	return candidates
}
