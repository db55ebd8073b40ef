package risk

import (
	"math"
	"time"

	"github.com/urbansafe/risk-engine/internal/domain"
)

// Feature vector indices. The order is part of the refinement model's
// contract: vectors built at training time and at prediction time must agree
// positionally, so never reorder or renumber these.
const (
	FeatIncidentDensity    = iota // incidents per km² within the radius
	FeatRecentActivity            // fraction of nearby incidents in the last 24h
	FeatVeryRecentActivity        // fraction of nearby incidents in the last hour
	FeatNightRatio                // fraction with night-hour timestamps
	FeatWeekendRatio              // fraction with weekend timestamps
	FeatTypeDiversity             // distinct types / count
	FeatAvgTimeRisk               // mean TimeRisk over nearby incidents
	FeatCurrentTimeRisk           // TimeRisk at the query time
	FeatIsWeekend                 // 1 if the query time is Sat/Sun
	FeatCurrentHour               // query hour / 24
	FeatCurrentDayOfWeek          // query weekday / 6 (Sunday = 0)

	NumFeatures
)

// FeatureVector is the fixed-order numeric encoding of a (point, snapshot,
// now) triple. Computed fresh per query, never cached or persisted.
type FeatureVector [NumFeatures]float64

// Features pairs a feature vector with the raw counts surfaced in the
// factors breakdown of a risk score.
type Features struct {
	Vector        FeatureVector
	IncidentCount int // incidents within the radius
	RecentCount   int // of those, within the last 24h
}

// ExtractFeatures computes the feature vector for a target point from the
// given candidate incidents. Candidates may be a superset of the incidents
// within the radius (e.g. an R-tree rectangle query); the exact Haversine
// filter is applied here. All ratios are 0 when no incident falls inside
// the radius.
func ExtractFeatures(candidates []domain.Incident, lat, lon, radiusKm float64, now time.Time) Features {
	dayAgo := now.Add(-24 * time.Hour)
	hourAgo := now.Add(-time.Hour)

	var (
		count      int
		recent     int
		veryRecent int
		night      int
		weekend    int
		totalRisk  float64
	)
	types := make(map[string]struct{})

	for i := range candidates {
		inc := &candidates[i]
		if DistanceKm(lat, lon, inc.Latitude, inc.Longitude) > radiusKm {
			continue
		}
		count++
		if !inc.Timestamp.Before(dayAgo) {
			recent++
		}
		if !inc.Timestamp.Before(hourAgo) {
			veryRecent++
		}
		if isNightHour(inc.Timestamp.Hour()) {
			night++
		}
		if isWeekend(inc.Timestamp) {
			weekend++
		}
		types[inc.Type] = struct{}{}
		totalRisk += TimeRisk(inc.Timestamp)
	}

	// max(count, 1) keeps every ratio at 0 for an empty neighborhood.
	denom := float64(max(count, 1))

	var v FeatureVector
	v[FeatIncidentDensity] = float64(count) / (math.Pi * radiusKm * radiusKm)
	v[FeatRecentActivity] = float64(recent) / denom
	v[FeatVeryRecentActivity] = float64(veryRecent) / denom
	v[FeatNightRatio] = float64(night) / denom
	v[FeatWeekendRatio] = float64(weekend) / denom
	v[FeatTypeDiversity] = float64(len(types)) / denom
	v[FeatAvgTimeRisk] = totalRisk / denom
	v[FeatCurrentTimeRisk] = TimeRisk(now)
	if isWeekend(now) {
		v[FeatIsWeekend] = 1
	}
	v[FeatCurrentHour] = float64(now.Hour()) / 24
	v[FeatCurrentDayOfWeek] = float64(now.Weekday()) / 6

	return Features{Vector: v, IncidentCount: count, RecentCount: recent}
}
