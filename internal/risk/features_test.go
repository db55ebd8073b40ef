package risk_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/urbansafe/risk-engine/internal/domain"
	"github.com/urbansafe/risk-engine/internal/risk"
)

const (
	centerLat = 40.7128
	centerLon = -74.0060
)

func incidentAt(lat, lon float64, incType string, ts time.Time) domain.Incident {
	return domain.Incident{
		ID:        incType + ts.Format(time.RFC3339Nano),
		Type:      incType,
		Latitude:  lat,
		Longitude: lon,
		Timestamp: ts,
	}
}

func TestExtractFeatures_EmptyNeighborhood(t *testing.T) {
	now := at(weekday, 12)

	feats := risk.ExtractFeatures(nil, centerLat, centerLon, 1.0, now)

	assert.Zero(t, feats.IncidentCount)
	assert.Zero(t, feats.RecentCount)
	assert.Zero(t, feats.Vector[risk.FeatIncidentDensity])
	assert.Zero(t, feats.Vector[risk.FeatRecentActivity])
	assert.Zero(t, feats.Vector[risk.FeatNightRatio])
	assert.Zero(t, feats.Vector[risk.FeatTypeDiversity])
	assert.Zero(t, feats.Vector[risk.FeatAvgTimeRisk])

	// Query-time features are present even without incidents.
	assert.InEpsilon(t, 1.0, feats.Vector[risk.FeatCurrentTimeRisk], 1e-9)
	assert.Zero(t, feats.Vector[risk.FeatIsWeekend])
	assert.InEpsilon(t, 12.0/24, feats.Vector[risk.FeatCurrentHour], 1e-9)
}

func TestExtractFeatures_CountsAndRatios(t *testing.T) {
	now := at(weekday, 12) // Wednesday 12:30 UTC

	candidates := []domain.Incident{
		// Same point, 30 minutes old: recent and very recent.
		incidentAt(centerLat, centerLon, "theft", now.Add(-30*time.Minute)),
		// ~0.44 km north, 10.5 hours old (02:00, a night hour): recent only.
		incidentAt(centerLat+0.004, centerLon, "theft", now.Add(-10*time.Hour-30*time.Minute)),
		// ~0.42 km east, two days old at noon: neither recent nor night.
		incidentAt(centerLat, centerLon+0.005, "vandalism", now.Add(-48*time.Hour-30*time.Minute)),
		// ~55 km north: outside the radius, must be ignored.
		incidentAt(centerLat+0.5, centerLon, "assault", now.Add(-time.Minute)),
	}

	feats := risk.ExtractFeatures(candidates, centerLat, centerLon, 1.0, now)

	assert.Equal(t, 3, feats.IncidentCount)
	assert.Equal(t, 2, feats.RecentCount)

	v := feats.Vector
	assert.InEpsilon(t, 3/(3.14159265*1*1), v[risk.FeatIncidentDensity], 1e-6)
	assert.InEpsilon(t, 2.0/3, v[risk.FeatRecentActivity], 1e-9)
	assert.InEpsilon(t, 1.0/3, v[risk.FeatVeryRecentActivity], 1e-9)
	assert.InEpsilon(t, 1.0/3, v[risk.FeatNightRatio], 1e-9)
	assert.Zero(t, v[risk.FeatWeekendRatio])
	assert.InEpsilon(t, 2.0/3, v[risk.FeatTypeDiversity], 1e-9)
	// Time risks: 1.0 (12:00 Wed) + 2.5 (02:00 Wed) + 1.0 (12:00 Mon).
	assert.InEpsilon(t, 4.5/3, v[risk.FeatAvgTimeRisk], 1e-9)
}

func TestExtractFeatures_WeekendQueryTime(t *testing.T) {
	now := at(weekend, 23) // Saturday 23:30 UTC

	feats := risk.ExtractFeatures(nil, centerLat, centerLon, 1.0, now)

	assert.Equal(t, 1.0, feats.Vector[risk.FeatIsWeekend])
	assert.InEpsilon(t, 2.5*1.3, feats.Vector[risk.FeatCurrentTimeRisk], 1e-9)
	assert.InEpsilon(t, 6.0/6, feats.Vector[risk.FeatCurrentDayOfWeek], 1e-9)
}
