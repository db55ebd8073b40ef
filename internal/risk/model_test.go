package risk

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbansafe/risk-engine/internal/domain"
	"github.com/urbansafe/risk-engine/internal/observability"
)

func newTestScorer() *Scorer {
	return NewScorer(discardLogger(), observability.NewMetricsForTesting())
}

// trainingIncidents spreads incidents over a wide enough area that the
// training grid produces a usable number of samples.
func trainingIncidents(n int, now time.Time) []domain.Incident {
	incidents := make([]domain.Incident, 0, n)
	for i := 0; i < n; i++ {
		incidents = append(incidents, domain.Incident{
			ID:        string(rune('a' + i)),
			Type:      "theft",
			Latitude:  40.70 + float64(i)*0.005,
			Longitude: -74.00 + float64(i)*0.005,
			Timestamp: now.Add(-time.Duration(i+1) * time.Hour),
		})
	}
	return incidents
}

func TestFitRefinement_RecoversLinearRelation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	linear := func(v FeatureVector) float64 {
		return 0.3*v[FeatIncidentDensity] + 0.2*v[FeatRecentActivity] + 0.1
	}

	samples := make([]FeatureVector, 30)
	labels := make([]float64, 30)
	for i := range samples {
		for j := range samples[i] {
			samples[i][j] = rng.Float64()
		}
		labels[i] = linear(samples[i])
	}

	m, err := fitRefinement(samples, labels)
	require.NoError(t, err)

	var probe FeatureVector
	for j := range probe {
		probe[j] = rng.Float64()
	}
	got, err := m.predict(probe)
	require.NoError(t, err)
	assert.InDelta(t, linear(probe)*100, got, 0.01)
}

func TestFitRefinement_CollinearColumns(t *testing.T) {
	// Every sample shares the same query time, so the trailing features are
	// constant and collinear with the intercept. The fit must still succeed.
	samples := make([]FeatureVector, 10)
	labels := make([]float64, 10)
	for i := range samples {
		samples[i][FeatIncidentDensity] = float64(i) / 10
		samples[i][FeatCurrentTimeRisk] = 1.0
		samples[i][FeatCurrentHour] = 0.5
		labels[i] = float64(i) / 20
	}

	m, err := fitRefinement(samples, labels)
	require.NoError(t, err)

	got, err := m.predict(samples[5])
	require.NoError(t, err)
	assert.InDelta(t, labels[5]*100, got, 0.1)
}

func TestPredict_ClampsToRange(t *testing.T) {
	var high refinementModel
	high.coef[NumFeatures] = 5 // intercept alone predicts 500
	got, err := high.predict(FeatureVector{})
	require.NoError(t, err)
	assert.Equal(t, 100.0, got)

	var low refinementModel
	low.coef[NumFeatures] = -5
	got, err = low.predict(FeatureVector{})
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestMaybeTrain_InsufficientIncidents(t *testing.T) {
	s := newTestScorer()
	now := time.Date(2024, time.April, 24, 12, 0, 0, 0, time.UTC)

	s.MaybeTrain(trainingIncidents(3, now), now)

	assert.False(t, s.Status().Trained)
	assert.Nil(t, s.Status().LastTrainedAt)
}

func TestMaybeTrain_TrainsWithEnoughData(t *testing.T) {
	s := newTestScorer()
	now := time.Date(2024, time.April, 24, 12, 0, 0, 0, time.UTC)

	s.MaybeTrain(trainingIncidents(10, now), now)

	status := s.Status()
	require.True(t, status.Trained)
	require.NotNil(t, status.LastTrainedAt)
	assert.Equal(t, now, *status.LastTrainedAt)
	assert.Equal(t, "least-squares refinement", status.ModelType)

	result := s.Score(FeatureVector{})
	assert.Equal(t, ScoreMethodModel, result.Method)
	assert.Empty(t, result.Reason)
}

func TestMaybeTrain_RespectsRetrainInterval(t *testing.T) {
	s := newTestScorer()
	now := time.Date(2024, time.April, 24, 12, 0, 0, 0, time.UTC)

	s.MaybeTrain(trainingIncidents(10, now), now)
	require.True(t, s.Status().Trained)

	// Within the interval nothing retrains, even with fresh data.
	s.MaybeTrain(trainingIncidents(12, now), now.Add(time.Hour))
	assert.Equal(t, now, *s.Status().LastTrainedAt)

	// Past the interval a retrain attempt with too little data keeps the
	// previous model in place.
	s.MaybeTrain(nil, now.Add(25*time.Hour))
	assert.True(t, s.Status().Trained)
	assert.Equal(t, now, *s.Status().LastTrainedAt)
}
