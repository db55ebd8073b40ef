package risk

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/urbansafe/risk-engine/internal/domain"
)

// Training policy. Labels are rule scores normalized to [0,1], sampled on a
// grid twice as coarse as the scoring grid to keep training cheap.
const (
	retrainInterval      = 24 * time.Hour
	minTrainingIncidents = 10
	minTrainingSamples   = 5
	trainingGridStep     = 0.02
)

// ridgeLambda regularizes the normal equations. Feature columns can be
// collinear (every training sample shares the same query time, so the
// time-of-query features are constant), which makes a plain least-squares
// solve rank deficient.
const ridgeLambda = 1e-6

// refinementModel is a linear least-squares fit over the feature vector plus
// an intercept term. Immutable after fitting; shared across goroutines via
// the Scorer's atomic pointer.
type refinementModel struct {
	coef [NumFeatures + 1]float64 // intercept last
}

// fitRefinement fits the least-squares problem X·β ≈ y where each row of X
// is a feature vector with a trailing 1 for the intercept and y holds
// normalized rule scores. It solves the ridge-regularized normal equations
// (XᵀX + λI)·β = Xᵀy so the solve stays well posed for collinear columns.
func fitRefinement(samples []FeatureVector, labels []float64) (*refinementModel, error) {
	n := len(samples)
	x := mat.NewDense(n, NumFeatures+1, nil)
	for i, s := range samples {
		for j, f := range s {
			x.Set(i, j, f)
		}
		x.Set(i, NumFeatures, 1)
	}
	y := mat.NewVecDense(n, labels)

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	for j := 0; j < NumFeatures+1; j++ {
		xtx.Set(j, j, xtx.At(j, j)+ridgeLambda)
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var beta mat.VecDense
	if err := beta.SolveVec(&xtx, &xty); err != nil {
		return nil, fmt.Errorf("solve normal equations: %w", err)
	}

	var m refinementModel
	for j := range m.coef {
		c := beta.AtVec(j)
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, errors.New("non-finite coefficient")
		}
		m.coef[j] = c
	}
	return &m, nil
}

// predict evaluates the fit and rescales to 0-100.
func (m *refinementModel) predict(v FeatureVector) (float64, error) {
	sum := m.coef[NumFeatures]
	for j, f := range v {
		sum += m.coef[j] * f
	}
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return 0, errors.New("non-finite prediction")
	}
	return clamp(sum*100, 0, 100), nil
}

// MaybeTrain retrains the refinement model when it has never been trained or
// the last training is older than the retrain interval. It never returns an
// error: insufficient data and fit failures leave the previous model (or
// none) in place so scoring silently stays on the rule path. A retrain
// already in flight causes callers to proceed immediately with the current
// model rather than wait.
func (s *Scorer) MaybeTrain(incidents []domain.Incident, now time.Time) {
	if !s.needsTraining(now) {
		return
	}
	if !s.trainMu.TryLock() {
		s.metrics.TrainingRuns.WithLabelValues("in_flight").Inc()
		return
	}
	defer s.trainMu.Unlock()

	// Re-check under the lock: another caller may have just finished.
	if !s.needsTraining(now) {
		return
	}
	s.train(incidents, now)
}

func (s *Scorer) needsTraining(now time.Time) bool {
	last := s.lastTrained.Load()
	return last == nil || now.Sub(*last) > retrainInterval
}

func (s *Scorer) train(incidents []domain.Incident, now time.Time) {
	if len(incidents) < minTrainingIncidents {
		s.logger.Debug("not enough incidents to train refinement model",
			"incidents", len(incidents), "required", minTrainingIncidents)
		s.metrics.TrainingRuns.WithLabelValues("insufficient_data").Inc()
		return
	}

	start := time.Now()
	index := NewIncidentIndex(incidents)
	bounds := BoundsFromIncidents(incidents)

	var (
		samples []FeatureVector
		labels  []float64
	)
	for pt := range Grid(bounds, trainingGridStep) {
		feats := ExtractFeatures(index.Candidates(pt.Lat, pt.Lon, DefaultRadiusKm), pt.Lat, pt.Lon, DefaultRadiusKm, now)
		samples = append(samples, feats.Vector)
		labels = append(labels, RuleScore(feats.Vector)/100)
	}

	if len(samples) < minTrainingSamples {
		s.logger.Debug("not enough training samples for refinement model",
			"samples", len(samples), "required", minTrainingSamples)
		s.metrics.TrainingRuns.WithLabelValues("insufficient_data").Inc()
		return
	}

	model, err := fitRefinement(samples, labels)
	if err != nil {
		s.logger.Warn("refinement model training failed", "error", err, "samples", len(samples))
		s.metrics.TrainingRuns.WithLabelValues("error").Inc()
		return
	}

	s.model.Store(model)
	trainedAt := now
	s.lastTrained.Store(&trainedAt)
	s.metrics.TrainingRuns.WithLabelValues("success").Inc()
	s.metrics.TrainingDuration.Observe(time.Since(start).Seconds())
	s.metrics.ModelTrained.Set(1)
	s.logger.Info("refinement model trained",
		"samples", len(samples), "incidents", len(incidents),
		"duration", time.Since(start))
}
