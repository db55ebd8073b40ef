package risk

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urbansafe/risk-engine/internal/observability"
)

// RiskLevel is one of four ordered tiers derived by thresholding a 0-100 score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// LevelForScore buckets a 0-100 score into a risk level.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score < 20:
		return RiskLow
	case score < 40:
		return RiskMedium
	case score < 70:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// Rule formula weights, applied to the feature vector positionally.
const (
	weightDensity         = 20
	weightRecentActivity  = 30
	weightVeryRecent      = 40
	weightNightRatio      = 25
	weightWeekendRatio    = 15
	weightCurrentTimeRisk = 10
)

// RuleScore is the authoritative rule-based scoring formula. It also
// produces the synthetic labels the refinement model trains on.
func RuleScore(v FeatureVector) float64 {
	score := v[FeatIncidentDensity]*weightDensity +
		v[FeatRecentActivity]*weightRecentActivity +
		v[FeatVeryRecentActivity]*weightVeryRecent +
		v[FeatNightRatio]*weightNightRatio +
		v[FeatWeekendRatio]*weightWeekendRatio +
		v[FeatCurrentTimeRisk]*weightCurrentTimeRisk
	return clamp(score, 0, 100)
}

// ScoreMethod identifies which path produced a score.
type ScoreMethod string

const (
	ScoreMethodModel ScoreMethod = "model"
	ScoreMethodRule  ScoreMethod = "rule"
)

// FallbackReason explains why a score came from the rule path instead of
// the refinement model. Empty on the model path.
type FallbackReason string

const (
	FallbackNone       FallbackReason = ""
	FallbackNotTrained FallbackReason = "model_not_trained"
	FallbackPrediction FallbackReason = "prediction_failed"
)

// ScoreResult is a scored feature vector with the path that produced it
// made explicit, so callers and tests can tell refinement output from
// rule-based fallback without inferring it from the confidence value.
type ScoreResult struct {
	Score      float64
	Method     ScoreMethod
	Reason     FallbackReason
	Confidence float64
}

// Confidence values by path. Model-path confidence additionally grows with
// feature quality; see confidenceFor.
const (
	confidenceUntrained  = 0.5
	confidenceFailed     = 0.3
	confidenceModelBase  = 0.3
	confidenceModelBonus = 0.2
	confidenceModelMax   = 0.9
)

// Scorer maps feature vectors to bounded risk scores. It owns the optional
// refinement model cell: a single untrained→trained state re-entered on every
// retrain and reset only by process restart. The model pointer is swapped
// atomically so scoring calls never observe a partially trained model and
// never block on a retrain in progress.
type Scorer struct {
	model       atomic.Pointer[refinementModel]
	lastTrained atomic.Pointer[time.Time]
	trainMu     sync.Mutex

	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewScorer creates a Scorer with no trained model; every score falls back
// to the rule formula until MaybeTrain succeeds.
func NewScorer(logger *slog.Logger, metrics *observability.Metrics) *Scorer {
	return &Scorer{logger: logger, metrics: metrics}
}

// Score evaluates one feature vector. Refinement failures never escape:
// they downgrade to the rule score with a reduced confidence and an
// explicit reason.
func (s *Scorer) Score(v FeatureVector) ScoreResult {
	m := s.model.Load()
	if m == nil {
		s.metrics.ScoreFallbacks.WithLabelValues(string(FallbackNotTrained)).Inc()
		return ScoreResult{
			Score:      RuleScore(v),
			Method:     ScoreMethodRule,
			Reason:     FallbackNotTrained,
			Confidence: confidenceUntrained,
		}
	}

	score, err := m.predict(v)
	if err != nil {
		s.logger.Warn("refinement prediction failed, using rule score", "error", err)
		s.metrics.ScoreFallbacks.WithLabelValues(string(FallbackPrediction)).Inc()
		return ScoreResult{
			Score:      RuleScore(v),
			Method:     ScoreMethodRule,
			Reason:     FallbackPrediction,
			Confidence: confidenceFailed,
		}
	}

	return ScoreResult{
		Score:      score,
		Method:     ScoreMethodModel,
		Confidence: confidenceFor(v),
	}
}

// confidenceFor grows with feature quality: having any density, recent
// activity, and type diversity each add a bonus on top of the base.
func confidenceFor(v FeatureVector) float64 {
	c := confidenceModelBase
	if v[FeatIncidentDensity] > 0 {
		c += confidenceModelBonus
	}
	if v[FeatRecentActivity] > 0 {
		c += confidenceModelBonus
	}
	if v[FeatTypeDiversity] > 0 {
		c += confidenceModelBonus
	}
	return math.Min(c, confidenceModelMax)
}

// Status reports the model cell's state for the status probe.
type Status struct {
	Trained       bool       `json:"trained"`
	LastTrainedAt *time.Time `json:"lastTrainedAt,omitempty"`
	ModelType     string     `json:"modelType"`
}

// Status returns whether a refinement model is live and when it was trained.
func (s *Scorer) Status() Status {
	trained := s.model.Load() != nil
	modelType := "rule-based"
	if trained {
		modelType = "least-squares refinement"
	}
	return Status{
		Trained:       trained,
		LastTrainedAt: s.lastTrained.Load(),
		ModelType:     modelType,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
