package risk

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/urbansafe/risk-engine/internal/domain"
	"github.com/urbansafe/risk-engine/internal/observability"
)

const (
	// DefaultRadiusKm is the neighborhood radius for feature extraction.
	DefaultRadiusKm = 1.0

	// minSignificantScore filters grid points out of the hotspot list;
	// scores at or below it are noise.
	minSignificantScore = 10

	// maxHotspots bounds the map summary.
	maxHotspots = 50
)

// Location is a WGS-84 coordinate pair as exposed on the wire.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Factors is the contributing-feature breakdown attached to every score.
type Factors struct {
	IncidentCount   int     `json:"incidentCount"`
	RecentIncidents int     `json:"recentIncidents"`
	IncidentDensity float64 `json:"incidentDensity"`
	RecentActivity  float64 `json:"recentActivity"`
	TypeDiversity   float64 `json:"typeDiversity"`
	TimeOfDayRisk   float64 `json:"timeOfDayRisk"`
	DayOfWeekRisk   float64 `json:"dayOfWeekRisk"`
}

// RiskScore is the scored output for one location. Immutable once produced.
type RiskScore struct {
	Location       Location       `json:"location"`
	RiskScore      int            `json:"riskScore"`
	RiskLevel      RiskLevel      `json:"riskLevel"`
	Confidence     float64        `json:"confidence"`
	Method         ScoreMethod    `json:"method"`
	FallbackReason FallbackReason `json:"fallbackReason,omitempty"`
	Factors        Factors        `json:"factors"`
}

// MapSummary is the ranked, size-bounded hotspot list for one map query.
// Rebuilt on every call, never incrementally updated.
type MapSummary struct {
	Hotspots         []RiskScore `json:"hotspots"`
	OverallRiskLevel RiskLevel   `json:"overallRiskLevel"`
	TotalIncidents   int         `json:"totalIncidents"`
}

// Params tunes an Engine. Zero values select the defaults; Refine must be
// set explicitly to enable the learned refinement path.
type Params struct {
	RadiusKm float64
	GridStep float64
	Refine   bool
}

// Engine computes risk surfaces over incident snapshots fetched fresh from
// the store on every call. It is stateless per call apart from the scorer's
// model cell, so concurrent queries are safe and idempotent for a fixed
// snapshot and clock reading.
type Engine struct {
	store    domain.Store
	scorer   *Scorer
	logger   *slog.Logger
	metrics  *observability.Metrics
	radiusKm float64
	gridStep float64
	refine   bool
}

// NewEngine creates an Engine. The scorer is shared between the map and
// location paths so both observe the same model state.
func NewEngine(store domain.Store, scorer *Scorer, params Params, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	if params.RadiusKm <= 0 {
		params.RadiusKm = DefaultRadiusKm
	}
	if params.GridStep <= 0 {
		params.GridStep = DefaultGridStep
	}
	return &Engine{
		store:    store,
		scorer:   scorer,
		logger:   logger,
		metrics:  metrics,
		radiusKm: params.RadiusKm,
		gridStep: params.GridStep,
		refine:   params.Refine,
	}
}

// MapData scores a grid over the given bounds (or bounds derived from the
// incident extrema when nil) and returns the ranked hotspot list. An empty
// incident set short-circuits to an explicit empty summary.
func (e *Engine) MapData(ctx context.Context, bounds *BoundingBox) (MapSummary, error) {
	start := time.Now()
	e.metrics.MapQueries.Inc()

	incidents, err := e.snapshot(ctx)
	if err != nil {
		return MapSummary{}, err
	}

	if len(incidents) == 0 {
		return MapSummary{
			Hotspots:         []RiskScore{},
			OverallRiskLevel: RiskLow,
			TotalIncidents:   0,
		}, nil
	}

	b := BoundsFromIncidents(incidents)
	if bounds != nil {
		b = *bounds
	}

	now := domain.Now()
	index := NewIncidentIndex(incidents)

	hotspots := []RiskScore{}
	for pt := range Grid(b, e.gridStep) {
		rs := e.scorePoint(index, pt.Lat, pt.Lon, now)
		if rs.RiskScore > minSignificantScore {
			hotspots = append(hotspots, rs)
		}
	}

	// Stable sort keeps generation order for equal scores, which makes the
	// whole summary deterministic for a fixed snapshot and clock.
	sort.SliceStable(hotspots, func(i, j int) bool {
		return hotspots[i].RiskScore > hotspots[j].RiskScore
	})
	if len(hotspots) > maxHotspots {
		hotspots = hotspots[:maxHotspots]
	}

	overall := RiskLow
	if len(hotspots) > 0 {
		var sum float64
		for _, h := range hotspots {
			sum += float64(h.RiskScore)
		}
		overall = LevelForScore(sum / float64(len(hotspots)))
	}

	e.metrics.HotspotCount.Observe(float64(len(hotspots)))
	e.metrics.ScoringDuration.Observe(time.Since(start).Seconds())

	return MapSummary{
		Hotspots:         hotspots,
		OverallRiskLevel: overall,
		TotalIncidents:   len(incidents),
	}, nil
}

// LocationRisk scores exactly one point against the current snapshot. It
// shares the scorer (and therefore any trained model) with MapData.
func (e *Engine) LocationRisk(ctx context.Context, lat, lon float64) (RiskScore, error) {
	start := time.Now()
	e.metrics.LocationQueries.Inc()

	incidents, err := e.snapshot(ctx)
	if err != nil {
		return RiskScore{}, err
	}

	now := domain.Now()
	index := NewIncidentIndex(incidents)
	rs := e.scorePoint(index, lat, lon, now)

	e.metrics.ScoringDuration.Observe(time.Since(start).Seconds())
	return rs, nil
}

// ModelStatus reports the refinement model cell's state.
func (e *Engine) ModelStatus() Status {
	return e.scorer.Status()
}

// snapshot fetches all incidents and, when refinement is enabled, gives the
// scorer a chance to retrain on them. Store failures surface as a single
// opaque error with no partial results.
func (e *Engine) snapshot(ctx context.Context) ([]domain.Incident, error) {
	incidents, err := e.store.FindAll(ctx)
	if err != nil {
		e.metrics.QueryErrors.Inc()
		e.logger.Error("incident store query failed", "error", err)
		return nil, fmt.Errorf("incident data unavailable: %w", err)
	}
	if e.refine {
		e.scorer.MaybeTrain(incidents, domain.Now())
	}
	return incidents, nil
}

func (e *Engine) scorePoint(index *IncidentIndex, lat, lon float64, now time.Time) RiskScore {
	feats := ExtractFeatures(index.Candidates(lat, lon, e.radiusKm), lat, lon, e.radiusKm, now)
	result := e.scorer.Score(feats.Vector)

	dayRisk := 1.0
	if feats.Vector[FeatIsWeekend] == 1 {
		dayRisk = weekendMultiplier
	}

	rounded := int(math.Round(result.Score))
	return RiskScore{
		Location:       Location{Latitude: lat, Longitude: lon},
		RiskScore:      rounded,
		RiskLevel:      LevelForScore(float64(rounded)),
		Confidence:     result.Confidence,
		Method:         result.Method,
		FallbackReason: result.Reason,
		Factors: Factors{
			IncidentCount:   feats.IncidentCount,
			RecentIncidents: feats.RecentCount,
			IncidentDensity: feats.Vector[FeatIncidentDensity],
			RecentActivity:  feats.Vector[FeatRecentActivity],
			TypeDiversity:   feats.Vector[FeatTypeDiversity],
			TimeOfDayRisk:   feats.Vector[FeatCurrentTimeRisk],
			DayOfWeekRisk:   dayRisk,
		},
	}
}
