// Package risk computes a spatial risk surface from geotagged incident
// reports: per-point feature extraction, rule-based scoring with an optional
// least-squares refinement model, grid sampling over a bounding box, and the
// map/location query paths exposed to HTTP handlers.
//
// # Scoring
//
// The rule-based formula is authoritative:
//
//	score = clamp(0, 100, density·20 + recent·30 + veryRecent·40 +
//	              nightRatio·25 + weekendRatio·15 + currentTimeRisk·10)
//
// The refinement model is a linear least-squares fit trained on that same
// formula's output over a coarse training grid. It is strictly an
// enhancement: any training or prediction failure falls back to the rule
// score, reported explicitly via [ScoreResult].
//
// # Risk levels
//
// Scores bucket into four ordered tiers: <20 low, <40 medium, <70 high,
// else critical. The same table applies to individual points and to the
// overall map level. The historical ML code path used a slightly different
// table (<30/<50/<75); this implementation standardizes on the rule-based
// one; see DESIGN.md.
package risk
