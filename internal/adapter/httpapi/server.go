package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/urbansafe/risk-engine/internal/risk"
)

// RiskService is the engine surface the handlers consume.
type RiskService interface {
	MapData(ctx context.Context, bounds *risk.BoundingBox) (risk.MapSummary, error)
	LocationRisk(ctx context.Context, lat, lon float64) (risk.RiskScore, error)
	ModelStatus() risk.Status
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the risk query API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	service    RiskService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the /api/v1 query routes and
// /healthz, /readyz, /metrics.
func NewServer(addr string, service RiskService, ready ReadinessChecker, logger *slog.Logger) *Server {
	r := mux.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service: service,
		logger:  logger,
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/map-data", s.handleMapData).Methods(http.MethodGet)
	api.HandleFunc("/location-risk", s.handleLocationRisk).Methods(http.MethodGet)
	api.HandleFunc("/model-status", s.handleModelStatus).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", handleReady(ready)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleMapData serves the full-map scan. All four bounds parameters must be
// present together; with none, bounds are derived from the incident extrema.
func (s *Server) handleMapData(w http.ResponseWriter, r *http.Request) {
	bounds, ok, err := parseBounds(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var boundsArg *risk.BoundingBox
	if ok {
		boundsArg = &bounds
	}

	summary, err := s.service.MapData(r.Context(), boundsArg)
	if err != nil {
		s.logger.Error("map data query failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "map data unavailable")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleLocationRisk(w http.ResponseWriter, r *http.Request) {
	lat, err := parseCoordinate(r, "latitude")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lon, err := parseCoordinate(r, "longitude")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	score, err := s.service.LocationRisk(r.Context(), lat, lon)
	if err != nil {
		s.logger.Error("location risk query failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "location risk unavailable")
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (s *Server) handleModelStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ModelStatus())
}

// statsResponse summarizes one map query for dashboards.
type statsResponse struct {
	TotalIncidents   int                `json:"totalIncidents"`
	TotalHotspots    int                `json:"totalHotspots"`
	OverallRiskLevel risk.RiskLevel     `json:"overallRiskLevel"`
	RiskDistribution map[risk.RiskLevel]int `json:"riskDistribution"`
	AverageRiskScore int                `json:"averageRiskScore"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.MapData(r.Context(), nil)
	if err != nil {
		s.logger.Error("stats query failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "stats unavailable")
		return
	}

	dist := map[risk.RiskLevel]int{
		risk.RiskLow:      0,
		risk.RiskMedium:   0,
		risk.RiskHigh:     0,
		risk.RiskCritical: 0,
	}
	var sum int
	for _, h := range summary.Hotspots {
		dist[h.RiskLevel]++
		sum += h.RiskScore
	}
	avg := 0
	if len(summary.Hotspots) > 0 {
		avg = int(math.Round(float64(sum) / float64(len(summary.Hotspots))))
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalIncidents:   summary.TotalIncidents,
		TotalHotspots:    len(summary.Hotspots),
		OverallRiskLevel: summary.OverallRiskLevel,
		RiskDistribution: dist,
		AverageRiskScore: avg,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// parseBounds reads north/south/east/west query parameters. Returns ok=false
// when none are present; an error when only some are, or any is not a number.
func parseBounds(r *http.Request) (risk.BoundingBox, bool, error) {
	q := r.URL.Query()
	keys := []string{"north", "south", "east", "west"}

	present := 0
	for _, k := range keys {
		if q.Get(k) != "" {
			present++
		}
	}
	if present == 0 {
		return risk.BoundingBox{}, false, nil
	}
	if present < len(keys) {
		return risk.BoundingBox{}, false, errBoundsIncomplete
	}

	vals := make(map[string]float64, len(keys))
	for _, k := range keys {
		f, err := strconv.ParseFloat(q.Get(k), 64)
		if err != nil {
			return risk.BoundingBox{}, false, errBoundsInvalid
		}
		vals[k] = f
	}

	return risk.BoundingBox{
		North: vals["north"],
		South: vals["south"],
		East:  vals["east"],
		West:  vals["west"],
	}, true, nil
}

func parseCoordinate(r *http.Request, key string) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, &paramError{key: key, reason: "is required"}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) {
		return 0, &paramError{key: key, reason: "must be a number"}
	}
	return f, nil
}

type paramError struct {
	key    string
	reason string
}

func (e *paramError) Error() string { return e.key + " " + e.reason }

var (
	errBoundsIncomplete = &paramError{key: "bounds", reason: "require all of north, south, east, west"}
	errBoundsInvalid    = &paramError{key: "bounds", reason: "must be decimal degrees"}
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response body
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
