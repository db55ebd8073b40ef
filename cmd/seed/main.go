// Command seed populates the incident store with generated data for local
// development and demos.
//
// Usage:
//
//	go run ./cmd/seed generate --count 200
//	go run ./cmd/seed scenario
//	go run ./cmd/seed clear
package main

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/urbansafe/risk-engine/internal/adapter/postgres"
	"github.com/urbansafe/risk-engine/internal/domain"
)

// seedUserPrefix marks generated incidents so clear can find them.
const seedUserPrefix = "seed-user-"

var (
	dsn   string
	count int
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the incident store with generated data",
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Insert randomly clustered incidents around known hotspot areas",
	RunE:  runGenerate,
}

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Insert deterministic test scenarios (recent cluster, night cluster, weekend cluster)",
	RunE:  runScenario,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all seeded incidents",
	RunE:  runClear,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", os.Getenv("POSTGRES_DSN"), "postgres connection string")
	generateCmd.Flags().IntVar(&count, "count", 50, "number of incidents to generate")
	rootCmd.AddCommand(generateCmd, scenarioCmd, clearCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

var incidentTypes = []string{
	"theft",
	"assault",
	"vandalism",
	"suspicious person",
	"burglary",
	"harassment",
	"drug activity",
	"vehicle theft",
}

var descriptions = []string{
	"Suspicious person loitering",
	"Vehicle break-in reported",
	"Graffiti on building",
	"Fight in progress",
	"Stolen bicycle",
	"Harassment at bus stop",
	"Car window smashed",
	"Purse snatching",
}

// hotspotAreas are realistic cluster centers for generated data.
var hotspotAreas = []struct {
	lat, lon float64
	name     string
}{
	{40.7128, -74.0060, "Downtown"},
	{40.7589, -73.9851, "Times Square"},
	{40.7505, -73.9934, "Penn Station"},
	{40.7484, -73.9857, "Madison Square Garden"},
	{40.7527, -73.9772, "Grand Central"},
}

func connect() (*postgres.Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("missing --dsn flag (or POSTGRES_DSN)")
	}
	return postgres.New(dsn)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	store, err := connect()
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck // process is exiting

	ctx := cmd.Context()
	now := time.Now()

	for i := 0; i < count; i++ {
		area := hotspotAreas[rand.Intn(len(hotspotAreas))]
		lat, lon := jitterLocation(area.lat, area.lon, 2)

		incident := domain.Incident{
			ID:          uuid.NewString(),
			Type:        incidentTypes[rand.Intn(len(incidentTypes))],
			Description: descriptions[rand.Intn(len(descriptions))],
			Latitude:    lat,
			Longitude:   lon,
			Timestamp:   randomTimestamp(now, 30*24*time.Hour),
			UserID:      fmt.Sprintf("%s%d", seedUserPrefix, rand.Intn(10)),
		}
		if err := store.Insert(ctx, incident); err != nil {
			return fmt.Errorf("insert incident %d: %w", i, err)
		}
	}

	log.Printf("generated %d incidents across %d hotspot areas", count, len(hotspotAreas))
	return nil
}

func runScenario(cmd *cobra.Command, _ []string) error {
	store, err := connect()
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck // process is exiting

	ctx := cmd.Context()
	now := time.Now()
	inserted := 0

	insert := func(inc domain.Incident) error {
		inc.ID = uuid.NewString()
		if err := store.Insert(ctx, inc); err != nil {
			return err
		}
		inserted++
		return nil
	}

	// Scenario 1: dense cluster of recent thefts.
	for i := 0; i < 15; i++ {
		lat, lon := jitterLocation(40.7128, -74.0060, 0.5)
		if err := insert(domain.Incident{
			Type:        "theft",
			Description: "Recent theft incident",
			Latitude:    lat,
			Longitude:   lon,
			Timestamp:   randomTimestamp(now, 24*time.Hour),
			UserID:      seedUserPrefix + "1",
		}); err != nil {
			return err
		}
	}

	// Scenario 2: night-time assaults.
	for i := 0; i < 10; i++ {
		lat, lon := jitterLocation(40.7589, -73.9851, 0.5)
		ts := randomTimestamp(now, 30*24*time.Hour)
		ts = time.Date(ts.Year(), ts.Month(), ts.Day(), 23, rand.Intn(60), 0, 0, ts.Location())
		if err := insert(domain.Incident{
			Type:        "assault",
			Description: "Night-time incident",
			Latitude:    lat,
			Longitude:   lon,
			Timestamp:   ts,
			UserID:      seedUserPrefix + "2",
		}); err != nil {
			return err
		}
	}

	// Scenario 3: weekend vandalism.
	for i := 0; i < 8; i++ {
		lat, lon := jitterLocation(40.7505, -73.9934, 0.5)
		if err := insert(domain.Incident{
			Type:        "vandalism",
			Description: "Weekend vandalism",
			Latitude:    lat,
			Longitude:   lon,
			Timestamp:   lastSaturday(now).Add(time.Duration(rand.Intn(24)) * time.Hour),
			UserID:      seedUserPrefix + "3",
		}); err != nil {
			return err
		}
	}

	log.Printf("generated %d scenario incidents", inserted)
	return nil
}

func runClear(cmd *cobra.Command, _ []string) error {
	store, err := connect()
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck // process is exiting

	n, err := store.DeleteByUserPrefix(cmd.Context(), seedUserPrefix)
	if err != nil {
		return err
	}
	log.Printf("cleared %d seeded incidents", n)
	return nil
}

// jitterLocation offsets a center point by up to radiusKm in each axis.
// 1 degree of latitude ≈ 111 km; longitude shrinks with cos(lat).
func jitterLocation(centerLat, centerLon, radiusKm float64) (float64, float64) {
	latOffset := (rand.Float64() - 0.5) * (radiusKm / 111)
	lonOffset := (rand.Float64() - 0.5) * (radiusKm / (111 * math.Cos(centerLat*math.Pi/180)))
	return centerLat + latOffset, centerLon + lonOffset
}

func randomTimestamp(now time.Time, window time.Duration) time.Time {
	return now.Add(-time.Duration(rand.Int63n(int64(window))))
}

func lastSaturday(now time.Time) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for t.Weekday() != time.Saturday {
		t = t.AddDate(0, 0, -1)
	}
	return t
}
