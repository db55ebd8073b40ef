package domain

import (
	"context"
	"time"
)

// Incident is a single geotagged incident report. The risk engine treats the
// collection as read-only; only ingest and seeding paths create incidents.
type Incident struct {
	ID          string    `json:"id" db:"id"`
	Type        string    `json:"type" db:"type"`
	Description string    `json:"description,omitempty" db:"description"`
	Latitude    float64   `json:"latitude" db:"latitude"`
	Longitude   float64   `json:"longitude" db:"longitude"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
	UserID      string    `json:"user_id,omitempty" db:"user_id"`
}

// Store supplies the full incident collection, newest first. The descending
// order is a presentation convenience; no scoring algorithm depends on it.
type Store interface {
	FindAll(ctx context.Context) ([]Incident, error)
}

// Inserter is implemented by stores that accept new incidents. The Kafka
// ingest and the seeding tool write through this; the engine never does.
type Inserter interface {
	Insert(ctx context.Context, incident Incident) error
}
