// Package postgres implements the incident store on PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/urbansafe/risk-engine/internal/domain"
)

// Store is a PostgreSQL-backed incident store.
type Store struct {
	db *sqlx.DB
}

// New connects to the database and verifies the connection.
func New(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// FindAll returns the full incident collection, newest first.
func (s *Store) FindAll(ctx context.Context) ([]domain.Incident, error) {
	const query = `
		SELECT id, type, description, latitude, longitude, timestamp, user_id
		FROM incidents
		ORDER BY timestamp DESC`

	incidents := []domain.Incident{}
	if err := s.db.SelectContext(ctx, &incidents, query); err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	return incidents, nil
}

// Insert stores one incident. Duplicate IDs are ignored so replayed ingest
// messages stay idempotent.
func (s *Store) Insert(ctx context.Context, incident domain.Incident) error {
	const query = `
		INSERT INTO incidents (id, type, description, latitude, longitude, timestamp, user_id)
		VALUES (:id, :type, :description, :latitude, :longitude, :timestamp, :user_id)
		ON CONFLICT (id) DO NOTHING`

	if _, err := s.db.NamedExecContext(ctx, query, incident); err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

// DeleteByUserPrefix removes incidents whose user_id starts with the given
// prefix. The seeding tool uses this to clear generated data.
func (s *Store) DeleteByUserPrefix(ctx context.Context, prefix string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM incidents WHERE user_id LIKE $1`, prefix+"%")
	if err != nil {
		return 0, fmt.Errorf("delete incidents: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
