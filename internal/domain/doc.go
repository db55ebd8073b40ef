// Package domain models geotagged incident reports and the store that
// supplies them to the risk engine.
//
// # Data Conventions
//
// Coordinates are WGS-84 decimal degrees. The engine tolerates but does not
// validate out-of-range values; validation belongs to whichever collaborator
// writes incidents into the store (the mobile API, the Kafka ingest, the
// seeding tool). Incident types are free-text categories ("theft",
// "assault", ...) and are compared verbatim when computing type diversity.
//
// # Time
//
// Incident timestamps are interpreted in the location carried by their
// time.Time value. No timezone normalization is applied anywhere in the
// engine, so the same store queried from deployments in different zones can
// classify the same incident into different hour-of-day bands. This is a
// known inconsistency inherited from the upstream data contract; see
// DESIGN.md before "fixing" it.
//
// The current time is never read from the wall clock directly. All reads go
// through the package clock so tests can freeze time via [SetClock].
package domain
