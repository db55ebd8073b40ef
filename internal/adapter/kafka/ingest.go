// Package kafka consumes incident reports from a Kafka topic and appends
// them to the incident store.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/urbansafe/risk-engine/internal/config"
	"github.com/urbansafe/risk-engine/internal/domain"
	"github.com/urbansafe/risk-engine/internal/observability"
)

// reportMessage is the wire format published by upstream report collectors.
// Timestamp is optional; the Kafka message time is used when absent.
type reportMessage struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Timestamp   time.Time `json:"timestamp"`
	UserID      string    `json:"user_id"`
}

// Ingest reads incident reports from the configured topic and inserts them
// into the store. Malformed messages are logged, counted, and skipped;
// store failures are retried with backoff.
type Ingest struct {
	reader  *kafkago.Reader
	store   domain.Inserter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewIngest creates a Kafka consumer for the configured incident topic.
func NewIngest(cfg *config.Config, store domain.Inserter, logger *slog.Logger, metrics *observability.Metrics) *Ingest {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic,
		GroupID:     cfg.KafkaGroupID,
		StartOffset: kafkago.FirstOffset,
	})
	return &Ingest{reader: reader, store: store, logger: logger, metrics: metrics}
}

// Run consumes messages until the context is cancelled. Offsets are
// committed only after a successful insert so reports survive restarts.
func (i *Ingest) Run(ctx context.Context) error {
	i.logger.Info("kafka ingest started", "topic", i.reader.Config().Topic)

	// Exponential backoff for store failures: start at 200ms, double each
	// retry, cap at 5s.
	backoff := 200 * time.Millisecond
	const maxBackoff = 5 * time.Second

	for {
		msg, err := i.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				i.logger.Info("kafka ingest stopping", "reason", ctx.Err())
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		incident, err := mapMessage(msg)
		if err != nil {
			i.logger.Warn("skipping malformed incident report",
				"error", err,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			i.metrics.IngestErrors.Inc()
			i.commit(ctx, msg)
			continue
		}

		for {
			err := i.store.Insert(ctx, incident)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return nil
			}
			i.logger.Error("incident insert failed", "error", err, "incident_id", incident.ID)
			i.metrics.IngestErrors.Inc()
			if !sleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, maxBackoff)
		}
		backoff = 200 * time.Millisecond

		i.metrics.IngestMessages.Inc()
		i.commit(ctx, msg)
	}
}

// Close releases the underlying consumer.
func (i *Ingest) Close() error {
	return i.reader.Close()
}

func (i *Ingest) commit(ctx context.Context, msg kafkago.Message) {
	if err := i.reader.CommitMessages(ctx, msg); err != nil {
		i.logger.Warn("commit offset failed", "error", err,
			"partition", msg.Partition, "offset", msg.Offset)
	}
}

// mapMessage deserializes a Kafka message into an Incident, filling in an ID
// and timestamp when the producer omitted them.
func mapMessage(msg kafkago.Message) (domain.Incident, error) {
	var report reportMessage
	if err := json.Unmarshal(msg.Value, &report); err != nil {
		return domain.Incident{}, fmt.Errorf("parse incident report: %w", err)
	}
	if report.Type == "" {
		return domain.Incident{}, fmt.Errorf("incident report missing type")
	}

	id := report.ID
	if id == "" {
		id = uuid.NewString()
	}
	ts := report.Timestamp
	if ts.IsZero() {
		ts = msg.Time
	}

	return domain.Incident{
		ID:          id,
		Type:        report.Type,
		Description: report.Description,
		Latitude:    report.Latitude,
		Longitude:   report.Longitude,
		Timestamp:   ts,
		UserID:      report.UserID,
	}, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
