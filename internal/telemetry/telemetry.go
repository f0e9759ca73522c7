// Package telemetry emits one delivery record per poll request, on every
// outcome path. Emission is fire-and-forget: failures are logged and never
// propagate into the response path.
package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/veridian-identity/setpoll/internal/logging"
)

// EventName identifies poll delivery records in downstream analytics.
const EventName = "attempts_poll"

// Subject is the NATS subject delivery records are published on.
const Subject = "telemetry.attempts.poll"

// Record captures the outcome of one poll request.
type Record struct {
	EventID            string  `json:"event_id"`
	RenderedEventCount int     `json:"rendered_event_count"`
	Timestamp          string  `json:"timestamp,omitempty"`
	ElapsedTime        float64 `json:"elapsed_time"`
	Authenticated      bool    `json:"authenticated"`
	Success            bool    `json:"success"`
}

type Sink interface {
	Record(ctx context.Context, rec Record)
}

// NewRecord stamps a record with a fresh event ID.
func NewRecord(count int, timestamp string, elapsed float64, authenticated, success bool) Record {
	return Record{
		EventID:            uuid.New().String(),
		RenderedEventCount: count,
		Timestamp:          timestamp,
		ElapsedTime:        elapsed,
		Authenticated:      authenticated,
		Success:            success,
	}
}

// LogSink writes delivery records to the structured log.
type LogSink struct {
	logger *logging.Logger
}

func NewLogSink(logger *logging.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(ctx context.Context, rec Record) {
	s.logger.InfoContext(ctx, EventName,
		slog.String("event_id", rec.EventID),
		slog.Int("rendered_event_count", rec.RenderedEventCount),
		slog.String("timestamp", rec.Timestamp),
		slog.Float64("elapsed_time", rec.ElapsedTime),
		slog.Bool("authenticated", rec.Authenticated),
		slog.Bool("success", rec.Success),
	)
}

// NATSSink publishes delivery records for downstream analytics consumers.
// Publish errors are logged and dropped.
type NATSSink struct {
	conn   *nats.Conn
	logger *logging.Logger
}

func NewNATSSink(conn *nats.Conn, logger *logging.Logger) *NATSSink {
	return &NATSSink{conn: conn, logger: logger}
}

func (s *NATSSink) Record(ctx context.Context, rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to marshal telemetry record", logging.Error(err))
		return
	}
	if err := s.conn.Publish(Subject, data); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish telemetry record", logging.Error(err))
	}
}

// MultiSink fans a record out to several sinks.
type MultiSink []Sink

func (m MultiSink) Record(ctx context.Context, rec Record) {
	for _, s := range m {
		s.Record(ctx, rec)
	}
}
