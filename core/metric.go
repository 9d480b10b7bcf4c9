package core

import (
	"context"

	"github.com/hyperledger-labs/yui-bridge-relayer/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"
)

// MetricSink records relay events with the instruments of the telemetry package.
// Events are ignored until telemetry.InitializeMetrics has been called.
type MetricSink struct{}

func NewMetricSink() *MetricSink {
	return &MetricSink{}
}

func (MetricSink) HandleEvent(ctx context.Context, ev Event) {
	direction := AttributeKeyDirection.String(ev.Direction)
	switch ev.Type {
	case EventHeaderProgress:
		if ev.Progress.BestRelayed != nil {
			telemetry.BestRelayedHeaderGauge.Set(int64(ev.Progress.BestRelayed.Number), direction)
		}
		if ev.Progress.BestAvailable != nil {
			telemetry.BestAvailableHeaderGauge.Set(int64(ev.Progress.BestAvailable.Number), direction)
		}
	case EventLaneBacklog:
		lane := AttributeKeyLane.String(ev.Backlog.Lane.String())
		telemetry.LaneUndeliveredGauge.Set(int64(ev.Backlog.Undelivered), direction, lane)
		telemetry.LaneUnconfirmedGauge.Set(int64(ev.Backlog.Unconfirmed), direction, lane)
	case EventSubmissionSucceeded, EventSubmissionStale, EventSubmissionFailed, EventSubmissionAbandoned:
		recordSubmission(ctx, ev, direction)
	}
}

func recordSubmission(ctx context.Context, ev Event, direction attribute.KeyValue) {
	attrs := api.WithAttributes(
		direction,
		AttributeKeySubmissionKind.String(ev.Payload.Kind.String()),
		AttributeKeyOutcome.String(string(ev.Type)),
	)
	if telemetry.SubmissionsCounter != nil {
		telemetry.SubmissionsCounter.Add(ctx, 1, attrs)
	}
	// a failed attempt may still be retried
	if ev.Type != EventSubmissionFailed && telemetry.SubmissionAttempts != nil {
		telemetry.SubmissionAttempts.Record(ctx, int64(ev.Attempt), attrs)
	}
}
