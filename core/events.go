package core

import (
	"context"
	"time"

	"github.com/hyperledger-labs/yui-bridge-relayer/log"
)

// EventType is the type of an event emitted by the relay loop
type EventType string

const (
	EventLoopStarted         EventType = "loop_started"
	EventLoopStopped         EventType = "loop_stopped"
	EventActionPlanned       EventType = "action_planned"
	EventSubmissionAttempted EventType = "submission_attempted"
	EventSubmissionSucceeded EventType = "submission_succeeded"
	EventSubmissionStale     EventType = "submission_stale"
	EventSubmissionFailed    EventType = "submission_failed"
	EventSubmissionAbandoned EventType = "submission_abandoned"
	EventLaneBacklog         EventType = "lane_backlog"
	EventHeaderProgress      EventType = "header_progress"
)

// Event is a structured notification of what the relay loop is doing
type Event struct {
	Type      EventType
	Time      time.Time
	Direction string

	// Payload is set for submission events and header relay plans
	Payload *Payload
	// Action is set for EventActionPlanned of message actions
	Action *RelayAction
	// Backlog is set for EventLaneBacklog
	Backlog *LaneBacklog
	// Progress is set for EventHeaderProgress
	Progress *RelayProgress

	Attempt uint
	Err     error
}

// EventSink consumes the events of relay loops. Implementations must be safe for concurrent use
// because both directions of a bridge share sinks.
type EventSink interface {
	HandleEvent(ctx context.Context, ev Event)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(ctx context.Context, ev Event)

func (f EventSinkFunc) HandleEvent(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// MultiSink forwards every event to all of its sinks
type MultiSink []EventSink

func (ms MultiSink) HandleEvent(ctx context.Context, ev Event) {
	for _, s := range ms {
		if s != nil {
			s.HandleEvent(ctx, ev)
		}
	}
}

// DefaultEventSink logs events and records them as metrics
func DefaultEventSink() EventSink {
	return MultiSink{NewLogSink(nil), NewMetricSink()}
}

// LogSink writes events to a RelayLogger
type LogSink struct {
	logger *log.RelayLogger
}

// NewLogSink returns a sink writing to logger, or to the global logger if nil
func NewLogSink(logger *log.RelayLogger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) HandleEvent(ctx context.Context, ev Event) {
	logger := s.logger
	if logger == nil {
		logger = log.GetLogger()
	}
	logger = logger.WithModule("core.relay").WithDirection(ev.Direction)

	switch ev.Type {
	case EventLoopStarted, EventLoopStopped:
		logger.InfoContext(ctx, string(ev.Type))
	case EventActionPlanned:
		if ev.Action != nil {
			logger.InfoContext(ctx, "action planned", "action", ev.Action.String())
		} else if ev.Payload != nil {
			logger.InfoContext(ctx, "action planned", "action", ev.Payload.String())
		}
	case EventSubmissionAttempted:
		logger.InfoContext(ctx, "submission attempted", "payload", ev.Payload.String(), "attempt", ev.Attempt)
	case EventSubmissionSucceeded:
		logger.InfoContext(ctx, "submission succeeded", "payload", ev.Payload.String(), "attempt", ev.Attempt)
	case EventSubmissionStale:
		logger.InfoContext(ctx, "submission already achieved by another relayer", "payload", ev.Payload.String(), "reason", errString(ev.Err))
	case EventSubmissionFailed:
		logger.ErrorContext(ctx, "submission failed", ev.Err, "payload", ev.Payload.String(), "attempt", ev.Attempt, "class", Classify(ev.Err).String())
	case EventSubmissionAbandoned:
		logger.ErrorContext(ctx, "submission abandoned", ev.Err, "payload", ev.Payload.String(), "attempt", ev.Attempt)
	case EventLaneBacklog:
		logger.DebugContext(ctx, "lane backlog",
			"lane", ev.Backlog.Lane.String(),
			"undelivered", ev.Backlog.Undelivered,
			"unconfirmed", ev.Backlog.Unconfirmed,
			"unpruned", ev.Backlog.Unpruned,
		)
	case EventHeaderProgress:
		logger.DebugContext(ctx, "header progress",
			"best_relayed", ev.Progress.BestRelayed.String(),
			"best_available", ev.Progress.BestAvailable.String(),
		)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
