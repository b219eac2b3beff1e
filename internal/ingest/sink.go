package ingest

import (
	"context"

	"github.com/serroba/linktrail/internal/activity"
	"go.uber.org/zap"
)

// LogSink mirrors events from activity.TopicEvents into structured logs.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a new logging sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// HandleEvent logs one appended event.
func (s *LogSink) HandleEvent(_ context.Context, event *activity.Event) error {
	s.logger.Info("activity event",
		zap.Uint64("event_id", uint64(event.ID)),
		zap.String("kind", string(event.Kind)),
		zap.Time("timestamp", event.Timestamp),
		zap.String("description", event.Describe()),
	)

	return nil
}
