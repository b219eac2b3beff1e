package ingest

import (
	"context"
	"errors"

	"github.com/serroba/linktrail/internal/activity"
	"go.uber.org/zap"
)

// Ingester appends collaborator events received from the bus to the shared log.
type Ingester struct {
	log    activity.Log
	logger *zap.Logger
}

// NewIngester creates a new ingester writing to log.
func NewIngester(log activity.Log, logger *zap.Logger) *Ingester {
	return &Ingester{log: log, logger: logger}
}

// HandleSearchRun appends a search_run event.
func (i *Ingester) HandleSearchRun(ctx context.Context, msg *SearchRunMessage) error {
	event := activity.NewSearchRun(msg.Query, msg.ResultCount)
	event.Timestamp = msg.OccurredAt

	return i.append(ctx, event)
}

// HandleSettingChanged appends a setting_changed event.
func (i *Ingester) HandleSettingChanged(ctx context.Context, msg *SettingChangedMessage) error {
	event := activity.NewSettingChanged(msg.Name, msg.OldValue, msg.NewValue)
	event.Timestamp = msg.OccurredAt

	return i.append(ctx, event)
}

// append drops malformed events, which redelivery cannot fix, and returns
// store errors so the message is retried.
func (i *Ingester) append(ctx context.Context, event *activity.Event) error {
	id, err := i.log.Append(ctx, event)
	if errors.Is(err, activity.ErrMalformedEvent) {
		i.logger.Warn("dropping malformed collaborator event",
			zap.String("kind", string(event.Kind)),
			zap.Error(err),
		)

		return nil
	}

	if err != nil {
		return err
	}

	i.logger.Debug("ingested collaborator event",
		zap.String("kind", string(event.Kind)),
		zap.Uint64("event_id", uint64(id)),
	)

	return nil
}
