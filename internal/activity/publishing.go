package activity

import (
	"context"
	"time"

	"github.com/serroba/linktrail/internal/messaging"
	"go.uber.org/zap"
)

const (
	// TopicEvents carries every appended event, id included.
	TopicEvents = "activity.events"
	// TopicSearchRuns is where the search collaborator publishes finished searches.
	TopicSearchRuns = "activity.search-runs"
	// TopicSettingChanges is where the settings collaborator publishes changes.
	TopicSettingChanges = "activity.setting-changes"
)

// PublishingLog decorates a Log and publishes each appended event to the
// bus. Publish failures are logged and never fail the append.
type PublishingLog struct {
	Log

	publish messaging.Publish[Event]
	logger  *zap.Logger
	now     func() time.Time
}

// NewPublishingLog wraps log with publish-on-append.
func NewPublishingLog(log Log, publish messaging.Publish[Event], logger *zap.Logger) *PublishingLog {
	return &PublishingLog{
		Log:     log,
		publish: publish,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (p *PublishingLog) Append(ctx context.Context, event *Event) (EventID, error) {
	// stamp here so the published copy carries the stored timestamp
	stamped := event.Clone()
	if stamped.Timestamp.IsZero() {
		stamped.Timestamp = p.now()
	}

	id, err := p.Log.Append(ctx, stamped)
	if err != nil {
		return 0, err
	}

	stamped.ID = id

	if err := p.publish(ctx, stamped); err != nil {
		p.logger.Error("failed to publish activity event",
			zap.Uint64("event_id", uint64(id)),
			zap.String("kind", string(stamped.Kind)),
			zap.Error(err),
		)
	}

	return id, nil
}

func (p *PublishingLog) Clear(ctx context.Context) error {
	if err := p.Log.Clear(ctx); err != nil {
		return err
	}

	p.logger.Info("activity log cleared")

	return nil
}
