package ingest_test

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/serroba/linktrail/internal/activity"
	"github.com/serroba/linktrail/internal/ingest"
	"github.com/serroba/linktrail/internal/messaging"
	"github.com/serroba/linktrail/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCollaboratorEventsReachTheLog(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	bus := gochannel.NewGoChannel(gochannel.Config{BlockPublishUntilSubscriberAck: true}, messaging.NewZapLogger(logger))
	log := store.NewMemoryEventLog()
	ingester := ingest.NewIngester(log, logger)

	group := messaging.NewConsumerGroup(bus, logger)
	group.Add(
		messaging.NewConsumer(bus, activity.TopicSearchRuns, ingester.HandleSearchRun, logger),
		messaging.NewConsumer(bus, activity.TopicSettingChanges, ingester.HandleSettingChanged, logger),
	)
	require.NoError(t, group.Start(ctx))

	t.Cleanup(func() { _ = group.Shutdown() })

	publishSearch := messaging.NewPublishFunc[ingest.SearchRunMessage](bus, activity.TopicSearchRuns)
	publishSetting := messaging.NewPublishFunc[ingest.SettingChangedMessage](bus, activity.TopicSettingChanges)

	require.NoError(t, publishSearch(ctx, &ingest.SearchRunMessage{Query: "John Doe", ResultCount: 5}))
	require.NoError(t, publishSetting(ctx, &ingest.SettingChangedMessage{Name: "theme", OldValue: "light", NewValue: "dark"}))
	require.NoError(t, publishSearch(ctx, &ingest.SearchRunMessage{Query: "", ResultCount: 1}))

	snapshot, err := log.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 2)
	assert.Equal(t, "Setting theme: light -> dark", snapshot[0].Describe())
	assert.Equal(t, "Search: query=John Doe results=5", snapshot[1].Describe())
}
