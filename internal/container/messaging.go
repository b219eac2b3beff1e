package container

import (
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/samber/do"
	"github.com/serroba/linktrail/internal/activity"
	"github.com/serroba/linktrail/internal/ingest"
	"github.com/serroba/linktrail/internal/messaging"
	"go.uber.org/zap"
)

// PublisherGroupPackage provides the Redis stream publisher.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*redisConn](i).Client
		logger := do.MustInvoke[*zap.Logger](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client:     client,
			Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
		}, messaging.NewZapLogger(logger))
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(publisher), nil
	})
}

// ConsumerGroupPackage provides the consumers that ingest collaborator events
// into the event store and mirror appended events into the logs.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		client := do.MustInvoke[*redisConn](i).Client
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client,
			Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
			ConsumerGroup: opts.ConsumerGroup,
		}, messaging.NewZapLogger(logger))
		if err != nil {
			return nil, err
		}

		ingester := ingest.NewIngester(do.MustInvokeNamed[activity.Log](i, eventStore), logger)
		sink := ingest.NewLogSink(logger)

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(
			messaging.NewConsumer(subscriber, activity.TopicSearchRuns, ingester.HandleSearchRun, logger),
			messaging.NewConsumer(subscriber, activity.TopicSettingChanges, ingester.HandleSettingChanged, logger),
			messaging.NewConsumer(subscriber, activity.TopicEvents, sink.HandleEvent, logger),
		)

		return group, nil
	})
}
