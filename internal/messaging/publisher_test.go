package messaging_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/linktrail/internal/activity"
	"github.com/serroba/linktrail/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	topics   []string
	messages []*message.Message
	err      error
	closed   bool
}

func (r *recordingPublisher) Publish(topic string, msgs ...*message.Message) error {
	if r.err != nil {
		return r.err
	}

	for range msgs {
		r.topics = append(r.topics, topic)
	}

	r.messages = append(r.messages, msgs...)

	return nil
}

func (r *recordingPublisher) Close() error {
	r.closed = true

	return nil
}

func TestNewPublishFunc(t *testing.T) {
	t.Run("encodes the event and stamps the publish time", func(t *testing.T) {
		pub := &recordingPublisher{}
		publish := messaging.NewPublishFunc[activity.Event](pub, activity.TopicEvents)
		before := time.Now().UTC()

		event := activity.NewSettingChanged("theme", "light", "dark")
		event.ID = 7

		require.NoError(t, publish(context.Background(), event))
		require.Len(t, pub.messages, 1)
		assert.Equal(t, []string{activity.TopicEvents}, pub.topics)

		msg := pub.messages[0]
		assert.NotEmpty(t, msg.UUID)
		assert.Contains(t, string(msg.Payload), `"settingName":"theme"`)

		publishedAt, ok := messaging.PublishedAt(msg)
		require.True(t, ok)
		assert.False(t, publishedAt.Before(before.Truncate(time.Microsecond)))
	})

	t.Run("returns transport errors", func(t *testing.T) {
		errDown := errors.New("stream down")
		publish := messaging.NewPublishFunc[activity.Event](&recordingPublisher{err: errDown}, activity.TopicEvents)

		err := publish(context.Background(), activity.NewSearchRun("x", 0))

		assert.ErrorIs(t, err, errDown)
	})
}

func TestPublishedAt(t *testing.T) {
	t.Run("missing metadata", func(t *testing.T) {
		_, ok := messaging.PublishedAt(message.NewMessage("1", nil))

		assert.False(t, ok)
	})

	t.Run("unparseable metadata", func(t *testing.T) {
		msg := message.NewMessage("1", nil)
		msg.Metadata.Set(messaging.MetadataPublishedAt, "yesterday")

		_, ok := messaging.PublishedAt(msg)

		assert.False(t, ok)
	})
}

func TestPublisherGroup(t *testing.T) {
	pub := &recordingPublisher{}
	group := messaging.NewPublisherGroup(pub)

	assert.Same(t, pub, group.Publisher())
	require.NoError(t, group.Shutdown())
	assert.True(t, pub.closed)
}
