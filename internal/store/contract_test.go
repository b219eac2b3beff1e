package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/serroba/linktrail/internal/activity"
	"github.com/serroba/linktrail/internal/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRegistry runs the tracking.Registry behaviour against a fresh registry per subtest.
func testRegistry(t *testing.T, newRegistry func(t *testing.T) tracking.Registry) {
	t.Helper()

	ctx := context.Background()
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("register and resolve", func(t *testing.T) {
		r := newRegistry(t)
		link := &tracking.TrackedLink{Token: "tok_000001", OriginalURL: "https://example.com/a", CreatedAt: createdAt}

		require.NoError(t, r.Register(ctx, link))

		got, err := r.Resolve(ctx, link.Token)

		require.NoError(t, err)
		assert.Equal(t, link.Token, got.Token)
		assert.Equal(t, link.OriginalURL, got.OriginalURL)
		assert.True(t, link.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("duplicate token is rejected and keeps the original", func(t *testing.T) {
		r := newRegistry(t)

		require.NoError(t, r.Register(ctx, &tracking.TrackedLink{
			Token: "tok_dup001", OriginalURL: "https://example.com/first", CreatedAt: createdAt,
		}))

		err := r.Register(ctx, &tracking.TrackedLink{
			Token: "tok_dup001", OriginalURL: "https://example.com/second", CreatedAt: createdAt,
		})

		require.ErrorIs(t, err, tracking.ErrDuplicateToken)

		got, err := r.Resolve(ctx, "tok_dup001")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/first", got.OriginalURL)
	})

	t.Run("unknown token is not found", func(t *testing.T) {
		_, err := newRegistry(t).Resolve(ctx, "tok_absent")

		assert.ErrorIs(t, err, tracking.ErrNotFound)
	})

	t.Run("list is newest first", func(t *testing.T) {
		r := newRegistry(t)

		for i, token := range []tracking.Token{"tok_list01", "tok_list02", "tok_list03"} {
			require.NoError(t, r.Register(ctx, &tracking.TrackedLink{
				Token:       token,
				OriginalURL: "https://example.com/" + string(token),
				CreatedAt:   createdAt.Add(time.Duration(i) * time.Second),
			}))
		}

		links, err := r.List(ctx)

		require.NoError(t, err)
		require.Len(t, links, 3)
		assert.Equal(t, tracking.Token("tok_list03"), links[0].Token)
		assert.Equal(t, tracking.Token("tok_list01"), links[2].Token)
	})
}

func eventIDs(events []*activity.Event) []activity.EventID {
	ids := make([]activity.EventID, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}

	return ids
}

// testEventLog runs the activity.Log behaviour against a fresh, empty log per subtest.
func testEventLog(t *testing.T, newLog func(t *testing.T) activity.Log) {
	t.Helper()

	ctx := context.Background()

	t.Run("ids are sequential and snapshot is newest first", func(t *testing.T) {
		log := newLog(t)

		first, err := log.Append(ctx, activity.NewLinkCreated("tok_000001", "https://example.com"))
		require.NoError(t, err)

		second, err := log.Append(ctx, activity.NewVisitRecorded("tok_000001", "10.0.0.1", "curl/8.0", "Paris, France"))
		require.NoError(t, err)

		third, err := log.Append(ctx, activity.NewSearchRun("John Doe", 5))
		require.NoError(t, err)

		assert.Equal(t, first+1, second)
		assert.Equal(t, second+1, third)

		snapshot, err := log.Snapshot(ctx)

		require.NoError(t, err)
		assert.Equal(t, []activity.EventID{third, second, first}, eventIDs(snapshot))
		assert.Equal(t, "Visit: ip=10.0.0.1 location=Paris, France url=tok_000001", snapshot[1].Describe())
		assert.Equal(t, "curl/8.0", snapshot[1].VisitRecorded.UserAgent)
	})

	t.Run("zero timestamp is stamped and skewed timestamps are kept", func(t *testing.T) {
		log := newLog(t)
		before := time.Now().Add(-time.Second)

		_, err := log.Append(ctx, activity.NewSearchRun("now", 1))
		require.NoError(t, err)

		skewed := activity.NewSettingChanged("theme", "light", "dark")
		skewed.Timestamp = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

		_, err = log.Append(ctx, skewed)
		require.NoError(t, err)

		snapshot, err := log.Snapshot(ctx)

		require.NoError(t, err)
		require.Len(t, snapshot, 2)
		assert.True(t, snapshot[0].Timestamp.Equal(skewed.Timestamp), "order stays by id")
		assert.True(t, snapshot[1].Timestamp.After(before))
	})

	t.Run("malformed events append nothing", func(t *testing.T) {
		log := newLog(t)

		first, err := log.Append(ctx, activity.NewSearchRun("ok", 0))
		require.NoError(t, err)

		_, err = log.Append(ctx, activity.NewSearchRun("", 1))
		require.ErrorIs(t, err, activity.ErrMalformedEvent)

		_, err = log.Append(ctx, &activity.Event{Kind: activity.KindSearchRun})
		require.ErrorIs(t, err, activity.ErrMalformedEvent)

		next, err := log.Append(ctx, activity.NewSearchRun("ok again", 0))
		require.NoError(t, err)
		assert.Equal(t, first+1, next, "rejected events consume no id")

		snapshot, err := log.Snapshot(ctx)
		require.NoError(t, err)
		assert.Len(t, snapshot, 2)
	})

	t.Run("concurrent appends get distinct gap-free ids", func(t *testing.T) {
		log := newLog(t)

		const writers = 50

		var (
			wg  sync.WaitGroup
			mu  sync.Mutex
			ids = make(map[activity.EventID]bool, writers)
		)

		for range writers {
			wg.Add(1)

			go func() {
				defer wg.Done()

				id, err := log.Append(ctx, activity.NewVisitRecorded("tok_000001", "10.0.0.1", "ua", ""))
				assert.NoError(t, err)

				mu.Lock()
				ids[id] = true
				mu.Unlock()
			}()
		}

		wg.Wait()

		snapshot, err := log.Snapshot(ctx)
		require.NoError(t, err)
		require.Len(t, snapshot, writers)
		require.Len(t, ids, writers)

		newest := snapshot[0].ID
		for i, e := range snapshot {
			assert.Equal(t, newest-activity.EventID(i), e.ID)
			assert.True(t, ids[e.ID])
		}
	})

	t.Run("clear empties the log and ids keep growing", func(t *testing.T) {
		log := newLog(t)

		last, err := log.Append(ctx, activity.NewSearchRun("before", 1))
		require.NoError(t, err)

		require.NoError(t, log.Clear(ctx))
		require.NoError(t, log.Clear(ctx))

		snapshot, err := log.Snapshot(ctx)
		require.NoError(t, err)
		assert.Empty(t, snapshot)

		next, err := log.Append(ctx, activity.NewSearchRun("after", 1))
		require.NoError(t, err)
		assert.Greater(t, next, last)
	})
}
