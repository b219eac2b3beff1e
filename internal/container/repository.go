package container

import (
	"fmt"
	"time"

	"github.com/samber/do"
	"github.com/serroba/linktrail/internal/activity"
	"github.com/serroba/linktrail/internal/messaging"
	"github.com/serroba/linktrail/internal/store"
	"github.com/serroba/linktrail/internal/tracking"
	"go.uber.org/zap"
)

// eventStore names the undecorated activity log so writers and consumers can share it.
const eventStore = "activity.store"

// RepositoryPackage provides the link registry and the event store for the configured backend.
func RepositoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (tracking.Registry, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.Backend {
		case "memory":
			return store.NewMemoryRegistry(), nil
		case "redis":
			return store.NewRedisRegistry(do.MustInvoke[*redisConn](i).Client), nil
		case "postgres":
			registry := store.NewPostgresRegistry(do.MustInvoke[*postgresConn](i).Pool)
			if opts.CacheTTL <= 0 {
				return registry, nil
			}

			ttl := time.Duration(opts.CacheTTL) * time.Second

			return store.NewRedisCacheRegistry(registry, do.MustInvoke[*redisConn](i).Client, ttl), nil
		default:
			return nil, fmt.Errorf("unknown backend %q", opts.Backend)
		}
	})

	do.ProvideNamed(injector, eventStore, func(i *do.Injector) (activity.Log, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.Backend {
		case "memory":
			return store.NewMemoryEventLog(), nil
		case "redis":
			return store.NewRedisEventLog(do.MustInvoke[*redisConn](i).Client), nil
		case "postgres":
			return store.NewPostgresEventLog(do.MustInvoke[*postgresConn](i).Pool), nil
		default:
			return nil, fmt.Errorf("unknown backend %q", opts.Backend)
		}
	})
}

// TrackingPackage provides the activity log seen by writers, the query reader and the tracking service.
func TrackingPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (activity.Log, error) {
		opts := do.MustInvoke[*Options](i)
		log := do.MustInvokeNamed[activity.Log](i, eventStore)

		if !opts.Publish {
			return log, nil
		}

		group := do.MustInvoke[*messaging.PublisherGroup](i)
		publish := messaging.NewPublishFunc[activity.Event](group.Publisher(), activity.TopicEvents)

		return activity.NewPublishingLog(log, publish, do.MustInvoke[*zap.Logger](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*activity.Query, error) {
		return activity.NewQuery(do.MustInvoke[activity.Log](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*tracking.Service, error) {
		opts := do.MustInvoke[*Options](i)

		generate, err := tracking.NewTokenGenerator(opts.TokenLength)
		if err != nil {
			return nil, err
		}

		return tracking.NewService(
			do.MustInvoke[tracking.Registry](i),
			do.MustInvoke[activity.Log](i),
			generate,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}
