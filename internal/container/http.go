package container

import (
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/linktrail/internal/activity"
	"github.com/serroba/linktrail/internal/handlers"
	"github.com/serroba/linktrail/internal/health"
	"github.com/serroba/linktrail/internal/middleware"
	"github.com/serroba/linktrail/internal/ratelimit"
	"github.com/serroba/linktrail/internal/store"
	"github.com/serroba/linktrail/internal/tracking"
	"go.uber.org/zap"
)

// RateLimitPackage provides the policy limiter and scope resolver.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		opts := do.MustInvoke[*Options](i)

		var limitStore ratelimit.Store

		switch opts.RateLimitBackend {
		case "memory", "":
			limitStore = store.NewRateLimitMemoryStore()
		case "redis":
			limitStore = store.NewRateLimitRedisStore(do.MustInvoke[*redisConn](i).Client)
		default:
			return nil, fmt.Errorf("unknown rate limit backend %q", opts.RateLimitBackend)
		}

		policy := ratelimit.DefaultPolicy()
		if err := policy.Validate(); err != nil {
			return nil, err
		}

		return ratelimit.NewPolicyLimiter(limitStore, policy), nil
	})

	do.Provide(injector, func(_ *do.Injector) (ratelimit.ScopeResolver, error) {
		return ratelimit.NewOperationScopeResolver(), nil
	})
}

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		api := humachi.New(router, huma.DefaultConfig("linktrail", "1.0.0"))
		api.UseMiddleware(
			middleware.RequestMeta(api),
			middleware.PolicyRateLimiter(
				api,
				do.MustInvoke[*ratelimit.PolicyLimiter](i),
				do.MustInvoke[ratelimit.ScopeResolver](i),
				logger,
			),
		)

		links := handlers.NewLinkHandler(do.MustInvoke[*tracking.Service](i), opts.PublicBaseURL(), logger)
		events := handlers.NewActivityHandler(
			do.MustInvoke[activity.Log](i),
			do.MustInvoke[*activity.Query](i),
			logger,
		)

		handlers.RegisterRoutes(api, links, events)
		health.RegisterRoutes(api, health.NewHandler(opts.Backend, healthCheckers(i, opts)))

		return api, nil
	})
}

func healthCheckers(i *do.Injector, opts *Options) map[string]health.Checker {
	checkers := make(map[string]health.Checker)

	if opts.UsesRedis() {
		checkers["redis"] = health.NewRedisChecker(do.MustInvoke[*redisConn](i).Client)
	}

	if opts.Backend == "postgres" {
		checkers["postgres"] = health.NewPostgresChecker(do.MustInvoke[*postgresConn](i).Pool)
	}

	return checkers
}
