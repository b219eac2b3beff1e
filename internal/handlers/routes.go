package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/linktrail/internal/ratelimit"
)

// RegisterRoutes registers the link and activity routes with per-endpoint rate limit configuration.
func RegisterRoutes(api huma.API, links *LinkHandler, events *ActivityHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-link",
		Method:        http.MethodPost,
		Path:          "/links",
		Summary:       "Create tracked link",
		Description:   "Issues a new opaque tracking token for the submitted URL.",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusCreated,
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 10},
					{Window: time.Hour, Max: 100},
					{Window: 24 * time.Hour, Max: 500},
				},
			},
		},
	}, links.CreateLink)

	huma.Register(api, huma.Operation{
		OperationID: "list-links",
		Method:      http.MethodGet,
		Path:        "/links",
		Summary:     "List tracked links",
		Tags:        []string{"Links"},
	}, links.ListLinks)

	huma.Register(api, huma.Operation{
		OperationID: "get-link",
		Method:      http.MethodGet,
		Path:        "/links/{token}",
		Summary:     "Get tracked link",
		Tags:        []string{"Links"},
	}, links.GetLink)

	// Landing handlers report every hit, so visits get their own budget.
	huma.Register(api, huma.Operation{
		OperationID:   "record-visit",
		Method:        http.MethodPost,
		Path:          "/links/{token}/visits",
		Summary:       "Record visit",
		Description:   "Records a visit to a tracked link. Source IP and user agent default to the caller's.",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusCreated,
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: ratelimit.ScopeVisit},
		},
	}, links.RecordVisit)

	huma.Register(api, huma.Operation{
		OperationID:   "record-search",
		Method:        http.MethodPost,
		Path:          "/activity/searches",
		Summary:       "Record search run",
		Tags:          []string{"Activity"},
		DefaultStatus: http.StatusCreated,
	}, events.RecordSearch)

	huma.Register(api, huma.Operation{
		OperationID:   "record-setting",
		Method:        http.MethodPost,
		Path:          "/activity/settings",
		Summary:       "Record setting change",
		Tags:          []string{"Activity"},
		DefaultStatus: http.StatusCreated,
	}, events.RecordSetting)

	huma.Register(api, huma.Operation{
		OperationID: "list-activity",
		Method:      http.MethodGet,
		Path:        "/activity",
		Summary:     "Query activity log",
		Description: "Returns events newest first, filtered by kind and a case-insensitive substring of the description.",
		Tags:        []string{"Activity"},
	}, events.ListActivity)

	huma.Register(api, huma.Operation{
		OperationID: "activity-stats",
		Method:      http.MethodGet,
		Path:        "/activity/stats",
		Summary:     "Activity statistics",
		Tags:        []string{"Activity"},
	}, events.Stats)

	huma.Register(api, huma.Operation{
		OperationID:   "clear-activity",
		Method:        http.MethodDelete,
		Path:          "/activity",
		Summary:       "Clear activity log",
		Description:   "Removes every event. Event ids keep increasing and issued links stay valid.",
		Tags:          []string{"Activity"},
		DefaultStatus: http.StatusNoContent,
	}, events.ClearActivity)
}
