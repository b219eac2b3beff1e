package handlers

import (
	"time"

	"github.com/serroba/linktrail/internal/activity"
)

// CreateLinkRequest is the request body for issuing a tracked link.
type CreateLinkRequest struct {
	Body struct {
		URL string `doc:"The URL to track" example:"https://example.com/landing" json:"url" minLength:"1"`
	}
}

// LinkBody describes an issued tracked link.
type LinkBody struct {
	Token       string    `doc:"Opaque tracking token"       example:"V1StGXR8_Z"                   json:"token"`
	TrackingURL string    `doc:"Public tracking URL"         example:"http://localhost:8888/r/V1StGXR8_Z" json:"trackingUrl"`
	OriginalURL string    `doc:"The URL the link was issued for" example:"https://example.com/landing" json:"originalUrl"`
	CreatedAt   time.Time `doc:"Issue time"                  json:"createdAt"`
}

// CreateLinkResponse is the response for a newly issued link.
type CreateLinkResponse struct {
	Headers struct {
		Location string `doc:"The public tracking URL" header:"Location"`
	}
	Body LinkBody
}

// ListLinksResponse lists issued links, newest first.
type ListLinksResponse struct {
	Body struct {
		Links []LinkBody `json:"links"`
	}
}

// TokenPath addresses a single tracked link.
type TokenPath struct {
	Token string `doc:"Tracking token" example:"V1StGXR8_Z" path:"token"`
}

// GetLinkResponse returns a single link.
type GetLinkResponse struct {
	Body LinkBody
}

// RecordVisitRequest is sent by the landing handler for every hit on a tracking URL.
type RecordVisitRequest struct {
	Token string `doc:"Tracking token" path:"token"`
	Body  struct {
		SourceIP  string `doc:"Visitor IP; defaults to the caller's IP"         json:"sourceIp,omitempty"`
		UserAgent string `doc:"Visitor user agent; defaults to the caller's"    json:"userAgent,omitempty"`
		Location  string `doc:"Best-effort geolocation" example:"Paris, France" json:"location,omitempty"`
	}
}

// EventCreatedResponse returns the id assigned to an appended event.
type EventCreatedResponse struct {
	Body struct {
		EventID uint64 `doc:"Assigned event id" json:"eventId"`
	}
}

// RecordSearchRequest is pushed by the search collaborator.
type RecordSearchRequest struct {
	Body struct {
		Query       string `doc:"Search query"             example:"John Doe" json:"query"       minLength:"1"`
		ResultCount int    `doc:"Number of results found"  example:"5"        json:"resultCount" minimum:"0"`
	}
}

// RecordSettingRequest is pushed by the settings collaborator.
type RecordSettingRequest struct {
	Body struct {
		Name     string `doc:"Setting name"   example:"theme" json:"name"               minLength:"1"`
		OldValue string `doc:"Previous value" example:"light" json:"oldValue,omitempty"`
		NewValue string `doc:"New value"      example:"dark"  json:"newValue,omitempty"`
	}
}

// ListActivityRequest filters the activity log.
type ListActivityRequest struct {
	Kind   string `default:"all" doc:"Event kind or 'all'" enum:"all,link_created,visit_recorded,search_run,setting_changed" query:"kind"`
	Search string `doc:"Case-insensitive substring of the event description" query:"q"`
	Limit  int    `doc:"Maximum number of events; 0 means no limit" maximum:"1000" minimum:"0" query:"limit"`
}

// EventBody is an activity event as rendered for clients.
type EventBody struct {
	ID          uint64    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"`
	Description string    `json:"description"`

	LinkCreated    *activity.LinkCreated    `json:"linkCreated,omitempty"`
	VisitRecorded  *activity.VisitRecorded  `json:"visitRecorded,omitempty"`
	SearchRun      *activity.SearchRun      `json:"searchRun,omitempty"`
	SettingChanged *activity.SettingChanged `json:"settingChanged,omitempty"`
}

// ListActivityResponse lists matching events, newest first.
type ListActivityResponse struct {
	Body struct {
		Events []EventBody `json:"events"`
		Count  int         `json:"count"`
	}
}

// ActivityStatsResponse counts events per kind.
type ActivityStatsResponse struct {
	Body struct {
		Total       int            `json:"total"`
		ByKind      map[string]int `json:"byKind"`
		LastEventID uint64         `json:"lastEventId"`
	}
}

func toEventBody(e *activity.Event) EventBody {
	return EventBody{
		ID:             uint64(e.ID),
		Timestamp:      e.Timestamp,
		Type:           string(e.Kind),
		Description:    e.Describe(),
		LinkCreated:    e.LinkCreated,
		VisitRecorded:  e.VisitRecorded,
		SearchRun:      e.SearchRun,
		SettingChanged: e.SettingChanged,
	}
}
