package ingest

import "time"

// SearchRunMessage is published by the search collaborator when a lookup finishes.
type SearchRunMessage struct {
	Query       string    `json:"query"`
	ResultCount int       `json:"resultCount"`
	OccurredAt  time.Time `json:"occurredAt,omitempty"`
}

// SettingChangedMessage is published by the settings collaborator.
type SettingChangedMessage struct {
	Name       string    `json:"name"`
	OldValue   string    `json:"oldValue"`
	NewValue   string    `json:"newValue"`
	OccurredAt time.Time `json:"occurredAt,omitempty"`
}
