package activity

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrMalformedEvent = errors.New("malformed event")
	ErrUnknownKind    = errors.New("unknown event kind")
)

// EventID is assigned by the log in strictly increasing order.
type EventID uint64

// Kind identifies the payload an Event carries.
type Kind string

const (
	KindLinkCreated    Kind = "link_created"
	KindVisitRecorded  Kind = "visit_recorded"
	KindSearchRun      Kind = "search_run"
	KindSettingChanged Kind = "setting_changed"
)

// Kinds lists every event kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindLinkCreated, KindVisitRecorded, KindSearchRun, KindSettingChanged}
}

// ParseKind accepts the wire name of a kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

type LinkCreated struct {
	OriginalURL  string `json:"originalUrl"`
	TrackedToken string `json:"trackedToken"`
}

type VisitRecorded struct {
	TrackedToken string `json:"trackedToken"`
	SourceIP     string `json:"sourceIp"`
	UserAgent    string `json:"userAgent"`
	Location     string `json:"location"`
}

type SearchRun struct {
	Query       string `json:"query"`
	ResultCount int    `json:"resultCount"`
}

type SettingChanged struct {
	SettingName string `json:"settingName"`
	OldValue    string `json:"oldValue"`
	NewValue    string `json:"newValue"`
}

// Event is an immutable record in the activity log. Exactly one payload
// field matching Kind is set.
type Event struct {
	ID        EventID   `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"type"`

	LinkCreated    *LinkCreated    `json:"linkCreated,omitempty"`
	VisitRecorded  *VisitRecorded  `json:"visitRecorded,omitempty"`
	SearchRun      *SearchRun      `json:"searchRun,omitempty"`
	SettingChanged *SettingChanged `json:"settingChanged,omitempty"`
}

func NewLinkCreated(token, originalURL string) *Event {
	return &Event{
		Kind:        KindLinkCreated,
		LinkCreated: &LinkCreated{OriginalURL: originalURL, TrackedToken: token},
	}
}

func NewVisitRecorded(token, sourceIP, userAgent, location string) *Event {
	return &Event{
		Kind: KindVisitRecorded,
		VisitRecorded: &VisitRecorded{
			TrackedToken: token,
			SourceIP:     sourceIP,
			UserAgent:    userAgent,
			Location:     location,
		},
	}
}

func NewSearchRun(query string, resultCount int) *Event {
	return &Event{
		Kind:      KindSearchRun,
		SearchRun: &SearchRun{Query: query, ResultCount: resultCount},
	}
}

func NewSettingChanged(name, oldValue, newValue string) *Event {
	return &Event{
		Kind:           KindSettingChanged,
		SettingChanged: &SettingChanged{SettingName: name, OldValue: oldValue, NewValue: newValue},
	}
}

// Validate checks internal well-formedness: the payload matches Kind and its
// required fields are present. It does not check cross-component references.
func (e *Event) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil event", ErrMalformedEvent)
	}

	set := 0

	for _, present := range []bool{
		e.LinkCreated != nil, e.VisitRecorded != nil, e.SearchRun != nil, e.SettingChanged != nil,
	} {
		if present {
			set++
		}
	}

	if set != 1 {
		return fmt.Errorf("%w: want exactly one payload, got %d", ErrMalformedEvent, set)
	}

	switch e.Kind {
	case KindLinkCreated:
		p := e.LinkCreated
		if p == nil || p.TrackedToken == "" || p.OriginalURL == "" {
			return fmt.Errorf("%w: link_created needs trackedToken and originalUrl", ErrMalformedEvent)
		}
	case KindVisitRecorded:
		if e.VisitRecorded == nil || e.VisitRecorded.TrackedToken == "" {
			return fmt.Errorf("%w: visit_recorded needs trackedToken", ErrMalformedEvent)
		}
	case KindSearchRun:
		p := e.SearchRun
		if p == nil || p.Query == "" || p.ResultCount < 0 {
			return fmt.Errorf("%w: search_run needs query and a non-negative resultCount", ErrMalformedEvent)
		}
	case KindSettingChanged:
		if e.SettingChanged == nil || e.SettingChanged.SettingName == "" {
			return fmt.Errorf("%w: setting_changed needs settingName", ErrMalformedEvent)
		}
	default:
		return fmt.Errorf("%w: %w: %q", ErrMalformedEvent, ErrUnknownKind, e.Kind)
	}

	return nil
}

// Describe renders the human-readable line used by the activity list and
// substring search.
func (e *Event) Describe() string {
	switch e.Kind {
	case KindLinkCreated:
		if p := e.LinkCreated; p != nil {
			return fmt.Sprintf("Created tracked link: %s from %s", p.TrackedToken, p.OriginalURL)
		}
	case KindVisitRecorded:
		if p := e.VisitRecorded; p != nil {
			return fmt.Sprintf("Visit: ip=%s location=%s url=%s", p.SourceIP, p.Location, p.TrackedToken)
		}
	case KindSearchRun:
		if p := e.SearchRun; p != nil {
			return fmt.Sprintf("Search: query=%s results=%d", p.Query, p.ResultCount)
		}
	case KindSettingChanged:
		if p := e.SettingChanged; p != nil {
			return fmt.Sprintf("Setting %s: %s -> %s", p.SettingName, p.OldValue, p.NewValue)
		}
	}

	return ""
}

// Clone returns a deep copy so stored events cannot be mutated through callers.
func (e *Event) Clone() *Event {
	c := *e

	if e.LinkCreated != nil {
		p := *e.LinkCreated
		c.LinkCreated = &p
	}

	if e.VisitRecorded != nil {
		p := *e.VisitRecorded
		c.VisitRecorded = &p
	}

	if e.SearchRun != nil {
		p := *e.SearchRun
		c.SearchRun = &p
	}

	if e.SettingChanged != nil {
		p := *e.SettingChanged
		c.SettingChanged = &p
	}

	return &c
}
