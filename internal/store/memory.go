package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/linktrail/internal/activity"
	"github.com/serroba/linktrail/internal/tracking"
)

// MemoryRegistry is an in-memory implementation of tracking.Registry.
type MemoryRegistry struct {
	mu    sync.RWMutex
	links map[tracking.Token]tracking.TrackedLink
	order []tracking.Token // creation order
}

// NewMemoryRegistry creates a new in-memory link registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		links: make(map[tracking.Token]tracking.TrackedLink),
	}
}

func (m *MemoryRegistry) Register(_ context.Context, link *tracking.TrackedLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.links[link.Token]; ok {
		return tracking.ErrDuplicateToken
	}

	m.links[link.Token] = *link
	m.order = append(m.order, link.Token)

	return nil
}

func (m *MemoryRegistry) Resolve(_ context.Context, token tracking.Token) (*tracking.TrackedLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.links[token]
	if !ok {
		return nil, tracking.ErrNotFound
	}

	return &link, nil
}

func (m *MemoryRegistry) List(_ context.Context) ([]*tracking.TrackedLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*tracking.TrackedLink, 0, len(m.order))

	for i := len(m.order) - 1; i >= 0; i-- {
		link := m.links[m.order[i]]
		result = append(result, &link)
	}

	return result, nil
}

// MemoryEventLog is an in-memory implementation of activity.Log.
// Id assignment and storage happen under one short write lock, so the
// stored slice is always a gap-free prefix of the id sequence.
type MemoryEventLog struct {
	mu     sync.RWMutex
	lastID activity.EventID
	events []*activity.Event // ascending id
	now    func() time.Time
}

// NewMemoryEventLog creates a new in-memory event log.
func NewMemoryEventLog() *MemoryEventLog {
	return &MemoryEventLog{
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryEventLog) Append(_ context.Context, event *activity.Event) (activity.EventID, error) {
	if err := event.Validate(); err != nil {
		return 0, err
	}

	stored := event.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastID++
	stored.ID = m.lastID

	if stored.Timestamp.IsZero() {
		stored.Timestamp = m.now()
	}

	m.events = append(m.events, stored)

	return stored.ID, nil
}

func (m *MemoryEventLog) Snapshot(_ context.Context) ([]*activity.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*activity.Event, 0, len(m.events))

	for i := len(m.events) - 1; i >= 0; i-- {
		result = append(result, m.events[i].Clone())
	}

	return result, nil
}

func (m *MemoryEventLog) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = nil

	return nil
}

// Compile-time checks.
var (
	_ tracking.Registry = (*MemoryRegistry)(nil)
	_ activity.Log      = (*MemoryEventLog)(nil)
)
