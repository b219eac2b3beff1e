package activity

import (
	"context"
	"strings"
)

// KindAll matches every event kind in a Filter.
const KindAll Kind = "all"

// Filter selects events from a snapshot. A zero Filter matches everything.
type Filter struct {
	Kind   Kind
	Search string
	// Limit caps the result size when positive.
	Limit int
}

// Matches reports whether the event passes the kind and substring filters.
func (f Filter) Matches(e *Event) bool {
	if f.Kind != "" && f.Kind != KindAll && e.Kind != f.Kind {
		return false
	}

	if strings.TrimSpace(f.Search) == "" {
		return true
	}

	return strings.Contains(strings.ToLower(e.Describe()), strings.ToLower(f.Search))
}

// Query is the read-only view over a Log.
type Query struct {
	log Log
}

// NewQuery creates a query reader over log.
func NewQuery(log Log) *Query {
	return &Query{log: log}
}

// Find returns the events of the current snapshot that match filter, newest first.
func (q *Query) Find(ctx context.Context, filter Filter) ([]*Event, error) {
	snapshot, err := q.log.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*Event, 0, len(snapshot))

	for _, e := range snapshot {
		if !filter.Matches(e) {
			continue
		}

		result = append(result, e)

		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}

	return result, nil
}

// Stats summarizes the current snapshot.
type Stats struct {
	Total  int
	ByKind map[Kind]int
	// LastID is zero for an empty log.
	LastID EventID
}

// Stats counts the events of the current snapshot per kind.
func (q *Query) Stats(ctx context.Context) (*Stats, error) {
	snapshot, err := q.log.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Total:  len(snapshot),
		ByKind: make(map[Kind]int, len(Kinds())),
	}

	for _, k := range Kinds() {
		stats.ByKind[k] = 0
	}

	for _, e := range snapshot {
		stats.ByKind[e.Kind]++
	}

	if len(snapshot) > 0 {
		stats.LastID = snapshot[0].ID
	}

	return stats, nil
}
