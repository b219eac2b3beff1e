package activity

import "context"

// Log is the append-only, id-ordered event store.
//
// Append assigns the next id with no gaps or duplicates, stamps a zero
// Timestamp and stores the event. A Timestamp earlier than its predecessor's
// is kept as given; order is always by id.
//
// Snapshot returns events newest first. It never exposes an event whose
// predecessor id is missing from the current log.
//
// Clear empties the log but never resets the id counter.
type Log interface {
	Append(ctx context.Context, event *Event) (EventID, error)
	Snapshot(ctx context.Context) ([]*Event, error)
	Clear(ctx context.Context) error
}
