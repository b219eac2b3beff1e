package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/linktrail/internal/activity"
	"github.com/serroba/linktrail/internal/tracking"
)

// PostgresRegistry is a PostgreSQL implementation of tracking.Registry.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistry creates a new PostgreSQL-backed link registry.
func NewPostgresRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{pool: pool}
}

func (p *PostgresRegistry) Register(ctx context.Context, link *tracking.TrackedLink) error {
	query := `
		INSERT INTO tracked_links (token, original_url, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO NOTHING
	`

	tag, err := p.pool.Exec(ctx, query, string(link.Token), link.OriginalURL, link.CreatedAt)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return tracking.ErrDuplicateToken
	}

	return nil
}

func (p *PostgresRegistry) Resolve(ctx context.Context, token tracking.Token) (*tracking.TrackedLink, error) {
	query := `
		SELECT token, original_url, created_at
		FROM tracked_links
		WHERE token = $1
	`

	var link tracking.TrackedLink

	err := p.pool.QueryRow(ctx, query, string(token)).Scan(
		&link.Token,
		&link.OriginalURL,
		&link.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tracking.ErrNotFound
		}

		return nil, err
	}

	return &link, nil
}

func (p *PostgresRegistry) List(ctx context.Context) ([]*tracking.TrackedLink, error) {
	query := `
		SELECT token, original_url, created_at
		FROM tracked_links
		ORDER BY seq DESC
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*tracking.TrackedLink, 0)

	for rows.Next() {
		var link tracking.TrackedLink
		if err := rows.Scan(&link.Token, &link.OriginalURL, &link.CreatedAt); err != nil {
			return nil, err
		}

		result = append(result, &link)
	}

	return result, rows.Err()
}

// PostgresEventLog is a PostgreSQL implementation of activity.Log.
//
// Ids come from a single counter row bumped inside the inserting
// transaction. The row lock is held until commit, so appends commit in id
// order and readers never see a later id without its predecessors.
type PostgresEventLog struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresEventLog creates a new PostgreSQL-backed event log.
func NewPostgresEventLog(pool *pgxpool.Pool) *PostgresEventLog {
	return &PostgresEventLog{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (p *PostgresEventLog) Append(ctx context.Context, event *activity.Event) (activity.EventID, error) {
	if err := event.Validate(); err != nil {
		return 0, err
	}

	stored := event.Clone()

	var id int64

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`UPDATE activity_counter SET last_id = last_id + 1 RETURNING last_id`,
		).Scan(&id); err != nil {
			return fmt.Errorf("assign event id: %w", err)
		}

		stored.ID = activity.EventID(id)
		if stored.Timestamp.IsZero() {
			stored.Timestamp = p.now()
		}

		payload, err := json.Marshal(stored)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO activity_events (id, kind, occurred_at, payload)
			VALUES ($1, $2, $3, $4)
		`, id, string(stored.Kind), stored.Timestamp, payload)

		return err
	})
	if err != nil {
		return 0, err
	}

	return activity.EventID(id), nil
}

func (p *PostgresEventLog) Snapshot(ctx context.Context) ([]*activity.Event, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, payload FROM activity_events ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*activity.Event, 0)

	for rows.Next() {
		var (
			id      int64
			payload []byte
		)

		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}

		var event activity.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", id, err)
		}

		event.ID = activity.EventID(id)
		result = append(result, &event)
	}

	return result, rows.Err()
}

// Clear deletes stored events; activity_counter is untouched.
func (p *PostgresEventLog) Clear(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM activity_events`)

	return err
}

// Compile-time checks.
var (
	_ tracking.Registry = (*PostgresRegistry)(nil)
	_ activity.Log      = (*PostgresEventLog)(nil)
)
