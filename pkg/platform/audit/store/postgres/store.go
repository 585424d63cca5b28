package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "cmsportal/pkg/platform/audit"
)

const schema = `
	CREATE TABLE IF NOT EXISTS audit_events (
		id                UUID PRIMARY KEY,
		event_type        TEXT        NOT NULL,
		category          TEXT        NOT NULL,
		occurred_at       TIMESTAMPTZ NOT NULL,
		user_id           TEXT        NOT NULL DEFAULT '',
		data_fiduciary_id TEXT        NOT NULL DEFAULT '',
		reference_id      TEXT        NOT NULL DEFAULT '',
		artifact_id       TEXT        NOT NULL DEFAULT '',
		purpose_ids       TEXT[]      NOT NULL DEFAULT '{}',
		status            TEXT        NOT NULL DEFAULT '',
		detail            TEXT        NOT NULL DEFAULT '',
		device            TEXT        NOT NULL DEFAULT '',
		client_ip         TEXT        NOT NULL DEFAULT '',
		request_id        TEXT        NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS audit_events_user_idx ON audit_events (user_id, occurred_at DESC);
`

// Store persists audit events in the audit_events table.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the table and index when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// Append inserts an event. Re-appending an event with a known ID is a no-op.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := event.ID
	if eventID == "" {
		eventID = uuid.NewString()
	}
	purposes := event.PurposeIDs
	if purposes == nil {
		purposes = []string{}
	}

	query := `
		INSERT INTO audit_events (
			id, event_type, category, occurred_at, user_id, data_fiduciary_id,
			reference_id, artifact_id, purpose_ids, status, detail,
			device, client_ip, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::text[], $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		eventID,
		string(event.Type),
		string(event.Type.Category()),
		event.Timestamp,
		event.UserID,
		event.DataFiduciaryID,
		event.ReferenceID,
		event.ArtifactID,
		pq.Array(purposes),
		event.Status,
		event.Detail,
		event.Device,
		event.ClientIP,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByUser returns events for a specific user, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]audit.Event, error) {
	query := `
		SELECT id, event_type, occurred_at, user_id, data_fiduciary_id,
			   reference_id, artifact_id, purpose_ids, status, detail,
			   device, client_ip, request_id
		FROM audit_events
		WHERE user_id = $1
		ORDER BY occurred_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT id, event_type, occurred_at, user_id, data_fiduciary_id,
			   reference_id, artifact_id, purpose_ids, status, detail,
			   device, client_ip, request_id
		FROM audit_events
		ORDER BY occurred_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			e         audit.Event
			eventType string
		)
		if err := rows.Scan(
			&e.ID,
			&eventType,
			&e.Timestamp,
			&e.UserID,
			&e.DataFiduciaryID,
			&e.ReferenceID,
			&e.ArtifactID,
			pq.Array(&e.PurposeIDs),
			&e.Status,
			&e.Detail,
			&e.Device,
			&e.ClientIP,
			&e.RequestID,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Type = audit.EventType(eventType)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
