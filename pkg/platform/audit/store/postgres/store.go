package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "claimdesk/pkg/domain"
	audit "claimdesk/pkg/platform/audit"
	txcontext "claimdesk/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

// Store implements audit.Store and audit.Reader on a claim_audit_events table.
// Appends join a transaction carried in the context, so an event written
// inside a claim's Execute commits or rolls back with it.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the audit table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate audit schema: %w", err)
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts one event. The category is always derived from the action.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := audit.AuditEvent(event.Action).Category()
	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	query := `
		INSERT INTO claim_audit_events (
			id, claim_id, category, action, subject, from_status, to_status, reason, request_id, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		uuid.UUID(event.ClaimID),
		string(category),
		event.Action,
		event.Subject,
		event.FromStatus,
		event.ToStatus,
		event.Reason,
		event.RequestID,
		timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByClaim returns a claim's events in insertion order.
func (s *Store) ListByClaim(ctx context.Context, claimID id.ClaimID) ([]audit.Event, error) {
	query := `
		SELECT claim_id, category, action, subject, from_status, to_status, reason, request_id, occurred_at
		FROM claim_audit_events
		WHERE claim_id = $1
		ORDER BY seq ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(claimID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	events := []audit.Event{}
	for rows.Next() {
		var (
			e        audit.Event
			claimID  uuid.UUID
			category string
		)
		if err := rows.Scan(
			&claimID,
			&category,
			&e.Action,
			&e.Subject,
			&e.FromStatus,
			&e.ToStatus,
			&e.Reason,
			&e.RequestID,
			&e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.ClaimID = id.ClaimID(claimID)
		e.Category = audit.EventCategory(category)
		e.Timestamp = e.Timestamp.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
