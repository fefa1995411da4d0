package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"claimdesk/internal/claims/models"
	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
	txcontext "claimdesk/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

// PostgresStore persists claims as one row per aggregate with the damages
// held in a JSONB array.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed claim store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the claims table and its indexes if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate claims schema: %w", err)
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const claimColumns = `id, title, description, status, damages, created_at, updated_at`

func (s *PostgresStore) Save(ctx context.Context, claim *models.Claim) error {
	snap := claim.Snapshot()
	damages, err := json.Marshal(snap.Damages)
	if err != nil {
		return fmt.Errorf("marshal claim damages: %w", err)
	}

	query := `
		INSERT INTO claims (id, title, description, status, damages, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			damages = EXCLUDED.damages,
			total_amount = EXCLUDED.total_amount,
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(snap.ID),
		snap.Title,
		snap.Description,
		string(snap.Status),
		string(damages),
		snap.TotalAmount,
		snap.CreatedAt,
		snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save claim: %w", err)
	}
	return nil
}

// Update is an alias of Save.
func (s *PostgresStore) Update(ctx context.Context, claim *models.Claim) error {
	return s.Save(ctx, claim)
}

func (s *PostgresStore) FindByID(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	return s.find(ctx, claimID, false)
}

func (s *PostgresStore) find(ctx context.Context, claimID id.ClaimID, forUpdate bool) (*models.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	snap, err := scanClaim(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(claimID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find claim by id: %w", err)
	}
	return rehydrate(snap)
}

// FindAll pages claims newest first. The count and the page are read
// concurrently on separate connections, so listing never joins a caller
// transaction.
func (s *PostgresStore) FindAll(ctx context.Context, filter models.ClaimFilter) (*models.Page[models.ClaimSummary], error) {
	filter.Normalize()
	page := &models.Page[models.ClaimSummary]{
		Data:   []models.ClaimSummary{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	// Claims carry no client id; a client filter can match nothing.
	if filter.ClientID != "" {
		return page, nil
	}

	where, args := buildWhere(filter)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		query := `SELECT COUNT(*) FROM claims` + where
		if err := s.db.QueryRowContext(gctx, query, args...).Scan(&page.Total); err != nil {
			return fmt.Errorf("count claims: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		listArgs := append(append([]any{}, args...), filter.Limit, filter.Offset)
		query := fmt.Sprintf(`
			SELECT id, title, description, status, total_amount, created_at
			FROM claims%s
			ORDER BY created_at DESC, id
			LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)

		rows, err := s.db.QueryContext(gctx, query, listArgs...)
		if err != nil {
			return fmt.Errorf("list claims: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				summary models.ClaimSummary
				rawID   uuid.UUID
				status  string
			)
			if err := rows.Scan(&rawID, &summary.Title, &summary.Description, &status, &summary.TotalAmount, &summary.CreatedAt); err != nil {
				return fmt.Errorf("scan claim summary: %w", err)
			}
			summary.ID = id.ClaimID(rawID)
			summary.Status = models.Status(status)
			page.Data = append(page.Data, summary)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate claims: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return page, nil
}

func buildWhere(filter models.ClaimFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Delete removes the claim. Deleting a missing claim is not an error.
func (s *PostgresStore) Delete(ctx context.Context, claimID id.ClaimID) error {
	if _, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM claims WHERE id = $1`, uuid.UUID(claimID)); err != nil {
		return fmt.Errorf("delete claim: %w", err)
	}
	return nil
}

// DeleteIf locks the row with SELECT ... FOR UPDATE, runs guard and deletes
// the row in the same transaction.
func (s *PostgresStore) DeleteIf(ctx context.Context, claimID id.ClaimID, guard func(*models.Claim) error) error {
	return txcontext.Run(ctx, s.db, func(txCtx context.Context) error {
		c, err := s.find(txCtx, claimID, true)
		if err != nil {
			return err
		}
		if err := guard(c); err != nil {
			return err
		}
		return s.Delete(txCtx, claimID)
	})
}

// Execute loads the claim with SELECT ... FOR UPDATE, runs fn and saves the
// result in the same transaction. A failing fn rolls everything back.
func (s *PostgresStore) Execute(ctx context.Context, claimID id.ClaimID, fn func(*models.Claim) error) (*models.Claim, error) {
	var claim *models.Claim
	err := txcontext.Run(ctx, s.db, func(txCtx context.Context) error {
		c, err := s.find(txCtx, claimID, true)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		if err := s.Save(txCtx, c); err != nil {
			return err
		}
		claim = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

func scanClaim(row *sql.Row) (models.ClaimSnapshot, error) {
	var (
		snap      models.ClaimSnapshot
		rawID     uuid.UUID
		status    string
		damages   []byte
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&rawID, &snap.Title, &snap.Description, &status, &damages, &createdAt, &updatedAt); err != nil {
		return models.ClaimSnapshot{}, err
	}
	snap.ID = id.ClaimID(rawID)
	snap.Status = models.Status(status)
	snap.CreatedAt = createdAt.UTC()
	snap.UpdatedAt = updatedAt.UTC()
	if len(damages) > 0 {
		if err := json.Unmarshal(damages, &snap.Damages); err != nil {
			return models.ClaimSnapshot{}, fmt.Errorf("unmarshal claim damages: %w", err)
		}
	}
	return snap, nil
}
