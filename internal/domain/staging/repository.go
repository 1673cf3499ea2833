// Package staging persists parsed import rows ahead of reconciliation.
// Loading is idempotent: the natural key (account, value date, amount, running
// balance, description) is enforced by the store, so re-importing the same
// file is a no-op rather than an error.
package staging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/resto-backoffice/internal/ingest/parser"
)

// uniqueViolation is the PostgreSQL error code for a natural-key conflict
const uniqueViolation = "23505"

// StagedLine is a persisted import row awaiting reconciliation
type StagedLine struct {
	ID                   uuid.UUID
	ImportBatchID        uuid.UUID
	Account              string
	Currency             *string
	PostingDate          *time.Time
	ValueDate            time.Time
	Description          string
	Amount               decimal.Decimal
	RunningBalance       *decimal.Decimal
	DocumentReference    *string
	SourceFileName       string
	ReconciledMovementID *uuid.UUID
}

// Querier is the subset of pgxpool.Pool the repository needs (satisfied by
// pgxpool.Pool and by pgxmock in tests)
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores and reads staged import lines
type Repository interface {
	BulkInsertLines(ctx context.Context, lines []parser.RawImportLine) (inserted, duplicates int, err error)
	ListUnreconciled(ctx context.Context) ([]StagedLine, error)
	MarkReconciled(ctx context.Context, lineID, movementID uuid.UUID) error
}

// PostgresRepository implements Repository over pgx
type PostgresRepository struct {
	db Querier
}

// NewPostgresRepository creates a PostgreSQL-backed staging repository
func NewPostgresRepository(db Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// BulkInsertLines writes parsed rows with insert-or-ignore-on-conflict
// semantics. Conflicts on the natural key are counted as duplicates, not
// errors; any other database failure is fatal for the load.
func (r *PostgresRepository) BulkInsertLines(ctx context.Context, lines []parser.RawImportLine) (int, int, error) {
	query := `
		INSERT INTO staged_import_lines (
			id, import_batch_id, company, product, account, currency,
			posting_date, value_date, description, amount, running_balance,
			document_reference, source_file_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (account, value_date, amount, COALESCE(running_balance, -999999999), description)
		DO NOTHING
	`

	inserted := 0
	duplicates := 0
	for _, line := range lines {
		tag, err := r.db.Exec(ctx, query,
			line.ID, line.ImportBatchID, line.Company, line.Product,
			line.Account, line.Currency, line.PostingDate, line.ValueDate,
			line.Description, line.Amount, line.RunningBalance,
			line.DocumentReference, line.SourceFileName,
		)
		if err != nil {
			if isUniqueViolation(err) {
				// Shouldn't happen with DO NOTHING, but a racing insert can
				// still surface the constraint; treat it like a conflict.
				duplicates++
				continue
			}
			return inserted, duplicates, fmt.Errorf("failed to insert staged line: %w", err)
		}
		if tag.RowsAffected() == 0 {
			duplicates++
		} else {
			inserted++
		}
	}

	return inserted, duplicates, nil
}

// ListUnreconciled returns all staged rows not yet linked to a movement
func (r *PostgresRepository) ListUnreconciled(ctx context.Context) ([]StagedLine, error) {
	query := `
		SELECT id, import_batch_id, account, currency, posting_date, value_date,
		       description, amount, running_balance, document_reference,
		       source_file_name, reconciled_movement_id
		FROM staged_import_lines
		WHERE reconciled_movement_id IS NULL
		ORDER BY value_date, id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unreconciled lines: %w", err)
	}
	defer rows.Close()

	var lines []StagedLine
	for rows.Next() {
		var l StagedLine
		err := rows.Scan(
			&l.ID, &l.ImportBatchID, &l.Account, &l.Currency,
			&l.PostingDate, &l.ValueDate, &l.Description, &l.Amount,
			&l.RunningBalance, &l.DocumentReference, &l.SourceFileName,
			&l.ReconciledMovementID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staged line: %w", err)
		}
		lines = append(lines, l)
	}

	return lines, rows.Err()
}

// MarkReconciled links a staged line to the movement created from it
func (r *PostgresRepository) MarkReconciled(ctx context.Context, lineID, movementID uuid.UUID) error {
	query := `UPDATE staged_import_lines SET reconciled_movement_id = $2 WHERE id = $1`
	_, err := r.db.Exec(ctx, query, lineID, movementID)
	if err != nil {
		return fmt.Errorf("failed to mark line reconciled: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
