package sales

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool the repository needs
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists POS sales records
type Repository interface {
	UpsertRecords(ctx context.Context, records []Record) (int, error)
}

// PostgresRepository implements Repository over pgx
type PostgresRepository struct {
	db Querier
}

// NewPostgresRepository creates a PostgreSQL-backed sales repository
func NewPostgresRepository(db Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// UpsertRecords writes sales records, replacing earlier values for the same
// (entity, date, hour, source) slot. POS exports are cumulative snapshots, so
// the latest import wins.
func (r *PostgresRepository) UpsertRecords(ctx context.Context, records []Record) (int, error) {
	query := `
		INSERT INTO sales_records (
			id, entity_id, sale_date, sale_hour, document_count,
			avg_amount_excl_tax, avg_amount_incl_tax,
			total_amount_excl_tax, total_amount_incl_tax, source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (entity_id, sale_date, sale_hour, source) DO UPDATE SET
			document_count = EXCLUDED.document_count,
			avg_amount_excl_tax = EXCLUDED.avg_amount_excl_tax,
			avg_amount_incl_tax = EXCLUDED.avg_amount_incl_tax,
			total_amount_excl_tax = EXCLUDED.total_amount_excl_tax,
			total_amount_incl_tax = EXCLUDED.total_amount_incl_tax,
			updated_at = NOW()
	`

	written := 0
	for _, rec := range records {
		_, err := r.db.Exec(ctx, query,
			rec.ID, rec.EntityID, rec.Date, rec.Hour, rec.DocumentCount,
			rec.AvgAmountExclTax, rec.AvgAmountInclTax,
			rec.TotalAmountExclTax, rec.TotalAmountInclTax, rec.Source,
		)
		if err != nil {
			return written, fmt.Errorf("failed to upsert sales record: %w", err)
		}
		written++
	}
	return written, nil
}

// PostgresDirectory implements EntityDirectory against the entities table
type PostgresDirectory struct {
	db Querier
}

// NewPostgresDirectory creates a database-backed entity directory
func NewPostgresDirectory(db Querier) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// LookupCode resolves an entity code to its ID
func (d *PostgresDirectory) LookupCode(ctx context.Context, code string) (uuid.UUID, bool, error) {
	query := `SELECT id FROM entities WHERE code = $1`

	var id uuid.UUID
	err := d.db.QueryRow(ctx, query, code).Scan(&id)
	if err == pgx.ErrNoRows {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to lookup entity code: %w", err)
	}
	return id, true, nil
}
