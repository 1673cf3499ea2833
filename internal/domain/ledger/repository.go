package ledger

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

// Repository reads bank accounts and checks/creates movements
type Repository interface {
	ListBankAccounts(ctx context.Context) ([]BankAccount, error)
	MovementExists(ctx context.Context, key MovementKey) (bool, error)
	InsertMovement(ctx context.Context, m *Movement) error
}

// PostgresRepository implements Repository over pgx
type PostgresRepository struct {
	db Querier
}

// NewPostgresRepository creates a PostgreSQL-backed ledger repository
func NewPostgresRepository(db Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListBankAccounts returns every known bank account
func (r *PostgresRepository) ListBankAccounts(ctx context.Context) ([]BankAccount, error) {
	query := `
		SELECT id, entity_id, account_number, display_code, name
		FROM bank_accounts
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bank accounts: %w", err)
	}
	defer rows.Close()

	var accounts []BankAccount
	for rows.Next() {
		var a BankAccount
		if err := rows.Scan(&a.ID, &a.EntityID, &a.AccountNumber, &a.DisplayCode, &a.Name); err != nil {
			return nil, fmt.Errorf("failed to scan bank account: %w", err)
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

// MovementExists checks for a movement with the same natural key.
// IS NOT DISTINCT FROM makes the balance comparison NULL-safe: two rows with
// no running balance still deduplicate against each other.
func (r *PostgresRepository) MovementExists(ctx context.Context, key MovementKey) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM movements
			WHERE account_id = $1
			  AND value_date = $2
			  AND amount = $3
			  AND running_balance IS NOT DISTINCT FROM $4
			  AND description = $5
		)
	`

	var exists bool
	err := r.db.QueryRow(ctx, query,
		key.AccountID, key.ValueDate, key.Amount, key.RunningBalance, key.Description,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check movement existence: %w", err)
	}
	return exists, nil
}

// InsertMovement creates one ledger movement
func (r *PostgresRepository) InsertMovement(ctx context.Context, m *Movement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	query := `
		INSERT INTO movements (
			id, account_id, posting_date, value_date, description, amount,
			running_balance, document_reference, source_import_line_id, reconciliation_tag
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		m.ID, m.AccountID, m.PostingDate, m.ValueDate, m.Description,
		m.Amount, m.RunningBalance, m.DocumentReference,
		m.SourceImportLineID, m.ReconciliationTag,
	)
	if err != nil {
		return fmt.Errorf("failed to insert movement: %w", err)
	}
	return nil
}
