package staging

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/resto-backoffice/internal/ingest/parser"
)

func testLine() parser.RawImportLine {
	balance := decimal.NewFromInt(5000)
	return parser.RawImportLine{
		ID:             uuid.New(),
		ImportBatchID:  uuid.New(),
		Account:        "1234567",
		ValueDate:      time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
		Description:    "TRF P2P JOAO",
		Amount:         decimal.RequireFromString("1234.56"),
		RunningBalance: &balance,
		SourceFileName: "bcp.txt",
	}
}

func TestBulkInsertLines(t *testing.T) {
	t.Run("counts inserts and conflicts separately", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		fresh := testLine()
		dup := testLine()

		mock.ExpectExec(`INSERT INTO staged_import_lines`).
			WithArgs(fresh.ID, fresh.ImportBatchID, fresh.Company, fresh.Product,
				fresh.Account, fresh.Currency, fresh.PostingDate, fresh.ValueDate,
				fresh.Description, fresh.Amount, fresh.RunningBalance,
				fresh.DocumentReference, fresh.SourceFileName).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(`INSERT INTO staged_import_lines`).
			WithArgs(dup.ID, dup.ImportBatchID, dup.Company, dup.Product,
				dup.Account, dup.Currency, dup.PostingDate, dup.ValueDate,
				dup.Description, dup.Amount, dup.RunningBalance,
				dup.DocumentReference, dup.SourceFileName).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		repo := NewPostgresRepository(mock)
		inserted, duplicates, err := repo.BulkInsertLines(context.Background(), []parser.RawImportLine{fresh, dup})

		require.NoError(t, err)
		assert.Equal(t, 1, inserted)
		assert.Equal(t, 1, duplicates)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("racing unique violation counts as duplicate", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		line := testLine()
		mock.ExpectExec(`INSERT INTO staged_import_lines`).
			WithArgs(line.ID, line.ImportBatchID, line.Company, line.Product,
				line.Account, line.Currency, line.PostingDate, line.ValueDate,
				line.Description, line.Amount, line.RunningBalance,
				line.DocumentReference, line.SourceFileName).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		repo := NewPostgresRepository(mock)
		inserted, duplicates, err := repo.BulkInsertLines(context.Background(), []parser.RawImportLine{line})

		require.NoError(t, err)
		assert.Equal(t, 0, inserted)
		assert.Equal(t, 1, duplicates)
	})

	t.Run("other database errors abort the load", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		line := testLine()
		mock.ExpectExec(`INSERT INTO staged_import_lines`).
			WithArgs(line.ID, line.ImportBatchID, line.Company, line.Product,
				line.Account, line.Currency, line.PostingDate, line.ValueDate,
				line.Description, line.Amount, line.RunningBalance,
				line.DocumentReference, line.SourceFileName).
			WillReturnError(&pgconn.PgError{Code: "57014"}) // query_canceled

		repo := NewPostgresRepository(mock)
		_, _, err = repo.BulkInsertLines(context.Background(), []parser.RawImportLine{line})

		assert.Error(t, err)
	})
}

func TestListUnreconciled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	batchID := uuid.New()
	valueDate := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	amount := decimal.RequireFromString("100.50")

	mock.ExpectQuery(`SELECT (.+) FROM staged_import_lines`).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "import_batch_id", "account", "currency", "posting_date",
			"value_date", "description", "amount", "running_balance",
			"document_reference", "source_file_name", "reconciled_movement_id",
		}).AddRow(
			id, batchID, "1234567", nil, nil,
			valueDate, "TRF", amount, nil,
			nil, "f.csv", nil,
		))

	repo := NewPostgresRepository(mock)
	lines, err := repo.ListUnreconciled(context.Background())

	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, id, lines[0].ID)
	assert.Equal(t, "1234567", lines[0].Account)
	assert.Nil(t, lines[0].ReconciledMovementID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReconciled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	lineID := uuid.New()
	movementID := uuid.New()

	mock.ExpectExec(`UPDATE staged_import_lines SET reconciled_movement_id`).
		WithArgs(lineID, movementID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewPostgresRepository(mock)
	require.NoError(t, repo.MarkReconciled(context.Background(), lineID, movementID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
