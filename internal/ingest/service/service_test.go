package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/resto-backoffice/internal/domain/sales"
	"github.com/FACorreiaa/resto-backoffice/internal/domain/staging"
	"github.com/FACorreiaa/resto-backoffice/internal/ingest/parser"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStaging collects staged rows and simulates natural-key conflicts
type memStaging struct {
	rows    []parser.RawImportLine
	seen    map[string]bool
	failErr error
}

func newMemStaging() *memStaging {
	return &memStaging{seen: make(map[string]bool)}
}

func (m *memStaging) BulkInsertLines(ctx context.Context, lines []parser.RawImportLine) (int, int, error) {
	if m.failErr != nil {
		return 0, 0, m.failErr
	}
	inserted, duplicates := 0, 0
	for _, l := range lines {
		key := fmt.Sprintf("%s|%s|%s|%s", l.Account, l.ValueDate.Format("2006-01-02"), l.Amount, l.Description)
		if m.seen[key] {
			duplicates++
			continue
		}
		m.seen[key] = true
		m.rows = append(m.rows, l)
		inserted++
	}
	return inserted, duplicates, nil
}

func (m *memStaging) ListUnreconciled(ctx context.Context) ([]staging.StagedLine, error) {
	panic("not used")
}

func (m *memStaging) MarkReconciled(ctx context.Context, lineID, movementID uuid.UUID) error {
	panic("not used")
}

// memSales collects upserted records
type memSales struct {
	records []sales.Record
}

func (m *memSales) UpsertRecords(ctx context.Context, records []sales.Record) (int, error) {
	m.records = append(m.records, records...)
	return len(records), nil
}

func delimitedDescriptor() parser.ImportFormatDescriptor {
	return parser.ImportFormatDescriptor{
		Code:     "bank-delimited",
		FileKind: parser.FileKindDelimitedText,
		Selector: parser.FormatDelimited,
	}
}

func TestImportService_ImportFile(t *testing.T) {
	t.Run("delimited bank file is staged with totals", func(t *testing.T) {
		st := newMemStaging()
		svc := NewImportService(st, discardLogger())

		data := []byte("Data Valor;Descrição;Valor\n" +
			"02/04/2024;TRF A;1.234,56\n" +
			"03/04/2024;TRF B;-234,56\n")

		summary, err := svc.ImportFile(context.Background(), delimitedDescriptor(), data, "extrato.csv")

		require.NoError(t, err)
		assert.Equal(t, 2, summary.Accepted)
		assert.Zero(t, summary.Rejected)
		assert.Len(t, st.rows, 2)
		assert.NotEqual(t, uuid.Nil, summary.ImportBatchID)

		// No currency column, so the default applies
		require.Contains(t, summary.TotalsByCurrency, "EUR")
		assert.Contains(t, summary.TotalsByCurrency["EUR"], "1,000.00")
	})

	t.Run("re-import of the same file counts duplicates", func(t *testing.T) {
		st := newMemStaging()
		svc := NewImportService(st, discardLogger())
		data := []byte("Data Valor;Valor\n02/04/2024;10,00\n")

		first, err := svc.ImportFile(context.Background(), delimitedDescriptor(), data, "f.csv")
		require.NoError(t, err)
		assert.Equal(t, 1, first.Accepted)

		second, err := svc.ImportFile(context.Background(), delimitedDescriptor(), data, "f.csv")
		require.NoError(t, err)
		assert.Zero(t, second.Accepted)
		assert.Equal(t, 1, second.Duplicates)
	})

	t.Run("latin-1 file is decoded before parsing", func(t *testing.T) {
		st := newMemStaging()
		svc := NewImportService(st, discardLogger())

		// Descrição with Latin-1 bytes for ç and ã
		data := []byte("Data Valor;Descri\xe7\xe3o;Valor\n02/04/2024;CAF\xc9;5,00\n")

		summary, err := svc.ImportFile(context.Background(), delimitedDescriptor(), data, "latin.csv")

		require.NoError(t, err)
		assert.Equal(t, 1, summary.Accepted)
		require.Len(t, st.rows, 1)
		assert.Equal(t, "CAFÉ", st.rows[0].Description)
	})

	t.Run("account hint fills rows without an account column", func(t *testing.T) {
		st := newMemStaging()
		svc := NewImportService(st, discardLogger()).WithAccountHint("1234567")

		data := []byte("Data Valor;Valor\n02/04/2024;10,00\n")

		_, err := svc.ImportFile(context.Background(), delimitedDescriptor(), data, "f.csv")

		require.NoError(t, err)
		require.Len(t, st.rows, 1)
		assert.Equal(t, "1234567", st.rows[0].Account)
	})

	t.Run("pos sales file goes to the sales repository", func(t *testing.T) {
		entity := uuid.New()
		salesRepo := &memSales{}
		svc := NewImportService(newMemStaging(), discardLogger()).
			WithSales(salesRepo, sales.StaticDirectory{"E1": entity})

		desc := parser.ImportFormatDescriptor{
			Code:     "pos-daily-sales",
			FileKind: parser.FileKindDelimitedText,
			Selector: parser.FormatPOSSales,
		}
		data := []byte(`E1,15/03/2024,7H,12,"5,00","6,00","60,00","72,00"`)

		summary, err := svc.ImportFile(context.Background(), desc, data, "vendas.csv")

		require.NoError(t, err)
		assert.Equal(t, 1, summary.Accepted)
		require.Len(t, salesRepo.records, 1)
		assert.Equal(t, entity, salesRepo.records[0].EntityID)
		assert.Equal(t, "07:00:00", salesRepo.records[0].Hour)
	})

	t.Run("pos sales without wiring is rejected", func(t *testing.T) {
		svc := NewImportService(newMemStaging(), discardLogger())

		desc := parser.ImportFormatDescriptor{Code: "pos", Selector: parser.FormatPOSSales}
		_, err := svc.ImportFile(context.Background(), desc, []byte("E1,15/03/2024,7H,1,,,,"), "v.csv")

		assert.Error(t, err)
	})

	t.Run("unknown selector is rejected before any parsing", func(t *testing.T) {
		svc := NewImportService(newMemStaging(), discardLogger())

		desc := parser.ImportFormatDescriptor{Code: "weird", Selector: parser.Format("xml")}
		_, err := svc.ImportFile(context.Background(), desc, []byte("whatever"), "f.xml")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "xml")
	})

	t.Run("file-level parse failure rejects the whole file", func(t *testing.T) {
		st := newMemStaging()
		svc := NewImportService(st, discardLogger())

		_, err := svc.ImportFile(context.Background(), delimitedDescriptor(), []byte("1;2;3\n"), "f.csv")

		require.Error(t, err)
		assert.Empty(t, st.rows)
	})
}

func TestRejectReportCSV(t *testing.T) {
	out, err := RejectReportCSV([]parser.RowError{
		{Row: 3, Field: "amount", Reason: `unparsable amount "n/a"`},
		{Row: 7, Reason: "column count 2, expected at least 3"},
	})

	require.NoError(t, err)
	assert.Contains(t, out, "row,field,reason")
	assert.Contains(t, out, "3,amount")
	assert.Contains(t, out, "7,")
}
