// Package service orchestrates file imports: decode, parse per the configured
// format descriptor, and load idempotently into staging or sales storage.
package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/resto-backoffice/internal/domain/sales"
	"github.com/FACorreiaa/resto-backoffice/internal/domain/staging"
	"github.com/FACorreiaa/resto-backoffice/internal/ingest/encoding"
	"github.com/FACorreiaa/resto-backoffice/internal/ingest/parser"
	"github.com/FACorreiaa/resto-backoffice/pkg/observability"
)

// defaultCurrency applies to statement rows that carry no currency column
const defaultCurrency = money.EUR

// ImportSummary is the user-visible outcome of one file import.
// Errors is capped; ErrorOverflow counts the diagnostics beyond the cap.
type ImportSummary struct {
	ImportBatchID    uuid.UUID
	Format           string
	Accepted         int
	Rejected         int
	Duplicates       int
	Errors           []string
	ErrorOverflow    int
	TotalsByCurrency map[string]string // formatted per-currency sum of accepted amounts
}

// ImportService runs the ingestion pipeline for one file at a time
type ImportService struct {
	staging      staging.Repository
	salesRepo    sales.Repository
	entities     sales.EntityDirectory
	logger       *slog.Logger
	batchSize    int
	maxRowErrors int
	accountHint  string
}

// NewImportService creates an import service
func NewImportService(stagingRepo staging.Repository, logger *slog.Logger) *ImportService {
	return &ImportService{
		staging:      stagingRepo,
		logger:       logger,
		batchSize:    500,
		maxRowErrors: parser.DefaultMaxRowErrors,
	}
}

// WithSales adds POS sales support to the import service
func (s *ImportService) WithSales(repo sales.Repository, entities sales.EntityDirectory) *ImportService {
	s.salesRepo = repo
	s.entities = entities
	return s
}

// WithBatchSize overrides the staging insert batch size
func (s *ImportService) WithBatchSize(size int) *ImportService {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// WithMaxRowErrors overrides the per-file detailed error budget
func (s *ImportService) WithMaxRowErrors(max int) *ImportService {
	if max > 0 {
		s.maxRowErrors = max
	}
	return s
}

// WithAccountHint fills the account token on statement rows whose file did
// not carry a resolvable account column
func (s *ImportService) WithAccountHint(hint string) *ImportService {
	s.accountHint = hint
	return s
}

// ImportFile ingests one file according to its format descriptor.
// File-level failures (no header, zero valid rows, unknown selector) reject
// the whole file with nothing written; row-level failures are summarized.
func (s *ImportService) ImportFile(ctx context.Context, desc parser.ImportFormatDescriptor, fileData []byte, fileName string) (*ImportSummary, error) {
	start := time.Now()

	format, err := parser.ResolveSelector(string(desc.Selector))
	if err != nil {
		return nil, err
	}

	var (
		summary   *ImportSummary
		importErr error
	)
	switch format {
	case parser.FormatDelimited:
		summary, importErr = s.importDelimited(ctx, desc, fileData, fileName)
	case parser.FormatSpreadsheet:
		summary, importErr = s.importSpreadsheet(ctx, desc, fileData, fileName)
	case parser.FormatPOSSales:
		summary, importErr = s.importPOSSales(ctx, desc, fileData)
	}

	status := "ok"
	if importErr != nil {
		status = "failed"
		observability.ObserveImport(desc.Code, status, 0, 0, 0, time.Since(start))
		s.logger.Error("file import rejected",
			slog.String("format", desc.Code),
			slog.String("file", fileName),
			slog.Any("error", importErr),
		)
		return nil, importErr
	}

	observability.ObserveImport(desc.Code, status, summary.Accepted, summary.Rejected, summary.Duplicates, time.Since(start))
	s.logger.Info("file imported",
		slog.String("format", desc.Code),
		slog.String("file", fileName),
		slog.Int("accepted", summary.Accepted),
		slog.Int("rejected", summary.Rejected),
		slog.Int("duplicates", summary.Duplicates),
	)
	return summary, nil
}

func (s *ImportService) importDelimited(ctx context.Context, desc parser.ImportFormatDescriptor, fileData []byte, fileName string) (*ImportSummary, error) {
	text := string(encoding.DecodeToUTF8(fileData))

	p := parser.NewDelimitedBankParser()
	p.MaxRowErrors = s.maxRowErrors
	p.DelimiterOverride = desc.Delimiter()
	p.HeaderSkipCount = desc.HeaderSkipCount

	batchID := uuid.New()
	result, err := p.Parse(text, batchID, fileName)
	if err != nil {
		return nil, err
	}
	return s.stageRows(ctx, desc, batchID, result)
}

func (s *ImportService) importSpreadsheet(ctx context.Context, desc parser.ImportFormatDescriptor, fileData []byte, fileName string) (*ImportSummary, error) {
	p := parser.NewSpreadsheetBankParser()
	p.MaxRowErrors = s.maxRowErrors
	p.HeaderSkipCount = desc.HeaderSkipCount

	batchID := uuid.New()
	result, err := p.Parse(bytes.NewReader(fileData), batchID, fileName)
	if err != nil {
		return nil, err
	}
	return s.stageRows(ctx, desc, batchID, result)
}

func (s *ImportService) importPOSSales(ctx context.Context, desc parser.ImportFormatDescriptor, fileData []byte) (*ImportSummary, error) {
	if s.salesRepo == nil || s.entities == nil {
		return nil, fmt.Errorf("sales ingestion is not configured")
	}
	text := string(encoding.DecodeToUTF8(fileData))

	p := parser.NewPOSSalesParser(s.entities, desc.Code)
	p.MaxRowErrors = s.maxRowErrors

	result, err := p.Parse(ctx, text)
	if err != nil {
		return nil, err
	}

	written, err := s.salesRepo.UpsertRecords(ctx, result.Records)
	if err != nil {
		return nil, fmt.Errorf("failed to store sales records: %w", err)
	}

	summary := &ImportSummary{
		Format:        desc.Code,
		Accepted:      written,
		Rejected:      len(result.RowErrors) + result.ErrorOverflow,
		ErrorOverflow: result.ErrorOverflow,
	}
	for _, e := range result.RowErrors {
		summary.Errors = append(summary.Errors, e.Error())
	}
	return summary, nil
}

// stageRows loads parsed bank rows into staging in bounded batches
func (s *ImportService) stageRows(ctx context.Context, desc parser.ImportFormatDescriptor, batchID uuid.UUID, result *parser.Result) (*ImportSummary, error) {
	summary := &ImportSummary{
		ImportBatchID: batchID,
		Format:        desc.Code,
		Rejected:      len(result.RowErrors) + result.ErrorOverflow,
		ErrorOverflow: result.ErrorOverflow,
	}
	for _, e := range result.RowErrors {
		summary.Errors = append(summary.Errors, e.Error())
	}

	if s.accountHint != "" {
		for i := range result.Rows {
			if result.Rows[i].Account == "" {
				result.Rows[i].Account = s.accountHint
			}
		}
	}

	for offset := 0; offset < len(result.Rows); offset += s.batchSize {
		end := offset + s.batchSize
		if end > len(result.Rows) {
			end = len(result.Rows)
		}
		inserted, duplicates, err := s.staging.BulkInsertLines(ctx, result.Rows[offset:end])
		summary.Accepted += inserted
		summary.Duplicates += duplicates
		if err != nil {
			return nil, fmt.Errorf("failed to stage rows: %w", err)
		}
		if duplicates > 0 {
			s.logger.Info("duplicates skipped during staging",
				slog.String("batch_id", batchID.String()),
				slog.Int("duplicates", duplicates),
			)
		}
	}

	summary.TotalsByCurrency = totalsByCurrency(result.Rows)
	return summary, nil
}

// totalsByCurrency sums accepted amounts per currency and formats them for
// the operator-facing summary
func totalsByCurrency(rows []parser.RawImportLine) map[string]string {
	sums := make(map[string]decimal.Decimal)
	for _, row := range rows {
		code := defaultCurrency
		if row.Currency != nil && *row.Currency != "" {
			code = *row.Currency
		}
		sums[code] = sums[code].Add(row.Amount)
	}

	formatted := make(map[string]string, len(sums))
	for code, sum := range sums {
		cents := sum.Shift(2).Round(0).IntPart()
		formatted[code] = money.New(cents, code).Display()
	}
	return formatted
}

// rejectReportRow is the CSV shape of one rejected-row diagnostic
type rejectReportRow struct {
	Row    int    `csv:"row"`
	Field  string `csv:"field"`
	Reason string `csv:"reason"`
}

// RejectReportCSV renders a file's rejected-row diagnostics as CSV so the
// back-office operator can download and fix the offending lines
func RejectReportCSV(errs []parser.RowError) (string, error) {
	rows := make([]rejectReportRow, len(errs))
	for i, e := range errs {
		rows[i] = rejectReportRow{Row: e.Row, Field: e.Field, Reason: e.Reason}
	}
	out, err := gocsv.MarshalString(&rows)
	if err != nil {
		return "", fmt.Errorf("failed to render reject report: %w", err)
	}
	return out, nil
}
