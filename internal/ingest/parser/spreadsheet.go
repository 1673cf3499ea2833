package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/resto-backoffice/internal/ingest/sniffer"
)

// SpreadsheetBankParser parses XLS/XLSX bank statement exports. Every cell is
// coerced to its text form so spreadsheet-typed dates and numbers flow through
// the same locale normalizer as delimited text files.
type SpreadsheetBankParser struct {
	MaxRowErrors    int
	HeaderSkipCount int
}

// NewSpreadsheetBankParser creates a parser with the default error budget
func NewSpreadsheetBankParser() *SpreadsheetBankParser {
	return &SpreadsheetBankParser{MaxRowErrors: DefaultMaxRowErrors}
}

// Parse reads the first sheet and returns canonical rows plus row diagnostics
func (p *SpreadsheetBankParser) Parse(reader io.Reader, batchID uuid.UUID, fileName string) (*Result, error) {
	result := &Result{}
	maxErrors := p.MaxRowErrors
	if maxErrors <= 0 {
		maxErrors = DefaultMaxRowErrors
	}

	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	if p.HeaderSkipCount > 0 && p.HeaderSkipCount < len(rows) {
		rows = rows[p.HeaderSkipCount:]
	}

	headerIdx, columns, err := locateSheetHeader(rows)
	if err != nil {
		return nil, err
	}
	maxRequired := columns.MaxRequiredIndex()

	for i := headerIdx + 1; i < len(rows); i++ {
		cells := rows[i]
		if isBlankRow(cells) {
			// Trailing padding rows are normal in exported workbooks
			continue
		}
		rowNum := i + p.HeaderSkipCount + 1
		result.TotalRows++

		if len(cells) <= maxRequired {
			result.addError(maxErrors, RowError{
				Row:    rowNum,
				Reason: fmt.Sprintf("column count %d, expected at least %d", len(cells), maxRequired+1),
			})
			continue
		}

		row, rowErr := buildBankRow(cells, columns, rowNum)
		if rowErr != nil {
			result.addError(maxErrors, *rowErr)
			continue
		}

		row.ImportBatchID = batchID
		row.SourceFileName = fileName
		result.Rows = append(result.Rows, *row)
	}

	if len(result.Rows) == 0 {
		return result, fmt.Errorf("%w: %s", ErrNoValidRows, result.ErrorSummary())
	}
	return result, nil
}

// locateSheetHeader finds the header row in sheet cells, reusing the text
// sniffer by joining each row back into a delimited line
func locateSheetHeader(rows [][]string) (int, sniffer.ColumnMap, error) {
	lines := make([]string, len(rows))
	for i, cells := range rows {
		lines[i] = strings.Join(cells, "\t")
	}

	headerIdx, err := sniffer.LocateHeader(lines, '\t')
	if err != nil {
		return 0, sniffer.ColumnMap{}, err
	}

	columns, err := sniffer.ResolveColumns(rows[headerIdx])
	if err != nil {
		return 0, sniffer.ColumnMap{}, err
	}
	return headerIdx, columns, nil
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
