package parser

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/resto-backoffice/internal/ingest/normalizer"
	"github.com/FACorreiaa/resto-backoffice/internal/ingest/sniffer"
)

// DelimitedBankParser parses tab/semicolon/comma-delimited bank statement
// exports. Structure is detected once (delimiter, header row, column roles);
// every data row then goes through the shared locale normalizer.
type DelimitedBankParser struct {
	MaxRowErrors      int
	DelimiterOverride rune // 0 = auto-detect
	HeaderSkipCount   int  // extra lines to skip before the header scan
}

// NewDelimitedBankParser creates a parser with the default error budget
func NewDelimitedBankParser() *DelimitedBankParser {
	return &DelimitedBankParser{MaxRowErrors: DefaultMaxRowErrors}
}

// Parse scans decoded text and returns canonical rows plus row diagnostics.
// It fails only when no header line is found or zero valid rows survive.
func (p *DelimitedBankParser) Parse(text string, batchID uuid.UUID, fileName string) (*Result, error) {
	result := &Result{}
	maxErrors := p.MaxRowErrors
	if maxErrors <= 0 {
		maxErrors = DefaultMaxRowErrors
	}

	delimiter := p.DelimiterOverride
	if delimiter == 0 {
		delimiter = sniffer.DetectDelimiter(text)
	}

	lines := strings.Split(text, "\n")
	if p.HeaderSkipCount > 0 && p.HeaderSkipCount < len(lines) {
		lines = lines[p.HeaderSkipCount:]
	}

	headerIdx, err := sniffer.LocateHeader(lines, delimiter)
	if err != nil {
		return nil, err
	}

	header := sniffer.SplitHeader(strings.TrimRight(lines[headerIdx], "\r"), delimiter)
	columns, err := sniffer.ResolveColumns(header)
	if err != nil {
		return nil, err
	}
	maxRequired := columns.MaxRequiredIndex()

	for i := headerIdx + 1; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rowNum := i + p.HeaderSkipCount + 1 // 1-indexed position in the original file
		result.TotalRows++

		fields := strings.Split(line, string(delimiter))
		if len(fields) <= maxRequired {
			result.addError(maxErrors, RowError{
				Row:    rowNum,
				Field:  "",
				Reason: fmt.Sprintf("column count %d, expected at least %d", len(fields), maxRequired+1),
			})
			continue
		}

		row, rowErr := buildBankRow(fields, columns, rowNum)
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

// buildBankRow normalizes one data row against the resolved column map.
// Shared by the delimited and spreadsheet parsers so both dialects go through
// identical locale handling.
func buildBankRow(fields []string, columns sniffer.ColumnMap, rowNum int) (*RawImportLine, *RowError) {
	get := func(idx int) string {
		if idx < 0 || idx >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[idx])
	}

	valueDate, haveValueDate := normalizer.ParseDate(get(columns.ValueDate))
	amount, haveAmount := normalizer.ParseDecimal(get(columns.Amount))

	// Rows with neither a value date nor an amount are dropped; a row missing
	// only one of the two is malformed rather than absent.
	if !haveValueDate && !haveAmount {
		return nil, &RowError{Row: rowNum, Field: "value date/amount", Reason: "no resolvable date or amount"}
	}
	if !haveValueDate {
		return nil, &RowError{Row: rowNum, Field: "value date", Reason: fmt.Sprintf("unparsable date %q", get(columns.ValueDate))}
	}
	if !haveAmount {
		return nil, &RowError{Row: rowNum, Field: "amount", Reason: fmt.Sprintf("unparsable amount %q", get(columns.Amount))}
	}

	row := &RawImportLine{
		ID:          uuid.New(),
		Account:     normalizer.StripLeadingZeros(get(columns.Account)),
		Description: normalizer.CleanDescription(get(columns.Description)),
		ValueDate:   valueDate,
		Amount:      amount,
	}

	if v := get(columns.Company); v != "" {
		row.Company = &v
	}
	if v := get(columns.Product); v != "" {
		row.Product = &v
	}
	if v := get(columns.Currency); v != "" {
		row.Currency = &v
	}
	if v := get(columns.DocumentRef); v != "" {
		row.DocumentReference = &v
	}
	if posting, ok := normalizer.ParseDate(get(columns.PostingDate)); ok {
		row.PostingDate = &posting
	}
	if balance, ok := normalizer.ParseDecimal(get(columns.Balance)); ok {
		row.RunningBalance = &balance
	}

	return row, nil
}
