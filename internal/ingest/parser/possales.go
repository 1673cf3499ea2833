package parser

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/resto-backoffice/internal/domain/sales"
	"github.com/FACorreiaa/resto-backoffice/internal/ingest/normalizer"
)

// posFieldCount is the fixed column layout of the POS daily-sales export:
// entity code, date, hour token, document count, avg excl/incl tax, total excl/incl tax
const posFieldCount = 8

// Header labels the POS system puts on its export's first line
var posHeaderLabels = []string{
	"loja", "entidade", "data", "hora", "documentos", "docs",
	"media", "média", "total", "store", "date", "hour",
}

var hourTokenPattern = regexp.MustCompile(`^(\d{1,2})[hH]$`)

// POSSalesResult is the outcome of parsing one POS export
type POSSalesResult struct {
	Records       []sales.Record
	RowErrors     []RowError
	ErrorOverflow int
	TotalRows     int
}

// POSSalesParser parses the point-of-sale daily sales CSV export. Unlike the
// bank parsers it enforces a fixed positional schema and resolves each store
// code against the entity directory, rejecting individual rows on mismatch.
type POSSalesParser struct {
	Directory    sales.EntityDirectory
	Source       string // tag recorded on every produced record
	MaxRowErrors int
}

// NewPOSSalesParser creates a parser bound to an entity directory
func NewPOSSalesParser(directory sales.EntityDirectory, source string) *POSSalesParser {
	return &POSSalesParser{
		Directory:    directory,
		Source:       source,
		MaxRowErrors: DefaultMaxRowErrors,
	}
}

// Parse reads the export and returns resolved sales records plus diagnostics
func (p *POSSalesParser) Parse(ctx context.Context, text string) (*POSSalesResult, error) {
	result := &POSSalesResult{}
	maxErrors := p.MaxRowErrors
	if maxErrors <= 0 {
		maxErrors = DefaultMaxRowErrors
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = ','
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rowNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			result.addError(maxErrors, RowError{Row: rowNum, Reason: err.Error()})
			continue
		}
		if isBlankRow(record) {
			continue
		}
		if rowNum == 1 && isPOSHeader(record) {
			continue
		}
		result.TotalRows++

		if len(record) != posFieldCount {
			result.addError(maxErrors, RowError{
				Row:    rowNum,
				Reason: fmt.Sprintf("column count %d, expected %d", len(record), posFieldCount),
			})
			continue
		}

		rec, rowErr := p.buildRecord(ctx, record, rowNum)
		if rowErr != nil {
			result.addError(maxErrors, *rowErr)
			continue
		}
		result.Records = append(result.Records, *rec)
	}

	if result.TotalRows > 0 && len(result.Records) == 0 {
		return result, fmt.Errorf("%w: %s", ErrNoValidRows, errorSummary(result.RowErrors, result.ErrorOverflow))
	}
	return result, nil
}

func (p *POSSalesParser) buildRecord(ctx context.Context, record []string, rowNum int) (*sales.Record, *RowError) {
	code := strings.TrimSpace(record[0])
	entityID, found, err := p.Directory.LookupCode(ctx, code)
	if err != nil {
		return nil, &RowError{Row: rowNum, Field: "entity", Reason: fmt.Sprintf("entity lookup failed: %v", err)}
	}
	if !found {
		return nil, &RowError{Row: rowNum, Field: "entity", Reason: fmt.Sprintf("unknown entity code %q", code)}
	}

	date, ok := normalizer.ParseDate(record[1])
	if !ok {
		return nil, &RowError{Row: rowNum, Field: "date", Reason: fmt.Sprintf("unparsable date %q", record[1])}
	}

	hour, hourErr := parseHourToken(record[2])
	if hourErr != nil {
		return nil, &RowError{Row: rowNum, Field: "hour", Reason: hourErr.Error()}
	}

	docCount, countErr := parseOptionalInt(record[3])
	if countErr != nil {
		return nil, &RowError{Row: rowNum, Field: "documents", Reason: countErr.Error()}
	}

	amounts := make([]*decimal.Decimal, 4)
	fieldNames := []string{"avg excl tax", "avg incl tax", "total excl tax", "total incl tax"}
	for i := 0; i < 4; i++ {
		value, amtErr := parseOptionalDecimal(record[4+i])
		if amtErr != nil {
			return nil, &RowError{Row: rowNum, Field: fieldNames[i], Reason: amtErr.Error()}
		}
		amounts[i] = value
	}

	return &sales.Record{
		ID:                 uuid.New(),
		EntityID:           entityID,
		Date:               date,
		Hour:               hour,
		DocumentCount:      docCount,
		AvgAmountExclTax:   amounts[0],
		AvgAmountInclTax:   amounts[1],
		TotalAmountExclTax: amounts[2],
		TotalAmountInclTax: amounts[3],
		Source:             p.Source,
	}, nil
}

// parseHourToken converts "7H" / "23h" style tokens into HH:00:00
func parseHourToken(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	m := hourTokenPattern.FindStringSubmatch(token)
	if m == nil {
		return "", fmt.Errorf("invalid hour token %q", raw)
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 23 {
		return "", fmt.Errorf("hour %q out of range 0-23", raw)
	}
	return fmt.Sprintf("%02d:00:00", hour), nil
}

// parseOptionalInt treats blank and a bare '-' as "no value", distinct from zero
func parseOptionalInt(raw string) (*int, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q", raw)
	}
	return &n, nil
}

// parseOptionalDecimal treats blank and a bare '-' as "no value", distinct from zero
func parseOptionalDecimal(raw string) (*decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return nil, nil
	}
	d, ok := normalizer.ParseDecimal(s)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return &d, nil
}

func isPOSHeader(record []string) bool {
	for _, cell := range record {
		lower := strings.ToLower(strings.TrimSpace(cell))
		for _, label := range posHeaderLabels {
			if lower == label || strings.HasPrefix(lower, label+" ") {
				return true
			}
		}
	}
	return false
}

// addError mirrors Result.addError for the POS result shape
func (r *POSSalesResult) addError(maxErrors int, e RowError) {
	if len(r.RowErrors) < maxErrors {
		r.RowErrors = append(r.RowErrors, e)
		return
	}
	r.ErrorOverflow++
}

func errorSummary(errs []RowError, overflow int) string {
	parts := make([]string, 0, len(errs)+1)
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	if overflow > 0 {
		parts = append(parts, fmt.Sprintf("... and %d more", overflow))
	}
	return strings.Join(parts, "; ")
}
