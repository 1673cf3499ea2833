// Package parser turns decoded statement files into canonical import rows.
// All parsers are fail-soft: a bad row is recorded and skipped, never fatal,
// and a file is rejected only when nothing usable survives the whole scan.
package parser

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNoValidRows means the whole file was scanned and every row failed:
	// a total format mismatch rather than scattered bad rows.
	ErrNoValidRows = errors.New("no valid rows found in file")
)

// RawImportLine is a canonical parsed bank statement row.
// ValueDate and Amount are always present; everything else may be nil.
type RawImportLine struct {
	ID                uuid.UUID
	ImportBatchID     uuid.UUID
	Company           *string
	Product           *string
	Account           string // as printed on the statement, leading zeros stripped
	Currency          *string
	PostingDate       *time.Time
	ValueDate         time.Time // authoritative date for reconciliation
	Description       string
	Amount            decimal.Decimal // signed; negative = debit
	RunningBalance    *decimal.Decimal
	DocumentReference *string
	SourceFileName    string
}

// RowError is a structured per-row diagnostic
type RowError struct {
	Row    int
	Field  string
	Reason string
}

func (e RowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("row %d, field %s: %s", e.Row, e.Field, e.Reason)
}

// Result is the outcome of parsing one file. RowErrors is capped by the
// parser's error budget; ErrorOverflow counts the diagnostics dropped beyond it.
type Result struct {
	Rows          []RawImportLine
	RowErrors     []RowError
	ErrorOverflow int
	TotalRows     int
}

// addError appends a diagnostic, collapsing into the overflow count once the
// cap is reached so a garbage file does not produce an unreadable dump
func (r *Result) addError(maxErrors int, e RowError) {
	if len(r.RowErrors) < maxErrors {
		r.RowErrors = append(r.RowErrors, e)
		return
	}
	r.ErrorOverflow++
}

// ErrorSummary renders the capped diagnostics plus the overflow remainder
func (r *Result) ErrorSummary() string {
	return errorSummary(r.RowErrors, r.ErrorOverflow)
}

// DefaultMaxRowErrors bounds detailed diagnostics kept per file
const DefaultMaxRowErrors = 10
