// Package sniffer detects the structure of delimited bank statement files:
// field delimiter, header row position, and which column carries which role.
package sniffer

import (
	"errors"
	"fmt"
	"strings"
)

// Bank statement header keywords used to recognize the header row (multi-language)
var headerKeywords = []string{
	// Portuguese
	"empresa", "conta", "data mov", "data valor", "data lanc", "descri", "valor",
	"saldo", "moeda", "montante", "documento",
	// English
	"company", "account", "date", "amount", "balance", "description", "currency",
	// Spanish
	"fecha", "importe", "cuenta", "descripcion", "descripción",
}

// maxHeaderSearchLines bounds how deep into the file the header scan goes
const maxHeaderSearchLines = 20

// delimiterSampleLines is how many lines vote on the delimiter
const delimiterSampleLines = 10

var (
	ErrEmptyFile      = errors.New("file is empty")
	ErrNoHeaderFound  = errors.New("could not find a header row")
	ErrNoUsableColumn = errors.New("could not resolve an amount or date column")
)

// ColumnMap holds the resolved column index for each semantic role.
// Unresolved roles are -1.
type ColumnMap struct {
	Company     int
	Product     int
	Account     int
	Currency    int
	PostingDate int
	ValueDate   int
	Description int
	Amount      int
	Balance     int
	DocumentRef int
}

// MaxRequiredIndex returns the highest column index a data row must reach
// to satisfy the resolved required roles.
func (m ColumnMap) MaxRequiredIndex() int {
	max := -1
	for _, idx := range []int{m.ValueDate, m.Amount} {
		if idx > max {
			max = idx
		}
	}
	return max
}

// DetectDelimiter votes among tab, semicolon and comma over the first lines.
// Ties break toward the semicolon, the most common dialect in the wild for
// European bank exports.
func DetectDelimiter(text string) rune {
	lines := strings.Split(text, "\n")
	if len(lines) > delimiterSampleLines {
		lines = lines[:delimiterSampleLines]
	}
	sample := strings.Join(lines, "\n")

	counts := map[rune]int{
		'\t': strings.Count(sample, "\t"),
		';':  strings.Count(sample, ";"),
		',':  strings.Count(sample, ","),
	}

	best := ';'
	for _, d := range []rune{'\t', ','} {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

// LocateHeader scans lines from the top for the first one carrying bank-domain
// keywords. The error names the delimiter tried and echoes the first raw lines
// so a rejected file can be diagnosed without re-opening it.
func LocateHeader(lines []string, delimiter rune) (int, error) {
	if len(lines) == 0 {
		return 0, ErrEmptyFile
	}

	limit := len(lines)
	if limit > maxHeaderSearchLines {
		limit = maxHeaderSearchLines
	}

	for i := 0; i < limit; i++ {
		line := cleanLine(lines[i], i == 0)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		matches := 0
		for _, kw := range headerKeywords {
			if strings.Contains(lower, kw) {
				matches++
			}
		}
		// A single keyword can be a stray mention in a preamble line;
		// a real header carries several.
		if matches >= 2 {
			return i, nil
		}
	}

	preview := lines
	if len(preview) > 3 {
		preview = preview[:3]
	}
	return 0, fmt.Errorf("%w (delimiter %q, first lines: %q)", ErrNoHeaderFound, string(delimiter), preview)
}

// ResolveColumns maps header tokens to semantic roles by fuzzy keyword match.
// Column order and exact spelling do not matter. Only the amount and one date
// column are required; everything else degrades to -1.
func ResolveColumns(headerTokens []string) (ColumnMap, error) {
	m := ColumnMap{
		Company:     -1,
		Product:     -1,
		Account:     -1,
		Currency:    -1,
		PostingDate: -1,
		ValueDate:   -1,
		Description: -1,
		Amount:      -1,
		Balance:     -1,
		DocumentRef: -1,
	}

	for i, token := range headerTokens {
		h := strings.ToLower(strings.TrimSpace(token))
		if h == "" {
			continue
		}

		switch {
		case m.Company < 0 && (strings.Contains(h, "empresa") || strings.Contains(h, "company")):
			m.Company = i
		case m.Product < 0 && (strings.Contains(h, "produto") || strings.Contains(h, "product")):
			m.Product = i
		case m.Account < 0 && (strings.Contains(h, "conta") || strings.Contains(h, "account") || strings.Contains(h, "iban") || strings.Contains(h, "cuenta")):
			m.Account = i
		case m.Currency < 0 && (strings.Contains(h, "moeda") || strings.Contains(h, "currency") || strings.Contains(h, "divisa")):
			m.Currency = i
		}

		if isDateToken(h) {
			// Prefer the value date; a lone date column doubles as the value date.
			if isValueDateToken(h) {
				m.ValueDate = i
			} else if m.PostingDate < 0 {
				m.PostingDate = i
			}
			continue
		}

		if m.Description < 0 && (strings.Contains(h, "descri") || strings.Contains(h, "movimento") || strings.Contains(h, "narrative")) {
			m.Description = i
			continue
		}

		if isBalanceToken(h) {
			if m.Balance < 0 {
				m.Balance = i
			}
			continue
		}

		// Amount must never claim a balance or date column: "saldo valor" and
		// "data valor" both contain the amount keyword.
		if m.Amount < 0 && isAmountToken(h) && !isBalanceToken(h) && !isDateToken(h) {
			m.Amount = i
		}

		if m.DocumentRef < 0 && (strings.Contains(h, "doc") || strings.Contains(h, "refer")) && m.Description != i {
			m.DocumentRef = i
		}
	}

	if m.ValueDate < 0 && m.PostingDate >= 0 {
		m.ValueDate = m.PostingDate
		m.PostingDate = -1
	}

	if m.Amount < 0 && m.ValueDate < 0 {
		return m, fmt.Errorf("%w (headers: %q)", ErrNoUsableColumn, headerTokens)
	}

	return m, nil
}

// SplitHeader tokenizes a header line with the detected delimiter
func SplitHeader(line string, delimiter rune) []string {
	tokens := strings.Split(line, string(delimiter))
	for i, t := range tokens {
		tokens[i] = strings.TrimSpace(t)
	}
	return tokens
}

func isDateToken(h string) bool {
	return strings.Contains(h, "data") || strings.Contains(h, "date") || strings.Contains(h, "fecha")
}

func isValueDateToken(h string) bool {
	return (strings.Contains(h, "data") || strings.Contains(h, "date") || strings.Contains(h, "fecha")) &&
		(strings.Contains(h, "valor") || strings.Contains(h, "value"))
}

func isAmountToken(h string) bool {
	return strings.Contains(h, "valor") || strings.Contains(h, "montante") ||
		strings.Contains(h, "amount") || strings.Contains(h, "importe") ||
		strings.Contains(h, "importância")
}

func isBalanceToken(h string) bool {
	return strings.Contains(h, "saldo") || strings.Contains(h, "balance")
}

func cleanLine(line string, firstLine bool) string {
	line = strings.TrimRight(line, "\r")
	if firstLine {
		line = strings.TrimPrefix(line, "\uFEFF")
	}
	return strings.TrimSpace(line)
}
