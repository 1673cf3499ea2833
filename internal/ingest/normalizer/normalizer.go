// Package normalizer converts locale-specific date and number spellings from
// bank and POS exports into canonical values. Unparsable input is reported as
// absent (ok == false), never as an error, so callers can tell "legitimately
// empty" apart from "malformed" at the row level.
package normalizer

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Header words that sometimes leak into data rows of sloppy exports.
// Seeing one of these in a date or amount cell means "no value".
var placeholderTokens = []string{
	"data", "date", "fecha", "valor", "value", "saldo", "balance",
	"montante", "amount", "importe", "descri",
}

// ParseDate converts a heterogeneous date spelling to a time.Time (UTC midnight).
// Accepted separators are '/', '-' and '.'. A 4-digit group marks the year and
// decides DD-MM-YYYY vs YYYY-MM-DD; 2-digit years pivot at 50 (>50 maps to the
// 1900s). The day is validated against the real calendar, leap years included.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || isPlaceholder(s) {
		return time.Time{}, false
	}

	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == '-' || r == '.'
	})
	if len(parts) != 3 {
		return time.Time{}, false
	}

	nums := make([]int, 3)
	for i, p := range parts {
		p = strings.TrimSpace(p)
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return time.Time{}, false
		}
		nums[i] = n
	}

	var year, month, day int
	switch {
	case len(parts[0]) == 4:
		// YYYY-MM-DD
		year, month, day = nums[0], nums[1], nums[2]
	case len(parts[2]) == 4:
		// DD-MM-YYYY
		day, month, year = nums[0], nums[1], nums[2]
	case len(parts[2]) <= 2:
		// DD-MM-YY with pivot at 50
		day, month = nums[0], nums[1]
		if nums[2] > 50 {
			year = 1900 + nums[2]
		} else {
			year = 2000 + nums[2]
		}
	default:
		return time.Time{}, false
	}

	if month < 1 || month > 12 {
		return time.Time{}, false
	}
	if day < 1 || day > daysInMonth(year, month) {
		return time.Time{}, false
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// FormatDate renders a date in canonical ISO form (YYYY-MM-DD)
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseDecimal converts a heterogeneous numeric spelling to a decimal.
// Values already using a period as the sole separator parse directly;
// otherwise the European convention applies: '.' is a thousands separator,
// ',' is the decimal point. Currency symbols and whitespace are stripped.
func ParseDecimal(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || isPlaceholder(s) {
		return decimal.Decimal{}, false
	}

	// Keep digits, separators and sign; drops currency symbols and spaces
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == ',' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" || cleaned == "-" {
		return decimal.Decimal{}, false
	}

	if !strings.Contains(cleaned, ",") {
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	}

	// European: 1.234,56 -> 1234.56
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.Replace(cleaned, ",", ".", 1)
	if strings.Contains(cleaned, ",") {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// CleanDescription trims and collapses runs of whitespace in free-form text
func CleanDescription(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// StripLeadingZeros normalizes an account token as printed on a statement
// ("0001234567" and "1234567" name the same account)
func StripLeadingZeros(account string) string {
	trimmed := strings.TrimLeft(strings.TrimSpace(account), "0")
	if trimmed == "" && account != "" {
		return "0"
	}
	return trimmed
}

func isPlaceholder(s string) bool {
	lower := strings.ToLower(s)
	hasLetter := false
	for _, r := range lower {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return false
	}
	for _, token := range placeholderTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if isLeapYear(year) {
			return 29
		}
		return 28
	}
	return 0
}

func isLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}
