package normalizer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"dd/mm/yyyy", "02/04/2024", "2024-04-02", true},
		{"dd-mm-yyyy", "02-04-2024", "2024-04-02", true},
		{"dd.mm.yyyy", "02.04.2024", "2024-04-02", true},
		{"yyyy-mm-dd", "2024-04-02", "2024-04-02", true},
		{"two-digit year below pivot", "15/03/24", "2024-03-15", true},
		{"two-digit year at pivot", "15/03/50", "2050-03-15", true},
		{"two-digit year above pivot", "15/03/51", "1951-03-15", true},
		{"two-digit year 49", "15/03/49", "2049-03-15", true},
		{"leap day valid", "29/02/2024", "2024-02-29", true},
		{"leap day invalid", "29/02/2023", "", false},
		{"day overflow", "31/04/2024", "", false},
		{"month overflow", "02/13/2024", "", false},
		{"placeholder token", "Data Valor", "", false},
		{"empty", "", "", false},
		{"garbage", "not a date", "", false},
		{"two parts only", "04/2024", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, FormatDate(got))
			}
		})
	}
}

func TestParseDate_RoundTrip(t *testing.T) {
	// Formatting a parsed date and parsing it again must be stable
	for _, raw := range []string{"01/01/2020", "31/12/1999", "29/02/2000"} {
		first, ok := ParseDate(raw)
		require.True(t, ok, raw)

		second, ok := ParseDate(FormatDate(first))
		require.True(t, ok, raw)
		assert.True(t, first.Equal(second), raw)
	}
}

func TestParseDate_Midnight(t *testing.T) {
	got, ok := ParseDate("15/06/2024")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"european with thousands", "1.234,56", "1234.56", true},
		{"european plain", "5,00", "5", true},
		{"anglo", "1234.56", "1234.56", true},
		{"negative european", "-1.234,56", "-1234.56", true},
		{"currency symbol", "€ 1.234,56", "1234.56", true},
		{"integer", "72", "72", true},
		{"bare dash", "-", "", false},
		{"empty", "", "", false},
		{"placeholder", "Saldo", "", false},
		{"letters", "abc", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDecimal(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				want, err := decimal.NewFromString(tt.want)
				require.NoError(t, err)
				assert.True(t, got.Equal(want), "got %s want %s", got, want)
			}
		})
	}
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "TRF P2P JOAO", CleanDescription("  TRF   P2P\tJOAO "))
	assert.Equal(t, "", CleanDescription("   "))
}

func TestStripLeadingZeros(t *testing.T) {
	assert.Equal(t, "1234567", StripLeadingZeros("0001234567"))
	assert.Equal(t, "1234567", StripLeadingZeros("1234567"))
	assert.Equal(t, "0", StripLeadingZeros("0000"))
	assert.Equal(t, "", StripLeadingZeros(""))
}
