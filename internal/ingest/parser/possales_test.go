package parser

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/resto-backoffice/internal/domain/sales"
)

func TestPOSSalesParser_Parse(t *testing.T) {
	entity := uuid.New()
	dir := sales.StaticDirectory{"E1": entity}

	t.Run("parses hourly sales row", func(t *testing.T) {
		csv := `E1,15/03/2024,7H,12,"5,00","6,00","60,00","72,00"`

		p := NewPOSSalesParser(dir, "pos-daily-sales")
		result, err := p.Parse(context.Background(), csv)

		require.NoError(t, err)
		require.Len(t, result.Records, 1)

		rec := result.Records[0]
		assert.Equal(t, entity, rec.EntityID)
		assert.Equal(t, "2024-03-15", rec.Date.Format("2006-01-02"))
		assert.Equal(t, "07:00:00", rec.Hour)
		require.NotNil(t, rec.DocumentCount)
		assert.Equal(t, 12, *rec.DocumentCount)
		require.NotNil(t, rec.TotalAmountInclTax)
		assert.Equal(t, "72", rec.TotalAmountInclTax.String())
		assert.Equal(t, "pos-daily-sales", rec.Source)
	})

	t.Run("header row is skipped", func(t *testing.T) {
		csv := "Loja,Data,Hora,Docs,Media s/IVA,Media c/IVA,Total s/IVA,Total c/IVA\n" +
			`E1,15/03/2024,8H,3,"1,00","1,23","3,00","3,69"`

		p := NewPOSSalesParser(dir, "pos")
		result, err := p.Parse(context.Background(), csv)

		require.NoError(t, err)
		assert.Equal(t, 1, result.TotalRows)
		require.Len(t, result.Records, 1)
		assert.Equal(t, "08:00:00", result.Records[0].Hour)
	})

	t.Run("dash and blank mean absent, not zero", func(t *testing.T) {
		csv := "E1,15/03/2024,9H,-,,-,-,-"

		p := NewPOSSalesParser(dir, "pos")
		result, err := p.Parse(context.Background(), csv)

		require.NoError(t, err)
		require.Len(t, result.Records, 1)

		rec := result.Records[0]
		assert.Nil(t, rec.DocumentCount)
		assert.Nil(t, rec.AvgAmountExclTax)
		assert.Nil(t, rec.AvgAmountInclTax)
		assert.Nil(t, rec.TotalAmountExclTax)
		assert.Nil(t, rec.TotalAmountInclTax)
	})

	t.Run("unknown entity code rejects the row only", func(t *testing.T) {
		csv := "ZZ,15/03/2024,7H,1,,,,\n" +
			"E1,15/03/2024,7H,1,,,,"

		p := NewPOSSalesParser(dir, "pos")
		result, err := p.Parse(context.Background(), csv)

		require.NoError(t, err)
		assert.Len(t, result.Records, 1)
		require.Len(t, result.RowErrors, 1)
		assert.Equal(t, "entity", result.RowErrors[0].Field)
		assert.Contains(t, result.RowErrors[0].Reason, `"ZZ"`)
	})

	t.Run("hour bounds", func(t *testing.T) {
		tests := []struct {
			token string
			want  string
			ok    bool
		}{
			{"0H", "00:00:00", true},
			{"7h", "07:00:00", true},
			{"23H", "23:00:00", true},
			{"24H", "", false},
			{"H", "", false},
			{"7", "", false},
			{"noon", "", false},
		}
		for _, tt := range tests {
			got, err := parseHourToken(tt.token)
			if tt.ok {
				require.NoError(t, err, tt.token)
				assert.Equal(t, tt.want, got)
			} else {
				assert.Error(t, err, tt.token)
			}
		}
	})

	t.Run("wrong column count is a row error", func(t *testing.T) {
		csv := "E1,15/03/2024,7H,1\n" +
			"E1,15/03/2024,8H,1,,,,"

		p := NewPOSSalesParser(dir, "pos")
		result, err := p.Parse(context.Background(), csv)

		require.NoError(t, err)
		assert.Len(t, result.Records, 1)
		require.Len(t, result.RowErrors, 1)
		assert.Contains(t, result.RowErrors[0].Reason, "column count 4")
	})

	t.Run("all rows failing rejects the file", func(t *testing.T) {
		csv := "ZZ,15/03/2024,7H,1,,,,\n" +
			"ZZ,16/03/2024,8H,2,,,,"

		p := NewPOSSalesParser(dir, "pos")
		_, err := p.Parse(context.Background(), csv)

		assert.ErrorIs(t, err, ErrNoValidRows)
	})

	t.Run("empty file yields empty result", func(t *testing.T) {
		p := NewPOSSalesParser(dir, "pos")
		result, err := p.Parse(context.Background(), "")

		require.NoError(t, err)
		assert.Empty(t, result.Records)
		assert.Zero(t, result.TotalRows)
	})
}
