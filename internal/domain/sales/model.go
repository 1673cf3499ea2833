// Package sales holds the POS daily-sales ingestion domain: the record model,
// the entity directory used to resolve store codes, and persistence.
package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Record is one hour of sales for one entity, as exported by the POS system
type Record struct {
	ID                 uuid.UUID
	EntityID           uuid.UUID
	Date               time.Time
	Hour               string // canonical HH:00:00, derived from the "<N>H" token
	DocumentCount      *int
	AvgAmountExclTax   *decimal.Decimal
	AvgAmountInclTax   *decimal.Decimal
	TotalAmountExclTax *decimal.Decimal
	TotalAmountInclTax *decimal.Decimal
	Source             string
}

// EntityDirectory resolves POS store codes to entity IDs
type EntityDirectory interface {
	LookupCode(ctx context.Context, code string) (uuid.UUID, bool, error)
}

// StaticDirectory is an in-memory EntityDirectory for tests and fixtures
type StaticDirectory map[string]uuid.UUID

func (d StaticDirectory) LookupCode(_ context.Context, code string) (uuid.UUID, bool, error) {
	id, ok := d[code]
	return id, ok, nil
}
