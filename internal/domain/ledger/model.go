// Package ledger holds bank accounts and ledger movements. Movements carry a
// natural uniqueness key (account, value date, amount, running balance,
// description): two rows agreeing on all five are the same physical
// transaction and must never both exist.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankAccount is read-only to the ingestion pipeline; used only for matching
type BankAccount struct {
	ID            uuid.UUID
	EntityID      *uuid.UUID
	AccountNumber string // IBAN or bank-local number
	DisplayCode   string
	Name          string
}

// Movement is one ledger entry created from a staged import row
type Movement struct {
	ID                 uuid.UUID
	AccountID          uuid.UUID
	PostingDate        *time.Time
	ValueDate          time.Time
	Description        string
	Amount             decimal.Decimal
	RunningBalance     *decimal.Decimal
	DocumentReference  *string
	SourceImportLineID *uuid.UUID // traceability back to the staged row
	ReconciliationTag  *string    // set by the manual matching workflow
}

// MovementKey is the natural uniqueness tuple for duplicate detection
type MovementKey struct {
	AccountID      uuid.UUID
	ValueDate      time.Time
	Amount         decimal.Decimal
	RunningBalance *decimal.Decimal
	Description    string
}

// Key derives the natural key of a movement
func (m *Movement) Key() MovementKey {
	return MovementKey{
		AccountID:      m.AccountID,
		ValueDate:      m.ValueDate,
		Amount:         m.Amount,
		RunningBalance: m.RunningBalance,
		Description:    m.Description,
	}
}
