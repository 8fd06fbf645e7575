package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReserveKind distinguishes the two reserve accounts every project carries.
type ReserveKind string

const (
	ReserveOperating   ReserveKind = "OPERATING"
	ReserveReplacement ReserveKind = "REPLACEMENT"
)

// EntryDirection marks a ledger entry as a deposit or a withdrawal.
type EntryDirection string

const (
	EntryDeposit    EntryDirection = "DEPOSIT"
	EntryWithdrawal EntryDirection = "WITHDRAWAL"
)

// LedgerEntry is one immutable reserve movement. Corrections are offsetting
// entries, never edits, so the audit history survives intact.
type LedgerEntry struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"project_id"`
	Kind      ReserveKind     `json:"kind"`
	Direction EntryDirection  `json:"direction"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category"`
	Date      time.Time       `json:"date"`
	CreatedAt time.Time       `json:"created_at"`
}

// Signed returns the entry's effect on the balance.
func (e LedgerEntry) Signed() decimal.Decimal {
	if e.Direction == EntryWithdrawal {
		return e.Amount.Neg()
	}
	return e.Amount
}

// ReserveAccount is the in-memory view of one project reserve: an ordered,
// append-only sequence of entries.
type ReserveAccount struct {
	ProjectID string
	Kind      ReserveKind
	Entries   []LedgerEntry
}

// Balance is the running sum of all entries dated at or before asOf.
func (a *ReserveAccount) Balance(asOf time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, e := range a.Entries {
		if e.Date.After(asOf) {
			continue
		}
		total = total.Add(e.Signed())
	}
	return total
}

// Deposit appends a deposit entry.
func (a *ReserveAccount) Deposit(amount decimal.Decimal, category string, date time.Time) LedgerEntry {
	e := LedgerEntry{
		ID:        uuid.NewString(),
		ProjectID: a.ProjectID,
		Kind:      a.Kind,
		Direction: EntryDeposit,
		Amount:    amount,
		Category:  category,
		Date:      date,
		CreatedAt: time.Now(),
	}
	a.Entries = append(a.Entries, e)
	return e
}

// Withdraw appends a withdrawal entry. An operating withdrawal that would
// take the balance negative is rejected with ErrInsufficientFunds and no
// entry is appended. The replacement reserve may go negative; the shortfall
// is a compliance finding, not a hard block, because draw approval lives
// outside this engine.
func (a *ReserveAccount) Withdraw(amount decimal.Decimal, category string, date time.Time) (LedgerEntry, error) {
	if a.Kind == ReserveOperating {
		if a.Balance(date).Sub(amount).IsNegative() {
			return LedgerEntry{}, ErrInsufficientFunds
		}
	}
	e := LedgerEntry{
		ID:        uuid.NewString(),
		ProjectID: a.ProjectID,
		Kind:      a.Kind,
		Direction: EntryWithdrawal,
		Amount:    amount,
		Category:  category,
		Date:      date,
		CreatedAt: time.Now(),
	}
	a.Entries = append(a.Entries, e)
	return e, nil
}
