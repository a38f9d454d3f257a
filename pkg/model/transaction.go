package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a bank movement from the bank account's point of view.
type Side string

const (
	// SideDebit is money paid out of the bank account.
	SideDebit Side = "debit"
	// SideCredit is money received into the bank account.
	SideCredit Side = "credit"
)

// BankTransaction is one structured statement line produced by the import pipeline.
// AccountCode is nil while the transaction is unclassified.
type BankTransaction struct {
	ID             int64
	TenantID       int64
	FiscalPeriodID int64
	Date           time.Time
	Details        string
	DebitAmount    decimal.Decimal
	CreditAmount   decimal.Decimal
	AccountCode    *string

	LastUpdatedBy string
	LastUpdatedAt *time.Time
}

// IsClassified reports whether an account code has been assigned.
func (t BankTransaction) IsClassified() bool {
	return t.AccountCode != nil && *t.AccountCode != ""
}

// PostableAmount returns the single positive amount of the transaction and its side.
// Exactly one of DebitAmount and CreditAmount must be positive.
func (t BankTransaction) PostableAmount() (decimal.Decimal, Side, error) {
	debit := t.DebitAmount.IsPositive()
	credit := t.CreditAmount.IsPositive()

	switch {
	case debit && credit:
		return decimal.Zero, "", Validationf("transaction %d has both debit and credit amounts", t.ID)
	case credit:
		return t.CreditAmount, SideCredit, nil
	case debit:
		return t.DebitAmount, SideDebit, nil
	default:
		return decimal.Zero, "", Validationf("transaction %d has no postable amount", t.ID)
	}
}

// SignedAmount returns credit minus debit: positive for money received.
func (t BankTransaction) SignedAmount() decimal.Decimal {
	return t.CreditAmount.Sub(t.DebitAmount)
}
