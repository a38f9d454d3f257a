package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalEntry is the header of a balanced set of debit and credit lines.
type JournalEntry struct {
	ID             int64
	TenantID       int64
	FiscalPeriodID int64
	Reference      string
	EntryDate      time.Time
	Description    string
	CreatedBy      string
	CreatedAt      time.Time

	// SourceTransactionID links a generated entry to the bank transaction it posts.
	SourceTransactionID *int64

	Lines []JournalEntryLine
}

// JournalEntryLine is one side of a journal entry. Exactly one amount is positive.
type JournalEntryLine struct {
	ID                  int64
	EntryID             int64
	AccountID           int64
	DebitAmount         decimal.Decimal
	CreditAmount        decimal.Decimal
	Description         string
	SourceTransactionID *int64
	LineNumber          int
}

// IsDebit reports whether the line carries a positive debit amount.
func (l JournalEntryLine) IsDebit() bool {
	return l.DebitAmount.IsPositive() && l.CreditAmount.IsZero()
}

// IsCredit reports whether the line carries a positive credit amount.
func (l JournalEntryLine) IsCredit() bool {
	return l.CreditAmount.IsPositive() && l.DebitAmount.IsZero()
}

// Totals returns the sums of debit and credit amounts over all lines.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, line := range e.Lines {
		debit = debit.Add(line.DebitAmount)
		credit = credit.Add(line.CreditAmount)
	}
	return debit, credit
}

// Validate checks that every line has exactly one positive side and that the
// entry balances exactly.
func (e JournalEntry) Validate() error {
	if len(e.Lines) < 2 {
		return Validationf("journal entry %q has %d lines, need at least 2", e.Reference, len(e.Lines))
	}
	for _, line := range e.Lines {
		if line.IsDebit() == line.IsCredit() {
			return Validationf("journal entry %q line %d must have exactly one positive amount", e.Reference, line.LineNumber)
		}
	}
	debit, credit := e.Totals()
	if !debit.Equal(credit) {
		return Validationf("journal entry %q is unbalanced: debit %s, credit %s", e.Reference, debit, credit)
	}
	return nil
}
