// Package posting turns classified bank transactions into balanced two-line
// journal entries and applies manual overrides to them.
package posting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/store"
)

// Reference prefixes for generated and manually created entries.
const (
	ReferencePrefix         = "BT-"
	OverrideReferencePrefix = "MO-"
)

// Engine writes journal entries through a LedgerStore unit of work.
type Engine struct {
	ledger       store.LedgerStore
	transactions store.TransactionStore
	accounts     store.AccountStore
	logger       *slog.Logger
	now          func() time.Time
}

// NewEngine creates a posting engine over st.
func NewEngine(st store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		ledger:       st,
		transactions: st,
		accounts:     st,
		logger:       logger,
		now:          time.Now,
	}
}

// Post records txn as one journal entry with two balanced lines between
// target and control. Money received debits control and credits target;
// money paid out debits target and credits control.
//
// A transaction that already has journal lines is left untouched and
// model.ErrAlreadyPosted is returned. Any store failure rolls back the whole
// entry and is returned wrapped in model.ErrPersistence.
func (e *Engine) Post(ctx context.Context, txn *model.BankTransaction, target, control *model.Account, actor string) (*model.JournalEntry, error) {
	if txn == nil {
		return nil, model.Validationf("no transaction to post")
	}
	if target == nil || control == nil {
		return nil, model.Validationf("transaction %d: target and control accounts are required", txn.ID)
	}
	if err := sameTenant(txn, target, control); err != nil {
		return nil, err
	}

	amount, side, err := txn.PostableAmount()
	if err != nil {
		return nil, fmt.Errorf("transaction %d: %w", txn.ID, err)
	}

	debit, credit := target, control
	if side == model.SideCredit {
		debit, credit = control, target
	}

	entry := e.newEntry(txn, ReferencePrefix, actor)
	entry.Lines = twoLines(txn.ID, debit, credit, amount)
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	err = e.ledger.InTx(ctx, func(tx store.LedgerTx) error {
		existing, err := tx.LinesBySourceTransaction(ctx, txn.ID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("transaction %d: %w", txn.ID, model.ErrAlreadyPosted)
		}
		return writeEntry(ctx, tx, entry)
	})
	if err != nil {
		return nil, model.Persistence(err)
	}

	e.logger.Debug("Posted transaction",
		"transaction_id", txn.ID,
		"entry_id", entry.ID,
		"debit_account", debit.Code,
		"credit_account", credit.Code,
		"amount", amount.StringFixed(2),
	)
	return entry, nil
}

// Override forces the accounts of a single transaction. Existing lines get new
// accounts with their amounts kept; otherwise a new entry is created by actor
// and the transaction takes the debit account's code. Rules are not consulted.
func (e *Engine) Override(ctx context.Context, txnID, debitAccountID, creditAccountID int64, actor string) (*model.JournalEntry, error) {
	txn, err := e.transactions.GetTransaction(ctx, txnID)
	if err != nil {
		return nil, err
	}
	debit, err := e.accounts.GetAccount(ctx, debitAccountID)
	if err != nil {
		return nil, err
	}
	credit, err := e.accounts.GetAccount(ctx, creditAccountID)
	if err != nil {
		return nil, err
	}
	if err := sameTenant(txn, debit, credit); err != nil {
		return nil, err
	}

	amount, _, err := txn.PostableAmount()
	if err != nil {
		return nil, fmt.Errorf("transaction %d: %w", txn.ID, err)
	}

	var entryID int64
	err = e.ledger.InTx(ctx, func(tx store.LedgerTx) error {
		existing, err := tx.LinesBySourceTransaction(ctx, txn.ID)
		if err != nil {
			return err
		}

		if len(existing) > 0 {
			debitLine, creditLine, err := pickSides(txn.ID, existing)
			if err != nil {
				return err
			}
			debitLine.AccountID = debit.ID
			debitLine.Description = debit.Label()
			creditLine.AccountID = credit.ID
			creditLine.Description = credit.Label()

			if err := tx.UpdateLine(ctx, &debitLine); err != nil {
				return err
			}
			if err := tx.UpdateLine(ctx, &creditLine); err != nil {
				return err
			}
			entryID = debitLine.EntryID
			return nil
		}

		entry := e.newEntry(txn, OverrideReferencePrefix, actor)
		entry.Lines = twoLines(txn.ID, debit, credit, amount)
		if err := writeEntry(ctx, tx, entry); err != nil {
			return err
		}
		entryID = entry.ID
		return tx.UpdateClassification(ctx, txn.ID, debit.Code, actor, e.now())
	})
	if err != nil {
		return nil, model.Persistence(err)
	}

	e.logger.Info("Applied manual override",
		"transaction_id", txn.ID,
		"entry_id", entryID,
		"debit_account", debit.Code,
		"credit_account", credit.Code,
		"actor", actor,
	)
	return e.ledger.GetEntry(ctx, entryID)
}

func (e *Engine) newEntry(txn *model.BankTransaction, prefix, actor string) *model.JournalEntry {
	source := txn.ID
	return &model.JournalEntry{
		TenantID:            txn.TenantID,
		FiscalPeriodID:      txn.FiscalPeriodID,
		Reference:           fmt.Sprintf("%s%d", prefix, txn.ID),
		EntryDate:           txn.Date,
		Description:         txn.Details,
		CreatedBy:           actor,
		CreatedAt:           e.now(),
		SourceTransactionID: &source,
	}
}

func twoLines(txnID int64, debit, credit *model.Account, amount decimal.Decimal) []model.JournalEntryLine {
	return []model.JournalEntryLine{
		{
			AccountID:           debit.ID,
			DebitAmount:         amount,
			CreditAmount:        decimal.Zero,
			Description:         debit.Label(),
			SourceTransactionID: &txnID,
			LineNumber:          1,
		},
		{
			AccountID:           credit.ID,
			DebitAmount:         decimal.Zero,
			CreditAmount:        amount,
			Description:         credit.Label(),
			SourceTransactionID: &txnID,
			LineNumber:          2,
		},
	}
}

func writeEntry(ctx context.Context, tx store.LedgerTx, entry *model.JournalEntry) error {
	if err := tx.CreateEntry(ctx, entry); err != nil {
		return err
	}
	for i := range entry.Lines {
		entry.Lines[i].EntryID = entry.ID
		if err := tx.CreateLine(ctx, &entry.Lines[i]); err != nil {
			return err
		}
	}
	return nil
}

// pickSides returns the single positive-debit and single positive-credit line.
func pickSides(txnID int64, lines []model.JournalEntryLine) (debit, credit model.JournalEntryLine, err error) {
	var debits, credits []model.JournalEntryLine
	for _, l := range lines {
		switch {
		case l.IsDebit():
			debits = append(debits, l)
		case l.IsCredit():
			credits = append(credits, l)
		}
	}
	if len(debits) != 1 || len(credits) != 1 {
		return debit, credit, model.Validationf(
			"transaction %d: cannot override %d debit and %d credit lines", txnID, len(debits), len(credits))
	}
	return debits[0], credits[0], nil
}

func sameTenant(txn *model.BankTransaction, accounts ...*model.Account) error {
	for _, a := range accounts {
		if a.TenantID != txn.TenantID {
			return model.Validationf("account %s belongs to tenant %d, transaction %d to tenant %d",
				a.Code, a.TenantID, txn.ID, txn.TenantID)
		}
	}
	return nil
}
