// Package store declares the persistence interfaces used by the classifier,
// the posting engine and the resync driver. Every query is scoped to one tenant.
package store

import (
	"context"
	"time"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
)

// TenantStore manages tenants.
type TenantStore interface {
	CreateTenant(ctx context.Context, tenant *model.Tenant) error
	GetTenant(ctx context.Context, id int64) (*model.Tenant, error)
}

// RuleStore manages classification rules.
type RuleStore interface {
	CreateRule(ctx context.Context, rule *model.ClassificationRule) error
	GetRule(ctx context.Context, id int64) (*model.ClassificationRule, error)
	UpdateRule(ctx context.Context, rule *model.ClassificationRule) error
	ListRules(ctx context.Context, tenantID int64) ([]model.ClassificationRule, error)

	// ListActiveRules returns active rules ordered by priority descending, then ID.
	ListActiveRules(ctx context.Context, tenantID int64) ([]model.ClassificationRule, error)
}

// AccountStore manages the chart of accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	UpdateAccount(ctx context.Context, account *model.Account) error
	ListAccounts(ctx context.Context, tenantID int64) ([]model.Account, error)

	// FindActiveAccountByCode looks up an active account by code within one tenant.
	FindActiveAccountByCode(ctx context.Context, tenantID int64, code string) (*model.Account, error)
}

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	TenantID         int64
	FiscalPeriodID   int64 // 0 means all periods
	UnclassifiedOnly bool
}

// TransactionStore manages imported bank transactions.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, txn *model.BankTransaction) error
	GetTransaction(ctx context.Context, id int64) (*model.BankTransaction, error)

	// ListTransactions returns matching transactions ordered by date, then ID.
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.BankTransaction, error)

	// UpdateClassification sets the account code and audit fields of a transaction.
	UpdateClassification(ctx context.Context, id int64, accountCode string, actor string, at time.Time) error
}

// LedgerStore manages journal entries and their lines.
type LedgerStore interface {
	GetEntry(ctx context.Context, id int64) (*model.JournalEntry, error)
	ListEntries(ctx context.Context, tenantID int64) ([]model.JournalEntry, error)
	LinesBySourceTransaction(ctx context.Context, transactionID int64) ([]model.JournalEntryLine, error)

	// ListClassifiedWithoutLines returns classified transactions of the tenant
	// that have no journal lines yet.
	ListClassifiedWithoutLines(ctx context.Context, tenantID int64) ([]model.BankTransaction, error)

	// InTx runs fn as one atomic unit. If fn returns an error nothing it wrote
	// is kept.
	InTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

// LedgerTx is the write side of a ledger unit of work.
type LedgerTx interface {
	// CreateEntry inserts the header only; lines are written with CreateLine.
	CreateEntry(ctx context.Context, entry *model.JournalEntry) error
	CreateLine(ctx context.Context, line *model.JournalEntryLine) error
	UpdateLine(ctx context.Context, line *model.JournalEntryLine) error
	LinesBySourceTransaction(ctx context.Context, transactionID int64) ([]model.JournalEntryLine, error)
	UpdateClassification(ctx context.Context, transactionID int64, accountCode string, actor string, at time.Time) error
}

// Store bundles every store; both backends implement it.
type Store interface {
	TenantStore
	RuleStore
	AccountStore
	TransactionStore
	LedgerStore
}
