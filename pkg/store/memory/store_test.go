package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/store"
)

func newTenant(t *testing.T, s *Store, name string) model.Tenant {
	t.Helper()
	tenant := model.Tenant{Name: name}
	require.NoError(t, s.CreateTenant(context.Background(), &tenant))
	return tenant
}

func addTxn(t *testing.T, s *Store, tenantID int64, day int, code string) model.BankTransaction {
	t.Helper()
	txn := model.BankTransaction{
		TenantID:       tenantID,
		FiscalPeriodID: 1,
		Date:           time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		Details:        "FEE",
		DebitAmount:    decimal.NewFromInt(10),
		CreditAmount:   decimal.Zero,
	}
	if code != "" {
		txn.AccountCode = &code
	}
	require.NoError(t, s.CreateTransaction(context.Background(), &txn))
	return txn
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	s := New()
	acme := newTenant(t, s, "Acme")
	other := newTenant(t, s, "Other")

	bank := model.Account{TenantID: acme.ID, Code: "1100", Name: "Bank", Category: model.CategoryAsset, Active: true}
	require.NoError(t, s.CreateAccount(ctx, &bank))

	dup := model.Account{TenantID: acme.ID, Code: "1100", Name: "Again", Category: model.CategoryAsset, Active: true}
	assert.ErrorIs(t, s.CreateAccount(ctx, &dup), model.ErrValidation)

	same := model.Account{TenantID: other.ID, Code: "1100", Name: "Bank", Category: model.CategoryAsset, Active: true}
	require.NoError(t, s.CreateAccount(ctx, &same))

	found, err := s.FindActiveAccountByCode(ctx, acme.ID, "1100")
	require.NoError(t, err)
	assert.Equal(t, bank.ID, found.ID)

	bank.Active = false
	require.NoError(t, s.UpdateAccount(ctx, &bank))
	_, err = s.FindActiveAccountByCode(ctx, acme.ID, "1100")
	assert.ErrorIs(t, err, model.ErrNotFound)

	foreign := same
	foreign.TenantID = acme.ID
	assert.ErrorIs(t, s.UpdateAccount(ctx, &foreign), model.ErrNotFound)
}

func TestListActiveRulesOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenant := newTenant(t, s, "Acme")

	for _, r := range []model.ClassificationRule{
		{Name: "low", Priority: 10, Active: true},
		{Name: "high", Priority: 100, Active: true},
		{Name: "off", Priority: 500, Active: false},
		{Name: "low-2", Priority: 10, Active: true},
	} {
		r.TenantID = tenant.ID
		r.MatchType = model.MatchContains
		r.MatchValue = "X"
		r.TargetAccountCode = "9600"
		require.NoError(t, s.CreateRule(ctx, &r))
	}

	active, err := s.ListActiveRules(ctx, tenant.ID)
	require.NoError(t, err)
	var names []string
	for _, r := range active {
		names = append(names, r.Name)
		assert.Equal(t, r.ID, r.Sequence)
	}
	assert.Equal(t, []string{"high", "low", "low-2"}, names)

	all, err := s.ListRules(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestTransactionsAreCopied(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenant := newTenant(t, s, "Acme")
	txn := addTxn(t, s, tenant.ID, 2, "9600")

	got, err := s.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	*got.AccountCode = "mutated"

	again, err := s.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "9600", *again.AccountCode)
}

func TestListTransactionsFilter(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenant := newTenant(t, s, "Acme")
	late := addTxn(t, s, tenant.ID, 20, "")
	early := addTxn(t, s, tenant.ID, 1, "9600")
	addTxn(t, s, newTenant(t, s, "Other").ID, 5, "")

	all, err := s.ListTransactions(ctx, store.TransactionFilter{TenantID: tenant.ID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, early.ID, all[0].ID)

	open, err := s.ListTransactions(ctx, store.TransactionFilter{TenantID: tenant.ID, UnclassifiedOnly: true})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, late.ID, open[0].ID)

	none, err := s.ListTransactions(ctx, store.TransactionFilter{TenantID: tenant.ID, FiscalPeriodID: 9})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInTxCommitAndRollback(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenant := newTenant(t, s, "Acme")
	txn := addTxn(t, s, tenant.ID, 3, "9600")
	source := txn.ID

	write := func(tx store.LedgerTx) error {
		entry := model.JournalEntry{TenantID: tenant.ID, Reference: "BT-1", SourceTransactionID: &source}
		if err := tx.CreateEntry(ctx, &entry); err != nil {
			return err
		}
		line := model.JournalEntryLine{EntryID: entry.ID, AccountID: 1, DebitAmount: decimal.NewFromInt(10), SourceTransactionID: &source, LineNumber: 1}
		return tx.CreateLine(ctx, &line)
	}

	s.FailWriteAt(2, nil)
	err := s.InTx(ctx, write)
	assert.ErrorIs(t, err, ErrInjected)

	entries, err := s.ListEntries(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
	pending, err := s.ListClassifiedWithoutLines(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, s.InTx(ctx, write))
	entries, err = s.ListEntries(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Lines, 1)

	pending, err = s.ListClassifiedWithoutLines(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	err = s.InTx(ctx, write)
	assert.ErrorIs(t, err, model.ErrAlreadyPosted)
}

func TestFailWriteAtCustomError(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenant := newTenant(t, s, "Acme")
	txn := addTxn(t, s, tenant.ID, 3, "")
	boom := errors.New("boom")

	s.FailWriteAt(1, boom)
	err := s.InTx(ctx, func(tx store.LedgerTx) error {
		return tx.UpdateClassification(ctx, txn.ID, "9600", "alice", time.Now())
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.False(t, got.IsClassified())

	// the injection applies to one unit of work only
	require.NoError(t, s.InTx(ctx, func(tx store.LedgerTx) error {
		return tx.UpdateClassification(ctx, txn.ID, "9600", "alice", time.Now())
	}))
	got, err = s.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "9600", *got.AccountCode)
	assert.Equal(t, "alice", got.LastUpdatedBy)
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.GetTenant(ctx, 1)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.GetEntry(ctx, 1)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, s.UpdateClassification(ctx, 1, "9600", "x", time.Now()), model.ErrNotFound)
}
