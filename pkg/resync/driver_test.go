package resync

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/store/memory"
)

type env struct {
	ctx    context.Context
	store  *memory.Store
	tenant *model.Tenant
	driver *Driver
}

func newEnv(t *testing.T, accounts []string, rs []model.ClassificationRule) *env {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	tenant := &model.Tenant{Name: "Acme"}
	require.NoError(t, st.CreateTenant(ctx, tenant))

	for _, code := range accounts {
		require.NoError(t, st.CreateAccount(ctx, &model.Account{
			TenantID: tenant.ID,
			Code:     code,
			Name:     "Account " + code,
			Category: model.CategoryExpense,
			Active:   true,
		}))
	}
	for _, r := range rs {
		r.TenantID = tenant.ID
		r.Active = true
		require.NoError(t, st.CreateRule(ctx, &r))
	}

	return &env{
		ctx:    ctx,
		store:  st,
		tenant: tenant,
		driver: NewDriver(st, Config{ControlAccountCode: "1100"}),
	}
}

func (e *env) txn(t *testing.T, details, debit, credit string) *model.BankTransaction {
	t.Helper()
	txn := &model.BankTransaction{
		TenantID:       e.tenant.ID,
		FiscalPeriodID: 1,
		Date:           time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Details:        details,
		DebitAmount:    decimal.RequireFromString(debit),
		CreditAmount:   decimal.RequireFromString(credit),
	}
	require.NoError(t, e.store.CreateTransaction(e.ctx, txn))
	return txn
}

func (e *env) code(t *testing.T, id int64) string {
	t.Helper()
	txn, err := e.store.GetTransaction(e.ctx, id)
	require.NoError(t, err)
	if txn.AccountCode == nil {
		return ""
	}
	return *txn.AccountCode
}

func contains(value, account string, priority int) model.ClassificationRule {
	return model.ClassificationRule{
		Name:              value,
		MatchType:         model.MatchContains,
		MatchValue:        value,
		TargetAccountCode: account,
		Priority:          priority,
	}
}

var scenarioRules = []model.ClassificationRule{
	contains("INSURANCE", "8800", 5),
	contains("INSURANCE CHAUKE", "8100", 10),
	contains("FEE", "9600", 20),
	contains("COROBRIK", "6100-001", 100),
}

var scenarioAccounts = []string{"1100", "8100", "8800", "9600", "6100-001"}

func TestClassifyAllUnclassified(t *testing.T) {
	e := newEnv(t, scenarioAccounts, scenarioRules)
	salary := e.txn(t, "INSURANCE CHAUKE SALARY", "5000.00", "0")
	fee := e.txn(t, "FEE IMMEDIATE PAYMENT", "35.00", "0")
	unknown := e.txn(t, "SOMETHING ELSE", "1.00", "0")

	res, err := e.driver.ClassifyAllUnclassified(e.ctx, e.tenant.ID, "system")
	require.NoError(t, err)

	_, err = uuid.Parse(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, OpClassifyUnclassified, res.Operation)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Unmatched)
	assert.Equal(t, 0, res.Failed)

	assert.Equal(t, "8100", e.code(t, salary.ID))
	assert.Equal(t, "9600", e.code(t, fee.ID))
	assert.Equal(t, "", e.code(t, unknown.ID))

	after, err := e.store.GetTransaction(e.ctx, salary.ID)
	require.NoError(t, err)
	assert.Equal(t, "system", after.LastUpdatedBy)
	assert.NotNil(t, after.LastUpdatedAt)

	// Only the unmatched one is considered on the next run.
	res, err = e.driver.ClassifyAllUnclassified(e.ctx, e.tenant.ID, "system")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}

func TestClassifyContinuesPastUnresolvableCode(t *testing.T) {
	// 7300 has a rule but no account in this tenant's chart.
	rs := append([]model.ClassificationRule{contains("TELKOM", "7300", 80)}, scenarioRules...)
	e := newEnv(t, scenarioAccounts, rs)

	bad := e.txn(t, "TELKOM DEBIT ORDER", "499.00", "0")
	good := e.txn(t, "FEE IMMEDIATE PAYMENT", "35.00", "0")

	res, err := e.driver.ClassifyAllUnclassified(e.ctx, e.tenant.ID, "system")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, bad.ID, res.Failures[0].TransactionID)
	assert.Equal(t, model.KindNotFound, res.Failures[0].Kind)

	assert.Equal(t, "", e.code(t, bad.ID))
	assert.Equal(t, "9600", e.code(t, good.ID))
}

func TestGenerateJournalEntries(t *testing.T) {
	e := newEnv(t, scenarioAccounts, scenarioRules)
	fee := e.txn(t, "FEE IMMEDIATE PAYMENT", "35.00", "0")
	sale := e.txn(t, "COROBRIK PAYMENT", "0", "15000.00")
	e.txn(t, "SOMETHING ELSE", "1.00", "0")

	_, err := e.driver.ClassifyAllUnclassified(e.ctx, e.tenant.ID, "system")
	require.NoError(t, err)

	res, err := e.driver.GenerateJournalEntriesForClassified(e.ctx, e.tenant.ID, "system")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Succeeded)

	entries, err := e.store.ListEntries(e.ctx, e.tenant.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		require.NoError(t, entry.Validate())
	}

	for _, id := range []int64{fee.ID, sale.ID} {
		lines, err := e.store.LinesBySourceTransaction(e.ctx, id)
		require.NoError(t, err)
		assert.Len(t, lines, 2)
	}
}

func TestGenerateWithoutControlAccountFailsPerItem(t *testing.T) {
	e := newEnv(t, []string{"9600"}, scenarioRules)
	e.txn(t, "FEE IMMEDIATE PAYMENT", "35.00", "0")
	e.txn(t, "FEE CASH DEPOSIT", "12.00", "0")

	_, err := e.driver.ClassifyAllUnclassified(e.ctx, e.tenant.ID, "system")
	require.NoError(t, err)

	res, err := e.driver.GenerateJournalEntriesForClassified(e.ctx, e.tenant.ID, "system")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 0, res.Succeeded)
	for _, f := range res.Failures {
		assert.ErrorIs(t, f.Err, model.ErrNotFound)
	}
}

func TestGenerateRollbackLeavesTransactionRetryable(t *testing.T) {
	e := newEnv(t, scenarioAccounts, scenarioRules)
	fee := e.txn(t, "FEE IMMEDIATE PAYMENT", "35.00", "0")

	_, err := e.driver.ClassifyAllUnclassified(e.ctx, e.tenant.ID, "system")
	require.NoError(t, err)

	e.store.FailWriteAt(2, nil)
	res, err := e.driver.GenerateJournalEntriesForClassified(e.ctx, e.tenant.ID, "system")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, model.KindPersistence, res.Failures[0].Kind)

	lines, err := e.store.LinesBySourceTransaction(e.ctx, fee.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	res, err = e.driver.GenerateJournalEntriesForClassified(e.ctx, e.tenant.ID, "system")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
}

func TestReclassifyTwiceIsStable(t *testing.T) {
	e := newEnv(t, scenarioAccounts, scenarioRules)
	ids := []int64{
		e.txn(t, "INSURANCE CHAUKE SALARY", "5000.00", "0").ID,
		e.txn(t, "HOLLARD INSURANCE", "250.00", "0").ID,
		e.txn(t, "FEE IMMEDIATE PAYMENT", "35.00", "0").ID,
		e.txn(t, "COROBRIK PAYMENT", "0", "15000.00").ID,
	}

	first, err := e.driver.RegenerateAll(e.ctx, e.tenant.ID, "system")
	require.NoError(t, err)
	assert.Equal(t, 4, first.Reclassify.Succeeded)
	assert.Equal(t, 4, first.Generate.Succeeded)

	codes := make(map[int64]string)
	for _, id := range ids {
		codes[id] = e.code(t, id)
	}
	assert.Equal(t, "8100", codes[ids[0]])

	res, err := e.driver.ReclassifyAll(e.ctx, e.tenant.ID, "system")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Succeeded)
	for _, id := range ids {
		assert.Equal(t, codes[id], e.code(t, id))
	}

	gen, err := e.driver.GenerateJournalEntriesForClassified(e.ctx, e.tenant.ID, "system")
	require.NoError(t, err)
	assert.Equal(t, 0, gen.Total)
	assert.Equal(t, 0, gen.Succeeded)

	entries, err := e.store.ListEntries(e.ctx, e.tenant.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestReclassifyKeepsCodeWhenNothingMatches(t *testing.T) {
	e := newEnv(t, scenarioAccounts, scenarioRules)
	txn := e.txn(t, "MYSTERY", "10.00", "0")
	require.NoError(t, e.store.UpdateClassification(e.ctx, txn.ID, "8800", "alice", time.Now()))

	res, err := e.driver.ReclassifyAll(e.ctx, e.tenant.ID, "system")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unmatched)
	assert.Equal(t, "8800", e.code(t, txn.ID))
}

func TestBatchesAreTenantScoped(t *testing.T) {
	e := newEnv(t, scenarioAccounts, scenarioRules)
	e.txn(t, "FEE IMMEDIATE PAYMENT", "35.00", "0")

	other := &model.Tenant{Name: "Other"}
	require.NoError(t, e.store.CreateTenant(e.ctx, other))
	foreign := &model.BankTransaction{
		TenantID:     other.ID,
		Date:         time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Details:      "FEE IMMEDIATE PAYMENT",
		DebitAmount:  decimal.NewFromInt(35),
		CreditAmount: decimal.Zero,
	}
	require.NoError(t, e.store.CreateTransaction(e.ctx, foreign))

	res, err := e.driver.ClassifyAllUnclassified(e.ctx, e.tenant.ID, "system")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, "", e.code(t, foreign.ID))

	// The other tenant has no rules, so nothing matches there.
	res, err = e.driver.ClassifyAllUnclassified(e.ctx, other.ID, "system")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unmatched)
}

func TestUnknownTenantAbortsBatch(t *testing.T) {
	e := newEnv(t, scenarioAccounts, scenarioRules)

	_, err := e.driver.ClassifyAllUnclassified(e.ctx, 4242, "system")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = e.driver.GenerateJournalEntriesForClassified(e.ctx, 4242, "system")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = e.driver.RegenerateAll(e.ctx, 4242, "system")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
