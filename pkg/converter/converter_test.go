package converter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
)

func testMapper(t *testing.T) *Mapper {
	t.Helper()
	m, err := NewMapperFromConfig(AccountMappingConfig{
		Categories: map[model.AccountCategory]string{model.CategoryAsset: "Assets:Current"},
		Accounts:   []AccountMapping{{Code: "1100", Beancount: "Assets:Current:Bank:Current"}},
	})
	require.NoError(t, err)
	return m
}

func TestMapperNames(t *testing.T) {
	m := testMapper(t)

	tests := []struct {
		account model.Account
		want    string
	}{
		{model.Account{Code: "1100", Name: "Bank", Category: model.CategoryAsset}, "Assets:Current:Bank:Current"},
		{model.Account{Code: "1200", Name: "Petty cash", Category: model.CategoryAsset}, "Assets:Current:PettyCash"},
		{model.Account{Code: "9600", Name: "Bank charges", Category: model.CategoryExpense}, "Expenses:BankCharges"},
		{model.Account{Code: "6100-001", Name: "Sales - Corobrik", Category: model.CategoryIncome}, "Income:SalesCorobrik"},
		{model.Account{Code: "8300", Name: "PAYE & UIF", Category: model.CategoryExpense}, "Expenses:PAYEUIF"},
		{model.Account{Code: "X", Name: "???", Category: "WIDGET"}, "Expenses:Unmapped:X"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, m.GetBeancountAccount(tt.account))
		})
	}
	assert.True(t, m.HasMapping("1100"))
	assert.False(t, m.HasMapping("1200"))
}

func TestNewMapperFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	content := "categories:\n  expense: Expenses:Operating\naccounts:\n  - code: \"9600\"\n    beancount: Expenses:Bank:Fees\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	m, err := NewMapper(path)
	require.NoError(t, err)
	assert.Equal(t, "Expenses:Bank:Fees", m.GetBeancountAccount(model.Account{Code: "9600", Category: model.CategoryExpense}))
	assert.Equal(t, "Expenses:Operating:Rent", m.GetBeancountAccount(model.Account{Code: "7400", Name: "Rent", Category: model.CategoryExpense}))

	_, err = NewMapper(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRepositoryMappingFileLoads(t *testing.T) {
	m, err := NewMapper(filepath.Join("..", "..", "config", "beancount-mapping.yaml"))
	require.NoError(t, err)
	assert.True(t, m.HasMapping("1100"))
}

func fixtureEntry() (model.JournalEntry, map[int64]model.Account) {
	source := int64(42)
	entry := model.JournalEntry{
		ID:                  7,
		Reference:           "BT-42",
		EntryDate:           time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description:         `FEE "IMMEDIATE" PAYMENT`,
		CreatedBy:           "system",
		SourceTransactionID: &source,
		Lines: []model.JournalEntryLine{
			{AccountID: 2, DebitAmount: decimal.RequireFromString("35.10"), CreditAmount: decimal.Zero, Description: "9600 - Bank charges", LineNumber: 1},
			{AccountID: 1, DebitAmount: decimal.Zero, CreditAmount: decimal.RequireFromString("35.10"), Description: "1100 - Bank", LineNumber: 2},
		},
	}
	accounts := map[int64]model.Account{
		1: {ID: 1, Code: "1100", Name: "Bank", Category: model.CategoryAsset},
		2: {ID: 2, Code: "9600", Name: "Bank charges", Category: model.CategoryExpense},
	}
	return entry, accounts
}

func TestConvertEntry(t *testing.T) {
	c := NewConverter(testMapper(t), "")
	entry, accounts := fixtureEntry()

	txn, err := c.ConvertEntry(entry, accounts)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-15", txn.Date)
	assert.Equal(t, []string{"BT-42"}, txn.Tags)
	assert.Equal(t, "42", txn.Metadata["bank_transaction"])
	require.Len(t, txn.Postings, 2)
	assert.Equal(t, "Expenses:BankCharges", txn.Postings[0].Account)
	assert.Equal(t, "35.1", txn.Postings[0].Amount.String())
	assert.Equal(t, "-35.1", txn.Postings[1].Amount.String())
	assert.Equal(t, "ZAR", txn.Postings[0].Currency)
	assert.True(t, Balance(txn).IsZero())

	out := c.FormatTransaction(txn)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, `2024-03-15 * "FEE \"IMMEDIATE\" PAYMENT" #BT-42`, lines[0])
	assert.Equal(t, `  bank_transaction: "42"`, lines[1])
	assert.Equal(t, `  created_by: "system"`, lines[2])
	assert.Equal(t, `  entry_id: "7"`, lines[3])
	assert.True(t, strings.HasPrefix(lines[4], "  Expenses:BankCharges "))
	assert.True(t, strings.HasSuffix(lines[4], "35.10 ZAR ; 9600 - Bank charges"))
	assert.Contains(t, lines[5], "-35.10 ZAR")
}

func TestConvertEntryErrors(t *testing.T) {
	c := NewConverter(testMapper(t), "ZAR")

	entry, accounts := fixtureEntry()
	delete(accounts, 2)
	_, err := c.ConvertEntry(entry, accounts)
	assert.ErrorIs(t, err, model.ErrNotFound)

	entry, accounts = fixtureEntry()
	entry.Lines[1].CreditAmount = decimal.RequireFromString("35.00")
	_, err = c.ConvertEntry(entry, accounts)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestOpenDirectives(t *testing.T) {
	c := NewConverter(testMapper(t), "ZAR")
	_, accounts := fixtureEntry()

	list := []model.Account{accounts[2], accounts[1], accounts[1]}
	opens := c.OpenDirectives(list, "2024-01-01")
	require.Len(t, opens, 2)
	assert.Equal(t, "Assets:Current:Bank:Current", opens[0].Account)

	assert.Equal(t,
		"2024-01-01 open Assets:Current:Bank:Current ZAR\n2024-01-01 open Expenses:BankCharges ZAR\n",
		c.FormatOpens(opens))
}
