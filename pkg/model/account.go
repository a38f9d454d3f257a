package model

import (
	"fmt"
	"strings"
)

// Tenant is the company that owns rules, accounts and transactions.
type Tenant struct {
	ID   int64
	Name string
}

// AccountCategory is the top-level classification of an account.
type AccountCategory string

const (
	CategoryAsset     AccountCategory = "ASSET"
	CategoryLiability AccountCategory = "LIABILITY"
	CategoryEquity    AccountCategory = "EQUITY"
	CategoryIncome    AccountCategory = "INCOME"
	CategoryExpense   AccountCategory = "EXPENSE"
)

// ParseAccountCategory parses a category name case-insensitively.
func ParseAccountCategory(s string) (AccountCategory, error) {
	c := AccountCategory(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case CategoryAsset, CategoryLiability, CategoryEquity, CategoryIncome, CategoryExpense:
		return c, nil
	}
	return "", Validationf("unknown account category %q", s)
}

// Account is one entry in a tenant's chart of accounts.
// Codes are unique within a tenant.
type Account struct {
	ID       int64
	TenantID int64
	Code     string
	Name     string
	Category AccountCategory
	Active   bool
}

// Label returns "<code> - <name>", used as journal line description.
func (a Account) Label() string {
	return fmt.Sprintf("%s - %s", a.Code, a.Name)
}
