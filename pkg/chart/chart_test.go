package chart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/rules"
)

func TestDefaultCoversRuleTargets(t *testing.T) {
	accounts, err := Default()
	require.NoError(t, err)

	codes := make(map[string]bool)
	for _, a := range accounts {
		codes[a.Code] = true
		assert.True(t, a.Active, a.Code)
	}
	assert.True(t, codes["1100"], "control account")

	table, err := rules.DefaultTable()
	require.NoError(t, err)
	rs, err := table.Rules(1)
	require.NoError(t, err)
	for _, r := range rs {
		assert.True(t, codes[r.TargetAccountCode], "rule %q targets %s", r.Name, r.TargetAccountCode)
	}
}

func TestLoad(t *testing.T) {
	input := `
accounts:
  - {code: "1100", name: Bank, category: asset}
  - {code: "9900", name: Old suspense, category: EXPENSE, active: false}
`
	accounts, err := Load(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, model.CategoryAsset, accounts[0].Category)
	assert.False(t, accounts[1].Active)

	seeded := ForTenant(accounts, 3)
	assert.Equal(t, int64(3), seeded[0].TenantID)
	assert.Equal(t, int64(0), accounts[0].TenantID)
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]string{
		"duplicate code":   "accounts:\n  - {code: A, name: x, category: ASSET}\n  - {code: A, name: y, category: ASSET}\n",
		"unknown category": "accounts:\n  - {code: A, name: x, category: WIDGET}\n",
		"missing name":     "accounts:\n  - {code: A, category: ASSET}\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(input))
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}

	_, err := Load(strings.NewReader("accounts:\n  - {code: A, name: x, category: ASSET, colour: red}\n"))
	assert.Error(t, err)
}
