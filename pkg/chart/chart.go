// Package chart loads chart-of-accounts templates used to seed a tenant.
package chart

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
)

//go:embed default_accounts.yaml
var defaultAccountsYAML []byte

type accountRecord struct {
	Code     string `yaml:"code"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Active   *bool  `yaml:"active"`
}

type document struct {
	Accounts []accountRecord `yaml:"accounts"`
}

// Load parses a chart of accounts. The returned accounts carry no ID or tenant.
func Load(r io.Reader) ([]model.Account, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse chart of accounts: %w", err)
	}

	seen := make(map[string]bool, len(doc.Accounts))
	accounts := make([]model.Account, 0, len(doc.Accounts))
	for i, rec := range doc.Accounts {
		if rec.Code == "" || rec.Name == "" {
			return nil, model.Validationf("account #%d needs a code and a name", i+1)
		}
		if seen[rec.Code] {
			return nil, model.Validationf("duplicate account code %q", rec.Code)
		}
		seen[rec.Code] = true

		category, err := model.ParseAccountCategory(rec.Category)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", rec.Code, err)
		}

		active := true
		if rec.Active != nil {
			active = *rec.Active
		}
		accounts = append(accounts, model.Account{
			Code:     rec.Code,
			Name:     rec.Name,
			Category: category,
			Active:   active,
		})
	}
	return accounts, nil
}

// LoadFile reads a chart of accounts from a YAML file.
func LoadFile(path string) ([]model.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart of accounts: %w", err)
	}
	return Load(bytes.NewReader(data))
}

// Default returns the built-in chart of accounts.
func Default() ([]model.Account, error) {
	return Load(bytes.NewReader(defaultAccountsYAML))
}

// ForTenant copies templates and assigns them to tenantID.
func ForTenant(templates []model.Account, tenantID int64) []model.Account {
	out := make([]model.Account, len(templates))
	for i, a := range templates {
		a.ID = 0
		a.TenantID = tenantID
		out[i] = a
	}
	return out
}
