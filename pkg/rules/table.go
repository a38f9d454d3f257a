package rules

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// TableRule is one rule record in a declarative rule table.
type TableRule struct {
	Name        string `yaml:"name"`
	Match       string `yaml:"match"`
	Value       string `yaml:"value"`
	Account     string `yaml:"account"`
	Priority    *int   `yaml:"priority"`
	Active      *bool  `yaml:"active"`
	Description string `yaml:"description"`
}

// Tier groups rules that share a default priority.
type Tier struct {
	Name     string      `yaml:"name"`
	Priority int         `yaml:"priority"`
	Rules    []TableRule `yaml:"rules"`
}

// Table is a declarative rule catalog as read from YAML.
type Table struct {
	Tiers []Tier `yaml:"tiers"`
}

// LoadTable parses a rule table and checks that every rule compiles.
func LoadTable(r io.Reader) (*Table, error) {
	var table Table
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&table); err != nil {
		if err == io.EOF {
			return &table, nil
		}
		return nil, fmt.Errorf("failed to parse rule table: %w", err)
	}

	if _, err := table.Rules(0); err != nil {
		return nil, err
	}
	return &table, nil
}

// LoadTableFile reads a rule table from a YAML file.
func LoadTableFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule table: %w", err)
	}
	return LoadTable(bytes.NewReader(data))
}

// DefaultTable returns the built-in rule table.
func DefaultTable() (*Table, error) {
	return LoadTable(bytes.NewReader(defaultRulesYAML))
}

// Rules flattens the table into rules for tenantID. Sequence follows file
// order, so equal-priority rules are evaluated in the order they are written.
func (t *Table) Rules(tenantID int64) ([]model.ClassificationRule, error) {
	var out []model.ClassificationRule
	var seq int64

	for _, tier := range t.Tiers {
		for i, tr := range tier.Rules {
			seq++

			name := tr.Name
			if name == "" {
				name = fmt.Sprintf("%s#%d", tier.Name, i+1)
			}

			matchType, err := model.ParseMatchType(tr.Match)
			if err != nil {
				return nil, fmt.Errorf("tier %q rule %q: %w", tier.Name, name, err)
			}

			priority := tier.Priority
			if tr.Priority != nil {
				priority = *tr.Priority
			}

			active := true
			if tr.Active != nil {
				active = *tr.Active
			}

			description := tr.Description
			if description == "" {
				description = "tier: " + tier.Name
			}

			rule := model.ClassificationRule{
				TenantID:          tenantID,
				Name:              name,
				MatchType:         matchType,
				MatchValue:        tr.Value,
				TargetAccountCode: tr.Account,
				Priority:          priority,
				Active:            active,
				Description:       description,
				Sequence:          seq,
			}

			if rule.TargetAccountCode == "" {
				return nil, model.Validationf("tier %q rule %q has no account", tier.Name, name)
			}
			if _, err := Compile(rule); err != nil {
				return nil, fmt.Errorf("tier %q: %w", tier.Name, err)
			}

			out = append(out, rule)
		}
	}

	return out, nil
}

// Catalog builds a catalog for tenantID from the table.
func (t *Table) Catalog(tenantID int64) (*Catalog, error) {
	rs, err := t.Rules(tenantID)
	if err != nil {
		return nil, err
	}
	return NewCatalog(rs)
}
