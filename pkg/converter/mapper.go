// Package converter provides conversion from journal entries to Beancount format.
package converter

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
)

// AccountMapping maps one account code to a Beancount account name.
type AccountMapping struct {
	Code      string `yaml:"code"`
	Beancount string `yaml:"beancount"`
}

// AccountMappingConfig represents the complete account mapping configuration.
type AccountMappingConfig struct {
	Categories map[model.AccountCategory]string `yaml:"categories"`
	Accounts   []AccountMapping                 `yaml:"accounts"`
}

var defaultCategories = map[model.AccountCategory]string{
	model.CategoryAsset:     "Assets",
	model.CategoryLiability: "Liabilities",
	model.CategoryEquity:    "Equity",
	model.CategoryIncome:    "Income",
	model.CategoryExpense:   "Expenses",
}

// Mapper maps accounts of the chart to Beancount account names.
type Mapper struct {
	categories map[model.AccountCategory]string
	byCode     map[string]string
}

// NewMapper creates a new Mapper from a YAML configuration file.
func NewMapper(configPath string) (*Mapper, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config AccountMappingConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return NewMapperFromConfig(config)
}

// NewMapperFromConfig builds a Mapper. Categories missing from config fall
// back to the five Beancount root names.
func NewMapperFromConfig(config AccountMappingConfig) (*Mapper, error) {
	m := &Mapper{
		categories: make(map[model.AccountCategory]string, len(defaultCategories)),
		byCode:     make(map[string]string, len(config.Accounts)),
	}
	for cat, prefix := range defaultCategories {
		m.categories[cat] = prefix
	}

	for cat, prefix := range config.Categories {
		parsed, err := model.ParseAccountCategory(string(cat))
		if err != nil {
			return nil, err
		}
		m.categories[parsed] = prefix
	}

	for _, mapping := range config.Accounts {
		if mapping.Code == "" || mapping.Beancount == "" {
			return nil, model.Validationf("account mapping needs a code and a beancount name")
		}
		m.byCode[mapping.Code] = mapping.Beancount
	}

	return m, nil
}

// GetBeancountAccount returns the Beancount account name for an account.
// An explicit code mapping wins; otherwise the name is derived from the
// category prefix and the account name.
func (m *Mapper) GetBeancountAccount(account model.Account) string {
	if name, ok := m.byCode[account.Code]; ok {
		return name
	}

	prefix, ok := m.categories[account.Category]
	if !ok {
		prefix = "Expenses:Unmapped"
	}

	component := sanitizeAccountName(account.Name)
	if component == "" {
		component = sanitizeAccountName(account.Code)
	}
	return prefix + ":" + component
}

// HasMapping checks if an explicit mapping exists for an account code.
func (m *Mapper) HasMapping(code string) bool {
	_, ok := m.byCode[code]
	return ok
}

// sanitizeAccountName turns free text into one Beancount account component:
// words are capitalised and joined, and anything but letters, digits and
// hyphens is dropped.
func sanitizeAccountName(name string) string {
	var sb strings.Builder
	for _, word := range strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	}) {
		word = strings.Trim(word, "-")
		if word == "" {
			continue
		}
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		sb.WriteString(string(runes))
	}
	return sb.String()
}
