package converter

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/beancount"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
)

// Converter converts journal entries to Beancount format.
type Converter struct {
	mapper   *Mapper
	currency string
}

// NewConverter creates a new Converter.
func NewConverter(mapper *Mapper, currency string) *Converter {
	if currency == "" {
		currency = "ZAR"
	}
	return &Converter{
		mapper:   mapper,
		currency: currency,
	}
}

// ConvertEntry converts a journal entry to a Beancount transaction. Debits
// become positive postings and credits negative ones. accounts must hold
// every account the entry's lines reference.
func (c *Converter) ConvertEntry(entry model.JournalEntry, accounts map[int64]model.Account) (beancount.Transaction, error) {
	if err := entry.Validate(); err != nil {
		return beancount.Transaction{}, err
	}

	postings := make([]beancount.Posting, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		account, ok := accounts[line.AccountID]
		if !ok {
			return beancount.Transaction{}, model.NotFoundf("account %d of journal entry %s", line.AccountID, entry.Reference)
		}

		postings = append(postings, beancount.Posting{
			Account:  c.mapper.GetBeancountAccount(account),
			Amount:   line.DebitAmount.Sub(line.CreditAmount),
			Currency: c.currency,
			Comment:  line.Description,
		})
	}

	metadata := map[string]string{
		"entry_id":   strconv.FormatInt(entry.ID, 10),
		"created_by": entry.CreatedBy,
	}
	if entry.SourceTransactionID != nil {
		metadata["bank_transaction"] = strconv.FormatInt(*entry.SourceTransactionID, 10)
	}

	return beancount.Transaction{
		Date:      entry.EntryDate.Format("2006-01-02"),
		Narration: entry.Description,
		Tags:      buildTags(entry.Reference),
		Metadata:  metadata,
		Postings:  postings,
	}, nil
}

// FormatTransaction formats a Beancount transaction as a string.
func (c *Converter) FormatTransaction(txn beancount.Transaction) string {
	var sb strings.Builder

	// Transaction header
	sb.WriteString(txn.Date)
	sb.WriteString(" *")
	if txn.Payee != "" {
		sb.WriteString(fmt.Sprintf(" %s", quote(txn.Payee)))
	}
	sb.WriteString(fmt.Sprintf(" %s", quote(txn.Narration)))
	if len(txn.Tags) > 0 {
		sb.WriteString(" #")
		sb.WriteString(strings.Join(txn.Tags, " #"))
	}
	if len(txn.Links) > 0 {
		sb.WriteString(" ^")
		sb.WriteString(strings.Join(txn.Links, " ^"))
	}
	sb.WriteString("\n")

	// Metadata in key order so output is stable
	keys := make([]string, 0, len(txn.Metadata))
	for k := range txn.Metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %s: %s\n", k, quote(txn.Metadata[k])))
	}

	// Postings
	for _, posting := range txn.Postings {
		sb.WriteString("  ")
		sb.WriteString(posting.Account)

		// Right-align amount (typical Beancount style)
		amount := posting.Amount.StringFixed(2)
		spaces := max(2, 60-len(posting.Account)-len(amount))
		sb.WriteString(strings.Repeat(" ", spaces))
		sb.WriteString(fmt.Sprintf("%s %s", amount, posting.Currency))

		if posting.Comment != "" {
			sb.WriteString(fmt.Sprintf(" ; %s", posting.Comment))
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

// OpenDirectives returns an open directive for every account, dated openDate.
func (c *Converter) OpenDirectives(accounts []model.Account, openDate string) []beancount.Open {
	seen := make(map[string]bool, len(accounts))
	var opens []beancount.Open
	for _, a := range accounts {
		name := c.mapper.GetBeancountAccount(a)
		if seen[name] {
			continue
		}
		seen[name] = true
		opens = append(opens, beancount.Open{Date: openDate, Account: name})
	}
	slices.SortFunc(opens, func(a, b beancount.Open) int {
		return strings.Compare(a.Account, b.Account)
	})
	return opens
}

// FormatOpens renders open directives restricted to the converter's currency.
func (c *Converter) FormatOpens(opens []beancount.Open) string {
	var sb strings.Builder
	for _, o := range opens {
		sb.WriteString(fmt.Sprintf("%s open %s %s\n", o.Date, o.Account, c.currency))
	}
	return sb.String()
}

// Balance returns the sum of all posting amounts; zero for a balanced transaction.
func Balance(txn beancount.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range txn.Postings {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// Helper functions

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func buildTags(reference string) []string {
	tag := sanitizeTag(reference)
	if tag == "" {
		return nil
	}
	return []string{tag}
}

func sanitizeTag(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '/', r == '.':
			return r
		}
		return -1
	}, s)
}
