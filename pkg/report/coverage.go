// Package report builds the classification coverage report.
package report

import (
	"context"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/store"
)

// PeriodCoverage holds the counts for one fiscal period.
type PeriodCoverage struct {
	FiscalPeriodID int64 `yaml:"fiscal_period"`
	Total          int   `yaml:"total"`
	Classified     int   `yaml:"classified"`
	Unclassified   int   `yaml:"unclassified"`
	Posted         int   `yaml:"posted"`
}

// Percent returns the classified share of Total, 0 when there are no transactions.
func (p PeriodCoverage) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Classified) * 100 / float64(p.Total)
}

// Coverage is the report for one tenant.
type Coverage struct {
	TenantID    int64            `yaml:"tenant_id"`
	GeneratedAt time.Time        `yaml:"generated_at"`
	Periods     []PeriodCoverage `yaml:"periods"`
	Totals      PeriodCoverage   `yaml:"totals"`
}

// BuildCoverage counts transactions per fiscal period. A transaction counts as
// posted when journal lines reference it.
func BuildCoverage(ctx context.Context, txns store.TransactionStore, ledger store.LedgerStore, tenantID int64) (*Coverage, error) {
	all, err := txns.ListTransactions(ctx, store.TransactionFilter{TenantID: tenantID})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	entries, err := ledger.ListEntries(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	posted := make(map[int64]bool)
	for _, e := range entries {
		for _, l := range e.Lines {
			if l.SourceTransactionID != nil {
				posted[*l.SourceTransactionID] = true
			}
		}
	}

	byPeriod := make(map[int64]*PeriodCoverage)
	for _, t := range all {
		p, ok := byPeriod[t.FiscalPeriodID]
		if !ok {
			p = &PeriodCoverage{FiscalPeriodID: t.FiscalPeriodID}
			byPeriod[t.FiscalPeriodID] = p
		}
		p.Total++
		if t.IsClassified() {
			p.Classified++
		} else {
			p.Unclassified++
		}
		if posted[t.ID] {
			p.Posted++
		}
	}

	cov := &Coverage{TenantID: tenantID, GeneratedAt: time.Now().UTC()}
	for _, p := range byPeriod {
		cov.Periods = append(cov.Periods, *p)
		cov.Totals.Total += p.Total
		cov.Totals.Classified += p.Classified
		cov.Totals.Unclassified += p.Unclassified
		cov.Totals.Posted += p.Posted
	}
	slices.SortFunc(cov.Periods, func(a, b PeriodCoverage) int {
		switch {
		case a.FiscalPeriodID < b.FiscalPeriodID:
			return -1
		case a.FiscalPeriodID > b.FiscalPeriodID:
			return 1
		}
		return 0
	})
	return cov, nil
}

// WriteText renders cov as an aligned table.
func WriteText(w io.Writer, cov *Coverage) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Period\tTotal\tClassified\tUnclassified\tPosted\tCoverage\t")
	for _, p := range cov.Periods {
		writeRow(tw, fmt.Sprintf("%d", p.FiscalPeriodID), p)
	}
	writeRow(tw, "All", cov.Totals)
	return tw.Flush()
}

func writeRow(w io.Writer, label string, p PeriodCoverage) {
	fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.1f%%\t\n",
		label, p.Total, p.Classified, p.Unclassified, p.Posted, p.Percent())
}

// WriteYAML renders cov as YAML.
func WriteYAML(w io.Writer, cov *Coverage) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cov); err != nil {
		return fmt.Errorf("failed to encode coverage: %w", err)
	}
	return enc.Close()
}
