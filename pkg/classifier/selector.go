// Package classifier picks an account code for a bank transaction and resolves
// it to a tenant's account.
package classifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/rules"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/store"
)

// Selector returns the target account code of the first active rule that
// matches a description. It holds an immutable snapshot of the catalog, so
// results depend only on the snapshot and the description.
type Selector struct {
	entries []rules.Entry
}

// NewSelector snapshots the active rules of catalog.
func NewSelector(catalog *rules.Catalog) *Selector {
	return &Selector{entries: catalog.Active()}
}

// LoadSelector builds a selector from the tenant's active stored rules.
// A stored rule that does not compile is logged and left out.
func LoadSelector(ctx context.Context, rs store.RuleStore, tenantID int64, logger *slog.Logger) (*Selector, error) {
	if logger == nil {
		logger = slog.Default()
	}

	stored, err := rs.ListActiveRules(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules for tenant %d: %w", tenantID, err)
	}

	catalog, err := rules.NewCatalog(nil)
	if err != nil {
		return nil, err
	}
	for _, r := range stored {
		if err := catalog.Add(r); err != nil {
			logger.Warn("Skipping unusable rule",
				"tenant_id", tenantID,
				"rule_id", r.ID,
				"rule", r.Name,
				"error", err,
			)
		}
	}

	logger.Debug("Loaded rule catalog", "tenant_id", tenantID, "rules", catalog.Len())
	return NewSelector(catalog), nil
}

// Classify returns the account code for description. ok is false when no
// active rule matches; the transaction then stays unclassified.
func (s *Selector) Classify(description string) (code string, ok bool) {
	rule, ok := s.Explain(description)
	if !ok {
		return "", false
	}
	return rule.TargetAccountCode, true
}

// Explain returns the rule that decides description.
func (s *Selector) Explain(description string) (model.ClassificationRule, bool) {
	for _, e := range s.entries {
		if e.Match(description) {
			return e.Rule, true
		}
	}
	return model.ClassificationRule{}, false
}

// Len returns the number of active rules in the snapshot.
func (s *Selector) Len() int {
	return len(s.entries)
}
