package rules

import (
	"cmp"
	"slices"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
)

// Entry is a rule together with its compiled matcher.
type Entry struct {
	Rule    model.ClassificationRule
	matcher Matcher
}

// Match reports whether the entry's rule matches description.
func (e Entry) Match(description string) bool {
	return e.matcher.Match(description)
}

// Catalog is a set of compiled rules kept in evaluation order:
// priority descending, then Sequence ascending.
//
// Every rule in a catalog has a usable matcher; invalid patterns are rejected
// when the rule is added.
type Catalog struct {
	entries []Entry
	nextSeq int64
}

// NewCatalog compiles rules into a catalog. Rules without a Sequence are
// numbered in the order given.
func NewCatalog(rs []model.ClassificationRule) (*Catalog, error) {
	c := &Catalog{nextSeq: 1}
	for _, r := range rs {
		if err := c.insert(r); err != nil {
			return nil, err
		}
	}
	c.sort()
	return c, nil
}

// Add compiles and inserts a rule. An invalid rule is rejected with a
// validation error and the catalog is left unchanged.
func (c *Catalog) Add(rule model.ClassificationRule) error {
	if err := c.insert(rule); err != nil {
		return err
	}
	c.sort()
	return nil
}

func (c *Catalog) insert(rule model.ClassificationRule) error {
	m, err := Compile(rule)
	if err != nil {
		return err
	}
	if rule.TargetAccountCode == "" {
		return model.Validationf("rule %q has no target account code", rule.Name)
	}
	if rule.Sequence == 0 {
		rule.Sequence = c.nextSeq
	}
	if rule.Sequence >= c.nextSeq {
		c.nextSeq = rule.Sequence + 1
	}
	c.entries = append(c.entries, Entry{Rule: rule, matcher: m})
	return nil
}

func (c *Catalog) sort() {
	slices.SortStableFunc(c.entries, func(a, b Entry) int {
		if a.Rule.Priority != b.Rule.Priority {
			return cmp.Compare(b.Rule.Priority, a.Rule.Priority)
		}
		return cmp.Compare(a.Rule.Sequence, b.Rule.Sequence)
	})
}

// Len returns the number of rules, active or not.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Rules returns all rules in evaluation order.
func (c *Catalog) Rules() []model.ClassificationRule {
	out := make([]model.ClassificationRule, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.Rule)
	}
	return out
}

// Active returns the active entries in evaluation order.
// The returned slice is a copy.
func (c *Catalog) Active() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if e.Rule.Active {
			out = append(out, e)
		}
	}
	return out
}
