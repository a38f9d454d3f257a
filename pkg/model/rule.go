// Package model defines the bookkeeping data types shared by the classifier,
// the posting engine and the stores.
package model

import (
	"strings"
	"time"
)

// MatchType selects how a rule's match value is compared with a description.
type MatchType string

const (
	MatchContains   MatchType = "CONTAINS"
	MatchStartsWith MatchType = "STARTS_WITH"
	MatchEndsWith   MatchType = "ENDS_WITH"
	MatchEquals     MatchType = "EQUALS"
	MatchRegex      MatchType = "REGEX"
)

// ParseMatchType parses a match type name case-insensitively.
// Hyphens are accepted in place of underscores ("starts-with").
func ParseMatchType(s string) (MatchType, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	switch MatchType(normalized) {
	case MatchContains, MatchStartsWith, MatchEndsWith, MatchEquals, MatchRegex:
		return MatchType(normalized), nil
	}
	return "", Validationf("unknown match type %q", s)
}

// ClassificationRule maps a description pattern to a target account code.
type ClassificationRule struct {
	ID                int64
	TenantID          int64
	Name              string
	MatchType         MatchType
	MatchValue        string
	TargetAccountCode string
	Priority          int
	Active            bool
	Description       string

	// Sequence breaks ties between rules of equal priority (lower first).
	// Stored rules use their ID; rules loaded from a table use file order.
	Sequence int64

	CreatedAt time.Time
	UpdatedAt time.Time
}
