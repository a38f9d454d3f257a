// Package rules evaluates classification rules against transaction descriptions
// and assembles them into a priority-ordered catalog.
package rules

import (
	"regexp"
	"regexp/syntax"
	"strings"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
)

// Matcher reports whether a description satisfies a compiled rule.
type Matcher interface {
	Match(description string) bool
}

type matcherFunc func(string) bool

func (f matcherFunc) Match(description string) bool { return f(description) }

// Compile turns a rule into a Matcher. All comparisons are case-insensitive.
//
// A REGEX rule must match the entire description: the pattern "ABC" does not
// match "xABCx". Authors add wildcards (".*ABC.*") for a contains-style match.
func Compile(rule model.ClassificationRule) (Matcher, error) {
	if rule.MatchValue == "" {
		return nil, model.Validationf("rule %q has an empty match value", rule.Name)
	}

	value := strings.ToLower(rule.MatchValue)

	switch rule.MatchType {
	case model.MatchContains:
		return matcherFunc(func(d string) bool {
			return strings.Contains(strings.ToLower(d), value)
		}), nil
	case model.MatchStartsWith:
		return matcherFunc(func(d string) bool {
			return strings.HasPrefix(strings.ToLower(d), value)
		}), nil
	case model.MatchEndsWith:
		return matcherFunc(func(d string) bool {
			return strings.HasSuffix(strings.ToLower(d), value)
		}), nil
	case model.MatchEquals:
		return matcherFunc(func(d string) bool {
			return strings.EqualFold(d, rule.MatchValue)
		}), nil
	case model.MatchRegex:
		// The pattern must parse on its own; an unbalanced ")" would otherwise
		// close the anchoring group and match partial descriptions.
		if _, err := syntax.Parse(rule.MatchValue, syntax.Perl); err != nil {
			return nil, model.Validationf("rule %q has an invalid pattern %q: %v", rule.Name, rule.MatchValue, err)
		}
		re, err := regexp.Compile(`(?i)^(?:` + rule.MatchValue + `)$`)
		if err != nil {
			return nil, model.Validationf("rule %q has an invalid pattern %q: %v", rule.Name, rule.MatchValue, err)
		}
		return matcherFunc(re.MatchString), nil
	default:
		return nil, model.Validationf("rule %q has unknown match type %q", rule.Name, rule.MatchType)
	}
}

// Matches reports whether description satisfies rule.
// A rule that cannot be compiled never matches.
func Matches(description string, rule model.ClassificationRule) bool {
	m, err := Compile(rule)
	if err != nil {
		return false
	}
	return m.Match(description)
}
