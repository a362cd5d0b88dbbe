package rules

import (
	"github.com/cloudkucooland/farremote/action"
)

// Rule maps a button to one action
type Rule struct {
	Name   string
	Button string // case sensitive, several rules may share one
	Action action.Action
}

// RuleSet is an ordered, read-only list of rules.
// Order is the document order and is the order rules run in.
type RuleSet struct {
	rules []Rule
	// RemoteID is the identifier used to build templated targets
	RemoteID string
	// Host is the appliance host used to build templated targets
	Host string
}

// NewRuleSet copies rs into a new RuleSet
func NewRuleSet(rs ...Rule) *RuleSet {
	cp := make([]Rule, len(rs))
	copy(cp, rs)
	return &RuleSet{rules: cp}
}

// Len is the number of rules
func (s *RuleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Rules returns a copy of the rules
func (s *RuleSet) Rules() []Rule {
	if s == nil {
		return nil
	}
	cp := make([]Rule, len(s.rules))
	copy(cp, s.rules)
	return cp
}

// Match returns every rule for button, in document order
func (s *RuleSet) Match(button string) []Rule {
	if s == nil {
		return nil
	}
	var out []Rule
	for _, r := range s.rules {
		if r.Button == button {
			out = append(out, r)
		}
	}
	return out
}
