// Package intent assigns a coarse label to a user query with ordered keyword
// rules. Classification is pure string matching so it never blocks a request
// on network calls.
package intent

import "strings"

// Unknown is returned when no rule matches.
const Unknown = "unknown"

// Rule maps an intent label to the keywords that trigger it. A rule matches
// when any keyword appears as a substring of the lower-cased query.
type Rule struct {
	Intent   string
	Keywords []string
}

// DefaultRules is the classifier's fixed rule set. Order matters: earlier
// rules win on ambiguous text, so greeting checks precede the product rules
// and billing precedes account (queries like "change my billing address"
// should land on billing).
func DefaultRules() []Rule {
	return []Rule{
		{Intent: "greeting", Keywords: []string{"hello", "hi there", "good morning", "good afternoon", "hey"}},
		{Intent: "farewell", Keywords: []string{"goodbye", "bye", "see you", "thanks, that's all"}},
		{Intent: "billing", Keywords: []string{"price", "pricing", "cost", "charge", "invoice", "billing", "payment", "refund", "subscription", "upgrade", "downgrade", "plan"}},
		{Intent: "account", Keywords: []string{"password", "log in", "login", "sign in", "signin", "account", "email address", "delete my", "two-factor", "2fa"}},
		{Intent: "sync", Keywords: []string{"sync", "offline", "conflict", "not saving", "lost my note", "missing note"}},
		{Intent: "sharing", Keywords: []string{"share", "collaborat", "invite", "permission", "public link"}},
		{Intent: "howto", Keywords: []string{"how do i", "how to", "how can i", "shortcut", "keyboard", "markdown", "template", "tag"}},
		{Intent: "support", Keywords: []string{"bug", "broken", "crash", "error", "not working", "doesn't work", "help", "problem", "issue", "slow"}},
	}
}

// Classifier matches text against an ordered rule list.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a classifier over the given rules. The slice is copied
// so callers cannot mutate the rule order afterwards.
func NewClassifier(rules []Rule) *Classifier {
	owned := make([]Rule, len(rules))
	copy(owned, rules)
	return &Classifier{rules: owned}
}

// Classify returns the first matching rule's intent, or Unknown. Matching is
// case-insensitive and deterministic.
func (c *Classifier) Classify(text string) string {
	lowered := strings.ToLower(text)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lowered, kw) {
				return rule.Intent
			}
		}
	}
	return Unknown
}
