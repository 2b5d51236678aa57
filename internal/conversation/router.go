// Package conversation turns recognized phrases into commands and
// delivers notifications to the user.
package conversation

import (
	"strings"

	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

// Rule maps a set of keywords to a command. A phrase matches the rule if
// it contains any of the keywords.
type Rule struct {
	Command  domain.Command
	Keywords []string
}

// DefaultRules is the fixed routing table. Order is precedence: the first
// rule with a matching keyword wins, since one phrase may contain several.
var DefaultRules = []Rule{
	{Command: domain.CommandPlay, Keywords: []string{"play"}},
	{Command: domain.CommandContinue, Keywords: []string{"continue"}},
	{Command: domain.CommandRepeat, Keywords: []string{"repeat"}},
	{Command: domain.CommandStartOver, Keywords: []string{"start over"}},
	{Command: domain.CommandStop, Keywords: []string{"stop"}},
}

// Router maps recognized phrases to commands by substring containment
// over an ordered rule table.
type Router struct {
	log   *logger.Logger
	rules []Rule
}

// RouterOption configures the Router.
type RouterOption func(*Router)

// WithRules replaces the routing table. Rules are evaluated in order.
func WithRules(rules ...Rule) RouterOption {
	return func(r *Router) {
		r.rules = rules
	}
}

// NewRouter creates a router using DefaultRules unless overridden.
func NewRouter(log *logger.Logger, opts ...RouterOption) *Router {
	r := &Router{log: log, rules: DefaultRules}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Normalize lower-cases and trims a raw phrase the way Route expects it.
func Normalize(phrase string) string {
	return strings.ToLower(strings.TrimSpace(phrase))
}

// Route returns the command for a phrase, or CommandNone if no rule matches.
func (r *Router) Route(phrase string) domain.Command {
	p := Normalize(phrase)
	if p == "" {
		return domain.CommandNone
	}

	for _, rule := range r.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(p, kw) {
				r.log.Debug("routed %q -> %s (keyword %q)", p, rule.Command, kw)
				return rule.Command
			}
		}
	}

	r.log.Debug("no route for %q", p)
	return domain.CommandNone
}
