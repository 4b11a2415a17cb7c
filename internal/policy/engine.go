package policy

import (
	"fmt"

	"github.com/M3tu20222/tarim/internal/config"
)

// Engine evaluates tool calls against a server profile's rules.
type Engine struct {
	server config.Server
}

// NewEngine creates a policy engine for a server profile.
func NewEngine(server config.Server) *Engine {
	return &Engine{server: server}
}

// Evaluate checks whether a tool call with the given arguments is allowed.
// Rules are evaluated top-down; first match wins. Arguments should already
// carry their schema defaults so omitted parameters are matched too.
func (e *Engine) Evaluate(tool string, arguments map[string]any) Decision {
	for i, rule := range e.server.Rules {
		if rule.Tool != tool {
			continue
		}
		if matchWhen(rule.When, arguments) {
			reason := fmt.Sprintf("matched rule %d", i)
			if !rule.Allow {
				reason = fmt.Sprintf("denied by rule %d", i)
			}
			return Decision{
				Allow:       rule.Allow,
				MatchedRule: i,
				Reason:      reason,
			}
		}
	}

	allow := e.server.Default == "allow"
	return Decision{
		Allow:       allow,
		MatchedRule: -1,
		Reason:      "no matching rule, using default: " + e.server.Default,
	}
}

// Visible reports whether a tool should be advertised in tools/list.
// A tool is hidden when no call to it could ever be allowed: either the
// first rule for it denies unconditionally, or the default is deny and no
// rule allows it.
func (e *Engine) Visible(tool string) bool {
	for _, rule := range e.server.Rules {
		if rule.Tool != tool {
			continue
		}
		if rule.Allow {
			return true
		}
		if len(rule.When) == 0 {
			return false
		}
	}
	return e.server.Default == "allow"
}

// matchWhen checks if all 'when' clauses match the given arguments (AND).
func matchWhen(when map[string]string, arguments map[string]any) bool {
	for key, pattern := range when {
		val, ok := arguments[key]
		if !ok {
			return false
		}
		if !MatchArgument(pattern, val) {
			return false
		}
	}
	return true
}
