package policy

// Decision is the result of evaluating a tool call.
type Decision struct {
	Allow       bool
	MatchedRule int    // index of the matched rule, -1 if default was used
	Reason      string // human-readable explanation
}

// Verdict renders the decision the way the audit log records it.
func (d Decision) Verdict() string {
	if d.Allow {
		return "allow"
	}
	return "deny"
}
