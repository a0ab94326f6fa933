package secrets

// Result is the outcome of one Scrub call.
type Result struct {
	// Scrubbed is the input with every finding replaced.
	Scrubbed string `json:"scrubbed"`

	// Findings describes what was redacted, without the secret itself.
	Findings []Finding `json:"findings,omitempty"`
}

// Finding represents a redacted secret.
type Finding struct {
	RuleID      string `json:"rule_id"`
	Description string `json:"description"`
	// Source is "gitleaks" or "builtin".
	Source string `json:"source"`
	// Line is 1-indexed.
	Line int `json:"line"`
}

// HasFindings returns true if any secrets were found.
func (r Result) HasFindings() bool {
	return len(r.Findings) > 0
}

// RuleIDs returns the distinct rule IDs in finding order.
func (r Result) RuleIDs() []string {
	seen := make(map[string]bool, len(r.Findings))
	ids := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		if !seen[f.RuleID] {
			seen[f.RuleID] = true
			ids = append(ids, f.RuleID)
		}
	}
	return ids
}
