package secrets

import (
	"fmt"
	"regexp"
)

// Rule is a built-in detection pattern applied alongside Gitleaks.
type Rule struct {
	ID          string
	Description string
	Pattern     string
	// Group selects the submatch to redact; 0 redacts the whole match.
	Group int
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// DefaultRules returns patterns for credentials commonly pasted into
// stories and acceptance criteria that Gitleaks does not flag on its own
// because they lack a vendor prefix.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "database-url",
			Description: "Connection URL with embedded credentials",
			Pattern:     `(?i)(?:postgres(?:ql)?|mysql|mongodb(?:\+srv)?|redis|amqp)://[^\s:/@]+:([^\s@]+)@`,
			Group:       1,
		},
		{
			ID:          "bearer-token",
			Description: "Bearer token in an Authorization header",
			Pattern:     `(?i)bearer\s+([A-Za-z0-9_\-\.=]{20,})`,
			Group:       1,
		},
		{
			ID:          "basic-auth",
			Description: "HTTP Basic credentials",
			Pattern:     `(?i)authorization:\s*basic\s+([A-Za-z0-9+/]{12,}={0,2})`,
			Group:       1,
		},
		{
			ID:          "password-assignment",
			Description: "Password or secret assigned inline",
			Pattern:     `(?i)\b(?:password|passwd|pwd|secret|api[_-]?key|api[_-]?token)\s*[:=]\s*['"]?([^\s'"]{8,})`,
			Group:       1,
		},
		{
			ID:          "private-key",
			Description: "PEM private key block",
			Pattern:     `-----BEGIN (?:RSA |DSA |EC |OPENSSH |PGP )?PRIVATE KEY-----[\s\S]*?-----END (?:RSA |DSA |EC |OPENSSH |PGP )?PRIVATE KEY-----`,
		},
	}
}

func compileRules(rules []Rule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %s: %v", ErrInvalidRegex, r.ID, err)
		}
		if r.Group > re.NumSubexp() {
			return nil, fmt.Errorf("rule %s: group %d out of range", r.ID, r.Group)
		}
		out = append(out, compiledRule{Rule: r, re: re})
	}
	return out, nil
}
