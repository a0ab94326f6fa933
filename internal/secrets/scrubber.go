package secrets

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksRegexp "github.com/zricethezav/gitleaks/v8/regexp"

	"github.com/fyrsmithlabs/casegen/internal/config"
)

// Redaction replaces every detected secret.
const Redaction = "[REDACTED]"

const (
	sourceGitleaks = "gitleaks"
	sourceBuiltin  = "builtin"
)

// Scrubber detects and redacts secrets from content.
type Scrubber interface {
	// Scrub redacts secrets from the content.
	Scrub(content string) Result

	// IsEnabled returns whether scrubbing is enabled.
	IsEnabled() bool
}

// scrubber combines Gitleaks with the built-in rules.
type scrubber struct {
	base      gitleaksConfig.Config
	rules     []compiledRule
	allowRes  []*regexp.Regexp
	stopWords []string
}

type span struct {
	start, end int
}

// New creates a Scrubber from the secrets section of the configuration.
// A disabled section yields a NoopScrubber.
func New(cfg config.SecretsConfig) (Scrubber, error) {
	if !cfg.Enabled {
		return NoopScrubber{}, nil
	}

	allow, err := LoadAllowlist(cfg.AllowlistPath)
	if err != nil {
		return nil, err
	}
	return newScrubber(DefaultRules(), allow)
}

func newScrubber(rules []Rule, allow *Allowlist) (*scrubber, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	allowRes, err := allow.compile()
	if err != nil {
		return nil, err
	}

	d, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("loading gitleaks rules: %w", err)
	}
	base := d.Config
	if len(allowRes) > 0 || len(allow.StopWords) > 0 {
		entry := &gitleaksConfig.Allowlist{Description: "casegen allowlist"}
		if allow.Description != "" {
			entry.Description = allow.Description
		}
		for _, re := range allowRes {
			entry.Regexes = append(entry.Regexes, (*gitleaksRegexp.Regexp)(re))
		}
		entry.StopWords = append(entry.StopWords, allow.StopWords...)
		base.Allowlists = append(base.Allowlists, entry)
	}

	stop := make([]string, 0, len(allow.StopWords))
	for _, w := range allow.StopWords {
		stop = append(stop, strings.ToLower(w))
	}

	return &scrubber{
		base:      base,
		rules:     compiled,
		allowRes:  allowRes,
		stopWords: stop,
	}, nil
}

// Scrub redacts secrets from the content. Safe for concurrent use; each
// call scans with its own detector because Gitleaks detectors accumulate
// findings across scans.
func (s *scrubber) Scrub(content string) Result {
	result := Result{Scrubbed: content}
	if content == "" {
		return result
	}

	var spans []span

	detector := detect.NewDetector(s.base)
	for _, f := range detector.DetectString(content) {
		found := occurrences(content, f.Secret)
		if len(found) == 0 {
			continue
		}
		spans = append(spans, found...)
		result.Findings = append(result.Findings, Finding{
			RuleID:      f.RuleID,
			Description: f.Description,
			Source:      sourceGitleaks,
			Line:        lineOf(content, found[0].start),
		})
	}

	for _, rule := range s.rules {
		for _, m := range rule.re.FindAllStringSubmatchIndex(content, -1) {
			start, end := m[2*rule.Group], m[2*rule.Group+1]
			if start < 0 || start == end {
				continue
			}
			if s.isAllowed(content[start:end]) {
				continue
			}
			spans = append(spans, span{start: start, end: end})
			result.Findings = append(result.Findings, Finding{
				RuleID:      rule.ID,
				Description: rule.Description,
				Source:      sourceBuiltin,
				Line:        lineOf(content, start),
			})
		}
	}

	if len(spans) == 0 {
		return result
	}

	var b strings.Builder
	b.Grow(len(content))
	pos := 0
	for _, sp := range mergeSpans(spans) {
		b.WriteString(content[pos:sp.start])
		b.WriteString(Redaction)
		pos = sp.end
	}
	b.WriteString(content[pos:])
	result.Scrubbed = b.String()

	sort.SliceStable(result.Findings, func(i, j int) bool {
		return result.Findings[i].Line < result.Findings[j].Line
	})
	return result
}

// IsEnabled returns true.
func (s *scrubber) IsEnabled() bool {
	return true
}

func (s *scrubber) isAllowed(match string) bool {
	for _, re := range s.allowRes {
		if re.MatchString(match) {
			return true
		}
	}
	lower := strings.ToLower(match)
	for _, w := range s.stopWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func occurrences(content, secret string) []span {
	if secret == "" {
		return nil
	}
	var out []span
	for off := 0; off < len(content); {
		i := strings.Index(content[off:], secret)
		if i < 0 {
			break
		}
		start := off + i
		out = append(out, span{start: start, end: start + len(secret)})
		off = start + len(secret)
	}
	return out
}

func lineOf(content string, offset int) int {
	return strings.Count(content[:offset], "\n") + 1
}

// mergeSpans sorts spans and merges overlapping or adjacent ones.
func mergeSpans(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool {
		return spans[i].start < spans[j].start
	})

	merged := []span{spans[0]}
	for _, curr := range spans[1:] {
		last := &merged[len(merged)-1]
		if curr.start <= last.end {
			if curr.end > last.end {
				last.end = curr.end
			}
			continue
		}
		merged = append(merged, curr)
	}
	return merged
}

// NoopScrubber returns content unchanged.
type NoopScrubber struct{}

// Scrub returns content unchanged.
func (NoopScrubber) Scrub(content string) Result {
	return Result{Scrubbed: content}
}

// IsEnabled returns false.
func (NoopScrubber) IsEnabled() bool {
	return false
}
