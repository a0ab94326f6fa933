package secrets

import (
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
)

// Allowlist lists values that must never be redacted.
//
// The file format mirrors the [allowlist] table of a .gitleaks.toml:
//
//	[allowlist]
//	description = "example credentials used in test data"
//	regexes = ['''EXAMPLE-[0-9]+''']
//	stopwords = ["changeme"]
type Allowlist struct {
	Description string   `toml:"description"`
	Regexes     []string `toml:"regexes"`
	StopWords   []string `toml:"stopwords"`
}

// LoadAllowlist reads an allowlist file. A missing file yields an empty
// allowlist; invalid TOML or regexes are errors.
func LoadAllowlist(path string) (*Allowlist, error) {
	if path == "" {
		return &Allowlist{}, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Allowlist{}, nil
	}

	var file struct {
		Allowlist Allowlist `toml:"allowlist"`
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, path, err)
	}

	if _, err := file.Allowlist.compile(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &file.Allowlist, nil
}

func (a *Allowlist) compile() ([]*regexp.Regexp, error) {
	if a == nil {
		return nil, nil
	}
	out := make([]*regexp.Regexp, 0, len(a.Regexes))
	for _, pattern := range a.Regexes {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRegex, pattern, err)
		}
		out = append(out, re)
	}
	return out, nil
}
