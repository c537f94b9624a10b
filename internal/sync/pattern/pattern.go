package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a name filter anchored at the start of the name. A name
// matches when some prefix of it matches one of the expressions, so
// "s\d{5}" accepts "s00003_extra" while "^s\d{5}$" does not.
type Pattern struct {
	exprs []string
	re    *regexp.Regexp
	all   bool
}

func Compile(exprs ...string) (*Pattern, error) {
	var kept []string
	for _, e := range exprs {
		if strings.TrimSpace(e) == "" {
			continue
		}
		if _, err := regexp.Compile(e); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", e, err)
		}
		kept = append(kept, e)
	}
	if len(kept) == 0 {
		return &Pattern{}, nil
	}

	parts := make([]string, len(kept))
	for i, e := range kept {
		parts[i] = "(?:" + e + ")"
	}
	re, err := regexp.Compile("^(?:" + strings.Join(parts, "|") + ")")
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", strings.Join(kept, "|"), err)
	}
	return &Pattern{exprs: kept, re: re}, nil
}

// MustCompile is like Compile but panics on an invalid expression
func MustCompile(exprs ...string) *Pattern {
	p, err := Compile(exprs...)
	if err != nil {
		panic(err)
	}
	return p
}

// MatchAll returns a pattern accepting every name
func MatchAll() *Pattern {
	return &Pattern{all: true}
}

func (p *Pattern) Match(name string) bool {
	if p == nil {
		return false
	}
	if p.all {
		return true
	}
	if p.re == nil {
		return false
	}
	return p.re.MatchString(name)
}

func (p *Pattern) String() string {
	if p == nil {
		return ""
	}
	if p.all {
		return ".*"
	}
	return strings.Join(p.exprs, "|")
}
