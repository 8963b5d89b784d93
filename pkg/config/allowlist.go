package config

import (
	"fmt"

	"github.com/gobwas/glob"
)

// Allowlist matches navigation targets against compiled glob patterns. An
// empty allowlist allows everything.
type Allowlist struct {
	patterns []glob.Glob
	raw      []string
}

// NewAllowlist compiles the patterns. Compilation failures name the broken
// pattern so config mistakes are easy to find.
func NewAllowlist(patterns []string) (*Allowlist, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid url pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, g)
	}
	return &Allowlist{patterns: compiled, raw: patterns}, nil
}

// Allows reports whether the URL may be navigated to.
func (a *Allowlist) Allows(url string) bool {
	if a == nil || len(a.patterns) == 0 {
		return true
	}
	for _, g := range a.patterns {
		if g.Match(url) {
			return true
		}
	}
	return false
}

// Patterns returns the raw pattern list, for diagnostics.
func (a *Allowlist) Patterns() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.raw))
	copy(out, a.raw)
	return out
}
