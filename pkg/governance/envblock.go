package governance

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CheckEnvVar validates an environment variable name against the deny patterns.
func (g *Gate) CheckEnvVar(name string) error {
	for _, pattern := range g.denyEnvVars {
		matched, err := filepath.Match(pattern, name)
		if err != nil {
			// Invalid pattern blocks.
			return fmt.Errorf("invalid env var deny pattern %q: %w", pattern, err)
		}
		if matched {
			return fmt.Errorf("environment variable %q matches denied pattern %q", name, pattern)
		}
	}
	return nil
}

// FilterEnvVars returns env with denied variables removed, plus the names
// that were removed. The kept slice is never nil.
func (g *Gate) FilterEnvVars(env []string) (kept, blocked []string) {
	kept = make([]string, 0, len(env))
	if len(g.denyEnvVars) == 0 {
		return append(kept, env...), nil
	}
	for _, e := range env {
		name, _, _ := strings.Cut(e, "=")
		if err := g.CheckEnvVar(name); err != nil {
			blocked = append(blocked, name)
			continue
		}
		kept = append(kept, e)
	}
	return kept, blocked
}
