// Package governance implements the safety gate: scope and execution
// confirmation, command allowlist/denylist, operator deny rules, output
// redaction, and environment variable blocking.
package governance

import (
	"fmt"
	"path/filepath"
)

// CommandPolicy holds the allowlist and denylist for executables.
type CommandPolicy struct {
	AllowedCommands []string
	DeniedCommands  []string
}

// CheckCommand validates an executable against the allowlist/denylist.
// Matching uses the base name so /usr/bin/nmap and nmap are the same command.
// Deny takes precedence over allow.
func (p CommandPolicy) CheckCommand(command string) error {
	name := filepath.Base(command)
	for _, denied := range p.DeniedCommands {
		if name == denied || command == denied {
			return fmt.Errorf("command %q is denied by safety policy", name)
		}
	}

	if len(p.AllowedCommands) > 0 {
		for _, allowed := range p.AllowedCommands {
			if name == allowed || command == allowed {
				return nil
			}
		}
		return fmt.Errorf("command %q is not in the safety allowlist", name)
	}

	return nil
}
