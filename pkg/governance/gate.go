package governance

import (
	"fmt"
	"regexp"

	"github.com/hackmate/hackmate/pkg/config"
	"github.com/hackmate/hackmate/pkg/providers"
)

// Reasons reported when a confirmation is missing.
const (
	ReasonScope     = "command requires confirmed scope"
	ReasonIntrusive = "intrusive command requires explicit execution confirmation"
)

// Gate decides whether a command may run. Authorize is pure: it reads only
// its arguments and the policy compiled at construction.
type Gate struct {
	EnforceScope bool
	Commands     CommandPolicy
	Rules        []*DenyRule

	masks       []secretMask
	denyEnvVars []string
}

// NewGate compiles the safety section of cfg. A nil cfg yields the default
// policy: scope enforced, nothing else restricted.
func NewGate(cfg *config.Config) (*Gate, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	s := cfg.Safety
	rules, err := CompileDenyRules(s.DenyRules)
	if err != nil {
		return nil, err
	}
	masks, err := compileSecretMasks(s.Redact)
	if err != nil {
		return nil, err
	}
	return &Gate{
		EnforceScope: s.EnforceScope,
		Commands: CommandPolicy{
			AllowedCommands: s.AllowedCommands,
			DeniedCommands:  s.DeniedCommands,
		},
		Rules:       rules,
		masks:       masks,
		denyEnvVars: s.DenyEnvVars,
	}, nil
}

// ScopeNotice is the advisory attached to every scope-sensitive command.
func ScopeNotice(target string) string {
	return fmt.Sprintf("requires explicit scope confirmation for target %s", target)
}

// Authorize evaluates spec against the confirmations and the policy.
// Checks run in a fixed order and the first denial wins.
func (g *Gate) Authorize(spec providers.CommandSpec, c providers.Confirmation) providers.Decision {
	var d providers.Decision
	if spec.RequiresScope {
		d.Notices = append(d.Notices, ScopeNotice(spec.Target))
		if g.EnforceScope && !c.Scope {
			d.Reason = ReasonScope
			return d
		}
	}
	if spec.Intrusive && !c.Execute {
		d.Reason = ReasonIntrusive
		return d
	}
	if err := g.Commands.CheckCommand(spec.Executable); err != nil {
		d.Reason = err.Error()
		return d
	}
	for _, r := range g.Rules {
		matched, err := r.Match(spec)
		if err != nil {
			d.Reason = err.Error()
			return d
		}
		if matched {
			d.Reason = r.Reason
			return d
		}
	}
	d.Allowed = true
	return d
}

// secretMask hides one kind of secret in tool stderr and error text.
type secretMask struct {
	pattern *regexp.Regexp
	with    string
}

func compileSecretMasks(rules []config.RedactionRule) ([]secretMask, error) {
	masks := make([]secretMask, 0, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("safety.redact[%d]: %w", i, err)
		}
		masks = append(masks, secretMask{pattern: re, with: r.Replace})
	}
	return masks, nil
}

// Redact masks every configured secret pattern in s, in configuration order.
func (g *Gate) Redact(s string) string {
	for _, m := range g.masks {
		s = m.pattern.ReplaceAllString(s, m.with)
	}
	return s
}

var (
	_ providers.Authorizer = (*Gate)(nil)
	_ providers.Redactor   = (*Gate)(nil)
	_ providers.EnvFilter  = (*Gate)(nil)
)
