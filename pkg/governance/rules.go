package governance

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/hackmate/hackmate/pkg/config"
	"github.com/hackmate/hackmate/pkg/providers"
)

// DenyRule is a compiled operator rule. A command is rejected when the
// expression evaluates to true.
type DenyRule struct {
	Source  string
	Reason  string
	program *vm.Program
}

// ruleEnv is the variable set visible to deny rule expressions.
func ruleEnv(spec providers.CommandSpec) map[string]any {
	args := spec.Args
	if args == nil {
		args = []string{}
	}
	return map[string]any{
		"tool":           spec.Tool,
		"executable":     spec.Executable,
		"step":           spec.Step,
		"target":         spec.Target,
		"intrusive":      spec.Intrusive,
		"requires_scope": spec.RequiresScope,
		"args":           args,
	}
}

// CompileDenyRules compiles the configured deny rules. Each expression must
// be boolean and may only reference the rule variables.
func CompileDenyRules(rules []config.DenyRule) ([]*DenyRule, error) {
	env := ruleEnv(providers.CommandSpec{})
	var compiled []*DenyRule
	for i, r := range rules {
		program, err := expr.Compile(r.When, expr.Env(env), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("safety.deny_rules[%d] %q: %w", i, r.When, err)
		}
		reason := r.Reason
		if reason == "" {
			reason = fmt.Sprintf("denied by rule %q", r.When)
		}
		compiled = append(compiled, &DenyRule{Source: r.When, Reason: reason, program: program})
	}
	return compiled, nil
}

// Match evaluates the rule against spec. Evaluation errors count as a match.
func (r *DenyRule) Match(spec providers.CommandSpec) (bool, error) {
	out, err := expr.Run(r.program, ruleEnv(spec))
	if err != nil {
		return true, fmt.Errorf("eval rule %q: %w", r.Source, err)
	}
	matched, ok := out.(bool)
	if !ok {
		return true, fmt.Errorf("rule %q did not return bool (got %T)", r.Source, out)
	}
	return matched, nil
}
