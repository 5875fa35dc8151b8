package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hackmate/hackmate/pkg/extension"
	"github.com/hackmate/hackmate/pkg/providers"
	"github.com/hackmate/hackmate/pkg/report"
	"github.com/hackmate/hackmate/pkg/steps"
)

var (
	stepParams       []string
	stepConfirmScope bool
	stepExecute      bool
)

var stepCmd = &cobra.Command{
	Use:   "step [name] [target]",
	Short: "Run one registered step against a target",
	Long: "Run one registered step against a target. Parameters are passed as\n" +
		"--param key=value and checked like workflow step parameters.\n" +
		"Run 'hackmate steps' to list step names and their parameters.",
	Args: cobra.ExactArgs(2),
	RunE: runStep,
}

func runStep(cmd *cobra.Command, args []string) error {
	name, target := args[0], args[1]
	raw, err := parseParamFlags(stepParams)
	if err != nil {
		return err
	}
	eng, err := newEngine()
	if err != nil {
		return err
	}
	params, err := eng.Registry.Parse(name, raw)
	if err != nil {
		return err
	}
	ws, err := eng.Resolver.Resolve(target)
	if err != nil {
		return err
	}
	spec, err := eng.Registry.Resolve(params, target, ws)
	if err != nil {
		return err
	}

	console := report.NewConsole(cmd.OutOrStdout())
	ev := extension.StepEvent{Index: 0, Total: 1, Name: name, Spec: &spec}
	for _, k := range steps.UnknownParams(name, raw) {
		ev.Warnings = append(ev.Warnings, fmt.Sprintf("unknown parameter %q ignored", k))
	}
	console.BeforeStep(cmd.Context(), ev)
	res := eng.Runner.Run(cmd.Context(), spec, ws, providers.Confirmation{Scope: stepConfirmScope, Execute: stepExecute})
	ev.Result = &res
	console.AfterStep(cmd.Context(), ev)
	if !res.OK() {
		return fmt.Errorf("step %s: %s", name, res.Kind)
	}
	return nil
}

// parseParamFlags turns repeated key=value flags into a raw parameter map.
// Values stay strings; the step registry converts them to their types.
func parseParamFlags(kvs []string) (map[string]any, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	raw := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --param %q: want key=value", kv)
		}
		if _, dup := raw[k]; dup {
			return nil, fmt.Errorf("--param %s given more than once", k)
		}
		raw[k] = strings.TrimSpace(v)
	}
	return raw, nil
}

func init() {
	stepCmd.Flags().StringArrayVar(&stepParams, "param", nil, "Set a step parameter (key=value), repeatable")
	stepCmd.Flags().BoolVar(&stepConfirmScope, "confirm-scope", false, "Confirm the target is in scope")
	stepCmd.Flags().BoolVar(&stepExecute, "execute", false, "Allow intrusive steps (port scans, brute forcing)")
}
