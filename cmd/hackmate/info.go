package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hackmate/hackmate/pkg/config"
	"github.com/hackmate/hackmate/pkg/schema"
	"github.com/hackmate/hackmate/pkg/steps"
)

// --- workspace ---

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Inspect per-target workspaces",
}

var workspaceShowCmd = &cobra.Command{
	Use:   "show [target]",
	Short: "Show a target's workspace directory and artifacts",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkspaceShow,
}

func runWorkspaceShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	eng, err := newEngine()
	if err != nil {
		return err
	}
	ws := eng.Resolver.Path(args[0])
	fmt.Fprintf(out, "Workspace: %s\n", ws)
	if _, err := os.Stat(ws.String()); err != nil {
		fmt.Fprintln(out, "  (not created yet)")
		return nil
	}
	files, err := ws.Artifacts()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "  (empty)")
	}
	for _, f := range files {
		fmt.Fprintf(out, "  %s\n", f)
	}
	return nil
}

// --- config ---

var (
	configInit bool
	configPath string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration, or write the default file with --init",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if configInit {
		path := configPath
		if path == "" {
			path = config.HomeConfigPath()
		}
		written, err := config.WriteDefault(path)
		if err != nil {
			return err
		}
		if written {
			fmt.Fprintf(out, "✓ wrote default config to %s\n", path)
		} else {
			fmt.Fprintf(out, "config already exists at %s (left unchanged)\n", path)
		}
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Fprintf(out, "# home:    %s\n# project: %s\n", config.HomeConfigPath(), config.ProjectConfigPath())
	_, err = out.Write(data)
	return err
}

// --- tools ---

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Check which external tools are installed",
	Args:  cobra.NoArgs,
	RunE:  runTools,
}

func runTools(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	width := 0
	for _, k := range steps.Kinds() {
		width = max(width, runewidth.StringWidth(k.Tool()))
	}
	missing := 0
	for _, k := range steps.Kinds() {
		exe := cfg.ToolPath(k.Tool())
		path, err := exec.LookPath(exe)
		status := "✓ " + path
		if err != nil {
			status = "✗ not found (" + exe + ")"
			missing++
		}
		fmt.Fprintf(out, "  %s  %s\n", runewidth.FillRight(k.Tool(), width), status)
	}
	if missing > 0 {
		fmt.Fprintf(out, "\n%d tool(s) missing; steps using them will report tool_not_found.\n", missing)
	}
	return nil
}

// --- steps ---

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List registered workflow steps and their parameters",
	Args:  cobra.NoArgs,
	Run:   runSteps,
}

func runSteps(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	for _, k := range steps.Kinds() {
		var flags []string
		if k.RequiresScope() {
			flags = append(flags, "scope")
		}
		if k.Intrusive() {
			flags = append(flags, "intrusive")
		}
		fmt.Fprintf(out, "%s (%s) %s\n", k, k.Tool(), k.Summary())
		if len(flags) > 0 {
			fmt.Fprintf(out, "  requires: %s\n", strings.Join(flags, ", "))
		}
		fmt.Fprintf(out, "  writes: %s\n", k.Artifact())
		for _, p := range k.Params() {
			line := fmt.Sprintf("  - %s (%s): %s", p.Name, p.Type, p.Description)
			if p.Default != "" {
				line += fmt.Sprintf(" [default %s]", p.Default)
			}
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out)
	}
}

// --- schema ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Workflow JSON Schema",
}

var schemaOut string

var schemaExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the workflow JSON Schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := schema.GenerateJSONSchema()
		if err != nil {
			return err
		}
		if schemaOut == "" {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		}
		if err := os.MkdirAll(filepath.Dir(schemaOut), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(schemaOut, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ schema written to %s\n", schemaOut)
		return nil
	},
}

func init() {
	workspaceCmd.AddCommand(workspaceShowCmd)

	configCmd.Flags().BoolVar(&configInit, "init", false, "Write the default config file if it does not exist")
	configCmd.Flags().StringVar(&configPath, "path", "", "Config file for --init (default $HACKMATE_HOME/config.yaml)")

	schemaExportCmd.Flags().StringVarP(&schemaOut, "out", "o", "", "Write the schema to a file instead of stdout")
	schemaCmd.AddCommand(schemaExportCmd)
}
