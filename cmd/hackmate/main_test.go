package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hackmate/hackmate/pkg/providers"
	"github.com/hackmate/hackmate/pkg/runtime"
	"github.com/hackmate/hackmate/pkg/schema"
	"github.com/hackmate/hackmate/pkg/steps"
	"github.com/hackmate/hackmate/pkg/workspace"
)

type fakeExecutor struct{ commands []string }

func (f *fakeExecutor) Execute(ctx context.Context, req *providers.CommandRequest) (*providers.CommandResult, error) {
	f.commands = append(f.commands, req.Command)
	return &providers.CommandResult{Stdout: []byte("ok")}, nil
}

// runCLI executes the root command with args against a fake executor and an
// isolated configuration.
func runCLI(t *testing.T, args ...string) (string, *fakeExecutor, error) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HACKMATE_HOME", home)
	t.Setenv("HACKMATE_CONFIG", filepath.Join(home, "none.yaml"))
	t.Setenv("HACKMATE_WORKSPACE_DIR", filepath.Join(home, "workspaces"))

	exe := &fakeExecutor{}
	executor = exe
	resetFlags(rootCmd)
	t.Cleanup(func() {
		executor = nil
		resetFlags(rootCmd)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), exe, err
}

// resetFlags restores every flag in the command tree to its default so a
// value set by one invocation never leaks into the next.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func writeFlow(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const testFlow = `name: Quick Recon
steps:
  - recon_subdomains
  - scan_nmap: {fast: true}
`

func TestFlowRunRequiresScope(t *testing.T) {
	out, exe, err := runCLI(t, "flow", "run", writeFlow(t, testFlow), "example.com")
	if !errors.Is(err, runtime.ErrScopeNotConfirmed) {
		t.Fatalf("err = %v, want ErrScopeNotConfirmed", err)
	}
	if len(exe.commands) != 0 {
		t.Errorf("spawned %v without scope confirmation", exe.commands)
	}
	if _, statErr := os.Stat(filepath.Join(os.Getenv("HACKMATE_WORKSPACE_DIR"), "example.com")); statErr == nil {
		t.Error("workspace should not be created")
	}
	if strings.Contains(out, "Step 1/") {
		t.Errorf("no step should be reported:\n%s", out)
	}
}

func TestFlowRunChecksScopeBeforeParsing(t *testing.T) {
	_, _, err := runCLI(t, "flow", "run", writeFlow(t, "name: broken\n"), "example.com")
	if !errors.Is(err, runtime.ErrScopeNotConfirmed) {
		t.Fatalf("err = %v, want ErrScopeNotConfirmed", err)
	}
}

func TestFlowRunGatesIntrusiveSteps(t *testing.T) {
	out, exe, err := runCLI(t, "flow", "run", writeFlow(t, testFlow), "example.com", "--confirm-scope")
	if err != nil {
		t.Fatal(err)
	}
	if len(exe.commands) != 1 || exe.commands[0] != "subfinder" {
		t.Errorf("commands = %v, want [subfinder]", exe.commands)
	}
	for _, want := range []string{"Starting flow Quick Recon for example.com", "Step 1/2: recon_subdomains", "Step 2/2: scan_nmap", "Blocked by safety gate", "Summary: Quick Recon"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFlowRunTUIFallsBackWithoutTerminal(t *testing.T) {
	out, exe, err := runCLI(t, "flow", "run", writeFlow(t, testFlow), "example.com", "--confirm-scope", "--tui")
	if err != nil {
		t.Fatal(err)
	}
	if len(exe.commands) != 1 || !strings.Contains(out, "needs a terminal") || !strings.Contains(out, "Summary: Quick Recon") {
		t.Errorf("commands = %v, output:\n%s", exe.commands, out)
	}
}

func TestFlowRunRecordsLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "run.yaml")
	out, _, err := runCLI(t, "flow", "run", writeFlow(t, testFlow), "example.com", "--confirm-scope", "--execute", "--record", logPath)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("run log not written: %v\n%s", err, out)
	}
	if !strings.Contains(string(data), "step: scan_nmap") {
		t.Errorf("run log:\n%s", data)
	}
}

func TestFlowRunReplay(t *testing.T) {
	flow := writeFlow(t, "name: Offline\nsteps:\n  - recon_subdomains\n  - recon_probe\n  - web_cms\n")
	out, exe, err := runCLI(t, "flow", "run", flow, "example.com", "--confirm-scope", "--replay", "../../testdata/scenarios/recon.yaml")
	if err != nil {
		t.Fatalf("err = %v\n%s", err, out)
	}
	if len(exe.commands) != 0 {
		t.Errorf("replay spawned %v", exe.commands)
	}
	for _, want := range []string{"3 steps: 2 succeeded, 1 failed", "exit code 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	data, err := os.ReadFile(filepath.Join(os.Getenv("HACKMATE_WORKSPACE_DIR"), "example.com", steps.SubdomainsFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "api.example.com") {
		t.Errorf("subdomains file = %q", data)
	}
}

func TestFlowsDoNotShareFlagState(t *testing.T) {
	flow := writeFlow(t, "name: Offline\nsteps:\n  - recon_subdomains\n  - recon_probe\n  - web_cms\n")
	if _, _, err := runCLI(t, "flow", "run", flow, "example.com", "--confirm-scope", "--replay", "../../testdata/scenarios/recon.yaml"); err != nil {
		t.Fatal(err)
	}
	_, exe, err := runCLI(t, "step", "recon_subdomains", "example.com", "--confirm-scope")
	if err != nil {
		t.Fatal(err)
	}
	if len(exe.commands) != 1 {
		t.Errorf("commands = %v, want one spawn after a replayed run", exe.commands)
	}
}

func TestFlowValidateMissingFile(t *testing.T) {
	_, _, err := runCLI(t, "flow", "validate", filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, workspace.ErrFilesystem) {
		t.Fatalf("err = %v, want ErrFilesystem", err)
	}
	if errors.Is(err, schema.ErrWorkflowFormat) {
		t.Errorf("missing file reported as a format error: %v", err)
	}
}

func TestFlowValidate(t *testing.T) {
	out, _, err := runCLI(t, "flow", "validate", writeFlow(t, testFlow))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "✓ Quick Recon is valid (2 steps)") {
		t.Errorf("output = %q", out)
	}

	_, _, err = runCLI(t, "flow", "validate", writeFlow(t, "name: x\nsteps:\n  - scan_nmap: {timing: T9}\n"))
	if !errors.Is(err, schema.ErrWorkflowFormat) {
		t.Errorf("err = %v, want ErrWorkflowFormat", err)
	}
}

func TestFlowPlanSpawnsNothing(t *testing.T) {
	out, exe, err := runCLI(t, "flow", "plan", writeFlow(t, testFlow), "example.com", "--raw")
	if err != nil {
		t.Fatal(err)
	}
	if len(exe.commands) != 0 {
		t.Errorf("plan spawned %v", exe.commands)
	}
	if !strings.Contains(out, "# Plan: Quick Recon") || !strings.Contains(out, "subfinder -d example.com") {
		t.Errorf("plan output:\n%s", out)
	}
}

func TestFlowDiagram(t *testing.T) {
	out, _, err := runCLI(t, "flow", "diagram", writeFlow(t, testFlow), "--format", "mermaid")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "s1_recon_subdomains --> s2_scan_nmap") {
		t.Errorf("diagram:\n%s", out)
	}
}

func TestFlowTest(t *testing.T) {
	out, exe, err := runCLI(t, "flow", "test", "../../testdata/flows/recon.yaml")
	if err != nil {
		t.Fatalf("err = %v\n%s", err, out)
	}
	if len(exe.commands) != 0 {
		t.Errorf("flow test spawned %v", exe.commands)
	}
	if !strings.Contains(out, "2 scenarios: 2 passed") {
		t.Errorf("output:\n%s", out)
	}
}

func TestFlowSuggestWithAIDisabled(t *testing.T) {
	out, _, err := runCLI(t, "flow", "suggest", "example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "AI is disabled") {
		t.Errorf("output = %q", out)
	}
}

func TestStepCommand(t *testing.T) {
	out, exe, err := runCLI(t, "step", "recon_subdomains", "example.com", "--confirm-scope")
	if err != nil {
		t.Fatalf("err = %v\n%s", err, out)
	}
	if len(exe.commands) != 1 {
		t.Errorf("commands = %v", exe.commands)
	}

	_, _, err = runCLI(t, "step", "bogus_step", "example.com")
	var unknown *steps.UnknownStepError
	if !errors.As(err, &unknown) {
		t.Errorf("err = %v, want UnknownStepError", err)
	}
}

func TestStepCommandWarnsOnUnknownParam(t *testing.T) {
	out, exe, err := runCLI(t, "step", "recon_subdomains", "example.com", "--confirm-scope", "--param", "verbose=1")
	if err != nil {
		t.Fatalf("err = %v\n%s", err, out)
	}
	if len(exe.commands) != 1 || !strings.Contains(out, `unknown parameter "verbose" ignored`) {
		t.Errorf("commands = %v, output:\n%s", exe.commands, out)
	}
}

func TestVersion(t *testing.T) {
	out, _, err := runCLI(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "hackmate dev") {
		t.Errorf("version = %q", out)
	}
}

func TestParseParamFlags(t *testing.T) {
	tests := []struct {
		in      []string
		want    map[string]any
		wantErr bool
	}{
		{in: nil, want: nil},
		{in: []string{"ports=80,443", "fast = true"}, want: map[string]any{"ports": "80,443", "fast": "true"}},
		{in: []string{"url=https://x/?a=b"}, want: map[string]any{"url": "https://x/?a=b"}},
		{in: []string{"novalue"}, wantErr: true},
		{in: []string{"=x"}, wantErr: true},
		{in: []string{"a=1", "a=2"}, wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseParamFlags(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseParamFlags(%v) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parseParamFlags(%v) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for k, v := range tt.want {
			if got[k] != v {
				t.Errorf("parseParamFlags(%v)[%s] = %v, want %v", tt.in, k, got[k], v)
			}
		}
	}
}
