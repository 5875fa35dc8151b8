package replay

import (
	"bytes"
	"context"
	"testing"

	"github.com/hackmate/hackmate/pkg/providers"
)

func request(argv ...string) *providers.CommandRequest {
	return &providers.CommandRequest{Command: argv[0], Args: argv[1:]}
}

// TestScenarioParsing verifies valid scenario files load correctly.
func TestScenarioParsing(t *testing.T) {
	data := []byte(`
workspace_dir: /tmp/ws
commands:
  - argv: ["subfinder", "-d", "example.com", "-silent"]
    stdout: "www.example.com\n"
    exit_code: 0
  - argv: ["nmap", "-p", "*", "example.com"]
    stderr: "requires root\n"
    exit_code: 1
`)
	s, err := ParseScenario(data)
	if err != nil {
		t.Fatalf("ParseScenario() error: %v", err)
	}
	if len(s.Commands) != 2 {
		t.Errorf("expected 2 commands, got %d", len(s.Commands))
	}
	if s.WorkspaceDir != "/tmp/ws" {
		t.Errorf("workspace_dir = %q", s.WorkspaceDir)
	}
	if s.Commands[1].ExitCode != 1 {
		t.Errorf("exit_code = %d, want 1", s.Commands[1].ExitCode)
	}
}

func TestScenarioParsingRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", `{}`},
		{"invalid yaml", `{{{invalid`},
		{"empty argv", "commands:\n  - stdout: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseScenario([]byte(tt.data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// TestReplayExecutorCommandMatching verifies correct command matching.
func TestReplayExecutorCommandMatching(t *testing.T) {
	s := &Scenario{
		Commands: []ScenarioCommand{
			{Argv: []string{"subfinder", "-d", "example.com"}, Stdout: "www.example.com\n"},
			{Argv: []string{"whatweb", "https://example.com"}, Stdout: "nginx\n"},
		},
	}
	exec := NewReplayExecutor(s)
	ctx := context.Background()

	result, err := exec.Execute(ctx, request("subfinder", "-d", "example.com"))
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if string(result.Stdout) != "www.example.com\n" {
		t.Errorf("stdout = %q", result.Stdout)
	}

	result, err = exec.Execute(ctx, request("whatweb", "https://example.com"))
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if string(result.Stdout) != "nginx\n" {
		t.Errorf("stdout = %q", result.Stdout)
	}
	if exec.Remaining() != 0 {
		t.Errorf("remaining = %d, want 0", exec.Remaining())
	}
}

// TestReplayExecutorFailClosed verifies unknown commands are rejected.
func TestReplayExecutorFailClosed(t *testing.T) {
	exec := NewReplayExecutor(&Scenario{
		Commands: []ScenarioCommand{{Argv: []string{"subfinder", "-d", "example.com"}}},
	})
	if _, err := exec.Execute(context.Background(), request("subfinder", "-d", "other.org")); err == nil {
		t.Fatal("expected error for unmatched command")
	}
	if _, err := exec.Execute(context.Background(), request("subfinder")); err == nil {
		t.Fatal("expected error for argv of a different length")
	}
}

func TestReplayExecutorPlaceholders(t *testing.T) {
	s := &Scenario{
		WorkspaceDir: "/data/ws",
		Commands: []ScenarioCommand{
			{Argv: []string{"httpx", "-l", "{workspace}/example.com/subdomains_raw.txt", "-threads", "*"}, Stdout: "ok\n"},
		},
	}
	exec := NewReplayExecutor(s)
	if _, err := exec.Execute(context.Background(), request("httpx", "-l", "/data/ws/example.com/subdomains_raw.txt", "-threads", "50")); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
}

// TestReplayExecutorNonZeroExit verifies non-zero exit codes are returned.
func TestReplayExecutorNonZeroExit(t *testing.T) {
	exec := NewReplayExecutor(&Scenario{
		Commands: []ScenarioCommand{{Argv: []string{"nmap"}, Stderr: "error\n", ExitCode: 1}},
	})
	result, err := exec.Execute(context.Background(), request("nmap"))
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if result.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", result.ExitCode)
	}
	if string(result.Stderr) != "error\n" {
		t.Errorf("stderr = %q, want %q", result.Stderr, "error\n")
	}
}

// TestReplayExecutorUsedOnce verifies commands are consumed once (ordered matching).
func TestReplayExecutorUsedOnce(t *testing.T) {
	exec := NewReplayExecutor(&Scenario{
		Commands: []ScenarioCommand{
			{Argv: []string{"subfinder"}, Stdout: "first\n"},
			{Argv: []string{"subfinder"}, Stdout: "second\n"},
		},
	})
	ctx := context.Background()
	for _, want := range []string{"first\n", "second\n"} {
		r, err := exec.Execute(ctx, request("subfinder"))
		if err != nil {
			t.Fatalf("Execute() error: %v", err)
		}
		if string(r.Stdout) != want {
			t.Errorf("stdout = %q, want %q", r.Stdout, want)
		}
	}
	if _, err := exec.Execute(ctx, request("subfinder")); err == nil {
		t.Error("a consumed entry must not match again")
	}
}

func TestReplayExecutorWritesRedirectedStdout(t *testing.T) {
	exec := NewReplayExecutor(&Scenario{
		Commands: []ScenarioCommand{{Argv: []string{"subfinder"}, Stdout: "www.example.com\n"}},
	})
	var buf bytes.Buffer
	req := request("subfinder")
	req.Stdout = &buf
	r, err := exec.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if buf.String() != "www.example.com\n" {
		t.Errorf("redirected stdout = %q", buf.String())
	}
	if len(r.Stdout) != 0 {
		t.Errorf("captured stdout = %q, want empty", r.Stdout)
	}
}

func TestReplayExecutorCancelled(t *testing.T) {
	exec := NewReplayExecutor(&Scenario{Commands: []ScenarioCommand{{Argv: []string{"subfinder"}}}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := exec.Execute(ctx, request("subfinder")); err == nil {
		t.Fatal("expected context error")
	}
	if exec.Remaining() != 1 {
		t.Error("a cancelled call must not consume an entry")
	}
}

// TestLoadScenarioFile verifies loading from a test fixture file.
func TestLoadScenarioFile(t *testing.T) {
	s, err := LoadScenario("../../testdata/scenarios/recon.yaml")
	if err != nil {
		t.Fatalf("LoadScenario() error: %v", err)
	}
	if len(s.Commands) != 3 {
		t.Errorf("expected 3 commands, got %d", len(s.Commands))
	}
	if s.Commands[0].Argv[0] != "subfinder" {
		t.Errorf("expected command 'subfinder', got %q", s.Commands[0].Argv[0])
	}
}
