package providers

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX sh")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRealExecutorEcho(t *testing.T) {
	skipWithoutShell(t)
	r := &RealExecutor{}
	result, err := r.Execute(context.Background(), &CommandRequest{Command: "echo", Args: []string{"hello"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := strings.TrimSpace(string(result.Stdout))
	if out != "hello" {
		t.Errorf("stdout = %q, want %q", out, "hello")
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
}

func TestRealExecutorNonZeroExitIsNotAnError(t *testing.T) {
	skipWithoutShell(t)
	r := &RealExecutor{}
	result, err := r.Execute(context.Background(), &CommandRequest{
		Command: "sh",
		Args:    []string{"-c", "echo oops >&2; exit 3"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", result.ExitCode)
	}
	if strings.TrimSpace(string(result.Stderr)) != "oops" {
		t.Errorf("stderr = %q", result.Stderr)
	}
}

func TestRealExecutorStreamsStdoutToWriter(t *testing.T) {
	skipWithoutShell(t)
	path := filepath.Join(t.TempDir(), "out.txt")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	r := &RealExecutor{}
	result, err := r.Execute(context.Background(), &CommandRequest{
		Command: "sh",
		Args:    []string{"-c", "printf abc"},
		Stdout:  f,
	})
	f.Close()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Stdout) != 0 {
		t.Errorf("stdout captured despite redirect: %q", result.Stdout)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "abc" {
		t.Errorf("file = %q, want abc", data)
	}
}

func TestRealExecutorMissingBinary(t *testing.T) {
	r := &RealExecutor{}
	_, err := r.Execute(context.Background(), &CommandRequest{Command: "hackmate-no-such-tool-xyz"})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if !IsExecNotFound(err) {
		t.Errorf("IsExecNotFound(%v) = false", err)
	}
}

func TestIsExecNotFound(t *testing.T) {
	if !IsExecNotFound(exec.ErrNotFound) {
		t.Error("expected ErrNotFound to be detected")
	}
	err := &exec.Error{Name: "bogus", Err: exec.ErrNotFound}
	if !IsExecNotFound(err) {
		t.Error("expected exec.Error wrapping ErrNotFound to be detected")
	}
	if !IsExecNotFound(&fs.PathError{Op: "fork/exec", Path: "/x", Err: fs.ErrPermission}) {
		t.Error("expected permission denied to count as not launchable")
	}
	if IsExecNotFound(errors.New("boom")) {
		t.Error("generic error must not be classified as not found")
	}
	if IsExecNotFound(nil) {
		t.Error("nil is not an error")
	}
}

func TestRealExecutorKillsOnCancel(t *testing.T) {
	skipWithoutShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	r := &RealExecutor{}
	start := time.Now()
	_, _ = r.Execute(ctx, &CommandRequest{Command: "sh", Args: []string{"-c", "sleep 10; echo late"}})
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Execute returned after %s; child was not killed", elapsed)
	}
}
