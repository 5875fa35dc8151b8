package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"example.com", "example.com"},
		{"Example.COM", "example.com"},
		{"https://example.com", "example.com"},
		{"http://example.com/admin", "example.com_admin"},
		{"HTTPS://Example.com:8443/x/y", "example.com_8443_x_y"},
		{"10.0.0.1:22", "10.0.0.1_22"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestResolveSameNormalizedTargetSamePath verifies targets that normalize
// identically share one workspace.
func TestResolveSameNormalizedTargetSamePath(t *testing.T) {
	r := NewResolver(filepath.Join(t.TempDir(), "workspaces"))
	a, err := r.Resolve("https://Example.com")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	b, err := r.Resolve("example.com")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if a != b {
		t.Errorf("paths differ: %q vs %q", a, b)
	}
	info, err := os.Stat(a.String())
	if err != nil || !info.IsDir() {
		t.Fatalf("workspace not created: %v", err)
	}
}

func TestResolveIdempotentKeepsContents(t *testing.T) {
	r := NewResolver(t.TempDir())
	p, err := r.Resolve("example.com")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p.Join("out.txt"), []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	p2, err := r.Resolve("example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !p2.Has("out.txt") {
		t.Error("second Resolve lost existing artifact")
	}
}

func TestResolveConcurrentCallers(t *testing.T) {
	r := NewResolver(filepath.Join(t.TempDir(), "deep", "root"))
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Resolve("example.com"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Resolve: %v", err)
	}
}

func TestResolveFilesystemError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewResolver(blocker)
	_, err := r.Resolve("example.com")
	if !errors.Is(err, ErrFilesystem) {
		t.Fatalf("err = %v, want ErrFilesystem", err)
	}
}

func TestResolveRejectsEmptyTarget(t *testing.T) {
	r := NewResolver(t.TempDir())
	if _, err := r.Resolve("https://"); !errors.Is(err, ErrFilesystem) {
		t.Fatalf("err = %v, want ErrFilesystem", err)
	}
}

func TestArtifactsSortedFilesOnly(t *testing.T) {
	r := NewResolver(t.TempDir())
	p, err := r.Resolve("example.com")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"b.txt", "a.txt"} {
		if err := os.WriteFile(p.Join(name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(p.Join("sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	got, err := p.Artifacts()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "a.txt" || got[1] != "b.txt" {
		t.Errorf("Artifacts() = %v", got)
	}
}
