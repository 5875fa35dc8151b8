// Package workspace maps targets to per-target artifact directories.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrFilesystem marks failures to create or read a workspace directory or
// to read a workflow file. It is fatal to a workflow run.
var ErrFilesystem = errors.New("filesystem error")

// Path is an existing per-target workspace directory.
type Path string

// String returns the directory path.
func (p Path) String() string { return string(p) }

// Join returns the path of an artifact inside the workspace.
func (p Path) Join(name string) string {
	return filepath.Join(string(p), name)
}

// Artifacts lists the regular files in the workspace, sorted by name.
func (p Path) Artifacts() ([]string, error) {
	entries, err := os.ReadDir(string(p))
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrFilesystem, p, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Has reports whether an artifact exists in the workspace.
func (p Path) Has(name string) bool {
	info, err := os.Stat(p.Join(name))
	return err == nil && info.Mode().IsRegular()
}

// Resolver creates workspaces under Root.
type Resolver struct {
	Root string
}

// NewResolver creates a Resolver rooted at root.
func NewResolver(root string) *Resolver {
	return &Resolver{Root: root}
}

// Normalize converts a target into a directory name: lower-cased, a leading
// http:// or https:// removed, and '/' and ':' replaced with '_'.
// The target is not validated as a hostname.
func Normalize(target string) string {
	t := strings.ToLower(target)
	t = strings.TrimPrefix(t, "http://")
	t = strings.TrimPrefix(t, "https://")
	return strings.NewReplacer("/", "_", ":", "_").Replace(t)
}

// Path returns the workspace path for target without touching the filesystem.
func (r *Resolver) Path(target string) Path {
	return Path(filepath.Join(r.Root, Normalize(target)))
}

// Resolve returns the workspace for target, creating it and any missing
// parents. Repeated calls are idempotent and safe from multiple goroutines.
func (r *Resolver) Resolve(target string) (Path, error) {
	name := Normalize(target)
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("%w: target %q normalizes to an unusable directory name", ErrFilesystem, target)
	}
	p := r.Path(target)
	if err := os.MkdirAll(string(p), 0o755); err != nil {
		return "", fmt.Errorf("%w: create %s: %v", ErrFilesystem, p, err)
	}
	return p, nil
}
