// Package evidence fingerprints the artifacts a run leaves in a workspace.
package evidence

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// Artifact identifies one file produced by a step.
type Artifact struct {
	Path   string `yaml:"path"   json:"path"`
	SHA256 string `yaml:"sha256" json:"sha256"`
	Size   int64  `yaml:"size"   json:"size"`
}

// NewArtifact hashes the file at path.
func NewArtifact(path string) (*Artifact, error) {
	hash, size, err := HashFile(path)
	if err != nil {
		return nil, fmt.Errorf("hash artifact: %w", err)
	}
	return &Artifact{Path: path, SHA256: hash, Size: size}, nil
}

// HashFile computes SHA256 hash and file size.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), size, nil
}
