// Package testutil provides shared fixtures and assertions for box tests.
package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// GetProjectRoot returns the project root directory by finding go.mod.
func GetProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("failed to get caller information")
	}
	dir := filepath.Dir(filename)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("could not find go.mod file starting from %s", filepath.Dir(filename))
}

// BatchFile mirrors the CLI input document.
type BatchFile struct {
	Boxes1   [][]float64 `yaml:"boxes1,omitempty"`
	Boxes2   [][]float64 `yaml:"boxes2,omitempty"`
	Polygons [][]float64 `yaml:"polygons,omitempty"`
}

// WriteBatchFile stores batch as YAML under a fresh temp dir and returns the path.
func WriteBatchFile(t *testing.T, name string, batch BatchFile) string {
	t.Helper()

	data, err := yaml.Marshal(batch)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}
