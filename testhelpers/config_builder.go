package testhelpers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
)

// ConfigBuilder writes a multi-tree configuration file for tests.
//
//	path := testhelpers.NewConfigBuilder().
//		WithTree("mozilla-central", root).
//		MustWrite(t, "config.json")
type ConfigBuilder struct {
	defaultTree string
	trees       map[string]string
}

// NewConfigBuilder creates a builder with no trees.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{trees: make(map[string]string)}
}

// WithTree adds a tree served from indexPath.
func (cb *ConfigBuilder) WithTree(name, indexPath string) *ConfigBuilder {
	cb.trees[name] = indexPath
	return cb
}

// WithDefaultTree sets default_tree.
func (cb *ConfigBuilder) WithDefaultTree(name string) *ConfigBuilder {
	cb.defaultTree = name
	return cb
}

type treeEntry struct {
	IndexPath string `json:"index_path" toml:"index_path"`
}

type configFile struct {
	DefaultTree string               `json:"default_tree,omitempty" toml:"default_tree,omitempty"`
	Trees       map[string]treeEntry `json:"trees" toml:"trees"`
}

// Render returns the configuration in the format named by ext
// (".json", ".toml" or ".kdl").
func (cb *ConfigBuilder) Render(ext string) ([]byte, error) {
	cf := configFile{DefaultTree: cb.defaultTree, Trees: make(map[string]treeEntry)}
	for name, path := range cb.trees {
		cf.Trees[name] = treeEntry{IndexPath: path}
	}

	switch ext {
	case ".json":
		return json.MarshalIndent(cf, "", "  ")
	case ".toml":
		return toml.Marshal(cf)
	case ".kdl":
		names := make([]string, 0, len(cb.trees))
		for name := range cb.trees {
			names = append(names, name)
		}
		sort.Strings(names)

		var sb strings.Builder
		if cb.defaultTree != "" {
			fmt.Fprintf(&sb, "default_tree %q\n", cb.defaultTree)
		}
		for _, name := range names {
			fmt.Fprintf(&sb, "tree %q {\n    index_path %q\n}\n", name, cb.trees[name])
		}
		return []byte(sb.String()), nil
	default:
		return nil, fmt.Errorf("testhelpers: unsupported config format %q", ext)
	}
}

// MustWrite renders the configuration into a fresh temp directory under
// fileName and returns the file's path. The format follows the extension.
func (cb *ConfigBuilder) MustWrite(t testing.TB, fileName string) string {
	t.Helper()
	content, err := cb.Render(filepath.Ext(fileName))
	if err != nil {
		t.Fatalf("failed to render config: %v", err)
	}
	path := filepath.Join(t.TempDir(), fileName)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}
