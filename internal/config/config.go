package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hbollon/go-edlib"
	"github.com/pelletier/go-toml/v2"

	"github.com/check-spelling/mozsearch/pkg/pathutil"
)

// MinSuggestionSimilarity is the Jaro-Winkler similarity a configured tree
// name needs before SuggestTree offers it for a misspelled one.
const MinSuggestionSimilarity = 0.8

// Config is a loaded multi-tree configuration. It is immutable once loaded.
type Config struct {
	MozsearchPath string                 `json:"mozsearch_path" toml:"mozsearch_path"`
	ConfigRepo    string                 `json:"config_repo" toml:"config_repo"`
	DefaultTree   string                 `json:"default_tree" toml:"default_tree"`
	Trees         map[string]*TreeConfig `json:"trees" toml:"trees"`

	// Path is the file the configuration was read from.
	Path string `json:"-" toml:"-"`
}

// TreeConfig locates one indexed tree. Only IndexPath is needed to serve it;
// the other paths are carried for tools that read the source checkout.
type TreeConfig struct {
	Name       string `json:"-" toml:"-"`
	IndexPath  string `json:"index_path" toml:"index_path"`
	FilesPath  string `json:"files_path" toml:"files_path"`
	GitPath    string `json:"git_path" toml:"git_path"`
	ObjdirPath string `json:"objdir_path" toml:"objdir_path"`
}

// Load reads a configuration file, choosing the format by extension
// (.json, .kdl or .toml), resolves relative paths against the file's
// directory and validates the result.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg *Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		cfg, err = parseJSON(content)
	case ".kdl":
		cfg, err = parseKDL(string(content))
	case ".toml":
		cfg, err = parseTOML(content)
	default:
		return nil, fmt.Errorf("unsupported config format %q for %s (want .json, .kdl or .toml)", ext, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg.Path = path
	cfg.finish(filepath.Dir(path))

	if err := NewValidator().Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseJSON(content []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse JSON config: %w", err)
	}
	return &cfg, nil
}

func parseTOML(content []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return &cfg, nil
}

// finish fills in tree names and makes relative paths absolute.
func (c *Config) finish(baseDir string) {
	if c.Trees == nil {
		c.Trees = map[string]*TreeConfig{}
	}
	for name, tree := range c.Trees {
		if tree == nil {
			tree = &TreeConfig{}
			c.Trees[name] = tree
		}
		tree.Name = name
		tree.IndexPath = pathutil.ResolveAgainst(tree.IndexPath, baseDir)
		tree.FilesPath = pathutil.ResolveAgainst(tree.FilesPath, baseDir)
		tree.GitPath = pathutil.ResolveAgainst(tree.GitPath, baseDir)
		tree.ObjdirPath = pathutil.ResolveAgainst(tree.ObjdirPath, baseDir)
	}
}

// TreeNames returns the configured tree names in sorted order.
func (c *Config) TreeNames() []string {
	names := make([]string, 0, len(c.Trees))
	for name := range c.Trees {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tree returns the named tree.
func (c *Config) Tree(name string) (*TreeConfig, bool) {
	tree, ok := c.Trees[name]
	return tree, ok
}

// MatchTrees returns the sorted names matching a doublestar glob such as
// "mozilla-*" or "{comm,mozilla}-central". An empty pattern matches all.
func (c *Config) MatchTrees(pattern string) ([]string, error) {
	if pattern == "" {
		return c.TreeNames(), nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid tree pattern %q", pattern)
	}
	var matched []string
	for _, name := range c.TreeNames() {
		if ok, _ := doublestar.Match(pattern, name); ok {
			matched = append(matched, name)
		}
	}
	return matched, nil
}

// SuggestTree returns the configured tree name closest to name, or "" when
// none is similar enough.
func (c *Config) SuggestTree(name string) string {
	best := ""
	var bestScore float32
	for _, candidate := range c.TreeNames() {
		score, err := edlib.StringsSimilarity(strings.ToLower(name), strings.ToLower(candidate), edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if score >= MinSuggestionSimilarity && score > bestScore {
			best, bestScore = candidate, score
		}
	}
	return best
}
