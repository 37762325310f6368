package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "mozsearch_path": "/srv/mozsearch",
  "default_tree": "mozilla-central",
  "trees": {
    "mozilla-central": {
      "index_path": "/srv/index/mozilla-central",
      "files_path": "/srv/src/mozilla-central",
      "git_path": "/srv/git/mozilla-central",
      "objdir_path": "/srv/objdir/mozilla-central",
      "codesearch_path": "ignored"
    },
    "nss": {"index_path": "nss-index"}
  }
}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, []string{"mozilla-central", "nss"}, cfg.TreeNames())

	mc, ok := cfg.Tree("mozilla-central")
	require.True(t, ok)
	assert.Equal(t, "mozilla-central", mc.Name)
	assert.Equal(t, "/srv/index/mozilla-central", mc.IndexPath)
	assert.Equal(t, "/srv/objdir/mozilla-central", mc.ObjdirPath)

	nss, ok := cfg.Tree("nss")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "nss-index"), nss.IndexPath)
	assert.Empty(t, nss.FilesPath)
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "trees.toml", `
default_tree = "mozilla-central"

[trees.mozilla-central]
index_path = "/srv/index/mozilla-central"
files_path = "/srv/src/mozilla-central"

[trees.comm-central]
index_path = "comm"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"comm-central", "mozilla-central"}, cfg.TreeNames())
	assert.Equal(t, "/srv/src/mozilla-central", cfg.Trees["mozilla-central"].FilesPath)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "comm"), cfg.Trees["comm-central"].IndexPath)
}

func TestLoadKDL(t *testing.T) {
	path := writeConfig(t, "trees.kdl", `
tree "mozilla-central" {
    index_path "index/mc"
}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	tree, ok := cfg.Tree("mozilla-central")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "index/mc"), tree.IndexPath)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "config.json"))
		assert.Error(t, err)
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := Load(writeConfig(t, "config.yaml", "trees: {}"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported config format")
	})

	t.Run("bad json", func(t *testing.T) {
		_, err := Load(writeConfig(t, "config.json", "{"))
		assert.Error(t, err)
	})

	t.Run("bad toml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "config.toml", "[trees"))
		assert.Error(t, err)
	})

	t.Run("fails validation", func(t *testing.T) {
		_, err := Load(writeConfig(t, "config.json", `{"trees": {"a": {}}}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "index_path")
	})

	t.Run("null tree", func(t *testing.T) {
		_, err := Load(writeConfig(t, "config.json", `{"trees": {"a": null}}`))
		assert.Error(t, err)
	})
}

func testConfig() *Config {
	cfg := &Config{Trees: map[string]*TreeConfig{
		"mozilla-central": {IndexPath: "/i/mc"},
		"mozilla-beta":    {IndexPath: "/i/mb"},
		"comm-central":    {IndexPath: "/i/cc"},
		"nss":             {IndexPath: "/i/nss"},
	}}
	cfg.finish("")
	return cfg
}

func TestMatchTrees(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		pattern string
		want    []string
	}{
		{"", []string{"comm-central", "mozilla-beta", "mozilla-central", "nss"}},
		{"mozilla-*", []string{"mozilla-beta", "mozilla-central"}},
		{"*-central", []string{"comm-central", "mozilla-central"}},
		{"{nss,comm-central}", []string{"comm-central", "nss"}},
		{"nope", nil},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := cfg.MatchTrees(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := cfg.MatchTrees("[")
	assert.Error(t, err)
}

func TestSuggestTree(t *testing.T) {
	cfg := testConfig()

	assert.Equal(t, "mozilla-central", cfg.SuggestTree("mozilla-centrl"))
	assert.Equal(t, "mozilla-central", cfg.SuggestTree("Mozilla-Central"))
	assert.Equal(t, "nss", cfg.SuggestTree("nsss"))
	assert.Equal(t, "", cfg.SuggestTree("zzzzzzzzzz"))
}

func TestTreeNamesAndLookup(t *testing.T) {
	cfg := testConfig()
	_, ok := cfg.Tree("missing")
	assert.False(t, ok)

	tree, ok := cfg.Tree("nss")
	require.True(t, ok)
	assert.Equal(t, "nss", tree.Name)
}
