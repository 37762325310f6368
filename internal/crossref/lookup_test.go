package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lcierrors "github.com/check-spelling/mozsearch/internal/errors"
)

// writeMap writes inline values to crossref and every value whose symbol is
// listed in spill to crossref-extra.
func writeMap(t *testing.T, values map[string]string, spill ...string) (string, string) {
	t.Helper()
	spilled := map[string]bool{}
	for _, s := range spill {
		spilled[s] = true
	}

	symbols := make([]string, 0, len(values))
	for s := range values {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var crossref, extra strings.Builder
	for _, s := range symbols {
		fmt.Fprintf(&crossref, "!%s\n", s)
		if spilled[s] {
			fmt.Fprintf(&crossref, "@%x %x\n", extra.Len(), len(values[s]))
			extra.WriteString(values[s])
			extra.WriteByte('\n')
		} else {
			fmt.Fprintf(&crossref, ":%s\n", values[s])
		}
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "crossref")
	extraPath := filepath.Join(dir, "crossref-extra")
	require.NoError(t, os.WriteFile(path, []byte(crossref.String()), 0o644))
	require.NoError(t, os.WriteFile(extraPath, []byte(extra.String()), 0o644))
	return path, extraPath
}

func openMap(t *testing.T, path, extraPath string) *Map {
	t.Helper()
	m := Open(path, extraPath)
	require.NotNil(t, m)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestLookupInlineAndExtra(t *testing.T) {
	values := map[string]string{
		"_ZN3foo3barEv": `{"sym":"_ZN3foo3barEv","pretty":"foo::bar","uses":[{"path":"a.cpp","lines":[1,2]}]}`,
		"_ZN3foo3bazEv": `{"sym":"_ZN3foo3bazEv","pretty":"foo::baz"}`,
		"T_Alpha":       `{"pretty":"Alpha"}`,
		"T_Beta":        `{"pretty":"Beta","defs":[]}`,
		"#define FOO":   `{"pretty":"FOO"}`,
	}
	xref, extra := writeMap(t, values, "_ZN3foo3barEv", "T_Beta")
	m := openMap(t, xref, extra)
	ctx := context.Background()

	for symbol, raw := range values {
		t.Run(symbol, func(t *testing.T) {
			got, err := m.Lookup(ctx, symbol)
			require.NoError(t, err)

			var want any
			dec := json.NewDecoder(strings.NewReader(raw))
			dec.UseNumber()
			require.NoError(t, dec.Decode(&want))
			assert.Equal(t, want, got)
		})
	}
}

func TestLookupMissingSymbol(t *testing.T) {
	xref, extra := writeMap(t, map[string]string{
		"b": `1`,
		"d": `2`,
	})
	m := openMap(t, xref, extra)
	ctx := context.Background()

	for _, symbol := range []string{"", "a", "bb", "c", "e", "zzzz", "B"} {
		got, err := m.Lookup(ctx, symbol)
		require.NoError(t, err, symbol)
		assert.Nil(t, got, symbol)
	}
}

func TestLookupManyRecords(t *testing.T) {
	values := map[string]string{}
	var spill []string
	for i := 0; i < 500; i++ {
		s := fmt.Sprintf("sym%04d", i)
		values[s] = fmt.Sprintf(`{"n":%d}`, i)
		if i%7 == 0 {
			spill = append(spill, s)
		}
	}
	xref, extra := writeMap(t, values, spill...)
	m := openMap(t, xref, extra)
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		got, err := m.Lookup(ctx, fmt.Sprintf("sym%04d", i))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"n": json.Number(fmt.Sprint(i))}, got)
	}
	got, err := m.Lookup(ctx, "sym0500")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOpenAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crossref")
	extraPath := filepath.Join(dir, "crossref-extra")

	assert.Nil(t, Open(path, extraPath))

	require.NoError(t, os.WriteFile(path, []byte("!a\n:1\n"), 0o644))
	assert.Nil(t, Open(path, extraPath), "crossref without crossref-extra")

	var m *Map
	got, err := m.Lookup(context.Background(), "a")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, m.Close())
}

func TestEmptyMap(t *testing.T) {
	xref, extra := writeMap(t, map[string]string{})
	m := openMap(t, xref, extra)
	got, err := m.Lookup(context.Background(), "anything")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLookupMalformed(t *testing.T) {
	tests := []struct {
		name     string
		crossref string
		extra    string
		symbol   string
	}{
		{"bad inline json", "!a\n:{nope\n", "", "a"},
		{"missing payload", "!a\n", "", "a"},
		{"leading payload", ":1\n!a\n:2\n", "", "a"},
		{"unknown marker", "!a\n?1\n", "", "a"},
		{"extra past end", "!a\n@0 ff\n", "{}", "a"},
		{"extra bad offset", "!a\n@zz 2\n", "{}", "a"},
		{"extra missing length", "!a\n@0\n", "{}", "a"},
		{"trailing data", "!a\n:1 2\n", "", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "crossref")
			extraPath := filepath.Join(dir, "crossref-extra")
			require.NoError(t, os.WriteFile(path, []byte(tt.crossref), 0o644))
			require.NoError(t, os.WriteFile(extraPath, []byte(tt.extra), 0o644))

			m := openMap(t, path, extraPath)
			got, err := m.Lookup(context.Background(), tt.symbol)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, lcierrors.IsSticky(err))
		})
	}
}

func TestLookupCancelled(t *testing.T) {
	xref, extra := writeMap(t, map[string]string{"a": "1"})
	m := openMap(t, xref, extra)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Lookup(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}
