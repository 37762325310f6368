package identifiers

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/check-spelling/mozsearch/internal/demangle"
	lcierrors "github.com/check-spelling/mozsearch/internal/errors"
)

// writeIdentifiers writes records sorted the way the offline indexer sorts them.
func writeIdentifiers(t *testing.T, records ...string) string {
	t.Helper()
	sorted := append([]string(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return string(uppercase([]byte(sorted[i]))) < string(uppercase([]byte(sorted[j])))
	})
	path := filepath.Join(t.TempDir(), "identifiers")
	var content string
	if len(sorted) > 0 {
		content = strings.Join(sorted, "\n") + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func openIndex(t *testing.T, records ...string) *Index {
	t.Helper()
	ix := Open(writeIdentifiers(t, records...), demangle.Identity)
	require.True(t, ix.Present())
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func ids(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.ID)
	}
	return out
}

func TestOpenMissingFileIsAbsent(t *testing.T) {
	ix := Open(filepath.Join(t.TempDir(), "identifiers"), nil)
	require.NotNil(t, ix)
	assert.False(t, ix.Present())

	for _, needle := range []string{"", "a", "Foo", "zzzz"} {
		results, err := ix.Lookup(needle, false, true, 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	}
	assert.False(t, ix.Stats().Present)
	assert.NoError(t, ix.Validate())
	assert.NoError(t, ix.Close())
}

func TestEmptyFile(t *testing.T) {
	ix := openIndex(t)
	results, err := ix.Lookup("foo", false, true, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCaseSensitivity(t *testing.T) {
	ix := openIndex(t, "ABC x", "abc y")

	results, err := ix.Lookup("abc", false, false, 10)
	require.NoError(t, err)
	assert.Equal(t, []Result{{ID: "abc", Symbol: "y"}}, results)

	results, err = ix.Lookup("abc", false, true, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Result{{ID: "ABC", Symbol: "x"}, {ID: "abc", Symbol: "y"}}, results)

	results, err = ix.Lookup("ABC", false, false, 10)
	require.NoError(t, err)
	assert.Equal(t, []Result{{ID: "ABC", Symbol: "x"}}, results)
}

func TestSuffixRejection(t *testing.T) {
	ix := openIndex(t,
		"foo _foo",
		"foo.bar _foo_dot_bar",
		"foo:bar _foo_colon_bar",
		"foo::baz _foo_scope_baz",
		"foobar _foobar",
	)

	results, err := ix.Lookup("foo", false, false, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "foobar"}, ids(results))

	results, err = ix.Lookup("foo", true, false, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo"}, ids(results))

	// The scoped ids still match a query that names them.
	results, err = ix.Lookup("foo.bar", true, false, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo.bar"}, ids(results))

	results, err = ix.Lookup("foo::", false, false, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo::baz"}, ids(results))
}

func TestResultCap(t *testing.T) {
	var records []string
	for _, id := range []string{"item0", "item1", "item2", "item3", "item4", "item5"} {
		records = append(records, id+" sym_"+id)
	}
	ix := openIndex(t, records...)

	results, err := ix.Lookup("item", false, true, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"item0", "item1", "item2"}, ids(results))

	results, err = ix.Lookup("item", false, true, 100)
	require.NoError(t, err)
	assert.Len(t, results, 6)

	// Zero means no limit.
	results, err = ix.Lookup("item", false, true, 0)
	require.NoError(t, err)
	assert.Len(t, results, 6)
}

func TestNeedleLongerThanRecords(t *testing.T) {
	ix := openIndex(t, "a x", "b y")
	results, err := ix.Lookup("zzzzzzzzzzzzzzzzzzzzzz", false, true, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, len(ix.data), ix.bisect([]byte("zzzzzzzzzzzzzzzzzzzzzz"), false))
}

func TestNeedleSpanningSeparator(t *testing.T) {
	ix := openIndex(t, "FOO bar")
	results, err := ix.Lookup("foo b", false, true, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDemangledSymbolReplacesDisplayID(t *testing.T) {
	d := demangle.Func(func(s string) string {
		if s == "_ZN3foo3barEv" {
			return "foo::bar"
		}
		return s
	})
	ix := Open(writeIdentifiers(t, "bar _ZN3foo3barEv", "barn plain"), d)
	defer ix.Close()

	results, err := ix.Lookup("bar", false, false, 10)
	require.NoError(t, err)
	assert.Equal(t, []Result{
		{ID: "foo::bar", Symbol: "_ZN3foo3barEv"},
		{ID: "barn", Symbol: "plain"},
	}, results)
}

func TestMalformedRecordFailsLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identifiers")
	require.NoError(t, os.WriteFile(path, []byte("FOO foo\nFOOBAR\nFOOD food\n"), 0o644))
	ix := Open(path, demangle.Identity)
	defer ix.Close()

	results, err := ix.Lookup("foo", false, true, 10)
	require.Error(t, err)
	assert.Nil(t, results)
	assert.True(t, lcierrors.IsSticky(err))

	// Lookups that do not touch the bad record are unaffected.
	results, err = ix.Lookup("food", true, true, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"FOOD"}, ids(results))
}

func TestExtraFieldsIgnored(t *testing.T) {
	ix := openIndex(t, "foo sym extra fields")
	results, err := ix.Lookup("foo", true, false, 10)
	require.NoError(t, err)
	assert.Equal(t, []Result{{ID: "foo", Symbol: "sym"}}, results)
}

func TestCRLFRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identifiers")
	require.NoError(t, os.WriteFile(path, []byte("FOO foo\r\nGOO goo\r\n"), 0o644))
	ix := Open(path, demangle.Identity)
	defer ix.Close()

	results, err := ix.Lookup("FOO", true, false, 10)
	require.NoError(t, err)
	assert.Equal(t, []Result{{ID: "FOO", Symbol: "foo"}}, results)
}

func TestStats(t *testing.T) {
	ix := openIndex(t, "a x", "b y", "c z")
	st := ix.Stats()
	assert.True(t, st.Present)
	assert.Equal(t, 3, st.Records)
	assert.Equal(t, len("a x\nb y\nc z\n"), st.Bytes)
	assert.Len(t, st.Digest, 16)

	other := openIndex(t, "a x", "b y", "c q")
	assert.NotEqual(t, st.Digest, other.Stats().Digest)
}

func TestValidate(t *testing.T) {
	ix := openIndex(t, "Alpha a", "beta b", "GAMMA g")
	assert.NoError(t, ix.Validate())

	path := filepath.Join(t.TempDir(), "identifiers")
	require.NoError(t, os.WriteFile(path, []byte("beta b\nAlpha a\n"), 0o644))
	unsorted := Open(path, nil)
	defer unsorted.Close()
	err := unsorted.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":2:")

	require.NoError(t, os.WriteFile(path, []byte("alpha\n"), 0o644))
	broken := Open(path, nil)
	defer broken.Close()
	assert.Error(t, broken.Validate())
}

func TestCloseIsIdempotent(t *testing.T) {
	ix := Open(writeIdentifiers(t, "a x"), nil)
	require.NoError(t, ix.Close())
	require.NoError(t, ix.Close())
	assert.False(t, ix.Present())

	results, err := ix.Lookup("a", false, true, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
