package testhelpers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// TreeBuilder writes a fixture index root in the layout the offline indexer
// produces. Every builder writes into its own directory, so tests never share
// state.
//
// Usage:
//
//	root := testhelpers.NewTreeBuilder().
//		AddIdentifier("Foo", "_ZN3FooE").
//		AddAnalysis("src/foo.cpp", map[string]any{"loc": "1:0"}).
//		AddHTML("src/foo.cpp", "<html></html>").
//		AddCrossref("_ZN3FooE", `{"pretty":"Foo"}`).
//		MustBuild(t)
type TreeBuilder struct {
	identifiers []string
	analysis    map[string][][]byte
	html        map[string][]byte
	crossref    map[string]string
	spill       map[string]bool

	skipIdentifiers bool
	skipCrossref    bool
	unsorted        bool
}

// NewTreeBuilder creates an empty builder. With nothing added it still writes
// empty identifiers, crossref and crossref-extra files.
func NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{
		analysis: make(map[string][][]byte),
		html:     make(map[string][]byte),
		crossref: make(map[string]string),
		spill:    make(map[string]bool),
	}
}

// AddIdentifier adds an `<id> <symbol>` record.
func (tb *TreeBuilder) AddIdentifier(id, symbol string) *TreeBuilder {
	tb.identifiers = append(tb.identifiers, id+" "+symbol)
	return tb
}

// AddRawIdentifierLine adds a line verbatim, for corrupt-index tests.
func (tb *TreeBuilder) AddRawIdentifierLine(line string) *TreeBuilder {
	tb.identifiers = append(tb.identifiers, line)
	return tb
}

// AddAnalysis appends records to the analysis artifact of path. Each record is
// marshalled to one NDJSON line.
func (tb *TreeBuilder) AddAnalysis(path string, records ...any) *TreeBuilder {
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			panic(fmt.Sprintf("testhelpers: cannot marshal analysis record %#v: %v", r, err))
		}
		tb.analysis[path] = append(tb.analysis[path], line)
	}
	if _, ok := tb.analysis[path]; !ok {
		tb.analysis[path] = nil
	}
	return tb
}

// AddRawAnalysisLine appends a line verbatim to the analysis artifact of path.
func (tb *TreeBuilder) AddRawAnalysisLine(path, line string) *TreeBuilder {
	tb.analysis[path] = append(tb.analysis[path], []byte(line))
	return tb
}

// AddHTML sets the rendered document of path.
func (tb *TreeBuilder) AddHTML(path, html string) *TreeBuilder {
	tb.html[path] = []byte(html)
	return tb
}

// AddCrossref stores value inline in the crossref file.
func (tb *TreeBuilder) AddCrossref(symbol, value string) *TreeBuilder {
	tb.crossref[symbol] = value
	delete(tb.spill, symbol)
	return tb
}

// AddCrossrefExtra stores value in crossref-extra behind a pointer record.
func (tb *TreeBuilder) AddCrossrefExtra(symbol, value string) *TreeBuilder {
	tb.crossref[symbol] = value
	tb.spill[symbol] = true
	return tb
}

// WithoutIdentifiers leaves the identifiers file out.
func (tb *TreeBuilder) WithoutIdentifiers() *TreeBuilder {
	tb.skipIdentifiers = true
	return tb
}

// WithoutCrossref leaves crossref and crossref-extra out.
func (tb *TreeBuilder) WithoutCrossref() *TreeBuilder {
	tb.skipCrossref = true
	return tb
}

// Unsorted writes identifier records in insertion order.
func (tb *TreeBuilder) Unsorted() *TreeBuilder {
	tb.unsorted = true
	return tb
}

// Build writes the index root into root, creating it if needed.
func (tb *TreeBuilder) Build(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}

	if !tb.skipIdentifiers {
		if err := tb.writeIdentifiers(root); err != nil {
			return err
		}
	}
	if !tb.skipCrossref {
		if err := tb.writeCrossref(root); err != nil {
			return err
		}
	}

	for path, lines := range tb.analysis {
		var payload bytes.Buffer
		for _, line := range lines {
			payload.Write(line)
			payload.WriteByte('\n')
		}
		if err := writeGzipFile(filepath.Join(root, "analysis", path+".gz"), payload.Bytes()); err != nil {
			return err
		}
	}
	for path, html := range tb.html {
		if err := writeGzipFile(filepath.Join(root, "file", path+".gz"), html); err != nil {
			return err
		}
	}
	return nil
}

// MustBuild writes the index root into a fresh temp directory and returns it.
func (tb *TreeBuilder) MustBuild(t testing.TB) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "index")
	if err := tb.Build(root); err != nil {
		t.Fatalf("failed to build fixture tree: %v", err)
	}
	return root
}

func (tb *TreeBuilder) writeIdentifiers(root string) error {
	lines := append([]string(nil), tb.identifiers...)
	if !tb.unsorted {
		sort.SliceStable(lines, func(i, j int) bool {
			return asciiUpper(lines[i]) < asciiUpper(lines[j])
		})
	}
	var content string
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}
	return os.WriteFile(filepath.Join(root, "identifiers"), []byte(content), 0o644)
}

func (tb *TreeBuilder) writeCrossref(root string) error {
	symbols := make([]string, 0, len(tb.crossref))
	for s := range tb.crossref {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var crossref, extra bytes.Buffer
	for _, s := range symbols {
		fmt.Fprintf(&crossref, "!%s\n", s)
		if tb.spill[s] {
			fmt.Fprintf(&crossref, "@%x %x\n", extra.Len(), len(tb.crossref[s]))
			extra.WriteString(tb.crossref[s])
			extra.WriteByte('\n')
		} else {
			fmt.Fprintf(&crossref, ":%s\n", tb.crossref[s])
		}
	}
	if err := os.WriteFile(filepath.Join(root, "crossref"), crossref.Bytes(), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(root, "crossref-extra"), extra.Bytes(), 0o644)
}

func writeGzipFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(content); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func asciiUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'a' <= c && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
