// Package identifiers serves prefix lookups over the offline-built
// identifiers file of a tree.
//
// The file is newline-terminated `<id> <symbol>` records sorted by the ASCII
// uppercase form of each line. That ordering is established when the index
// is built and every search here depends on it: an unsorted file gives
// incomplete results, not errors. Validate checks it.
package identifiers

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/check-spelling/mozsearch/internal/debug"
	"github.com/check-spelling/mozsearch/internal/demangle"
	lcierrors "github.com/check-spelling/mozsearch/internal/errors"
	"github.com/check-spelling/mozsearch/internal/mmfile"
)

// Result is one lookup hit. ID is the display id: the demangled symbol when
// demangling changed it, otherwise the id field of the record.
type Result struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
}

// Index is a read-only view of a mapped identifiers file. A missing or
// unmappable file gives an absent Index whose lookups are all empty.
// Lookups may run concurrently; Close must not race with them.
type Index struct {
	path      string
	data      []byte
	release   func() error
	demangler demangle.Demangler
}

// Open maps the identifiers file at path. It never fails: when the mapping
// cannot be established the returned Index is absent.
func Open(path string, demangler demangle.Demangler) *Index {
	if demangler == nil {
		demangler = demangle.Identity
	}
	ix := &Index{path: path, demangler: demangler}

	data, release, err := mmfile.Map(path)
	if err != nil {
		debug.Warn("IDENT", "Failed to mmap %s: %v", path, err)
		return ix
	}
	ix.data = data
	ix.release = release
	debug.LogIdent("mapped %s (%d bytes)\n", path, len(data))

	if debug.IsDebugEnabled() {
		if err := ix.Validate(); err != nil {
			debug.Warn("IDENT", "%v", err)
		}
	}
	return ix
}

// Present reports whether the identifiers file was mapped.
func (ix *Index) Present() bool {
	return ix != nil && ix.data != nil
}

// Path returns the file the index was opened from.
func (ix *Index) Path() string {
	return ix.path
}

// Close releases the mapping. Safe to call more than once.
func (ix *Index) Close() error {
	if ix == nil || ix.release == nil {
		return nil
	}
	err := ix.release()
	ix.release = nil
	ix.data = nil
	return err
}

// Lookup returns up to maxResults records whose id starts with needle, in
// file order. A maxResults of zero means no limit.
//
// Candidates are located case-insensitively; when ignoreCase is false they
// must also start with needle byte for byte. A candidate is rejected when the
// part of its id after needle contains ':' or '.', since that names a deeper
// scope than the one asked for, and when exactMatch is set and anything
// follows needle at all.
//
// A record without a symbol field in the scanned range fails the whole
// lookup with a sticky error.
func (ix *Index) Lookup(needle string, exactMatch, ignoreCase bool, maxResults int) ([]Result, error) {
	if !ix.Present() {
		return nil, nil
	}

	start := ix.bisect([]byte(needle), false)
	end := ix.bisect([]byte(needle), true)
	debug.LogIdent("lookup %q range [%d, %d)\n", needle, start, end)
	if end <= start {
		return nil, nil
	}

	var results []Result
	offset := start
	rest := ix.data[start:end]
	for len(rest) > 0 {
		line, tail, _ := bytes.Cut(rest, []byte{'\n'})
		lineOffset := offset
		offset += len(line) + 1
		rest = tail
		line = bytes.TrimSuffix(line, []byte{'\r'})

		idField, remainder, ok := bytes.Cut(line, []byte{' '})
		if !ok {
			return nil, lcierrors.NewDataError("lookup", ix.path,
				fmt.Errorf("malformed identifier record at offset %d: %q", lineOffset, line))
		}
		symbolField, _, _ := bytes.Cut(remainder, []byte{' '})

		id := string(idField)
		if len(id) < len(needle) {
			// Only possible when needle itself spans the separator.
			continue
		}
		suffix := id[len(needle):]
		if strings.ContainsAny(suffix, ":.") || (exactMatch && suffix != "") {
			continue
		}
		if !ignoreCase && !strings.HasPrefix(id, needle) {
			continue
		}

		symbol := string(symbolField)
		if demangled := ix.demangler.Demangle(symbol); demangled != symbol {
			id = demangled
		}

		results = append(results, Result{ID: id, Symbol: symbol})
		if len(results) == maxResults {
			break
		}
	}
	return results, nil
}

// Stats describes the mapped file.
type Stats struct {
	Path    string `json:"path"`
	Present bool   `json:"present"`
	Bytes   int    `json:"bytes"`
	Records int    `json:"records"`
	Digest  string `json:"digest,omitempty"`
}

// Stats reports size, record count and an xxhash digest of the mapped bytes,
// so replicas serving the same tree can be compared.
func (ix *Index) Stats() Stats {
	st := Stats{Path: ix.path}
	if !ix.Present() {
		return st
	}
	st.Present = true
	st.Bytes = len(ix.data)
	st.Records = bytes.Count(ix.data, []byte{'\n'})
	if len(ix.data) > 0 && ix.data[len(ix.data)-1] != '\n' {
		st.Records++
	}
	st.Digest = fmt.Sprintf("%016x", xxhash.Sum64(ix.data))
	return st
}

// Validate walks the whole file and checks that every record has an id and a
// symbol and that records are sorted by their uppercase form.
func (ix *Index) Validate() error {
	if !ix.Present() {
		return nil
	}
	var prev []byte
	lineNo := 0
	rest := ix.data
	for len(rest) > 0 {
		line, tail, _ := bytes.Cut(rest, []byte{'\n'})
		rest = tail
		lineNo++
		line = bytes.TrimSuffix(line, []byte{'\r'})

		id, symbol, ok := bytes.Cut(line, []byte{' '})
		if !ok || len(id) == 0 || len(symbol) == 0 {
			return fmt.Errorf("%s:%d: malformed identifier record %q", ix.path, lineNo, line)
		}
		if prev != nil && compareUpper(prev, uppercase(line)) > 0 {
			return fmt.Errorf("%s:%d: record %q sorts before the previous record %q", ix.path, lineNo, line, prev)
		}
		prev = line
	}
	return nil
}
