// Package crossref looks up symbol cross-reference records written by the
// offline indexer.
//
// The crossref file holds two-line records sorted by symbol bytes:
//
//	!<symbol>
//	:<inline JSON>
//
// or, for values too large to keep inline,
//
//	!<symbol>
//	@<hex offset> <hex length>
//
// where the second form points at a JSON value stored in crossref-extra.
package crossref

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/check-spelling/mozsearch/internal/debug"
	lcierrors "github.com/check-spelling/mozsearch/internal/errors"
	"github.com/check-spelling/mozsearch/internal/mmfile"
)

const opLookup = "crossref_lookup"

const (
	symbolMarker = '!'
	inlineMarker = ':'
	extraMarker  = '@'
)

// Map is a mapped crossref/crossref-extra pair. Lookups may run concurrently.
type Map struct {
	path      string
	extraPath string

	data  []byte
	extra []byte

	releases []func() error
}

// Open maps both files. When either one cannot be mapped the tree has no
// cross-reference data and Open returns nil.
func Open(path, extraPath string) *Map {
	data, release, err := mmfile.Map(path)
	if err != nil {
		debug.Warn("CROSSREF", "No crossref map for %s: %v", path, err)
		return nil
	}
	extra, releaseExtra, err := mmfile.Map(extraPath)
	if err != nil {
		_ = release()
		debug.Warn("CROSSREF", "No crossref map for %s: %v", extraPath, err)
		return nil
	}
	debug.Log("CROSSREF", "mapped %s (%d bytes) and %s (%d bytes)\n", path, len(data), extraPath, len(extra))
	return &Map{
		path:      path,
		extraPath: extraPath,
		data:      data,
		extra:     extra,
		releases:  []func() error{release, releaseExtra},
	}
}

// Close releases both mappings.
func (m *Map) Close() error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, release := range m.releases {
		errs = append(errs, release())
	}
	m.releases = nil
	m.data, m.extra = nil, nil
	return lcierrors.NewMultiError(errs).ErrorOrNil()
}

// Lookup returns the decoded cross-reference value for symbol, or nil when the
// symbol has no record. A nil Map has no records.
func (m *Map) Lookup(ctx context.Context, symbol string) (any, error) {
	if m == nil || len(m.data) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	needle := []byte(symbol)
	lo, hi := 0, len(m.data)
	for lo < hi {
		mid := lo + (hi-lo)/2
		rec, err := m.recordAt(mid)
		if err != nil {
			return nil, err
		}
		if bytes.Compare(rec.symbol, needle) < 0 {
			lo = rec.end
		} else {
			hi = rec.start
		}
	}
	if lo >= len(m.data) {
		return nil, nil
	}

	rec, err := m.recordAt(lo)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(rec.symbol, needle) {
		return nil, nil
	}
	return m.decode(rec)
}

type record struct {
	start, end int
	symbol     []byte
	payload    []byte
}

// lineAt returns the bounds of the line containing pos, excluding the newline.
func (m *Map) lineAt(pos int) (start, end int) {
	start = bytes.LastIndexByte(m.data[:pos], '\n') + 1
	end = len(m.data)
	if i := bytes.IndexByte(m.data[pos:], '\n'); i >= 0 {
		end = pos + i
	}
	return start, end
}

// recordAt returns the record whose header or payload line contains pos.
func (m *Map) recordAt(pos int) (record, error) {
	start, end := m.lineAt(pos)
	if m.data[start] != symbolMarker {
		if start == 0 {
			return record{}, m.malformed(start, "payload line without a symbol line")
		}
		start, end = m.lineAt(start - 1)
	}
	if start == end || m.data[start] != symbolMarker {
		return record{}, m.malformed(start, "expected a symbol line")
	}
	if end >= len(m.data) {
		return record{}, m.malformed(start, "symbol line without a payload line")
	}
	payloadStart, payloadEnd := m.lineAt(end + 1)
	if payloadStart == payloadEnd {
		return record{}, m.malformed(payloadStart, "empty payload line")
	}

	next := payloadEnd
	if next < len(m.data) {
		next++
	}
	return record{
		start:   start,
		end:     next,
		symbol:  m.data[start+1 : end],
		payload: m.data[payloadStart:payloadEnd],
	}, nil
}

func (m *Map) decode(rec record) (any, error) {
	switch rec.payload[0] {
	case inlineMarker:
		return m.decodeJSON(m.path, rec.payload[1:])
	case extraMarker:
		offStr, lenStr, ok := bytes.Cut(rec.payload[1:], []byte{' '})
		if !ok {
			return nil, m.malformed(rec.start, "extra pointer needs an offset and a length")
		}
		off, err := strconv.ParseUint(string(offStr), 16, 63)
		if err != nil {
			return nil, m.malformed(rec.start, "bad extra offset: "+err.Error())
		}
		n, err := strconv.ParseUint(string(lenStr), 16, 63)
		if err != nil {
			return nil, m.malformed(rec.start, "bad extra length: "+err.Error())
		}
		if off > uint64(len(m.extra)) || n > uint64(len(m.extra))-off {
			return nil, lcierrors.NewDataError(opLookup, m.extraPath,
				fmt.Errorf("range %#x+%#x past end of file (%d bytes)", off, n, len(m.extra)))
		}
		return m.decodeJSON(m.extraPath, m.extra[off:off+n])
	default:
		return nil, m.malformed(rec.start, fmt.Sprintf("unknown payload marker %q", rec.payload[0]))
	}
}

func (m *Map) decodeJSON(path string, raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, lcierrors.NewDataError(opLookup, path, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, lcierrors.NewDataError(opLookup, path, errors.New("trailing data after JSON value"))
	}
	return v, nil
}

func (m *Map) malformed(offset int, msg string) error {
	return lcierrors.NewDataError(opLookup, m.path, fmt.Errorf("malformed record at offset %d: %s", offset, msg))
}
