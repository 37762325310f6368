// Package store reads the gzip-compressed artifacts the offline indexer writes
// next to an identifier index: rendered HTML documents and NDJSON analysis
// records.
//
// Every call reads and decompresses the whole file. Nothing is cached.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"

	"github.com/check-spelling/mozsearch/internal/debug"
	lcierrors "github.com/check-spelling/mozsearch/internal/errors"
)

const (
	opReadText   = "read_compressed_text"
	opReadNDJSON = "read_compressed_ndjson"
)

// ReadCompressedText returns the decompressed contents of the gzip file at
// path. The contents must be valid UTF-8.
func ReadCompressedText(ctx context.Context, path string) (string, error) {
	raw, err := readCompressed(ctx, opReadText, path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", lcierrors.NewDataError(opReadText, path, errors.New("decompressed content is not valid UTF-8"))
	}
	return string(raw), nil
}

// ReadCompressedNDJSON decompresses the gzip file at path and decodes each
// line as one JSON value. A trailing newline is allowed; any other empty or
// malformed line fails the whole call. Numbers decode as json.Number.
func ReadCompressedNDJSON(ctx context.Context, path string) ([]any, error) {
	raw, err := readCompressed(ctx, opReadNDJSON, path)
	if err != nil {
		return nil, err
	}

	raw = bytes.TrimSuffix(raw, []byte{'\n'})
	if len(raw) == 0 {
		return []any{}, nil
	}

	lines := bytes.Split(raw, []byte{'\n'})
	records := make([]any, 0, len(lines))
	for i, line := range lines {
		record, err := decodeLine(bytes.TrimSuffix(line, []byte{'\r'}))
		if err != nil {
			return nil, lcierrors.NewDataError(opReadNDJSON, path, fmt.Errorf("line %d: %w", i+1, err))
		}
		records = append(records, record)
	}
	debug.LogStore("decoded %d records from %s\n", len(records), path)
	return records, nil
}

func decodeLine(line []byte) (any, error) {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil, errors.New("empty record")
	}
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

// readCompressed reads the file fully, then decompresses it in one pass.
func readCompressed(ctx context.Context, op, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, lcierrors.NewStickyError(op, path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, lcierrors.NewStickyError(op, path, fmt.Errorf("gzip header: %w", err))
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, lcierrors.NewStickyError(op, path, fmt.Errorf("gzip stream: %w", err))
	}
	debug.LogStore("read %s (%d -> %d bytes)\n", path, len(compressed), len(raw))
	return raw, nil
}
