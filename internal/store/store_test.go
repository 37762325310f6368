package store

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lcierrors "github.com/check-spelling/mozsearch/internal/errors"
)

func writeGzip(t *testing.T, content []byte) string {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "artifact.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestReadCompressedText(t *testing.T) {
	html := "<html><body>héllo</body></html>\n"
	got, err := ReadCompressedText(context.Background(), writeGzip(t, []byte(html)))
	require.NoError(t, err)
	assert.Equal(t, html, got)
}

func TestReadCompressedTextMultiMember(t *testing.T) {
	var buf bytes.Buffer
	for _, part := range []string{"first ", "second"} {
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write([]byte(part))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
	}
	path := filepath.Join(t.TempDir(), "multi.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	got, err := ReadCompressedText(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "first second", got)
}

func TestReadCompressedTextErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadCompressedText(ctx, filepath.Join(t.TempDir(), "nope.gz"))
		require.Error(t, err)
		assert.True(t, lcierrors.IsSticky(err))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("not gzip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plain.gz")
		require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))
		_, err := ReadCompressedText(ctx, path)
		require.Error(t, err)
		assert.True(t, lcierrors.IsSticky(err))
	})

	t.Run("truncated stream", func(t *testing.T) {
		path := writeGzip(t, bytes.Repeat([]byte("abcdefgh"), 1024))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data[:len(data)/2], 0o644))

		_, err = ReadCompressedText(ctx, path)
		require.Error(t, err)
		assert.True(t, lcierrors.IsSticky(err))
	})

	t.Run("invalid utf8", func(t *testing.T) {
		_, err := ReadCompressedText(ctx, writeGzip(t, []byte{0xff, 0xfe}))
		require.Error(t, err)
		var se *lcierrors.ServerError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, lcierrors.LayerData, se.Layer)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := ReadCompressedText(ctx, t.TempDir())
		require.Error(t, err)
		assert.True(t, lcierrors.IsSticky(err))
	})
}

func TestReadCompressedNDJSONRoundTrip(t *testing.T) {
	records := []any{
		map[string]any{"loc": "1:0-3", "target": json.Number("1"), "sym": "_ZN3foo3barEv"},
		map[string]any{"loc": "2:4", "source": json.Number("1"), "syntax": "def,function"},
		[]any{"nested", json.Number("18446744073709551615")},
		"bare string",
	}
	var payload bytes.Buffer
	for _, r := range records {
		line, err := json.Marshal(r)
		require.NoError(t, err)
		payload.Write(line)
		payload.WriteByte('\n')
	}

	got, err := ReadCompressedNDJSON(context.Background(), writeGzip(t, payload.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestReadCompressedNDJSONLineEndings(t *testing.T) {
	ctx := context.Background()

	got, err := ReadCompressedNDJSON(ctx, writeGzip(t, []byte(`{"a":1}`)))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = ReadCompressedNDJSON(ctx, writeGzip(t, []byte("{\"a\":1}\r\n{\"b\":2}\r\n")))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = ReadCompressedNDJSON(ctx, writeGzip(t, nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadCompressedNDJSONMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"bad json", "{\"a\":1}\n{not json}\n"},
		{"blank line", "{\"a\":1}\n\n{\"b\":2}\n"},
		{"two values on one line", "{\"a\":1} {\"b\":2}\n"},
		{"double trailing newline", "{\"a\":1}\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadCompressedNDJSON(context.Background(), writeGzip(t, []byte(tt.payload)))
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, lcierrors.IsSticky(err))

			var se *lcierrors.ServerError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, lcierrors.LayerData, se.Layer)
		})
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := writeGzip(t, []byte("{}\n"))
	_, err := ReadCompressedNDJSON(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = ReadCompressedText(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
