// Package pathutil maps tree-relative logical paths to the artifacts the
// offline indexer writes under an index root, and converts between absolute
// and relative paths for display.
//
// Layout under an index root:
//
//	identifiers              sorted `<id> <symbol>` records
//	crossref, crossref-extra symbol cross-reference map
//	analysis/<path>.gz       gzip NDJSON analysis records
//	file/<path>.gz           gzip rendered HTML
//
// The artifact functions are plain string formatting. They do not clean,
// validate or touch the file system.
package pathutil

import (
	"path/filepath"
	"strings"
)

const (
	analysisDir       = "/analysis/"
	fileDir           = "/file/"
	compressedSuffix  = ".gz"
	identifiersFile   = "/identifiers"
	crossrefFile      = "/crossref"
	crossrefExtraFile = "/crossref-extra"
)

// AnalysisPath returns <root>/analysis/<logical>.gz.
func AnalysisPath(root, logical string) string {
	return root + analysisDir + logical + compressedSuffix
}

// HTMLPath returns <root>/file/<logical>.gz.
func HTMLPath(root, logical string) string {
	return root + fileDir + logical + compressedSuffix
}

// IdentifiersPath returns <root>/identifiers.
func IdentifiersPath(root string) string {
	return root + identifiersFile
}

// CrossrefPath returns <root>/crossref.
func CrossrefPath(root string) string {
	return root + crossrefFile
}

// CrossrefExtraPath returns <root>/crossref-extra.
func CrossrefExtraPath(root string) string {
	return root + crossrefExtraFile
}

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/srv/index/mozilla-central/identifiers", "/srv/index") → "mozilla-central/identifiers"
//   - ToRelative("/other/location/identifiers", "/srv/index") → "/other/location/identifiers" (outside root)
//   - ToRelative("identifiers", "/srv/index") → "identifiers" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}

	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		// Different volumes on Windows
		return absPath
	}

	// Outside the root the absolute path is clearer
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return absPath
	}

	return relPath
}

// ResolveAgainst returns path unchanged when it is absolute or empty, and
// joined onto baseDir otherwise. Config files use it so relative index roots
// are read relative to the config file rather than the working directory.
func ResolveAgainst(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
