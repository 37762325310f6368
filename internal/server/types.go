package server

import (
	"github.com/check-spelling/mozsearch/internal/identifiers"
)

// IdentifierMatch is one search_identifiers hit. ID is the display id, which
// is the demangled symbol when demangling changed it.
type IdentifierMatch struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
}

// TreeInfo describes what a server has loaded for its tree.
type TreeInfo struct {
	Tree        string            `json:"tree"`
	IndexPath   string            `json:"index_path"`
	Identifiers identifiers.Stats `json:"identifiers"`
	Crossref    bool              `json:"crossref"`
}
