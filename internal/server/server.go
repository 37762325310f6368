// Package server exposes a searchfox tree through the AbstractServer
// capability interface. LocalIndex serves a tree from its on-disk index root.
package server

import (
	"context"
	"iter"
)

// AbstractServer is the capability surface callers use regardless of where a
// tree is served from. Every error is a *errors.ServerError of one of the
// input, sticky or unsupported kinds; data that is merely absent is reported
// as an empty result.
type AbstractServer interface {
	// TranslatePath maps a tree-relative path to its analysis artifact path.
	TranslatePath(ctx context.Context, logicalPath string) (string, error)

	// FetchRawAnalysis returns the analysis records of a file in file order.
	FetchRawAnalysis(ctx context.Context, logicalPath string) (iter.Seq[any], error)

	// FetchHTML returns the rendered document of a file.
	FetchHTML(ctx context.Context, logicalPath string) (string, error)

	// CrossrefLookup returns the cross-reference value of symbol, or nil.
	CrossrefLookup(ctx context.Context, symbol string) (any, error)

	// SearchIdentifiers returns identifiers starting with needle. A
	// maxResults of zero means no limit.
	SearchIdentifiers(ctx context.Context, needle string, exactMatch, ignoreCase bool, maxResults int) ([]IdentifierMatch, error)

	// PerformQuery runs a full searchfox query.
	PerformQuery(ctx context.Context, query string) (any, error)

	// Close releases the server's resources. Safe to call more than once.
	Close() error
}

// InfoProvider is implemented by servers that can describe their tree.
type InfoProvider interface {
	Info() TreeInfo
}
