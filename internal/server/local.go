package server

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/check-spelling/mozsearch/internal/config"
	"github.com/check-spelling/mozsearch/internal/crossref"
	"github.com/check-spelling/mozsearch/internal/debug"
	"github.com/check-spelling/mozsearch/internal/demangle"
	lcierrors "github.com/check-spelling/mozsearch/internal/errors"
	"github.com/check-spelling/mozsearch/internal/identifiers"
	"github.com/check-spelling/mozsearch/internal/store"
	"github.com/check-spelling/mozsearch/pkg/pathutil"
)

const (
	opMakeServer        = "make_local_server"
	opFetchRawAnalysis  = "fetch_raw_analysis"
	opFetchHTML         = "fetch_html"
	opCrossrefLookup    = "crossref_lookup"
	opSearchIdentifiers = "search_identifiers"
	opPerformQuery      = "perform_query"
)

// LocalIndex serves one tree from its index root. All methods are safe for
// concurrent use except Close, which must not race with other calls.
type LocalIndex struct {
	tree      string
	indexPath string

	idents   *identifiers.Index
	crossref *crossref.Map

	closeOnce sync.Once
	closeErr  error
}

var _ AbstractServer = (*LocalIndex)(nil)
var _ InfoProvider = (*LocalIndex)(nil)

// Option configures NewLocalServer.
type Option func(*options)

type options struct {
	demangler demangle.Demangler
}

// WithDemangler replaces the c++filt demangler.
func WithDemangler(d demangle.Demangler) Option {
	return func(o *options) {
		o.demangler = d
	}
}

// MakeLocalServer loads the configuration at configPath and serves tree from
// it. An unreadable or invalid configuration is a sticky error.
func MakeLocalServer(configPath, tree string, opts ...Option) (*LocalIndex, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, lcierrors.NewStickyError(opMakeServer, configPath, err)
	}
	return NewLocalServer(cfg, tree, opts...)
}

// NewLocalServer serves tree from an already loaded configuration. The only
// failure is a tree missing from cfg, reported as an input error. Missing
// identifier or crossref files leave those capabilities empty.
func NewLocalServer(cfg *config.Config, tree string, opts ...Option) (*LocalIndex, error) {
	treeCfg, ok := cfg.Tree(tree)
	if !ok {
		msg := fmt.Sprintf("bad tree name: %s", tree)
		if suggestion := cfg.SuggestTree(tree); suggestion != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
		}
		return nil, lcierrors.NewInputError(opMakeServer, msg)
	}

	o := options{demangler: demangle.NewCxxFilt()}
	for _, opt := range opts {
		opt(&o)
	}

	root := treeCfg.IndexPath
	li := &LocalIndex{
		tree:      tree,
		indexPath: root,
		idents:    identifiers.Open(pathutil.IdentifiersPath(root), o.demangler),
		crossref:  crossref.Open(pathutil.CrossrefPath(root), pathutil.CrossrefExtraPath(root)),
	}
	debug.LogServer("serving tree %s from %s (identifiers: %t, crossref: %t)\n",
		tree, root, li.idents.Present(), li.crossref != nil)
	return li, nil
}

// Tree returns the name of the served tree.
func (li *LocalIndex) Tree() string {
	return li.tree
}

// TranslatePath returns <index_path>/analysis/<logicalPath>.gz.
func (li *LocalIndex) TranslatePath(_ context.Context, logicalPath string) (string, error) {
	return pathutil.AnalysisPath(li.indexPath, logicalPath), nil
}

// FetchRawAnalysis reads and decodes the whole artifact before returning, so
// a malformed line fails the call rather than the iteration.
func (li *LocalIndex) FetchRawAnalysis(ctx context.Context, logicalPath string) (iter.Seq[any], error) {
	path := pathutil.AnalysisPath(li.indexPath, logicalPath)
	records, err := store.ReadCompressedNDJSON(ctx, path)
	if err != nil {
		return nil, withOperation(err, opFetchRawAnalysis)
	}
	return slices.Values(records), nil
}

func (li *LocalIndex) FetchHTML(ctx context.Context, logicalPath string) (string, error) {
	path := pathutil.HTMLPath(li.indexPath, logicalPath)
	html, err := store.ReadCompressedText(ctx, path)
	if err != nil {
		return "", withOperation(err, opFetchHTML)
	}
	return html, nil
}

// CrossrefLookup returns nil without error when the tree has no crossref
// files or symbol has no record.
func (li *LocalIndex) CrossrefLookup(ctx context.Context, symbol string) (any, error) {
	if li.crossref == nil {
		return nil, nil
	}
	value, err := li.crossref.Lookup(ctx, symbol)
	if err != nil {
		return nil, withOperation(err, opCrossrefLookup)
	}
	return value, nil
}

func (li *LocalIndex) SearchIdentifiers(ctx context.Context, needle string, exactMatch, ignoreCase bool, maxResults int) ([]IdentifierMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxResults < 0 {
		return nil, lcierrors.NewInputError(opSearchIdentifiers, fmt.Sprintf("negative result limit %d", maxResults))
	}
	results, err := li.idents.Lookup(needle, exactMatch, ignoreCase, maxResults)
	if err != nil {
		return nil, withOperation(err, opSearchIdentifiers)
	}
	matches := make([]IdentifierMatch, len(results))
	for i, r := range results {
		matches[i] = IdentifierMatch{ID: r.ID, Symbol: r.Symbol}
	}
	return matches, nil
}

// PerformQuery is not available on a local index.
func (li *LocalIndex) PerformQuery(_ context.Context, _ string) (any, error) {
	return nil, lcierrors.NewUnsupportedError(opPerformQuery)
}

// Info reports the loaded artifacts.
func (li *LocalIndex) Info() TreeInfo {
	return TreeInfo{
		Tree:        li.tree,
		IndexPath:   li.indexPath,
		Identifiers: li.idents.Stats(),
		Crossref:    li.crossref != nil,
	}
}

// Validate checks the identifier file's ordering and record shape.
func (li *LocalIndex) Validate() error {
	return li.idents.Validate()
}

// Close releases the identifier and crossref mappings.
func (li *LocalIndex) Close() error {
	li.closeOnce.Do(func() {
		li.closeErr = lcierrors.NewMultiError([]error{
			li.idents.Close(),
			li.crossref.Close(),
		}).ErrorOrNil()
	})
	return li.closeErr
}

// withOperation renames the operation of a ServerError to the capability the
// caller invoked. Other errors, such as context cancellation, pass through.
func withOperation(err error, op string) error {
	se, ok := err.(*lcierrors.ServerError)
	if !ok {
		return err
	}
	renamed := *se
	renamed.Operation = op
	return &renamed
}
