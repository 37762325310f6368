package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/check-spelling/mozsearch/internal/debug"
	lcierrors "github.com/check-spelling/mozsearch/internal/errors"
	"github.com/check-spelling/mozsearch/internal/server"
	"github.com/check-spelling/mozsearch/internal/version"
)

// InfoParams selects one tree; empty means all.
type InfoParams struct {
	Tree string `json:"tree"`
}

// InfoResponse describes the server and its trees.
type InfoResponse struct {
	Version     string            `json:"version"`
	DefaultTree string            `json:"default_tree,omitempty"`
	Trees       []server.TreeInfo `json:"trees"`
	Warnings    []UnknownField    `json:"warnings,omitempty"`
}

func (s *Server) handleInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic(ToolInfo, func() (*mcp.CallToolResult, error) {
		var params InfoParams
		warnings, err := decodeParams(req, &params, "tree")
		if err != nil {
			return nil, lcierrors.NewInputError(ToolInfo, err.Error())
		}

		names := s.treeNames()
		if params.Tree != "" {
			if _, _, err := s.resolveTree(params.Tree); err != nil {
				return nil, err
			}
			names = []string{params.Tree}
		}

		resp := InfoResponse{
			Version:     version.FullInfo(),
			DefaultTree: s.defaultTree,
			Trees:       make([]server.TreeInfo, 0, len(names)),
			Warnings:    warnings,
		}
		for _, name := range names {
			info := server.TreeInfo{Tree: name}
			if p, ok := s.servers[name].(server.InfoProvider); ok {
				info = p.Info()
			}
			resp.Trees = append(resp.Trees, info)
		}
		return createJSONResponse(resp)
	})
}

// SearchIdentifiersParams are the search_identifiers arguments.
type SearchIdentifiersParams struct {
	Tree       string `json:"tree"`
	Needle     string `json:"needle"`
	ExactMatch bool   `json:"exact_match"`
	IgnoreCase *bool  `json:"ignore_case"`
	MaxResults *int   `json:"max_results"`
}

// SearchIdentifiersResponse lists the matches in index order.
type SearchIdentifiersResponse struct {
	Tree     string                   `json:"tree"`
	Needle   string                   `json:"needle"`
	Matches  []server.IdentifierMatch `json:"matches"`
	Count    int                      `json:"count"`
	Limit    int                      `json:"limit"`
	Warnings []UnknownField           `json:"warnings,omitempty"`
}

func (s *Server) handleSearchIdentifiers(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic(ToolSearchIdentifiers, func() (*mcp.CallToolResult, error) {
		var params SearchIdentifiersParams
		warnings, err := decodeParams(req, &params, "tree", "needle", "exact_match", "ignore_case", "max_results")
		if err != nil {
			return nil, lcierrors.NewInputError(ToolSearchIdentifiers, err.Error())
		}
		if params.Needle == "" {
			return nil, lcierrors.NewInputError(ToolSearchIdentifiers, "needle is required")
		}

		ignoreCase := true
		if params.IgnoreCase != nil {
			ignoreCase = *params.IgnoreCase
		}
		limit := SearchIdentifiersDefaultMax
		if params.MaxResults != nil {
			limit = *params.MaxResults
		}
		if limit <= 0 || limit > SearchIdentifiersHardMax {
			return nil, lcierrors.NewInputError(ToolSearchIdentifiers,
				"max_results must be between 1 and 5000")
		}

		tree, srv, err := s.resolveTree(params.Tree)
		if err != nil {
			return nil, err
		}
		debug.LogMCP("search_identifiers tree=%s needle=%q exact=%t ignore_case=%t limit=%d\n",
			tree, params.Needle, params.ExactMatch, ignoreCase, limit)

		matches, err := srv.SearchIdentifiers(ctx, params.Needle, params.ExactMatch, ignoreCase, limit)
		if err != nil {
			return nil, err
		}
		if matches == nil {
			matches = []server.IdentifierMatch{}
		}
		return createJSONResponse(SearchIdentifiersResponse{
			Tree:     tree,
			Needle:   params.Needle,
			Matches:  matches,
			Count:    len(matches),
			Limit:    limit,
			Warnings: warnings,
		})
	})
}

// PathParams name a file in a tree.
type PathParams struct {
	Tree string `json:"tree"`
	Path string `json:"path"`
}

func (s *Server) handleShowHTML(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic(ToolShowHTML, func() (*mcp.CallToolResult, error) {
		var params PathParams
		if _, err := decodeParams(req, &params, "tree", "path"); err != nil {
			return nil, lcierrors.NewInputError(ToolShowHTML, err.Error())
		}
		if params.Path == "" {
			return nil, lcierrors.NewInputError(ToolShowHTML, "path is required")
		}
		_, srv, err := s.resolveTree(params.Tree)
		if err != nil {
			return nil, err
		}

		html, err := srv.FetchHTML(ctx, params.Path)
		if err != nil {
			return nil, err
		}
		// Raw document text, not JSON, so the client sees the markup as is.
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: html}},
		}, nil
	})
}

// FetchAnalysisParams are the fetch_analysis arguments.
type FetchAnalysisParams struct {
	Tree string `json:"tree"`
	Path string `json:"path"`
	Max  int    `json:"max"`
}

// FetchAnalysisResponse carries the first records of a file's analysis.
type FetchAnalysisResponse struct {
	Tree      string `json:"tree"`
	Path      string `json:"path"`
	Records   []any  `json:"records"`
	Total     int    `json:"total"`
	Truncated bool   `json:"truncated"`
}

func (s *Server) handleFetchAnalysis(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic(ToolFetchAnalysis, func() (*mcp.CallToolResult, error) {
		var params FetchAnalysisParams
		if _, err := decodeParams(req, &params, "tree", "path", "max"); err != nil {
			return nil, lcierrors.NewInputError(ToolFetchAnalysis, err.Error())
		}
		if params.Path == "" {
			return nil, lcierrors.NewInputError(ToolFetchAnalysis, "path is required")
		}
		if params.Max < 0 {
			return nil, lcierrors.NewInputError(ToolFetchAnalysis, "max cannot be negative")
		}
		limit := params.Max
		if limit == 0 {
			limit = AnalysisDefaultMax
		}

		tree, srv, err := s.resolveTree(params.Tree)
		if err != nil {
			return nil, err
		}
		records, err := srv.FetchRawAnalysis(ctx, params.Path)
		if err != nil {
			return nil, err
		}

		resp := FetchAnalysisResponse{Tree: tree, Path: params.Path, Records: []any{}}
		for record := range records {
			resp.Total++
			if len(resp.Records) < limit {
				resp.Records = append(resp.Records, record)
			}
		}
		resp.Truncated = resp.Total > len(resp.Records)
		return createJSONResponse(resp)
	})
}

// CrossrefParams are the crossref_lookup arguments.
type CrossrefParams struct {
	Tree   string `json:"tree"`
	Symbol string `json:"symbol"`
}

// CrossrefResponse carries the entry, or found=false.
type CrossrefResponse struct {
	Tree   string `json:"tree"`
	Symbol string `json:"symbol"`
	Found  bool   `json:"found"`
	Value  any    `json:"value"`
}

func (s *Server) handleCrossrefLookup(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic(ToolCrossrefLookup, func() (*mcp.CallToolResult, error) {
		var params CrossrefParams
		if _, err := decodeParams(req, &params, "tree", "symbol"); err != nil {
			return nil, lcierrors.NewInputError(ToolCrossrefLookup, err.Error())
		}
		if params.Symbol == "" {
			return nil, lcierrors.NewInputError(ToolCrossrefLookup, "symbol is required")
		}
		tree, srv, err := s.resolveTree(params.Tree)
		if err != nil {
			return nil, err
		}

		value, err := srv.CrossrefLookup(ctx, params.Symbol)
		if err != nil {
			return nil, err
		}
		return createJSONResponse(CrossrefResponse{
			Tree:   tree,
			Symbol: params.Symbol,
			Found:  value != nil,
			Value:  value,
		})
	})
}

func (s *Server) handleTranslatePath(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic(ToolTranslatePath, func() (*mcp.CallToolResult, error) {
		var params PathParams
		if _, err := decodeParams(req, &params, "tree", "path"); err != nil {
			return nil, lcierrors.NewInputError(ToolTranslatePath, err.Error())
		}
		tree, srv, err := s.resolveTree(params.Tree)
		if err != nil {
			return nil, err
		}
		translated, err := srv.TranslatePath(ctx, params.Path)
		if err != nil {
			return nil, err
		}
		return createJSONResponse(map[string]string{
			"tree":          tree,
			"path":          params.Path,
			"analysis_path": translated,
		})
	})
}

// QueryParams are the query arguments.
type QueryParams struct {
	Tree  string `json:"tree"`
	Query string `json:"q"`
}

func (s *Server) handleQuery(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic(ToolQuery, func() (*mcp.CallToolResult, error) {
		var params QueryParams
		if _, err := decodeParams(req, &params, "tree", "q"); err != nil {
			return nil, lcierrors.NewInputError(ToolQuery, err.Error())
		}
		_, srv, err := s.resolveTree(params.Tree)
		if err != nil {
			return nil, err
		}
		result, err := srv.PerformQuery(ctx, params.Query)
		if err != nil {
			return nil, err
		}
		return createJSONResponse(result)
	})
}
