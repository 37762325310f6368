// Package mcp exposes searchfox trees to MCP clients as tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	lcierrors "github.com/check-spelling/mozsearch/internal/errors"
	"github.com/check-spelling/mozsearch/internal/server"
	"github.com/check-spelling/mozsearch/internal/version"
)

// Server routes MCP tool calls to the capability server of each tree.
type Server struct {
	servers          map[string]server.AbstractServer
	defaultTree      string
	server           *mcp.Server
	diagnosticLogger *DiagnosticLogger
}

// NewServer registers the tools for servers, keyed by tree name. Calls that
// name no tree go to defaultTree, or to the only tree when there is one.
// The caller keeps ownership of servers.
func NewServer(servers map[string]server.AbstractServer, defaultTree string, logger *DiagnosticLogger) (*Server, error) {
	if len(servers) == 0 {
		return nil, fmt.Errorf("no trees to serve")
	}
	if defaultTree != "" {
		if _, ok := servers[defaultTree]; !ok {
			return nil, fmt.Errorf("default tree %q is not being served", defaultTree)
		}
	}
	if logger == nil {
		logger = NoOpLogger
	}

	s := &Server{
		servers:          servers,
		defaultTree:      defaultTree,
		diagnosticLogger: logger,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "searchfox",
			Version: version.Info(),
		}, nil),
	}
	s.registerTools()
	logger.Printf("MCP server initialized with trees %v", s.treeNames())
	return s, nil
}

func (s *Server) treeNames() []string {
	names := make([]string, 0, len(s.servers))
	for name := range s.servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveTree picks the server for a tool call.
func (s *Server) resolveTree(tree string) (string, server.AbstractServer, error) {
	if tree == "" {
		tree = s.defaultTree
	}
	if tree == "" && len(s.servers) == 1 {
		for name := range s.servers {
			tree = name
		}
	}
	if tree == "" {
		return "", nil, lcierrors.NewInputError("resolve_tree",
			fmt.Sprintf("tree is required (available: %s)", strings.Join(s.treeNames(), ", ")))
	}
	srv, ok := s.servers[tree]
	if !ok {
		return "", nil, lcierrors.NewInputError("resolve_tree", fmt.Sprintf("bad tree name: %s", tree))
	}
	return tree, srv, nil
}

var treeProperty = &jsonschema.Schema{
	Type:        "string",
	Description: "Tree name from the configuration. Optional when a default tree is set.",
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        ToolInfo,
		Description: "List the served trees, the server version and which index artifacts each tree has loaded.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"tree": treeProperty,
			},
		},
	}, s.handleInfo)

	s.server.AddTool(&mcp.Tool{
		Name:        ToolSearchIdentifiers,
		Description: "Find identifiers starting with a prefix in a tree's identifier index. Ids whose remainder after the prefix contains '.' or ':' (deeper scopes) are skipped; query the scope explicitly, e.g. 'Foo::'.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"tree": treeProperty,
				"needle": {
					Type:        "string",
					Description: "Identifier prefix",
				},
				"exact_match": {
					Type:        "boolean",
					Description: "Only return ids equal to the needle",
				},
				"ignore_case": {
					Type:        "boolean",
					Description: "Match case-insensitively (default true)",
				},
				"max_results": {
					Type:        "integer",
					Description: fmt.Sprintf("Maximum results (default %d, at most %d)", SearchIdentifiersDefaultMax, SearchIdentifiersHardMax),
				},
			},
			Required: []string{"needle"},
		},
	}, s.handleSearchIdentifiers)

	s.server.AddTool(&mcp.Tool{
		Name:        ToolShowHTML,
		Description: "Return the rendered HTML of a source file.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"tree": treeProperty,
				"path": {
					Type:        "string",
					Description: "Tree-relative file path, e.g. dom/base/nsINode.cpp",
				},
			},
			Required: []string{"path"},
		},
	}, s.handleShowHTML)

	s.server.AddTool(&mcp.Tool{
		Name:        ToolFetchAnalysis,
		Description: "Return the raw analysis records (symbols, targets, sources) of a source file.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"tree": treeProperty,
				"path": {
					Type:        "string",
					Description: "Tree-relative file path",
				},
				"max": {
					Type:        "integer",
					Description: fmt.Sprintf("Maximum records returned (default %d)", AnalysisDefaultMax),
				},
			},
			Required: []string{"path"},
		},
	}, s.handleFetchAnalysis)

	s.server.AddTool(&mcp.Tool{
		Name:        ToolCrossrefLookup,
		Description: "Return the cross-reference entry (definitions, uses, pretty name) of a raw symbol.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"tree": treeProperty,
				"symbol": {
					Type:        "string",
					Description: "Raw symbol, e.g. _ZN7nsINode10InsertBeforeEv",
				},
			},
			Required: []string{"symbol"},
		},
	}, s.handleCrossrefLookup)

	s.server.AddTool(&mcp.Tool{
		Name:        ToolTranslatePath,
		Description: "Show where the analysis artifact of a source file lives in the index.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"tree": treeProperty,
				"path": {
					Type:        "string",
					Description: "Tree-relative file path",
				},
			},
			Required: []string{"path"},
		},
	}, s.handleTranslatePath)

	s.server.AddTool(&mcp.Tool{
		Name:        ToolQuery,
		Description: "Run a full searchfox query. Local indexes report this as unsupported.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"tree": treeProperty,
				"q": {
					Type:        "string",
					Description: "Query string",
				},
			},
			Required: []string{"q"},
		},
	}, s.handleQuery)
}

// recoverFromPanic turns a handler panic or error into a tool error result.
func (s *Server) recoverFromPanic(operation string, handler func() (*mcp.CallToolResult, error)) (result *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.diagnosticLogger.Errorf("PANIC RECOVERED in %s: %v\n%s", operation, r, debug.Stack())
			result, err = createErrorResponse(operation, fmt.Errorf("internal error: %v", r))
		}
	}()

	result, err = handler()
	if err != nil {
		s.diagnosticLogger.Printf("Error in %s: %v", operation, err)
		return createErrorResponse(operation, err)
	}
	return result, nil
}

// Start serves tools over stdio until ctx is done or the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.diagnosticLogger.Printf("Starting MCP server with stdio transport")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Close flushes the diagnostic log. The tree servers belong to the caller.
func (s *Server) Close() error {
	s.diagnosticLogger.Printf("MCP server shutdown complete")
	return s.diagnosticLogger.Close()
}
