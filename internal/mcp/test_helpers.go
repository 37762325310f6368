package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CallTool invokes a tool handler directly, bypassing the transport.
// It returns the text content of the result and whether it is an error.
func (s *Server) CallTool(toolName string, params map[string]interface{}) (string, bool, error) {
	ctx := context.Background()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", false, fmt.Errorf("failed to marshal params: %w", err)
	}

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      toolName,
			Arguments: paramsJSON,
		},
	}

	var result *mcp.CallToolResult
	switch toolName {
	case ToolInfo:
		result, err = s.handleInfo(ctx, req)
	case ToolSearchIdentifiers:
		result, err = s.handleSearchIdentifiers(ctx, req)
	case ToolShowHTML:
		result, err = s.handleShowHTML(ctx, req)
	case ToolFetchAnalysis:
		result, err = s.handleFetchAnalysis(ctx, req)
	case ToolCrossrefLookup:
		result, err = s.handleCrossrefLookup(ctx, req)
	case ToolTranslatePath:
		result, err = s.handleTranslatePath(ctx, req)
	case ToolQuery:
		result, err = s.handleQuery(ctx, req)
	default:
		return "", false, fmt.Errorf("unknown tool: %s", toolName)
	}
	if err != nil {
		return "", false, err
	}
	if result == nil || len(result.Content) == 0 {
		return "", false, fmt.Errorf("tool %s returned no content", toolName)
	}

	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		return "", false, fmt.Errorf("tool %s returned %T", toolName, result.Content[0])
	}
	return text.Text, result.IsError, nil
}
