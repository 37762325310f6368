package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	lcierrors "github.com/check-spelling/mozsearch/internal/errors"
)

// createJSONResponse creates a standardized JSON response for MCP tools
func createJSONResponse(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// createErrorResponse creates a standardized error response for MCP tools.
// Tool errors are reported inside the result with IsError set, not as
// protocol errors, so the client can see them and correct the call.
func createErrorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	errorData := map[string]interface{}{
		"success":   false,
		"error":     err.Error(),
		"kind":      errorKind(err),
		"operation": operation,
	}
	if hint := errorHint(err); hint != "" {
		errorData["hint"] = hint
	}

	response, marshalErr := createJSONResponse(errorData)
	if marshalErr != nil {
		return nil, marshalErr
	}
	response.IsError = true
	return response, nil
}

// errorKind names the error class a client can act on.
func errorKind(err error) string {
	switch {
	case lcierrors.IsInput(err):
		return string(lcierrors.ErrorTypeBadInput)
	case lcierrors.IsUnsupported(err):
		return string(lcierrors.ErrorTypeUnsupported)
	case lcierrors.IsSticky(err):
		return string(lcierrors.ErrorTypeSticky)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}

func errorHint(err error) string {
	switch {
	case lcierrors.IsInput(err):
		return "Check the tree name and arguments; use 'info' to list trees."
	case lcierrors.IsUnsupported(err):
		return "This server serves a local index; use search_identifiers or crossref_lookup instead."
	case lcierrors.IsSticky(err):
		return "Retrying will not help: the artifact is missing or corrupt."
	}
	return ""
}
