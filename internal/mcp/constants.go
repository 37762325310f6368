package mcp

// Defaults for tool parameters
const (
	// SearchIdentifiersDefaultMax caps search_identifiers when the caller
	// gives no max_results. Large enough for a prefix listing, small enough
	// to keep a response readable.
	SearchIdentifiersDefaultMax = 100

	// SearchIdentifiersHardMax bounds explicit max_results values.
	SearchIdentifiersHardMax = 5000

	// AnalysisDefaultMax caps the records fetch_analysis returns. Zero
	// from the caller means the default, not unlimited.
	AnalysisDefaultMax = 1000
)

// Tool names
const (
	ToolInfo              = "info"
	ToolSearchIdentifiers = "search_identifiers"
	ToolShowHTML          = "show_html"
	ToolFetchAnalysis     = "fetch_analysis"
	ToolCrossrefLookup    = "crossref_lookup"
	ToolTranslatePath     = "translate_path"
	ToolQuery             = "query"
)
