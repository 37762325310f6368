package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/check-spelling/mozsearch/internal/debug"
	"github.com/check-spelling/mozsearch/internal/mcp"
	"github.com/check-spelling/mozsearch/internal/server"
)

func mcpCommand(c *cli.Context) error {
	// stdio belongs to the protocol from here on
	debug.SetMCPMode(true)

	cfg, err := loadConfig(c)
	if err != nil {
		return debug.Fatal("failed to load config: %v", err)
	}
	names, err := cfg.MatchTrees(c.String("trees"))
	if err != nil {
		return cli.Exit(err.Error(), exitInput)
	}
	if len(names) == 0 {
		return cli.Exit(fmt.Sprintf("no tree matches %q", c.String("trees")), exitInput)
	}

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	loaded, err := server.LoadAll(ctx, cfg, names, serverOptions(c)...)
	if err != nil {
		return exitError(err)
	}
	defer server.CloseAll(loaded)

	servers := make(map[string]server.AbstractServer, len(loaded))
	for name, li := range loaded {
		servers[name] = li
	}

	defaultTree := c.String("tree")
	if defaultTree == "" {
		if _, ok := servers[cfg.DefaultTree]; ok {
			defaultTree = cfg.DefaultTree
		}
	}

	logger := mcp.NewDiagnosticLogger(true)
	if path := logger.GetLogPath(); path != "" {
		fmt.Fprintf(c.App.ErrWriter, "searchfox-tool: MCP diagnostics in %s\n", path)
	}
	mcpServer, err := mcp.NewServer(servers, defaultTree, logger)
	if err != nil {
		_ = logger.Close()
		return cli.Exit(err.Error(), exitInput)
	}
	defer mcpServer.Close()

	return mcpServer.Start(ctx)
}
