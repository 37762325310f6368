package main

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/check-spelling/mozsearch/internal/server"
	"github.com/check-spelling/mozsearch/pkg/pathutil"
)

// CheckResult is one tree's check-index report. IndexPath is shown relative
// to the config file's directory and the identifiers path relative to the
// index root, when they lie inside them.
type CheckResult struct {
	server.TreeInfo
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func checkIndexCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return exitError(err)
	}
	names, err := cfg.MatchTrees(c.String("trees"))
	if err != nil {
		return cli.Exit(err.Error(), exitInput)
	}
	if len(names) == 0 {
		return cli.Exit(fmt.Sprintf("no tree matches %q", c.String("trees")), exitInput)
	}

	servers, err := server.LoadAll(c.Context, cfg, names, serverOptions(c)...)
	if err != nil {
		return exitError(err)
	}
	defer server.CloseAll(servers)

	results := make([]CheckResult, 0, len(names))
	invalid := 0
	for _, name := range names {
		li := servers[name]
		result := CheckResult{TreeInfo: li.Info(), Valid: true}
		result.Identifiers.Path = pathutil.ToRelative(result.Identifiers.Path, result.IndexPath)
		result.IndexPath = pathutil.ToRelative(result.IndexPath, filepath.Dir(cfg.Path))
		if err := li.Validate(); err != nil {
			result.Valid = false
			result.Error = err.Error()
			invalid++
		}
		results = append(results, result)
	}

	if err := writeJSON(c.App.Writer, results); err != nil {
		return err
	}
	if invalid > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d trees failed validation", invalid, len(names)), exitSticky)
	}
	return nil
}
