package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/check-spelling/mozsearch/internal/config"
	"github.com/check-spelling/mozsearch/internal/debug"
	"github.com/check-spelling/mozsearch/internal/demangle"
	lcierrors "github.com/check-spelling/mozsearch/internal/errors"
	"github.com/check-spelling/mozsearch/internal/server"
	"github.com/check-spelling/mozsearch/internal/version"
)

const (
	exitInput       = 2
	exitSticky      = 3
	exitUnsupported = 4
)

// DefaultIdentifierLimit is the search-identifiers --limit default.
const DefaultIdentifierLimit = 1000

func newApp() *cli.App {
	return &cli.App{
		Name:                   "searchfox-tool",
		Usage:                  "Query a searchfox index from the command line",
		Version:                version.Info(),
		UseShortOptionHandling: true,
		// Exit codes are handled in main so tests can run the app in-process.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Tree configuration file (.json, .kdl or .toml)",
				Value:   "config.json",
				EnvVars: []string{"SEARCHFOX_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "tree",
				Aliases: []string{"t"},
				Usage:   "Tree to serve (defaults to the config's default_tree)",
				EnvVars: []string{"SEARCHFOX_TREE"},
			},
			&cli.BoolFlag{
				Name:  "no-demangle",
				Usage: "Show raw symbols instead of running c++filt",
			},
			&cli.BoolFlag{
				Name:   "debug-log",
				Usage:  "Write debug output to a temp log file",
				Hidden: true,
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug-log") {
				path, err := debug.InitDebugLogFile()
				if err != nil {
					return err
				}
				debug.EnableDebug = "true"
				fmt.Fprintf(c.App.ErrWriter, "debug log: %s\n", path)
			} else if debug.IsDebugEnabled() {
				debug.SetDebugOutput(c.App.ErrWriter)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "search-identifiers",
				Aliases:   []string{"si"},
				Usage:     "List identifiers starting with a prefix",
				ArgsUsage: "<needle>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "exact", Aliases: []string{"e"}, Usage: "Only ids equal to the needle"},
					&cli.BoolFlag{Name: "ignore-case", Aliases: []string{"i"}, Usage: "Case-insensitive match"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum results (0 = no limit)", Value: DefaultIdentifierLimit},
				},
				Action: searchIdentifiersCommand,
			},
			{
				Name:      "show-html",
				Usage:     "Print the rendered HTML of a file",
				ArgsUsage: "<path>",
				Action:    showHTMLCommand,
			},
			{
				Name:      "fetch-analysis",
				Usage:     "Print the analysis records of a file as NDJSON",
				ArgsUsage: "<path>",
				Action:    fetchAnalysisCommand,
			},
			{
				Name:      "crossref-lookup",
				Usage:     "Print the cross-reference entry of a symbol",
				ArgsUsage: "<symbol>",
				Action:    crossrefLookupCommand,
			},
			{
				Name:      "translate-path",
				Usage:     "Print the analysis artifact path of a file",
				ArgsUsage: "<path>",
				Action:    translatePathCommand,
			},
			{
				Name:      "query",
				Usage:     "Run a full searchfox query",
				ArgsUsage: "<query>",
				Action:    queryCommand,
			},
			{
				Name:  "check-index",
				Usage: "Validate the identifier index of every matching tree",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "trees", Usage: "Glob selecting trees (e.g. 'mozilla-*')"},
				},
				Action: checkIndexCommand,
			},
			{
				Name:  "mcp",
				Usage: "Serve the matching trees as MCP tools over stdio",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "trees", Usage: "Glob selecting trees (default: all)"},
				},
				Action: mcpCommand,
			},
		},
	}
}

// exitError attaches the exit code of err's kind.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case lcierrors.IsInput(err):
		return cli.Exit(err.Error(), exitInput)
	case lcierrors.IsUnsupported(err):
		return cli.Exit(err.Error(), exitUnsupported)
	case lcierrors.IsSticky(err):
		return cli.Exit(err.Error(), exitSticky)
	}
	return err
}

func serverOptions(c *cli.Context) []server.Option {
	if c.Bool("no-demangle") {
		return []server.Option{server.WithDemangler(demangle.Identity)}
	}
	return nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, lcierrors.NewStickyError("load_config", c.String("config"), err)
	}
	return cfg, nil
}

// withServer opens the selected tree, runs fn and closes the tree.
func withServer(c *cli.Context, fn func(ctx context.Context, srv server.AbstractServer) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return exitError(err)
	}
	tree := c.String("tree")
	if tree == "" {
		tree = cfg.DefaultTree
	}
	if tree == "" {
		names := cfg.TreeNames()
		if len(names) != 1 {
			return cli.Exit(fmt.Sprintf("--tree is required (available: %v)", names), exitInput)
		}
		tree = names[0]
	}

	li, err := server.NewLocalServer(cfg, tree, serverOptions(c)...)
	if err != nil {
		return exitError(err)
	}
	defer li.Close()

	return exitError(fn(c.Context, li))
}

func requireArg(c *cli.Context, name string) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit(fmt.Sprintf("%s requires exactly one <%s> argument", c.Command.Name, name), exitInput)
	}
	return c.Args().First(), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func searchIdentifiersCommand(c *cli.Context) error {
	needle, err := requireArg(c, "needle")
	if err != nil {
		return err
	}
	if c.Int("limit") < 0 {
		return cli.Exit("--limit cannot be negative", exitInput)
	}
	return withServer(c, func(ctx context.Context, srv server.AbstractServer) error {
		matches, err := srv.SearchIdentifiers(ctx, needle, c.Bool("exact"), c.Bool("ignore-case"), c.Int("limit"))
		if err != nil {
			return err
		}
		if matches == nil {
			matches = []server.IdentifierMatch{}
		}
		return writeJSON(c.App.Writer, matches)
	})
}

func showHTMLCommand(c *cli.Context) error {
	path, err := requireArg(c, "path")
	if err != nil {
		return err
	}
	return withServer(c, func(ctx context.Context, srv server.AbstractServer) error {
		html, err := srv.FetchHTML(ctx, path)
		if err != nil {
			return err
		}
		_, err = io.WriteString(c.App.Writer, html)
		return err
	})
}

func fetchAnalysisCommand(c *cli.Context) error {
	path, err := requireArg(c, "path")
	if err != nil {
		return err
	}
	return withServer(c, func(ctx context.Context, srv server.AbstractServer) error {
		records, err := srv.FetchRawAnalysis(ctx, path)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(c.App.Writer)
		for record := range records {
			if err := enc.Encode(record); err != nil {
				return err
			}
		}
		return nil
	})
}

func crossrefLookupCommand(c *cli.Context) error {
	symbol, err := requireArg(c, "symbol")
	if err != nil {
		return err
	}
	return withServer(c, func(ctx context.Context, srv server.AbstractServer) error {
		value, err := srv.CrossrefLookup(ctx, symbol)
		if err != nil {
			return err
		}
		return writeJSON(c.App.Writer, value)
	})
}

func translatePathCommand(c *cli.Context) error {
	path, err := requireArg(c, "path")
	if err != nil {
		return err
	}
	return withServer(c, func(ctx context.Context, srv server.AbstractServer) error {
		translated, err := srv.TranslatePath(ctx, path)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.App.Writer, translated)
		return err
	})
}

func queryCommand(c *cli.Context) error {
	q, err := requireArg(c, "query")
	if err != nil {
		return err
	}
	return withServer(c, func(ctx context.Context, srv server.AbstractServer) error {
		result, err := srv.PerformQuery(ctx, q)
		if err != nil {
			return err
		}
		return writeJSON(c.App.Writer, result)
	})
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
