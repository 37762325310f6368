package server

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/check-spelling/mozsearch/internal/config"
	"github.com/check-spelling/mozsearch/internal/debug"
)

// LoadAll builds a LocalIndex for each named tree concurrently. An empty
// names slice loads every configured tree. On any failure the servers built
// so far are closed and the first error is returned.
func LoadAll(ctx context.Context, cfg *config.Config, names []string, opts ...Option) (map[string]*LocalIndex, error) {
	if len(names) == 0 {
		names = cfg.TreeNames()
	}

	var mu sync.Mutex
	servers := make(map[string]*LocalIndex, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			li, err := NewLocalServer(cfg, name, opts...)
			if err != nil {
				return err
			}
			mu.Lock()
			servers[name] = li
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, li := range servers {
			_ = li.Close()
		}
		return nil, err
	}
	debug.LogServer("loaded %d trees\n", len(servers))
	return servers, nil
}

// CloseAll closes every server and reports the first failure.
func CloseAll(servers map[string]*LocalIndex) error {
	var first error
	for _, li := range servers {
		if err := li.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
