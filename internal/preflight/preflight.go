package preflight

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"arena/internal/config"
	"arena/internal/services/remote"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable preflight check for the given config and
// returns the results in a fixed order. The checks run concurrently; service
// checks use a single attempt so status output stays fast.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	client := remote.NewClient(remote.Config{
		BaseURL: cfg.Server.URL,
		APIKey:  cfg.Server.APIKey,
		Timeout: 10 * time.Second,
	}, remote.WithRetryMaxAttempts(1))

	checks := []func() Result{
		func() Result { return CheckDirectoryAccess("Data directory", cfg.Paths.DataDir) },
		func() Result { return CheckDirectoryAccess("Log directory", cfg.Paths.LogDir) },
		func() Result { return CheckDirectoryAccess("Lock directory", cfg.Paths.LockDir) },
		func() Result { return CheckServer(ctx, client) },
		func() Result { return CheckAIProviders(ctx, client) },
		func() Result { return CheckSyncFallback(cfg) },
		func() Result { return CheckNotifications(cfg) },
	}

	results := make([]Result, len(checks))
	var g errgroup.Group
	g.SetLimit(4)
	for i, check := range checks {
		g.Go(func() error {
			results[i] = check()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
