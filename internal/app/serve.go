package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"bridge-wrapped/internal/httpapi"
	"bridge-wrapped/internal/metrics"
	"bridge-wrapped/internal/scheduler"
	"bridge-wrapped/internal/storage"
	"bridge-wrapped/internal/tokens"
)

// Serve runs the HTTP API plus the token cache sweeper until interrupted.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; run log disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	var m *metrics.Collector
	if a.Config.Server.MetricsEnabled {
		m = metrics.New()
	}

	resolver := a.newResolver(m)
	agg := a.newAggregator(resolver, store, m)

	server := httpapi.NewServer(agg, resolver, httpapi.Options{
		Addr:           a.Config.Server.Addr,
		DefaultYear:    a.Config.App.DefaultYear,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		RequestTimeout: a.Config.Server.RequestTimeout,
		Metrics:        m,
	}, a.Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx)
	})

	if interval := a.Config.Server.CacheSweepInterval; interval > 0 {
		sweeper, err := scheduler.New(scheduler.Options{Name: "token_cache_sweep", Interval: interval}, a.Logger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			err := sweeper.Run(gctx, sweepTokens(a, resolver))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if retention := a.Config.Database.Retention; store != nil && retention > 0 {
		pruner, err := scheduler.New(scheduler.Options{Name: "run_log_prune", Interval: time.Hour, StartupDelay: time.Minute}, a.Logger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			err := pruner.Run(gctx, pruneRuns(a, store, retention))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	a.Logger.Info().Str("addr", a.Config.Server.Addr).Msg("starting bridge wrapped api")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("api terminated with error")
		return err
	}

	a.Logger.Info().Msg("bridge wrapped api stopped")
	return nil
}

func pruneRuns(a *App, store storage.RunStore, retention time.Duration) scheduler.TickFunc {
	return func(ctx context.Context, at time.Time) error {
		removed, err := store.DeleteRunsBefore(ctx, at.Add(-retention))
		if err != nil {
			return err
		}
		if removed > 0 {
			a.Logger.Info().Int64("removed", removed).Msg("pruned old aggregation runs")
		}
		return nil
	}
}

func sweepTokens(a *App, resolver *tokens.Resolver) scheduler.TickFunc {
	return func(_ context.Context, at time.Time) error {
		removed := resolver.Purge()
		a.Logger.Debug().Time("at", at).Int("removed", removed).Int("remaining", resolver.Len()).Msg("token cache swept")
		return nil
	}
}
