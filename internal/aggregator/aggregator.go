// Package aggregator fans out to every provider adapter, merges and
// deduplicates their records, and derives the yearly statistics.
package aggregator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"bridge-wrapped/internal/bridge"
	"bridge-wrapped/internal/fetcher"
	"bridge-wrapped/internal/metrics"
	"bridge-wrapped/internal/storage"
)

// RunRecorder receives an audit record after every aggregation.
type RunRecorder interface {
	InsertRun(ctx context.Context, run storage.RunRecord) error
}

// Options configure an Aggregator. Recorder and Metrics are optional.
type Options struct {
	Recorder RunRecorder
	Metrics  *metrics.Collector
	Now      func() time.Time
}

const recordTimeout = 3 * time.Second

// Aggregator computes wrapped statistics from a fixed adapter set.
type Aggregator struct {
	adapters []fetcher.Adapter
	recorder RunRecorder
	metrics  *metrics.Collector
	now      func() time.Time
	logger   zerolog.Logger
}

// New constructs an aggregator. Adapter order is the merge order before
// deduplication and therefore decides which duplicate is seen first.
func New(adapters []fetcher.Adapter, opts Options, logger zerolog.Logger) *Aggregator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Aggregator{
		adapters: adapters,
		recorder: opts.Recorder,
		metrics:  opts.Metrics,
		now:      now,
		logger:   logger.With().Str("component", "aggregator").Logger(),
	}
}

// Providers returns the adapter names in merge order.
func (a *Aggregator) Providers() []bridge.Provider {
	out := make([]bridge.Provider, 0, len(a.adapters))
	for _, ad := range a.adapters {
		out = append(out, ad.Name())
	}
	return out
}

type contribution struct {
	txs []bridge.Transaction
	err error
}

// GetWrappedStats 聚合指定地址在某一自然年 (UTC) 内的跨链记录。
// Provider failures never fail the call; each adapter contributes whatever
// it accumulated. When ctx ends first the records gathered so far are still
// summarised, and an error is returned only if no adapter produced any.
func (a *Aggregator) GetWrappedStats(ctx context.Context, address string, year int) (*Stats, error) {
	started := a.now()
	start, end := YearBounds(year)

	results := make([]contribution, len(a.adapters))
	var g errgroup.Group
	for i, ad := range a.adapters {
		g.Go(func() error {
			results[i] = a.fetch(ctx, ad, address, start, end)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		gathered := 0
		for _, r := range results {
			gathered += len(r.txs)
		}
		if gathered == 0 {
			a.metrics.AggregationFinished(a.now().Sub(started), err)
			return nil, fmt.Errorf("aggregate %s/%d: %w", address, year, err)
		}
		a.logger.Warn().Err(err).
			Str("address", address).
			Int("year", year).
			Int("partial", gathered).
			Msg("request ended before every provider finished, using partial results")
	}

	providers := a.Providers()
	raw := make(map[bridge.Provider][]bridge.Transaction, len(providers))
	for i, p := range providers {
		raw[p] = append(raw[p], results[i].txs...)
	}

	stats := Compute(address, year, providers, raw, a.now())
	elapsed := a.now().Sub(started)
	a.metrics.AggregationFinished(elapsed, nil)

	a.logger.Info().
		Str("address", address).
		Int("year", year).
		Int("raw", stats.RawTransactionCount).
		Int("deduplicated", stats.TotalBridgingActions).
		Str("volume_usd", stats.TotalVolumeUSD.StringFixed(2)).
		Dur("elapsed", elapsed).
		Msg("wrapped stats computed")

	a.record(ctx, stats, providers, results, started, elapsed)
	return stats, nil
}

func (a *Aggregator) fetch(ctx context.Context, ad fetcher.Adapter, address string, start, end int64) (c contribution) {
	provider := ad.Name()
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().
				Str("provider", string(provider)).
				Interface("panic", r).
				Msg("adapter panicked, contribution discarded")
			c = contribution{err: fmt.Errorf("%s: panic: %v", provider, r)}
		}
	}()

	txs, err := ad.FetchTransactions(ctx, address, start, end)
	if err != nil {
		a.logger.Warn().Err(err).
			Str("provider", string(provider)).
			Int("partial", len(txs)).
			Msg("provider stopped early, using partial results")
	}
	return contribution{txs: txs, err: err}
}

func (a *Aggregator) record(ctx context.Context, stats *Stats, providers []bridge.Provider, results []contribution, started time.Time, elapsed time.Duration) {
	if a.recorder == nil {
		return
	}

	run := storage.RunRecord{
		ID:             uuid.New(),
		Address:        strings.ToLower(stats.WalletAddress),
		Year:           stats.Year,
		StartedAt:      started.UTC(),
		Duration:       elapsed,
		RawCount:       stats.RawTransactionCount,
		DedupCount:     stats.TotalBridgingActions,
		TotalVolumeUSD: stats.TotalVolumeUSD,
		UserClass:      stats.UserClass.Class,
		Providers:      make([]storage.ProviderRun, 0, len(providers)),
	}
	for i, p := range providers {
		ps := stats.ProviderBreakdown[p]
		pr := storage.ProviderRun{
			Provider:  string(p),
			Records:   ps.Count,
			VolumeUSD: ps.VolumeUSD,
		}
		if results[i].err != nil {
			pr.Error = results[i].err.Error()
		}
		run.Providers = append(run.Providers, pr)
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := a.recorder.InsertRun(recordCtx, run); err != nil {
		a.logger.Error().Err(err).Str("run_id", run.ID.String()).Msg("failed to record aggregation run")
	}
}
