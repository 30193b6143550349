// Package fetcher implements one adapter per bridge provider. Each adapter
// pages through the provider's history endpoint sequentially and normalizes
// records into bridge.Transaction.
package fetcher

import (
	"context"
	"time"

	"bridge-wrapped/internal/bridge"
	"bridge-wrapped/internal/metrics"
	"bridge-wrapped/internal/retry"
)

// Adapter fetches one provider's transfers for an address within [start, end]
// (Unix seconds, inclusive). The returned slice always holds what was
// accumulated; a non-nil error explains why pagination stopped early.
type Adapter interface {
	Name() bridge.Provider
	FetchTransactions(ctx context.Context, address string, start, end int64) ([]bridge.Transaction, error)
}

// Options parameterise a provider adapter.
type Options struct {
	BaseURL   string
	PageSize  int
	MaxPages  int
	MaxOffset int
	Timeout   time.Duration
	RateLimit float64
	UserAgent string
	Retry     retry.Policy
	Metrics   *metrics.Collector
}

const (
	defaultPageSize  = 100
	defaultMaxPages  = 100
	defaultMaxOffset = 10000
)

func (o Options) pageSize() int {
	if o.PageSize <= 0 {
		return defaultPageSize
	}
	return o.PageSize
}

func (o Options) maxPages() int {
	if o.MaxPages <= 0 {
		return defaultMaxPages
	}
	return o.MaxPages
}

func (o Options) maxOffset() int {
	if o.MaxOffset <= 0 {
		return defaultMaxOffset
	}
	return o.MaxOffset
}

// tally counts per-record outcomes for one fetch.
type tally struct {
	pages      int
	kept       int
	dropped    int
	outOfRange int
}

func (t *tally) report(c *client) {
	c.metrics.Records(string(c.provider), "kept", t.kept)
	c.metrics.Records(string(c.provider), "dropped", t.dropped)
	c.metrics.Records(string(c.provider), "out_of_range", t.outOfRange)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
