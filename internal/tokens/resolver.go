// Package tokens resolves ERC-20 metadata by contract address.
package tokens

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bridge-wrapped/internal/metrics"
)

// DefaultTTL is how long a resolved entry stays fresh.
const DefaultTTL = time.Hour

// Info is the resolved metadata for one token.
type Info struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int32  `json:"decimals"`
	Logo     string `json:"logo,omitempty"`
}

// Source reports how an address would be resolved. Implemented by *Resolver.
type Source interface {
	Resolve(ctx context.Context, address string) (Info, bool)
	ResolveMany(ctx context.Context, addresses []string) map[string]Info
}

// Options tune the resolver.
type Options struct {
	TTL     time.Duration
	Now     func() time.Time
	Metrics *metrics.Collector
}

// Resolver checks the cache, then the static table, then the remote lookup.
// A failed lookup yields no result and is not cached.
type Resolver struct {
	cache   *Cache
	lookup  Lookup
	metrics *metrics.Collector
	logger  zerolog.Logger

	credentialOnce sync.Once
}

// NewResolver builds a resolver. lookup may be nil to disable remote resolution.
func NewResolver(opts Options, lookup Lookup, logger zerolog.Logger) *Resolver {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{
		cache:   NewCache(ttl, opts.Now),
		lookup:  lookup,
		metrics: opts.Metrics,
		logger:  logger.With().Str("component", "token_resolver").Logger(),
	}
}

// Resolve returns metadata for a single address.
func (r *Resolver) Resolve(ctx context.Context, address string) (Info, bool) {
	addr := normalize(address)
	if addr == "" {
		return Info{}, false
	}
	if info, ok := r.local(addr); ok {
		return info, true
	}
	found := r.remote(ctx, []string{addr})
	info, ok := found[addr]
	return info, ok
}

// ResolveMany resolves a batch, sending every address unknown locally to the
// remote lookup in a single request. Unresolved addresses are absent from
// the result.
func (r *Resolver) ResolveMany(ctx context.Context, addresses []string) map[string]Info {
	out := make(map[string]Info, len(addresses))
	var missing []string
	queued := make(map[string]struct{})
	for _, a := range addresses {
		addr := normalize(a)
		if addr == "" {
			continue
		}
		if _, done := out[addr]; done {
			continue
		}
		if _, dup := queued[addr]; dup {
			continue
		}
		if info, ok := r.local(addr); ok {
			out[addr] = info
			continue
		}
		queued[addr] = struct{}{}
		missing = append(missing, addr)
	}
	for addr, info := range r.remote(ctx, missing) {
		out[addr] = info
	}
	return out
}

// Clear empties the cache.
func (r *Resolver) Clear() { r.cache.Clear() }

// Purge drops expired cache entries.
func (r *Resolver) Purge() int { return r.cache.Purge() }

// Len reports the number of cached entries.
func (r *Resolver) Len() int { return r.cache.Len() }

func (r *Resolver) local(addr string) (Info, bool) {
	if info, ok := r.cache.Get(addr); ok {
		r.metrics.TokenLookup("cache")
		return info, true
	}
	if info, ok := Static(addr); ok {
		r.metrics.TokenLookup("static")
		r.cache.Put(addr, info)
		return info, true
	}
	return Info{}, false
}

func (r *Resolver) remote(ctx context.Context, addrs []string) map[string]Info {
	if len(addrs) == 0 {
		return nil
	}
	if r.lookup == nil {
		r.metrics.TokenLookup("miss")
		return nil
	}

	found, err := r.lookup.Lookup(ctx, addrs)
	if err != nil {
		if errors.Is(err, ErrNoCredential) {
			r.credentialOnce.Do(func() {
				r.logger.Warn().Msg("token lookup disabled: no coinmarketcap api key")
			})
		} else {
			r.logger.Warn().Err(err).Strs("addresses", addrs).Msg("token lookup failed")
		}
		r.metrics.TokenLookup("miss")
		return nil
	}

	for addr, info := range found {
		r.cache.Put(addr, info)
		r.metrics.TokenLookup("remote")
	}
	if missed := len(addrs) - len(found); missed > 0 {
		for i := 0; i < missed; i++ {
			r.metrics.TokenLookup("miss")
		}
	}
	return found
}

var _ Source = (*Resolver)(nil)
