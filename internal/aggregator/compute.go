package aggregator

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bridge-wrapped/internal/bridge"
	"bridge-wrapped/internal/chains"
	"bridge-wrapped/internal/tokens"
)

// TopN bounds every ranked list.
const TopN = 5

// ordered is a map that remembers first-insertion order. Ties in every
// ranking resolve to the earliest inserted key, and because accumulation
// walks the timestamp-sorted list, that is the key seen earliest in time.
type ordered[K comparable, V any] struct {
	keys  []K
	items map[K]*V
}

func newOrdered[K comparable, V any]() *ordered[K, V] {
	return &ordered[K, V]{items: make(map[K]*V)}
}

func (o *ordered[K, V]) get(k K) *V {
	if v, ok := o.items[k]; ok {
		return v
	}
	v := new(V)
	o.items[k] = v
	o.keys = append(o.keys, k)
	return v
}

type chainAcc struct {
	count  int
	volume decimal.Decimal
}

type tokenAcc struct {
	count   int
	volume  decimal.Decimal
	address string
}

type dayAcc struct {
	count        int
	volume       decimal.Decimal
	destinations *ordered[int64, int]
}

// YearBounds returns the inclusive UTC Unix-second range of a calendar year.
func YearBounds(year int) (start, end int64) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from.Unix(), to.Unix() - 1
}

// Compute deduplicates and summarises already-fetched records. raw holds
// each provider's contribution in adapter order and is used as-is for the
// provider breakdown.
func Compute(address string, year int, providers []bridge.Provider, raw map[bridge.Provider][]bridge.Transaction, generatedAt time.Time) *Stats {
	breakdown := make(map[bridge.Provider]ProviderStats, len(providers))
	var merged []bridge.Transaction
	for _, p := range providers {
		if _, seen := breakdown[p]; seen {
			continue
		}
		ps := ProviderStats{VolumeUSD: decimal.Zero}
		for _, tx := range raw[p] {
			ps.Count++
			ps.VolumeUSD = ps.VolumeUSD.Add(tx.AmountUSD)
		}
		breakdown[p] = ps
		merged = append(merged, raw[p]...)
	}

	txs := Deduplicate(merged)
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Timestamp < txs[j].Timestamp })

	stats := &Stats{
		WalletAddress:        address,
		Year:                 year,
		GeneratedAt:          generatedAt.UTC(),
		TotalBridgingActions: len(txs),
		RawTransactionCount:  len(merged),
		TotalVolumeUSD:       decimal.Zero,
		ProviderBreakdown:    breakdown,
		Transactions:         txs,
	}

	sources := newOrdered[int64, chainAcc]()
	destinations := newOrdered[int64, chainAcc]()
	tokenSet := newOrdered[string, tokenAcc]()
	days := newOrdered[string, dayAcc]()
	months := make(map[string]*chainAcc, 12)

	for _, tx := range txs {
		stats.TotalVolumeUSD = stats.TotalVolumeUSD.Add(tx.AmountUSD)

		src := sources.get(tx.SourceChainID)
		src.count++
		src.volume = src.volume.Add(tx.AmountUSD)

		dst := destinations.get(tx.DestinationChainID)
		dst.count++
		dst.volume = dst.volume.Add(tx.AmountUSD)

		tok := tokenSet.get(strings.ToUpper(tx.TokenSymbol))
		if tok.count == 0 {
			tok.address = tx.TokenAddress
		}
		tok.count++
		tok.volume = tok.volume.Add(tx.AmountUSD)

		at := time.Unix(tx.Timestamp, 0).UTC()
		day := days.get(at.Format("2006-01-02"))
		if day.destinations == nil {
			day.destinations = newOrdered[int64, int]()
		}
		day.count++
		day.volume = day.volume.Add(tx.AmountUSD)
		*day.destinations.get(tx.DestinationChainID)++

		monthKey := at.Format("2006-01")
		m, ok := months[monthKey]
		if !ok {
			m = &chainAcc{}
			months[monthKey] = m
		}
		m.count++
		m.volume = m.volume.Add(tx.AmountUSD)
	}

	total := len(txs)
	stats.TopSourceChains = rankChains(sources, total)
	stats.TopDestinationChains = rankChains(destinations, total)
	stats.TopTokens = rankTokens(tokenSet, total)

	if len(stats.TopSourceChains) > 0 {
		top := stats.TopSourceChains[0]
		stats.MostUsedSourceChain = &top
	}
	if len(stats.TopDestinationChains) > 0 {
		top := stats.TopDestinationChains[0]
		stats.MostUsedDestinationChain = &top
	}
	if len(stats.TopTokens) > 0 {
		top := stats.TopTokens[0]
		stats.MostBridgedToken = &top
	}
	stats.HighestVolumeDestination = highestVolume(destinations, total)
	stats.BusiestDay = busiestDay(days)
	stats.MonthlyActivity = monthlyActivity(year, months)
	stats.UserClass = Classify(total, stats.TotalVolumeUSD)

	return stats
}

// Percentage is value/total as a percentage rounded to one decimal; 0 when total is 0.
func Percentage(value, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(value)/float64(total)*1000) / 10
}

func chainEntry(id int64, acc *chainAcc, total int) ChainStats {
	info := chains.Get(id)
	return ChainStats{
		ChainID:    id,
		ChainName:  info.Name,
		Count:      acc.count,
		Percentage: Percentage(acc.count, total),
		VolumeUSD:  acc.volume,
		Color:      info.Color,
		Logo:       info.Logo,
	}
}

func rankChains(set *ordered[int64, chainAcc], total int) []ChainStats {
	out := make([]ChainStats, 0, len(set.keys))
	for _, id := range set.keys {
		out = append(out, chainEntry(id, set.items[id], total))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > TopN {
		out = out[:TopN]
	}
	return out
}

func rankTokens(set *ordered[string, tokenAcc], total int) []TokenStats {
	out := make([]TokenStats, 0, len(set.keys))
	for _, symbol := range set.keys {
		acc := set.items[symbol]
		logo, _ := tokens.LogoForSymbol(symbol)
		out = append(out, TokenStats{
			Symbol:         symbol,
			Address:        acc.address,
			Count:          acc.count,
			TotalVolumeUSD: acc.volume,
			Percentage:     Percentage(acc.count, total),
			Logo:           logo,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > TopN {
		out = out[:TopN]
	}
	return out
}

// highestVolume is nil when no destination accumulated a positive USD volume.
func highestVolume(set *ordered[int64, chainAcc], total int) *ChainStats {
	var bestID int64
	var best *chainAcc
	for _, id := range set.keys {
		acc := set.items[id]
		if !acc.volume.IsPositive() {
			continue
		}
		if best == nil || acc.volume.GreaterThan(best.volume) {
			bestID, best = id, acc
		}
	}
	if best == nil {
		return nil
	}
	entry := chainEntry(bestID, best, total)
	return &entry
}

func busiestDay(set *ordered[string, dayAcc]) *BusiestDay {
	var bestDate string
	var best *dayAcc
	for _, date := range set.keys {
		acc := set.items[date]
		if best == nil || acc.count > best.count {
			bestDate, best = date, acc
		}
	}
	if best == nil {
		return nil
	}

	var primary DestinationCount
	for _, id := range best.destinations.keys {
		if n := *best.destinations.items[id]; n > primary.Count {
			primary = DestinationCount{ChainID: id, ChainName: chains.Name(id), Count: n}
		}
	}
	return &BusiestDay{
		Date:               bestDate,
		Count:              best.count,
		VolumeUSD:          best.volume,
		PrimaryDestination: primary,
	}
}

func monthlyActivity(year int, months map[string]*chainAcc) []MonthlyActivity {
	out := make([]MonthlyActivity, 0, 12)
	for m := time.January; m <= time.December; m++ {
		key := fmt.Sprintf("%04d-%02d", year, int(m))
		entry := MonthlyActivity{Month: key, MonthName: m.String(), VolumeUSD: decimal.Zero}
		if acc, ok := months[key]; ok {
			entry.Count = acc.count
			entry.VolumeUSD = acc.volume
		}
		out = append(out, entry)
	}
	return out
}
