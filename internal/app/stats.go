package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"bridge-wrapped/internal/aggregator"
	"bridge-wrapped/internal/bridge"
	"bridge-wrapped/internal/httpapi"
	"bridge-wrapped/internal/notify"
)

// Stats computes the wrapped summary once and prints it.
func (a *App) Stats(ctx context.Context, out io.Writer, opts StatsOptions) error {
	stats, err := a.compute(ctx, opts.Address, opts.Year)
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			return err
		}
	} else if err := writeStatsText(out, stats); err != nil {
		return err
	}

	if opts.Share {
		notifier := a.newNotifier()
		if notifier == nil {
			return fmt.Errorf("telegram not enabled; cannot share")
		}
		if err := notifier.Notify(ctx, notify.SummaryFromStats(stats)); err != nil {
			return fmt.Errorf("share summary: %w", err)
		}
	}
	return nil
}

// compute validates input and runs one aggregation, recording it in the run
// log when one is configured.
func (a *App) compute(ctx context.Context, address string, year int) (*aggregator.Stats, error) {
	if err := httpapi.ValidateAddress(address); err != nil {
		return nil, fmt.Errorf("%w: %q", err, address)
	}
	year, err := httpapi.ParseYear(yearString(year), a.Config.App.DefaultYear)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("run log unavailable; continuing without it")
		store = nil
	}
	if closeStore != nil {
		defer closeStore()
	}

	resolver := a.newResolver(nil)
	agg := a.newAggregator(resolver, store, nil)
	return agg.GetWrappedStats(ctx, address, year)
}

func yearString(year int) string {
	if year == 0 {
		return ""
	}
	return strconv.Itoa(year)
}

func writeStatsText(out io.Writer, s *aggregator.Stats) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "Wallet\t%s\n", s.WalletAddress)
	fmt.Fprintf(w, "Year\t%d\n", s.Year)
	fmt.Fprintf(w, "Generated\t%s\n", s.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Bridges\t%d (raw %d)\n", s.TotalBridgingActions, s.RawTransactionCount)
	fmt.Fprintf(w, "Volume (USD)\t%s\n", formatDecimal(s.TotalVolumeUSD, 2))
	fmt.Fprintf(w, "Persona\t%s (rarity %d)\n", s.UserClass.Title, s.UserClass.Rarity)
	if s.BusiestDay != nil {
		fmt.Fprintf(w, "Busiest day\t%s, %d bridges, mostly to %s\n",
			s.BusiestDay.Date, s.BusiestDay.Count, s.BusiestDay.PrimaryDestination.ChainName)
	}
	if s.HighestVolumeDestination != nil {
		fmt.Fprintf(w, "Top volume destination\t%s ($%s)\n",
			s.HighestVolumeDestination.ChainName, formatDecimal(s.HighestVolumeDestination.VolumeUSD, 2))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Provider\tRaw\tVolume (USD)")
	for _, p := range sortedProviders(s) {
		ps := s.ProviderBreakdown[p]
		fmt.Fprintf(w, "%s\t%d\t%s\n", p, ps.Count, formatDecimal(ps.VolumeUSD, 2))
	}

	writeChainTable(w, "Source chain", s.TopSourceChains)
	writeChainTable(w, "Destination chain", s.TopDestinationChains)

	if len(s.TopTokens) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Token\tCount\tShare\tVolume (USD)")
		for _, t := range s.TopTokens {
			fmt.Fprintf(w, "%s\t%d\t%.1f%%\t%s\n", t.Symbol, t.Count, t.Percentage, formatDecimal(t.TotalVolumeUSD, 2))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Month\tCount\tVolume (USD)")
	for _, m := range s.MonthlyActivity {
		fmt.Fprintf(w, "%s\t%d\t%s\n", m.MonthName, m.Count, formatDecimal(m.VolumeUSD, 2))
	}

	return w.Flush()
}

func writeChainTable(w io.Writer, title string, rows []aggregator.ChainStats) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s\tCount\tShare\tVolume (USD)\n", title)
	for _, c := range rows {
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\t%s\n", c.ChainName, c.Count, c.Percentage, formatDecimal(c.VolumeUSD, 2))
	}
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}

func sanitizeInline(v string) string {
	return strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(v)
}

// sortedProviders lists breakdown keys in canonical provider order.
func sortedProviders(s *aggregator.Stats) []bridge.Provider {
	out := make([]bridge.Provider, 0, len(s.ProviderBreakdown))
	for _, p := range bridge.Providers {
		if _, ok := s.ProviderBreakdown[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
