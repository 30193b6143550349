package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"bridge-wrapped/internal/storage"
)

// History prints recent aggregation runs from the run log.
func (a *App) History(ctx context.Context, out io.Writer, opts HistoryOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	var runs []storage.RunRecord
	if opts.Address != "" {
		runs, err = store.ListRunsForAddress(ctx, strings.ToLower(opts.Address), limit)
	} else {
		runs, err = store.ListRecentRuns(ctx, limit)
	}
	if err != nil {
		return err
	}
	return writeRuns(out, runs)
}

func writeRuns(out io.Writer, runs []storage.RunRecord) error {
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Started (UTC)\tAddress\tYear\tRaw\tDedup\tVolume (USD)\tDuration\tErrors")

	for _, run := range runs {
		var errs []string
		for _, p := range run.Providers {
			if p.Error != "" {
				errs = append(errs, p.Provider+": "+sanitizeInline(p.Error))
			}
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			run.StartedAt.UTC().Format(time.RFC3339),
			run.Address,
			run.Year,
			run.RawCount,
			run.DedupCount,
			formatDecimal(run.TotalVolumeUSD, 2),
			run.Duration.Round(time.Millisecond),
			strings.Join(errs, "; "),
		)
	}

	return writer.Flush()
}
