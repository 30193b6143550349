package app

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"bridge-wrapped/internal/aggregator"
	"bridge-wrapped/internal/chains"
)

// Export renders one wrapped year as a transaction CSV and/or a monthly PNG chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	stats, err := a.compute(ctx, opts.Address, opts.Year)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Str("address", stats.WalletAddress).
		Int("year", stats.Year).
		Int("transactions", len(stats.Transactions)).
		Msg("exporting wrapped stats")

	if opts.CSVPath != "" {
		if err := writeTransactionsCSV(a.exportPath(opts.CSVPath), stats); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeMonthlyPNG(a.exportPath(opts.PNGPath), stats); err != nil {
			return err
		}
	}

	return nil
}

// exportPath places relative paths under export.dir.
func (a *App) exportPath(path string) string {
	if filepath.IsAbs(path) || a.Config.Export.Dir == "" {
		return path
	}
	return filepath.Join(a.Config.Export.Dir, path)
}

func writeTransactionsCSV(path string, stats *aggregator.Stats) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"id", "provider", "tx_hash", "timestamp",
		"source_chain_id", "source_chain", "destination_chain_id", "destination_chain",
		"token_symbol", "token_address", "amount", "amount_formatted", "amount_usd",
		"status", "explorer_url",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, tx := range stats.Transactions {
		record := []string{
			tx.ID,
			string(tx.Provider),
			tx.TxHash,
			time.Unix(tx.Timestamp, 0).UTC().Format(time.RFC3339),
			strconv.FormatInt(tx.SourceChainID, 10),
			tx.SourceChainName,
			strconv.FormatInt(tx.DestinationChainID, 10),
			tx.DestinationChainName,
			tx.TokenSymbol,
			tx.TokenAddress,
			tx.Amount,
			tx.AmountFormatted.String(),
			formatDecimal(tx.AmountUSD, 2),
			string(tx.Status),
			chains.ExplorerTxURL(tx.SourceChainID, tx.TxHash),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeMonthlyPNG(path string, stats *aggregator.Stats) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	maxCount := 1
	bars := make([]chart.Value, 0, len(stats.MonthlyActivity))
	for _, m := range stats.MonthlyActivity {
		if m.Count > maxCount {
			maxCount = m.Count
		}
		bars = append(bars, chart.Value{
			Label: m.MonthName[:3],
			Value: float64(m.Count),
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex("627EEA"),
				StrokeColor: drawing.ColorFromHex("627EEA"),
			},
		})
	}

	graph := chart.BarChart{
		Title:  "Bridges per month " + strconv.Itoa(stats.Year),
		Width:  1280,
		Height: 720,
		Background: chart.Style{
			Padding: chart.Box{Top: 60},
		},
		BarWidth: 60,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount)},
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
		Bars: bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
