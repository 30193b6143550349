package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"bridge-wrapped/internal/aggregator"
	"bridge-wrapped/internal/bridge"
	"bridge-wrapped/internal/config"
	"bridge-wrapped/internal/fetcher"
	"bridge-wrapped/internal/metrics"
	"bridge-wrapped/internal/notify"
	"bridge-wrapped/internal/retry"
	"bridge-wrapped/internal/storage"
	"bridge-wrapped/internal/tokens"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) retryPolicy() retry.Policy {
	return retry.Policy{
		Attempts:  a.Config.Retry.Attempts,
		BaseDelay: a.Config.Retry.BaseDelay,
		MaxDelay:  a.Config.Retry.MaxDelay,
	}
}

func (a *App) newResolver(m *metrics.Collector) *tokens.Resolver {
	cmc := a.Config.Tokens.CoinMarketCap
	var lookup tokens.Lookup
	if cmc.APIKey != "" {
		lookup = tokens.NewCoinMarketCap(tokens.CoinMarketCapOptions{
			APIKey:  cmc.APIKey,
			BaseURL: cmc.BaseURL,
			Timeout: cmc.RequestTimeout,
			Retry:   a.retryPolicy(),
		}, a.Logger)
	} else {
		a.Logger.Warn().Msg("coinmarketcap api key not configured; unknown tokens fall back to provider data")
	}
	return tokens.NewResolver(tokens.Options{TTL: a.Config.Tokens.CacheTTL, Metrics: m}, lookup, a.Logger)
}

func (a *App) fetcherOptions(p config.ProviderConfig, m *metrics.Collector) fetcher.Options {
	return fetcher.Options{
		BaseURL:   p.BaseURL,
		PageSize:  p.PageSize,
		MaxPages:  p.MaxPages,
		MaxOffset: p.MaxOffset,
		Timeout:   p.RequestTimeout,
		RateLimit: p.RateLimit,
		UserAgent: p.UserAgent,
		Retry:     a.retryPolicy(),
		Metrics:   m,
	}
}

// newAdapters builds the enabled adapters in canonical provider order.
func (a *App) newAdapters(resolver tokens.Source, m *metrics.Collector) []fetcher.Adapter {
	providers := a.Config.Providers
	adapters := make([]fetcher.Adapter, 0, len(bridge.Providers))
	if providers.Across.Enabled {
		adapters = append(adapters, fetcher.NewAcross(a.fetcherOptions(providers.Across, m), resolver, a.Logger))
	}
	if providers.Relay.Enabled {
		adapters = append(adapters, fetcher.NewRelay(a.fetcherOptions(providers.Relay, m), resolver, a.Logger))
	}
	if providers.LiFi.Enabled {
		adapters = append(adapters, fetcher.NewLiFi(a.fetcherOptions(providers.LiFi, m), resolver, a.Logger))
	}
	if len(adapters) == 0 {
		a.Logger.Warn().Msg("all providers disabled; every result will be empty")
	}
	return adapters
}

func (a *App) newAggregator(resolver tokens.Source, store *storage.Store, m *metrics.Collector) *aggregator.Aggregator {
	opts := aggregator.Options{Metrics: m}
	if store != nil {
		opts.Recorder = store
	}
	return aggregator.New(a.newAdapters(resolver, m), opts, a.Logger)
}

func (a *App) newNotifier() notify.Notifier {
	if a.Config.Telegram.Enabled {
		cfg := a.Config.Telegram
		return notify.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

// openStore returns a nil store when the run log is not configured.
func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	store, err := storage.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

// StatsOptions configure the stats command.
type StatsOptions struct {
	Address string
	Year    int
	JSON    bool
	Share   bool
}

// ExportOptions configure the export command.
type ExportOptions struct {
	Address string
	Year    int
	PNGPath string
	CSVPath string
}

// HistoryOptions configure the history command.
type HistoryOptions struct {
	Limit   int
	Address string
}
