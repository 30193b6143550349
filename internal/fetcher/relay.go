package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"bridge-wrapped/internal/bridge"
	"bridge-wrapped/internal/tokens"
)

const relayRequestsPath = "/requests/v2"

// Relay follows the continuation token returned with each page of requests.
type Relay struct {
	opts     Options
	client   *client
	resolver tokens.Source
}

// NewRelay constructs the Relay adapter. resolver may be nil.
func NewRelay(opts Options, resolver tokens.Source, logger zerolog.Logger) *Relay {
	return &Relay{
		opts:     opts,
		client:   newClient(bridge.ProviderRelay, "https://api.relay.link", opts, logger),
		resolver: resolver,
	}
}

func (r *Relay) Name() bridge.Provider { return bridge.ProviderRelay }

// FetchTransactions implements Adapter.
func (r *Relay) FetchTransactions(ctx context.Context, address string, start, end int64) (out []bridge.Transaction, err error) {
	started := time.Now()
	t := &tally{}
	defer func() { r.client.finish(started, t, err) }()

	maxPages := r.opts.maxPages()
	continuation := ""
	for t.pages < maxPages {
		q := url.Values{}
		q.Set("user", address)
		if r.opts.PageSize > 0 {
			q.Set("limit", strconv.Itoa(r.opts.PageSize))
		}
		if continuation != "" {
			q.Set("continuation", continuation)
		}

		page, ferr := getPage[relayPage](ctx, r.client, relayRequestsPath, q)
		if ferr != nil {
			return out, fmt.Errorf("relay page %d: %w", t.pages+1, ferr)
		}
		t.pages++

		if len(page.Requests) == 0 {
			return out, nil
		}

		resolved := r.resolveTokens(ctx, page.Requests)
		for _, req := range page.Requests {
			tx, nerr := r.normalize(req, resolved)
			if nerr != nil {
				t.dropped++
				r.client.drop(nerr, req.ID)
				continue
			}
			if bridge.InRange(tx.Timestamp, start, end) {
				out = append(out, tx)
				t.kept++
			} else {
				t.outOfRange++
			}
			if tx.Timestamp < start {
				return out, nil
			}
		}

		if page.Continuation == "" || page.Continuation == continuation {
			return out, nil
		}
		continuation = page.Continuation
	}
	r.client.logger.Warn().Int("pages", t.pages).Msg("page ceiling reached")
	return out, nil
}

// resolveTokens resolves every input currency on the page in one batch.
func (r *Relay) resolveTokens(ctx context.Context, reqs []relayRequest) map[string]tokens.Info {
	if r.resolver == nil {
		return nil
	}
	addrs := make([]string, 0, len(reqs))
	for _, req := range reqs {
		addrs = append(addrs, req.tokenAddress())
	}
	return r.resolver.ResolveMany(ctx, addrs)
}

func (r *Relay) normalize(req relayRequest, resolved map[string]tokens.Info) (bridge.Transaction, error) {
	data := req.Data

	var ts int64
	var err error
	switch {
	case req.CreatedAt != "":
		ts, err = bridge.ParseTimestamp(req.CreatedAt)
	case len(data.InTxs) > 0:
		ts, err = data.InTxs[0].Timestamp.Unix()
	default:
		err = bridge.ErrNoTimestamp
	}
	if err != nil {
		return bridge.Transaction{}, fmt.Errorf("timestamp: %w", err)
	}

	if len(data.InTxs) == 0 || len(data.OutTxs) == 0 || data.InTxs[0].ChainID == 0 || data.OutTxs[0].ChainID == 0 {
		return bridge.Transaction{}, errors.New("missing chain ids")
	}
	src, dst := data.InTxs[0].ChainID, data.OutTxs[0].ChainID

	hash := firstNonEmpty(data.InTxs[0].Hash, req.ID)
	if hash == "" {
		return bridge.Transaction{}, errors.New("missing tx hash and request id")
	}

	tokenAddr := req.tokenAddress()
	var payloadSymbol string
	var payloadDecimals int32
	var rawAmount, formatted, usd string
	if in := data.Metadata.CurrencyIn; in != nil {
		rawAmount, formatted, usd = in.Amount, in.AmountFormatted, in.AmountUSD
		if in.Currency != nil {
			payloadSymbol, payloadDecimals = in.Currency.Symbol, in.Currency.Decimals
		}
	}
	if fee := data.FeeCurrencyObject; fee != nil {
		if payloadSymbol == "" {
			payloadSymbol = fee.Symbol
		}
		if payloadDecimals <= 0 {
			payloadDecimals = fee.Decimals
		}
	}

	symbol := payloadSymbol
	decimals := payloadDecimals
	if info, ok := resolved[tokenAddr]; ok {
		symbol = firstNonEmpty(info.Symbol, payloadSymbol)
		if decimals <= 0 {
			decimals = info.Decimals
		}
	}
	if symbol == "" {
		symbol = tokenAddr
	}
	if decimals <= 0 {
		decimals = 18
	}

	amount, err := bridge.FormatAmount(rawAmount, decimals)
	if err != nil {
		return bridge.Transaction{}, fmt.Errorf("currencyIn amount: %w", err)
	}
	if rawAmount == "" {
		if f, ok := bridge.ParseDecimal(formatted); ok {
			amount = f
		}
	}

	tx := bridge.NewTransaction(bridge.ProviderRelay, hash, ts, src, dst)
	tx.TokenSymbol = symbol
	tx.TokenAddress = tokenAddr
	tx.Amount = firstNonEmpty(rawAmount, "0")
	tx.AmountFormatted = amount
	tx.AmountUSD = bridge.USDValue(usd, "", amount)
	tx.Status = bridge.MapStatus(req.Status)
	return tx, nil
}

type relayPage struct {
	Requests     []relayRequest `json:"requests"`
	Continuation string         `json:"continuation"`
}

type relayCurrency struct {
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
	Address  string `json:"address"`
	ChainID  int64  `json:"chainId"`
}

type relayTx struct {
	Hash      string          `json:"hash"`
	ChainID   int64           `json:"chainId"`
	Timestamp bridge.FlexTime `json:"timestamp"`
}

type relayRequest struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	Data      struct {
		InTxs             []relayTx      `json:"inTxs"`
		OutTxs            []relayTx      `json:"outTxs"`
		FeeCurrencyObject *relayCurrency `json:"feeCurrencyObject"`
		Metadata          struct {
			CurrencyIn *struct {
				Currency        *relayCurrency `json:"currency"`
				Amount          string         `json:"amount"`
				AmountFormatted string         `json:"amountFormatted"`
				AmountUSD       string         `json:"amountUsd"`
			} `json:"currencyIn"`
		} `json:"metadata"`
	} `json:"data"`
}

// tokenAddress prefers the input currency, then the fee currency, then native.
func (req relayRequest) tokenAddress() string {
	var addr string
	if in := req.Data.Metadata.CurrencyIn; in != nil && in.Currency != nil {
		addr = in.Currency.Address
	}
	if addr == "" && req.Data.FeeCurrencyObject != nil {
		addr = req.Data.FeeCurrencyObject.Address
	}
	return bridge.CanonicalAddress(addr)
}

var _ Adapter = (*Relay)(nil)
