package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"bridge-wrapped/internal/bridge"
	"bridge-wrapped/internal/tokens"
)

const acrossDepositsPath = "/deposits"

// Across pages through deposits by offset. Deposits arrive newest first, so
// the first deposit older than start ends pagination.
type Across struct {
	opts     Options
	client   *client
	resolver tokens.Source
}

// NewAcross constructs the Across adapter. resolver may be nil.
func NewAcross(opts Options, resolver tokens.Source, logger zerolog.Logger) *Across {
	return &Across{
		opts:     opts,
		client:   newClient(bridge.ProviderAcross, "https://app.across.to/api", opts, logger),
		resolver: resolver,
	}
}

func (a *Across) Name() bridge.Provider { return bridge.ProviderAcross }

// FetchTransactions implements Adapter.
func (a *Across) FetchTransactions(ctx context.Context, address string, start, end int64) (out []bridge.Transaction, err error) {
	started := time.Now()
	t := &tally{}
	defer func() { a.client.finish(started, t, err) }()

	limit := a.opts.pageSize()
	maxPages := a.opts.maxPages()
	maxOffset := a.opts.maxOffset()

	offset := 0
	for t.pages < maxPages {
		q := url.Values{}
		q.Set("depositor", address)
		q.Set("limit", strconv.Itoa(limit))
		q.Set("skip", strconv.Itoa(offset))

		page, ferr := getPage[acrossPage](ctx, a.client, acrossDepositsPath, q)
		if ferr != nil {
			return out, fmt.Errorf("across page at offset %d: %w", offset, ferr)
		}
		t.pages++

		if len(page.Deposits) == 0 {
			return out, nil
		}

		resolved := a.resolveMissing(ctx, page.Deposits)
		for _, d := range page.Deposits {
			tx, nerr := a.normalize(d, resolved)
			if nerr != nil {
				t.dropped++
				a.client.drop(nerr, d.DepositTxHash)
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

		if len(page.Deposits) < limit {
			return out, nil
		}
		offset += limit
		if offset > maxOffset {
			a.client.logger.Warn().Int("offset", offset).Msg("offset ceiling reached")
			return out, nil
		}
	}
	a.client.logger.Warn().Int("pages", t.pages).Msg("page ceiling reached")
	return out, nil
}

// resolveMissing looks up, in one batch, the input tokens that arrived
// without a symbol.
func (a *Across) resolveMissing(ctx context.Context, deposits []acrossDeposit) map[string]tokens.Info {
	if a.resolver == nil {
		return nil
	}
	var addrs []string
	for _, d := range deposits {
		if d.Token == nil || d.Token.Symbol == "" {
			addrs = append(addrs, bridge.CanonicalAddress(d.InputToken))
		}
	}
	if len(addrs) == 0 {
		return nil
	}
	return a.resolver.ResolveMany(ctx, addrs)
}

func (a *Across) normalize(d acrossDeposit, resolved map[string]tokens.Info) (bridge.Transaction, error) {
	hash := firstNonEmpty(d.DepositTxHash, d.DepositTxnRef)
	if hash == "" {
		return bridge.Transaction{}, errors.New("missing deposit tx hash")
	}
	if d.OriginChainID == 0 || d.DestinationChainID == 0 {
		return bridge.Transaction{}, errors.New("missing chain id")
	}

	var ts int64
	var err error
	switch {
	case !d.DepositTime.IsZero():
		ts, err = d.DepositTime.Unix()
	case !d.QuoteTimestamp.IsZero():
		ts, err = d.QuoteTimestamp.Unix()
	default:
		ts, err = d.DepositBlockTimestamp.Unix()
	}
	if err != nil {
		return bridge.Transaction{}, fmt.Errorf("timestamp: %w", err)
	}

	tokenAddr := bridge.CanonicalAddress(d.InputToken)
	symbol, decimals, unitPrice := "", int32(0), d.InputPriceUSD
	if d.Token != nil {
		symbol = d.Token.Symbol
		decimals = d.Token.Decimals
		unitPrice = firstNonEmpty(d.Token.PriceUSD, d.InputPriceUSD)
	}
	if symbol == "" {
		if info, ok := resolved[tokenAddr]; ok {
			symbol = info.Symbol
			if decimals <= 0 {
				decimals = info.Decimals
			}
		}
	}
	if symbol == "" {
		symbol = tokenAddr
	}
	if decimals <= 0 {
		decimals = 18
	}

	amount, err := bridge.FormatAmount(d.InputAmount, decimals)
	if err != nil {
		return bridge.Transaction{}, fmt.Errorf("input amount: %w", err)
	}

	tx := bridge.NewTransaction(bridge.ProviderAcross, hash, ts, d.OriginChainID, d.DestinationChainID)
	tx.TokenSymbol = symbol
	tx.TokenAddress = tokenAddr
	tx.Amount = firstNonEmpty(d.InputAmount, "0")
	tx.AmountFormatted = amount
	tx.AmountUSD = bridge.USDValue("", unitPrice, amount)
	tx.Status = bridge.MapStatus(d.Status)
	return tx, nil
}

// acrossPage accepts both {"deposits": [...]} and a bare array.
type acrossPage struct {
	Deposits []acrossDeposit `json:"deposits"`
}

func (p *acrossPage) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		return json.Unmarshal(b, &p.Deposits)
	}
	var wrapped struct {
		Deposits []acrossDeposit `json:"deposits"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	p.Deposits = wrapped.Deposits
	return nil
}

type acrossDeposit struct {
	DepositTxHash         string          `json:"depositTxHash"`
	DepositTxnRef         string          `json:"depositTxnRef"`
	OriginChainID         int64           `json:"originChainId"`
	DestinationChainID    int64           `json:"destinationChainId"`
	InputToken            string          `json:"inputToken"`
	InputAmount           string          `json:"inputAmount"`
	Status                string          `json:"status"`
	DepositTime           bridge.FlexTime `json:"depositTime"`
	QuoteTimestamp        bridge.FlexTime `json:"quoteTimestamp"`
	DepositBlockTimestamp bridge.FlexTime `json:"depositBlockTimestamp"`
	InputPriceUSD         string          `json:"inputPriceUsd"`
	Token                 *struct {
		Symbol   string `json:"symbol"`
		Decimals int32  `json:"decimals"`
		PriceUSD string `json:"priceUsd"`
	} `json:"token"`
}

var _ Adapter = (*Across)(nil)
