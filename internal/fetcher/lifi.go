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

const lifiTransfersPath = "/analytics/transfers"

// LiFi queries transfers with a server-side time window and follows the
// next cursor. Ordering is not relied on, so there is no early stop.
type LiFi struct {
	opts     Options
	client   *client
	resolver tokens.Source
}

// NewLiFi constructs the LI.FI adapter. resolver may be nil.
func NewLiFi(opts Options, resolver tokens.Source, logger zerolog.Logger) *LiFi {
	return &LiFi{
		opts:     opts,
		client:   newClient(bridge.ProviderLiFi, "https://li.quest/v1", opts, logger),
		resolver: resolver,
	}
}

func (l *LiFi) Name() bridge.Provider { return bridge.ProviderLiFi }

// FetchTransactions implements Adapter.
func (l *LiFi) FetchTransactions(ctx context.Context, address string, start, end int64) (out []bridge.Transaction, err error) {
	started := time.Now()
	t := &tally{}
	defer func() { l.client.finish(started, t, err) }()

	maxPages := l.opts.maxPages()
	cursor := ""
	for t.pages < maxPages {
		q := url.Values{}
		q.Set("wallet", address)
		q.Set("fromTimestamp", strconv.FormatInt(start*1000, 10))
		q.Set("toTimestamp", strconv.FormatInt(end*1000, 10))
		if l.opts.PageSize > 0 {
			q.Set("limit", strconv.Itoa(l.opts.PageSize))
		}
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		page, ferr := getPage[lifiPage](ctx, l.client, lifiTransfersPath, q)
		if ferr != nil {
			return out, fmt.Errorf("lifi page %d: %w", t.pages+1, ferr)
		}
		t.pages++

		if len(page.Transfers) == 0 {
			return out, nil
		}

		resolved := l.resolveMissing(ctx, page.Transfers)
		for _, tr := range page.Transfers {
			tx, nerr := l.normalize(tr, resolved)
			if nerr != nil {
				t.dropped++
				l.client.drop(nerr, tr.TransactionID)
				continue
			}
			if bridge.InRange(tx.Timestamp, start, end) {
				out = append(out, tx)
				t.kept++
			} else {
				t.outOfRange++
			}
		}

		if !page.HasNext || page.Next == "" || page.Next == cursor {
			return out, nil
		}
		cursor = page.Next
	}
	l.client.logger.Warn().Int("pages", t.pages).Msg("page ceiling reached")
	return out, nil
}

func (l *LiFi) resolveMissing(ctx context.Context, transfers []lifiTransfer) map[string]tokens.Info {
	if l.resolver == nil {
		return nil
	}
	var addrs []string
	for _, tr := range transfers {
		if tr.Sending.Token.Symbol == "" {
			addrs = append(addrs, bridge.CanonicalAddress(tr.Sending.Token.Address))
		}
	}
	if len(addrs) == 0 {
		return nil
	}
	return l.resolver.ResolveMany(ctx, addrs)
}

func (l *LiFi) normalize(tr lifiTransfer, resolved map[string]tokens.Info) (bridge.Transaction, error) {
	s := tr.Sending
	if s.TxHash == "" {
		return bridge.Transaction{}, errors.New("missing sending tx hash")
	}
	if s.ChainID == 0 || tr.Receiving.ChainID == 0 {
		return bridge.Transaction{}, errors.New("missing chain id")
	}
	ts, err := s.Timestamp.Unix()
	if err != nil {
		return bridge.Transaction{}, fmt.Errorf("timestamp: %w", err)
	}

	tokenAddr := bridge.CanonicalAddress(s.Token.Address)
	symbol, decimals := s.Token.Symbol, s.Token.Decimals
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

	amount, err := bridge.FormatAmount(s.Amount, decimals)
	if err != nil {
		return bridge.Transaction{}, fmt.Errorf("sending amount: %w", err)
	}

	tx := bridge.NewTransaction(bridge.ProviderLiFi, s.TxHash, ts, s.ChainID, tr.Receiving.ChainID)
	tx.TokenSymbol = symbol
	tx.TokenAddress = tokenAddr
	tx.Amount = firstNonEmpty(s.Amount, "0")
	tx.AmountFormatted = amount
	tx.AmountUSD = bridge.USDValue(firstNonEmpty(s.AmountUSD, s.Value), s.Token.PriceUSD, amount)
	tx.Status = bridge.MapStatus(tr.Status)
	return tx, nil
}

type lifiPage struct {
	Transfers []lifiTransfer `json:"transfers"`
	HasNext   bool           `json:"hasNext"`
	Next      string         `json:"next"`
}

type lifiTransfer struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	Sending       struct {
		TxHash    string          `json:"txHash"`
		Amount    string          `json:"amount"`
		ChainID   int64           `json:"chainId"`
		Timestamp bridge.FlexTime `json:"timestamp"`
		AmountUSD string          `json:"amountUSD"`
		Value     string          `json:"value"`
		Token     struct {
			Address  string `json:"address"`
			Symbol   string `json:"symbol"`
			Decimals int32  `json:"decimals"`
			PriceUSD string `json:"priceUSD"`
		} `json:"token"`
	} `json:"sending"`
	Receiving struct {
		ChainID int64 `json:"chainId"`
	} `json:"receiving"`
}

var _ Adapter = (*LiFi)(nil)
