package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bridge-wrapped/internal/retry"
	"bridge-wrapped/internal/version"
)

const cmcInfoPath = "/v2/cryptocurrency/info"

// ErrNoCredential is returned when no CoinMarketCap API key is configured.
var ErrNoCredential = errors.New("coinmarketcap api key not configured")

// Lookup resolves metadata for addresses the static table does not know.
type Lookup interface {
	Lookup(ctx context.Context, addresses []string) (map[string]Info, error)
}

// CoinMarketCapOptions parameterise the metadata client.
type CoinMarketCapOptions struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Retry   retry.Policy
}

// CoinMarketCap queries the cryptocurrency/info endpoint by contract address.
type CoinMarketCap struct {
	opts    CoinMarketCapOptions
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewCoinMarketCap constructs the lookup client.
func NewCoinMarketCap(opts CoinMarketCapOptions, logger zerolog.Logger) *CoinMarketCap {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://pro-api.coinmarketcap.com"
	}
	return &CoinMarketCap{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger.With().Str("component", "coinmarketcap").Logger(),
	}
}

// Lookup requests every address in one call. With a single address the first
// returned entry is used; with several, entries are matched on the platform
// token address and unmatched addresses are absent from the result.
// CoinMarketCap rejects a whole batch with 400 when any address is unknown to
// it, so a rejected batch is split in halves until the bad address is isolated.
func (c *CoinMarketCap) Lookup(ctx context.Context, addresses []string) (map[string]Info, error) {
	if strings.TrimSpace(c.opts.APIKey) == "" {
		return nil, ErrNoCredential
	}
	wanted := make([]string, 0, len(addresses))
	seen := make(map[string]struct{}, len(addresses))
	for _, a := range addresses {
		a = normalize(a)
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		wanted = append(wanted, a)
	}
	out := make(map[string]Info, len(wanted))
	if len(wanted) == 0 {
		return out, nil
	}

	if err := c.lookupBatch(ctx, wanted, out); err != nil && len(out) == 0 {
		return nil, err
	}
	return out, nil
}

func (c *CoinMarketCap) lookupBatch(ctx context.Context, addrs []string, out map[string]Info) error {
	entries, err := retry.Do(ctx, c.opts.Retry, func(ctx context.Context) ([]cmcTokenInfo, error) {
		return c.fetch(ctx, addrs)
	})
	if err != nil {
		var apiErr *cmcAPIError
		if len(addrs) < 2 || ctx.Err() != nil || !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
			return err
		}
		c.logger.Debug().Err(err).Int("batch", len(addrs)).Msg("coinmarketcap rejected batch, splitting")
		mid := len(addrs) / 2
		left := c.lookupBatch(ctx, addrs[:mid], out)
		right := c.lookupBatch(ctx, addrs[mid:], out)
		return errors.Join(left, right)
	}

	if len(addrs) == 1 {
		if len(entries) > 0 {
			out[addrs[0]] = entries[0].toInfo(addrs[0])
		}
		return nil
	}
	wanted := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		wanted[a] = struct{}{}
	}
	for _, entry := range entries {
		if entry.Platform == nil {
			continue
		}
		addr := normalize(entry.Platform.TokenAddress)
		if _, ok := wanted[addr]; !ok {
			continue
		}
		if _, done := out[addr]; done {
			continue
		}
		out[addr] = entry.toInfo(addr)
	}
	return nil
}

func (c *CoinMarketCap) fetch(ctx context.Context, addresses []string) ([]cmcTokenInfo, error) {
	q := url.Values{}
	q.Set("address", strings.Join(addresses, ","))
	endpoint := c.baseURL + cmcInfoPath + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, retry.Terminal(err)
	}
	req.Header.Set("X-CMC_PRO_API_KEY", c.opts.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coinmarketcap request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read coinmarketcap body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		herr := parseCMCError(resp.StatusCode, payload)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Terminal(herr)
		}
		return nil, herr
	}

	var body cmcResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, retry.Terminal(fmt.Errorf("decode coinmarketcap response: %w", err))
	}
	if body.Status.ErrorCode != 0 {
		return nil, retry.Terminal(fmt.Errorf("coinmarketcap error %d: %s", body.Status.ErrorCode, body.Status.ErrorMessage))
	}

	keys := make([]string, 0, len(body.Data))
	for k := range body.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var entries []cmcTokenInfo
	for _, k := range keys {
		raw := body.Data[k]
		var one cmcTokenInfo
		if err := json.Unmarshal(raw, &one); err == nil {
			entries = append(entries, one)
			continue
		}
		var many []cmcTokenInfo
		if err := json.Unmarshal(raw, &many); err == nil {
			entries = append(entries, many...)
		}
	}
	c.logger.Debug().Int("requested", len(addresses)).Int("returned", len(entries)).Msg("coinmarketcap lookup")
	return entries, nil
}

type cmcResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}

type cmcTokenInfo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Logo     string `json:"logo"`
	Platform *struct {
		Name         string `json:"name"`
		TokenAddress string `json:"token_address"`
	} `json:"platform"`
}

func (t cmcTokenInfo) toInfo(address string) Info {
	return Info{
		Address:  address,
		Symbol:   t.Symbol,
		Name:     t.Name,
		Decimals: decimalsForSymbol(t.Symbol),
		Logo:     t.Logo,
	}
}

// cmcAPIError is a non-200 reply from CoinMarketCap.
type cmcAPIError struct {
	Status  int
	Message string
}

func (e *cmcAPIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("coinmarketcap api error (%d)", e.Status)
	}
	return fmt.Sprintf("coinmarketcap api error (%d): %s", e.Status, e.Message)
}

func parseCMCError(status int, payload []byte) error {
	var apiErr struct {
		Status struct {
			ErrorMessage string `json:"error_message"`
		} `json:"status"`
	}
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Status.ErrorMessage != "" {
		return &cmcAPIError{Status: status, Message: apiErr.Status.ErrorMessage}
	}
	return &cmcAPIError{Status: status, Message: strings.TrimSpace(string(payload))}
}

var _ Lookup = (*CoinMarketCap)(nil)
