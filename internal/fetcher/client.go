package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"bridge-wrapped/internal/bridge"
	"bridge-wrapped/internal/metrics"
	"bridge-wrapped/internal/retry"
	"bridge-wrapped/internal/version"
)

// client is the HTTP plumbing shared by the adapters: rate limiting,
// per-page retry, status classification and JSON decoding.
type client struct {
	provider  bridge.Provider
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	retry     retry.Policy
	metrics   *metrics.Collector
	logger    zerolog.Logger
}

func newClient(provider bridge.Provider, defaultBaseURL string, opts Options, logger zerolog.Logger) *client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = version.UserAgent()
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &client{
		provider:  provider,
		baseURL:   baseURL,
		userAgent: ua,
		http:      &http.Client{Timeout: timeout},
		limiter:   limiter,
		retry:     opts.Retry,
		metrics:   opts.Metrics,
		logger: logger.With().
			Str("component", "fetcher").
			Str("provider", string(provider)).
			Logger(),
	}
}

// getPage issues a GET with retry and decodes the body into T.
func getPage[T any](ctx context.Context, c *client, path string, query url.Values) (T, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	attempt := 0
	page, err := retry.Do(ctx, c.retry, func(ctx context.Context) (T, error) {
		attempt++
		var out T
		body, err := c.get(ctx, endpoint)
		if err != nil {
			c.logger.Debug().Err(err).Int("attempt", attempt).Str("url", endpoint).Msg("page request failed")
			return out, err
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return out, retry.Terminal(fmt.Errorf("decode %s response: %w", c.provider, err))
		}
		return out, nil
	})
	c.metrics.PageFetched(string(c.provider), err)
	return page, err
}

func (c *client) get(ctx context.Context, endpoint string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, retry.Terminal(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		herr := parseHTTPError(c.provider, resp.StatusCode, payload)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Terminal(herr)
		}
		return nil, herr
	}
	return payload, nil
}

// finish logs the outcome of a full fetch and records its metrics.
func (c *client) finish(started time.Time, t *tally, err error) {
	t.report(c)
	elapsed := time.Since(started)
	c.metrics.FetchFinished(string(c.provider), elapsed, err)

	evt := c.logger.Info()
	if err != nil {
		evt = c.logger.Warn().Err(err)
	}
	evt.Int("pages", t.pages).
		Int("kept", t.kept).
		Int("dropped", t.dropped).
		Int("out_of_range", t.outOfRange).
		Dur("elapsed", elapsed).
		Msg("provider fetch finished")
}

func (c *client) drop(err error, ref string) {
	c.logger.Debug().Err(err).Str("record", ref).Msg("dropping malformed record")
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func parseHTTPError(provider bridge.Provider, status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("%s api error (%d): %s", provider, status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("%s api error (%d): %s", provider, status, apiErr.Error)
		}
		if apiErr.Detail != "" {
			return fmt.Errorf("%s api error (%d): %s", provider, status, apiErr.Detail)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("%s api error (%d): %s", provider, status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("%s api error (%d)", provider, status)
}
