package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"bridge-wrapped/internal/retry"
)

type stubLookup struct {
	calls   int
	batches [][]string
	result  map[string]Info
	err     error
}

func (s *stubLookup) Lookup(_ context.Context, addresses []string) (map[string]Info, error) {
	s.calls++
	s.batches = append(s.batches, append([]string(nil), addresses...))
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]Info)
	for _, a := range addresses {
		if info, ok := s.result[a]; ok {
			out[a] = info
		}
	}
	return out, nil
}

const unknownToken = "0x1111111111111111111111111111111111111111"

func TestStaticTableNeverCallsLookup(t *testing.T) {
	lookup := &stubLookup{}
	r := NewResolver(Options{}, lookup, zerolog.Nop())

	for addr, want := range map[string]string{
		"0x0000000000000000000000000000000000000000": "ETH",
		"0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE": "ETH",
		"0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913": "USDC",
		"0xdAC17F958D2ee523a2206206994597C13D831ec7": "USDT",
		"0x4200000000000000000000000000000000000006": "WETH",
		"0x6B175474E89094C44Da98b954EedeAC495271d0F": "DAI",
	} {
		info, ok := r.Resolve(context.Background(), addr)
		if !ok || info.Symbol != want {
			t.Fatalf("%s 应解析为 %s, 实际 %+v", addr, want, info)
		}
	}
	usdc, _ := r.Resolve(context.Background(), "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	if usdc.Decimals != 6 || usdc.Logo == "" {
		t.Fatalf("USDC 元数据不正确: %+v", usdc)
	}
	if lookup.calls != 0 {
		t.Fatalf("静态表命中不应调用远程查询, 实际调用 %d 次", lookup.calls)
	}
}

func TestResolveUnknownUsesLookupAndCaches(t *testing.T) {
	lookup := &stubLookup{result: map[string]Info{
		unknownToken: {Address: unknownToken, Symbol: "FOO", Name: "Foo", Decimals: 18},
	}}
	r := NewResolver(Options{}, lookup, zerolog.Nop())

	for i := 0; i < 3; i++ {
		info, ok := r.Resolve(context.Background(), strings.ToUpper(unknownToken[:2])+unknownToken[2:])
		if !ok || info.Symbol != "FOO" {
			t.Fatalf("第 %d 次解析失败: %+v", i, info)
		}
	}
	if lookup.calls != 1 {
		t.Fatalf("缓存期内只应查询一次, 实际 %d", lookup.calls)
	}
}

func TestResolveExpiresAfterTTL(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	lookup := &stubLookup{result: map[string]Info{
		unknownToken: {Address: unknownToken, Symbol: "FOO", Decimals: 18},
	}}
	r := NewResolver(Options{TTL: time.Hour, Now: clock}, lookup, zerolog.Nop())

	r.Resolve(context.Background(), unknownToken)
	now = now.Add(59 * time.Minute)
	r.Resolve(context.Background(), unknownToken)
	if lookup.calls != 1 {
		t.Fatalf("TTL 内不应重新查询, 实际 %d", lookup.calls)
	}

	now = now.Add(2 * time.Minute)
	r.Resolve(context.Background(), unknownToken)
	if lookup.calls != 2 {
		t.Fatalf("过期后应重新查询, 实际 %d", lookup.calls)
	}

	now = now.Add(2 * time.Hour)
	if removed := r.Purge(); removed != 1 {
		t.Fatalf("Purge 应移除 1 条, 实际 %d", removed)
	}
	if r.Len() != 0 {
		t.Fatalf("Purge 后缓存应为空, 实际 %d", r.Len())
	}
}

func TestResolveLookupFailureIsNotCached(t *testing.T) {
	lookup := &stubLookup{err: errors.New("upstream down")}
	r := NewResolver(Options{}, lookup, zerolog.Nop())

	if _, ok := r.Resolve(context.Background(), unknownToken); ok {
		t.Fatal("查询失败时应返回 none")
	}
	if _, ok := r.Resolve(context.Background(), unknownToken); ok {
		t.Fatal("查询失败时应返回 none")
	}
	if lookup.calls != 2 {
		t.Fatalf("失败结果不应缓存, 实际调用 %d", lookup.calls)
	}
}

func TestResolveWithoutCredential(t *testing.T) {
	r := NewResolver(Options{}, NewCoinMarketCap(CoinMarketCapOptions{}, zerolog.Nop()), zerolog.Nop())
	if _, ok := r.Resolve(context.Background(), unknownToken); ok {
		t.Fatal("未配置 API key 时应返回 none")
	}
	if info, ok := r.Resolve(context.Background(), "0x0000000000000000000000000000000000000000"); !ok || info.Symbol != "ETH" {
		t.Fatal("静态表不依赖 API key")
	}
}

func TestResolveManyBatchesUnknown(t *testing.T) {
	other := "0x2222222222222222222222222222222222222222"
	lookup := &stubLookup{result: map[string]Info{
		unknownToken: {Address: unknownToken, Symbol: "FOO", Decimals: 18},
	}}
	r := NewResolver(Options{}, lookup, zerolog.Nop())

	got := r.ResolveMany(context.Background(), []string{
		"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		unknownToken,
		other,
		unknownToken,
		"",
	})
	if lookup.calls != 1 {
		t.Fatalf("未知地址应合并为一次请求, 实际 %d", lookup.calls)
	}
	if len(lookup.batches[0]) != 2 {
		t.Fatalf("请求应只包含两个未知地址: %v", lookup.batches[0])
	}
	if got["0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"].Symbol != "USDC" || got[unknownToken].Symbol != "FOO" {
		t.Fatalf("批量结果不正确: %+v", got)
	}
	if _, ok := got[other]; ok {
		t.Fatal("未解析地址不应出现在结果中")
	}
	r.Clear()
	if r.Len() != 0 {
		t.Fatal("Clear 后缓存应为空")
	}
}

func TestCoinMarketCapSingleAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/cryptocurrency/info" {
			t.Fatalf("路径不正确: %s", r.URL.Path)
		}
		if r.Header.Get("X-CMC_PRO_API_KEY") != "secret" {
			t.Fatalf("缺少 API key 头")
		}
		if r.URL.Query().Get("address") != unknownToken {
			t.Fatalf("address 参数不正确: %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"123": map[string]any{"id": 123, "name": "Tether", "symbol": "usdt", "logo": "https://logo"},
			},
			"status": map[string]any{"error_code": 0},
		})
	}))
	defer srv.Close()

	c := NewCoinMarketCap(CoinMarketCapOptions{APIKey: "secret", BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	got, err := c.Lookup(context.Background(), []string{unknownToken})
	if err != nil {
		t.Fatalf("查询不应报错: %v", err)
	}
	info := got[unknownToken]
	if info.Symbol != "usdt" || info.Decimals != 6 || info.Logo != "https://logo" {
		t.Fatalf("单地址查询应使用首条结果并按 symbol 推断 decimals: %+v", info)
	}
}

func TestCoinMarketCapBatchMatchesPlatformAddress(t *testing.T) {
	other := "0x2222222222222222222222222222222222222222"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"1": map[string]any{"symbol": "BAR", "name": "Bar", "platform": map[string]any{"token_address": strings.ToUpper(other)}},
				"2": []any{map[string]any{"symbol": "FOO", "name": "Foo", "platform": map[string]any{"token_address": unknownToken}}},
				"3": map[string]any{"symbol": "ZZZ", "name": "Stray"},
			},
			"status": map[string]any{"error_code": 0},
		})
	}))
	defer srv.Close()

	c := NewCoinMarketCap(CoinMarketCapOptions{APIKey: "k", BaseURL: srv.URL}, zerolog.Nop())
	got, err := c.Lookup(context.Background(), []string{unknownToken, other})
	if err != nil {
		t.Fatalf("批量查询不应报错: %v", err)
	}
	if len(got) != 2 || got[unknownToken].Symbol != "FOO" || got[other].Symbol != "BAR" {
		t.Fatalf("应按 platform.token_address 匹配: %+v", got)
	}
	if got[other].Decimals != 18 {
		t.Fatalf("非稳定币 decimals 应为 18")
	}
}

func TestCoinMarketCapClientErrorIsTerminal(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":{"error_code":1002,"error_message":"API key missing."}}`))
	}))
	defer srv.Close()

	c := NewCoinMarketCap(CoinMarketCapOptions{
		APIKey:  "bad",
		BaseURL: srv.URL,
		Retry:   retry.Policy{Attempts: 3, BaseDelay: time.Millisecond},
	}, zerolog.Nop())
	_, err := c.Lookup(context.Background(), []string{unknownToken})
	if err == nil || !strings.Contains(err.Error(), "API key missing") {
		t.Fatalf("应返回 API 错误, 实际 %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("4xx 不应重试, 实际请求 %d 次", hits.Load())
	}
}

func TestCoinMarketCapRetriesServerError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":   map[string]any{"9": map[string]any{"symbol": "FOO", "name": "Foo"}},
			"status": map[string]any{"error_code": 0},
		})
	}))
	defer srv.Close()

	c := NewCoinMarketCap(CoinMarketCapOptions{
		APIKey:  "k",
		BaseURL: srv.URL,
		Retry:   retry.Policy{Attempts: 3, BaseDelay: time.Millisecond},
	}, zerolog.Nop())
	got, err := c.Lookup(context.Background(), []string{unknownToken})
	if err != nil {
		t.Fatalf("重试后应成功: %v", err)
	}
	if got[unknownToken].Symbol != "FOO" || hits.Load() != 2 {
		t.Fatalf("结果或请求次数不正确: %+v, %d", got, hits.Load())
	}
}

// cmcServer answers with one entry per requested address and rejects the
// whole request with 400 when any address is in reject.
func cmcServer(t *testing.T, hits *atomic.Int32, reject ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		addrs := strings.Split(r.URL.Query().Get("address"), ",")
		data := map[string]any{}
		for i, a := range addrs {
			for _, bad := range reject {
				if a == bad {
					w.WriteHeader(http.StatusBadRequest)
					_, _ = w.Write([]byte(`{"status":{"error_code":400,"error_message":"Invalid value for \"address\""}}`))
					return
				}
			}
			data[strings.Repeat("1", i+1)] = map[string]any{
				"symbol":   "T" + a[len(a)-4:],
				"name":     "Token " + a[len(a)-4:],
				"platform": map[string]any{"token_address": a},
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data, "status": map[string]any{"error_code": 0}})
	}))
}

func TestCoinMarketCapRejectedBatchIsSplit(t *testing.T) {
	known := "0x2222222222222222222222222222222222222222"
	third := "0x3333333333333333333333333333333333333333"
	var hits atomic.Int32
	srv := cmcServer(t, &hits, unknownToken)
	defer srv.Close()

	c := NewCoinMarketCap(CoinMarketCapOptions{
		APIKey:  "k",
		BaseURL: srv.URL,
		Retry:   retry.Policy{Attempts: 3, BaseDelay: time.Millisecond},
	}, zerolog.Nop())
	got, err := c.Lookup(context.Background(), []string{known, unknownToken, third})
	if err != nil {
		t.Fatalf("部分地址可解析时不应报错: %v", err)
	}
	if len(got) != 2 || got[known].Symbol != "T2222" || got[third].Symbol != "T3333" {
		t.Fatalf("未知地址不应影响其他地址: %+v", got)
	}
	if _, ok := got[unknownToken]; ok {
		t.Fatal("被拒绝的地址不应出现在结果中")
	}

	hits.Store(0)
	if _, err := c.Lookup(context.Background(), []string{unknownToken}); err == nil {
		t.Fatal("仅有未知地址时应返回错误")
	}
	if hits.Load() != 1 {
		t.Fatalf("单地址不应再拆分, 实际请求 %d 次", hits.Load())
	}
}

func TestCoinMarketCapAuthErrorIsNotSplit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":{"error_code":1002,"error_message":"API key missing."}}`))
	}))
	defer srv.Close()

	c := NewCoinMarketCap(CoinMarketCapOptions{APIKey: "bad", BaseURL: srv.URL}, zerolog.Nop())
	if _, err := c.Lookup(context.Background(), []string{unknownToken, "0x2222222222222222222222222222222222222222"}); err == nil {
		t.Fatal("鉴权失败应返回错误")
	}
	if hits.Load() != 1 {
		t.Fatalf("鉴权失败不应拆分批次, 实际请求 %d 次", hits.Load())
	}
}

func TestResolveManyKeepsKnownWhenBatchRejected(t *testing.T) {
	known := "0x2222222222222222222222222222222222222222"
	var hits atomic.Int32
	srv := cmcServer(t, &hits, unknownToken)
	defer srv.Close()

	lookup := NewCoinMarketCap(CoinMarketCapOptions{APIKey: "k", BaseURL: srv.URL}, zerolog.Nop())
	r := NewResolver(Options{}, lookup, zerolog.Nop())
	got := r.ResolveMany(context.Background(), []string{unknownToken, known})
	if got[known].Symbol != "T2222" {
		t.Fatalf("已知地址应被解析: %+v", got)
	}
	if _, ok := got[unknownToken]; ok {
		t.Fatal("未知地址应缺失")
	}
	if r.Len() != 1 {
		t.Fatalf("只应缓存已解析的地址, 实际 %d", r.Len())
	}
}

type concurrentLookup struct{}

func (concurrentLookup) Lookup(_ context.Context, addresses []string) (map[string]Info, error) {
	out := make(map[string]Info, len(addresses))
	for _, a := range addresses {
		out[a] = Info{Address: a, Symbol: "S" + a[len(a)-2:], Decimals: 18}
	}
	return out, nil
}

func TestResolverConcurrentAccess(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var clock atomic.Int64
	clock.Store(now.UnixNano())
	r := NewResolver(Options{
		TTL: time.Minute,
		Now: func() time.Time { return time.Unix(0, clock.Load()) },
	}, concurrentLookup{}, zerolog.Nop())

	addrs := make([]string, 16)
	for i := range addrs {
		addrs[i] = "0x" + strings.Repeat("0", 38) + fmt.Sprintf("%02x", i+0x10)
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				addr := addrs[(w+i)%len(addrs)]
				switch i % 4 {
				case 0:
					info, ok := r.Resolve(context.Background(), addr)
					if !ok || info.Address != addr || info.Symbol != "S"+addr[len(addr)-2:] {
						t.Errorf("并发解析结果错误: %s -> %+v", addr, info)
						return
					}
				case 1:
					got := r.ResolveMany(context.Background(), addrs[:4])
					for _, a := range addrs[:4] {
						if got[a].Address != a {
							t.Errorf("并发批量解析结果错误: %s -> %+v", a, got[a])
							return
						}
					}
				case 2:
					r.Purge()
				default:
					clock.Add(int64(time.Second))
					_ = r.Len()
				}
			}
		}(w)
	}
	wg.Wait()

	if r.Len() > len(addrs) {
		t.Fatalf("缓存条目数超出地址数: %d", r.Len())
	}
}
