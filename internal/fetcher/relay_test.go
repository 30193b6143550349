package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bridge-wrapped/internal/bridge"
	"bridge-wrapped/internal/tokens"
)

const usdcBase = "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913"

func relayRequestJSON(id string, created time.Time, src, dst int64) map[string]any {
	return map[string]any{
		"id":        id,
		"status":    "success",
		"createdAt": created.UTC().Format(time.RFC3339),
		"data": map[string]any{
			"inTxs":  []any{map[string]any{"hash": "0xin-" + id, "chainId": src}},
			"outTxs": []any{map[string]any{"hash": "0xout-" + id, "chainId": dst}},
			"metadata": map[string]any{
				"currencyIn": map[string]any{
					"currency":  map[string]any{"symbol": "USDC.e", "decimals": 6, "address": "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"},
					"amount":    "12345678",
					"amountUsd": "12.34",
				},
			},
		},
	}
}

func TestRelayFollowsContinuation(t *testing.T) {
	var continuations []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/requests/v2" || r.URL.Query().Get("user") != "0xabc" {
			t.Fatalf("请求不正确: %s", r.URL.String())
		}
		c := r.URL.Query().Get("continuation")
		continuations = append(continuations, c)
		switch c {
		case "":
			writeJSON(w, map[string]any{
				"requests":     []any{relayRequestJSON("r1", time.Unix(yearStart+500, 0), 1, 10)},
				"continuation": "next-1",
			})
		case "next-1":
			writeJSON(w, map[string]any{
				"requests": []any{relayRequestJSON("r2", time.Unix(yearStart+400, 0), 10, 8453)},
			})
		default:
			t.Fatalf("意外的 continuation: %s", c)
		}
	}))
	defer srv.Close()

	resolver := &stubResolver{infos: map[string]tokens.Info{usdcBase: {Symbol: "USDC", Decimals: 6}}}
	r := NewRelay(testOptions(srv.URL), resolver, noopLogger())
	txs, err := r.FetchTransactions(context.Background(), "0xabc", yearStart, yearEnd)
	if err != nil {
		t.Fatalf("不应报错: %v", err)
	}
	if len(continuations) != 2 || len(txs) != 2 {
		t.Fatalf("应请求两页并返回两条: %v, %d", continuations, len(txs))
	}

	tx := txs[0]
	if tx.TxHash != "0xin-r1" || tx.Timestamp != yearStart+500 {
		t.Fatalf("hash/时间戳不正确: %+v", tx)
	}
	if tx.TokenSymbol != "USDC" {
		t.Fatalf("解析结果应优先于 payload symbol: %s", tx.TokenSymbol)
	}
	if tx.TokenAddress != usdcBase {
		t.Fatalf("token 地址不正确: %s", tx.TokenAddress)
	}
	if !tx.AmountFormatted.Equal(decimal.RequireFromString("12.345678")) || !tx.AmountUSD.Equal(decimal.RequireFromString("12.34")) {
		t.Fatalf("金额不正确: %s / %s", tx.AmountFormatted, tx.AmountUSD)
	}
	if tx.Status != bridge.StatusCompleted {
		t.Fatalf("success 应映射为 completed")
	}
	if len(resolver.batches) != 2 {
		t.Fatalf("每页应批量解析一次, 实际 %d", len(resolver.batches))
	}
}

func TestRelayDropsRecordsWithoutChains(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		noOut := relayRequestJSON("r-bad", time.Unix(yearStart+10, 0), 1, 10)
		noOut["data"].(map[string]any)["outTxs"] = []any{}
		fallback := map[string]any{
			"id":     "0xrequest",
			"status": "refunded",
			"data": map[string]any{
				"inTxs":             []any{map[string]any{"chainId": 1, "timestamp": (yearStart + 20) * 1000}},
				"outTxs":            []any{map[string]any{"chainId": 10}},
				"feeCurrencyObject": map[string]any{"symbol": "ETH", "decimals": 18, "address": ""},
			},
		}
		writeJSON(w, map[string]any{"requests": []any{noOut, fallback}})
	}))
	defer srv.Close()

	r := NewRelay(testOptions(srv.URL), nil, noopLogger())
	txs, err := r.FetchTransactions(context.Background(), "0xabc", yearStart, yearEnd)
	if err != nil {
		t.Fatalf("不应报错: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("缺少链 id 的记录应被丢弃, 实际 %d 条", len(txs))
	}
	tx := txs[0]
	if tx.TxHash != "0xrequest" {
		t.Fatalf("缺少 inTx hash 时应回退到 request id: %s", tx.TxHash)
	}
	if tx.Timestamp != yearStart+20 {
		t.Fatalf("毫秒时间戳应转换为秒: %d", tx.Timestamp)
	}
	if tx.TokenAddress != bridge.NativeTokenAddress || tx.TokenSymbol != "ETH" {
		t.Fatalf("应回退到原生代币: %s %s", tx.TokenAddress, tx.TokenSymbol)
	}
	if tx.Status != bridge.StatusFailed || !tx.AmountUSD.IsZero() || tx.Amount != "0" {
		t.Fatalf("状态或金额不正确: %+v", tx)
	}
}

func TestRelayPageCeiling(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		writeJSON(w, map[string]any{
			"requests":     []any{relayRequestJSON("r", time.Unix(yearEnd-int64(n), 0), 1, 10)},
			"continuation": "c" + r.URL.Query().Get("continuation") + "x",
		})
	}))
	defer srv.Close()

	opts := testOptions(srv.URL)
	opts.MaxPages = 3
	r := NewRelay(opts, nil, noopLogger())
	txs, err := r.FetchTransactions(context.Background(), "0xabc", yearStart, yearEnd)
	if err != nil {
		t.Fatalf("到达上限不是错误: %v", err)
	}
	if hits.Load() != 3 || len(txs) != 3 {
		t.Fatalf("页数上限未生效: %d 次请求, %d 条", hits.Load(), len(txs))
	}
}

func TestRelayCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRelay(testOptions(srv.URL), nil, noopLogger())
	txs, err := r.FetchTransactions(ctx, "0xabc", yearStart, yearEnd)
	if err == nil || len(txs) != 0 {
		t.Fatalf("取消的 context 应立即返回错误: %v, %d", err, len(txs))
	}
}
