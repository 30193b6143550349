package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"bridge-wrapped/internal/bridge"
	"bridge-wrapped/internal/tokens"
)

func acrossDepositJSON(hash string, ts int64, status string) map[string]any {
	return map[string]any{
		"depositTxHash":      hash,
		"originChainId":      1,
		"destinationChainId": 8453,
		"inputToken":         "0xA0b86991c6218b36c1d19d4a2e9eB0cE3606eB48",
		"inputAmount":        "2500000",
		"status":             status,
		"depositTime":        ts,
		"token":              map[string]any{"symbol": "USDC", "decimals": 6, "priceUsd": "1.0"},
	}
}

func TestAcrossPaginatesUntilShortPage(t *testing.T) {
	var skips []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/deposits" {
			t.Fatalf("路径不正确: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("depositor") != "0xabc" || q.Get("limit") != "2" {
			t.Fatalf("查询参数不正确: %s", r.URL.RawQuery)
		}
		skips = append(skips, q.Get("skip"))
		switch q.Get("skip") {
		case "0":
			writeJSON(w, map[string]any{"deposits": []any{
				acrossDepositJSON("0x01", yearStart+300, "filled"),
				acrossDepositJSON("0x02", yearStart+200, "pending"),
			}})
		default:
			writeJSON(w, map[string]any{"deposits": []any{
				acrossDepositJSON("0x03", yearStart+100, "expired"),
			}})
		}
	}))
	defer srv.Close()

	a := NewAcross(testOptions(srv.URL), nil, noopLogger())
	txs, err := a.FetchTransactions(context.Background(), "0xabc", yearStart, yearEnd)
	if err != nil {
		t.Fatalf("不应报错: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("期望 3 条记录, 实际 %d", len(txs))
	}
	if len(skips) != 2 || skips[1] != "2" {
		t.Fatalf("分页偏移不正确: %v", skips)
	}

	first := txs[0]
	if first.ID != "across-0x01-1-8453" || first.Provider != bridge.ProviderAcross {
		t.Fatalf("id/provider 不正确: %+v", first)
	}
	if first.TokenAddress != "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48" {
		t.Fatalf("token 地址应为小写: %s", first.TokenAddress)
	}
	if !first.AmountFormatted.Equal(decimal.RequireFromString("2.5")) || !first.AmountUSD.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("金额不正确: %s / %s", first.AmountFormatted, first.AmountUSD)
	}
	if first.Status != bridge.StatusCompleted || txs[1].Status != bridge.StatusPending || txs[2].Status != bridge.StatusFailed {
		t.Fatalf("状态映射不正确")
	}
	if first.SourceChainName != "Ethereum" || first.DestinationChainName != "Base" {
		t.Fatalf("链名称不正确: %s -> %s", first.SourceChainName, first.DestinationChainName)
	}
}

func TestAcrossStopsAtFirstOlderDeposit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, map[string]any{"deposits": []any{
			acrossDepositJSON("0x01", yearStart+10, "filled"),
			acrossDepositJSON("0x02", yearStart-10, "filled"),
		}})
	}))
	defer srv.Close()

	a := NewAcross(testOptions(srv.URL), nil, noopLogger())
	txs, err := a.FetchTransactions(context.Background(), "0xabc", yearStart, yearEnd)
	if err != nil {
		t.Fatalf("不应报错: %v", err)
	}
	if len(txs) != 1 || txs[0].TxHash != "0x01" {
		t.Fatalf("只应保留范围内记录: %+v", txs)
	}
	if hits.Load() != 1 {
		t.Fatalf("遇到早于起点的记录后应停止分页, 实际请求 %d 次", hits.Load())
	}
}

func TestAcrossBareArrayAndFallbacks(t *testing.T) {
	unknown := "0x1111111111111111111111111111111111111111"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("skip") != "0" {
			writeJSON(w, []any{})
			return
		}
		writeJSON(w, []any{
			map[string]any{
				"depositTxHash":      "0xq",
				"originChainId":      10,
				"destinationChainId": 42161,
				"inputToken":         unknown,
				"inputAmount":        "3000000000000000000",
				"status":             "filled",
				"quoteTimestamp":     strconv.FormatInt(yearStart+5, 10),
				"inputPriceUsd":      "2",
			},
			// no timestamp at all
			map[string]any{
				"depositTxHash": "0xbad", "originChainId": 1, "destinationChainId": 10, "inputAmount": "1",
				"token": map[string]any{"symbol": "USDC", "decimals": 6},
			},
		})
	}))
	defer srv.Close()

	resolver := &stubResolver{infos: map[string]tokens.Info{unknown: {Symbol: "FOO", Decimals: 18}}}
	a := NewAcross(testOptions(srv.URL), resolver, noopLogger())
	txs, err := a.FetchTransactions(context.Background(), "0xabc", yearStart, yearEnd)
	if err != nil {
		t.Fatalf("不应报错: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("格式错误的记录应被丢弃, 实际 %d 条", len(txs))
	}
	tx := txs[0]
	if tx.Timestamp != yearStart+5 {
		t.Fatalf("应回退到 quoteTimestamp: %d", tx.Timestamp)
	}
	if tx.TokenSymbol != "FOO" {
		t.Fatalf("缺少 symbol 时应使用解析结果: %s", tx.TokenSymbol)
	}
	if !tx.AmountUSD.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("USD 应为 amount*inputPriceUsd=6, 实际 %s", tx.AmountUSD)
	}
	if len(resolver.batches) != 1 || len(resolver.batches[0]) != 1 {
		t.Fatalf("只应为缺少 symbol 的记录批量解析: %v", resolver.batches)
	}
}

func TestAcrossClientErrorReturnsPartial(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			writeJSON(w, map[string]any{"deposits": []any{
				acrossDepositJSON("0x01", yearStart+300, "filled"),
				acrossDepositJSON("0x02", yearStart+200, "filled"),
			}})
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]string{"message": "bad skip"})
	}))
	defer srv.Close()

	a := NewAcross(testOptions(srv.URL), nil, noopLogger())
	txs, err := a.FetchTransactions(context.Background(), "0xabc", yearStart, yearEnd)
	if err == nil {
		t.Fatal("HTTP 400 应返回错误")
	}
	if len(txs) != 2 {
		t.Fatalf("应返回已累积的 2 条记录, 实际 %d", len(txs))
	}
	if hits.Load() != 2 {
		t.Fatalf("4xx 不应重试, 实际请求 %d 次", hits.Load())
	}
}

func TestAcrossRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]any{"deposits": []any{acrossDepositJSON("0x01", yearStart+1, "filled")}})
	}))
	defer srv.Close()

	a := NewAcross(testOptions(srv.URL), nil, noopLogger())
	txs, err := a.FetchTransactions(context.Background(), "0xabc", yearStart, yearEnd)
	if err != nil {
		t.Fatalf("第三次尝试应成功: %v", err)
	}
	if len(txs) != 1 || hits.Load() != 3 {
		t.Fatalf("结果或请求次数不正确: %d 条, %d 次", len(txs), hits.Load())
	}
}

func TestAcrossOffsetCeiling(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int64(hits.Add(1))
		writeJSON(w, map[string]any{"deposits": []any{
			acrossDepositJSON("0xa"+strconv.FormatInt(n, 10), yearEnd-n*10, "filled"),
			acrossDepositJSON("0xb"+strconv.FormatInt(n, 10), yearEnd-n*10-1, "filled"),
		}})
	}))
	defer srv.Close()

	opts := testOptions(srv.URL)
	opts.MaxOffset = 4
	a := NewAcross(opts, nil, noopLogger())
	txs, err := a.FetchTransactions(context.Background(), "0xabc", yearStart, yearEnd)
	if err != nil {
		t.Fatalf("到达上限不是错误: %v", err)
	}
	// skip=0, 2, 4 are requested; the next offset 6 exceeds the ceiling.
	if hits.Load() != 3 || len(txs) != 6 {
		t.Fatalf("偏移上限未生效: %d 次请求, %d 条", hits.Load(), len(txs))
	}
}
