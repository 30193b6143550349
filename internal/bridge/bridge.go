// Package bridge holds the provider-neutral transaction schema.
package bridge

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bridge-wrapped/internal/chains"
)

// Provider identifies the upstream indexer a record came from.
type Provider string

const (
	ProviderAcross Provider = "across"
	ProviderRelay  Provider = "relay"
	ProviderLiFi   Provider = "lifi"
)

// Providers lists every supported provider in canonical order.
var Providers = []Provider{ProviderAcross, ProviderRelay, ProviderLiFi}

// Status is the normalized lifecycle state of a transfer.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// NativeTokenAddress stands in for the chain's native asset.
const NativeTokenAddress = "0x0000000000000000000000000000000000000000"

// Transaction is one bridge transfer in the shared schema.
type Transaction struct {
	ID                   string          `json:"id"`
	Provider             Provider        `json:"provider"`
	TxHash               string          `json:"txHash"`
	Timestamp            int64           `json:"timestamp"`
	SourceChainID        int64           `json:"sourceChainId"`
	SourceChainName      string          `json:"sourceChainName"`
	DestinationChainID   int64           `json:"destinationChainId"`
	DestinationChainName string          `json:"destinationChainName"`
	TokenSymbol          string          `json:"tokenSymbol"`
	TokenAddress         string          `json:"tokenAddress"`
	Amount               string          `json:"amount"`
	AmountFormatted      decimal.Decimal `json:"amountFormatted"`
	AmountUSD            decimal.Decimal `json:"amountUSD"`
	Status               Status          `json:"status"`
}

// TxID derives the stable display id of a record.
func TxID(p Provider, txHash string, src, dst int64) string {
	return fmt.Sprintf("%s-%s-%d-%d", p, txHash, src, dst)
}

// DedupKey identifies the real-world transfer regardless of provider.
func (t Transaction) DedupKey() string {
	return fmt.Sprintf("%s-%d-%d", strings.ToLower(t.TxHash), t.SourceChainID, t.DestinationChainID)
}

// NewTransaction fills the derived fields (id, chain names, canonical token address).
func NewTransaction(p Provider, txHash string, ts, src, dst int64) Transaction {
	return Transaction{
		ID:                   TxID(p, txHash, src, dst),
		Provider:             p,
		TxHash:               txHash,
		Timestamp:            ts,
		SourceChainID:        src,
		SourceChainName:      chains.Name(src),
		DestinationChainID:   dst,
		DestinationChainName: chains.Name(dst),
		Status:               StatusPending,
		AmountFormatted:      decimal.Zero,
		AmountUSD:            decimal.Zero,
	}
}

// MapStatus folds a provider status string onto the three-state model.
func MapStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "filled", "success", "completed", "done":
		return StatusCompleted
	case "expired", "refunded", "failed", "cancelled":
		return StatusFailed
	default:
		return StatusPending
	}
}

// InRange reports whether ts lies in [start, end].
func InRange(ts, start, end int64) bool {
	return ts >= start && ts <= end
}

// CanonicalAddress lowercases and trims a token address; empty means native.
func CanonicalAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" {
		return NativeTokenAddress
	}
	return addr
}
