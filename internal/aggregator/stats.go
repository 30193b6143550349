package aggregator

import (
	"time"

	"github.com/shopspring/decimal"

	"bridge-wrapped/internal/bridge"
)

// ChainStats describes one chain's share of the year's activity.
type ChainStats struct {
	ChainID    int64           `json:"chainId"`
	ChainName  string          `json:"chainName"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
	VolumeUSD  decimal.Decimal `json:"volumeUSD"`
	Color      string          `json:"color"`
	Logo       string          `json:"logo,omitempty"`
}

// TokenStats describes one token symbol's share of the year's activity.
type TokenStats struct {
	Symbol         string          `json:"symbol"`
	Address        string          `json:"address"`
	Count          int             `json:"count"`
	TotalVolumeUSD decimal.Decimal `json:"totalVolumeUSD"`
	Percentage     float64         `json:"percentage"`
	Logo           string          `json:"logo,omitempty"`
}

// DestinationCount is the dominant destination within a single day.
type DestinationCount struct {
	ChainID   int64  `json:"chainId"`
	ChainName string `json:"chainName"`
	Count     int    `json:"count"`
}

// BusiestDay is the UTC calendar day with the most transfers.
type BusiestDay struct {
	Date               string           `json:"date"`
	Count              int              `json:"count"`
	VolumeUSD          decimal.Decimal  `json:"volumeUSD"`
	PrimaryDestination DestinationCount `json:"primaryDestination"`
}

// MonthlyActivity is one calendar month of the requested year.
type MonthlyActivity struct {
	Month     string          `json:"month"`
	MonthName string          `json:"monthName"`
	Count     int             `json:"count"`
	VolumeUSD decimal.Decimal `json:"volumeUSD"`
}

// ProviderStats is a provider's raw contribution before deduplication.
type ProviderStats struct {
	Count     int             `json:"count"`
	VolumeUSD decimal.Decimal `json:"volumeUSD"`
}

// Stats is the complete wrapped summary for one address and year.
type Stats struct {
	WalletAddress string    `json:"walletAddress"`
	Year          int       `json:"year"`
	GeneratedAt   time.Time `json:"generatedAt"`

	TotalBridgingActions int             `json:"totalBridgingActions"`
	RawTransactionCount  int             `json:"rawTransactionCount"`
	TotalVolumeUSD       decimal.Decimal `json:"totalVolumeUSD"`

	MostUsedSourceChain      *ChainStats `json:"mostUsedSourceChain"`
	MostUsedDestinationChain *ChainStats `json:"mostUsedDestinationChain"`
	HighestVolumeDestination *ChainStats `json:"highestVolumeDestination"`
	MostBridgedToken         *TokenStats `json:"mostBridgedToken"`
	BusiestDay               *BusiestDay `json:"busiestDay"`

	ProviderBreakdown map[bridge.Provider]ProviderStats `json:"providerBreakdown"`
	MonthlyActivity   []MonthlyActivity                 `json:"monthlyActivity"`

	TopSourceChains      []ChainStats `json:"topSourceChains"`
	TopDestinationChains []ChainStats `json:"topDestinationChains"`
	TopTokens            []TokenStats `json:"topTokens"`

	UserClass UserClass `json:"userClass"`

	Transactions []bridge.Transaction `json:"transactions"`
}
