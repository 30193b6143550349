// Package chains is a static registry of EVM chain display metadata.
package chains

import "strconv"

// DefaultColor is used for chains missing from the registry.
const DefaultColor = "#6B7280"

// Info describes one chain.
type Info struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	ShortName     string `json:"shortName"`
	NativeSymbol  string `json:"nativeSymbol"`
	BlockExplorer string `json:"blockExplorer,omitempty"`
	Color         string `json:"color"`
	Logo          string `json:"logo,omitempty"`
}

var registry = map[int64]Info{
	1:       {ID: 1, Name: "Ethereum", ShortName: "ETH", NativeSymbol: "ETH", BlockExplorer: "https://etherscan.io", Color: "#627EEA", Logo: "https://assets.coingecko.com/coins/images/279/small/ethereum.png"},
	10:      {ID: 10, Name: "Optimism", ShortName: "OP", NativeSymbol: "ETH", BlockExplorer: "https://optimistic.etherscan.io", Color: "#FF0420", Logo: "https://assets.coingecko.com/coins/images/25244/small/Optimism.png"},
	56:      {ID: 56, Name: "BNB Chain", ShortName: "BSC", NativeSymbol: "BNB", BlockExplorer: "https://bscscan.com", Color: "#F0B90B", Logo: "https://assets.coingecko.com/asset_platforms/images/1/large/bnb_smart_chain.png"},
	100:     {ID: 100, Name: "Gnosis", ShortName: "GNO", NativeSymbol: "XDAI", BlockExplorer: "https://gnosisscan.io", Color: "#04795B"},
	137:     {ID: 137, Name: "Polygon", ShortName: "MATIC", NativeSymbol: "MATIC", BlockExplorer: "https://polygonscan.com", Color: "#8247E5", Logo: "https://assets.coingecko.com/coins/images/4713/small/polygon.png"},
	250:     {ID: 250, Name: "Fantom", ShortName: "FTM", NativeSymbol: "FTM", BlockExplorer: "https://ftmscan.com", Color: "#1969FF"},
	324:     {ID: 324, Name: "zkSync Era", ShortName: "zkSync", NativeSymbol: "ETH", BlockExplorer: "https://explorer.zksync.io", Color: "#8C8DFC"},
	999:     {ID: 999, Name: "Hyper EVM", ShortName: "HYPERLIQUID", NativeSymbol: "HYPE", BlockExplorer: "https://hyperevmscan.io", Color: "#000000", Logo: "https://assets.coingecko.com/asset_platforms/images/243/large/hyperliquid.png"},
	1101:    {ID: 1101, Name: "Polygon zkEVM", ShortName: "zkEVM", NativeSymbol: "ETH", BlockExplorer: "https://zkevm.polygonscan.com", Color: "#8247E5"},
	5000:    {ID: 5000, Name: "Mantle", ShortName: "MNT", NativeSymbol: "MNT", BlockExplorer: "https://explorer.mantle.xyz", Color: "#000000"},
	8217:    {ID: 8217, Name: "Kaia Mainnet", ShortName: "KAIA", NativeSymbol: "KAIA", BlockExplorer: "https://kaiascan.io", Color: "#FF6B00", Logo: "https://assets.coingecko.com/asset_platforms/images/9672/large/kaia.png"},
	8453:    {ID: 8453, Name: "Base", ShortName: "BASE", NativeSymbol: "ETH", BlockExplorer: "https://basescan.org", Color: "#0052FF", Logo: "https://pbs.twimg.com/profile_images/1945608199500910592/rnk6ixxH_400x400.jpg"},
	34443:   {ID: 34443, Name: "Mode", ShortName: "MODE", NativeSymbol: "ETH", BlockExplorer: "https://explorer.mode.network", Color: "#DFFE00"},
	41454:   {ID: 41454, Name: "Monad", ShortName: "MONAD", NativeSymbol: "MON", BlockExplorer: "https://monadvision.com", Color: "#8B5CF6", Logo: "https://assets.coingecko.com/coins/images/38927/large/monad.jpg"},
	42161:   {ID: 42161, Name: "Arbitrum One", ShortName: "ARB", NativeSymbol: "ETH", BlockExplorer: "https://arbiscan.io", Color: "#28A0F0", Logo: "https://assets.coingecko.com/coins/images/16547/small/photo_2023-03-29_21.47.00.jpeg"},
	42170:   {ID: 42170, Name: "Arbitrum Nova", ShortName: "NOVA", NativeSymbol: "ETH", BlockExplorer: "https://nova.arbiscan.io", Color: "#E57310"},
	43114:   {ID: 43114, Name: "Avalanche", ShortName: "AVAX", NativeSymbol: "AVAX", BlockExplorer: "https://snowtrace.io", Color: "#E84142", Logo: "https://assets.coingecko.com/coins/images/12559/small/Avalanche_Circle_RedWhite_Trans.png"},
	50104:   {ID: 50104, Name: "Sophon", ShortName: "SOPHON", NativeSymbol: "SOPH", BlockExplorer: "https://explorer.sophon.xyz", Color: "#6366F1", Logo: "https://assets.coingecko.com/coins/images/38680/large/sophon_logo_200.png"},
	59144:   {ID: 59144, Name: "Linea", ShortName: "LINEA", NativeSymbol: "ETH", BlockExplorer: "https://lineascan.build", Color: "#121212"},
	81457:   {ID: 81457, Name: "Blast", ShortName: "BLAST", NativeSymbol: "ETH", BlockExplorer: "https://blastscan.io", Color: "#FCFC03"},
	534352:  {ID: 534352, Name: "Scroll", ShortName: "SCROLL", NativeSymbol: "ETH", BlockExplorer: "https://scrollscan.com", Color: "#FFEEDA", Logo: "https://assets.coingecko.com/coins/images/50571/standard/scroll.jpg?1728376125"},
	7777777: {ID: 7777777, Name: "Zora", ShortName: "ZORA", NativeSymbol: "ETH", BlockExplorer: "https://explorer.zora.energy", Color: "#000000"},
}

// Lookup returns the registered entry for id.
func Lookup(id int64) (Info, bool) {
	info, ok := registry[id]
	return info, ok
}

// Get returns the registered entry, or a synthetic one for unknown ids.
func Get(id int64) Info {
	if info, ok := registry[id]; ok {
		return info
	}
	idStr := strconv.FormatInt(id, 10)
	return Info{
		ID:           id,
		Name:         "Chain " + idStr,
		ShortName:    idStr,
		NativeSymbol: "ETH",
		Color:        DefaultColor,
	}
}

// Name returns the display name, "Chain <id>" when unknown.
func Name(id int64) string {
	return Get(id).Name
}

// ShortName returns the ticker-style name.
func ShortName(id int64) string {
	return Get(id).ShortName
}

// Color returns the brand color, DefaultColor when unknown.
func Color(id int64) string {
	return Get(id).Color
}

// Logo returns the logo URL; ok is false when none is known.
func Logo(id int64) (string, bool) {
	info, found := registry[id]
	if !found || info.Logo == "" {
		return "", false
	}
	return info.Logo, true
}

// ExplorerTxURL links a transaction on the chain's block explorer.
func ExplorerTxURL(id int64, txHash string) string {
	info, ok := registry[id]
	if !ok || info.BlockExplorer == "" || txHash == "" {
		return ""
	}
	return info.BlockExplorer + "/tx/" + txHash
}
