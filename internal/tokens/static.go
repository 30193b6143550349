package tokens

import "strings"

// Symbol logos for the well-known assets.
var symbolLogos = map[string]string{
	"BNB":   "https://cryptologos.cc/logos/bnb-bnb-logo.png?v=040",
	"AVAX":  "https://cryptologos.cc/logos/avalanche-avax-logo.png?v=040",
	"DAI":   "https://cryptologos.cc/logos/multi-collateral-dai-dai-logo.png?v=040",
	"ETH":   "https://cryptologos.cc/logos/ethereum-eth-logo.png?v=040",
	"KAIA":  "https://cryptologos.cc/logos/kaia-kaia-logo.png?v=040",
	"MATIC": "https://cryptologos.cc/logos/polygon-matic-logo.png?v=040",
	"MON":   "https://assets.coingecko.com/coins/images/38927/large/monad.jpg",
	"POL":   "https://cryptologos.cc/logos/polygon-matic-logo.png?v=040",
	"SOPH":  "https://assets.coingecko.com/coins/images/38680/large/sophon_logo_200.png",
	"USDC":  "https://coin-images.coingecko.com/coins/images/6319/large/usdc.png",
	"USDT":  "https://coin-images.coingecko.com/coins/images/35023/large/USDT.png",
	"WETH":  "https://coin-images.coingecko.com/coins/images/2518/large/weth.png",
	"HYPE":  "https://assets.coingecko.com/coins/images/50882/large/hyperliquid.jpg",
}

// LogoForSymbol returns the known logo for a symbol.
func LogoForSymbol(symbol string) (string, bool) {
	logo, ok := symbolLogos[strings.ToUpper(strings.TrimSpace(symbol))]
	return logo, ok
}

type staticAsset struct {
	symbol    string
	name      string
	decimals  int32
	addresses []string
}

var staticAssets = []staticAsset{
	{
		symbol: "ETH", name: "Ethereum", decimals: 18,
		addresses: []string{
			"0x0000000000000000000000000000000000000000",
			"0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
		},
	},
	{
		symbol: "WETH", name: "Wrapped Ethereum", decimals: 18,
		addresses: []string{
			"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", // Ethereum
			"0x4200000000000000000000000000000000000006", // OP stack predeploy
			"0x82af49447d8a07e3bd95bd0d56f35241523fbab1", // Arbitrum
			"0x5300000000000000000000000000000000000004", // Scroll
		},
	},
	{
		symbol: "USDC", name: "USD Coin", decimals: 6,
		addresses: []string{
			"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", // Ethereum
			"0xaf88d065e77c8cc2239327c5edb3a432268e5831", // Arbitrum
			"0x0b2c639c533813f4aa9d7837caf62653d097ff85", // Optimism
			"0x833589fcd6edb6e08f4c7c32d4f71b54bda02913", // Base
			"0x3c499c542cef5e3811e1192ce70d8cc03d5c3359", // Polygon
			"0x2791bca1f2de4661ed88a30c99a7a9449aa84174", // Polygon (bridged)
			"0x8ac76a51cc950d9822d68b83fe1ad97b32cd580d", // BSC
			"0x5425890298aed601595a70ab815c96711a31bc65",
			"0x06efdbff2a14a7c8e15944d1f4a48f9f95f663a4", // Scroll
			"0x06a78e50142a4e9b2c6b49d47e5f0d1e1db33428",
			"0x176211869ca2b568f2a7d4ee941e073a821ee1ff", // Linea
			"0x750ba8b76187092b0d1e87e28daaf484d1b5273b", // zkSync
			"0x1d17cbcf0d6d143135ae902365d2e5e2a16538d4", // Zora
			"0x09bc4e0d864854c6afb6eb9a9cdf58ac190d0df9",
			"0xa8ce8aee21bc2a48a5ef670afcc9274c7bbbc035", // Polygon zkEVM
			"0xd9aaec86b65d86f6a7b5b1b0c42ffa531710b6ca", // Mode
		},
	},
	{
		symbol: "USDT", name: "Tether USD", decimals: 6,
		addresses: []string{
			"0xdac17f958d2ee523a2206206994597c13d831ec7", // Ethereum
			"0xfd086bc7cd5c481dcc9c85ebe478a1c0b69fcbb9", // Arbitrum
			"0x94b008aa00579c1307b0ef2c499ad98a8ce58e58", // Optimism
			"0x9702230a8ea53601f5cd2dc00fdbc13d4df4a8c7", // Avalanche
			"0xc2132d05d31c914a87c6611c10748aeb04b58e8f", // Polygon
			"0x55d398326f99059ff775485246999027b3197955", // BSC
			"0xf417f5a458ec102b90352f697d6e2ac3a3d2851f",
			"0x1e4a5963abfd975d8c9021ce480b42188849d41d",
			"0xf0f161fda2712db8b566946122a5af183995e2ed",
			"0x493257fd37edb34451f62edf8d2a0c418852ba4c", // zkSync
			"0x68f180fcce6836688e9084f035309e29bf0a2095",
		},
	},
	{
		symbol: "DAI", name: "Dai Stablecoin", decimals: 18,
		addresses: []string{
			"0x6b175474e89094c44da98b954eedeac495271d0f", // Ethereum
			"0xda10009cbd5d07dd0cecc66161fc93d7c9000da1", // Arbitrum, Optimism, Base
			"0x8f3cf7ad23cd3cadbd9735aff958023239c6a063", // Polygon
			"0x1af3f329e8be154074d8769d1ffa4ee058b1dbc3", // BSC
			"0xd586e7f844cea2f87f50152665bcbc2c279d8d70", // Avalanche
		},
	},
}

var staticIndex = buildStaticIndex()

func buildStaticIndex() map[string]Info {
	idx := make(map[string]Info)
	for _, asset := range staticAssets {
		logo, _ := LogoForSymbol(asset.symbol)
		for _, addr := range asset.addresses {
			idx[addr] = Info{
				Address:  addr,
				Symbol:   asset.symbol,
				Name:     asset.name,
				Decimals: asset.decimals,
				Logo:     logo,
			}
		}
	}
	return idx
}

// Static looks up a well-known token. It never performs I/O.
func Static(address string) (Info, bool) {
	info, ok := staticIndex[normalize(address)]
	return info, ok
}

// decimalsForSymbol is the heuristic applied to remotely resolved tokens.
func decimalsForSymbol(symbol string) int32 {
	switch strings.ToUpper(symbol) {
	case "USDC", "USDT":
		return 6
	default:
		return 18
	}
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
