package sources

import "strings"

// trackedTickers is the allow-list every adapter emits records for.
var trackedTickers = []string{"USDC", "USDT", "DAI", "ETH", "WETH", "PYUSD"}

// isTracked reports whether symbol is exactly one of the tracked tickers.
func isTracked(symbol string) bool {
	for _, t := range trackedTickers {
		if symbol == t {
			return true
		}
	}
	return false
}

// containsAny reports whether symbol contains any of the given tickers.
// Pool symbols like "USDC-WETH" or "USDC.e" match their components.
func containsAny(symbol string, tickers []string) bool {
	for _, t := range tickers {
		if strings.Contains(symbol, t) {
			return true
		}
	}
	return false
}
