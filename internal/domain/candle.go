package domain

import "time"

// Candle represents a single OHLCV candle for a symbol at a given timeframe.
type Candle struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// PriceSnapshot represents the latest ticker data for a symbol.
type PriceSnapshot struct {
	Symbol          string  `json:"symbol"`
	LastPrice       float64 `json:"last_price"`
	Volume24h       float64 `json:"volume_24h"`
	Change24hPct    float64 `json:"change_24h_pct"`
	LastUpdatedUnix int64   `json:"last_updated_unix"`
}

// SupportedSymbols lists the Bybit linear perpetual contracts we monitor.
var SupportedSymbols = []string{
	"BTCUSDT", "ETHUSDT", "SOLUSDT", "XRPUSDT", "ADAUSDT",
	"DOGEUSDT", "DOTUSDT", "AVAXUSDT", "LINKUSDT",
}

// SupportedTimeframes defines the candle timeframes we store and analyze.
var SupportedTimeframes = []string{"1m", "15m", "1H", "4H", "1D"}

// IsSupportedSymbol reports whether the symbol is in the monitored set.
func IsSupportedSymbol(symbol string) bool {
	for _, s := range SupportedSymbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// IsSupportedTimeframe reports whether the timeframe label is one we track.
func IsSupportedTimeframe(timeframe string) bool {
	for _, tf := range SupportedTimeframes {
		if tf == timeframe {
			return true
		}
	}
	return false
}
