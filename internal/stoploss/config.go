package stoploss

import "fmt"

// Config holds the profit-band thresholds and ATR multipliers that drive
// stop placement. Thresholds are unrealized-profit percentages; multipliers
// scale the ATR distance between price and stop.
type Config struct {
	Timeframe                string
	InitialMultiplier        float64
	FirstProfitMultiplier    float64
	SecondProfitMultiplier   float64
	FirstProfitThresholdPct  float64
	SecondProfitThresholdPct float64
}

func DefaultConfig() Config {
	return Config{
		Timeframe:                "1H",
		InitialMultiplier:        1.5,
		FirstProfitMultiplier:    2.0,
		SecondProfitMultiplier:   2.5,
		FirstProfitThresholdPct:  1.0,
		SecondProfitThresholdPct: 2.0,
	}
}

func (c Config) Validate() error {
	if c.Timeframe == "" {
		return fmt.Errorf("stop loss config: timeframe is required")
	}
	if c.InitialMultiplier <= 0 || c.FirstProfitMultiplier <= 0 || c.SecondProfitMultiplier <= 0 {
		return fmt.Errorf("stop loss config: multipliers must be positive")
	}
	if c.FirstProfitThresholdPct <= 0 {
		return fmt.Errorf("stop loss config: first profit threshold must be positive")
	}
	if c.SecondProfitThresholdPct <= c.FirstProfitThresholdPct {
		return fmt.Errorf("stop loss config: second profit threshold (%.2f) must exceed first (%.2f)",
			c.SecondProfitThresholdPct, c.FirstProfitThresholdPct)
	}
	return nil
}
