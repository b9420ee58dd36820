package domain

import (
	"fmt"
	"strings"
)

// Regime is the canonical four-level volatility classification.
type Regime string

const (
	RegimeLow     Regime = "LOW"
	RegimeNormal  Regime = "NORMAL"
	RegimeHigh    Regime = "HIGH"
	RegimeExtreme Regime = "EXTREME"
)

func (r Regime) IsValid() bool {
	switch r {
	case RegimeLow, RegimeNormal, RegimeHigh, RegimeExtreme:
		return true
	}
	return false
}

// Side is the position direction, using the exchange's Buy/Sell labels.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// ParseSide normalizes the side strings seen on position payloads.
func ParseSide(raw string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy", "long":
		return SideBuy, nil
	case "sell", "short":
		return SideSell, nil
	}
	return "", fmt.Errorf("unknown position side: %q", raw)
}

// ProfitBand classifies a position's unrealized profit into the tiers that
// drive stop-loss aggressiveness. It is recomputed on every evaluation,
// never stored.
type ProfitBand string

const (
	BandInitial      ProfitBand = "initial"
	BandFirstProfit  ProfitBand = "first_profit"
	BandSecondProfit ProfitBand = "second_profit"
)

// VolatilityMetrics holds the per-timeframe volatility evaluation. A fresh
// value is built on every analysis call and is never persisted.
type VolatilityMetrics struct {
	ATR                 float64 `json:"atr"`
	ATRPercentile       float64 `json:"atr_percentile"`
	NormalizedATR       float64 `json:"normalized_atr"`
	BBWidth             float64 `json:"bb_width"`
	BBWidthPercentile   float64 `json:"bb_width_percentile"`
	VolatilityChange24h float64 `json:"volatility_change_24h"`
	Regime              Regime  `json:"regime"`
	DirectionScore      float64 `json:"direction_score"`
	OpportunityScore    float64 `json:"opportunity_score"`
	RiskAdjustment      float64 `json:"risk_adjustment"`
}

// TimeframeVolatility maps timeframe labels to their metrics for one symbol.
type TimeframeVolatility struct {
	Symbol  string                       `json:"symbol"`
	Metrics map[string]VolatilityMetrics `json:"metrics"`
}

// Get returns the metrics for a timeframe or an error if absent.
func (tv *TimeframeVolatility) Get(timeframe string) (VolatilityMetrics, error) {
	m, ok := tv.Metrics[timeframe]
	if !ok {
		return VolatilityMetrics{}, fmt.Errorf("no metrics available for timeframe %s", timeframe)
	}
	return m, nil
}

// Position is a snapshot of one open position as reported by the exchange.
type Position struct {
	Symbol      string   `json:"symbol"`
	PositionIdx int      `json:"position_idx"`
	Side        Side     `json:"side"`
	Size        float64  `json:"size"`
	EntryPrice  float64  `json:"entry_price"`
	Leverage    float64  `json:"leverage"`
	StopLoss    *float64 `json:"stop_loss,omitempty"`
}

// StopLossUpdate is the result of one stop-loss evaluation for one position.
type StopLossUpdate struct {
	Symbol           string     `json:"symbol"`
	CurrentPrice     float64    `json:"current_price"`
	EntryPrice       float64    `json:"entry_price"`
	PositionSize     float64    `json:"position_size"`
	CurrentBand      ProfitBand `json:"current_band"`
	ProfitPct        float64    `json:"current_profit_percentage"`
	ATRValue         float64    `json:"atr_value"`
	NewStopLoss      float64    `json:"new_stop_loss"`
	PreviousStopLoss *float64   `json:"previous_stop_loss,omitempty"`
	MultiplierUsed   float64    `json:"multiplier_used"`
	Reason           string     `json:"reason"`
}

// Changed reports whether the evaluation moved the stop level. A no-op
// ratchet result carries the previous stop unchanged.
func (u *StopLossUpdate) Changed() bool {
	return u.PreviousStopLoss == nil || u.NewStopLoss != *u.PreviousStopLoss
}
