package stoploss

import (
	"fmt"
	"math"

	"volguard/internal/domain"
	"volguard/internal/ta"
)

const atrPeriod = 14

// Calculator computes stop-loss levels from ATR and position state. It is
// stateless; the monotonic ratchet is enforced against the previous stop
// passed in by the caller, not against any internal memory.
type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// ProfitBand classifies a position's unrealized profit and returns the band,
// the profit percentage, and the ATR multiplier the band carries. Threshold
// comparisons are inclusive, so a profit exactly at a threshold lands in the
// higher band.
func (c *Calculator) ProfitBand(entryPrice, currentPrice float64, side domain.Side) (domain.ProfitBand, float64, float64) {
	var profitPct float64
	if side == domain.SideSell {
		profitPct = (entryPrice - currentPrice) / entryPrice * 100
	} else {
		profitPct = (currentPrice - entryPrice) / entryPrice * 100
	}

	switch {
	case profitPct >= c.cfg.SecondProfitThresholdPct:
		return domain.BandSecondProfit, profitPct, c.cfg.SecondProfitMultiplier
	case profitPct >= c.cfg.FirstProfitThresholdPct:
		return domain.BandFirstProfit, profitPct, c.cfg.FirstProfitMultiplier
	default:
		return domain.BandInitial, profitPct, c.cfg.InitialMultiplier
	}
}

// ATR returns the latest ATR value for the series, or an error when the
// series is too short to produce one.
func (c *Calculator) ATR(s *domain.PriceSeries) (float64, error) {
	if s.Len() == 0 {
		return 0, fmt.Errorf("empty series for %s", s.Symbol)
	}
	atr := ta.ATRSeries(s.High, s.Low, s.Close, atrPeriod)
	last := atr[len(atr)-1]
	if math.IsNaN(last) {
		return 0, fmt.Errorf("insufficient history for ATR on %s: %d bars, need %d", s.Symbol, s.Len(), atrPeriod)
	}
	return last, nil
}

// StopLoss computes the next stop level for one position. Stops only ever
// tighten: a long stop never decreases and a short stop never increases,
// regardless of ATR contraction. A candidate that would loosen the stop
// returns the previous level unchanged with a reason, not an error.
func (c *Calculator) StopLoss(symbol string, currentPrice, entryPrice, positionSize float64,
	side domain.Side, atrValue float64, previousStop *float64) (domain.StopLossUpdate, error) {

	var u domain.StopLossUpdate
	if entryPrice <= 0 {
		return u, fmt.Errorf("invalid entry price %.8f for %s", entryPrice, symbol)
	}
	if currentPrice <= 0 {
		return u, fmt.Errorf("invalid current price %.8f for %s", currentPrice, symbol)
	}
	if atrValue <= 0 || math.IsNaN(atrValue) {
		return u, fmt.Errorf("invalid ATR value %.8f for %s", atrValue, symbol)
	}
	normalized, err := domain.ParseSide(string(side))
	if err != nil {
		return u, fmt.Errorf("stop loss for %s: %w", symbol, err)
	}

	band, profitPct, multiplier := c.ProfitBand(entryPrice, currentPrice, normalized)
	atrDistance := atrValue * multiplier

	u = domain.StopLossUpdate{
		Symbol:           symbol,
		CurrentPrice:     currentPrice,
		EntryPrice:       entryPrice,
		PositionSize:     positionSize,
		CurrentBand:      band,
		ProfitPct:        profitPct,
		ATRValue:         atrValue,
		PreviousStopLoss: previousStop,
		MultiplierUsed:   multiplier,
	}

	if normalized == domain.SideBuy {
		candidate := currentPrice - atrDistance
		if previousStop != nil && candidate <= *previousStop {
			u.NewStopLoss = *previousStop
			u.Reason = "new stop loss would be lower than current"
			return u, nil
		}
		u.NewStopLoss = candidate
	} else {
		candidate := currentPrice + atrDistance
		if previousStop != nil && candidate >= *previousStop {
			u.NewStopLoss = *previousStop
			u.Reason = "new stop loss would be higher than current"
			return u, nil
		}
		u.NewStopLoss = candidate
	}
	u.Reason = fmt.Sprintf("updated based on %s band", band)
	return u, nil
}
