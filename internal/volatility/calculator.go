package volatility

import (
	"fmt"
	"math"
	"sort"

	"volguard/internal/domain"
	"volguard/internal/ta"
)

const (
	defaultHistoricalWindow = 100
	defaultPeriod           = 14
	bollingerPeriod         = 20
	bollingerStdDevs        = 2.0
)

// Calculator computes volatility metrics per timeframe and aggregates them
// across timeframes. Every call recomputes from the full supplied history;
// nothing is cached between invocations.
type Calculator struct {
	historicalWindow int
	period           int
}

func NewCalculator(historicalWindow int) *Calculator {
	if historicalWindow <= 0 {
		historicalWindow = defaultHistoricalWindow
	}
	return &Calculator{historicalWindow: historicalWindow, period: defaultPeriod}
}

// Metrics computes the full volatility evaluation for one timeframe.
// It fails when the series is too short to produce an ATR at all; softer
// warm-up gaps (percentiles, Bollinger width) degrade to zero instead.
func (c *Calculator) Metrics(s *domain.PriceSeries, timeframe string) (domain.VolatilityMetrics, error) {
	var m domain.VolatilityMetrics
	if s.Len() == 0 {
		return m, fmt.Errorf("empty series for timeframe %s", timeframe)
	}

	atr := ta.ATRSeries(s.High, s.Low, s.Close, c.period)
	last := s.Len() - 1
	atrCurrent := atr[last]
	if math.IsNaN(atrCurrent) {
		return m, fmt.Errorf("insufficient history for timeframe %s: %d bars, need %d",
			timeframe, s.Len(), c.period)
	}

	price := s.LastClose()
	if price <= 0 {
		return m, fmt.Errorf("non-positive last price for timeframe %s", timeframe)
	}

	bbWidth := ta.BollingerWidthSeries(s.Close, bollingerPeriod, bollingerStdDevs)

	periods24h := 4
	if minutes, err := TimeframeMinutes(timeframe); err == nil && minutes > 0 {
		periods24h = 1440 / minutes
		if periods24h < 1 {
			periods24h = 1
		}
	}

	directionScore := c.DirectionalStrength(s, timeframe)

	m.ATR = atrCurrent
	m.ATRPercentile = zeroNaN(ta.PercentileRank(atr, c.historicalWindow))
	m.NormalizedATR = atrCurrent / price * 100
	m.BBWidth = zeroNaN(bbWidth[last])
	m.BBWidthPercentile = zeroNaN(ta.PercentileRank(bbWidth, c.historicalWindow))
	m.VolatilityChange24h = volatilityChange(atr, periods24h)
	m.DirectionScore = directionScore

	regime, opportunity := Context(m.ATRPercentile, m.BBWidthPercentile, directionScore, m.VolatilityChange24h)
	m.Regime = regime
	m.OpportunityScore = opportunity
	m.RiskAdjustment = Interpret(AnalyzeNature(s, c.period)).RiskAdjustment
	return m, nil
}

// ForTimeframes computes metrics for every supplied timeframe. Any single
// timeframe failure aborts the whole aggregation; partial results would be
// misleading for cross-timeframe confirmation.
func (c *Calculator) ForTimeframes(symbol string, data map[string]*domain.PriceSeries) (*domain.TimeframeVolatility, error) {
	timeframes := make([]string, 0, len(data))
	for tf := range data {
		timeframes = append(timeframes, tf)
	}
	sort.Strings(timeframes)

	metrics := make(map[string]domain.VolatilityMetrics, len(data))
	for _, tf := range timeframes {
		m, err := c.Metrics(data[tf], tf)
		if err != nil {
			return nil, fmt.Errorf("calculating metrics for %s: %w", tf, err)
		}
		metrics[tf] = m
	}
	return &domain.TimeframeVolatility{Symbol: symbol, Metrics: metrics}, nil
}

// DirectionalStrength scores trend direction in [-100, 100] over a window
// covering roughly 16 trading hours at the bar size. The EMA trend carries
// 70% of the score (±5% over the window is treated as full scale) and the
// up/down volume balance the remaining 30%. Insufficient data scores 0.
func (c *Calculator) DirectionalStrength(s *domain.PriceSeries, timeframe string) float64 {
	lookback, err := DynamicLookback(timeframe)
	if err != nil || s.Len() < lookback {
		return 0
	}

	start := s.Len() - lookback
	closes := s.Close[start:]
	ema := ta.EMASeries(closes, lookback)
	if ema[0] == 0 {
		return 0
	}
	trendPct := (ema[len(ema)-1] - ema[0]) / ema[0] * 100
	normalizedTrend := clampSigned(trendPct/5*100, 100)

	var upVol, downVol float64
	var upBars, downBars int
	for i := start; i < s.Len(); i++ {
		switch {
		case s.Close[i] > s.Open[i]:
			upVol += s.Volume[i]
			upBars++
		case s.Close[i] < s.Open[i]:
			downVol += s.Volume[i]
			downBars++
		}
	}
	var volumeRatio float64
	if upBars > 0 {
		upVol /= float64(upBars)
	}
	if downBars > 0 {
		downVol /= float64(downBars)
	}
	if total := upVol + downVol; total > 0 {
		volumeRatio = (upVol - downVol) / total * 100
	}

	return clampSigned(0.7*normalizedTrend+0.3*volumeRatio, 100)
}

// Context blends ATR and Bollinger-width percentiles with the 24h change
// into a 0-100 volatility score, derives the regime from it, and scales the
// opportunity by directional alignment. NaN inputs count as 0.
func Context(atrPct, bbPct, dirScore, volChange float64) (domain.Regime, float64) {
	atrPct = zeroNaN(atrPct)
	bbPct = zeroNaN(bbPct)
	dirScore = zeroNaN(dirScore)
	volChange = zeroNaN(volChange)

	volScore := 0.5*atrPct + 0.3*bbPct + 0.2*math.Min(math.Abs(volChange), 100)
	alignment := math.Abs(dirScore) / 100
	opportunity := clamp0to100(volScore * alignment)

	var regime domain.Regime
	switch {
	case volScore < 25:
		regime = domain.RegimeLow
	case volScore < 50:
		regime = domain.RegimeNormal
	case volScore < 75:
		regime = domain.RegimeHigh
	default:
		regime = domain.RegimeExtreme
	}
	return regime, opportunity
}

// regimeWeights discounts confirmation from timeframes whose volatility
// regime makes their opportunity score less trustworthy.
var regimeWeights = map[domain.Regime]float64{
	domain.RegimeLow:     0.7,
	domain.RegimeNormal:  1.0,
	domain.RegimeHigh:    0.8,
	domain.RegimeExtreme: 0.5,
}

// OpportunitySummary is the cross-timeframe opportunity view anchored on a
// primary timeframe.
type OpportunitySummary struct {
	PrimaryTimeframe  string  `json:"primary_timeframe"`
	PrimaryScore      float64 `json:"primary_score"`
	RiskAdjustedScore float64 `json:"risk_adjusted_score"`
	ConfirmationScore float64 `json:"confirmation_score"`
	OverallScore      float64 `json:"overall_score"`
	PositionSizing    float64 `json:"position_sizing"`
}

// SummarizeOpportunity scores the primary timeframe's opportunity, confirmed
// by non-primary timeframes that agree on direction and sit in a tradeable
// regime (NORMAL or HIGH).
func SummarizeOpportunity(tv *domain.TimeframeVolatility, primaryTimeframe string) (*OpportunitySummary, error) {
	primary, err := tv.Get(primaryTimeframe)
	if err != nil {
		return nil, err
	}

	var confirmations []float64
	for tf, m := range tv.Metrics {
		if tf == primaryTimeframe {
			continue
		}
		if m.DirectionScore*primary.DirectionScore <= 0 {
			continue
		}
		if m.Regime != domain.RegimeNormal && m.Regime != domain.RegimeHigh {
			continue
		}
		confirmations = append(confirmations, m.OpportunityScore*regimeWeights[m.Regime])
	}

	confirmation := 0.0
	if len(confirmations) > 0 {
		var sum float64
		for _, v := range confirmations {
			sum += v
		}
		confirmation = sum / float64(len(confirmations))
	}

	riskAdjusted := primary.OpportunityScore * primary.RiskAdjustment
	return &OpportunitySummary{
		PrimaryTimeframe:  primaryTimeframe,
		PrimaryScore:      primary.OpportunityScore,
		RiskAdjustedScore: riskAdjusted,
		ConfirmationScore: confirmation,
		OverallScore:      0.6*riskAdjusted + 0.4*confirmation,
		PositionSizing:    primary.RiskAdjustment,
	}, nil
}

func volatilityChange(atr []float64, periods int) float64 {
	if v, ok := atrChangeOver(atr, periods); ok {
		return v
	}
	if v, ok := atrChangeOver(atr, 4); ok {
		return v
	}
	return 0
}

func atrChangeOver(atr []float64, periods int) (float64, bool) {
	n := len(atr)
	if n == 0 {
		return 0, false
	}
	if periods >= n {
		periods = n / 2
	}
	if periods < 1 {
		return 0, false
	}
	current := atr[n-1]
	previous := atr[n-periods]
	if math.IsNaN(current) || math.IsNaN(previous) {
		return 0, false
	}
	if previous == 0 {
		return 0, true
	}
	return (current - previous) / previous * 100, true
}

func clamp0to100(v float64) float64 {
	return clamp(v, 0, 100)
}

func clampSigned(v, scale float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-scale, math.Min(scale, v))
}
