package volatility

import (
	"math"

	"volguard/internal/domain"
	"volguard/internal/ta"
)

// Nature describes how directional versus chaotic the current volatility is.
type Nature struct {
	DirectionalStrength float64 `json:"directional_strength"`
	VolatilityScore     float64 `json:"volatility_score"`
	ChaosRatio          float64 `json:"chaos_ratio"`
	EfficiencyRatio     float64 `json:"efficiency_ratio"`
	DIRatio             float64 `json:"di_ratio"`
	MoneyFlowNorm       float64 `json:"money_flow_norm"`
}

// chaoticNature is the fail-safe result: fully chaotic, zero volatility,
// so downstream sizing defaults to minimum risk.
func chaoticNature() Nature {
	return Nature{ChaosRatio: 1}
}

// AnalyzeNature blends normalized ATR, ADX components, efficiency ratio and
// money flow into a directional-strength score on the last bar. NaN
// components from warm-up windows are treated as 0 before the weighted
// blend, biasing early evaluations toward chaos.
func AnalyzeNature(s *domain.PriceSeries, period int) Nature {
	if s.Len() < 2 || period <= 0 {
		return chaoticNature()
	}

	normATR := ta.NormalizedATRSeries(s.High, s.Low, s.Close, period)
	_, plusDI, minusDI := ta.ADXSeries(s.High, s.Low, s.Close, period)
	er := ta.EfficiencyRatioSeries(s.Close, period)
	mfr := ta.MoneyFlowRatioSeries(s.High, s.Low, s.Close, s.Volume, period)

	last := s.Len() - 1

	diRatio := 0.0
	if sum := plusDI[last] + minusDI[last]; sum > 1e-12 {
		diRatio = math.Abs(plusDI[last]-minusDI[last]) / sum
	}

	moneyFlowNorm := zeroNaN(mfr[last] / (1 + mfr[last]))

	erLast := zeroNaN(er[last])
	directional := 0.5*erLast + 0.3*diRatio + 0.2*moneyFlowNorm

	return Nature{
		DirectionalStrength: directional,
		VolatilityScore:     zeroNaN(normATR[last] / 100),
		ChaosRatio:          1 - directional,
		EfficiencyRatio:     erLast,
		DIRatio:             diRatio,
		MoneyFlowNorm:       moneyFlowNorm,
	}
}

const (
	ClassStronglyDirectional   = "STRONGLY_DIRECTIONAL"
	ClassModeratelyDirectional = "MODERATELY_DIRECTIONAL"
	ClassWeaklyDirectional     = "WEAKLY_DIRECTIONAL"
	ClassChaotic               = "CHAOTIC"

	ImplicationStrongOpportunity = "STRONG_OPPORTUNITY"
	ImplicationOpportunity       = "OPPORTUNITY"
	ImplicationNeutral           = "NEUTRAL"
	ImplicationRisk              = "RISK"
)

// Interpretation is the operational reading of a Nature result.
type Interpretation struct {
	VolatilityClass         domain.Regime `json:"volatility_class"`
	DirectionalClass        string        `json:"directional_class"`
	TradingImplication      string        `json:"trading_implication"`
	RiskAdjustment          float64       `json:"risk_adjustment"`
	IsStronglyDirectional   bool          `json:"is_strongly_directional"`
	IsModeratelyDirectional bool          `json:"is_moderately_directional"`
}

// Interpret classifies the volatility level and directionality of a Nature
// result. Extreme volatility that is still directional (chaos <= 0.6) is
// capped at HIGH rather than labeled EXTREME.
func Interpret(n Nature) Interpretation {
	volScore := n.VolatilityScore
	dirStrength := n.DirectionalStrength
	chaos := n.ChaosRatio

	var class domain.Regime
	switch {
	case volScore < 0.03:
		class = domain.RegimeLow
	case volScore < 0.06:
		class = domain.RegimeNormal
	case volScore < 0.12:
		class = domain.RegimeHigh
	case chaos > 0.6:
		class = domain.RegimeExtreme
	default:
		class = domain.RegimeHigh
	}

	strongly := dirStrength > 0.7 && chaos < 0.3
	moderately := dirStrength > 0.5 || chaos < 0.4

	var dirClass, implication string
	switch {
	case strongly:
		dirClass, implication = ClassStronglyDirectional, ImplicationStrongOpportunity
	case moderately:
		dirClass, implication = ClassModeratelyDirectional, ImplicationOpportunity
	case dirStrength > 0.3:
		dirClass, implication = ClassWeaklyDirectional, ImplicationNeutral
	default:
		dirClass, implication = ClassChaotic, ImplicationRisk
	}

	if class == domain.RegimeExtreme && !strongly {
		implication = ImplicationRisk
	}

	return Interpretation{
		VolatilityClass:         class,
		DirectionalClass:        dirClass,
		TradingImplication:      implication,
		RiskAdjustment:          RiskAdjustment(n),
		IsStronglyDirectional:   strongly,
		IsModeratelyDirectional: moderately,
	}
}

// RiskAdjustment derives the position-sizing multiplier from volatility
// nature: directional movement is rewarded, chaos is penalized harder than
// raw volatility, and the volatility penalty itself is chaos-weighted so a
// clean directional move keeps more size. Bounded to [0.2, 1.0].
func RiskAdjustment(n Nature) float64 {
	base := 1.0
	if n.DirectionalStrength > 0.7 && n.ChaosRatio < 0.3 {
		base = 1.2
	}

	directionalBonus := n.DirectionalStrength * 0.6
	chaosPenalty := n.ChaosRatio * 0.6
	volPenalty := n.VolatilityScore * 0.3 * math.Sqrt(math.Max(n.ChaosRatio, 0))

	final := base * (1 + directionalBonus) * (1 - chaosPenalty) * (1 - volPenalty)
	return clamp(final, 0.2, 1.0)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func zeroNaN(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
