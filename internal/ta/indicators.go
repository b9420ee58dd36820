package ta

import "math"

// MeanStd returns the mean and population standard deviation of values.
func MeanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// sampleStd is the n-1 variant used for Bollinger bands.
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean, _ := MeanStd(values)
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)-1))
}

// EMASeries computes an exponential moving average with span semantics
// (alpha = 2/(span+1)), seeded with the first value.
func EMASeries(values []float64, span int) []float64 {
	if len(values) == 0 {
		return nil
	}
	if span <= 1 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	alpha := 2.0 / float64(span+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RollingMean computes a simple rolling mean. Positions with fewer than
// period samples are NaN.
func RollingMean(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// TrueRangeSeries computes the per-bar true range:
// max(high-low, |high-prevClose|, |low-prevClose|).
// The first bar has no previous close and degrades to high-low.
func TrueRangeSeries(high, low, closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		hl := high[i] - low[i]
		if i == 0 {
			out[i] = hl
			continue
		}
		hc := math.Abs(high[i] - closes[i-1])
		lc := math.Abs(low[i] - closes[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATRSeries is the simple rolling mean of true range over period.
// The first period-1 positions are NaN.
func ATRSeries(high, low, closes []float64, period int) []float64 {
	return RollingMean(TrueRangeSeries(high, low, closes), period)
}

// BollingerWidthSeries computes (upper-lower)/middle where the bands sit
// stdDevs sample standard deviations around the rolling mean of closes.
func BollingerWidthSeries(closes []float64, period int, stdDevs float64) []float64 {
	out := nanSeries(len(closes))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(closes); i++ {
		window := closes[i-period+1 : i+1]
		mean, _ := MeanStd(window)
		std := sampleStd(window)
		if mean == 0 {
			continue
		}
		upper := mean + stdDevs*std
		lower := mean - stdDevs*std
		out[i] = (upper - lower) / mean
	}
	return out
}

// ADXSeries computes the Average Directional Index and the +DI/-DI
// components. Directional movement and true range are exponentially
// smoothed with span=period. Zero denominators yield 0 rather than NaN;
// a flat smoothed true range is an expected steady-state condition.
func ADXSeries(high, low, closes []float64, period int) (adx, plusDI, minusDI []float64) {
	n := len(closes)
	posDM := make([]float64, n)
	negDM := make([]float64, n)
	for i := 1; i < n; i++ {
		highDiff := high[i] - high[i-1]
		absLowDiff := math.Abs(low[i] - low[i-1])
		if highDiff > absLowDiff {
			posDM[i] = highDiff
		}
		if absLowDiff > highDiff {
			negDM[i] = absLowDiff
		}
	}

	smoothTR := EMASeries(TrueRangeSeries(high, low, closes), period)
	smoothPos := EMASeries(posDM, period)
	smoothNeg := EMASeries(negDM, period)

	plusDI = make([]float64, n)
	minusDI = make([]float64, n)
	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		if smoothTR[i] != 0 {
			plusDI[i] = 100 * smoothPos[i] / smoothTR[i]
			minusDI[i] = 100 * smoothNeg[i] / smoothTR[i]
		}
		if sum := plusDI[i] + minusDI[i]; sum != 0 {
			dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / sum
		}
	}
	adx = EMASeries(dx, period)
	return adx, plusDI, minusDI
}

// EfficiencyRatioSeries measures movement cleanliness: net displacement
// over total path length within the window. 1.0 is perfectly directional,
// values near 0 are choppy. The first period positions are NaN, as is any
// window with zero path length.
func EfficiencyRatioSeries(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if period <= 0 {
		return out
	}
	for i := period; i < len(closes); i++ {
		displacement := math.Abs(closes[i] - closes[i-period])
		var path float64
		for j := i - period + 1; j <= i; j++ {
			path += math.Abs(closes[j] - closes[j-1])
		}
		if path != 0 {
			out[i] = displacement / path
		}
	}
	return out
}

// MoneyFlowRatioSeries is the rolling ratio of positive to negative money
// flow, where flow direction follows the typical price against its previous
// value. Warm-up positions and zero negative flow both yield neutral 1.0;
// a strong uptrend with no down-bars is an expected condition, not an error.
func MoneyFlowRatioSeries(high, low, closes, volume []float64, period int) []float64 {
	n := len(closes)
	typical := make([]float64, n)
	for i := 0; i < n; i++ {
		typical[i] = (high[i] + low[i] + closes[i]) / 3
	}

	posFlow := make([]float64, n)
	negFlow := make([]float64, n)
	for i := 1; i < n; i++ {
		flow := typical[i] * volume[i]
		if typical[i] > typical[i-1] {
			posFlow[i] = flow
		} else if typical[i] < typical[i-1] {
			negFlow[i] = flow
		}
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = 1.0
	}
	var posSum, negSum float64
	for i := 0; i < n; i++ {
		posSum += posFlow[i]
		negSum += negFlow[i]
		if i >= period {
			posSum -= posFlow[i-period]
			negSum -= negFlow[i-period]
		}
		if i >= period-1 && negSum != 0 {
			out[i] = posSum / negSum
		}
	}
	return out
}

// NormalizedATRSeries is ATR as a percentage of price (ATR/close * 100).
func NormalizedATRSeries(high, low, closes []float64, period int) []float64 {
	atr := ATRSeries(high, low, closes, period)
	out := nanSeries(len(closes))
	for i := range closes {
		if closes[i] != 0 {
			out[i] = atr[i] / closes[i] * 100
		}
	}
	return out
}

// PercentileRank returns the percentile (0-100) of the last value within
// the trailing window of the series, inclusive of the last value itself.
// Ties receive average-rank semantics. NaN positions in the window are
// ignored; a NaN last value yields NaN.
func PercentileRank(values []float64, window int) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	if window <= 0 || window > len(values) {
		window = len(values)
	}
	tail := values[len(values)-window:]
	last := tail[len(tail)-1]
	if math.IsNaN(last) {
		return math.NaN()
	}
	var count, less, equal int
	for _, v := range tail {
		if math.IsNaN(v) {
			continue
		}
		count++
		if v < last {
			less++
		} else if v == last {
			equal++
		}
	}
	if count == 0 {
		return math.NaN()
	}
	rank := float64(less) + (float64(equal)+1)/2
	return rank / float64(count) * 100
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
