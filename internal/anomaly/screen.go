package anomaly

import (
	"fmt"
	"math"

	"github.com/narumiruna/go-iforest/pkg/iforest"

	"volguard/internal/domain"
)

const (
	defaultThreshold = 0.65
	minBars          = 32
)

// Screen detects bars that look corrupted or manipulated relative to the
// rest of the series, using an isolation forest over simple per-bar shape
// features. It guards the stop-loss cycle against ratcheting off bad data.
type Screen struct {
	threshold float64
}

func NewScreen(threshold float64) *Screen {
	if threshold <= 0 || threshold >= 1 {
		threshold = defaultThreshold
	}
	return &Screen{threshold: threshold}
}

// Anomalous reports whether the latest bar of the series is an outlier. The
// forest is fitted on the whole series every call; series are small enough
// that refitting is cheaper than keeping model state fresh.
func (s *Screen) Anomalous(series *domain.PriceSeries) (bool, error) {
	if series.Len() < minBars {
		return false, fmt.Errorf("series too short to screen: %d bars, need %d", series.Len(), minBars)
	}

	samples := featureMatrix(series)
	forest := iforest.New()
	forest.Fit(samples)

	scores := forest.Score(samples)
	last := scores[len(scores)-1]
	return last >= s.threshold, nil
}

// featureMatrix builds one row per bar: range and body as a percentage of
// the close, and the log volume change against the prior bar.
func featureMatrix(s *domain.PriceSeries) [][]float64 {
	samples := make([][]float64, s.Len())
	for i := 0; i < s.Len(); i++ {
		closePrice := s.Close[i]
		if closePrice == 0 {
			closePrice = 1
		}
		rangePct := (s.High[i] - s.Low[i]) / closePrice * 100
		bodyPct := math.Abs(s.Close[i]-s.Open[i]) / closePrice * 100

		volumeDelta := 0.0
		if i > 0 && s.Volume[i-1] > 0 && s.Volume[i] > 0 {
			volumeDelta = math.Log(s.Volume[i] / s.Volume[i-1])
		}
		samples[i] = []float64{rangePct, bodyPct, volumeDelta}
	}
	return samples
}
