package volatility

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeframeMinutes parses a timeframe label ("15m", "1H", "4H", "1D")
// into its bar size in minutes.
func TimeframeMinutes(timeframe string) (int, error) {
	tf := strings.ToUpper(strings.TrimSpace(timeframe))
	if len(tf) < 2 {
		return 0, fmt.Errorf("unsupported timeframe format: %q", timeframe)
	}
	value, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("unsupported timeframe format: %q", timeframe)
	}
	switch tf[len(tf)-1] {
	case 'M':
		return value, nil
	case 'H':
		return value * 60, nil
	case 'D':
		return value * 1440, nil
	}
	return 0, fmt.Errorf("unsupported timeframe format: %q", timeframe)
}

// DynamicLookback returns the bar count covering roughly 16 trading hours
// at the given timeframe, with a floor of 10 bars for statistical
// significance.
func DynamicLookback(timeframe string) (int, error) {
	minutes, err := TimeframeMinutes(timeframe)
	if err != nil {
		return 0, err
	}
	periods := (16 * 60) / minutes
	if periods < 10 {
		periods = 10
	}
	return periods, nil
}
