package domain

import (
	"fmt"
	"sort"
	"time"
)

// PriceSeries is an ordered, time-ascending, uniquely-timestamped OHLCV
// series for one symbol and timeframe, laid out as columns aligned by index.
// The series is owned by the caller; analysis code never mutates it.
type PriceSeries struct {
	Symbol    string
	Timeframe string
	Times     []time.Time
	Open      []float64
	High      []float64
	Low       []float64
	Close     []float64
	Volume    []float64
}

// Len returns the number of bars in the series.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Close)
}

// LastClose returns the most recent close, or 0 for an empty series.
func (s *PriceSeries) LastClose() float64 {
	if s.Len() == 0 {
		return 0
	}
	return s.Close[len(s.Close)-1]
}

// Validate checks column alignment and timestamp ordering.
func (s *PriceSeries) Validate() error {
	n := len(s.Times)
	if len(s.Open) != n || len(s.High) != n || len(s.Low) != n ||
		len(s.Close) != n || len(s.Volume) != n {
		return fmt.Errorf("price series %s/%s: misaligned columns", s.Symbol, s.Timeframe)
	}
	for i := 1; i < n; i++ {
		if !s.Times[i].After(s.Times[i-1]) {
			return fmt.Errorf("price series %s/%s: timestamps not strictly ascending at index %d",
				s.Symbol, s.Timeframe, i)
		}
	}
	return nil
}

// SeriesFromCandles builds a columnar PriceSeries, sorting candles
// ascending by open time. Duplicate timestamps are collapsed, keeping the
// row that appeared last in the input.
func SeriesFromCandles(symbol, timeframe string, candles []*Candle) *PriceSeries {
	sorted := make([]*Candle, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OpenTime.Before(sorted[j].OpenTime)
	})

	s := &PriceSeries{
		Symbol:    symbol,
		Timeframe: timeframe,
		Times:     make([]time.Time, 0, len(candles)),
		Open:      make([]float64, 0, len(candles)),
		High:      make([]float64, 0, len(candles)),
		Low:       make([]float64, 0, len(candles)),
		Close:     make([]float64, 0, len(candles)),
		Volume:    make([]float64, 0, len(candles)),
	}
	for _, c := range sorted {
		if n := len(s.Times); n > 0 && c.OpenTime.Equal(s.Times[n-1]) {
			s.Open[n-1] = c.Open
			s.High[n-1] = c.High
			s.Low[n-1] = c.Low
			s.Close[n-1] = c.Close
			s.Volume[n-1] = c.Volume
			continue
		}
		s.Times = append(s.Times, c.OpenTime)
		s.Open = append(s.Open, c.Open)
		s.High = append(s.High, c.High)
		s.Low = append(s.Low, c.Low)
		s.Close = append(s.Close, c.Close)
		s.Volume = append(s.Volume, c.Volume)
	}
	return s
}
