package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"volguard/internal/domain"
	"volguard/internal/volatility"
)

func serviceTrendSeries(symbol, timeframe string, n int) *domain.PriceSeries {
	s := &domain.PriceSeries{
		Symbol:    symbol,
		Timeframe: timeframe,
		Times:     make([]time.Time, n),
		Open:      make([]float64, n),
		High:      make([]float64, n),
		Low:       make([]float64, n),
		Close:     make([]float64, n),
		Volume:    make([]float64, n),
	}
	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < n; i++ {
		s.Times[i] = t0.Add(time.Duration(i) * time.Hour)
		s.Open[i] = price
		price++
		s.Close[i] = price
		s.High[i] = price + 0.5
		s.Low[i] = s.Open[i] - 0.5
		s.Volume[i] = 100
	}
	return s
}

func newVolatilityFixture(cache RedisClient) *VolatilityService {
	repo := &fakeCandleRepo{series: map[string]*domain.PriceSeries{
		"1H": serviceTrendSeries("BTCUSDT", "1H", 120),
		"4H": serviceTrendSeries("BTCUSDT", "4H", 120),
	}}
	return NewVolatilityService(testTracer, repo, volatility.NewCalculator(100), cache,
		[]string{"1H", "4H"}, time.Minute)
}

func TestVolatilityServiceComputesAndCaches(t *testing.T) {
	t.Parallel()

	cache := newFakeRedis()
	svc := newVolatilityFixture(cache)

	tv, err := svc.GetTimeframeVolatility(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tv.Symbol != "BTCUSDT" || len(tv.Metrics) != 2 {
		t.Fatalf("unexpected result: %+v", tv)
	}
	if _, ok := cache.data["volatility:BTCUSDT"]; !ok {
		t.Fatal("expected computed metrics to be cached")
	}
}

func TestVolatilityServiceCacheHit(t *testing.T) {
	t.Parallel()

	cache := newFakeRedis()
	cached := &domain.TimeframeVolatility{
		Symbol: "BTCUSDT",
		Metrics: map[string]domain.VolatilityMetrics{
			"1H": {ATR: 42, Regime: domain.RegimeNormal},
		},
	}
	data, _ := json.Marshal(cached)
	_ = cache.Set(context.Background(), "volatility:BTCUSDT", data, 0)

	// Repo with no usable series: a cache hit must not touch it.
	svc := NewVolatilityService(testTracer, &fakeCandleRepo{}, volatility.NewCalculator(100), cache,
		[]string{"1H"}, time.Minute)

	tv, err := svc.GetTimeframeVolatility(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, err := tv.Get("1H")
	if err != nil || m.ATR != 42 {
		t.Fatalf("expected cached metrics, got %+v (%v)", m, err)
	}
}

func TestVolatilityServiceUnsupportedSymbol(t *testing.T) {
	t.Parallel()

	svc := newVolatilityFixture(nil)
	if _, err := svc.GetTimeframeVolatility(context.Background(), "FAKEUSDT"); err == nil {
		t.Fatal("expected error for unsupported symbol")
	}
}

func TestVolatilityServiceShortHistoryFails(t *testing.T) {
	t.Parallel()

	repo := &fakeCandleRepo{series: map[string]*domain.PriceSeries{
		"1H": serviceTrendSeries("BTCUSDT", "1H", 5),
	}}
	svc := NewVolatilityService(testTracer, repo, volatility.NewCalculator(100), nil,
		[]string{"1H"}, time.Minute)

	if _, err := svc.GetTimeframeVolatility(context.Background(), "BTCUSDT"); err == nil {
		t.Fatal("expected error for insufficient history")
	}
}

func TestVolatilityServiceGetOpportunity(t *testing.T) {
	t.Parallel()

	svc := newVolatilityFixture(newFakeRedis())

	sum, err := svc.GetOpportunity(context.Background(), "BTCUSDT", "1H")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.PrimaryTimeframe != "1H" {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	if _, err := svc.GetOpportunity(context.Background(), "BTCUSDT", "1D"); err == nil {
		t.Fatal("expected error for a primary timeframe outside the configured set")
	}
}
