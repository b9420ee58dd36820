package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"volguard/internal/domain"
	"volguard/internal/volatility"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const seriesLimit = 200

// VolatilityService computes per-symbol volatility metrics from stored
// candles, with a short Redis cache in front of the computation. Cached
// entries are read-side only; every miss recomputes from the full history.
type VolatilityService struct {
	tracer     trace.Tracer
	repo       CandleRepository
	calculator *volatility.Calculator
	redis      RedisClient
	timeframes []string
	cacheTTL   time.Duration
}

func NewVolatilityService(
	tracer trace.Tracer,
	repo CandleRepository,
	calculator *volatility.Calculator,
	redisClient RedisClient,
	timeframes []string,
	cacheTTL time.Duration,
) *VolatilityService {
	if len(timeframes) == 0 {
		timeframes = domain.SupportedTimeframes
	}
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	return &VolatilityService{
		tracer:     tracer,
		repo:       repo,
		calculator: calculator,
		redis:      redisClient,
		timeframes: timeframes,
		cacheTTL:   cacheTTL,
	}
}

// GetTimeframeVolatility returns the volatility evaluation for a symbol
// across the configured timeframes.
func (s *VolatilityService) GetTimeframeVolatility(ctx context.Context, symbol string) (*domain.TimeframeVolatility, error) {
	_, span := s.tracer.Start(ctx, "volatility-service.get-timeframe-volatility")
	defer span.End()

	if !domain.IsSupportedSymbol(symbol) {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}

	if s.redis != nil {
		cached, err := s.getCache(ctx, symbol)
		if err != nil {
			log.Printf("redis cache read error: %v", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	data := make(map[string]*domain.PriceSeries, len(s.timeframes))
	for _, tf := range s.timeframes {
		series, err := s.repo.GetSeries(ctx, symbol, tf, seriesLimit)
		if err != nil {
			return nil, fmt.Errorf("loading series for %s %s: %w", symbol, tf, err)
		}
		data[tf] = series
	}

	tv, err := s.calculator.ForTimeframes(symbol, data)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if err := s.setCache(ctx, tv); err != nil {
			log.Printf("redis cache write error for %s: %v", symbol, err)
		}
	}
	return tv, nil
}

// GetOpportunity returns the cross-timeframe opportunity summary anchored
// on the given primary timeframe.
func (s *VolatilityService) GetOpportunity(ctx context.Context, symbol, primaryTimeframe string) (*volatility.OpportunitySummary, error) {
	_, span := s.tracer.Start(ctx, "volatility-service.get-opportunity")
	defer span.End()

	tv, err := s.GetTimeframeVolatility(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return volatility.SummarizeOpportunity(tv, primaryTimeframe)
}

func (s *VolatilityService) setCache(ctx context.Context, tv *domain.TimeframeVolatility) error {
	data, err := json.Marshal(tv)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, "volatility:"+tv.Symbol, data, s.cacheTTL).Err()
}

func (s *VolatilityService) getCache(ctx context.Context, symbol string) (*domain.TimeframeVolatility, error) {
	data, err := s.redis.Get(ctx, "volatility:"+symbol).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tv domain.TimeframeVolatility
	if err := json.Unmarshal(data, &tv); err != nil {
		return nil, err
	}
	return &tv, nil
}
