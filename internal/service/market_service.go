package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"volguard/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const tickerCacheTTL = 30 * time.Second

// MarketProvider is the exchange surface the market service consumes.
type MarketProvider interface {
	FetchTicker(ctx context.Context, symbol string) (*domain.PriceSnapshot, error)
	FetchCandles(ctx context.Context, symbol, timeframe string) ([]*domain.Candle, error)
}

type CandleRepository interface {
	GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]*domain.Candle, error)
	GetSeries(ctx context.Context, symbol, timeframe string, limit int) (*domain.PriceSeries, error)
	UpsertCandles(ctx context.Context, candles []*domain.Candle) error
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// MarketService orchestrates ticker and candle fetching, caching, and
// persistence.
type MarketService struct {
	tracer   trace.Tracer
	provider MarketProvider
	repo     CandleRepository
	redis    RedisClient
}

func NewMarketService(
	tracer trace.Tracer,
	provider MarketProvider,
	repo CandleRepository,
	redisClient RedisClient,
) *MarketService {
	return &MarketService{
		tracer:   tracer,
		provider: provider,
		repo:     repo,
		redis:    redisClient,
	}
}

// GetTicker returns the latest ticker for a symbol, cached briefly in Redis.
func (s *MarketService) GetTicker(ctx context.Context, symbol string) (*domain.PriceSnapshot, error) {
	_, span := s.tracer.Start(ctx, "market-service.get-ticker")
	defer span.End()

	if !domain.IsSupportedSymbol(symbol) {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}

	if s.redis != nil {
		cached, err := s.getTickerCache(ctx, symbol)
		if err != nil {
			log.Printf("redis cache read error: %v", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	snap, err := s.provider.FetchTicker(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if s.redis != nil {
		_ = s.setTickerCache(ctx, snap)
	}
	return snap, nil
}

// GetTickers returns the latest tickers for all supported symbols. Symbols
// whose fetch fails are skipped with a log line.
func (s *MarketService) GetTickers(ctx context.Context) ([]*domain.PriceSnapshot, error) {
	_, span := s.tracer.Start(ctx, "market-service.get-tickers")
	defer span.End()

	var snapshots []*domain.PriceSnapshot
	for _, symbol := range domain.SupportedSymbols {
		snap, err := s.GetTicker(ctx, symbol)
		if err != nil {
			log.Printf("ticker fetch failed for %s: %v", symbol, err)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("no ticker data available")
	}
	return snapshots, nil
}

// GetCandles returns stored candles for a symbol and timeframe, newest first.
func (s *MarketService) GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]*domain.Candle, error) {
	return s.repo.GetCandles(ctx, symbol, timeframe, limit)
}

// GetSeries loads the stored history as an ascending series.
func (s *MarketService) GetSeries(ctx context.Context, symbol, timeframe string, limit int) (*domain.PriceSeries, error) {
	return s.repo.GetSeries(ctx, symbol, timeframe, limit)
}

// RefreshCandles fetches the latest klines from the exchange and upserts
// them into Postgres.
func (s *MarketService) RefreshCandles(ctx context.Context, symbol, timeframe string) error {
	_, span := s.tracer.Start(ctx, "market-service.refresh-candles")
	defer span.End()

	candles, err := s.provider.FetchCandles(ctx, symbol, timeframe)
	if err != nil {
		return err
	}
	if err := s.repo.UpsertCandles(ctx, candles); err != nil {
		return fmt.Errorf("upsert candles for %s %s: %w", symbol, timeframe, err)
	}

	log.Printf("Refreshed %s %s (%d candles)", symbol, timeframe, len(candles))
	return nil
}

func (s *MarketService) setTickerCache(ctx context.Context, snapshot *domain.PriceSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, "ticker:"+snapshot.Symbol, data, tickerCacheTTL).Err()
}

func (s *MarketService) getTickerCache(ctx context.Context, symbol string) (*domain.PriceSnapshot, error) {
	data, err := s.redis.Get(ctx, "ticker:"+symbol).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snapshot domain.PriceSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
