package stoploss

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/trace"

	"volguard/internal/domain"
)

// MarketData supplies the price history and last price the manager works on.
type MarketData interface {
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
	FetchHistoricalData(ctx context.Context, symbol, timeframe string) (*domain.PriceSeries, error)
}

// PositionSource reports the open positions for a symbol.
type PositionSource interface {
	OpenPositions(ctx context.Context, symbol string) ([]domain.Position, error)
}

// OrderSink applies a stop-loss level on the exchange.
type OrderSink interface {
	SetStopLoss(ctx context.Context, symbol string, positionIdx int, stopLoss float64) error
}

// AnomalyScreen flags price series whose latest bars look corrupted or
// manipulated. A flagged series skips the whole update cycle for the symbol
// rather than ratchet stops off bad data.
type AnomalyScreen interface {
	Anomalous(s *domain.PriceSeries) (bool, error)
}

// PositionUpdate ties one evaluation result to the exchange position it
// belongs to.
type PositionUpdate struct {
	PositionIdx           int `json:"position_idx"`
	domain.StopLossUpdate `json:"update"`
}

// BatchResult aggregates one update cycle for one symbol. Per-position
// failures are recorded, never raised.
type BatchResult struct {
	Symbol  string           `json:"symbol"`
	Updates []PositionUpdate `json:"updates"`
	Errors  []string         `json:"errors,omitempty"`
}

// Manager evaluates every open position for a symbol and pushes tightened
// stops to the order sink. Positions are processed sequentially with
// per-position isolation.
type Manager struct {
	tracer    trace.Tracer
	cfg       Config
	calc      *Calculator
	market    MarketData
	positions PositionSource
	orders    OrderSink
	screen    AnomalyScreen
}

func NewManager(tracer trace.Tracer, cfg Config, market MarketData, positions PositionSource, orders OrderSink, screen AnomalyScreen) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		tracer:    tracer,
		cfg:       cfg,
		calc:      NewCalculator(cfg),
		market:    market,
		positions: positions,
		orders:    orders,
		screen:    screen,
	}, nil
}

// UpdatePositionStops runs one evaluation cycle for a symbol. A failure to
// fetch the price, history, or position list is fatal for the cycle; a
// failure on one position is recorded and the remaining positions still run.
func (m *Manager) UpdatePositionStops(ctx context.Context, symbol string) (*BatchResult, error) {
	ctx, span := m.tracer.Start(ctx, "stoploss-manager.update")
	defer span.End()

	currentPrice, err := m.market.GetCurrentPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetching current price for %s: %w", symbol, err)
	}
	series, err := m.market.FetchHistoricalData(ctx, symbol, m.cfg.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("fetching history for %s %s: %w", symbol, m.cfg.Timeframe, err)
	}
	atr, err := m.calc.ATR(series)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Symbol: symbol}

	if m.screen != nil {
		anomalous, err := m.screen.Anomalous(series)
		if err != nil {
			log.Printf("stoploss: anomaly screen failed for %s: %v", symbol, err)
		} else if anomalous {
			result.Errors = append(result.Errors, "anomalous market data, skipping stop updates")
			log.Printf("stoploss: anomalous market data for %s, skipping cycle", symbol)
			return result, nil
		}
	}

	positions, err := m.positions.OpenPositions(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetching positions for %s: %w", symbol, err)
	}

	for _, p := range positions {
		update, err := m.calc.StopLoss(symbol, currentPrice, p.EntryPrice, p.Size, p.Side, atr, p.StopLoss)
		if err != nil {
			log.Printf("stoploss: position %d on %s: %v", p.PositionIdx, symbol, err)
			result.Errors = append(result.Errors, fmt.Sprintf("position %d: %v", p.PositionIdx, err))
			continue
		}
		if update.Changed() {
			if err := m.orders.SetStopLoss(ctx, symbol, p.PositionIdx, update.NewStopLoss); err != nil {
				log.Printf("stoploss: setting stop for %s position %d: %v", symbol, p.PositionIdx, err)
				result.Errors = append(result.Errors, fmt.Sprintf("position %d: setting stop loss: %v", p.PositionIdx, err))
				continue
			}
			log.Printf("stoploss: %s position %d stop moved to %.4f (%s)", symbol, p.PositionIdx, update.NewStopLoss, update.CurrentBand)
		}
		result.Updates = append(result.Updates, PositionUpdate{PositionIdx: p.PositionIdx, StopLossUpdate: update})
	}
	return result, nil
}
