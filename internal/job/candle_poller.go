package job

import (
	"context"
	"log"
	"time"

	"volguard/internal/volatility"

	"go.opentelemetry.io/otel/trace"
)

// CandleRefresher pulls fresh klines from the exchange into storage.
type CandleRefresher interface {
	RefreshCandles(ctx context.Context, symbol, timeframe string) error
}

// CandlePoller keeps the candle store current. Intraday timeframes refresh
// on the configured interval a couple of symbols at a time; higher
// timeframes rotate through symbols on a slower cadence.
type CandlePoller struct {
	tracer       trace.Tracer
	market       CandleRefresher
	symbols      []string
	intraday     []string
	higher       []string
	pollInterval time.Duration
}

func NewCandlePoller(tracer trace.Tracer, market CandleRefresher, symbols, timeframes []string, pollIntervalSecs int) *CandlePoller {
	p := &CandlePoller{
		tracer:       tracer,
		market:       market,
		symbols:      symbols,
		pollInterval: time.Duration(pollIntervalSecs) * time.Second,
	}
	for _, tf := range timeframes {
		if minutes, err := volatility.TimeframeMinutes(tf); err == nil && minutes < 60 {
			p.intraday = append(p.intraday, tf)
		} else {
			p.higher = append(p.higher, tf)
		}
	}
	return p
}

// Start launches the polling goroutines and blocks until ctx is cancelled.
func (p *CandlePoller) Start(ctx context.Context) {
	log.Println("Candle poller starting...")

	go p.pollIntraday(ctx)
	go p.pollHigher(ctx)

	<-ctx.Done()
	log.Println("Candle poller stopped")
}

func (p *CandlePoller) pollIntraday(ctx context.Context) {
	if len(p.intraday) == 0 {
		return
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	symbolIndex := 0
	p.refreshBatch(ctx, &symbolIndex, 2, p.intraday)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refreshBatch(ctx, &symbolIndex, 2, p.intraday)
		}
	}
}

func (p *CandlePoller) pollHigher(ctx context.Context) {
	if len(p.higher) == 0 {
		return
	}

	// Stagger against the intraday loop before the first run.
	select {
	case <-ctx.Done():
		return
	case <-time.After(15 * time.Second):
	}

	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	symbolIndex := 0
	p.refreshBatch(ctx, &symbolIndex, 1, p.higher)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refreshBatch(ctx, &symbolIndex, 1, p.higher)
		}
	}
}

func (p *CandlePoller) refreshBatch(ctx context.Context, symbolIndex *int, count int, timeframes []string) {
	if len(p.symbols) == 0 {
		return
	}
	for i := 0; i < count; i++ {
		symbol := p.symbols[*symbolIndex%len(p.symbols)]
		*symbolIndex++

		for _, tf := range timeframes {
			if err := p.market.RefreshCandles(ctx, symbol, tf); err != nil {
				log.Printf("candle refresh error for %s %s: %v", symbol, tf, err)
			}
		}
	}
}
