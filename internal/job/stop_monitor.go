package job

import (
	"context"
	"log"
	"time"

	"volguard/internal/stoploss"

	"go.opentelemetry.io/otel/trace"
)

// StopRunner runs one stop-loss evaluation cycle for a symbol.
type StopRunner interface {
	UpdateStops(ctx context.Context, symbol string) (*stoploss.BatchResult, error)
}

// StopMonitor polls position stops for every configured symbol. Symbols are
// processed sequentially; a symbol-level failure logs, backs off briefly and
// moves on to the next symbol.
type StopMonitor struct {
	tracer       trace.Tracer
	runner       StopRunner
	symbols      []string
	pollInterval time.Duration
	backoff      time.Duration
}

func NewStopMonitor(tracer trace.Tracer, runner StopRunner, symbols []string, pollIntervalSecs int) *StopMonitor {
	return &StopMonitor{
		tracer:       tracer,
		runner:       runner,
		symbols:      symbols,
		pollInterval: time.Duration(pollIntervalSecs) * time.Second,
		backoff:      5 * time.Second,
	}
}

// Start blocks until ctx is cancelled, running one sweep immediately and
// then one per interval.
func (m *StopMonitor) Start(ctx context.Context) {
	log.Println("Stop monitor starting...")

	m.sweep(ctx)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Stop monitor stopped")
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *StopMonitor) sweep(ctx context.Context) {
	ctx, span := m.tracer.Start(ctx, "stop-monitor.sweep")
	defer span.End()

	for _, symbol := range m.symbols {
		result, err := m.runner.UpdateStops(ctx, symbol)
		if err != nil {
			log.Printf("stop monitor: cycle failed for %s: %v", symbol, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.backoff):
			}
			continue
		}
		for _, e := range result.Errors {
			log.Printf("stop monitor: %s: %s", symbol, e)
		}
	}
}
