package service

import (
	"context"
	"log"

	"volguard/internal/domain"
	"volguard/internal/repository"
	"volguard/internal/stoploss"

	"go.opentelemetry.io/otel/trace"
)

// StopUpdateRecorder persists the audit trail of stop-loss evaluations.
type StopUpdateRecorder interface {
	Record(ctx context.Context, positionIdx int, u domain.StopLossUpdate, applied bool) error
	RecentUpdates(ctx context.Context, symbol string, limit int) ([]repository.StopUpdateRecord, error)
}

// StopNotifier receives every applied ratchet move, e.g. for chat
// notifications.
type StopNotifier interface {
	NotifyStopApplied(symbol string, u stoploss.PositionUpdate)
}

// StopService drives the stop-loss manager across the configured symbols
// and records every evaluation. The audit write is best effort; a failed
// insert never blocks a stop update.
type StopService struct {
	tracer   trace.Tracer
	manager  *stoploss.Manager
	recorder StopUpdateRecorder
	notifier StopNotifier
	symbols  []string
}

// SetNotifier attaches a notifier for applied stop moves. Call before the
// monitor starts.
func (s *StopService) SetNotifier(n StopNotifier) {
	s.notifier = n
}

func NewStopService(tracer trace.Tracer, manager *stoploss.Manager, recorder StopUpdateRecorder, symbols []string) *StopService {
	if len(symbols) == 0 {
		symbols = domain.SupportedSymbols
	}
	return &StopService{
		tracer:   tracer,
		manager:  manager,
		recorder: recorder,
		symbols:  symbols,
	}
}

// UpdateStops runs one stop-loss cycle for a symbol.
func (s *StopService) UpdateStops(ctx context.Context, symbol string) (*stoploss.BatchResult, error) {
	ctx, span := s.tracer.Start(ctx, "stop-service.update-stops")
	defer span.End()

	result, err := s.manager.UpdatePositionStops(ctx, symbol)
	if err != nil {
		return nil, err
	}

	for _, update := range result.Updates {
		if s.recorder != nil {
			if err := s.recorder.Record(ctx, update.PositionIdx, update.StopLossUpdate, update.Changed()); err != nil {
				log.Printf("recording stop update for %s: %v", symbol, err)
			}
		}
		if s.notifier != nil && update.Changed() {
			s.notifier.NotifyStopApplied(symbol, update)
		}
	}
	return result, nil
}

// UpdateAllStops runs one cycle for every configured symbol. A symbol-level
// failure is logged and the remaining symbols still run.
func (s *StopService) UpdateAllStops(ctx context.Context) []*stoploss.BatchResult {
	ctx, span := s.tracer.Start(ctx, "stop-service.update-all-stops")
	defer span.End()

	results := make([]*stoploss.BatchResult, 0, len(s.symbols))
	for _, symbol := range s.symbols {
		result, err := s.UpdateStops(ctx, symbol)
		if err != nil {
			log.Printf("stop update cycle failed for %s: %v", symbol, err)
			continue
		}
		results = append(results, result)
	}
	return results
}

// RecentUpdates returns the persisted evaluation history for a symbol.
func (s *StopService) RecentUpdates(ctx context.Context, symbol string, limit int) ([]repository.StopUpdateRecord, error) {
	_, span := s.tracer.Start(ctx, "stop-service.recent-updates")
	defer span.End()

	if s.recorder == nil {
		return nil, nil
	}
	return s.recorder.RecentUpdates(ctx, symbol, limit)
}
