package job

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type stubRefresher struct {
	mu     sync.Mutex
	calls  []string
	errFor string
	err    error
}

func (s *stubRefresher) RefreshCandles(_ context.Context, symbol, timeframe string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, symbol+"/"+timeframe)
	if s.err != nil && symbol == s.errFor {
		return s.err
	}
	return nil
}

func (s *stubRefresher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}

func TestNewCandlePollerSplitsTimeframes(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	p := NewCandlePoller(tracer, &stubRefresher{}, []string{"BTCUSDT"},
		[]string{"1m", "15m", "1H", "4H", "1D"}, 1)

	if len(p.intraday) != 2 {
		t.Fatalf("expected 2 intraday timeframes, got %v", p.intraday)
	}
	if len(p.higher) != 3 {
		t.Fatalf("expected 3 higher timeframes, got %v", p.higher)
	}
	if p.pollInterval != time.Second {
		t.Fatalf("expected 1s interval, got %v", p.pollInterval)
	}
}

func TestCandlePollerStart(t *testing.T) {
	t.Parallel()

	tracer := trace.NewNoopTracerProvider().Tracer("test")
	stub := &stubRefresher{}
	p := NewCandlePoller(tracer, stub, []string{"BTCUSDT", "ETHUSDT"}, []string{"15m"}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go p.Start(ctx)

	eventually(t, func() bool { return stub.callCount() > 0 })
	cancel()
}

func TestRefreshBatchRoundRobin(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	stub := &stubRefresher{}
	p := NewCandlePoller(tracer, stub, []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}, []string{"15m", "1H"}, 1)

	idx := 0
	p.refreshBatch(context.Background(), &idx, 2, []string{"15m"})
	p.refreshBatch(context.Background(), &idx, 2, []string{"15m"})

	want := []string{"BTCUSDT/15m", "ETHUSDT/15m", "SOLUSDT/15m", "BTCUSDT/15m"}
	if len(stub.calls) != len(want) {
		t.Fatalf("expected %d calls, got %v", len(want), stub.calls)
	}
	for i, call := range want {
		if stub.calls[i] != call {
			t.Fatalf("call %d = %s, want %s", i, stub.calls[i], call)
		}
	}
}
