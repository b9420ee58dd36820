package tui

import (
	"strings"
	"testing"
	"time"

	"volguard/internal/domain"
	"volguard/internal/repository"
	"volguard/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"go.opentelemetry.io/otel/trace"
)

func keyMsg(s string) tea.KeyMsg {
	if s == "tab" {
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTabCycling(t *testing.T) {
	m := NewAppModel(Services{Username: "trader"})

	if m.tab != tabTickers {
		t.Fatalf("expected initial tab to be tickers, got %d", m.tab)
	}
	m.Update(keyMsg("tab"))
	if m.tab != tabRegimes {
		t.Fatalf("expected regimes tab after one cycle, got %d", m.tab)
	}
	m.Update(keyMsg("tab"))
	if m.tab != tabStops {
		t.Fatalf("expected stops tab after two cycles, got %d", m.tab)
	}
	m.Update(keyMsg("tab"))
	if m.tab != tabTickers {
		t.Fatalf("expected wrap back to tickers, got %d", m.tab)
	}
}

func TestSymbolNavigationWraps(t *testing.T) {
	m := NewAppModel(Services{})

	m.Update(keyMsg("k"))
	if m.symbol() != domain.SupportedSymbols[len(domain.SupportedSymbols)-1] {
		t.Fatalf("expected wrap to last symbol, got %s", m.symbol())
	}
	m.Update(keyMsg("j"))
	if m.symbol() != domain.SupportedSymbols[0] {
		t.Fatalf("expected wrap back to first symbol, got %s", m.symbol())
	}
}

func TestTickersMsgPopulatesView(t *testing.T) {
	m := NewAppModel(Services{Username: "trader"})

	m.Update(tickersMsg{snapshots: []*domain.PriceSnapshot{
		{Symbol: "BTCUSDT", LastPrice: 65000.5, Change24hPct: 2.3, Volume24h: 1.2e9},
	}})

	view := m.View()
	if !strings.Contains(view, "BTCUSDT") {
		t.Errorf("expected ticker row in view, got:\n%s", view)
	}
	if !strings.Contains(view, "trader") {
		t.Errorf("expected username in title, got:\n%s", view)
	}
}

func TestStaleRegimesMsgDropped(t *testing.T) {
	m := NewAppModel(Services{})
	m.tab = tabRegimes

	m.Update(regimesMsg{
		symbol:  "ETHUSDT",
		regimes: &domain.TimeframeVolatility{Symbol: "ETHUSDT"},
	})
	if m.regimes != nil {
		t.Fatal("expected response for a different symbol to be dropped")
	}

	m.Update(regimesMsg{
		symbol:  m.symbol(),
		regimes: &domain.TimeframeVolatility{Symbol: m.symbol()},
	})
	if m.regimes == nil {
		t.Fatal("expected response for the selected symbol to be kept")
	}
}

func TestRegimesViewRendersATRAsStoredPercent(t *testing.T) {
	m := NewAppModel(Services{})
	m.tab = tabRegimes
	m.loading = false

	// NormalizedATR is already a percentage of price; the view must not
	// rescale it.
	m.Update(regimesMsg{
		symbol: m.symbol(),
		regimes: &domain.TimeframeVolatility{
			Symbol: m.symbol(),
			Metrics: map[string]domain.VolatilityMetrics{
				"1H": {Regime: domain.RegimeNormal, NormalizedATR: 1.5, DirectionScore: 40, OpportunityScore: 55, RiskAdjustment: 0.8},
			},
		},
	})

	view := m.View()
	if !strings.Contains(view, "1.50%") {
		t.Errorf("expected ATR rendered as 1.50%%, got:\n%s", view)
	}
	if strings.Contains(view, "150.00%") {
		t.Errorf("ATR must not be rescaled by 100, got:\n%s", view)
	}
}

func TestHistoryViewWithoutStopService(t *testing.T) {
	m := NewAppModel(Services{})
	m.tab = tabStops
	m.loading = false

	view := m.View()
	if !strings.Contains(view, "not configured") {
		t.Errorf("expected unconfigured notice, got:\n%s", view)
	}
}

func TestHistoryViewRendersRecords(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	m := NewAppModel(Services{
		Stops: service.NewStopService(tracer, nil, nil, nil),
	})
	m.tab = tabStops
	m.loading = false
	m.history = []repository.StopUpdateRecord{
		{
			Symbol:      "BTCUSDT",
			PositionIdx: 1,
			Update: domain.StopLossUpdate{
				Symbol:      "BTCUSDT",
				CurrentBand: domain.BandFirstProfit,
				NewStopLoss: 64000,
				ProfitPct:   1.5,
			},
			Applied:   true,
			CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	view := m.View()
	if !strings.Contains(view, "first_profit") {
		t.Errorf("expected band in view, got:\n%s", view)
	}
	if !strings.Contains(view, "yes") {
		t.Errorf("expected applied marker in view, got:\n%s", view)
	}
}

func TestQuitKey(t *testing.T) {
	m := NewAppModel(Services{})

	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !strings.Contains(m.View(), "Bye") {
		t.Errorf("expected farewell view, got %q", m.View())
	}
}
