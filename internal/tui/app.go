// Package tui implements the SSH-facing terminal dashboard. It renders
// live tickers, volatility regimes, and the stop-loss audit trail for the
// monitored contracts.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"volguard/internal/domain"
	"volguard/internal/repository"
	"volguard/internal/service"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Services bundles everything the dashboard reads from. Stops may be nil
// when stop-loss management is not configured.
type Services struct {
	Market     *service.MarketService
	Volatility *service.VolatilityService
	Stops      *service.StopService
	UserID     int64
	Username   string
}

type tab int

const (
	tabTickers tab = iota
	tabRegimes
	tabStops
)

const (
	refreshInterval = 15 * time.Second
	loadTimeout     = 10 * time.Second
	historyDepth    = 20
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	tabStyle      = lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color("241"))
	activeTab     = lipgloss.NewStyle().Padding(0, 2).Bold(true).Foreground(lipgloss.Color("212"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	upStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	downStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type tickersMsg struct {
	snapshots []*domain.PriceSnapshot
	err       error
}

type regimesMsg struct {
	symbol  string
	regimes *domain.TimeframeVolatility
	err     error
}

type historyMsg struct {
	symbol  string
	records []repository.StopUpdateRecord
	err     error
}

type refreshMsg time.Time

// AppModel is the bubbletea model behind one SSH session.
type AppModel struct {
	svc      Services
	tab      tab
	width    int
	height   int
	selected int
	spin     spinner.Model

	tickers []*domain.PriceSnapshot
	regimes *domain.TimeframeVolatility
	history []repository.StopUpdateRecord

	loading  bool
	err      error
	quitting bool
}

func NewAppModel(svc Services) *AppModel {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	return &AppModel{svc: svc, spin: spin, loading: true}
}

// SetSize primes the terminal dimensions before the first WindowSizeMsg.
func (m *AppModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *AppModel) symbol() string {
	return domain.SupportedSymbols[m.selected]
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(m.loadCurrentTab(), m.spin.Tick, scheduleRefresh())
}

func scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m *AppModel) loadCurrentTab() tea.Cmd {
	switch m.tab {
	case tabRegimes:
		return m.loadRegimes()
	case tabStops:
		return m.loadHistory()
	default:
		return m.loadTickers()
	}
}

func (m *AppModel) loadTickers() tea.Cmd {
	svc := m.svc.Market
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		snapshots, err := svc.GetTickers(ctx)
		return tickersMsg{snapshots: snapshots, err: err}
	}
}

func (m *AppModel) loadRegimes() tea.Cmd {
	svc := m.svc.Volatility
	symbol := m.symbol()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		tv, err := svc.GetTimeframeVolatility(ctx, symbol)
		return regimesMsg{symbol: symbol, regimes: tv, err: err}
	}
}

func (m *AppModel) loadHistory() tea.Cmd {
	svc := m.svc.Stops
	symbol := m.symbol()
	return func() tea.Msg {
		if svc == nil {
			return historyMsg{symbol: symbol}
		}
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		records, err := svc.RecentUpdates(ctx, symbol, historyDepth)
		return historyMsg{symbol: symbol, records: records, err: err}
	}
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "tab", "right", "l":
			m.tab = (m.tab + 1) % 3
			m.loading = true
			m.err = nil
			return m, m.loadCurrentTab()
		case "shift+tab", "left", "h":
			m.tab = (m.tab + 2) % 3
			m.loading = true
			m.err = nil
			return m, m.loadCurrentTab()
		case "down", "j":
			m.selected = (m.selected + 1) % len(domain.SupportedSymbols)
			return m, m.reloadSymbolTab()
		case "up", "k":
			m.selected = (m.selected + len(domain.SupportedSymbols) - 1) % len(domain.SupportedSymbols)
			return m, m.reloadSymbolTab()
		case "r":
			m.loading = true
			return m, m.loadCurrentTab()
		}
		return m, nil

	case refreshMsg:
		return m, tea.Batch(m.loadCurrentTab(), scheduleRefresh())

	case tickersMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.tickers = msg.snapshots
		}
		return m, nil

	case regimesMsg:
		// Drop stale responses after the selection moved on.
		if msg.symbol != m.symbol() {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.regimes = msg.regimes
		}
		return m, nil

	case historyMsg:
		if msg.symbol != m.symbol() {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.history = msg.records
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *AppModel) reloadSymbolTab() tea.Cmd {
	if m.tab == tabTickers {
		return nil
	}
	m.loading = true
	m.err = nil
	return m.loadCurrentTab()
}

func (m *AppModel) View() string {
	if m.quitting {
		return "Bye.\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("volguard · %s", m.svc.Username)))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errStyle.Render(fmt.Sprintf("error: %v", m.err)))
	case m.loading:
		b.WriteString(m.spin.View() + " Loading...")
	case m.tab == tabTickers:
		b.WriteString(m.renderTickers())
	case m.tab == tabRegimes:
		b.WriteString(m.renderRegimes())
	default:
		b.WriteString(m.renderHistory())
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("tab: switch view · j/k: symbol · r: refresh · q: quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *AppModel) renderTabs() string {
	names := []string{"Tickers", "Regimes", "Stops"}
	parts := make([]string, len(names))
	for i, name := range names {
		if tab(i) == m.tab {
			parts[i] = activeTab.Render(name)
		} else {
			parts[i] = tabStyle.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *AppModel) renderTickers() string {
	if len(m.tickers) == 0 {
		return "No ticker data yet."
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-10s %14s %10s %16s", "SYMBOL", "PRICE", "24H%", "24H VOLUME")))
	b.WriteString("\n")
	for _, snap := range m.tickers {
		change := fmt.Sprintf("%+.2f%%", snap.Change24hPct)
		if snap.Change24hPct >= 0 {
			change = upStyle.Render(change)
		} else {
			change = downStyle.Render(change)
		}
		b.WriteString(fmt.Sprintf("%-10s %14.4f %10s %16.0f\n", snap.Symbol, snap.LastPrice, change, snap.Volume24h))
	}
	return b.String()
}

func (m *AppModel) renderRegimes() string {
	var b strings.Builder
	b.WriteString(selectedStyle.Render(m.symbol()))
	b.WriteString("\n\n")
	if m.regimes == nil {
		b.WriteString("No volatility data yet.")
		return b.String()
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-6s %-8s %9s %9s %10s %12s", "TF", "REGIME", "ATR%", "DIR", "OPPORT.", "RISK ADJ")))
	b.WriteString("\n")
	for _, tf := range domain.SupportedTimeframes {
		metrics, err := m.regimes.Get(tf)
		if err != nil {
			continue
		}
		b.WriteString(fmt.Sprintf("%-6s %-8s %8.2f%% %9.2f %10.0f %12.2f\n",
			tf, metrics.Regime, metrics.NormalizedATR, metrics.DirectionScore,
			metrics.OpportunityScore, metrics.RiskAdjustment))
	}
	return b.String()
}

func (m *AppModel) renderHistory() string {
	var b strings.Builder
	b.WriteString(selectedStyle.Render(m.symbol()))
	b.WriteString("\n\n")
	if m.svc.Stops == nil {
		b.WriteString("Stop-loss management not configured.")
		return b.String()
	}
	if len(m.history) == 0 {
		b.WriteString("No stop updates recorded.")
		return b.String()
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-17s %4s %-14s %12s %9s %8s", "TIME", "POS", "BAND", "STOP", "PROFIT%", "APPLIED")))
	b.WriteString("\n")
	for i := len(m.history) - 1; i >= 0; i-- {
		rec := m.history[i]
		applied := "no"
		if rec.Applied {
			applied = "yes"
		}
		b.WriteString(fmt.Sprintf("%-17s %4d %-14s %12.4f %8.2f%% %8s\n",
			rec.CreatedAt.Format("01-02 15:04:05"), rec.PositionIdx, rec.Update.CurrentBand,
			rec.Update.NewStopLoss, rec.Update.ProfitPct, applied))
	}
	return b.String()
}
