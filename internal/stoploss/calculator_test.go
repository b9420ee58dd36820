package stoploss

import (
	"strings"
	"testing"

	"volguard/internal/domain"
)

func testConfig() Config {
	return Config{
		Timeframe:                "1H",
		InitialMultiplier:        1.5,
		FirstProfitMultiplier:    2.0,
		SecondProfitMultiplier:   2.5,
		FirstProfitThresholdPct:  1.0,
		SecondProfitThresholdPct: 2.0,
	}
}

func ptr(v float64) *float64 { return &v }

func TestProfitBandThresholdsAreInclusive(t *testing.T) {
	c := NewCalculator(testConfig())

	cases := []struct {
		current float64
		want    domain.ProfitBand
		mult    float64
	}{
		{100.5, domain.BandInitial, 1.5},
		{101.0, domain.BandFirstProfit, 2.0},
		{101.9, domain.BandFirstProfit, 2.0},
		{102.0, domain.BandSecondProfit, 2.5},
		{96.0, domain.BandInitial, 1.5},
	}
	for _, tc := range cases {
		band, _, mult := c.ProfitBand(100, tc.current, domain.SideBuy)
		if band != tc.want || mult != tc.mult {
			t.Errorf("current=%.1f: band=%s mult=%.1f, want %s/%.1f", tc.current, band, mult, tc.want, tc.mult)
		}
	}
}

func TestProfitBandShortSide(t *testing.T) {
	c := NewCalculator(testConfig())
	band, profit, mult := c.ProfitBand(100, 98, domain.SideSell)
	if band != domain.BandSecondProfit || mult != 2.5 {
		t.Errorf("2%% short profit should hit second band, got %s/%.1f", band, mult)
	}
	if profit != 2.0 {
		t.Errorf("profit = %f, want 2.0", profit)
	}
}

func TestStopLossFirstProfitBand(t *testing.T) {
	c := NewCalculator(testConfig())

	// 1.5% profit sits between the two thresholds.
	u, err := c.StopLoss("BTCUSDT", 101.5, 100, 0.5, domain.SideBuy, 2, nil)
	if err != nil {
		t.Fatalf("StopLoss failed: %v", err)
	}
	if u.CurrentBand != domain.BandFirstProfit {
		t.Errorf("band = %s, want first_profit", u.CurrentBand)
	}
	if u.MultiplierUsed != 2.0 {
		t.Errorf("multiplier = %f, want 2.0", u.MultiplierUsed)
	}
	if u.NewStopLoss != 97.5 {
		t.Errorf("new stop = %f, want 97.5", u.NewStopLoss)
	}
	if !u.Changed() {
		t.Error("first stop placement must report a change")
	}
}

func TestStopLossSecondProfitBand(t *testing.T) {
	c := NewCalculator(testConfig())

	// 3% profit clears the 2% threshold, so the widest multiplier applies.
	u, err := c.StopLoss("BTCUSDT", 103, 100, 0.5, domain.SideBuy, 2, nil)
	if err != nil {
		t.Fatalf("StopLoss failed: %v", err)
	}
	if u.CurrentBand != domain.BandSecondProfit {
		t.Errorf("band = %s, want second_profit", u.CurrentBand)
	}
	if u.MultiplierUsed != 2.5 {
		t.Errorf("multiplier = %f, want 2.5", u.MultiplierUsed)
	}
	if u.NewStopLoss != 98.0 {
		t.Errorf("new stop = %f, want 98.0", u.NewStopLoss)
	}
}

func TestStopLossRatchetTightens(t *testing.T) {
	c := NewCalculator(testConfig())

	// 5% profit, second band: candidate 105 - 2*2.5 = 100 beats the old 99.
	u, err := c.StopLoss("BTCUSDT", 105, 100, 0.5, domain.SideBuy, 2, ptr(99.0))
	if err != nil {
		t.Fatalf("StopLoss failed: %v", err)
	}
	if u.NewStopLoss != 100.0 {
		t.Errorf("new stop = %f, want 100.0", u.NewStopLoss)
	}
	if !u.Changed() {
		t.Error("tightened stop must report a change")
	}
}

func TestStopLossRatchetNeverLoosens(t *testing.T) {
	c := NewCalculator(testConfig())

	// Pullback to 104 keeps the second band but the candidate 99.0
	// sits below the ratcheted 101.0. The previous level must survive.
	u, err := c.StopLoss("BTCUSDT", 104, 100, 0.5, domain.SideBuy, 2, ptr(101.0))
	if err != nil {
		t.Fatalf("StopLoss failed: %v", err)
	}
	if u.NewStopLoss != 101.0 {
		t.Errorf("stop must stay 101.0, got %f", u.NewStopLoss)
	}
	if u.Changed() {
		t.Error("no-op ratchet result must not report a change")
	}
	if !strings.Contains(u.Reason, "lower than current") {
		t.Errorf("reason should flag the no-op, got %q", u.Reason)
	}
}

func TestStopLossShortMirror(t *testing.T) {
	c := NewCalculator(testConfig())

	u, err := c.StopLoss("BTCUSDT", 97, 100, 0.5, domain.SideSell, 2, nil)
	if err != nil {
		t.Fatalf("StopLoss failed: %v", err)
	}
	// 3% short profit, second band, candidate 97 + 2*2.5 = 102.
	if u.NewStopLoss != 102.0 {
		t.Errorf("short stop = %f, want 102.0", u.NewStopLoss)
	}

	u, err = c.StopLoss("BTCUSDT", 98, 100, 0.5, domain.SideSell, 2, ptr(102.0))
	if err != nil {
		t.Fatalf("StopLoss failed: %v", err)
	}
	if u.NewStopLoss != 102.0 || u.Changed() {
		t.Errorf("short stop must not loosen upward: %+v", u)
	}
	if !strings.Contains(u.Reason, "higher than current") {
		t.Errorf("reason should flag the no-op, got %q", u.Reason)
	}
}

func TestStopLossRatchetSequence(t *testing.T) {
	c := NewCalculator(testConfig())

	var prev *float64
	best := 0.0
	for _, price := range []float64{101, 103, 105, 104, 107, 102, 110} {
		u, err := c.StopLoss("BTCUSDT", price, 100, 0.5, domain.SideBuy, 2, prev)
		if err != nil {
			t.Fatalf("StopLoss at price %.0f failed: %v", price, err)
		}
		if u.NewStopLoss < best {
			t.Fatalf("stop loosened from %.2f to %.2f at price %.0f", best, u.NewStopLoss, price)
		}
		best = u.NewStopLoss
		prev = &best
	}
}

func TestStopLossNormalizesSideAliases(t *testing.T) {
	c := NewCalculator(testConfig())

	long, err := c.StopLoss("BTCUSDT", 103, 100, 0.5, domain.Side("long"), 2, nil)
	if err != nil {
		t.Fatalf("long alias rejected: %v", err)
	}
	if long.NewStopLoss != 98.0 {
		t.Errorf("long alias stop = %f, want 98.0", long.NewStopLoss)
	}
	short, err := c.StopLoss("BTCUSDT", 98.5, 100, 0.5, domain.Side("short"), 2, nil)
	if err != nil {
		t.Fatalf("short alias rejected: %v", err)
	}
	if short.NewStopLoss != 102.5 {
		t.Errorf("short alias stop = %f, want 102.5", short.NewStopLoss)
	}
}

func TestStopLossValidation(t *testing.T) {
	c := NewCalculator(testConfig())

	if _, err := c.StopLoss("BTCUSDT", 103, 0, 0.5, domain.SideBuy, 2, nil); err == nil {
		t.Error("expected error for non-positive entry price")
	}
	if _, err := c.StopLoss("BTCUSDT", 0, 100, 0.5, domain.SideBuy, 2, nil); err == nil {
		t.Error("expected error for non-positive current price")
	}
	if _, err := c.StopLoss("BTCUSDT", 103, 100, 0.5, domain.Side("sideways"), 2, nil); err == nil {
		t.Error("expected error for unknown side")
	}
	if _, err := c.StopLoss("BTCUSDT", 103, 100, 0.5, domain.SideBuy, 0, nil); err == nil {
		t.Error("expected error for non-positive ATR")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	bad := DefaultConfig()
	bad.SecondProfitThresholdPct = 0.5
	if err := bad.Validate(); err == nil {
		t.Error("expected error when second threshold does not exceed first")
	}

	bad = DefaultConfig()
	bad.InitialMultiplier = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero multiplier")
	}

	bad = DefaultConfig()
	bad.Timeframe = ""
	if err := bad.Validate(); err == nil {
		t.Error("expected error for missing timeframe")
	}
}
