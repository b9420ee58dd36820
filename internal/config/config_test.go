package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("SYMBOLS", "")
	t.Setenv("TIMEFRAMES", "")
	t.Setenv("CANDLE_POLL_SECS", "")
	t.Setenv("STOP_MONITOR_SECS", "")
	t.Setenv("STOP_INITIAL_MULTIPLIER", "")

	cfg := Load()
	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected default redis url, got %s", cfg.RedisURL)
	}
	if len(cfg.Symbols) == 0 || len(cfg.Timeframes) == 0 {
		t.Fatal("expected default symbol and timeframe sets")
	}
	if cfg.PrimaryTimeframe != "1H" {
		t.Fatalf("expected default primary timeframe 1H, got %s", cfg.PrimaryTimeframe)
	}
	if cfg.CandlePollSecs != 60 || cfg.StopMonitorSecs != 60 {
		t.Fatalf("expected default poll intervals, got %d/%d", cfg.CandlePollSecs, cfg.StopMonitorSecs)
	}
	if cfg.StopInitialMultiplier != 1.5 || cfg.StopFirstProfitMultiplier != 2.0 || cfg.StopSecondProfitMult != 2.5 {
		t.Fatalf("unexpected default multipliers: %+v", cfg)
	}
	if cfg.StopFirstThresholdPct != 1.0 || cfg.StopSecondThresholdPct != 2.0 {
		t.Fatalf("unexpected default thresholds: %+v", cfg)
	}
	if cfg.AnomalyScreenEnabled {
		t.Fatal("anomaly screen should default to disabled")
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("BYBIT_API_KEY", "key")
	t.Setenv("BYBIT_API_SECRET", "secret")
	t.Setenv("SYMBOLS", "BTCUSDT, ETHUSDT")
	t.Setenv("TIMEFRAMES", "1H,4H")
	t.Setenv("CANDLE_POLL_SECS", "120")
	t.Setenv("STOP_SECOND_PROFIT_MULTIPLIER", "3.5")
	t.Setenv("ANOMALY_SCREEN_ENABLED", "true")

	cfg := Load()
	if cfg.TelegramBotToken != "token" || cfg.DatabaseURL != "postgres://example" || cfg.RedisURL != "redis:6379" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.BybitAPIKey != "key" || cfg.BybitAPISecret != "secret" {
		t.Fatalf("unexpected bybit credentials: %+v", cfg)
	}
	if len(cfg.Symbols) != 2 || cfg.Symbols[1] != "ETHUSDT" {
		t.Fatalf("expected trimmed symbol list, got %v", cfg.Symbols)
	}
	if len(cfg.Timeframes) != 2 {
		t.Fatalf("expected 2 timeframes, got %v", cfg.Timeframes)
	}
	if cfg.CandlePollSecs != 120 {
		t.Fatalf("expected poll secs 120, got %d", cfg.CandlePollSecs)
	}
	if cfg.StopSecondProfitMult != 3.5 {
		t.Fatalf("expected second multiplier 3.5, got %f", cfg.StopSecondProfitMult)
	}
	if !cfg.AnomalyScreenEnabled {
		t.Fatal("expected anomaly screen enabled")
	}

	t.Setenv("STOP_SECOND_PROFIT_MULTIPLIER", "bad")
	cfg = Load()
	if cfg.StopSecondProfitMult != 2.5 {
		t.Fatalf("invalid multiplier should fall back to default, got %f", cfg.StopSecondProfitMult)
	}
}
