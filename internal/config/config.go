package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"volguard/internal/domain"
)

type Config struct {
	TelegramBotToken string
	DatabaseURL      string
	RedisURL         string

	BybitAPIKey    string
	BybitAPISecret string

	// APIKey guards mutating HTTP endpoints. Empty disables auth.
	APIKey string

	Symbols          []string
	Timeframes       []string
	PrimaryTimeframe string

	CandlePollSecs       int
	StopMonitorSecs      int
	VolatilityCacheSecs  int
	AnomalyScreenEnabled bool

	StopTimeframe             string
	StopInitialMultiplier     float64
	StopFirstProfitMultiplier float64
	StopSecondProfitMult      float64
	StopFirstThresholdPct     float64
	StopSecondThresholdPct    float64

	SSHPort        int
	SSHHostKeyPath string
}

func Load() *Config {
	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		BybitAPIKey:      os.Getenv("BYBIT_API_KEY"),
		BybitAPISecret:   os.Getenv("BYBIT_API_SECRET"),
		APIKey:           os.Getenv("API_KEY"),
	}

	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.BybitAPIKey == "" || cfg.BybitAPISecret == "" {
		log.Println("Warning: BYBIT_API_KEY/BYBIT_API_SECRET not set, stop-loss management disabled")
	}

	cfg.Symbols = splitList(os.Getenv("SYMBOLS"))
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = domain.SupportedSymbols
	} else {
		for _, s := range cfg.Symbols {
			if !domain.IsSupportedSymbol(s) {
				log.Printf("Warning: SYMBOLS contains unsupported symbol %q", s)
			}
		}
	}

	cfg.Timeframes = splitList(os.Getenv("TIMEFRAMES"))
	if len(cfg.Timeframes) == 0 {
		cfg.Timeframes = domain.SupportedTimeframes
	} else {
		for _, tf := range cfg.Timeframes {
			if !domain.IsSupportedTimeframe(tf) {
				log.Printf("Warning: TIMEFRAMES contains unsupported timeframe %q", tf)
			}
		}
	}

	cfg.PrimaryTimeframe = strings.TrimSpace(os.Getenv("PRIMARY_TIMEFRAME"))
	if cfg.PrimaryTimeframe == "" {
		cfg.PrimaryTimeframe = "1H"
	}

	cfg.CandlePollSecs = 60
	if v := os.Getenv("CANDLE_POLL_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CandlePollSecs = n
		}
	}

	cfg.StopMonitorSecs = 60
	if v := os.Getenv("STOP_MONITOR_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.StopMonitorSecs = n
		}
	}

	cfg.VolatilityCacheSecs = 60
	if v := os.Getenv("VOLATILITY_CACHE_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.VolatilityCacheSecs = n
		}
	}

	cfg.AnomalyScreenEnabled = strings.EqualFold(strings.TrimSpace(os.Getenv("ANOMALY_SCREEN_ENABLED")), "true")

	cfg.StopTimeframe = strings.TrimSpace(os.Getenv("STOP_TIMEFRAME"))
	if cfg.StopTimeframe == "" {
		cfg.StopTimeframe = "1H"
	}
	cfg.StopInitialMultiplier = envFloat("STOP_INITIAL_MULTIPLIER", 1.5)
	cfg.StopFirstProfitMultiplier = envFloat("STOP_FIRST_PROFIT_MULTIPLIER", 2.0)
	cfg.StopSecondProfitMult = envFloat("STOP_SECOND_PROFIT_MULTIPLIER", 2.5)
	cfg.StopFirstThresholdPct = envFloat("STOP_FIRST_PROFIT_THRESHOLD", 1.0)
	cfg.StopSecondThresholdPct = envFloat("STOP_SECOND_PROFIT_THRESHOLD", 2.0)

	cfg.SSHPort = 2222
	if v := strings.TrimSpace(os.Getenv("SSH_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SSHPort = n
		}
	}
	cfg.SSHHostKeyPath = strings.TrimSpace(os.Getenv("SSH_HOST_KEY_PATH"))
	if cfg.SSHHostKeyPath == "" {
		cfg.SSHHostKeyPath = ".ssh/volguard_host_key"
	}

	return cfg
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s=%q, using %.2f", key, v, fallback)
		return fallback
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
