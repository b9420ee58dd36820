package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"volguard/internal/anomaly"
	"volguard/internal/bot"
	"volguard/internal/cache"
	"volguard/internal/config"
	"volguard/internal/db"
	"volguard/internal/handler"
	"volguard/internal/job"
	"volguard/internal/provider"
	"volguard/internal/repository"
	"volguard/internal/service"
	"volguard/internal/stoploss"
	"volguard/internal/volatility"
	"volguard/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	_ "volguard/docs"
)

const historicalWindow = 100

var (
	loadEnvFunc           = godotenv.Load
	loadConfigFunc        = config.Load
	initPostgresFunc      = db.InitPostgres
	initRedisFunc         = cache.InitRedis
	initTracerFunc        = tracing.InitTracer
	newCandleRepoFunc     = repository.NewCandleRepository
	newStopUpdateRepoFunc = repository.NewStopUpdateRepository
	newSSHUserRepoFunc    = repository.NewSSHUserRepository
	newBybitProviderFunc  = func(tracer trace.Tracer, apiKey, apiSecret string) *provider.BybitProvider {
		return provider.NewBybitProvider(tracer, apiKey, apiSecret)
	}
	newMarketServiceFunc     = service.NewMarketService
	newVolatilityServiceFunc = service.NewVolatilityService
	newStopServiceFunc       = service.NewStopService
	newCandlePollerFunc      = job.NewCandlePoller
	newStopMonitorFunc       = job.NewStopMonitor
	startCandlePollerFunc    = func(p *job.CandlePoller, ctx context.Context) { go p.Start(ctx) }
	startStopMonitorFunc     = func(m *job.StopMonitor, ctx context.Context) { go m.Start(ctx) }
	startTelegramBotFunc     = bot.StartTelegramBot
	newHandlerFunc           = handler.New
	newRouterFunc            = gin.Default
	setupSignalNotify        = signal.Notify
	waitForSignalFunc        = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc      = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc   = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Volguard API
// @version         1.0
// @description     Volatility-regime analyzer and dynamic stop-loss manager for Bybit perpetuals.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Create repositories and run migrations
	candleRepo := newCandleRepoFunc(db.Pool, tracer)
	stopRepo := newStopUpdateRepoFunc(db.Pool, tracer)
	sshUserRepo := newSSHUserRepoFunc(db.Pool, tracer)
	if db.Pool != nil {
		if err := candleRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run candle migrations: %v", err)
		}
		if err := stopRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run stop update migrations: %v", err)
		}
		if err := sshUserRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run ssh user migrations: %v", err)
		}
	}

	// Create provider and services
	bybit := newBybitProviderFunc(tracer, cfg.BybitAPIKey, cfg.BybitAPISecret)
	marketService := newMarketServiceFunc(tracer, bybit, candleRepo, cache.Client)
	calculator := volatility.NewCalculator(historicalWindow)
	volatilityService := newVolatilityServiceFunc(
		tracer, candleRepo, calculator, cache.Client,
		cfg.Timeframes, time.Duration(cfg.VolatilityCacheSecs)*time.Second,
	)

	// Stop-loss management needs exchange credentials for the private API.
	var stopService *service.StopService
	if cfg.BybitAPIKey != "" && cfg.BybitAPISecret != "" {
		stopCfg := stoploss.Config{
			Timeframe:                cfg.StopTimeframe,
			InitialMultiplier:        cfg.StopInitialMultiplier,
			FirstProfitMultiplier:    cfg.StopFirstProfitMultiplier,
			SecondProfitMultiplier:   cfg.StopSecondProfitMult,
			FirstProfitThresholdPct:  cfg.StopFirstThresholdPct,
			SecondProfitThresholdPct: cfg.StopSecondThresholdPct,
		}
		var screen stoploss.AnomalyScreen
		if cfg.AnomalyScreenEnabled {
			screen = anomaly.NewScreen(0)
		}
		manager, err := stoploss.NewManager(tracer, stopCfg, bybit, bybit, bybit, screen)
		if err != nil {
			log.Fatalf("invalid stop-loss configuration: %v", err)
		}
		var recorder service.StopUpdateRecorder
		if db.Pool != nil {
			recorder = stopRepo
		}
		stopService = newStopServiceFunc(tracer, manager, recorder, cfg.Symbols)
	} else {
		log.Println("Stop-loss monitor disabled: no Bybit API credentials")
	}

	// Start background pollers, stopped by ctx cancel
	poller := newCandlePollerFunc(tracer, marketService, cfg.Symbols, cfg.Timeframes, cfg.CandlePollSecs)
	startCandlePollerFunc(poller, ctx)

	if stopService != nil {
		monitor := newStopMonitorFunc(tracer, stopService, cfg.Symbols, cfg.StopMonitorSecs)
		startStopMonitorFunc(monitor, ctx)
	}

	// Start Telegram bot
	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	notifier := startTelegramBotFunc(marketService, volatilityService, stopService)
	if stopService != nil && notifier != nil {
		stopService.SetNotifier(notifier)
	}

	// Create handlers and routes
	h := newHandlerFunc(tracer, marketService, volatilityService, stopService, cfg.PrimaryTimeframe, cfg.APIKey)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("volguard"))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
