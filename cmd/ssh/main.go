package main

import (
	"context"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"volguard/internal/anomaly"
	"volguard/internal/cache"
	"volguard/internal/config"
	"volguard/internal/db"
	"volguard/internal/provider"
	"volguard/internal/repository"
	"volguard/internal/service"
	"volguard/internal/stoploss"
	"volguard/internal/tui"
	"volguard/internal/volatility"
	"volguard/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
	gossh "golang.org/x/crypto/ssh"
)

// ctxKey is a typed context key to avoid collisions.
type ctxKey string

const sshUserKey ctxKey = "ssh_user"

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
	newWishServerFunc        = wish.NewServer
	setupSignalNotify        = ossignal.Notify
	waitForSignalFunc        = func(quit <-chan os.Signal) { <-quit }
)

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

	// Create repositories
	candleRepo := newCandleRepoFunc(db.Pool, tracer)
	stopRepo := newStopUpdateRepoFunc(db.Pool, tracer)
	sshUserRepo := newSSHUserRepoFunc(db.Pool, tracer)

	// Create services
	bybit := newBybitProviderFunc(tracer, cfg.BybitAPIKey, cfg.BybitAPISecret)
	marketService := newMarketServiceFunc(tracer, bybit, candleRepo, cache.Client)
	calculator := volatility.NewCalculator(historicalWindow)
	volatilityService := newVolatilityServiceFunc(
		tracer, candleRepo, calculator, cache.Client,
		cfg.Timeframes, time.Duration(cfg.VolatilityCacheSecs)*time.Second,
	)

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
	}

	// Build Wish SSH server
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.SSHPort)

	srv, err := newWishServerFunc(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			fingerprint := gossh.FingerprintSHA256(key)
			user, err := sshUserRepo.FindByFingerprint(context.Background(), fingerprint)
			if err != nil || user == nil {
				log.Printf("SSH auth denied: fingerprint=%s err=%v", fingerprint, err)
				return false
			}
			ctx.SetValue(sshUserKey, user)
			_ = sshUserRepo.UpdateLastLogin(context.Background(), user.ID)
			log.Printf("SSH auth accepted: user=%s fingerprint=%s", user.Username, fingerprint)
			return true
		}),
		wish.WithMiddleware(
			bubbletea.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				user, _ := s.Context().Value(sshUserKey).(*repository.SSHUser)

				username := "unknown"
				var userID int64
				if user != nil {
					username = user.Username
					userID = user.ID
				}

				svc := tui.Services{
					Market:     marketService,
					Volatility: volatilityService,
					Stops:      stopService,
					UserID:     userID,
					Username:   username,
				}

				model := tui.NewAppModel(svc)
				pty, _, _ := s.Pty()
				model.SetSize(pty.Window.Width, pty.Window.Height)

				return model, []tea.ProgramOption{tea.WithAltScreen()}
			}),
			logging.Middleware(),
		),
	)
	if err != nil {
		log.Fatalf("failed to create SSH server: %v", err)
	}

	if srv != nil {
		go func() {
			log.Printf("SSH server listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil {
				log.Printf("SSH server stopped: %v", err)
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down SSH server...")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("SSH server shutdown error: %v", err)
		}
	}

	log.Println("SSH server exited")
}
