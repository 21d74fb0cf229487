package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-prediction-backend/internal/config"
	"telegram-prediction-backend/internal/infra/api"
	pg "telegram-prediction-backend/internal/infra/db/postgres"
	"telegram-prediction-backend/internal/infra/logging"
	"telegram-prediction-backend/internal/infra/metrics"
	red "telegram-prediction-backend/internal/infra/redis"
	"telegram-prediction-backend/internal/infra/sched"
	tele "telegram-prediction-backend/internal/infra/telegram"
	"telegram-prediction-backend/internal/infra/web"
	"telegram-prediction-backend/internal/infra/worker"
	"telegram-prediction-backend/internal/infra/ws"
	"telegram-prediction-backend/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (1-Star invoices)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled: all invoices are minted at 1 Star")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	productRepo := pg.NewCachedProductRepo(pg.NewProductRepo(pool), redisClient, cfg.Redis.TTL)
	paymentRepo := pg.NewPaymentRepo(pool)

	// ---- Telegram ----
	bot, err := tele.NewBot(&cfg.Bot, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram")
	}

	// ---- Side effects ----
	sideEffects := worker.NewPool(4, logger)
	sideEffects.Start(ctx)
	defer sideEffects.Stop()

	hub := ws.NewHub(logger)

	// ---- Use cases ----
	effects := usecase.NewEffectEngine(userRepo)
	catalogUC := usecase.NewCatalogUseCase(productRepo, paymentRepo, cfg.Store.DailyWindow, logger)
	storeUC := usecase.NewStoreUseCase(productRepo, paymentRepo, catalogUC, bot, tm, locker, cfg.Store.DailyWindow, cfg.Runtime.Dev, logger)
	settlementUC := usecase.NewSettlementUseCase(userRepo, productRepo, paymentRepo, catalogUC, storeUC, effects, tm, sideEffects, bot, hub, cfg.Runtime.Dev, logger)
	adminUC := usecase.NewAdminCatalogUseCase(productRepo, logger)

	updates := tele.NewUpdateHandler(bot, settlementUC, logger)

	// ---- Servers ----
	apiSrv := api.NewServer(cfg, storeUC, userRepo, updates, hub, logger)
	go func() {
		if err := apiSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("public API server")
		}
	}()

	adminSrv := web.NewServer(cfg, adminUC, logger)
	go func() {
		if err := adminSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("admin server")
		}
	}()

	// ---- Quota sweep ----
	sweep := sched.NewQuotaSweep(cfg.Sweep.Interval, cfg.Sweep.Window, userRepo, logger)
	go func() { _ = sweep.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("public API shutdown")
	}
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("admin shutdown")
	}
	cancel()
}
