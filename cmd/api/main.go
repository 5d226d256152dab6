package main

import (
	"context"
	"net/http"
	"os"

	"github.com/forgecraft/craftvault-backend/api/routes"
	"github.com/forgecraft/craftvault-backend/internal/auth"
	"github.com/forgecraft/craftvault-backend/internal/fulfillment"
	"github.com/forgecraft/craftvault-backend/internal/players"
	"github.com/forgecraft/craftvault-backend/internal/playtime"
	"github.com/forgecraft/craftvault-backend/internal/pricing"
	"github.com/forgecraft/craftvault-backend/internal/promocodes"
	"github.com/forgecraft/craftvault-backend/internal/rcon"
	"github.com/forgecraft/craftvault-backend/internal/server"
	"github.com/forgecraft/craftvault-backend/internal/shop"
	"github.com/forgecraft/craftvault-backend/internal/transfers"
	"github.com/forgecraft/craftvault-backend/pkg/auth/session"
	"github.com/forgecraft/craftvault-backend/pkg/config"
	"github.com/forgecraft/craftvault-backend/pkg/db"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
	"github.com/forgecraft/craftvault-backend/pkg/migrate"
	"github.com/forgecraft/craftvault-backend/pkg/redis"
	"github.com/joho/godotenv"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	playersRepo := players.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		PlayerRepo:     playersRepo,
		SessionManager: sessionManager,
		RateLimiter:    redisClient,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	playerService, err := players.NewService(players.Params{
		Repo:     playersRepo,
		Tx:       dbClient,
		Password: cfg.Password,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create players service", err)
		os.Exit(1)
	}

	rconExecutor, err := rcon.NewExecutor(rcon.Params{
		Config: cfg.Rcon,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create rcon executor", err)
		os.Exit(1)
	}
	defer func() {
		if err := rconExecutor.Close(); err != nil {
			logg.Error(context.Background(), "error closing rcon connections", err)
		}
	}()

	execRepo := fulfillment.NewRepository(dbClient.DB())

	dispatcher, err := fulfillment.NewDispatcher(fulfillment.Params{
		Repo:     execRepo,
		Executor: rconExecutor,
		Config:   cfg.Fulfillment,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment dispatcher", err)
		os.Exit(1)
	}

	pricingResolver, err := pricing.NewResolver(pricing.Params{
		Repo: pricing.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing resolver", err)
		os.Exit(1)
	}

	shopRepo := shop.NewRepository(dbClient.DB())

	shopService, err := shop.NewService(shop.Params{
		Repo:       shopRepo,
		ExecRepo:   execRepo,
		Tx:         dbClient,
		Pricing:    pricingResolver,
		Dispatcher: dispatcher,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create shop service", err)
		os.Exit(1)
	}

	promoService, err := promocodes.NewService(promocodes.Params{
		Repo:   promocodes.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create promocodes service", err)
		os.Exit(1)
	}

	transferService, err := transfers.NewService(transfers.Params{
		Repo:   transfers.NewRepository(dbClient.DB()),
		Tx:     dbClient,
		Config: cfg.Transfers,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create transfers service", err)
		os.Exit(1)
	}

	serverService, err := server.NewService(server.Params{
		Repo:       server.NewRepository(dbClient.DB()),
		Executor:   rconExecutor,
		Executions: execRepo,
		Purchases:  shopRepo,
		Dispatcher: dispatcher,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create server service", err)
		os.Exit(1)
	}

	playtimeService, err := playtime.NewService(playtime.Params{
		Repo:   playtime.NewRepository(dbClient.DB()),
		Tx:     dbClient,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create playtime service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	srv := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			authService,
			playerService,
			shopService,
			promoService,
			transferService,
			serverService,
			playtimeService,
		),
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
