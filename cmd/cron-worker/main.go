package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/forgecraft/craftvault-backend/internal/cron"
	"github.com/forgecraft/craftvault-backend/internal/fulfillment"
	"github.com/forgecraft/craftvault-backend/internal/notify"
	"github.com/forgecraft/craftvault-backend/internal/players"
	"github.com/forgecraft/craftvault-backend/internal/playtime"
	"github.com/forgecraft/craftvault-backend/internal/rcon"
	"github.com/forgecraft/craftvault-backend/internal/shop"
	"github.com/forgecraft/craftvault-backend/pkg/config"
	"github.com/forgecraft/craftvault-backend/pkg/db"
	"github.com/forgecraft/craftvault-backend/pkg/logger"
	"github.com/forgecraft/craftvault-backend/pkg/metrics"
	"github.com/forgecraft/craftvault-backend/pkg/migrate"
	"github.com/forgecraft/craftvault-backend/pkg/redis"
)

// The sweeper and the daily rewards run on different cadences, so each keeps
// its own service loop and its own Redis lock.
const (
	sweeperLockFormat = "cv:cron-worker:sweeper:lock:%s"
	rewardsLockFormat = "cv:cron-worker:rewards:lock:%s"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	sweeperJob, err := cron.NewSweeperJob(cron.SweeperJobParams{
		Logger:     logg,
		Executions: execRepo,
		Purchases:  shop.NewRepository(dbClient.DB()),
		Dispatcher: dispatcher,
		BatchSize:  cfg.Cron.SweepBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweeper job", err)
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

	playerService, err := players.NewService(players.Params{
		Repo:     players.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Password: cfg.Password,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create players service", err)
		os.Exit(1)
	}

	reporter, err := notify.NewTelegramReporter(cfg.Telegram, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create telegram reporter", err)
		os.Exit(1)
	}

	playtimeRewardsJob, err := cron.NewPlaytimeRewardsJob(cron.PlaytimeRewardsJobParams{
		Logger:   logg,
		Playtime: playtimeService,
		Reporter: reporter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create playtime rewards job", err)
		os.Exit(1)
	}

	chatRewardsJob, err := cron.NewChatRewardsJob(cron.ChatRewardsJobParams{
		Logger:   logg,
		Players:  playerService,
		Reporter: reporter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create chat rewards job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	sweeperLock, err := cron.NewRedisLock(redisClient, lockKey(sweeperLockFormat, cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweeper lock", err)
		os.Exit(1)
	}
	sweeperService, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweeperJob),
		Lock:     sweeperLock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.SweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweeper service", err)
		os.Exit(1)
	}

	rewardsLock, err := cron.NewRedisLock(redisClient, lockKey(rewardsLockFormat, cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create rewards lock", err)
		os.Exit(1)
	}
	rewardsService, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(playtimeRewardsJob, chatRewardsJob),
		Lock:     rewardsLock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.RewardsInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create rewards service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return sweeperService.Run(groupCtx) })
	group.Go(func() error { return rewardsService.Run(groupCtx) })

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(format, env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(format, env)
}
