package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/loyalty/internal/config"
	"github.com/example/loyalty/internal/database"
	"github.com/example/loyalty/internal/handlers"
	"github.com/example/loyalty/internal/jobs"
	"github.com/example/loyalty/internal/rewards"
	"github.com/example/loyalty/internal/routes"
	"github.com/example/loyalty/internal/services"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg := config.Load()

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Warn("unknown LOG_LEVEL, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	db := database.Connect(cfg.DatabaseURL, gormLogLevel(level))

	schedule, err := rewards.LoadSchedule(cfg.RewardScheduleFile)
	if err != nil {
		log.WithError(err).Fatal("failed to load reward schedule")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.WithError(err).Fatal("failed to resolve reward timezone")
	}

	var notifier services.RewardNotifier
	if cfg.TelegramBotToken != "" {
		notifier = services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	}
	rewardService := services.NewRewardService(db, schedule, services.NewGormPurchaseAggregator(db), loc, notifier)

	app := fiber.New(fiber.Config{
		AppName:      "Loyalty Backend",
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, db, cfg, rewardService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var scheduler *jobs.Scheduler
	if cfg.RewardCronEnabled {
		scheduler = jobs.NewScheduler(rewardService, cfg.RewardCronSpec, loc)
		if err := scheduler.Start(ctx); err != nil {
			log.WithError(err).Fatal("failed to start reward scheduler")
		}
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			log.WithError(err).Error("fiber shutdown error")
		}
	}()

	log.Infof("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.WithError(err).Fatal("fiber.Listen error")
	}

	if scheduler != nil {
		scheduler.Stop()
	}
}

func gormLogLevel(level log.Level) gormlogger.LogLevel {
	switch {
	case level >= log.DebugLevel:
		return gormlogger.Info
	case level >= log.WarnLevel:
		return gormlogger.Warn
	default:
		return gormlogger.Error
	}
}
