package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/example/wildsearch/internal/bot"
	"github.com/example/wildsearch/internal/config"
	"github.com/example/wildsearch/internal/crawler"
	"github.com/example/wildsearch/internal/database"
	"github.com/example/wildsearch/internal/diff"
	"github.com/example/wildsearch/internal/export"
	"github.com/example/wildsearch/internal/notify"
	"github.com/example/wildsearch/internal/scheduler"
	"github.com/example/wildsearch/internal/tasks"
	"github.com/example/wildsearch/internal/throttle"
	"github.com/example/wildsearch/internal/track"
	"github.com/example/wildsearch/internal/web"
)

func main() {
	// A missing .env file is fine in production, variables come from the
	// environment there.
	_ = godotenv.Load()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if os.Getenv("LOG_PRETTY") != "" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	userRepo := database.NewUserRepository(db, cfg.DailyCatalogRequestsLimit)
	logRepo := database.NewLogRepository(db)
	guard := throttle.NewGuard(logRepo)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create telegram client")
	}
	logger.Info().Str("account", api.Self.UserName).Msg("authorized on telegram")

	notifier := notify.New(api, logger)
	tracker := track.NewAmplitude(cfg.AmplitudeAPIKey, logger)

	crawl := crawler.New(crawler.Config{
		APIKey:             cfg.CrawlAPIKey,
		ProjectID:          cfg.CrawlProjectID,
		RunURL:             cfg.CrawlRunURL,
		StorageURL:         cfg.CrawlStorageURL,
		CategorySpider:     cfg.CategorySpider,
		CategoryListSpider: cfg.CategoryListSpider,
	}, logger)

	queue := tasks.NewQueue(cfg.WorkerCount, 256, logger)
	app := tasks.NewApp(queue, userRepo, guard, crawl, notifier, tracker,
		cfg.StatsMaxAttempts, cfg.StatsRetryDelay, logger)

	cron := scheduler.New(logger)
	exporter := export.New(crawl, logRepo, notifier, tracker, cron,
		app.CheckRequestsCountRecovered, export.Config{
			Spider:      cfg.CategorySpider,
			Threshold:   cfg.ScheduledJobsThreshold,
			CallbackURL: cfg.JobFinishedCallbackURL,
		}, logger)

	broadcaster := diff.NewBroadcaster(crawl, userRepo, notifier, logger)
	server := web.New(app, broadcaster, queue, logger)

	b := bot.New(api, notifier, userRepo, logRepo, guard, exporter, queue, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)

	// The daily category crawl; its finish callback triggers the diff
	// broadcast through the web server.
	cron.DailyAt(cfg.CategoryDiffAt, "category_list_crawl", func() {
		runCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := crawl.RunJob(runCtx, cfg.CategoryListSpider, map[string]string{
			"callback_url": cfg.JobFinishedCallbackURL + "/category_list",
		}); err != nil {
			logger.Error().Err(err).Msg("failed to submit category list crawl")
		}
	})
	cron.Start()

	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("callback server listening")
		if err := server.Run(cfg.ListenAddr); err != nil {
			logger.Error().Err(err).Msg("callback server failed")
			stop()
		}
	}()

	// Blocks until the context is cancelled by a signal.
	b.Start(ctx)

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to stop callback server")
	}
	cron.Stop()
	queue.Stop()
}
