package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings, populated from environment variables.
type Config struct {
	// Telegram
	TelegramToken string

	// Database
	DatabaseDriver string // "sqlite3" or "postgres"
	DatabaseDSN    string

	// Inbound callback HTTP server
	ListenAddr string
	// Base URL the crawl backend calls back when a job finishes,
	// e.g. https://bot.example.com/callback
	JobFinishedCallbackURL string

	// Crawl queue backend
	CrawlAPIKey        string
	CrawlProjectID     string
	CrawlRunURL        string
	CrawlStorageURL    string
	CategorySpider     string // spider crawling one category's items
	CategoryListSpider string // spider crawling the full category tree

	// Scheduling and throttling
	ScheduledJobsThreshold    int
	DailyCatalogRequestsLimit int
	StatsMaxAttempts          int
	StatsRetryDelay           time.Duration
	WorkerCount               int
	CategoryDiffAt            string // "HH:MM", local time of the daily diff run

	// Analytics
	AmplitudeAPIKey string
}

// Load reads configuration from the environment. Only the Telegram token is
// mandatory; everything else has a workable default.
func Load() (*Config, error) {
	cfg := &Config{
		TelegramToken:             os.Getenv("TELEGRAM_API_TOKEN"),
		DatabaseDriver:            getEnv("DATABASE_DRIVER", "sqlite3"),
		DatabaseDSN:               getEnv("DATABASE_DSN", "data/wildsearch.db"),
		ListenAddr:                getEnv("LISTEN_ADDR", ":8080"),
		JobFinishedCallbackURL:    getEnv("JOB_FINISHED_CALLBACK", "http://localhost:8080/callback"),
		CrawlAPIKey:               os.Getenv("CRAWL_API_KEY"),
		CrawlProjectID:            getEnv("CRAWL_PROJECT_ID", "414324"),
		CrawlRunURL:               getEnv("CRAWL_RUN_URL", "https://app.scrapinghub.com/api/run.json"),
		CrawlStorageURL:           getEnv("CRAWL_STORAGE_URL", "https://storage.scrapinghub.com"),
		CategorySpider:            getEnv("CATEGORY_SPIDER", "wb"),
		CategoryListSpider:        getEnv("CATEGORY_LIST_SPIDER", "wb_categories"),
		ScheduledJobsThreshold:    getEnvInt("SCHEDULED_JOBS_THRESHOLD", 1),
		DailyCatalogRequestsLimit: getEnvInt("DAILY_CATALOG_REQUESTS_LIMIT", 5),
		StatsMaxAttempts:          getEnvInt("STATS_MAX_ATTEMPTS", 6),
		StatsRetryDelay:           getEnvDuration("STATS_RETRY_DELAY", 10*time.Second),
		WorkerCount:               getEnvInt("WORKER_COUNT", 4),
		CategoryDiffAt:            getEnv("CATEGORY_DIFF_AT", "09:00"),
		AmplitudeAPIKey:           os.Getenv("AMPLITUDE_API_KEY"),
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_API_TOKEN is not set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
