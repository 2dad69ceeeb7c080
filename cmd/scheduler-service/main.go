package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/ottie-ai/scrapequeue/internal/api/router"
	"github.com/ottie-ai/scrapequeue/internal/config"
	"github.com/ottie-ai/scrapequeue/shared/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("SCHEDULER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/scheduler-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateSchedulerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting scheduler service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("cron_spec", cfg.Scheduler.CronSpec),
		slog.String("trigger_url", cfg.Queue.TriggerURL),
	)

	sweeper := newSweeper(cfg, appLogger.Logger)

	// Schedule the fallback sweep. The sweep is a safety net: the queue
	// normally drains through the self-retriggering chain, and each sweep
	// is a no-op unless the chain has stalled with work still pending.
	c := cron.New()
	if _, err := c.AddFunc(cfg.Scheduler.CronSpec, sweeper.sweep); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	c.Start()
	appLogger.Info("Scheduler service started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	appLogger.Info("Received signal, shutting down gracefully",
		slog.String("signal", sig.String()),
	)

	// Stop scheduling and wait for any in-flight sweep to finish
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
		appLogger.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		appLogger.Warn("Scheduler shutdown timeout exceeded, forcing exit")
	}

	appLogger.Info("Scheduler service shutdown complete")
	return nil
}

// sweeper posts the periodic fallback trigger to the queue's process endpoint
type sweeper struct {
	client       *http.Client
	triggerURL   string
	schedulerKey string
	batchSize    int
	logger       *slog.Logger
}

func newSweeper(cfg *config.Config, logger *slog.Logger) *sweeper {
	timeout := cfg.Scheduler.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &sweeper{
		client:       &http.Client{Timeout: timeout},
		triggerURL:   cfg.Queue.TriggerURL,
		schedulerKey: cfg.Queue.SchedulerKey,
		batchSize:    cfg.Scheduler.BatchSize,
		logger:       logger,
	}
}

// sweep fires one trigger request with the scheduler key. The API decides
// whether anything needs doing; the sweeper only reports the outcome.
func (s *sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
	defer cancel()

	var body io.Reader
	if s.batchSize > 0 {
		payload, err := json.Marshal(map[string]int{"batch": s.batchSize})
		if err != nil {
			s.logger.Error("Failed to marshal sweep payload",
				slog.Any("error", err),
			)
			return
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.triggerURL, body)
	if err != nil {
		s.logger.Error("Failed to build sweep request",
			slog.Any("error", err),
		)
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(router.SchedulerKeyHeader, s.schedulerKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("Sweep request failed",
			slog.String("url", s.triggerURL),
			slog.Any("error", err),
		)
		return
	}
	defer resp.Body.Close()

	var result struct {
		Success   bool   `json:"success"`
		Message   string `json:"message"`
		Skipped   bool   `json:"skipped"`
		Processed int    `json:"processed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		s.logger.Warn("Sweep response was not decodable",
			slog.Int("status_code", resp.StatusCode),
			slog.Any("error", err),
		)
		return
	}

	switch {
	case resp.StatusCode != http.StatusOK:
		s.logger.Error("Sweep rejected by API",
			slog.Int("status_code", resp.StatusCode),
			slog.String("message", result.Message),
		)
	case result.Skipped:
		s.logger.Debug("Sweep skipped",
			slog.String("message", result.Message),
		)
	default:
		s.logger.Info("Sweep triggered processing",
			slog.String("message", result.Message),
			slog.Int("processed", result.Processed),
		)
	}
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}
