package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/saturnino-fabrica-de-software/vigia/internal/alert"
	"github.com/saturnino-fabrica-de-software/vigia/internal/api"
	"github.com/saturnino-fabrica-de-software/vigia/internal/broker"
	"github.com/saturnino-fabrica-de-software/vigia/internal/config"
	"github.com/saturnino-fabrica-de-software/vigia/internal/database"
	"github.com/saturnino-fabrica-de-software/vigia/internal/identify"
	"github.com/saturnino-fabrica-de-software/vigia/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/vigia/internal/repository"
	"github.com/saturnino-fabrica-de-software/vigia/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Vigia",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer pool.Close()

	sqlDB, err := database.NewSQLDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	migrator, err := database.NewMigrator(sqlDB, cfg.DatabaseName)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	_ = migrator.Close()

	// Broker
	conn, err := broker.Connect(cfg.AmqpURL, cfg.AmqpExchange, cfg.ReconnectDelay,
		config.ComponentLogger(logger, "broker"))
	if err != nil {
		return fmt.Errorf("failed to connect broker: %w", err)
	}
	defer conn.Close()

	// Extraction and identification
	ext, err := service.NewExtractor(cfg)
	if err != nil {
		return err
	}

	personRepo := repository.NewPersonRepository(pool)
	recordingRepo := repository.NewRecordingRepository(pool)

	var notifier alert.Notifier
	if cfg.AlertWebhookURL != "" {
		notifier = alert.NewWebhookNotifier(cfg.AlertWebhookURL, cfg.AlertWebhookSecret,
			config.ComponentLogger(logger, "alert"))
	} else {
		notifier = alert.NewLogNotifier(config.ComponentLogger(logger, "alert"))
	}

	index := identify.NewIndex(personRepo)
	engine := identify.NewEngine(personRepo, index, notifier, config.ComponentLogger(logger, "identify"))
	dispatcher := identify.NewDispatcher(engine, cfg.DispatcherQueueLength, config.ComponentLogger(logger, "dispatcher"))
	dispatcher.Start()

	controller := pipeline.NewController(cfg, conn, ext, dispatcher, recordingRepo, logger)

	// HTTP surface
	router := api.NewRouter(logger, &api.Dependencies{
		DB:         pool,
		Controller: controller,
		Persons:    service.NewPersonService(personRepo, ext, index),
		Recordings: service.NewRecordingService(recordingRepo),
	})
	router.Setup()

	errChan := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.Int("port", cfg.Port))
		if err := router.Listen(cfg.Port); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	if err := router.Shutdown(); err != nil {
		logger.Error("http shutdown error", slog.Any("error", err))
	}
	if err := controller.StopAll(); err != nil {
		logger.Error("pipeline shutdown error", slog.Any("error", err))
	}
	dispatcher.Stop()

	logger.Info("stopped")
	return nil
}
