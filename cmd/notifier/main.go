package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cuongbtq/iot-notifier/internal/config"
	"github.com/cuongbtq/iot-notifier/internal/notify"
	"github.com/cuongbtq/iot-notifier/internal/objectstore"
	"github.com/cuongbtq/iot-notifier/internal/telemetry"
	"github.com/cuongbtq/iot-notifier/internal/worker"
	"github.com/cuongbtq/iot-notifier/internal/worker/domain"
	"github.com/cuongbtq/iot-notifier/shared/logger"
	"github.com/cuongbtq/iot-notifier/shared/rabbitmq"
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

	defaultConfigPath := os.Getenv("NOTIFIER_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/notifier/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateNotifier(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLogger = appLogger.With(slog.String("service", cfg.App.Name))
	defer appLogger.Close()

	appLogger.Info("Starting notifier",
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("pubsub_backend", cfg.PubSub.Backend),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Failing to reach the broker at start-up is fatal; there is no reconnect
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQueueConnect, err)
	}
	defer rabbitClient.Close()

	store, err := objectstore.New(ctx, cfg.Storage, cfg.AWS.Region, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize object store: %w", err)
	}

	publisher, err := notify.NewPublisher(ctx, cfg.PubSub, cfg.AWS.Region, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize publisher: %w", err)
	}
	if closer, ok := publisher.(io.Closer); ok {
		defer closer.Close()
	}

	hub := notify.NewHubClient(cfg.Hub.Endpoint, cfg.Hub.Timeout, appLogger.Logger)
	appLogger.Info("Hub callback configured", slog.String("url", hub.URL()))

	telemetry.Register()
	var metricsServer *telemetry.Server
	if cfg.Metrics.Enabled {
		metricsServer = telemetry.NewServer(cfg.Metrics.Address, rabbitClient.IsConnected, appLogger.Logger)
		metricsServer.Start()
	}

	router := worker.NewRouter(
		worker.NewUploader(store, cfg.Storage.PresignTTL, appLogger.Logger),
		worker.NewDispatcher(publisher, hub, cfg.PubSub.TopicARN, appLogger.Logger),
		appLogger.Logger,
	)

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:        appLogger.Logger,
		Source:        rabbitClient,
		Router:        router,
		Concurrency:   cfg.Worker.Concurrency,
		PrefetchCount: cfg.RabbitMQ.Consumer.PrefetchCount,
		ConsumerTag:   cfg.RabbitMQ.Consumer.Tag,
		QueueName:     cfg.RabbitMQ.Queue.Name,
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- workerInstance.Start(ctx)
	}()

	appLogger.Info("Notifier started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
		cancel()
		<-errChan
	case amqpErr := <-rabbitClient.NotifyClose():
		appLogger.Error("RabbitMQ channel closed", slog.Any("error", amqpErr))
		runErr = fmt.Errorf("rabbitmq channel closed: %v", amqpErr)
		cancel()
		<-errChan
	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Error("Worker error", slog.Any("error", err))
			runErr = err
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	if err := workerInstance.Stop(shutdownCtx); err != nil {
		appLogger.Warn("Worker shutdown timeout exceeded, in-flight jobs abandoned")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Metrics server shutdown failed", slog.Any("error", err))
		}
	}

	appLogger.Info("Notifier shutdown complete")
	return runErr
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		Directory:    cfg.Directory,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
		MaxSizeMB:    cfg.MaxSizeMB,
		MaxBackups:   cfg.MaxBackups,
		MaxAgeDays:   cfg.MaxAgeDays,
		Compress:     cfg.Compress,
	})
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
	}, logger)
}
