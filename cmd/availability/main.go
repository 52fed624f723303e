package main

import (
	"os"

	"fleetops/internal/availability/handler"
	"fleetops/internal/availability/repository"
	"fleetops/internal/availability/service"
	"fleetops/internal/availability/validator"
	"fleetops/internal/availability/worker"
	"fleetops/pkg/app"
	"fleetops/pkg/config"
	"fleetops/pkg/kafka"
	kafkaconfig "fleetops/pkg/kafka/config"
)

const (
	ServiceName = "availability"
	DLQTopic    = "fleet.events.dlq"
)

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	publisher, closePublisher := initPublisher(cfg)
	defer closePublisher()

	cfg.Log.Info("Starting Availability service")
	blockService, holdService, cleanupService := initServices(cfg, publisher)

	scheduler := worker.NewCleanupScheduler(cleanupService, cfg.CleanupInterval, cfg.Log)
	scheduler.Start()
	defer scheduler.Stop()

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewAvailabilityHandler(
		blockService,
		holdService,
		cleanupService,
		cfg.CleanupSecret,
		cfg.Log,
	))
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher kafka.Publisher) (service.BlockService, service.HoldService, service.CleanupService) {
	blockValidator := validator.NewBlockValidator(cfg.Log)
	blockRepo := repository.NewMongoBlockRepository(cfg)
	lockRepo := repository.NewSlotLockRepository(cfg)

	blockService := service.NewBlockService(blockRepo, lockRepo, blockValidator, publisher, cfg)
	holdService := service.NewHoldService(blockRepo, lockRepo, blockValidator, publisher, cfg)
	cleanupService := service.NewCleanupService(blockRepo, publisher, cfg)

	cfg.Log.Info("Availability services initialized", "database", cfg.MongoDatabaseName)
	return blockService, holdService, cleanupService
}

func initPublisher(cfg *config.Config) (kafka.Publisher, func()) {
	if os.Getenv(kafkaconfig.EnvKafkaBrokers) == "" {
		cfg.Log.Info("Kafka brokers not configured, event publishing disabled")
		return nil, func() {}
	}

	producer, err := kafka.NewProducer(kafkaconfig.Load(), "", DLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	return producer, func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}
}
