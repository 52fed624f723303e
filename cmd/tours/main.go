package main

import (
	"os"

	availrepo "fleetops/internal/availability/repository"
	fleetrepo "fleetops/internal/fleet/repository"
	"fleetops/internal/tours/handler"
	"fleetops/internal/tours/repository"
	"fleetops/internal/tours/service"
	"fleetops/internal/tours/validator"
	"fleetops/pkg/app"
	"fleetops/pkg/config"
	"fleetops/pkg/kafka"
	kafkaconfig "fleetops/pkg/kafka/config"
)

const (
	ServiceName = "tours"
	DLQTopic    = "fleet.events.dlq"
)

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	publisher, closePublisher := initPublisher(cfg)
	defer closePublisher()

	cfg.Log.Info("Starting Tours service")
	tourService := initServices(cfg, publisher)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewTourHandler(tourService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher kafka.Publisher) service.TourService {
	tourValidator := validator.NewTourValidator(cfg.Log)
	tourRepo := repository.NewMongoTourRepository(cfg)
	ticketRepo := repository.NewMongoTicketRepository(cfg)
	blockRepo := availrepo.NewMongoBlockRepository(cfg)
	lockRepo := availrepo.NewSlotLockRepository(cfg)
	vehicleRepo := fleetrepo.NewMongoVehicleRepository(cfg)

	tourService := service.NewTourService(
		tourRepo,
		ticketRepo,
		blockRepo,
		lockRepo,
		vehicleRepo,
		tourValidator,
		publisher,
		cfg,
	)

	cfg.Log.Info("Tours services initialized", "database", cfg.MongoDatabaseName)
	return tourService
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
