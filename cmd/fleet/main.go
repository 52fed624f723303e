package main

import (
	"os"

	"fleetops/internal/fleet/handler"
	"fleetops/internal/fleet/repository"
	"fleetops/internal/fleet/service"
	"fleetops/internal/fleet/validator"
	"fleetops/pkg/app"
	"fleetops/pkg/config"
	"fleetops/pkg/kafka"
	kafkaconfig "fleetops/pkg/kafka/config"
)

const (
	ServiceName = "fleet"
	DLQTopic    = "fleet.events.dlq"
)

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	publisher, closePublisher := initPublisher(cfg)
	defer closePublisher()

	cfg.Log.Info("Starting Fleet service")
	assignmentService := initServices(cfg, publisher)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewAssignmentHandler(assignmentService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher kafka.Publisher) service.AssignmentService {
	assignmentValidator := validator.NewAssignmentValidator(cfg.Log)
	vehicleRepo := repository.NewMongoVehicleRepository(cfg)
	shiftRepo := repository.NewMongoShiftRepository(cfg)
	assignmentRepo := repository.NewMongoAssignmentRepository(cfg)

	assignmentService := service.NewAssignmentService(
		vehicleRepo,
		shiftRepo,
		assignmentRepo,
		assignmentValidator,
		publisher,
		cfg,
	)

	cfg.Log.Info("Fleet services initialized", "database", cfg.MongoDatabaseName)
	return assignmentService
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
