package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	fleeterrors "fleetops/internal/fleet/errors"
	"fleetops/pkg/config"
	mongotx "fleetops/pkg/db/mongo"
	"fleetops/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	VehicleCollectionName = "Vehicles"
)

type mongoVehicleRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *model.Vehicle) error
	FindByID(ctx context.Context, id string) (*model.Vehicle, error)
	FindActive(ctx context.Context) ([]*model.Vehicle, error)
	UpdateStatus(ctx context.Context, id string, from, to model.VehicleStatus) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoVehicleRepository(cfg *config.Config) VehicleRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoVehicleRepository{
		cfg:        cfg,
		collection: db.Collection(VehicleCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoVehicleRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoVehicleRepository) Create(ctx context.Context, vehicle *model.Vehicle) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	vehicle.CreatedAt = now
	vehicle.UpdatedAt = now
	result, err := r.collection.InsertOne(ctx, vehicle)
	if err != nil {
		return fmt.Errorf("failed to create vehicle: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		vehicle.ID = oid.Hex()
	}
	return nil
}

func (r *mongoVehicleRepository) FindByID(ctx context.Context, id string) (*model.Vehicle, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", fleeterrors.ErrInvalidID, id)
	}

	var vehicle model.Vehicle
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&vehicle)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fleeterrors.ErrVehicleNotFound
		}
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}

	return &vehicle, nil
}

func (r *mongoVehicleRepository) FindActive(ctx context.Context) ([]*model.Vehicle, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"is_active": true,
		"status":    bson.M{"$ne": model.VehicleOutOfService},
	}
	opts := options.Find().SetSort(bson.D{{Key: "capacity", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find active vehicles: %w", err)
	}
	defer cursor.Close(ctx)

	var vehicles []*model.Vehicle
	if err = cursor.All(ctx, &vehicles); err != nil {
		return nil, fmt.Errorf("failed to decode vehicles: %w", err)
	}

	return vehicles, nil
}

// UpdateStatus moves a vehicle between statuses. The current status is part of
// the filter, so a concurrent transition loses cleanly instead of clobbering.
func (r *mongoVehicleRepository) UpdateStatus(ctx context.Context, id string, from, to model.VehicleStatus) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", fleeterrors.ErrInvalidTransition, from, to)
	}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", fleeterrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "status": from}
	update := bson.M{
		"$set": bson.M{
			"status":     to,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update vehicle status: %w", err)
	}

	if result.MatchedCount == 0 {
		return fleeterrors.ErrVehicleNotFound
	}

	return nil
}

func (r *mongoVehicleRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
