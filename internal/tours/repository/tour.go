package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	tourserrors "fleetops/internal/tours/errors"
	"fleetops/pkg/config"
	mongotx "fleetops/pkg/db/mongo"
	"fleetops/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	TourCollectionName = "Tours"
)

type mongoTourRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type TourRepository interface {
	FindByID(ctx context.Context, id string) (*model.Tour, error)
	UpdateVehicle(ctx context.Context, id string, vehicleID string, maxGuests int) error
	Update(ctx context.Context, id string, tour *model.Tour) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoTourRepository(cfg *config.Config) TourRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTourRepository{
		cfg:        cfg,
		collection: db.Collection(TourCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoTourRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoTourRepository) FindByID(ctx context.Context, id string) (*model.Tour, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", tourserrors.ErrInvalidID, id)
	}

	var tour model.Tour
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&tour)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, tourserrors.ErrTourNotFound
		}
		return nil, fmt.Errorf("failed to find tour: %w", err)
	}

	return &tour, nil
}

func (r *mongoTourRepository) UpdateVehicle(ctx context.Context, id string, vehicleID string, maxGuests int) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", tourserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"vehicle_id": vehicleID,
			"max_guests": maxGuests,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update tour vehicle: %w", err)
	}

	if result.MatchedCount == 0 {
		return tourserrors.ErrTourNotFound
	}

	return nil
}

func (r *mongoTourRepository) Update(ctx context.Context, id string, tour *model.Tour) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", tourserrors.ErrInvalidID, id)
	}

	set := bson.M{
		"name":       tour.Name,
		"tour_date":  tour.TourDate,
		"max_guests": tour.MaxGuests,
		"status":     tour.Status,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}
	unset := bson.M{}
	if tour.StartTime != nil {
		set["start_time"] = tour.StartTime
	} else {
		unset["start_time"] = ""
	}
	if tour.EndTime != nil {
		set["end_time"] = tour.EndTime
	} else {
		unset["end_time"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update tour: %w", err)
	}

	if result.MatchedCount == 0 {
		return tourserrors.ErrTourNotFound
	}

	return nil
}

func (r *mongoTourRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
