package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	fleeterrors "fleetops/internal/fleet/errors"
	"fleetops/pkg/config"
	"fleetops/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	ShiftCollectionName = "Shifts"
)

type mongoShiftRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type ShiftRepository interface {
	FindByID(ctx context.Context, id string) (*model.Shift, error)
	StampClockOut(ctx context.Context, id string, at time.Time) error
}

func NewMongoShiftRepository(cfg *config.Config) ShiftRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoShiftRepository{
		cfg:        cfg,
		collection: db.Collection(ShiftCollectionName),
	}
}

func (r *mongoShiftRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoShiftRepository) FindByID(ctx context.Context, id string) (*model.Shift, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", fleeterrors.ErrInvalidID, id)
	}

	var shift model.Shift
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&shift)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fleeterrors.ErrShiftNotFound
		}
		return nil, fmt.Errorf("failed to find shift: %w", err)
	}

	return &shift, nil
}

// StampClockOut closes the shift. Only an open shift matches, so a repeated
// release reports not found.
func (r *mongoShiftRepository) StampClockOut(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", fleeterrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "clock_out": nil}
	update := bson.M{"$set": bson.M{"clock_out": at}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to stamp clock out: %w", err)
	}

	if result.MatchedCount == 0 {
		return fleeterrors.ErrShiftNotFound
	}

	return nil
}
