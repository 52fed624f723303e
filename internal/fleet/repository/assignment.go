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
	AssignmentCollectionName    = "Vehicle_assignments"
	ClientServiceCollectionName = "Client_services"
)

type mongoAssignmentRepository struct {
	cfg            *config.Config
	collection     *mongo.Collection
	clientServices *mongo.Collection
}

type AssignmentRepository interface {
	Create(ctx context.Context, assignment *model.VehicleAssignment) error
	CreateClientService(ctx context.Context, cs *model.ClientService) error
	FindActiveByVehicle(ctx context.Context, vehicleID string) (*model.VehicleAssignment, error)
	FindActiveByShift(ctx context.Context, shiftID string) (*model.VehicleAssignment, error)
	Release(ctx context.Context, id string, at time.Time) error
}

func NewMongoAssignmentRepository(cfg *config.Config) AssignmentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAssignmentRepository{
		cfg:            cfg,
		collection:     db.Collection(AssignmentCollectionName),
		clientServices: db.Collection(ClientServiceCollectionName),
	}
}

func (r *mongoAssignmentRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoAssignmentRepository) Create(ctx context.Context, assignment *model.VehicleAssignment) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	assignment.AssignedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, assignment)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		assignment.ID = oid.Hex()
	}
	return nil
}

func (r *mongoAssignmentRepository) CreateClientService(ctx context.Context, cs *model.ClientService) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	cs.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.clientServices.InsertOne(ctx, cs)
	if err != nil {
		return fmt.Errorf("failed to create client service: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		cs.ID = oid.Hex()
	}
	return nil
}

func (r *mongoAssignmentRepository) FindActiveByVehicle(ctx context.Context, vehicleID string) (*model.VehicleAssignment, error) {
	return r.findActive(ctx, bson.M{"vehicle_id": vehicleID, "released_at": nil})
}

func (r *mongoAssignmentRepository) FindActiveByShift(ctx context.Context, shiftID string) (*model.VehicleAssignment, error) {
	return r.findActive(ctx, bson.M{"shift_id": shiftID, "released_at": nil})
}

func (r *mongoAssignmentRepository) findActive(ctx context.Context, filter bson.M) (*model.VehicleAssignment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var assignment model.VehicleAssignment
	err := r.collection.FindOne(ctx, filter).Decode(&assignment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fleeterrors.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to find assignment: %w", err)
	}

	return &assignment, nil
}

// Release stamps released_at on an active assignment. Matching on a nil
// released_at keeps the release idempotence decision with the caller.
func (r *mongoAssignmentRepository) Release(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", fleeterrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "released_at": nil}
	update := bson.M{"$set": bson.M{"released_at": at}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to release assignment: %w", err)
	}

	if result.MatchedCount == 0 {
		return fleeterrors.ErrAssignmentNotFound
	}

	return nil
}
