package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	availerrors "fleetops/internal/availability/errors"
	"fleetops/pkg/config"
	mongotx "fleetops/pkg/db/mongo"
	"fleetops/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Availability_blocks"
)

type mongoBlockRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type BlockRepository interface {
	Create(ctx context.Context, block *model.AvailabilityBlock) error
	FindByID(ctx context.Context, id string) (*model.AvailabilityBlock, error)
	FindForDay(ctx context.Context, vehicleID string, date time.Time) ([]*model.AvailabilityBlock, error)
	FindByVehicleAndRange(ctx context.Context, vehicleID string, startDate, endDate *time.Time, limit int, offset int64) ([]*model.AvailabilityBlock, error)
	CountByVehicleAndRange(ctx context.Context, vehicleID string, startDate, endDate *time.Time) (int64, error)
	Update(ctx context.Context, id string, block *model.AvailabilityBlock) (*mongo.UpdateResult, error)
	Delete(ctx context.Context, id string) error
	FindByBookingID(ctx context.Context, bookingID string) (*model.AvailabilityBlock, error)
	ConvertHoldToBooking(ctx context.Context, holdID string, bookingID string) error
	DeleteHold(ctx context.Context, holdID string) (bool, error)
	FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*model.AvailabilityBlock, error)
	DeleteExpiredHold(ctx context.Context, id string, now time.Time) (bool, error)
	ReassignToVehicle(ctx context.Context, blockID string, vehicleID string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoBlockRepository(cfg *config.Config) BlockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBlockRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context unchanged
// with a no-op cancel function, as we cannot wrap SessionContext without breaking
// transaction semantics.
func (r *mongoBlockRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBlockRepository) Create(ctx context.Context, block *model.AvailabilityBlock) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	block.CreatedAt = now
	block.UpdatedAt = now
	result, err := r.collection.InsertOne(ctx, block)
	if err != nil {
		return fmt.Errorf("failed to create availability block: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		block.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBlockRepository) FindByID(ctx context.Context, id string) (*model.AvailabilityBlock, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", availerrors.ErrInvalidID, id)
	}

	var block model.AvailabilityBlock
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&block)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, availerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find availability block: %w", err)
	}

	return &block, nil
}

func (r *mongoBlockRepository) FindForDay(ctx context.Context, vehicleID string, date time.Time) ([]*model.AvailabilityBlock, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"vehicle_id": vehicleID,
		"block_date": model.DayOf(date),
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find blocks for day: %w", err)
	}
	defer cursor.Close(ctx)

	var blocks []*model.AvailabilityBlock
	if err = cursor.All(ctx, &blocks); err != nil {
		return nil, fmt.Errorf("failed to decode blocks: %w", err)
	}

	return blocks, nil
}

func (r *mongoBlockRepository) FindByVehicleAndRange(
	ctx context.Context,
	vehicleID string,
	startDate, endDate *time.Time,
	limit int, offset int64,
) ([]*model.AvailabilityBlock, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := r.buildSearchFilter(vehicleID, startDate, endDate)

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(int64(offset)).
		SetSort(bson.D{{Key: "block_date", Value: 1}, {Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find blocks: %w", err)
	}
	defer cursor.Close(ctx)

	var blocks []*model.AvailabilityBlock
	if err = cursor.All(ctx, &blocks); err != nil {
		return nil, fmt.Errorf("failed to decode blocks: %w", err)
	}

	return blocks, nil
}

func (r *mongoBlockRepository) CountByVehicleAndRange(ctx context.Context, vehicleID string, startDate, endDate *time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, r.buildSearchFilter(vehicleID, startDate, endDate))
	if err != nil {
		return 0, fmt.Errorf("failed to count blocks by search: %w", err)
	}
	return count, nil
}

func (r *mongoBlockRepository) buildSearchFilter(vehicleID string, startDate, endDate *time.Time) bson.M {
	filter := bson.M{
		"vehicle_id": vehicleID,
	}

	if startDate != nil || endDate != nil {
		dateFilter := bson.M{}
		if startDate != nil {
			dateFilter["$gte"] = model.DayOf(*startDate)
		}
		if endDate != nil {
			dateFilter["$lte"] = model.DayOf(*endDate)
		}
		filter["block_date"] = dateFilter
	}

	return filter
}

func (r *mongoBlockRepository) Update(ctx context.Context, id string, block *model.AvailabilityBlock) (*mongo.UpdateResult, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", availerrors.ErrInvalidID, id)
	}

	set := bson.M{
		"block_date": block.BlockDate,
		"reason":     block.Reason,
		"notes":      block.Notes,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}
	unset := bson.M{}
	if block.StartTime != nil {
		set["start_time"] = block.StartTime
	} else {
		unset["start_time"] = ""
	}
	if block.EndTime != nil {
		set["end_time"] = block.EndTime
	} else {
		unset["end_time"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update availability block: %w", err)
	}

	if result.MatchedCount == 0 {
		return nil, availerrors.ErrNotFound
	}

	return result, nil
}

func (r *mongoBlockRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", availerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete availability block: %w", err)
	}

	if result.DeletedCount == 0 {
		return availerrors.ErrNotFound
	}

	return nil
}

func (r *mongoBlockRepository) FindByBookingID(ctx context.Context, bookingID string) (*model.AvailabilityBlock, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var block model.AvailabilityBlock
	err := r.collection.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&block)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, availerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find block by booking: %w", err)
	}

	return &block, nil
}

// ConvertHoldToBooking promotes a hold to a booking block in one conditional
// update. The block_type filter guarantees the hold loses to at most one of
// conversion and expiry cleanup, never both.
func (r *mongoBlockRepository) ConvertHoldToBooking(ctx context.Context, holdID string, bookingID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(holdID)
	if err != nil {
		return fmt.Errorf("%w: %s", availerrors.ErrInvalidID, holdID)
	}

	filter := bson.M{
		"_id":        objectID,
		"block_type": model.BlockTypeHold,
	}
	update := bson.M{
		"$set": bson.M{
			"block_type": model.BlockTypeBooking,
			"booking_id": bookingID,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
		"$unset": bson.M{"expires_at": ""},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to convert hold: %w", err)
	}

	if result.MatchedCount == 0 {
		return availerrors.ErrNotFound
	}

	return nil
}

// DeleteHold removes a hold by ID. Returns false without error when no hold
// matched, so cancellation stays idempotent.
func (r *mongoBlockRepository) DeleteHold(ctx context.Context, holdID string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(holdID)
	if err != nil {
		return false, fmt.Errorf("%w: %s", availerrors.ErrInvalidID, holdID)
	}

	filter := bson.M{
		"_id":        objectID,
		"block_type": model.BlockTypeHold,
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to delete hold: %w", err)
	}

	return result.DeletedCount > 0, nil
}

func (r *mongoBlockRepository) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*model.AvailabilityBlock, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"block_type": model.BlockTypeHold,
		"expires_at": bson.M{"$lte": now},
	}

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "expires_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired holds: %w", err)
	}
	defer cursor.Close(ctx)

	var holds []*model.AvailabilityBlock
	if err = cursor.All(ctx, &holds); err != nil {
		return nil, fmt.Errorf("failed to decode expired holds: %w", err)
	}

	return holds, nil
}

// DeleteExpiredHold deletes one hold only if it is still a hold and still
// expired at delete time. A hold converted between listing and deletion does
// not match the filter and survives.
func (r *mongoBlockRepository) DeleteExpiredHold(ctx context.Context, id string, now time.Time) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: %s", availerrors.ErrInvalidID, id)
	}

	filter := bson.M{
		"_id":        objectID,
		"block_type": model.BlockTypeHold,
		"expires_at": bson.M{"$lte": now},
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to delete expired hold: %w", err)
	}

	return result.DeletedCount > 0, nil
}

func (r *mongoBlockRepository) ReassignToVehicle(ctx context.Context, blockID string, vehicleID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(blockID)
	if err != nil {
		return fmt.Errorf("%w: %s", availerrors.ErrInvalidID, blockID)
	}

	update := bson.M{
		"$set": bson.M{
			"vehicle_id": vehicleID,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to reassign block: %w", err)
	}

	if result.MatchedCount == 0 {
		return availerrors.ErrNotFound
	}

	return nil
}

func (r *mongoBlockRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
