package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fleetops/internal/migrations/mongo/validators"
)

var (
	AvailabilityBlocksIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "vehicle_id", Value: 1},
			{Key: "block_date", Value: 1},
			{Key: "start_time", Value: 1},
			{Key: "end_time", Value: 1},
		}},
		// Last line of defence against double-held windows; the slot lock and
		// the transactional re-check close the race before writes get here.
		// Named explicitly: it shares its key pattern with the query index
		// above, and Mongo rejects two indexes with the same derived name.
		{
			Keys: bson.D{
				{Key: "vehicle_id", Value: 1},
				{Key: "block_date", Value: 1},
				{Key: "start_time", Value: 1},
				{Key: "end_time", Value: 1},
			},
			Options: options.Index().
				SetName("uniq_hold_window").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"block_type": "hold"}),
		},
		{Keys: bson.D{
			{Key: "block_type", Value: 1},
			{Key: "expires_at", Value: 1},
		}},
		{
			Keys:    bson.D{{Key: "booking_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	}

	SlotLocksIndexes = []mongo.IndexModel{
		// Mongo reaps abandoned locks; normal flow deletes them explicitly.
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	VehiclesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "is_active", Value: 1},
			{Key: "status", Value: 1},
			{Key: "capacity", Value: 1},
		}},
	}

	ShiftsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "driver_id", Value: 1}}},
		{Keys: bson.D{{Key: "clock_out", Value: 1}}},
	}

	ClientServicesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "client_name", Value: 1}}},
	}

	VehicleAssignmentsIndexes = []mongo.IndexModel{
		// One active assignment per vehicle. Released assignments carry a
		// released_at field and fall out of the index.
		{
			Keys: bson.D{{Key: "vehicle_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"released_at": bson.M{"$exists": false}}),
		},
		{Keys: bson.D{{Key: "shift_id", Value: 1}}},
	}

	ToursIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "tour_date", Value: 1},
			{Key: "vehicle_id", Value: 1},
		}},
		{
			Keys:    bson.D{{Key: "booking_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	TicketsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "tour_id", Value: 1},
			{Key: "status", Value: 1},
		}},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("🚀 Running FleetOps Mongo migrations on database: %s\n", dbName)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		"Availability_blocks": {
			Indexes:   AvailabilityBlocksIndexes,
			Validator: validators.AvailabilityBlockValidator,
		},
		"Slot_locks": {
			Indexes:   SlotLocksIndexes,
			Validator: validators.SlotLockValidator,
		},
		"Vehicles": {
			Indexes:   VehiclesIndexes,
			Validator: validators.VehicleValidator,
		},
		"Shifts": {
			Indexes:   ShiftsIndexes,
			Validator: validators.ShiftValidator,
		},
		"Client_services": {
			Indexes:   ClientServicesIndexes,
			Validator: validators.ClientServiceValidator,
		},
		"Vehicle_assignments": {
			Indexes:   VehicleAssignmentsIndexes,
			Validator: validators.VehicleAssignmentValidator,
		},
		"Tours": {
			Indexes:   ToursIndexes,
			Validator: validators.TourValidator,
		},
		"Tickets": {
			Indexes:   TicketsIndexes,
			Validator: validators.TicketValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	fmt.Println("✅ All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("🆕 Creating collection: %s\n", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
	} else {
		fmt.Printf("ℹ️ Collection %s already exists — updating validator if needed\n", name)
		command := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
		}
		if err := db.RunCommand(ctx, command).Err(); err != nil {
			fmt.Printf("⚠️ Warning: failed updating validator for %s: %v\n", name, err)
		}
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("📚 Ensured indexes for %s\n", name)
	return nil
}
