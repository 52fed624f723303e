package repository

import (
	"context"
	"fmt"
	"time"

	"fleetops/pkg/config"
	"fleetops/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	TicketCollectionName = "Tickets"
)

type mongoTicketRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type TicketRepository interface {
	CountConfirmedSeats(ctx context.Context, tourID string) (int, error)
}

func NewMongoTicketRepository(cfg *config.Config) TicketRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTicketRepository{
		cfg:        cfg,
		collection: db.Collection(TicketCollectionName),
	}
}

func (r *mongoTicketRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// CountConfirmedSeats sums confirmed ticket quantities for a tour. Pending and
// cancelled tickets do not count against vehicle capacity.
func (r *mongoTicketRepository) CountConfirmedSeats(ctx context.Context, tourID string) (int, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"tour_id": tourID,
			"status":  model.TicketConfirmed,
		}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"seats": bson.M{"$sum": "$quantity"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to count confirmed seats: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Seats int `bson:"seats"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("failed to decode seat count: %w", err)
	}

	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Seats, nil
}
