package service

import (
	"context"
	"time"

	"fleetops/internal/availability/repository"
	"fleetops/pkg/config"
	apperrors "fleetops/pkg/errors"
	"fleetops/pkg/kafka"
)

// cleanupBatchSize bounds a single listing pass so a large backlog of expired
// holds cannot hold a cursor open indefinitely.
const cleanupBatchSize = 500

type CleanupService interface {
	RunCleanup(ctx context.Context) (int, error)
}

type cleanupService struct {
	repo      repository.BlockRepository
	publisher kafka.Publisher
	cfg       *config.Config
}

func NewCleanupService(repo repository.BlockRepository, publisher kafka.Publisher, cfg *config.Config) CleanupService {
	return &cleanupService{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
	}
}

// RunCleanup deletes expired holds one row at a time. Each delete re-checks
// that the row is still an expired hold, so a hold converted mid-run survives.
// A row that fails to delete is logged and skipped; it will be retried on the
// next run. Running with nothing to delete is a no-op.
func (s *cleanupService) RunCleanup(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	totalDeleted := 0

	for {
		expired, err := s.repo.FindExpiredHolds(ctx, now, cleanupBatchSize)
		if err != nil {
			s.cfg.Log.Error("Failed to list expired holds", "error", err)
			return totalDeleted, apperrors.Internal("Failed to list expired holds", err)
		}
		if len(expired) == 0 {
			break
		}

		deletedInBatch := 0
		for _, hold := range expired {
			deleted, err := s.repo.DeleteExpiredHold(ctx, hold.ID, now)
			if err != nil {
				s.cfg.Log.Warn("Skipping expired hold that failed to delete",
					"id", hold.ID,
					"vehicle_id", hold.VehicleID,
					"error", err,
				)
				continue
			}
			if deleted {
				deletedInBatch++
			}
		}

		totalDeleted += deletedInBatch
		// Rows that were skipped keep matching the filter; stop rather than
		// refetch the same batch forever.
		if deletedInBatch == 0 || len(expired) < cleanupBatchSize {
			break
		}
	}

	if totalDeleted > 0 {
		s.publishExpired(ctx, totalDeleted, now)
	}

	s.cfg.Log.Info("Hold cleanup completed", "deleted_count", totalDeleted)
	return totalDeleted, nil
}

func (s *cleanupService) publishExpired(ctx context.Context, count int, runAt time.Time) {
	if s.publisher == nil {
		return
	}
	msg := kafka.NewMessage().
		WithTopic(kafka.TopicHolds).
		WithKey("cleanup").
		WithValue(map[string]any{
			"deleted_count": count,
			"run_at":        runAt,
		}).
		WithEventType(kafka.EventHoldsExpired).
		WithSource("availability").
		Build()
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.cfg.Log.Warn("Failed to publish event", "event_type", kafka.EventHoldsExpired, "error", err)
	}
}
