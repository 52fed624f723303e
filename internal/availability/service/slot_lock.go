package service

import (
	"context"
	"fmt"
	"time"

	"fleetops/internal/availability/repository"
	"fleetops/pkg/config"
	apperrors "fleetops/pkg/errors"
	"fleetops/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// acquireSlotLock inserts the advisory lock for (vehicleID, date). Mongo
// transactions are snapshot-isolated and inserts of distinct documents never
// write-conflict, so every path that checks-then-inserts a block for a vehicle
// day must serialize through this lock first. The deterministic _id makes the
// second acquirer fail with a duplicate key error.
func acquireSlotLock(ctx context.Context, locks repository.SlotLockRepository, cfg *config.Config, vehicleID string, date time.Time) (string, error) {
	lockID := fmt.Sprintf("slot_lock_%s_%s", vehicleID, model.DateKey(date))

	lock := &model.SlotLock{
		ID:        lockID,
		ExpiresAt: time.Now().Add(cfg.SlotLockTTL),
	}

	_, err := locks.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("This vehicle slot is currently being held by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire slot lock", err)
	}

	return lockID, nil
}

func releaseSlotLock(ctx context.Context, locks repository.SlotLockRepository, cfg *config.Config, lockID string) {
	if err := locks.Delete(ctx, lockID); err != nil {
		cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", err)
	}
}
