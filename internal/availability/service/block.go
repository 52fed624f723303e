package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fleetops/internal/availability/conflict"
	availerrors "fleetops/internal/availability/errors"
	"fleetops/internal/availability/repository"
	"fleetops/internal/availability/validator"
	"fleetops/pkg/config"
	apperrors "fleetops/pkg/errors"
	"fleetops/pkg/kafka"
	"fleetops/pkg/model"
	"fleetops/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

type BlockService interface {
	Create(ctx context.Context, block *model.AvailabilityBlock) error
	GetByID(ctx context.Context, id string) (*model.AvailabilityBlock, error)
	List(ctx context.Context, vehicleID string, startDate, endDate *time.Time, limit int, offset int64) (map[string][]*model.AvailabilityBlock, int64, error)
	Patch(ctx context.Context, id string, patch *model.BlockPatch) (*model.AvailabilityBlock, error)
	Delete(ctx context.Context, id string) error
}

type blockService struct {
	repo      repository.BlockRepository
	lockRepo  repository.SlotLockRepository
	detector  *conflict.Detector
	validator *validator.BlockValidator
	publisher kafka.Publisher
	cfg       *config.Config
}

func NewBlockService(
	repo repository.BlockRepository,
	lockRepo repository.SlotLockRepository,
	validator *validator.BlockValidator,
	publisher kafka.Publisher,
	cfg *config.Config,
) BlockService {
	return &blockService{
		repo:      repo,
		lockRepo:  lockRepo,
		detector:  conflict.NewDetector(repo),
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *blockService) Create(ctx context.Context, block *model.AvailabilityBlock) error {
	s.sanitize(block)
	s.applyDefaults(block)

	if !adminCreatable(block.BlockType) {
		return apperrors.InvalidInput(fmt.Sprintf(
			"Block type %q cannot be created here; booking blocks come from the booking lifecycle",
			block.BlockType,
		))
	}

	if err := s.validate(block); err != nil {
		return err
	}
	if err := s.checkPastDate(block.BlockDate); err != nil {
		return err
	}
	block.BlockDate = model.DayOf(block.BlockDate)

	// Concurrent inserts of distinct documents commit cleanly under snapshot
	// isolation, so admin creates race the same way hold creation does.
	lockID, err := acquireSlotLock(ctx, s.lockRepo, s.cfg, block.VehicleID, block.BlockDate)
	if err != nil {
		return err
	}
	defer releaseSlotLock(ctx, s.lockRepo, s.cfg, lockID)

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		conflicting, err := s.detector.FirstConflict(sessCtx, block.VehicleID, block.BlockDate, block.StartTime, block.EndTime, conflict.Options{})
		if err != nil {
			return apperrors.Internal("Failed to check existing blocks", err)
		}
		if conflicting != nil {
			return conflictError(conflicting)
		}
		if err := s.repo.Create(sessCtx, block); err != nil {
			return apperrors.Internal("Failed to create availability block", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create availability block", "vehicle_id", block.VehicleID, "error", err)
		return err
	}

	s.publish(ctx, kafka.TopicBlocks, kafka.EventBlockCreated, block.VehicleID, block)
	s.cfg.Log.Info("Availability block created",
		"id", block.ID,
		"vehicle_id", block.VehicleID,
		"block_type", block.BlockType,
		"block_date", model.DateKey(block.BlockDate),
	)
	return nil
}

func (s *blockService) GetByID(ctx context.Context, id string) (*model.AvailabilityBlock, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Block ID cannot be empty")
	}

	block, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}

	return block, nil
}

// List returns blocks grouped by calendar day so the caller can render an
// availability calendar directly.
func (s *blockService) List(ctx context.Context, vehicleID string, startDate, endDate *time.Time, limit int, offset int64) (map[string][]*model.AvailabilityBlock, int64, error) {
	if vehicleID == "" {
		return nil, 0, apperrors.InvalidInput("Vehicle ID is required")
	}

	var count int64
	var blocks []*model.AvailabilityBlock
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByVehicleAndRange(ctx, vehicleID, startDate, endDate)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count availability blocks", "vehicle_id", vehicleID, "error", errCount)
			errCount = apperrors.Internal("Failed to count availability blocks", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		blocks, errFind = s.repo.FindByVehicleAndRange(ctx, vehicleID, startDate, endDate, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list availability blocks", "vehicle_id", vehicleID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve availability blocks", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	grouped := make(map[string][]*model.AvailabilityBlock)
	for _, b := range blocks {
		key := model.DateKey(b.BlockDate)
		grouped[key] = append(grouped[key], b)
	}

	return grouped, count, nil
}

func (s *blockService) Patch(ctx context.Context, id string, patch *model.BlockPatch) (*model.AvailabilityBlock, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Block ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}
	if existing.BlockType == model.BlockTypeBooking {
		return nil, apperrors.Forbidden("This block belongs to a confirmed booking. Cancel the booking instead.")
	}

	if err := s.validator.ValidatePatch(patch); err != nil {
		s.cfg.Log.Warn("Block patch validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid patch input", map[string]any{"error": err.Error()})
	}

	merged := s.mergePatch(existing, patch)
	s.sanitize(merged)
	if err := s.validate(merged); err != nil {
		return nil, err
	}
	if patch.BlockDate != nil {
		if err := s.checkPastDate(merged.BlockDate); err != nil {
			return nil, err
		}
	}
	merged.BlockDate = model.DayOf(merged.BlockDate)

	// A moved window races against creates on its target day the same way a
	// fresh insert does.
	lockID, err := acquireSlotLock(ctx, s.lockRepo, s.cfg, merged.VehicleID, merged.BlockDate)
	if err != nil {
		return nil, err
	}
	defer releaseSlotLock(ctx, s.lockRepo, s.cfg, lockID)

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		conflicting, err := s.detector.FirstConflict(sessCtx, merged.VehicleID, merged.BlockDate, merged.StartTime, merged.EndTime, conflict.Options{ExcludeBlockID: id})
		if err != nil {
			return apperrors.Internal("Failed to check existing blocks", err)
		}
		if conflicting != nil {
			return conflictError(conflicting)
		}
		if _, err := s.repo.Update(sessCtx, id, merged); err != nil {
			if errors.Is(err, availerrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Availability block", id)
			}
			return apperrors.Internal("Failed to update availability block", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to patch availability block", "id", id, "error", err)
		return nil, err
	}

	s.publish(ctx, kafka.TopicBlocks, kafka.EventBlockUpdated, merged.VehicleID, merged)
	s.cfg.Log.Info("Availability block updated", "id", id)
	return merged, nil
}

func (s *blockService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Block ID cannot be empty")
	}

	var deleted *model.AvailabilityBlock
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		existing, err := s.repo.FindByID(sessCtx, id)
		if err != nil {
			return mapLookupError(err, id)
		}
		if existing.BlockType == model.BlockTypeBooking {
			return apperrors.Forbidden("This block belongs to a confirmed booking. Cancel the booking instead.")
		}
		if err := s.repo.Delete(sessCtx, id); err != nil {
			if errors.Is(err, availerrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Availability block", id)
			}
			return apperrors.Internal("Failed to delete availability block", err)
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, kafka.TopicBlocks, kafka.EventBlockDeleted, deleted.VehicleID, deleted)
	s.cfg.Log.Info("Availability block deleted", "id", id, "block_type", deleted.BlockType)
	return nil
}

// --- Helpers ---

func (s *blockService) sanitize(b *model.AvailabilityBlock) {
	b.Reason = sanitizer.NormalizeReason(b.Reason)
	b.Notes = sanitizer.NormalizeNotes(b.Notes)
}

func (s *blockService) applyDefaults(b *model.AvailabilityBlock) {
	// Holds created through the admin surface still expire.
	if b.BlockType == model.BlockTypeHold && b.ExpiresAt == nil {
		expires := time.Now().UTC().Add(s.cfg.DefaultHoldTTL)
		b.ExpiresAt = &expires
	}
}

func (s *blockService) mergePatch(existing *model.AvailabilityBlock, patch *model.BlockPatch) *model.AvailabilityBlock {
	merged := *existing

	if patch.BlockDate != nil {
		merged.BlockDate = *patch.BlockDate
	}
	if patch.StartTime != nil {
		merged.StartTime = patch.StartTime
	}
	if patch.EndTime != nil {
		merged.EndTime = patch.EndTime
	}
	if patch.Reason != nil {
		merged.Reason = *patch.Reason
	}
	if patch.Notes != nil {
		merged.Notes = *patch.Notes
	}

	return &merged
}

func (s *blockService) validate(block *model.AvailabilityBlock) error {
	if err := s.validator.Validate(block); err != nil {
		s.cfg.Log.Warn("Block validation failed", "error", err)
		return apperrors.Validation("Block validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *blockService) checkPastDate(date time.Time) error {
	if s.cfg.AllowPastDates {
		return nil
	}
	if model.DayOf(date).Before(model.DayOf(time.Now().UTC())) {
		return apperrors.InvalidInput("block_date cannot be in the past")
	}
	return nil
}

func (s *blockService) publish(ctx context.Context, topic, eventType, key string, payload any) {
	if s.publisher == nil {
		return
	}
	msg := kafka.NewMessage().
		WithTopic(topic).
		WithKey(key).
		WithValue(payload).
		WithEventType(eventType).
		WithSource("availability").
		Build()
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.cfg.Log.Warn("Failed to publish event", "event_type", eventType, "error", err)
	}
}

func adminCreatable(t model.BlockType) bool {
	for _, allowed := range model.AdminCreatableBlockTypes {
		if t == allowed {
			return true
		}
	}
	return false
}

func conflictError(b *model.AvailabilityBlock) error {
	return apperrors.Conflict(fmt.Sprintf(
		"Window conflicts with an existing %s block (%s)",
		b.BlockType,
		b.Window(),
	))
}

func mapLookupError(err error, id string) error {
	if errors.Is(err, availerrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Availability block", id)
	}
	if errors.Is(err, availerrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid block ID format")
	}
	return apperrors.Internal("Failed to retrieve availability block", err)
}
