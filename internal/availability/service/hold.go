package service

import (
	"context"
	"errors"
	"fmt"
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

type HoldService interface {
	CreateHold(ctx context.Context, req *model.HoldRequest) (*model.AvailabilityBlock, error)
	ConvertToBooking(ctx context.Context, holdID string, bookingID string) (*model.AvailabilityBlock, error)
	CancelHold(ctx context.Context, holdID string) error
}

type holdService struct {
	repo      repository.BlockRepository
	lockRepo  repository.SlotLockRepository
	detector  *conflict.Detector
	validator *validator.BlockValidator
	publisher kafka.Publisher
	cfg       *config.Config
}

func NewHoldService(
	repo repository.BlockRepository,
	lockRepo repository.SlotLockRepository,
	validator *validator.BlockValidator,
	publisher kafka.Publisher,
	cfg *config.Config,
) HoldService {
	return &holdService{
		repo:      repo,
		lockRepo:  lockRepo,
		detector:  conflict.NewDetector(repo),
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *holdService) CreateHold(ctx context.Context, req *model.HoldRequest) (*model.AvailabilityBlock, error) {
	req.Reason = sanitizer.NormalizeReason(req.Reason)
	if err := s.validator.ValidateHoldRequest(req); err != nil {
		s.cfg.Log.Warn("Hold request validation failed", "error", err)
		return nil, apperrors.Validation("Hold validation failed", map[string]any{"error": err.Error()})
	}

	ttl, err := s.resolveTTL(req.TTL)
	if err != nil {
		return nil, err
	}

	if !s.cfg.AllowPastDates && model.DayOf(req.BlockDate).Before(model.DayOf(time.Now().UTC())) {
		return nil, apperrors.InvalidInput("block_date cannot be in the past")
	}

	expiresAt := time.Now().UTC().Add(ttl)
	block := &model.AvailabilityBlock{
		VehicleID: req.VehicleID,
		BlockDate: model.DayOf(req.BlockDate),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		BlockType: model.BlockTypeHold,
		Reason:    req.Reason,
		BrandID:   req.BrandID,
		ExpiresAt: &expiresAt,
	}

	// Acquire advisory lock to prevent race conditions
	lockID, err := acquireSlotLock(ctx, s.lockRepo, s.cfg, block.VehicleID, block.BlockDate)
	if err != nil {
		return nil, err
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
			return apperrors.Internal("Failed to create hold", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create hold", "vehicle_id", block.VehicleID, "error", err)
		return nil, err
	}

	s.publish(ctx, kafka.EventHoldCreated, block)
	s.cfg.Log.Info("Hold created",
		"id", block.ID,
		"vehicle_id", block.VehicleID,
		"block_date", model.DateKey(block.BlockDate),
		"expires_at", expiresAt,
	)
	return block, nil
}

// ConvertToBooking promotes a hold into a confirmed booking block. The repo's
// conditional update races safely against expiry cleanup: exactly one of the
// two wins.
func (s *holdService) ConvertToBooking(ctx context.Context, holdID string, bookingID string) (*model.AvailabilityBlock, error) {
	if holdID == "" {
		return nil, apperrors.InvalidInput("Hold ID cannot be empty")
	}
	if bookingID == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	err := s.repo.ConvertHoldToBooking(ctx, holdID, bookingID)
	if err != nil {
		if errors.Is(err, availerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid hold ID format")
		}
		if errors.Is(err, availerrors.ErrNotFound) {
			return s.resolveMissingHold(ctx, holdID, bookingID)
		}
		return nil, apperrors.Internal("Failed to convert hold", err)
	}

	converted, err := s.repo.FindByID(ctx, holdID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load converted block", err)
	}

	s.publish(ctx, kafka.EventHoldConverted, converted)
	s.cfg.Log.Info("Hold converted to booking", "id", holdID, "booking_id", bookingID)
	return converted, nil
}

// resolveMissingHold distinguishes an expired-and-purged hold from a hold that
// was already converted. A repeat conversion with the same booking ID succeeds
// so retries are safe.
func (s *holdService) resolveMissingHold(ctx context.Context, holdID, bookingID string) (*model.AvailabilityBlock, error) {
	block, err := s.repo.FindByID(ctx, holdID)
	if err != nil {
		if errors.Is(err, availerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Hold", holdID)
		}
		return nil, apperrors.Internal("Failed to check hold state", err)
	}

	if block.BlockType == model.BlockTypeBooking && block.BookingID == bookingID {
		return block, nil
	}

	return nil, apperrors.Conflict(fmt.Sprintf("Block is no longer a hold (now %s)", block.BlockType))
}

// CancelHold releases a hold. Cancelling a hold that already expired or was
// already cancelled is a no-op, not an error.
func (s *holdService) CancelHold(ctx context.Context, holdID string) error {
	if holdID == "" {
		return apperrors.InvalidInput("Hold ID cannot be empty")
	}

	deleted, err := s.repo.DeleteHold(ctx, holdID)
	if err != nil {
		if errors.Is(err, availerrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid hold ID format")
		}
		return apperrors.Internal("Failed to cancel hold", err)
	}

	if !deleted {
		s.cfg.Log.Debug("Cancel requested for absent hold", "id", holdID)
		return nil
	}

	s.publish(ctx, kafka.EventHoldCancelled, map[string]string{"id": holdID})
	s.cfg.Log.Info("Hold cancelled", "id", holdID)
	return nil
}

// --- Helpers ---

func (s *holdService) resolveTTL(raw string) (time.Duration, error) {
	if raw == "" {
		return s.cfg.DefaultHoldTTL, nil
	}

	ttl, err := time.ParseDuration(raw)
	if err != nil {
		return 0, apperrors.InvalidInput(fmt.Sprintf("TTL must be a valid duration (e.g. %q)", "15m"))
	}
	if ttl < s.cfg.MinHoldTTL || ttl > s.cfg.MaxHoldTTL {
		return 0, apperrors.InvalidInput(fmt.Sprintf(
			"TTL must be between %s and %s",
			s.cfg.MinHoldTTL,
			s.cfg.MaxHoldTTL,
		))
	}

	return ttl, nil
}

func (s *holdService) publish(ctx context.Context, eventType string, payload any) {
	if s.publisher == nil {
		return
	}
	key := eventType
	if block, ok := payload.(*model.AvailabilityBlock); ok {
		key = block.VehicleID
	}
	msg := kafka.NewMessage().
		WithTopic(kafka.TopicHolds).
		WithKey(key).
		WithValue(payload).
		WithEventType(eventType).
		WithSource("availability").
		Build()
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.cfg.Log.Warn("Failed to publish event", "event_type", eventType, "error", err)
	}
}
