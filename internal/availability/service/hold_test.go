package service

import (
	"context"
	"testing"
	"time"

	availerrors "fleetops/internal/availability/errors"
	"fleetops/internal/availability/validator"
	"fleetops/pkg/config"
	apperrors "fleetops/pkg/errors"
	"fleetops/pkg/kafka"
	"fleetops/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type mockSlotLockRepository struct {
	createFunc func(ctx context.Context, lock *model.SlotLock) (*model.SlotLock, error)
	deleteFunc func(ctx context.Context, lockID string) error
}

func (m *mockSlotLockRepository) Create(ctx context.Context, lock *model.SlotLock) (*model.SlotLock, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, lock)
	}
	return lock, nil
}

func (m *mockSlotLockRepository) Delete(ctx context.Context, lockID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, lockID)
	}
	return nil
}

func duplicateKeyError() error {
	return mongo.WriteException{
		WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}},
	}
}

func newHoldService(repo *mockBlockRepository, locks *mockSlotLockRepository, pub kafka.Publisher, cfg *config.Config) HoldService {
	return NewHoldService(repo, locks, validator.NewBlockValidator(cfg.Log), pub, cfg)
}

func TestCreateHold_DefaultTTL(t *testing.T) {
	cfg := testConfig()
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	var created *model.AvailabilityBlock
	repo := &mockBlockRepository{
		createFunc: func(_ context.Context, block *model.AvailabilityBlock) error {
			created = block
			return nil
		},
	}
	svc := newHoldService(repo, &mockSlotLockRepository{}, nil, cfg)

	before := time.Now().UTC()
	block, err := svc.CreateHold(context.Background(), &model.HoldRequest{
		VehicleID: testVehicleID,
		BlockDate: day,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil || block == nil {
		t.Fatal("expected hold to be created")
	}
	if block.BlockType != model.BlockTypeHold {
		t.Errorf("expected hold type, got %s", block.BlockType)
	}
	if block.ExpiresAt == nil {
		t.Fatal("expected expires_at to be set")
	}

	wantEarliest := before.Add(cfg.DefaultHoldTTL)
	wantLatest := time.Now().UTC().Add(cfg.DefaultHoldTTL)
	if block.ExpiresAt.Before(wantEarliest) || block.ExpiresAt.After(wantLatest) {
		t.Errorf("expires_at %v outside expected default TTL window [%v, %v]", block.ExpiresAt, wantEarliest, wantLatest)
	}
}

func TestCreateHold_TTLBounds(t *testing.T) {
	cfg := testConfig()
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	svc := newHoldService(&mockBlockRepository{}, &mockSlotLockRepository{}, nil, cfg)

	tests := []struct {
		name string
		ttl  string
	}{
		{"below minimum", "10s"},
		{"above maximum", "3h"},
		{"not a duration", "soon"},
		{"negative", "-5m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateHold(context.Background(), &model.HoldRequest{
				VehicleID: testVehicleID,
				BlockDate: day,
				TTL:       tt.ttl,
			})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeInvalidInput {
				t.Errorf("expected code %s, got %s", apperrors.CodeInvalidInput, appErr.Code)
			}
		})
	}
}

func TestCreateHold_ExplicitTTL(t *testing.T) {
	cfg := testConfig()
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	svc := newHoldService(&mockBlockRepository{}, &mockSlotLockRepository{}, nil, cfg)

	before := time.Now().UTC()
	block, err := svc.CreateHold(context.Background(), &model.HoldRequest{
		VehicleID: testVehicleID,
		BlockDate: day,
		TTL:       "30m",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if block.ExpiresAt.Before(before.Add(30 * time.Minute)) {
		t.Errorf("expected expires_at at least 30m out, got %v", block.ExpiresAt)
	}
}

func TestCreateHold_SlotLockContention(t *testing.T) {
	cfg := testConfig()
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	locks := &mockSlotLockRepository{
		createFunc: func(_ context.Context, _ *model.SlotLock) (*model.SlotLock, error) {
			return nil, duplicateKeyError()
		},
	}
	repo := &mockBlockRepository{
		createFunc: func(_ context.Context, _ *model.AvailabilityBlock) error {
			t.Fatal("block must not be created when the slot lock is held")
			return nil
		},
	}
	svc := newHoldService(repo, locks, nil, cfg)

	_, err := svc.CreateHold(context.Background(), &model.HoldRequest{
		VehicleID: testVehicleID,
		BlockDate: day,
	})
	if err == nil {
		t.Fatal("expected conflict error, got nil")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected code %s, got %s", apperrors.CodeConflict, appErr.Code)
	}
}

func TestCreateHold_WindowConflictReleasesLock(t *testing.T) {
	cfg := testConfig()
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	existingStart, existingEnd := window(t, day, 10, 12)

	var released string
	locks := &mockSlotLockRepository{
		deleteFunc: func(_ context.Context, lockID string) error {
			released = lockID
			return nil
		},
	}
	repo := &mockBlockRepository{
		findForDayFunc: func(_ context.Context, _ string, _ time.Time) ([]*model.AvailabilityBlock, error) {
			return []*model.AvailabilityBlock{{
				ID:        testBlockID,
				BlockDate: day,
				StartTime: existingStart,
				EndTime:   existingEnd,
				BlockType: model.BlockTypeMaintenance,
			}}, nil
		},
	}
	svc := newHoldService(repo, locks, nil, cfg)

	start, end := window(t, day, 11, 13)
	_, err := svc.CreateHold(context.Background(), &model.HoldRequest{
		VehicleID: testVehicleID,
		BlockDate: day,
		StartTime: start,
		EndTime:   end,
	})
	if err == nil {
		t.Fatal("expected conflict error, got nil")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected code %s, got %s", apperrors.CodeConflict, appErr.Code)
	}
	if released == "" {
		t.Error("expected slot lock to be released after conflict")
	}
}

func TestConvertToBooking_Success(t *testing.T) {
	cfg := testConfig()

	var convertedHold, convertedBooking string
	repo := &mockBlockRepository{
		convertFunc: func(_ context.Context, holdID, bookingID string) error {
			convertedHold, convertedBooking = holdID, bookingID
			return nil
		},
		findByIDFunc: func(_ context.Context, id string) (*model.AvailabilityBlock, error) {
			return &model.AvailabilityBlock{
				ID:        id,
				BlockType: model.BlockTypeBooking,
				BookingID: testBookingID,
			}, nil
		},
	}
	pub := &mockPublisher{}
	svc := newHoldService(repo, &mockSlotLockRepository{}, pub, cfg)

	block, err := svc.ConvertToBooking(context.Background(), testBlockID, testBookingID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if convertedHold != testBlockID || convertedBooking != testBookingID {
		t.Errorf("convert called with (%s, %s)", convertedHold, convertedBooking)
	}
	if block.BlockType != model.BlockTypeBooking {
		t.Errorf("expected booking type, got %s", block.BlockType)
	}
	if len(pub.published) != 1 || pub.published[0].GetEventType() != kafka.EventHoldConverted {
		t.Errorf("expected one %s event", kafka.EventHoldConverted)
	}
}

func TestConvertToBooking_ExpiredHoldGone(t *testing.T) {
	cfg := testConfig()
	repo := &mockBlockRepository{
		convertFunc: func(_ context.Context, _, _ string) error {
			return availerrors.ErrNotFound
		},
	}
	svc := newHoldService(repo, &mockSlotLockRepository{}, nil, cfg)

	_, err := svc.ConvertToBooking(context.Background(), testBlockID, testBookingID)
	if err == nil {
		t.Fatal("expected not found error, got nil")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeNotFound {
		t.Errorf("expected code %s, got %s", apperrors.CodeNotFound, appErr.Code)
	}
}

func TestConvertToBooking_RetryIsIdempotent(t *testing.T) {
	cfg := testConfig()
	repo := &mockBlockRepository{
		convertFunc: func(_ context.Context, _, _ string) error {
			return availerrors.ErrNotFound
		},
		findByIDFunc: func(_ context.Context, id string) (*model.AvailabilityBlock, error) {
			return &model.AvailabilityBlock{
				ID:        id,
				BlockType: model.BlockTypeBooking,
				BookingID: testBookingID,
			}, nil
		},
	}
	svc := newHoldService(repo, &mockSlotLockRepository{}, nil, cfg)

	block, err := svc.ConvertToBooking(context.Background(), testBlockID, testBookingID)
	if err != nil {
		t.Fatalf("expected retry with same booking ID to succeed, got %v", err)
	}
	if block.BookingID != testBookingID {
		t.Errorf("expected booking ID %s, got %s", testBookingID, block.BookingID)
	}
}

func TestConvertToBooking_ClaimedByOtherBooking(t *testing.T) {
	cfg := testConfig()
	repo := &mockBlockRepository{
		convertFunc: func(_ context.Context, _, _ string) error {
			return availerrors.ErrNotFound
		},
		findByIDFunc: func(_ context.Context, id string) (*model.AvailabilityBlock, error) {
			return &model.AvailabilityBlock{
				ID:        id,
				BlockType: model.BlockTypeBooking,
				BookingID: "507f1f77bcf86cd799439099",
			}, nil
		},
	}
	svc := newHoldService(repo, &mockSlotLockRepository{}, nil, cfg)

	_, err := svc.ConvertToBooking(context.Background(), testBlockID, testBookingID)
	if err == nil {
		t.Fatal("expected conflict error, got nil")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected code %s, got %s", apperrors.CodeConflict, appErr.Code)
	}
}

func TestCancelHold_Idempotent(t *testing.T) {
	cfg := testConfig()
	repo := &mockBlockRepository{
		deleteHoldFunc: func(_ context.Context, _ string) (bool, error) {
			return false, nil
		},
	}
	pub := &mockPublisher{}
	svc := newHoldService(repo, &mockSlotLockRepository{}, pub, cfg)

	if err := svc.CancelHold(context.Background(), testBlockID); err != nil {
		t.Fatalf("cancelling an absent hold must succeed, got %v", err)
	}
	if len(pub.published) != 0 {
		t.Errorf("expected no events for a no-op cancel, got %d", len(pub.published))
	}
}

func TestCancelHold_Deleted(t *testing.T) {
	cfg := testConfig()
	repo := &mockBlockRepository{
		deleteHoldFunc: func(_ context.Context, _ string) (bool, error) {
			return true, nil
		},
	}
	pub := &mockPublisher{}
	svc := newHoldService(repo, &mockSlotLockRepository{}, pub, cfg)

	if err := svc.CancelHold(context.Background(), testBlockID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.published) != 1 || pub.published[0].GetEventType() != kafka.EventHoldCancelled {
		t.Errorf("expected one %s event", kafka.EventHoldCancelled)
	}
}
