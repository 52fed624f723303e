package service

import (
	"context"
	"strings"
	"testing"
	"time"

	availerrors "fleetops/internal/availability/errors"
	fleeterrors "fleetops/internal/fleet/errors"
	tourserrors "fleetops/internal/tours/errors"
	"fleetops/internal/tours/validator"
	"fleetops/pkg/config"
	mongotx "fleetops/pkg/db/mongo"
	apperrors "fleetops/pkg/errors"
	"fleetops/pkg/kafka"
	"fleetops/pkg/logger"
	"fleetops/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type mockTourRepository struct {
	findByIDFunc      func(ctx context.Context, id string) (*model.Tour, error)
	updateVehicleFunc func(ctx context.Context, id string, vehicleID string, maxGuests int) error
	updateFunc        func(ctx context.Context, id string, tour *model.Tour) error
}

func (m *mockTourRepository) FindByID(ctx context.Context, id string) (*model.Tour, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, tourserrors.ErrTourNotFound
}

func (m *mockTourRepository) UpdateVehicle(ctx context.Context, id string, vehicleID string, maxGuests int) error {
	if m.updateVehicleFunc != nil {
		return m.updateVehicleFunc(ctx, id, vehicleID, maxGuests)
	}
	return nil
}

func (m *mockTourRepository) Update(ctx context.Context, id string, tour *model.Tour) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, tour)
	}
	return nil
}

func (m *mockTourRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockTicketRepository struct {
	countFunc func(ctx context.Context, tourID string) (int, error)
}

func (m *mockTicketRepository) CountConfirmedSeats(ctx context.Context, tourID string) (int, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, tourID)
	}
	return 0, nil
}

type mockVehicleRepository struct {
	findByIDFunc     func(ctx context.Context, id string) (*model.Vehicle, error)
	findActiveFunc   func(ctx context.Context) ([]*model.Vehicle, error)
	updateStatusFunc func(ctx context.Context, id string, from, to model.VehicleStatus) error
}

func (m *mockVehicleRepository) Create(ctx context.Context, vehicle *model.Vehicle) error {
	return nil
}

func (m *mockVehicleRepository) FindByID(ctx context.Context, id string) (*model.Vehicle, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, fleeterrors.ErrVehicleNotFound
}

func (m *mockVehicleRepository) FindActive(ctx context.Context) ([]*model.Vehicle, error) {
	if m.findActiveFunc != nil {
		return m.findActiveFunc(ctx)
	}
	return []*model.Vehicle{}, nil
}

func (m *mockVehicleRepository) UpdateStatus(ctx context.Context, id string, from, to model.VehicleStatus) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, from, to)
	}
	return nil
}

func (m *mockVehicleRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockBlockRepository struct {
	findForDayFunc      func(ctx context.Context, vehicleID string, date time.Time) ([]*model.AvailabilityBlock, error)
	findByBookingIDFunc func(ctx context.Context, bookingID string) (*model.AvailabilityBlock, error)
	updateFunc          func(ctx context.Context, id string, block *model.AvailabilityBlock) (*mongo.UpdateResult, error)
	reassignFunc        func(ctx context.Context, blockID string, vehicleID string) error
}

func (m *mockBlockRepository) Create(ctx context.Context, block *model.AvailabilityBlock) error {
	return nil
}

func (m *mockBlockRepository) FindByID(ctx context.Context, id string) (*model.AvailabilityBlock, error) {
	return nil, availerrors.ErrNotFound
}

func (m *mockBlockRepository) FindForDay(ctx context.Context, vehicleID string, date time.Time) ([]*model.AvailabilityBlock, error) {
	if m.findForDayFunc != nil {
		return m.findForDayFunc(ctx, vehicleID, date)
	}
	return []*model.AvailabilityBlock{}, nil
}

func (m *mockBlockRepository) FindByVehicleAndRange(ctx context.Context, vehicleID string, startDate, endDate *time.Time, limit int, offset int64) ([]*model.AvailabilityBlock, error) {
	return []*model.AvailabilityBlock{}, nil
}

func (m *mockBlockRepository) CountByVehicleAndRange(ctx context.Context, vehicleID string, startDate, endDate *time.Time) (int64, error) {
	return 0, nil
}

func (m *mockBlockRepository) Update(ctx context.Context, id string, block *model.AvailabilityBlock) (*mongo.UpdateResult, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, block)
	}
	return &mongo.UpdateResult{MatchedCount: 1}, nil
}

func (m *mockBlockRepository) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *mockBlockRepository) FindByBookingID(ctx context.Context, bookingID string) (*model.AvailabilityBlock, error) {
	if m.findByBookingIDFunc != nil {
		return m.findByBookingIDFunc(ctx, bookingID)
	}
	return nil, availerrors.ErrNotFound
}

func (m *mockBlockRepository) ConvertHoldToBooking(ctx context.Context, holdID string, bookingID string) error {
	return nil
}

func (m *mockBlockRepository) DeleteHold(ctx context.Context, holdID string) (bool, error) {
	return false, nil
}

func (m *mockBlockRepository) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*model.AvailabilityBlock, error) {
	return []*model.AvailabilityBlock{}, nil
}

func (m *mockBlockRepository) DeleteExpiredHold(ctx context.Context, id string, now time.Time) (bool, error) {
	return false, nil
}

func (m *mockBlockRepository) ReassignToVehicle(ctx context.Context, blockID string, vehicleID string) error {
	if m.reassignFunc != nil {
		return m.reassignFunc(ctx, blockID, vehicleID)
	}
	return nil
}

func (m *mockBlockRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

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

type mockPublisher struct {
	published []kafka.Message
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, msg kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, msg)
	return nil
}

func testConfig() *config.Config {
	log := logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
	return &config.Config{
		Log:            log,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		SlotLockTTL:    10 * time.Second,
		AllowPastDates: true,
	}
}

const (
	testTourID     = "65a1f77bcf86cd7994390001"
	testBookingID  = "65a1f77bcf86cd7994390002"
	testBlockID    = "65a1f77bcf86cd7994390003"
	testVehicleAID = "65a1f77bcf86cd7994390011"
	testVehicleBID = "65a1f77bcf86cd7994390012"
	testVehicleCID = "65a1f77bcf86cd7994390013"
)

// June 10 2025 is a Tuesday, inside the Sunday-Wednesday operating window.
var tourDay = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

func scheduledTour() *model.Tour {
	start := tourDay.Add(9 * time.Hour)
	end := tourDay.Add(13 * time.Hour)
	return &model.Tour{
		ID:        testTourID,
		Name:      "Coastal Loop",
		BookingID: testBookingID,
		VehicleID: testVehicleAID,
		TourDate:  tourDay,
		StartTime: &start,
		EndTime:   &end,
		MaxGuests: 12,
		Status:    model.TourScheduled,
	}
}

func tourBlock(vehicleID string) *model.AvailabilityBlock {
	tour := scheduledTour()
	return &model.AvailabilityBlock{
		ID:        testBlockID,
		VehicleID: vehicleID,
		BlockDate: tourDay,
		StartTime: tour.StartTime,
		EndTime:   tour.EndTime,
		BlockType: model.BlockTypeBooking,
		BookingID: testBookingID,
	}
}

func vehicle(id, name string, capacity int) *model.Vehicle {
	return &model.Vehicle{
		ID:       id,
		Name:     name,
		Capacity: capacity,
		Status:   model.VehicleAvailable,
		IsActive: true,
	}
}

func newTourService(
	tours *mockTourRepository,
	tickets *mockTicketRepository,
	blocks *mockBlockRepository,
	vehicles *mockVehicleRepository,
	pub kafka.Publisher,
	cfg *config.Config,
) TourService {
	return newTourServiceWithLocks(tours, tickets, blocks, &mockSlotLockRepository{}, vehicles, pub, cfg)
}

func newTourServiceWithLocks(
	tours *mockTourRepository,
	tickets *mockTicketRepository,
	blocks *mockBlockRepository,
	locks *mockSlotLockRepository,
	vehicles *mockVehicleRepository,
	pub kafka.Publisher,
	cfg *config.Config,
) TourService {
	return NewTourService(tours, tickets, blocks, locks, vehicles, validator.NewTourValidator(cfg.Log), pub, cfg)
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != code {
		t.Errorf("expected code %s, got %s (%s)", code, appErr.Code, appErr.Message)
	}
}

func TestAvailableVehicles_ExcludesConflictingVehicles(t *testing.T) {
	cfg := testConfig()
	tours := &mockTourRepository{
		findByIDFunc: func(_ context.Context, id string) (*model.Tour, error) {
			return scheduledTour(), nil
		},
	}
	tickets := &mockTicketRepository{
		countFunc: func(_ context.Context, _ string) (int, error) { return 8, nil },
	}
	busyStart := tourDay.Add(10 * time.Hour)
	busyEnd := tourDay.Add(12 * time.Hour)
	blocks := &mockBlockRepository{
		findByBookingIDFunc: func(_ context.Context, _ string) (*model.AvailabilityBlock, error) {
			return tourBlock(testVehicleAID), nil
		},
		findForDayFunc: func(_ context.Context, vehicleID string, _ time.Time) ([]*model.AvailabilityBlock, error) {
			switch vehicleID {
			case testVehicleAID:
				// Only the tour's own booking block, which is excluded.
				return []*model.AvailabilityBlock{tourBlock(testVehicleAID)}, nil
			case testVehicleBID:
				return []*model.AvailabilityBlock{{
					ID:        "65a1f77bcf86cd7994390099",
					VehicleID: testVehicleBID,
					BlockDate: tourDay,
					StartTime: &busyStart,
					EndTime:   &busyEnd,
					BlockType: model.BlockTypeMaintenance,
				}}, nil
			}
			return []*model.AvailabilityBlock{}, nil
		},
	}
	vehicles := &mockVehicleRepository{
		findActiveFunc: func(_ context.Context) ([]*model.Vehicle, error) {
			return []*model.Vehicle{
				vehicle(testVehicleCID, "Sprinter", 6),
				vehicle(testVehicleAID, "Coach A", 14),
				vehicle(testVehicleBID, "Coach B", 20),
			}, nil
		},
	}

	svc := newTourService(tours, tickets, blocks, vehicles, nil, cfg)
	result, err := svc.AvailableVehicles(context.Background(), testTourID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TicketsSold != 8 {
		t.Errorf("expected 8 tickets sold, got %d", result.TicketsSold)
	}
	if len(result.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(result.Candidates))
	}
	for _, c := range result.Candidates {
		if c.ID == testVehicleBID {
			t.Error("vehicle with conflicting block should not be a candidate")
		}
		if c.ID == testVehicleCID && c.Fits {
			t.Error("6-seat vehicle should not fit 8 sold tickets")
		}
		if c.ID == testVehicleAID && !c.Fits {
			t.Error("current vehicle should fit the sold tickets")
		}
	}
}

func TestReassignVehicle_AutoPicksSmallestFit(t *testing.T) {
	cfg := testConfig()
	tours := &mockTourRepository{
		findByIDFunc: func(_ context.Context, _ string) (*model.Tour, error) {
			return scheduledTour(), nil
		},
	}
	tickets := &mockTicketRepository{
		countFunc: func(_ context.Context, _ string) (int, error) { return 8, nil },
	}
	var reassignedTo string
	blocks := &mockBlockRepository{
		findByBookingIDFunc: func(_ context.Context, _ string) (*model.AvailabilityBlock, error) {
			return tourBlock(testVehicleAID), nil
		},
		reassignFunc: func(_ context.Context, blockID, vehicleID string) error {
			if blockID != testBlockID {
				t.Errorf("expected block %s reassigned, got %s", testBlockID, blockID)
			}
			reassignedTo = vehicleID
			return nil
		},
	}
	vehicles := &mockVehicleRepository{
		findActiveFunc: func(_ context.Context) ([]*model.Vehicle, error) {
			// Sorted by capacity ascending, as the repository returns them.
			return []*model.Vehicle{
				vehicle(testVehicleCID, "Sprinter", 6),
				vehicle(testVehicleBID, "Coach B", 10),
				vehicle(testVehicleAID, "Coach A", 14),
			}, nil
		},
	}
	pub := &mockPublisher{}

	svc := newTourService(tours, tickets, blocks, vehicles, pub, cfg)
	result, err := svc.ReassignVehicle(context.Background(), testTourID, &model.ReassignRequest{ReassignVehicle: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Vehicle.ID != testVehicleBID {
		t.Errorf("expected smallest fitting vehicle %s, got %s", testVehicleBID, result.Vehicle.ID)
	}
	if reassignedTo != testVehicleBID {
		t.Errorf("expected booking block moved to %s, got %s", testVehicleBID, reassignedTo)
	}
	if result.MaxGuestsCapped {
		t.Error("max guests should not be capped when capacity is insufficient only for larger groups")
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.published))
	}
	if pub.published[0].GetEventType() != kafka.EventTourVehicleChanged {
		t.Errorf("expected event %s, got %s", kafka.EventTourVehicleChanged, pub.published[0].GetEventType())
	}
}

func TestReassignVehicle_CapsMaxGuests(t *testing.T) {
	cfg := testConfig()
	tours := &mockTourRepository{
		findByIDFunc: func(_ context.Context, _ string) (*model.Tour, error) {
			return scheduledTour(), nil
		},
	}
	tickets := &mockTicketRepository{
		countFunc: func(_ context.Context, _ string) (int, error) { return 5, nil },
	}
	blocks := &mockBlockRepository{
		findByBookingIDFunc: func(_ context.Context, _ string) (*model.AvailabilityBlock, error) {
			return tourBlock(testVehicleAID), nil
		},
	}
	var updatedMaxGuests int
	tours.updateVehicleFunc = func(_ context.Context, _ string, _ string, maxGuests int) error {
		updatedMaxGuests = maxGuests
		return nil
	}
	vehicles := &mockVehicleRepository{
		findByIDFunc: func(_ context.Context, id string) (*model.Vehicle, error) {
			return vehicle(testVehicleBID, "Sprinter", 8), nil
		},
	}

	svc := newTourService(tours, tickets, blocks, vehicles, nil, cfg)
	result, err := svc.ReassignVehicle(context.Background(), testTourID, &model.ReassignRequest{VehicleID: testVehicleBID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.MaxGuestsCapped {
		t.Error("expected max_guests_capped when tour allows 12 guests on an 8-seat vehicle")
	}
	if result.Tour.MaxGuests != 8 {
		t.Errorf("expected max guests capped to 8, got %d", result.Tour.MaxGuests)
	}
	if updatedMaxGuests != 8 {
		t.Errorf("expected stored max guests 8, got %d", updatedMaxGuests)
	}
}

func TestReassignVehicle_ExplicitCapacityTooSmall(t *testing.T) {
	cfg := testConfig()
	tours := &mockTourRepository{
		findByIDFunc: func(_ context.Context, _ string) (*model.Tour, error) {
			return scheduledTour(), nil
		},
	}
	tickets := &mockTicketRepository{
		countFunc: func(_ context.Context, _ string) (int, error) { return 10, nil },
	}
	blocks := &mockBlockRepository{
		findByBookingIDFunc: func(_ context.Context, _ string) (*model.AvailabilityBlock, error) {
			return tourBlock(testVehicleAID), nil
		},
	}
	vehicles := &mockVehicleRepository{
		findByIDFunc: func(_ context.Context, _ string) (*model.Vehicle, error) {
			return vehicle(testVehicleBID, "Sprinter", 6), nil
		},
	}

	svc := newTourService(tours, tickets, blocks, vehicles, nil, cfg)
	_, err := svc.ReassignVehicle(context.Background(), testTourID, &model.ReassignRequest{VehicleID: testVehicleBID})

	expectCode(t, err, apperrors.CodeInvalidInput)
	if !strings.Contains(apperrors.AsAppError(err).Message, "tickets are already sold") {
		t.Errorf("expected capacity message naming sold tickets, got %q", apperrors.AsAppError(err).Message)
	}
}

func TestReassignVehicle_ExplicitVehicleBusy(t *testing.T) {
	cfg := testConfig()
	tours := &mockTourRepository{
		findByIDFunc: func(_ context.Context, _ string) (*model.Tour, error) {
			return scheduledTour(), nil
		},
	}
	tickets := &mockTicketRepository{
		countFunc: func(_ context.Context, _ string) (int, error) { return 5, nil },
	}
	busyStart := tourDay.Add(8 * time.Hour)
	busyEnd := tourDay.Add(11 * time.Hour)
	blocks := &mockBlockRepository{
		findByBookingIDFunc: func(_ context.Context, _ string) (*model.AvailabilityBlock, error) {
			return tourBlock(testVehicleAID), nil
		},
		findForDayFunc: func(_ context.Context, vehicleID string, _ time.Time) ([]*model.AvailabilityBlock, error) {
			if vehicleID == testVehicleBID {
				return []*model.AvailabilityBlock{{
					ID:        "65a1f77bcf86cd7994390099",
					VehicleID: testVehicleBID,
					BlockDate: tourDay,
					StartTime: &busyStart,
					EndTime:   &busyEnd,
					BlockType: model.BlockTypeBooking,
				}}, nil
			}
			return []*model.AvailabilityBlock{}, nil
		},
	}
	vehicles := &mockVehicleRepository{
		findByIDFunc: func(_ context.Context, _ string) (*model.Vehicle, error) {
			return vehicle(testVehicleBID, "Coach B", 20), nil
		},
	}

	svc := newTourService(tours, tickets, blocks, vehicles, nil, cfg)
	_, err := svc.ReassignVehicle(context.Background(), testTourID, &model.ReassignRequest{VehicleID: testVehicleBID})

	expectCode(t, err, apperrors.CodeConflict)
}

func TestReassignVehicle_NoCandidate(t *testing.T) {
	cfg := testConfig()
	tours := &mockTourRepository{
		findByIDFunc: func(_ context.Context, _ string) (*model.Tour, error) {
			return scheduledTour(), nil
		},
	}
	tickets := &mockTicketRepository{
		countFunc: func(_ context.Context, _ string) (int, error) { return 15, nil },
	}
	blocks := &mockBlockRepository{
		findByBookingIDFunc: func(_ context.Context, _ string) (*model.AvailabilityBlock, error) {
			return tourBlock(testVehicleAID), nil
		},
	}
	vehicles := &mockVehicleRepository{
		findActiveFunc: func(_ context.Context) ([]*model.Vehicle, error) {
			// Nothing seats 15 besides the current vehicle.
			return []*model.Vehicle{
				vehicle(testVehicleCID, "Sprinter", 6),
				vehicle(testVehicleBID, "Coach B", 10),
			}, nil
		},
	}

	svc := newTourService(tours, tickets, blocks, vehicles, nil, cfg)
	_, err := svc.ReassignVehicle(context.Background(), testTourID, &model.ReassignRequest{ReassignVehicle: true})

	expectCode(t, err, apperrors.CodeConflict)
}

func TestReassignVehicle_SlotLockContention(t *testing.T) {
	cfg := testConfig()
	tours := &mockTourRepository{
		findByIDFunc: func(_ context.Context, _ string) (*model.Tour, error) {
			return scheduledTour(), nil
		},
	}
	tickets := &mockTicketRepository{
		countFunc: func(_ context.Context, _ string) (int, error) { return 5, nil },
	}
	blocks := &mockBlockRepository{
		findByBookingIDFunc: func(_ context.Context, _ string) (*model.AvailabilityBlock, error) {
			return tourBlock(testVehicleAID), nil
		},
		reassignFunc: func(_ context.Context, _, _ string) error {
			t.Error("booking block must not move while the slot lock is held elsewhere")
			return nil
		},
	}
	locks := &mockSlotLockRepository{
		createFunc: func(_ context.Context, lock *model.SlotLock) (*model.SlotLock, error) {
			if !strings.Contains(lock.ID, testVehicleBID) {
				t.Errorf("expected lock keyed on target vehicle %s, got %s", testVehicleBID, lock.ID)
			}
			return nil, duplicateKeyError()
		},
	}
	vehicles := &mockVehicleRepository{
		findByIDFunc: func(_ context.Context, _ string) (*model.Vehicle, error) {
			return vehicle(testVehicleBID, "Coach B", 20), nil
		},
	}

	svc := newTourServiceWithLocks(tours, tickets, blocks, locks, vehicles, nil, cfg)
	_, err := svc.ReassignVehicle(context.Background(), testTourID, &model.ReassignRequest{VehicleID: testVehicleBID})

	expectCode(t, err, apperrors.CodeConflict)
}

func TestReassignVehicle_CancelledTourRejected(t *testing.T) {
	cfg := testConfig()
	cancelled := scheduledTour()
	cancelled.Status = model.TourCancelled
	tours := &mockTourRepository{
		findByIDFunc: func(_ context.Context, _ string) (*model.Tour, error) {
			return cancelled, nil
		},
	}

	svc := newTourService(tours, &mockTicketRepository{}, &mockBlockRepository{}, &mockVehicleRepository{}, nil, cfg)
	_, err := svc.ReassignVehicle(context.Background(), testTourID, &model.ReassignRequest{ReassignVehicle: true})

	expectCode(t, err, apperrors.CodeInvalidInput)
}

func TestPatch_RescheduleOffDaysRejected(t *testing.T) {
	cfg := testConfig()
	tours := &mockTourRepository{
		findByIDFunc: func(_ context.Context, _ string) (*model.Tour, error) {
			return scheduledTour(), nil
		},
	}

	svc := newTourService(tours, &mockTicketRepository{}, &mockBlockRepository{}, &mockVehicleRepository{}, nil, cfg)

	// June 12 2025 is a Thursday.
	thursday := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	start := thursday.Add(9 * time.Hour)
	end := thursday.Add(13 * time.Hour)
	_, err := svc.Patch(context.Background(), testTourID, &model.TourPatch{
		TourDate:  &thursday,
		StartTime: &start,
		EndTime:   &end,
	})

	expectCode(t, err, apperrors.CodeInvalidInput)
	if !strings.Contains(apperrors.AsAppError(err).Message, "Sunday through Wednesday") {
		t.Errorf("expected operating-days message, got %q", apperrors.AsAppError(err).Message)
	}
}

func TestPatch_RescheduleMovesBookingBlock(t *testing.T) {
	cfg := testConfig()
	tours := &mockTourRepository{
		findByIDFunc: func(_ context.Context, _ string) (*model.Tour, error) {
			return scheduledTour(), nil
		},
	}
	var movedBlock *model.AvailabilityBlock
	blocks := &mockBlockRepository{
		findByBookingIDFunc: func(_ context.Context, _ string) (*model.AvailabilityBlock, error) {
			return tourBlock(testVehicleAID), nil
		},
		updateFunc: func(_ context.Context, id string, block *model.AvailabilityBlock) (*mongo.UpdateResult, error) {
			movedBlock = block
			return &mongo.UpdateResult{MatchedCount: 1}, nil
		},
	}
	pub := &mockPublisher{}

	svc := newTourService(tours, &mockTicketRepository{}, blocks, &mockVehicleRepository{}, pub, cfg)

	// June 15 2025 is a Sunday.
	sunday := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	start := sunday.Add(10 * time.Hour)
	end := sunday.Add(14 * time.Hour)
	tour, err := svc.Patch(context.Background(), testTourID, &model.TourPatch{
		TourDate:  &sunday,
		StartTime: &start,
		EndTime:   &end,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !tour.TourDate.Equal(sunday) {
		t.Errorf("expected tour date %v, got %v", sunday, tour.TourDate)
	}
	if movedBlock == nil {
		t.Fatal("expected booking block to be updated")
	}
	if !movedBlock.BlockDate.Equal(sunday) {
		t.Errorf("expected block moved to %v, got %v", sunday, movedBlock.BlockDate)
	}
	if !movedBlock.StartTime.Equal(start) || !movedBlock.EndTime.Equal(end) {
		t.Error("expected block window to track the new tour window")
	}
	if len(pub.published) != 1 || pub.published[0].GetEventType() != kafka.EventTourScheduleChanged {
		t.Errorf("expected one %s event", kafka.EventTourScheduleChanged)
	}
}

func TestPatch_RescheduleConflictRejected(t *testing.T) {
	cfg := testConfig()
	tours := &mockTourRepository{
		findByIDFunc: func(_ context.Context, _ string) (*model.Tour, error) {
			return scheduledTour(), nil
		},
	}
	sunday := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	blocks := &mockBlockRepository{
		findByBookingIDFunc: func(_ context.Context, _ string) (*model.AvailabilityBlock, error) {
			return tourBlock(testVehicleAID), nil
		},
		findForDayFunc: func(_ context.Context, _ string, _ time.Time) ([]*model.AvailabilityBlock, error) {
			return []*model.AvailabilityBlock{{
				ID:        "65a1f77bcf86cd7994390099",
				VehicleID: testVehicleAID,
				BlockDate: sunday,
				BlockType: model.BlockTypeMaintenance,
			}}, nil
		},
	}

	svc := newTourService(tours, &mockTicketRepository{}, blocks, &mockVehicleRepository{}, nil, cfg)

	start := sunday.Add(10 * time.Hour)
	end := sunday.Add(14 * time.Hour)
	_, err := svc.Patch(context.Background(), testTourID, &model.TourPatch{
		TourDate:  &sunday,
		StartTime: &start,
		EndTime:   &end,
	})

	expectCode(t, err, apperrors.CodeConflict)
}

func TestPatch_NameOnlySkipsAvailabilityCheck(t *testing.T) {
	cfg := testConfig()
	tours := &mockTourRepository{
		findByIDFunc: func(_ context.Context, _ string) (*model.Tour, error) {
			return scheduledTour(), nil
		},
	}
	blocks := &mockBlockRepository{
		findByBookingIDFunc: func(_ context.Context, _ string) (*model.AvailabilityBlock, error) {
			t.Error("name-only patch should not look up the booking block")
			return nil, availerrors.ErrNotFound
		},
	}

	svc := newTourService(tours, &mockTicketRepository{}, blocks, &mockVehicleRepository{}, nil, cfg)

	name := "Sunset Loop"
	tour, err := svc.Patch(context.Background(), testTourID, &model.TourPatch{Name: &name})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tour.Name != "Sunset Loop" {
		t.Errorf("expected name updated, got %q", tour.Name)
	}
}

func TestValidTourDay(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"sunday", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), true},
		{"monday", time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), true},
		{"tuesday", time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), true},
		{"wednesday", time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), true},
		{"thursday", time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC), false},
		{"friday", time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC), false},
		{"saturday", time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidTourDay(tt.date); got != tt.want {
				t.Errorf("ValidTourDay(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
