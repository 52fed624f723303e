package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fleetops/internal/availability/conflict"
	availerrors "fleetops/internal/availability/errors"
	availrepo "fleetops/internal/availability/repository"
	fleeterrors "fleetops/internal/fleet/errors"
	fleetrepo "fleetops/internal/fleet/repository"
	tourserrors "fleetops/internal/tours/errors"
	"fleetops/internal/tours/repository"
	"fleetops/internal/tours/validator"
	"fleetops/pkg/config"
	apperrors "fleetops/pkg/errors"
	"fleetops/pkg/kafka"
	"fleetops/pkg/model"
	"fleetops/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// CandidateVehicle is one vehicle that could run a tour. Fits reports whether
// its capacity covers the seats already sold.
type CandidateVehicle struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Fits     bool   `json:"fits"`
}

type AvailableVehiclesResult struct {
	TourID      string              `json:"tour_id"`
	TicketsSold int                 `json:"tickets_sold"`
	Candidates  []*CandidateVehicle `json:"candidates"`
}

type ReassignResult struct {
	Tour            *model.Tour    `json:"tour"`
	Vehicle         *model.Vehicle `json:"vehicle"`
	MaxGuestsCapped bool           `json:"max_guests_capped"`
}

type TourService interface {
	GetByID(ctx context.Context, id string) (*model.Tour, error)
	AvailableVehicles(ctx context.Context, tourID string) (*AvailableVehiclesResult, error)
	ReassignVehicle(ctx context.Context, tourID string, req *model.ReassignRequest) (*ReassignResult, error)
	Patch(ctx context.Context, tourID string, patch *model.TourPatch) (*model.Tour, error)
}

type tourService struct {
	tours     repository.TourRepository
	tickets   repository.TicketRepository
	blocks    availrepo.BlockRepository
	locks     availrepo.SlotLockRepository
	vehicles  fleetrepo.VehicleRepository
	detector  *conflict.Detector
	validator *validator.TourValidator
	publisher kafka.Publisher
	cfg       *config.Config
}

func NewTourService(
	tours repository.TourRepository,
	tickets repository.TicketRepository,
	blocks availrepo.BlockRepository,
	locks availrepo.SlotLockRepository,
	vehicles fleetrepo.VehicleRepository,
	validator *validator.TourValidator,
	publisher kafka.Publisher,
	cfg *config.Config,
) TourService {
	return &tourService{
		tours:     tours,
		tickets:   tickets,
		blocks:    blocks,
		locks:     locks,
		vehicles:  vehicles,
		detector:  conflict.NewDetector(blocks),
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *tourService) GetByID(ctx context.Context, id string) (*model.Tour, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Tour ID cannot be empty")
	}

	tour, err := s.tours.FindByID(ctx, id)
	if err != nil {
		return nil, mapTourLookupError(err, id)
	}
	return tour, nil
}

// AvailableVehicles lists the active vehicles whose schedule is free during
// the tour window. The tour's own booking block is excluded so the current
// vehicle shows up as a candidate too.
func (s *tourService) AvailableVehicles(ctx context.Context, tourID string) (*AvailableVehiclesResult, error) {
	tour, err := s.GetByID(ctx, tourID)
	if err != nil {
		return nil, err
	}

	var ticketsSold int
	var vehicles []*model.Vehicle
	var ownBlock *model.AvailabilityBlock
	var errTickets, errVehicles, errBlock error
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		ticketsSold, errTickets = s.tickets.CountConfirmedSeats(ctx, tour.ID)
	}()
	go func() {
		defer wg.Done()
		vehicles, errVehicles = s.vehicles.FindActive(ctx)
	}()
	go func() {
		defer wg.Done()
		ownBlock, errBlock = s.findOwnBlock(ctx, tour)
	}()

	wg.Wait()
	if errTickets != nil {
		return nil, apperrors.Internal("Failed to count sold tickets", errTickets)
	}
	if errVehicles != nil {
		return nil, apperrors.Internal("Failed to list active vehicles", errVehicles)
	}
	if errBlock != nil {
		return nil, errBlock
	}

	opts := conflict.Options{}
	if ownBlock != nil {
		opts.ExcludeBlockID = ownBlock.ID
	}

	candidates := make([]*CandidateVehicle, 0, len(vehicles))
	for _, v := range vehicles {
		conflicting, err := s.detector.FirstConflict(ctx, v.ID, tour.TourDate, tour.StartTime, tour.EndTime, opts)
		if err != nil {
			return nil, apperrors.Internal("Failed to check vehicle availability", err)
		}
		if conflicting != nil {
			continue
		}
		candidates = append(candidates, &CandidateVehicle{
			ID:       v.ID,
			Name:     v.Name,
			Capacity: v.Capacity,
			Fits:     v.Capacity >= ticketsSold,
		})
	}

	return &AvailableVehiclesResult{
		TourID:      tour.ID,
		TicketsSold: ticketsSold,
		Candidates:  candidates,
	}, nil
}

func (s *tourService) ReassignVehicle(ctx context.Context, tourID string, req *model.ReassignRequest) (*ReassignResult, error) {
	if err := s.validator.ValidateReassign(req); err != nil {
		s.cfg.Log.Warn("Reassign request validation failed", "tour_id", tourID, "error", err)
		return nil, apperrors.Validation("Invalid reassign request", map[string]any{"error": err.Error()})
	}

	tour, err := s.GetByID(ctx, tourID)
	if err != nil {
		return nil, err
	}
	if tour.Status != model.TourScheduled {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Cannot reassign a %s tour", tour.Status))
	}

	ticketsSold, err := s.tickets.CountConfirmedSeats(ctx, tour.ID)
	if err != nil {
		return nil, apperrors.Internal("Failed to count sold tickets", err)
	}

	ownBlock, err := s.findOwnBlock(ctx, tour)
	if err != nil {
		return nil, err
	}
	if ownBlock == nil {
		return nil, apperrors.Internal("Tour has no booking block", tourserrors.ErrTourNotFound)
	}

	var target *model.Vehicle
	if req.VehicleID != "" {
		target, err = s.resolveExplicitVehicle(ctx, tour, req.VehicleID, ticketsSold)
	} else {
		target, err = s.pickSmallestFit(ctx, tour, ownBlock.ID, ticketsSold)
	}
	if err != nil {
		return nil, err
	}

	capped := tour.MaxGuests > target.Capacity
	newMaxGuests := tour.MaxGuests
	if capped {
		newMaxGuests = target.Capacity
	}

	// Moving the booking block is a check-then-write on the target vehicle's
	// day, so it serializes through the same advisory lock hold and block
	// creation use.
	lockID, err := s.acquireSlotLock(ctx, target.ID, tour.TourDate)
	if err != nil {
		return nil, err
	}
	defer s.releaseSlotLock(ctx, lockID)

	previousVehicleID := tour.VehicleID
	err = s.tours.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		conflicting, err := s.detector.FirstConflict(sessCtx, target.ID, tour.TourDate, tour.StartTime, tour.EndTime, conflict.Options{ExcludeBlockID: ownBlock.ID})
		if err != nil {
			return apperrors.Internal("Failed to check vehicle availability", err)
		}
		if conflicting != nil {
			return apperrors.Conflict(fmt.Sprintf(
				"Vehicle %s has a conflicting %s block (%s)",
				target.Name, conflicting.BlockType, conflicting.Window(),
			))
		}
		if err := s.blocks.ReassignToVehicle(sessCtx, ownBlock.ID, target.ID); err != nil {
			return apperrors.Internal("Failed to move booking block", err)
		}
		if err := s.tours.UpdateVehicle(sessCtx, tour.ID, target.ID, newMaxGuests); err != nil {
			return apperrors.Internal("Failed to update tour vehicle", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to reassign tour vehicle", "tour_id", tour.ID, "vehicle_id", target.ID, "error", err)
		return nil, err
	}

	tour.VehicleID = target.ID
	tour.MaxGuests = newMaxGuests

	s.publish(ctx, kafka.EventTourVehicleChanged, tour.ID, map[string]any{
		"tour_id":             tour.ID,
		"previous_vehicle_id": previousVehicleID,
		"vehicle_id":          target.ID,
		"tickets_sold":        ticketsSold,
		"max_guests":          newMaxGuests,
		"max_guests_capped":   capped,
	})
	s.cfg.Log.Info("Tour vehicle reassigned",
		"tour_id", tour.ID,
		"previous_vehicle_id", previousVehicleID,
		"vehicle_id", target.ID,
		"max_guests_capped", capped,
	)

	return &ReassignResult{
		Tour:            tour,
		Vehicle:         target,
		MaxGuestsCapped: capped,
	}, nil
}

func (s *tourService) Patch(ctx context.Context, tourID string, patch *model.TourPatch) (*model.Tour, error) {
	tour, err := s.GetByID(ctx, tourID)
	if err != nil {
		return nil, err
	}

	if err := s.validator.ValidatePatch(patch); err != nil {
		s.cfg.Log.Warn("Tour patch validation failed", "tour_id", tourID, "error", err)
		return nil, apperrors.Validation("Invalid patch input", map[string]any{"error": err.Error()})
	}

	merged := mergeTourPatch(tour, patch)
	windowChanged := patch.TourDate != nil || patch.StartTime != nil || patch.EndTime != nil

	if windowChanged {
		if tour.Status != model.TourScheduled {
			return nil, apperrors.InvalidInput(fmt.Sprintf("Cannot reschedule a %s tour", tour.Status))
		}
		merged.TourDate = model.DayOf(merged.TourDate)
		if !ValidTourDay(merged.TourDate) {
			return nil, apperrors.InvalidInput("Tours run Sunday through Wednesday only")
		}
		if err := validateTourWindow(merged); err != nil {
			return nil, err
		}
	}

	if windowChanged {
		ownBlock, err := s.findOwnBlock(ctx, tour)
		if err != nil {
			return nil, err
		}
		if ownBlock == nil {
			return nil, apperrors.Internal("Tour has no booking block", tourserrors.ErrTourNotFound)
		}

		lockID, err := s.acquireSlotLock(ctx, tour.VehicleID, merged.TourDate)
		if err != nil {
			return nil, err
		}
		defer s.releaseSlotLock(ctx, lockID)

		err = s.tours.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			conflicting, err := s.detector.FirstConflict(sessCtx, tour.VehicleID, merged.TourDate, merged.StartTime, merged.EndTime, conflict.Options{ExcludeBlockID: ownBlock.ID})
			if err != nil {
				return apperrors.Internal("Failed to check vehicle availability", err)
			}
			if conflicting != nil {
				return apperrors.Conflict(fmt.Sprintf(
					"New window conflicts with an existing %s block (%s)",
					conflicting.BlockType, conflicting.Window(),
				))
			}

			ownBlock.BlockDate = merged.TourDate
			ownBlock.StartTime = merged.StartTime
			ownBlock.EndTime = merged.EndTime
			if _, err := s.blocks.Update(sessCtx, ownBlock.ID, ownBlock); err != nil {
				return apperrors.Internal("Failed to move booking block", err)
			}
			if err := s.tours.Update(sessCtx, tour.ID, merged); err != nil {
				return apperrors.Internal("Failed to update tour", err)
			}
			return nil
		})
		if err != nil {
			s.cfg.Log.Error("Failed to reschedule tour", "tour_id", tour.ID, "error", err)
			return nil, err
		}

		s.publish(ctx, kafka.EventTourScheduleChanged, tour.ID, merged)
		s.cfg.Log.Info("Tour rescheduled",
			"tour_id", tour.ID,
			"tour_date", model.DateKey(merged.TourDate),
		)
		return merged, nil
	}

	if err := s.tours.Update(ctx, tour.ID, merged); err != nil {
		if errors.Is(err, tourserrors.ErrTourNotFound) {
			return nil, apperrors.NotFoundWithID("Tour", tourID)
		}
		return nil, apperrors.Internal("Failed to update tour", err)
	}

	s.cfg.Log.Info("Tour updated", "tour_id", tour.ID)
	return merged, nil
}

// --- Helpers ---

// ValidTourDay reports whether tours may run on the given date. The business
// schedules shared tours Sunday through Wednesday.
func ValidTourDay(date time.Time) bool {
	return date.Weekday() <= time.Wednesday
}

// acquireSlotLock takes the advisory lock for a vehicle day. Snapshot-isolated
// transactions let two check-then-write callers both commit, so every path
// that moves or inserts a block must hold this lock across its transaction.
func (s *tourService) acquireSlotLock(ctx context.Context, vehicleID string, date time.Time) (string, error) {
	lockID := fmt.Sprintf("slot_lock_%s_%s", vehicleID, model.DateKey(date))

	lock := &model.SlotLock{
		ID:        lockID,
		ExpiresAt: time.Now().Add(s.cfg.SlotLockTTL),
	}

	_, err := s.locks.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("This vehicle slot is currently being held by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire slot lock", err)
	}

	return lockID, nil
}

func (s *tourService) releaseSlotLock(ctx context.Context, lockID string) {
	if err := s.locks.Delete(ctx, lockID); err != nil {
		s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", err)
	}
}

// findOwnBlock loads the booking block reserving this tour's window. A nil
// result means the block is missing, which callers treat per-operation.
func (s *tourService) findOwnBlock(ctx context.Context, tour *model.Tour) (*model.AvailabilityBlock, error) {
	block, err := s.blocks.FindByBookingID(ctx, tour.BookingID)
	if err != nil {
		if errors.Is(err, availerrors.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.Internal("Failed to find tour booking block", err)
	}
	return block, nil
}

func (s *tourService) resolveExplicitVehicle(ctx context.Context, tour *model.Tour, vehicleID string, ticketsSold int) (*model.Vehicle, error) {
	vehicle, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, fleeterrors.ErrVehicleNotFound) {
			return nil, apperrors.NotFoundWithID("Vehicle", vehicleID)
		}
		if errors.Is(err, fleeterrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid vehicle ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve vehicle", err)
	}

	if vehicle.ID == tour.VehicleID {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Tour is already assigned to vehicle %s", vehicle.Name))
	}
	if !vehicle.Assignable() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Vehicle %s is not in service", vehicle.Name))
	}
	if vehicle.Capacity < ticketsSold {
		return nil, apperrors.InvalidInput(fmt.Sprintf(
			"Vehicle %s seats %d but %d tickets are already sold",
			vehicle.Name, vehicle.Capacity, ticketsSold,
		))
	}

	return vehicle, nil
}

// pickSmallestFit selects the smallest-capacity active vehicle that can seat
// the sold tickets and is free during the tour window. FindActive returns
// vehicles sorted by capacity ascending, so the first fit is the smallest.
func (s *tourService) pickSmallestFit(ctx context.Context, tour *model.Tour, ownBlockID string, ticketsSold int) (*model.Vehicle, error) {
	vehicles, err := s.vehicles.FindActive(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to list active vehicles", err)
	}

	for _, v := range vehicles {
		if v.ID == tour.VehicleID || v.Capacity < ticketsSold {
			continue
		}
		conflicting, err := s.detector.FirstConflict(ctx, v.ID, tour.TourDate, tour.StartTime, tour.EndTime, conflict.Options{ExcludeBlockID: ownBlockID})
		if err != nil {
			return nil, apperrors.Internal("Failed to check vehicle availability", err)
		}
		if conflicting == nil {
			return v, nil
		}
	}

	return nil, apperrors.Conflict("No active vehicle can take this tour")
}

func validateTourWindow(tour *model.Tour) error {
	if (tour.StartTime == nil) != (tour.EndTime == nil) {
		return apperrors.InvalidInput("start_time and end_time must both be set or both be empty")
	}
	if tour.StartTime == nil {
		return nil
	}
	if !tour.EndTime.After(*tour.StartTime) {
		return apperrors.InvalidInput("end_time must be after start_time")
	}

	day := model.DayOf(tour.TourDate)
	if !model.DayOf(*tour.StartTime).Equal(day) {
		return apperrors.InvalidInput("start_time must fall on tour_date")
	}
	endDay := model.DayOf(*tour.EndTime)
	if !endDay.Equal(day) && !tour.EndTime.Equal(day.AddDate(0, 0, 1)) {
		return apperrors.InvalidInput("end_time must fall on tour_date")
	}
	return nil
}

func mergeTourPatch(existing *model.Tour, patch *model.TourPatch) *model.Tour {
	merged := *existing

	if patch.Name != nil {
		merged.Name = sanitizer.NormalizeName(*patch.Name)
	}
	if patch.TourDate != nil {
		merged.TourDate = *patch.TourDate
	}
	if patch.StartTime != nil {
		merged.StartTime = patch.StartTime
	}
	if patch.EndTime != nil {
		merged.EndTime = patch.EndTime
	}
	if patch.MaxGuests != nil {
		merged.MaxGuests = *patch.MaxGuests
	}
	if patch.Status != nil {
		merged.Status = model.TourStatus(*patch.Status)
	}

	return &merged
}

func (s *tourService) publish(ctx context.Context, eventType, key string, payload any) {
	if s.publisher == nil {
		return
	}
	msg := kafka.NewMessage().
		WithTopic(kafka.TopicTours).
		WithKey(key).
		WithValue(payload).
		WithEventType(eventType).
		WithSource("tours").
		Build()
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.cfg.Log.Warn("Failed to publish event", "event_type", eventType, "error", err)
	}
}

func mapTourLookupError(err error, id string) error {
	if errors.Is(err, tourserrors.ErrTourNotFound) {
		return apperrors.NotFoundWithID("Tour", id)
	}
	if errors.Is(err, tourserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid tour ID format")
	}
	return apperrors.Internal("Failed to retrieve tour", err)
}
