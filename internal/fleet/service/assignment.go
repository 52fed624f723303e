package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	fleeterrors "fleetops/internal/fleet/errors"
	"fleetops/internal/fleet/repository"
	"fleetops/internal/fleet/validator"
	"fleetops/pkg/config"
	apperrors "fleetops/pkg/errors"
	"fleetops/pkg/kafka"
	"fleetops/pkg/model"
	"fleetops/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// AssignmentResult is the response for a successful assignment.
type AssignmentResult struct {
	Assignment    *model.VehicleAssignment `json:"assignment"`
	ClientService *model.ClientService     `json:"client_service"`
}

type AssignmentService interface {
	AssignVehicle(ctx context.Context, req *model.AssignmentRequest) (*AssignmentResult, error)
	ReleaseVehicle(ctx context.Context, shiftID string) error
	GetActiveAssignment(ctx context.Context, vehicleID string) (*model.VehicleAssignment, error)
}

type assignmentService struct {
	vehicles    repository.VehicleRepository
	shifts      repository.ShiftRepository
	assignments repository.AssignmentRepository
	validator   *validator.AssignmentValidator
	publisher   kafka.Publisher
	cfg         *config.Config
}

func NewAssignmentService(
	vehicles repository.VehicleRepository,
	shifts repository.ShiftRepository,
	assignments repository.AssignmentRepository,
	validator *validator.AssignmentValidator,
	publisher kafka.Publisher,
	cfg *config.Config,
) AssignmentService {
	return &assignmentService{
		vehicles:    vehicles,
		shifts:      shifts,
		assignments: assignments,
		validator:   validator,
		publisher:   publisher,
		cfg:         cfg,
	}
}

func (s *assignmentService) AssignVehicle(ctx context.Context, req *model.AssignmentRequest) (*AssignmentResult, error) {
	req.ClientName = sanitizer.NormalizeName(req.ClientName)
	req.ServiceType = sanitizer.NormalizeLabel(req.ServiceType)
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Assignment validation failed", "error", err)
		return nil, apperrors.Validation("Assignment validation failed", map[string]any{"error": err.Error()})
	}

	shift, err := s.shifts.FindByID(ctx, req.ShiftID)
	if err != nil {
		if errors.Is(err, fleeterrors.ErrShiftNotFound) {
			return nil, apperrors.NotFoundWithID("Shift", req.ShiftID)
		}
		if errors.Is(err, fleeterrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid shift ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve shift", err)
	}
	if !shift.Active() {
		return nil, apperrors.InvalidInput("Shift has already clocked out")
	}

	vehicle, err := s.vehicles.FindByID(ctx, req.VehicleID)
	if err != nil {
		if errors.Is(err, fleeterrors.ErrVehicleNotFound) {
			return nil, apperrors.NotFoundWithID("Vehicle", req.VehicleID)
		}
		if errors.Is(err, fleeterrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid vehicle ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve vehicle", err)
	}
	if !vehicle.Assignable() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Vehicle %s is not assignable (status: %s)", vehicle.Name, vehicle.Status))
	}

	cs := &model.ClientService{
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		ServiceType: req.ServiceType,
	}
	assignment := &model.VehicleAssignment{
		ShiftID:    req.ShiftID,
		VehicleID:  req.VehicleID,
		DriverID:   shift.DriverID,
		DriverName: shift.DriverName,
	}

	err = s.vehicles.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		existing, err := s.assignments.FindActiveByVehicle(sessCtx, req.VehicleID)
		if err != nil && !errors.Is(err, fleeterrors.ErrAssignmentNotFound) {
			return apperrors.Internal("Failed to check existing assignments", err)
		}
		if existing != nil {
			return apperrors.Conflict(fmt.Sprintf(
				"Vehicle %s is already assigned to driver %s",
				vehicle.Name,
				existing.DriverName,
			))
		}

		if err := s.assignments.CreateClientService(sessCtx, cs); err != nil {
			return apperrors.Internal("Failed to create client service", err)
		}
		assignment.ClientServiceID = cs.ID
		if err := s.assignments.Create(sessCtx, assignment); err != nil {
			return apperrors.Internal("Failed to create assignment", err)
		}
		if err := s.vehicles.UpdateStatus(sessCtx, req.VehicleID, vehicle.Status, model.VehicleAssigned); err != nil {
			return apperrors.Internal("Failed to update vehicle status", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to assign vehicle", "vehicle_id", req.VehicleID, "shift_id", req.ShiftID, "error", err)
		return nil, err
	}

	s.publish(ctx, kafka.EventVehicleAssigned, assignment)
	s.cfg.Log.Info("Vehicle assigned",
		"assignment_id", assignment.ID,
		"vehicle_id", req.VehicleID,
		"shift_id", req.ShiftID,
		"driver", shift.DriverName,
	)
	return &AssignmentResult{Assignment: assignment, ClientService: cs}, nil
}

// ReleaseVehicle closes the active assignment for a shift: released_at on the
// assignment, clock_out on the shift, vehicle back to available, all or
// nothing. Releasing a shift with no active assignment reports not found.
func (s *assignmentService) ReleaseVehicle(ctx context.Context, shiftID string) error {
	if shiftID == "" {
		return apperrors.InvalidInput("Shift ID cannot be empty")
	}

	var released *model.VehicleAssignment
	err := s.vehicles.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		assignment, err := s.assignments.FindActiveByShift(sessCtx, shiftID)
		if err != nil {
			if errors.Is(err, fleeterrors.ErrAssignmentNotFound) {
				return apperrors.NotFound("Active assignment for shift")
			}
			return apperrors.Internal("Failed to find assignment", err)
		}

		now := time.Now().UTC().Truncate(time.Millisecond)
		if err := s.assignments.Release(sessCtx, assignment.ID, now); err != nil {
			if errors.Is(err, fleeterrors.ErrAssignmentNotFound) {
				return apperrors.NotFound("Active assignment for shift")
			}
			return apperrors.Internal("Failed to release assignment", err)
		}
		if err := s.shifts.StampClockOut(sessCtx, shiftID, now); err != nil && !errors.Is(err, fleeterrors.ErrShiftNotFound) {
			return apperrors.Internal("Failed to close shift", err)
		}
		if err := s.vehicles.UpdateStatus(sessCtx, assignment.VehicleID, model.VehicleAssigned, model.VehicleAvailable); err != nil && !errors.Is(err, fleeterrors.ErrVehicleNotFound) {
			return apperrors.Internal("Failed to update vehicle status", err)
		}

		released = assignment
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, kafka.EventVehicleReleased, released)
	s.cfg.Log.Info("Vehicle released", "vehicle_id", released.VehicleID, "shift_id", shiftID)
	return nil
}

func (s *assignmentService) GetActiveAssignment(ctx context.Context, vehicleID string) (*model.VehicleAssignment, error) {
	if vehicleID == "" {
		return nil, apperrors.InvalidInput("Vehicle ID cannot be empty")
	}

	assignment, err := s.assignments.FindActiveByVehicle(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, fleeterrors.ErrAssignmentNotFound) {
			return nil, apperrors.NotFoundWithID("Active assignment", vehicleID)
		}
		return nil, apperrors.Internal("Failed to retrieve assignment", err)
	}

	return assignment, nil
}

func (s *assignmentService) publish(ctx context.Context, eventType string, payload any) {
	if s.publisher == nil {
		return
	}
	key := eventType
	if assignment, ok := payload.(*model.VehicleAssignment); ok {
		key = assignment.VehicleID
	}
	msg := kafka.NewMessage().
		WithTopic(kafka.TopicAssignments).
		WithKey(key).
		WithValue(payload).
		WithEventType(eventType).
		WithSource("fleet").
		Build()
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.cfg.Log.Warn("Failed to publish event", "event_type", eventType, "error", err)
	}
}
