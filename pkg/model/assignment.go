package model

import "time"

// Shift is a driver work shift. It is written by the workforce system; this
// engine reads it and stamps ClockOut when the vehicle is released.
type Shift struct {
	ID         string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	DriverID   string     `json:"driver_id" bson:"driver_id" validate:"required,mongodb"`
	DriverName string     `json:"driver_name" bson:"driver_name" validate:"required,min=2,max=100"`
	ClockIn    time.Time  `json:"clock_in" bson:"clock_in" validate:"required"`
	ClockOut   *time.Time `json:"clock_out,omitempty" bson:"clock_out,omitempty"`
}

// Active reports whether the shift has not clocked out yet.
func (s *Shift) Active() bool {
	return s.ClockOut == nil
}

// ClientService is the client-service record created when a vehicle is put on
// a shift for a client.
type ClientService struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ClientName  string    `json:"client_name" bson:"client_name" validate:"required,min=2,max=100"`
	ClientPhone string    `json:"client_phone" bson:"client_phone" validate:"omitempty,e164"`
	ServiceType string    `json:"service_type" bson:"service_type" validate:"required,min=2,max=100"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// VehicleAssignment links a shift, a driver and a vehicle. It is active while
// ReleasedAt is nil; a vehicle has at most one active assignment.
type VehicleAssignment struct {
	ID              string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ShiftID         string     `json:"shift_id" bson:"shift_id" validate:"required,mongodb"`
	VehicleID       string     `json:"vehicle_id" bson:"vehicle_id" validate:"required,mongodb"`
	DriverID        string     `json:"driver_id" bson:"driver_id" validate:"required,mongodb"`
	DriverName      string     `json:"driver_name" bson:"driver_name" validate:"required"`
	ClientServiceID string     `json:"client_service_id" bson:"client_service_id" validate:"required,mongodb"`
	AssignedAt      time.Time  `json:"assigned_at" bson:"assigned_at" validate:"omitempty"`
	ReleasedAt      *time.Time `json:"released_at,omitempty" bson:"released_at,omitempty"`
}

// AssignmentRequest is the body for assigning a vehicle to a shift.
type AssignmentRequest struct {
	ShiftID     string `json:"shift_id" validate:"required,mongodb"`
	VehicleID   string `json:"vehicle_id" validate:"required,mongodb"`
	ClientName  string `json:"client_name" validate:"required,min=2,max=100"`
	ClientPhone string `json:"client_phone" validate:"omitempty,e164"`
	ServiceType string `json:"service_type" validate:"required,min=2,max=100"`
}
