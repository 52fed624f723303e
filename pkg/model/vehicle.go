package model

import "time"

type VehicleStatus string

const (
	VehicleAvailable    VehicleStatus = "available"
	VehicleAssigned     VehicleStatus = "assigned"
	VehicleOutOfService VehicleStatus = "out_of_service"
)

func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleAvailable, VehicleAssigned, VehicleOutOfService:
		return true
	}
	return false
}

// vehicleTransitions is the closed transition table for vehicle status.
// Any status may be pulled out of service; an out-of-service vehicle must
// come back through available before it can be assigned.
var vehicleTransitions = map[VehicleStatus][]VehicleStatus{
	VehicleAvailable:    {VehicleAssigned, VehicleOutOfService},
	VehicleAssigned:     {VehicleAvailable, VehicleOutOfService},
	VehicleOutOfService: {VehicleAvailable},
}

// CanTransition reports whether moving from s to target is allowed.
func (s VehicleStatus) CanTransition(target VehicleStatus) bool {
	for _, allowed := range vehicleTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

type Vehicle struct {
	ID        string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name      string        `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Capacity  int           `json:"capacity" bson:"capacity" validate:"required,min=1,max=200"`
	Status    VehicleStatus `json:"status" bson:"status" validate:"required,oneof=available assigned out_of_service"`
	IsActive  bool          `json:"is_active" bson:"is_active"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt time.Time     `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// Assignable reports whether the vehicle may take a new shift assignment,
// status exclusivity aside.
func (v *Vehicle) Assignable() bool {
	return v.IsActive && v.Status != VehicleOutOfService
}
