package model

import "time"

type TourStatus string

const (
	TourScheduled TourStatus = "scheduled"
	TourCancelled TourStatus = "cancelled"
	TourCompleted TourStatus = "completed"
)

// Tour is a shared tour sold per-seat. Its window is reserved on the assigned
// vehicle through a booking-type availability block carrying BookingID.
type Tour struct {
	ID        string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name      string     `json:"name" bson:"name" validate:"required,min=2,max=100"`
	BookingID string     `json:"booking_id" bson:"booking_id" validate:"required,mongodb"`
	VehicleID string     `json:"vehicle_id" bson:"vehicle_id" validate:"required,mongodb"`
	TourDate  time.Time  `json:"tour_date" bson:"tour_date" validate:"required"`
	StartTime *time.Time `json:"start_time,omitempty" bson:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty" bson:"end_time,omitempty"`
	MaxGuests int        `json:"max_guests" bson:"max_guests" validate:"required,min=1,max=200"`
	BrandID   string     `json:"brand_id,omitempty" bson:"brand_id,omitempty" validate:"omitempty,mongodb"`
	Status    TourStatus `json:"status" bson:"status" validate:"required,oneof=scheduled cancelled completed"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// TourPatch is an explicit partial-update body for a tour. Date or window
// changes re-validate the scheduling-day policy and vehicle availability.
type TourPatch struct {
	Name      *string    `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	TourDate  *time.Time `json:"tour_date,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	MaxGuests *int       `json:"max_guests,omitempty" validate:"omitempty,min=1,max=200"`
	Status    *string    `json:"status,omitempty" validate:"omitempty,oneof=scheduled cancelled completed"`
}

// ReassignRequest selects a replacement vehicle for a tour. Either VehicleID
// names the vehicle explicitly or ReassignVehicle asks for automatic selection.
type ReassignRequest struct {
	VehicleID       string `json:"vehicle_id,omitempty" validate:"omitempty,mongodb"`
	ReassignVehicle bool   `json:"reassign_vehicle,omitempty"`
}

type TicketStatus string

const (
	TicketPending   TicketStatus = "pending"
	TicketConfirmed TicketStatus = "confirmed"
	TicketCancelled TicketStatus = "cancelled"
)

// Ticket is written by the external sales pipeline; the engine only counts
// confirmed seats against vehicle capacity.
type Ticket struct {
	ID        string       `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	TourID    string       `json:"tour_id" bson:"tour_id" validate:"required,mongodb"`
	Quantity  int          `json:"quantity" bson:"quantity" validate:"required,min=1,max=50"`
	Status    TicketStatus `json:"status" bson:"status" validate:"required,oneof=pending confirmed cancelled"`
	CreatedAt time.Time    `json:"created_at" bson:"created_at" validate:"omitempty"`
}
