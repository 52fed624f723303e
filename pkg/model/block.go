package model

import (
	"time"
)

type BlockType string

const (
	BlockTypeBooking     BlockType = "booking"
	BlockTypeMaintenance BlockType = "maintenance"
	BlockTypeHold        BlockType = "hold"
	BlockTypeBuffer      BlockType = "buffer"
	BlockTypeBlackout    BlockType = "blackout"
)

// AdminCreatableBlockTypes are the block types the admin surface may create.
// Booking blocks belong to the booking lifecycle and buffer blocks are derived
// from neighbouring blocks, so neither is creatable here.
var AdminCreatableBlockTypes = []BlockType{
	BlockTypeMaintenance,
	BlockTypeHold,
	BlockTypeBlackout,
}

func (t BlockType) Valid() bool {
	switch t {
	case BlockTypeBooking, BlockTypeMaintenance, BlockTypeHold, BlockTypeBuffer, BlockTypeBlackout:
		return true
	}
	return false
}

// AvailabilityBlock is the atomic unit of vehicle unavailability. A block with
// nil StartTime and nil EndTime spans the whole of BlockDate.
type AvailabilityBlock struct {
	ID        string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	VehicleID string     `json:"vehicle_id" bson:"vehicle_id" validate:"required,mongodb"`
	BlockDate time.Time  `json:"block_date" bson:"block_date" validate:"required"`
	StartTime *time.Time `json:"start_time,omitempty" bson:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty" bson:"end_time,omitempty"`
	BlockType BlockType  `json:"block_type" bson:"block_type" validate:"required,oneof=booking maintenance hold buffer blackout"`
	Reason    string     `json:"reason,omitempty" bson:"reason,omitempty" validate:"omitempty,max=200"`
	Notes     string     `json:"notes,omitempty" bson:"notes,omitempty" validate:"omitempty,max=500"`
	BookingID string     `json:"booking_id,omitempty" bson:"booking_id,omitempty" validate:"omitempty,mongodb"`
	BrandID   string     `json:"brand_id,omitempty" bson:"brand_id,omitempty" validate:"omitempty,mongodb"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// AllDay reports whether the block spans the whole of its date.
func (b *AvailabilityBlock) AllDay() bool {
	return b.StartTime == nil && b.EndTime == nil
}

// Window describes the block window for conflict messages.
func (b *AvailabilityBlock) Window() string {
	if b.AllDay() {
		return "all day"
	}
	return b.StartTime.Format("15:04") + "-" + b.EndTime.Format("15:04")
}

// BlockPatch is an explicit partial-update body. Each field is optional and
// applied field-by-field; absent fields leave the stored value untouched.
type BlockPatch struct {
	BlockDate *time.Time `json:"block_date,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Reason    *string    `json:"reason,omitempty" validate:"omitempty,max=200"`
	Notes     *string    `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// HoldRequest is the body for creating a provisional hold on a vehicle window.
// TTL accepts Go duration syntax ("15m"); empty means the configured default.
type HoldRequest struct {
	VehicleID string     `json:"vehicle_id" validate:"required,mongodb"`
	BlockDate time.Time  `json:"block_date" validate:"required"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Reason    string     `json:"reason,omitempty" validate:"omitempty,max=200"`
	BrandID   string     `json:"brand_id,omitempty" validate:"omitempty,mongodb"`
	TTL       string     `json:"ttl,omitempty"`
}

type ConvertHoldRequest struct {
	BookingID string `json:"booking_id" validate:"required,mongodb"`
}

// DayOf normalizes a timestamp to the calendar day it belongs to (UTC midnight).
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateKey is the grouping key used when listing blocks by date.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
