package validator

import (
	"strings"
	"testing"
	"time"

	"fleetops/pkg/logger"
	"fleetops/pkg/model"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
}

func at(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad time literal %q: %v", value, err)
	}
	return &parsed
}

func TestValidateBlock(t *testing.T) {
	v := NewBlockValidator(testLogger())
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		block     *model.AvailabilityBlock
		wantError bool
	}{
		{
			name: "valid timed block",
			block: &model.AvailabilityBlock{
				VehicleID: "507f1f77bcf86cd799439011",
				BlockDate: day,
				StartTime: at(t, "2025-06-10T09:00:00Z"),
				EndTime:   at(t, "2025-06-10T11:00:00Z"),
				BlockType: model.BlockTypeMaintenance,
				Reason:    "engine service",
			},
			wantError: false,
		},
		{
			name: "valid all-day block",
			block: &model.AvailabilityBlock{
				VehicleID: "507f1f77bcf86cd799439011",
				BlockDate: day,
				BlockType: model.BlockTypeBlackout,
			},
			wantError: false,
		},
		{
			name: "end before start",
			block: &model.AvailabilityBlock{
				VehicleID: "507f1f77bcf86cd799439011",
				BlockDate: day,
				StartTime: at(t, "2025-06-10T11:00:00Z"),
				EndTime:   at(t, "2025-06-10T09:00:00Z"),
				BlockType: model.BlockTypeMaintenance,
			},
			wantError: true,
		},
		{
			name: "zero-length window",
			block: &model.AvailabilityBlock{
				VehicleID: "507f1f77bcf86cd799439011",
				BlockDate: day,
				StartTime: at(t, "2025-06-10T09:00:00Z"),
				EndTime:   at(t, "2025-06-10T09:00:00Z"),
				BlockType: model.BlockTypeMaintenance,
			},
			wantError: true,
		},
		{
			name: "start without end",
			block: &model.AvailabilityBlock{
				VehicleID: "507f1f77bcf86cd799439011",
				BlockDate: day,
				StartTime: at(t, "2025-06-10T09:00:00Z"),
				BlockType: model.BlockTypeMaintenance,
			},
			wantError: true,
		},
		{
			name: "window on wrong day",
			block: &model.AvailabilityBlock{
				VehicleID: "507f1f77bcf86cd799439011",
				BlockDate: day,
				StartTime: at(t, "2025-06-11T09:00:00Z"),
				EndTime:   at(t, "2025-06-11T11:00:00Z"),
				BlockType: model.BlockTypeMaintenance,
			},
			wantError: true,
		},
		{
			name: "end at next midnight allowed",
			block: &model.AvailabilityBlock{
				VehicleID: "507f1f77bcf86cd799439011",
				BlockDate: day,
				StartTime: at(t, "2025-06-10T20:00:00Z"),
				EndTime:   at(t, "2025-06-11T00:00:00Z"),
				BlockType: model.BlockTypeMaintenance,
			},
			wantError: false,
		},
		{
			name: "missing vehicle",
			block: &model.AvailabilityBlock{
				BlockDate: day,
				BlockType: model.BlockTypeMaintenance,
			},
			wantError: true,
		},
		{
			name: "vehicle not an object ID",
			block: &model.AvailabilityBlock{
				VehicleID: "van-7",
				BlockDate: day,
				BlockType: model.BlockTypeMaintenance,
			},
			wantError: true,
		},
		{
			name: "unknown block type",
			block: &model.AvailabilityBlock{
				VehicleID: "507f1f77bcf86cd799439011",
				BlockDate: day,
				BlockType: model.BlockType("vacation"),
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.block)
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidatePatch(t *testing.T) {
	v := NewBlockValidator(testLogger())
	longReason := strings.Repeat("x", 201)

	tests := []struct {
		name      string
		patch     *model.BlockPatch
		wantError bool
	}{
		{"empty patch", &model.BlockPatch{}, false},
		{
			"reordered window rejected",
			&model.BlockPatch{
				StartTime: at(t, "2025-06-10T11:00:00Z"),
				EndTime:   at(t, "2025-06-10T09:00:00Z"),
			},
			true,
		},
		{
			"valid window",
			&model.BlockPatch{
				StartTime: at(t, "2025-06-10T09:00:00Z"),
				EndTime:   at(t, "2025-06-10T11:00:00Z"),
			},
			false,
		},
		{
			"reason too long",
			&model.BlockPatch{Reason: &longReason},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidatePatch(tt.patch)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePatch() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidateHoldRequest(t *testing.T) {
	v := NewBlockValidator(testLogger())
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		req       *model.HoldRequest
		wantError bool
	}{
		{
			"valid timed hold",
			&model.HoldRequest{
				VehicleID: "507f1f77bcf86cd799439011",
				BlockDate: day,
				StartTime: at(t, "2025-06-10T14:00:00Z"),
				EndTime:   at(t, "2025-06-10T16:00:00Z"),
			},
			false,
		},
		{
			"valid all-day hold",
			&model.HoldRequest{
				VehicleID: "507f1f77bcf86cd799439011",
				BlockDate: day,
			},
			false,
		},
		{
			"missing vehicle",
			&model.HoldRequest{BlockDate: day},
			true,
		},
		{
			"end without start",
			&model.HoldRequest{
				VehicleID: "507f1f77bcf86cd799439011",
				BlockDate: day,
				EndTime:   at(t, "2025-06-10T16:00:00Z"),
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateHoldRequest(tt.req)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateHoldRequest() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}
