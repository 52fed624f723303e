package errors

import "errors"

var (
	ErrVehicleNotFound = errors.New("vehicle not found")

	ErrShiftNotFound = errors.New("shift not found")

	ErrAssignmentNotFound = errors.New("assignment not found")

	ErrInvalidID = errors.New("invalid ID format")

	ErrInvalidTransition = errors.New("vehicle status transition not allowed")
)
