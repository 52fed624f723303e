package errors

import "errors"

var (
	ErrNotFound = errors.New("availability block not found")

	ErrInvalidID = errors.New("invalid block ID format")

	ErrNotAHold = errors.New("block is not a hold")

	ErrWindowConflict = errors.New("window conflicts with an existing block")

	ErrInvalidWindow = errors.New("end time must be after start time")
)
