package errors

import "errors"

var (
	ErrTourNotFound = errors.New("tour not found")

	ErrInvalidID = errors.New("invalid tour ID format")

	ErrNoCandidateVehicle = errors.New("no vehicle can take this tour")

	ErrInvalidTourDay = errors.New("tours run Sunday through Wednesday only")
)
