package validator

import (
	"errors"
	"fmt"
	"strings"

	"fleetops/pkg/logger"
	"fleetops/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type TourValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewTourValidator(log *logger.Logger) *TourValidator {
	return &TourValidator{
		validate: validator.New(),
		logger:   log,
	}
}

func (v *TourValidator) ValidatePatch(patch *model.TourPatch) error {
	if err := v.validate.Struct(patch); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if patch.StartTime != nil && patch.EndTime != nil {
		if !patch.EndTime.After(*patch.StartTime) {
			return ValidationErrors{
				ValidationError{
					Field:   "EndTime",
					Message: "end_time must be after start_time",
				},
			}
		}
	}

	return nil
}

func (v *TourValidator) ValidateReassign(req *model.ReassignRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if req.VehicleID == "" && !req.ReassignVehicle {
		return ValidationErrors{
			ValidationError{
				Field:   "VehicleID",
				Message: "either vehicle_id or reassign_vehicle must be provided",
			},
		}
	}

	return nil
}

func (v *TourValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
