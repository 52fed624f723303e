package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

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

type BlockValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBlockValidator(log *logger.Logger) *BlockValidator {
	v := validator.New()

	log.Info("Block validator initialized successfully")

	return &BlockValidator{
		validate: v,
		logger:   log,
	}
}

func (v *BlockValidator) Validate(block *model.AvailabilityBlock) error {
	if err := v.validate.Struct(block); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if err := v.validateWindow(block.BlockDate, block.StartTime, block.EndTime); err != nil {
		return err
	}

	return nil
}

func (v *BlockValidator) ValidatePatch(patch *model.BlockPatch) error {
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

func (v *BlockValidator) ValidateHoldRequest(req *model.HoldRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if err := v.validateWindow(req.BlockDate, req.StartTime, req.EndTime); err != nil {
		return err
	}

	return nil
}

// validateWindow enforces the window shape: either both endpoints or neither,
// end strictly after start, and both endpoints on the block's calendar day.
func (v *BlockValidator) validateWindow(blockDate time.Time, start, end *time.Time) error {
	if (start == nil) != (end == nil) {
		return ValidationErrors{
			ValidationError{
				Field:   "StartTime",
				Message: "start_time and end_time must be provided together or both omitted",
			},
		}
	}

	if start == nil {
		return nil
	}

	if !end.After(*start) {
		return ValidationErrors{
			ValidationError{
				Field:   "EndTime",
				Message: "end_time must be after start_time",
			},
		}
	}

	day := model.DayOf(blockDate)
	if !model.DayOf(*start).Equal(day) {
		return ValidationErrors{
			ValidationError{
				Field:   "StartTime",
				Message: "start_time must fall on block_date",
			},
		}
	}
	if !model.DayOf(*end).Equal(day) && !end.Equal(day.AddDate(0, 0, 1)) {
		return ValidationErrors{
			ValidationError{
				Field:   "EndTime",
				Message: "end_time must fall on block_date",
			},
		}
	}

	return nil
}

func (v *BlockValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
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
