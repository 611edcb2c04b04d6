package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/benmartin/gtdflow/internal/models"
	"github.com/benmartin/gtdflow/internal/rules"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("task_status", validateTaskStatus); err != nil {
		panic(fmt.Sprintf("failed to register task_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("priority_bucket", validatePriorityBucket); err != nil {
		panic(fmt.Sprintf("failed to register priority_bucket validator: %v", err))
	}
	if err := Validate.RegisterValidation("capture_status", validateCaptureStatus); err != nil {
		panic(fmt.Sprintf("failed to register capture_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("energy_level", validateEnergyLevel); err != nil {
		panic(fmt.Sprintf("failed to register energy_level validator: %v", err))
	}
	if err := Validate.RegisterValidation("block_duration", validateBlockDuration); err != nil {
		panic(fmt.Sprintf("failed to register block_duration validator: %v", err))
	}
}

// validateTaskStatus validates that a string is a valid TaskStatus enum value
func validateTaskStatus(fl validator.FieldLevel) bool {
	return ValidateTaskStatus(fl.Field().String()) == nil
}

// validatePriorityBucket validates that a string is a valid PriorityBucket enum value
func validatePriorityBucket(fl validator.FieldLevel) bool {
	return ValidatePriorityBucket(fl.Field().String()) == nil
}

// validateCaptureStatus validates that a string is a valid CaptureStatus enum value
func validateCaptureStatus(fl validator.FieldLevel) bool {
	return ValidateCaptureStatus(fl.Field().String()) == nil
}

// validateEnergyLevel validates that a string is a valid EnergyLevel enum value
func validateEnergyLevel(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // optional field
	}
	switch models.EnergyLevel(value) {
	case models.EnergyHigh, models.EnergyMedium, models.EnergyLow:
		return true
	default:
		return false
	}
}

// validateBlockDuration validates that an int is an allowed block length
func validateBlockDuration(fl validator.FieldLevel) bool {
	return rules.CheckDuration(int(fl.Field().Int())).Valid
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateTaskStatus validates a TaskStatus string value
func ValidateTaskStatus(value string) error {
	switch models.TaskStatus(value) {
	case models.TaskStatusDraft, models.TaskStatusReady,
		models.TaskStatusNow, models.TaskStatusNext, models.TaskStatusLater,
		models.TaskStatusScheduled, models.TaskStatusInProgress,
		models.TaskStatusDone, models.TaskStatusAbandoned:
		return nil
	default:
		return fmt.Errorf("invalid status: %s", value)
	}
}

// ValidatePriorityBucket validates a PriorityBucket string value
func ValidatePriorityBucket(value string) error {
	switch models.PriorityBucket(value) {
	case models.BucketNow, models.BucketNext, models.BucketLater:
		return nil
	default:
		return fmt.Errorf("invalid bucket: %s (must be 'NOW', 'NEXT', or 'LATER')", value)
	}
}

// ValidateCaptureStatus validates a CaptureStatus string value
func ValidateCaptureStatus(value string) error {
	switch models.CaptureStatus(value) {
	case models.CaptureStatusUnprocessed, models.CaptureStatusProcessed,
		models.CaptureStatusParked, models.CaptureStatusDeleted:
		return nil
	default:
		return fmt.Errorf("invalid capture status: %s", value)
	}
}
