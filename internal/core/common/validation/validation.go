package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
)

const (
	DateLayout           = "2006-01-02"
	DescriptionMaxLength = 500
)

var whitespaceRun = regexp.MustCompile(`\s+`)

type ValidatorFunc func(interface{}) *internal.AppError

type FieldValidator struct {
	FieldName  string
	Value      interface{}
	Validators []ValidatorFunc
}

type ValidationBuilder struct {
	fields []FieldValidator
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{
		fields: make([]FieldValidator, 0),
	}
}

func (v *ValidationBuilder) Field(name string, value interface{}) *FieldValidator {
	v.fields = append(v.fields, FieldValidator{
		FieldName:  name,
		Value:      value,
		Validators: make([]ValidatorFunc, 0),
	})
	return &v.fields[len(v.fields)-1]
}

func (fv *FieldValidator) fail(message string, code internal.ErrorCode) *internal.AppError {
	return internal.NewValidationFieldError(fv.FieldName, message, code)
}

func (fv *FieldValidator) Required(code internal.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *internal.AppError {
		missing := false
		switch v := value.(type) {
		case nil:
			missing = true
		case string:
			missing = strings.TrimSpace(v) == ""
		case *string:
			missing = v == nil || strings.TrimSpace(*v) == ""
		case *float64:
			missing = v == nil
		}
		if missing {
			return fv.fail(fmt.Sprintf("%s is required", fv.FieldName), code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MinLength(min int, code internal.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *internal.AppError {
		if v, ok := value.(string); ok && len([]rune(v)) < min {
			return fv.fail(fmt.Sprintf("%s must be at least %d characters", fv.FieldName, min), code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MaxLength(max int, code internal.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *internal.AppError {
		if v, ok := value.(string); ok && len([]rune(v)) > max {
			return fv.fail(fmt.Sprintf("%s must not exceed %d characters", fv.FieldName, max), code)
		}
		return nil
	})
	return fv
}

// Positive accepts finite float64 values strictly greater than zero.
func (fv *FieldValidator) Positive(code internal.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *internal.AppError {
		var f float64
		switch v := value.(type) {
		case float64:
			f = v
		case int64:
			f = float64(v)
		default:
			return nil
		}
		if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
			return fv.fail(fmt.Sprintf("%s must be a positive number", fv.FieldName), code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) Finite(code internal.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *internal.AppError {
		if v, ok := value.(float64); ok && (math.IsNaN(v) || math.IsInf(v, 0)) {
			return fv.fail(fmt.Sprintf("%s must be a finite number", fv.FieldName), code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) DateFormat(layout string, code internal.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *internal.AppError {
		v, ok := value.(string)
		if !ok || v == "" {
			return nil
		}
		if _, err := time.Parse(layout, v); err != nil {
			return fv.fail(fmt.Sprintf("%s must be a calendar date in %s format", fv.FieldName, "YYYY-MM-DD"), code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) Custom(validator func(interface{}) *internal.AppError) *FieldValidator {
	fv.Validators = append(fv.Validators, validator)
	return fv
}

// Validate runs every field and reports all failures at once. Only the first
// failure of each field is kept.
func (v *ValidationBuilder) Validate() *internal.AppError {
	var validationErrors []internal.ValidationError

	for _, field := range v.fields {
		for _, validator := range field.Validators {
			appErr := validator(field.Value)
			if appErr == nil {
				continue
			}
			if details, ok := appErr.Details.(internal.ValidationErrors); ok {
				validationErrors = append(validationErrors, details.Errors...)
			} else {
				validationErrors = append(validationErrors, internal.ValidationError{
					Field:   field.FieldName,
					Message: appErr.Message,
					Code:    string(appErr.Code),
				})
			}
			break
		}
	}

	if len(validationErrors) > 0 {
		return internal.NewValidationError("Validation failed", internal.ErrCodeValidationFailed).
			WithDetails(internal.ValidationErrors{Errors: validationErrors})
	}

	return nil
}

// NormalizeCategoryName trims, lowercases and collapses every whitespace run
// into a single hyphen, then enforces the minimum length on the result.
func NormalizeCategoryName(raw string, minLen int) (string, *internal.AppError) {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = whitespaceRun.ReplaceAllString(name, "-")

	validator := NewValidator()
	validator.Field("category", name).
		Required(internal.ErrCodeInvalidCategory).
		MinLength(minLen, internal.ErrCodeInvalidCategory)
	if appErr := validator.Validate(); appErr != nil {
		return "", appErr
	}
	return name, nil
}

func ValidateExpenseAmount(amount float64) *internal.AppError {
	validator := NewValidator()
	validator.Field("amount", amount).
		Positive(internal.ErrCodeInvalidAmount)
	return validator.Validate()
}

func ValidateExpenseDescription(description string, minLen int) *internal.AppError {
	validator := NewValidator()
	validator.Field("description", description).
		Required(internal.ErrCodeInvalidDescription).
		MinLength(minLen, internal.ErrCodeInvalidDescription).
		MaxLength(DescriptionMaxLength, internal.ErrCodeInvalidDescription)
	return validator.Validate()
}

func ValidateExpenseDate(date string) *internal.AppError {
	validator := NewValidator()
	validator.Field("date", date).
		Required(internal.ErrCodeInvalidDate).
		DateFormat(DateLayout, internal.ErrCodeInvalidDate)
	return validator.Validate()
}
