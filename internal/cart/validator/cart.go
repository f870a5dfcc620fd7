package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"ferryline/pkg/logger"
	"ferryline/pkg/model"
)

// Sections of the booking-details form, in the order they appear on
// screen. Validation failures direct attention to the first offending one.
const (
	SectionContact    = "contact"
	SectionPassengers = "passengers"
	SectionVehicles   = "vehicles"
)

var sectionOrder = []string{SectionContact, SectionPassengers, SectionVehicles}

type ValidationError struct {
	Section string `json:"section"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s.%s: %s", v.Section, v.Field, v.Message)
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

// FirstSection returns the earliest on-screen section with a failure.
func (v ValidationErrors) FirstSection() string {
	for _, section := range sectionOrder {
		for _, err := range v {
			if err.Section == section {
				return section
			}
		}
	}
	return ""
}

// CartValidator checks cart input at the boundary before the transition
// into payment is allowed. Failures are local and non-fatal, surfaced
// per field.
type CartValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewCartValidator(log *logger.Logger) *CartValidator {
	return &CartValidator{
		validate: validator.New(),
		logger:   log,
	}
}

// ValidateForPayment checks the contact info and every passenger and
// vehicle entry. At least one passenger is required; contact info must be
// present with a well-formed email; passenger names must be complete.
func (v *CartValidator) ValidateForPayment(contact *model.ContactInfo, passengers []model.Passenger, vehicles []model.Vehicle) error {
	var errs ValidationErrors

	if contact == nil {
		errs = append(errs, ValidationError{
			Section: SectionContact,
			Field:   "contact",
			Message: "contact information is required",
		})
	} else {
		errs = append(errs, v.structErrors(SectionContact, "", contact)...)
	}

	if len(passengers) == 0 {
		errs = append(errs, ValidationError{
			Section: SectionPassengers,
			Field:   "passengers",
			Message: "at least one passenger is required",
		})
	}
	for i := range passengers {
		prefix := fmt.Sprintf("passenger[%d].", i)
		errs = append(errs, v.structErrors(SectionPassengers, prefix, &passengers[i])...)
	}

	for i := range vehicles {
		prefix := fmt.Sprintf("vehicle[%d].", i)
		errs = append(errs, v.structErrors(SectionVehicles, prefix, &vehicles[i])...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *CartValidator) structErrors(section, fieldPrefix string, value any) ValidationErrors {
	err := v.validate.Struct(value)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{
			Section: section,
			Field:   fieldPrefix + "unknown",
			Message: err.Error(),
		}}
	}

	var out ValidationErrors
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Section: section,
			Field:   fieldPrefix + fe.Field(),
			Message: translate(fe),
		})
	}
	return out
}

func translate(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "e164":
		return fmt.Sprintf("%s must be in E.164 format (e.g., +358401234567)", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "uuid4":
		return fmt.Sprintf("%s must be a valid id", fe.Field())
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("%s is out of range", fe.Field())
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", fe.Field())
	case "iso3166_1_alpha2":
		return fmt.Sprintf("%s must be a two-letter country code", fe.Field())
	default:
		return fe.Error()
	}
}
