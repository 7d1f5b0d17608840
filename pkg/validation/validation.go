package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "tourhub/pkg/errors"
	"tourhub/pkg/logger"
)

var (
	slugRegex     = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	hexColorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}){1,2}$`)
	timeSlotRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
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

// AppError converts the list into a 400 application error.
func (v ValidationErrors) AppError() *apperrors.AppError {
	fields := make([]apperrors.FieldError, 0, len(v))
	for _, e := range v {
		fields = append(fields, apperrors.FieldError{Field: e.Field, Message: e.Message})
	}
	return apperrors.Validation("Validation failed", fields)
}

func Single(field, message string) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message}}
}

// Validator wraps go-playground/validator with the custom tags shared by
// every request type and reports fields by their JSON names.
type Validator struct {
	validate *validator.Validate
}

func New(log *logger.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	custom := map[string]validator.Func{
		"slug":      matches(slugRegex),
		"hexcolor":  matches(hexColorRegex),
		"time_slot": matches(timeSlotRegex),
		"max_bytes": maxBytes,
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatal("Failed to register validator", "tag", tag, "error", err)
		}
	}

	return &Validator{validate: v}
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || re.MatchString(s)
	}
}

// maxBytes bounds the encoded length of a string, unlike max which counts
// runes. bcrypt rejects passwords over 72 bytes.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// Struct validates s and returns ValidationErrors on failure.
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return Translate(validationErrs)
		}
		return err
	}
	return nil
}

func Translate(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required", "required_without":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "gte":
			message = fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
		case "lte":
			message = fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		case "max_bytes":
			message = fmt.Sprintf("%s must be at most %s bytes", err.Field(), err.Param())
		case "len":
			message = fmt.Sprintf("%s must be exactly %s characters", err.Field(), err.Param())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "url":
			message = fmt.Sprintf("%s must be a valid URL", err.Field())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid ObjectID", err.Field())
		case "e164":
			message = fmt.Sprintf("%s must be in E.164 format (e.g., +14155552671)", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "slug":
			message = fmt.Sprintf("%s must contain only lowercase letters, digits and hyphens", err.Field())
		case "hexcolor":
			message = fmt.Sprintf("%s must be a hex color such as #1a2b3c", err.Field())
		case "time_slot":
			message = fmt.Sprintf("%s must be in HH:MM format", err.Field())
		case "iso4217":
			message = fmt.Sprintf("%s must be an ISO 4217 currency code", err.Field())
		case "latitude", "longitude":
			message = fmt.Sprintf("%s must be a valid %s", err.Field(), err.Tag())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   jsonPath(err.Namespace()),
			Message: message,
		})
	}

	return validationErrors
}

// jsonPath drops the root struct name from a validator namespace, turning
// "CreateBookingRequest.items[0].quantity" into "items[0].quantity".
func jsonPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
