package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrValidation marks a request that decoded but broke a validate tag.
	ErrValidation = errors.New("validation failed")

	// ErrBinding marks a body or path that could not be decoded.
	ErrBinding = errors.New("binding failed")
)

// validate names fields by their json or uri tag and knows the "hhmm" and
// "nonblank" rules.
var validate = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	_ = v.RegisterValidation("hhmm", isHHMM)
	_ = v.RegisterValidation("nonblank", isNonBlank)

	return v
})

func fieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "uri"} {
		switch name, _, _ := strings.Cut(f.Tag.Get(key), ","); name {
		case "-":
			return ""
		case "":
		default:
			return name
		}
	}

	return f.Name
}

// Validator returns the shared validator.
func Validator() *validator.Validate {
	return validate()
}

// Validate checks v's validate tags.
func Validate(v any) error {
	if err := validate().Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return nil
}

// BindAndValidate decodes the JSON body into v and validates it.
func BindAndValidate(c *gin.Context, v any) error {
	return bind(v, c.ShouldBindJSON)
}

// BindURIAndValidate decodes path parameters into v and validates it.
func BindURIAndValidate(c *gin.Context, v any) error {
	return bind(v, c.ShouldBindUri)
}

func bind(v any, decode func(any) error) error {
	if err := decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBinding, err)
	}

	return Validate(v)
}

// IsValidationError reports whether err carries validator field errors.
func IsValidationError(err error) bool {
	var fields validator.ValidationErrors
	return errors.As(err, &fields)
}

// ValidationErrors returns a message per failing field, keyed by tag name.
// Errors without field errors give an empty map.
func ValidationErrors(err error) map[string]string {
	out := map[string]string{}

	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		for _, fe := range fields {
			out[fe.Field()] = message(fe)
		}
	}

	return out
}

func message(fe validator.FieldError) string {
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "hhmm":
		return "must be a time of day formatted HH:MM"
	case "nonblank":
		return "must not be blank"
	case "min":
		return "must be at least " + param + unit(fe.Kind())
	case "max":
		return "must be at most " + param + unit(fe.Kind())
	case "gte":
		return "must be greater than or equal to " + param
	case "lte":
		return "must be less than or equal to " + param
	case "oneof":
		return "must be one of: " + param
	default:
		return "failed validation: " + fe.Tag()
	}
}

// unit names what min and max count for a kind.
func unit(k reflect.Kind) string {
	if k == reflect.String {
		return " characters"
	}

	return ""
}

// isHHMM accepts "00:00" through "23:59". Empty passes so required decides.
func isHHMM(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}

	_, err := time.Parse("15:04", s)

	return err == nil && len(s) == len("15:04")
}

func isNonBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
