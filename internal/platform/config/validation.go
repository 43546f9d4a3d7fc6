package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Errors name fields by their config key, e.g. time_sync.web_time_api.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return f.Name
		}

		return name
	})

	v.RegisterStructValidation(validateClock, ClockConfig{})
	v.RegisterStructValidation(validateFontSize, FontSizeConfig{})
	v.RegisterStructValidation(validateRetry, RetryConfig{})

	return v
}

// Validate checks c and reports every problem at once. The binary refuses
// to start on an invalid config.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	lines := make([]string, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		lines = append(lines, describe(e))
	}

	return fmt.Errorf("config validation failed:\n  %s", strings.Join(lines, "\n  "))
}

// The fade must finish before the next refresh starts.
func validateClock(sl validator.StructLevel) {
	c := sl.Current().Interface().(ClockConfig) //nolint:errcheck // registered for ClockConfig only

	if c.RefreshInterval > 0 && c.FadeOutDuration >= c.RefreshInterval {
		sl.ReportError(c.FadeOutDuration, "fade_out_duration", "FadeOutDuration", "ltsibling", "refresh_interval")
	}
}

func validateFontSize(sl validator.StructLevel) {
	f := sl.Current().Interface().(FontSizeConfig) //nolint:errcheck // registered for FontSizeConfig only

	if f.MediumMinLength > 0 && f.SmallMinLength <= f.MediumMinLength {
		sl.ReportError(f.SmallMinLength, "small_min_length", "SmallMinLength", "gtsibling", "medium_min_length")
	}
}

func validateRetry(sl validator.StructLevel) {
	r := sl.Current().Interface().(RetryConfig) //nolint:errcheck // registered for RetryConfig only

	if r.InitialInterval > 0 && r.MaxInterval > 0 && r.MaxInterval < r.InitialInterval {
		sl.ReportError(r.MaxInterval, "max_interval", "MaxInterval", "gtesibling", "initial_interval")
	}
}

// describe renders one failure as "<config key> <problem>".
func describe(e validator.FieldError) string {
	key := configKey(e.Namespace())

	switch e.Tag() {
	case "required":
		return key + " is required"
	case "required_if":
		return fmt.Sprintf("%s is required when %s", key, e.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", key, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", key, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", key, e.Param())
	case "url", "http_url":
		return key + " must be an http or https URL"
	case "timezone":
		return key + " must be a valid IANA timezone"
	case "ltsibling":
		return fmt.Sprintf("%s must be shorter than %s", key, e.Param())
	case "gtsibling":
		return fmt.Sprintf("%s must be greater than %s", key, e.Param())
	case "gtesibling":
		return fmt.Sprintf("%s must be at least %s", key, e.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", key, e.Tag())
	}
}

// configKey drops the root struct name: "Config.clock.data_url" is "clock.data_url".
func configKey(namespace string) string {
	_, key, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}

	return key
}
