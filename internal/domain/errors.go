// Package domain contains the author clock's core types and errors.
//
// Errors describe display-level failures, never HTTP ones. Each error type
// matches one sentinel under errors.Is and keeps its cause reachable, so
// adapters can turn it into a response code or into placeholder text.
package domain

import (
	"errors"
	"fmt"
	"strconv"
)

// Failure kinds.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")

	// ErrUnavailable is a dependency that could not be reached or refused us.
	ErrUnavailable = errors.New("unavailable")

	// ErrDatasetLoad is the only failure that aborts startup.
	ErrDatasetLoad = errors.New("dataset load failed")

	// ErrTimeUnavailable means no authoritative time could be produced.
	ErrTimeUnavailable = errors.New("time unavailable")

	ErrWeatherFetch = errors.New("weather fetch failed")
)

// NotFoundError names what was looked up. ID may be empty.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}

	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError returns a *NotFoundError.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError is bad input or malformed downstream data. Field is empty
// when the problem is not tied to one field.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}

	return "validation failed for " + e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError returns a *ValidationError.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue returns a *ValidationError that records the
// offending value.
func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// UnavailableError is a downstream service that failed or refused a call.
type UnavailableError struct {
	Service string
	Reason  string
}

func (e *UnavailableError) Error() string {
	return withReason(strconv.Quote(e.Service)+" unavailable", e.Reason)
}

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// NewUnavailableError returns an *UnavailableError.
func NewUnavailableError(service, reason string) error {
	return &UnavailableError{Service: service, Reason: reason}
}

// DatasetLoadError is a failed load of the quote dataset from Source.
type DatasetLoadError struct {
	Source string
	Cause  error
}

func (e *DatasetLoadError) Error() string {
	return withCause("loading dataset from "+strconv.Quote(e.Source), e.Cause)
}

func (e *DatasetLoadError) Is(target error) bool { return target == ErrDatasetLoad }
func (e *DatasetLoadError) Unwrap() error        { return e.Cause }

// NewDatasetLoadError returns a *DatasetLoadError. cause may be nil.
func NewDatasetLoadError(source string, cause error) error {
	return &DatasetLoadError{Source: source, Cause: cause}
}

// TimeUnavailableError is a failed network time lookup with no fallback.
type TimeUnavailableError struct {
	Source string
	Cause  error
}

func (e *TimeUnavailableError) Error() string {
	return withCause("time from "+strconv.Quote(e.Source), e.Cause)
}

func (e *TimeUnavailableError) Is(target error) bool { return target == ErrTimeUnavailable }
func (e *TimeUnavailableError) Unwrap() error        { return e.Cause }

// NewTimeUnavailableError returns a *TimeUnavailableError. cause may be nil.
func NewTimeUnavailableError(source string, cause error) error {
	return &TimeUnavailableError{Source: source, Cause: cause}
}

// WeatherFetchError is a failed weather lookup.
type WeatherFetchError struct {
	Provider string
	Cause    error
}

func (e *WeatherFetchError) Error() string {
	return withCause("weather from "+strconv.Quote(e.Provider), e.Cause)
}

func (e *WeatherFetchError) Is(target error) bool { return target == ErrWeatherFetch }
func (e *WeatherFetchError) Unwrap() error        { return e.Cause }

// NewWeatherFetchError returns a *WeatherFetchError. cause may be nil.
func NewWeatherFetchError(provider string, cause error) error {
	return &WeatherFetchError{Provider: provider, Cause: cause}
}

func withReason(msg, reason string) string {
	if reason == "" {
		return msg
	}

	return msg + ": " + reason
}

func withCause(msg string, cause error) string {
	if cause == nil {
		return msg + " failed"
	}

	return msg + ": " + cause.Error()
}

// IsNotFound reports whether err is a NotFoundError or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsUnavailable reports whether a dependency was unavailable.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// IsDatasetLoad reports whether the dataset failed to load.
func IsDatasetLoad(err error) bool { return errors.Is(err, ErrDatasetLoad) }

// IsTimeUnavailable reports whether no time could be resolved.
func IsTimeUnavailable(err error) bool { return errors.Is(err, ErrTimeUnavailable) }

// IsWeatherFetch reports whether the weather lookup failed.
func IsWeatherFetch(err error) bool { return errors.Is(err, ErrWeatherFetch) }
