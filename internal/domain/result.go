package domain

// ResultKind tells how a Result was produced.
type ResultKind int

const (
	// ResultOK means the preferred source answered.
	ResultOK ResultKind = iota

	// ResultFallback means the preferred source failed and a fallback value was used.
	ResultFallback

	// ResultFail means no value could be produced.
	ResultFail
)

// String returns a human-readable name for the kind.
func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "ok"
	case ResultFallback:
		return "fallback"
	case ResultFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Result carries a value together with how it was obtained.
// For ResultFallback, Err holds the failure that caused the fallback.
// For ResultFail, Value is the zero value and Err is set.
type Result[T any] struct {
	Kind  ResultKind
	Value T
	Err   error
}

// OK wraps a value from the preferred source.
func OK[T any](v T) Result[T] {
	return Result[T]{Kind: ResultOK, Value: v}
}

// Fallback wraps a fallback value and the failure that caused it.
func Fallback[T any](v T, cause error) Result[T] {
	return Result[T]{Kind: ResultFallback, Value: v, Err: cause}
}

// Fail wraps a failure.
func Fail[T any](err error) Result[T] {
	return Result[T]{Kind: ResultFail, Err: err}
}

// Unwrap returns the value, or the error when the result failed.
func (r Result[T]) Unwrap() (T, error) {
	if r.Kind == ResultFail {
		var zero T
		return zero, r.Err
	}

	return r.Value, nil
}

// Failed reports whether the result carries no value.
func (r Result[T]) Failed() bool {
	return r.Kind == ResultFail
}
