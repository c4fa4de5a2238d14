package errors

// ErrorCode identifies one failure kind. The shared table lives in
// codes.go; packages with their own taxonomy (compoway, recorder)
// alias or extend it in a local errors.go.
type ErrorCode string

// Error is a coded error carrying an optional message, a wrapped
// cause and attached diagnostic data (raw frame bytes, offending
// config values).
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory creates coded errors
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
