package callsched

import "errors"

var (
	// ErrInvalidArgument is returned by Schedule, Delay and DecodeSpec when a
	// spec field has the wrong kind. The wrapped message names the field.
	ErrInvalidArgument = errors.New("callsched: invalid argument")

	// ErrClosed is returned when scheduling on a Scheduler after Close.
	ErrClosed = errors.New("callsched: scheduler closed")
)

// Validation failures, one per spec field.
var (
	errNotFunction  = invalidArgument("handler is not a function")
	errOffsetNaN    = invalidArgument("offset is not a number")
	errIntervalNaN  = invalidArgument("interval is not a number")
	errArgsNotArray = invalidArgument("args is not an array")
)

type argumentError struct {
	msg string
}

func (e *argumentError) Error() string { return ErrInvalidArgument.Error() + ": " + e.msg }

func (e *argumentError) Unwrap() error { return ErrInvalidArgument }

func invalidArgument(msg string) error {
	return &argumentError{msg: msg}
}
