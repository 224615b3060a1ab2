package result

import (
	"errors"
	"fmt"
)

// Result is the uniform outcome of camera and network operations.
// Callers render it as one of two message classes regardless of where a
// failure came from.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Image   string `json:"image,omitempty"`
}

// Validation is produced by the pure validators in package validate.
type Validation struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// OK builds a successful Result.
func OK(message string) Result {
	return Result{Success: true, Message: message}
}

// Class returns the message class used when rendering the result.
func (r Result) Class() string {
	if r.Success {
		return "success"
	}
	return "error"
}

// Kind classifies where a failure originated.
type Kind int

const (
	KindUnknown Kind = iota
	KindPermission
	KindCaptureState
	KindNetwork
	KindServer
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindPermission:
		return "permission"
	case KindCaptureState:
		return "capture_state"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error carries a Kind alongside the user-facing message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New returns an *Error of the given kind.
func New(kind Kind, message string) error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// Fail builds a failed Result.
func Fail(message string) Result {
	return Result{Success: false, Message: message}
}

// FromError normalizes err into a failed Result. An *Error contributes its
// message as-is; anything else is reported through err.Error().
func FromError(err error) Result {
	if err == nil {
		return Fail("unknown error")
	}
	var e *Error
	if errors.As(err, &e) {
		return Fail(e.Message)
	}
	return Fail(err.Error())
}

// KindOf reports the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
