package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = fmt.Errorf("not found")
	ErrDuplicateName        = fmt.Errorf("duplicate name")
	ErrInvalidInput         = fmt.Errorf("invalid input")
	ErrUnauthenticated      = fmt.Errorf("unauthenticated")
	ErrInvalidResponseShape = fmt.Errorf("invalid response shape")
	ErrRemote               = fmt.Errorf("remote error")
)

// CodeNoRows is the wire code the backend uses for an empty single-row lookup.
const CodeNoRows = "no_rows"

// RemoteError is a failure reported by the backend or the planning API.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

// Is makes a RemoteError match ErrRemote, and ErrNotFound when the backend
// reported an empty lookup.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrRemote:
		return true
	case ErrNotFound:
		return e.Code == CodeNoRows
	}
	return false
}

// IsNotFound reports whether err is an expected absence.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
