package domain

import (
	"errors"
	"fmt"
)

var (
	ErrTurnInFlight    = errors.New("a turn is already in flight")
	ErrEmptyMessage    = errors.New("message text is empty")
	ErrSessionNotFound = errors.New("session not found")
)

// TransportError classifies a failure of the byte stream itself: the request could
// not be sent, the proxy answered with a non-success status, or a read failed
// part-way through the body.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	if e == nil || e.Err == nil {
		return "transport error"
	}

	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}
