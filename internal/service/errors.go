package service

import "errors"

// Domain errors returned by the coordinator and the event service. Handlers
// map them to HTTP statuses with errors.Is.
var (
	ErrEventNotFound        = errors.New("event not found")
	ErrCapacityExceeded     = errors.New("event is at full capacity")
	ErrAlreadyRegistered    = errors.New("already registered for this event")
	ErrNoActiveRegistration = errors.New("no active registration")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidEvent         = errors.New("invalid event")

	// ErrTransient means the atomic scope could not be obtained in time.
	// Nothing was written and the caller may retry.
	ErrTransient = errors.New("please try again")
)
