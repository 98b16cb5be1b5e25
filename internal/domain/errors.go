package domain

import "errors"

// Sentinel errors shared by services and repositories. Controllers map them to HTTP status codes.
var (
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidInput          = errors.New("invalid input")
	ErrAlreadyExists         = errors.New("already exists")
	ErrDuplicateRegistration = errors.New("already registered for this event")
	ErrEventNotOpen          = errors.New("event is not open for registration")
	ErrCapacityExceeded      = errors.New("no seats available")
	ErrInvalidTransition     = errors.New("current status does not allow this action")
	ErrInvalidEventSchedule  = errors.New("invalid event date or time")
	ErrNotApproved           = errors.New("registration is not approved")
	ErrNotAttended           = errors.New("attendance not recorded for this event")
	ErrCertificateIssued     = errors.New("certificate already issued")
)
