package domain

import (
	"context"
	"time"
)

// RegistrationStatus is the state of a participant's registration.
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationApproved  RegistrationStatus = "approved"
	RegistrationRejected  RegistrationStatus = "rejected"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

// Registration is a participant's request for a seat at an event.
// swagger:model Registration
type Registration struct {
	ID            string             `json:"id"`
	EventID       string             `json:"event_id"`
	ParticipantID string             `json:"participant_id"`
	Status        RegistrationStatus `json:"status"`
	// ICSTicket is set together with the transition to approved.
	ICSTicket *string   `json:"ics_ticket,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRegistration returns a pending registration. ID is set by the repository on create.
func NewRegistration(eventID, participantID string, now time.Time) *Registration {
	return &Registration{
		EventID:       eventID,
		ParticipantID: participantID,
		Status:        RegistrationPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Cancellable reports whether the participant may still cancel.
func (r *Registration) Cancellable() bool {
	return r.Status == RegistrationPending || r.Status == RegistrationApproved
}

// RegistrationCounts are the live per-event counters returned after a registration changes.
type RegistrationCounts struct {
	Approved int `json:"approved"`
	Pending  int `json:"pending"`
}

// RegistrationWithEvent bundles a registration with its related event.
type RegistrationWithEvent struct {
	Registration *Registration `json:"registration"`
	Event        *Event        `json:"event"`
}

// Ticket is a downloadable calendar file for an approved registration.
type Ticket struct {
	FileName string
	Content  string
}

// RegistrationRepository defines storage operations for registrations.
type RegistrationRepository interface {
	// Create inserts a pending registration. Returns ErrDuplicateRegistration when the (event, participant) pair exists.
	Create(ctx context.Context, reg *Registration) error
	GetByID(ctx context.Context, id string) (*Registration, error)
	GetByEventAndParticipant(ctx context.Context, eventID, participantID string) (*Registration, error)
	ListByParticipant(ctx context.Context, participantID string) ([]*Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]*Registration, error)
	CountByStatus(ctx context.Context, eventID string, status RegistrationStatus) (int, error)
	Counts(ctx context.Context, eventID string) (RegistrationCounts, error)
	// CountsByStatus returns the number of registrations of the event per status. Missing statuses are zero.
	CountsByStatus(ctx context.Context, eventID string) (map[RegistrationStatus]int, error)
	// ApproveWithinCapacity atomically checks the approved count against the event's max seats and,
	// if a seat is free, moves the pending registration to approved and stores the ticket.
	// Returns ErrCapacityExceeded, ErrInvalidTransition or ErrNotFound without writing anything.
	ApproveWithinCapacity(ctx context.Context, regID, eventID, ticket string, at time.Time) error
	// UpdateStatus moves the registration to status when its current status is one of from.
	// Returns ErrInvalidTransition when no row matched.
	UpdateStatus(ctx context.Context, regID string, from []RegistrationStatus, to RegistrationStatus, at time.Time) error
}

// RegistrationService is the registration ledger and approval workflow.
type RegistrationService interface {
	RegisterForEvent(ctx context.Context, eventID, participantID string) (*Registration, RegistrationCounts, error)
	ApproveRegistration(ctx context.Context, regID string, actor Actor) (*Registration, error)
	RejectRegistration(ctx context.Context, regID string, actor Actor) (*Registration, error)
	CancelRegistration(ctx context.Context, regID, participantID string) (*Registration, RegistrationCounts, error)
	ListMyRegistrations(ctx context.Context, participantID string) ([]*RegistrationWithEvent, error)
	ListEventRegistrations(ctx context.Context, eventID string, actor Actor) ([]*Registration, error)
	GetAvailableSeats(ctx context.Context, eventID string) (*SeatAvailability, error)
	DownloadTicket(ctx context.Context, regID, participantID string) (*Ticket, error)
}
