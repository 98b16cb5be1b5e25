package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxEventTitleLen is the longest accepted event title, in characters.
const MaxEventTitleLen = 150

// EventCategory classifies an event.
type EventCategory string

const (
	CategoryTechnical   EventCategory = "technical"
	CategoryCultural    EventCategory = "cultural"
	CategorySports      EventCategory = "sports"
	CategoryWorkshop    EventCategory = "workshop"
	CategorySeminar     EventCategory = "seminar"
	CategoryCompetition EventCategory = "competition"
	CategoryOther       EventCategory = "other"
)

// Valid reports whether c is a known category.
func (c EventCategory) Valid() bool {
	switch c {
	case CategoryTechnical, CategoryCultural, CategorySports, CategoryWorkshop,
		CategorySeminar, CategoryCompetition, CategoryOther:
		return true
	}
	return false
}

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventPending   EventStatus = "pending"
	EventApproved  EventStatus = "approved"
	EventRejected  EventStatus = "rejected"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// Valid reports whether s is a known event status.
func (s EventStatus) Valid() bool {
	switch s {
	case EventPending, EventApproved, EventRejected, EventOngoing, EventCompleted, EventCancelled:
		return true
	}
	return false
}

// AcceptsRegistrations reports whether participants may still register.
func (s EventStatus) AcceptsRegistrations() bool {
	return s != EventCancelled && s != EventCompleted
}

// Event is a scheduled college event.
// swagger:model Event
type Event struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    EventCategory `json:"category"`
	// Date is the calendar day of the event; only year, month and day are meaningful.
	Date        time.Time   `json:"date"`
	StartTime   string      `json:"start_time"`
	EndTime     string      `json:"end_time"`
	Venue       string      `json:"venue"`
	MaxSeats    int         `json:"max_seats"`
	Status      EventStatus `json:"status"`
	OrganizerID string      `json:"organizer_id"`
	Views       int         `json:"views"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// CreateEventInput holds the organizer-supplied fields of a new event.
type CreateEventInput struct {
	Title       string
	Description string
	Category    EventCategory
	Date        time.Time
	StartTime   string
	EndTime     string
	Venue       string
	MaxSeats    int
}

// Validate checks required fields. Clock strings are checked by the ticket parser at creation time.
func (in CreateEventInput) Validate() error {
	var errs []string
	if strings.TrimSpace(in.Title) == "" {
		errs = append(errs, "title is required")
	} else if utf8.RuneCountInString(in.Title) > MaxEventTitleLen {
		errs = append(errs, fmt.Sprintf("title must be at most %d characters", MaxEventTitleLen))
	}
	if !in.Category.Valid() {
		errs = append(errs, "category is invalid")
	}
	if in.Date.IsZero() {
		errs = append(errs, "date is required")
	}
	if strings.TrimSpace(in.StartTime) == "" {
		errs = append(errs, "start_time is required")
	}
	if strings.TrimSpace(in.Venue) == "" {
		errs = append(errs, "venue is required")
	}
	if in.MaxSeats < 1 {
		errs = append(errs, "max_seats must be at least 1")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(errs, "; "))
	}
	return nil
}

// UpdateEventInput holds the fields an organizer may change after creation. Nil fields are kept.
type UpdateEventInput struct {
	Title       *string
	Description *string
	Category    *EventCategory
	Date        *time.Time
	StartTime   *string
	EndTime     *string
	Venue       *string
	MaxSeats    *int
}

// Empty reports whether the input changes nothing.
func (in UpdateEventInput) Empty() bool {
	return in.Title == nil && in.Description == nil && in.Category == nil && in.Date == nil &&
		in.StartTime == nil && in.EndTime == nil && in.Venue == nil && in.MaxSeats == nil
}

// Apply returns a copy of e with the set fields replaced. e is not modified.
func (in UpdateEventInput) Apply(e *Event) *Event {
	out := *e
	if in.Title != nil {
		out.Title = *in.Title
	}
	if in.Description != nil {
		out.Description = *in.Description
	}
	if in.Category != nil {
		out.Category = *in.Category
	}
	if in.Date != nil {
		y, m, d := in.Date.Date()
		out.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	if in.StartTime != nil {
		out.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		out.EndTime = *in.EndTime
	}
	if in.Venue != nil {
		out.Venue = *in.Venue
	}
	if in.MaxSeats != nil {
		out.MaxSeats = *in.MaxSeats
	}
	return &out
}

// ScheduleChanged reports whether the input touches the date, times or venue.
func (in UpdateEventInput) ScheduleChanged() bool {
	return in.Date != nil || in.StartTime != nil || in.EndTime != nil || in.Venue != nil
}

// Editable returns the organizer-supplied fields of e in creation form, for validation.
func (e *Event) Editable() CreateEventInput {
	return CreateEventInput{
		Title:       e.Title,
		Description: e.Description,
		Category:    e.Category,
		Date:        e.Date,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Venue:       e.Venue,
		MaxSeats:    e.MaxSeats,
	}
}

// EventMetrics summarises registrations and attendance of one event for its organizer.
// swagger:model EventMetrics
type EventMetrics struct {
	EventID                string    `json:"event_id"`
	TotalRegistrations     int       `json:"total_registrations"`
	ApprovedRegistrations  int       `json:"approved_registrations"`
	PendingRegistrations   int       `json:"pending_registrations"`
	RejectedRegistrations  int       `json:"rejected_registrations"`
	CancelledRegistrations int       `json:"cancelled_registrations"`
	AvailableSeats         int       `json:"available_seats"`
	Views                  int       `json:"views"`
	PresentCount           int       `json:"present_count"`
	AbsentCount            int       `json:"absent_count"`
	GeneratedAt            time.Time `json:"generated_at"`
}

// EventFilter narrows event listings. Empty fields match everything.
type EventFilter struct {
	Status      EventStatus
	Category    EventCategory
	OrganizerID string
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, filter EventFilter, page PaginationParams) ([]*Event, int, error)
	UpdateStatus(ctx context.Context, id string, status EventStatus, updatedAt time.Time) error
	// Update stores the editable fields of e. Under the event row lock it rejects a max_seats
	// below the current number of approved registrations with ErrCapacityExceeded.
	Update(ctx context.Context, e *Event) error
	IncrementViews(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// EventService defines event administration: creation, review and lifecycle changes.
type EventService interface {
	CreateEvent(ctx context.Context, actor Actor, in CreateEventInput) (*Event, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	// ListEvents lists events. Callers that are not organizers or admins only see approved events.
	ListEvents(ctx context.Context, actor *Actor, filter EventFilter, page PaginationParams) ([]*Event, int, error)
	ReviewEvent(ctx context.Context, id string, actor Actor, approve bool) (*Event, error)
	UpdateEventStatus(ctx context.Context, id string, actor Actor, status EventStatus) (*Event, error)
	DeleteEvent(ctx context.Context, id string, actor Actor) error
	UpdateEvent(ctx context.Context, id string, actor Actor, in UpdateEventInput) (*Event, error)
	GetEventMetrics(ctx context.Context, id string, actor Actor) (*EventMetrics, error)
	// EventCalendar returns a public calendar file for the event.
	EventCalendar(ctx context.Context, id string) (*Ticket, error)
}
