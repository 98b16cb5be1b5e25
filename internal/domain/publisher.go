package domain

import (
	"context"
	"time"
)

// Routing keys of published domain events.
const (
	RoutingRegistrationCreated   = "registration.created"
	RoutingRegistrationApproved  = "registration.approved"
	RoutingRegistrationRejected  = "registration.rejected"
	RoutingRegistrationCancelled = "registration.cancelled"
	RoutingEventCreated          = "event.created"
	RoutingEventReviewed         = "event.reviewed"
	RoutingEventUpdated          = "event.updated"
)

// RegistrationEvent is the payload published when a registration changes state.
type RegistrationEvent struct {
	RegistrationID string             `json:"registration_id"`
	EventID        string             `json:"event_id"`
	ParticipantID  string             `json:"participant_id"`
	Status         RegistrationStatus `json:"status"`
	ActorID        string             `json:"actor_id,omitempty"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

// EventLifecycleEvent is the payload published when an event is created, reviewed or updated.
type EventLifecycleEvent struct {
	EventID     string      `json:"event_id"`
	OrganizerID string      `json:"organizer_id"`
	Status      EventStatus `json:"status"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// EventPublisher publishes domain events to other systems. Best effort.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// TaskRunner runs side effects off the request path. Submit returns false when the task was dropped.
type TaskRunner interface {
	Submit(name string, fn func(ctx context.Context) error) bool
}
