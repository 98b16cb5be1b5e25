package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventsphere/internal/domain"
	"eventsphere/internal/metrics"
	"eventsphere/internal/telemetry"
	"eventsphere/internal/ticket"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// registrationOutcomes labels the expected failures of registration operations.
var registrationOutcomes = map[error]string{
	domain.ErrNotFound:              "not_found",
	domain.ErrForbidden:             "forbidden",
	domain.ErrDuplicateRegistration: "duplicate",
	domain.ErrEventNotOpen:          "event_not_open",
	domain.ErrCapacityExceeded:      "capacity_exceeded",
	domain.ErrInvalidTransition:     "invalid_transition",
	domain.ErrInvalidEventSchedule:  "invalid_schedule",
}

type registrationService struct {
	eventRepo        domain.EventRepository
	registrationRepo domain.RegistrationRepository
	userRepo         domain.UserRepository
	notifications    domain.NotificationService
	emailService     domain.EmailService
	publisher        domain.EventPublisher
	tasks            domain.TaskRunner
	logger           *slog.Logger
	frontendURL      string
	contextTimeout   time.Duration
	now              func() time.Time
}

func NewRegistrationService(eventRepo domain.EventRepository,
	registrationRepo domain.RegistrationRepository,
	userRepo domain.UserRepository,
	notifications domain.NotificationService,
	emailService domain.EmailService,
	publisher domain.EventPublisher,
	tasks domain.TaskRunner,
	logger *slog.Logger,
	frontendURL string,
	timeout time.Duration,
) domain.RegistrationService {
	return &registrationService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		userRepo:         userRepo,
		notifications:    notifications,
		emailService:     emailService,
		publisher:        publisher,
		tasks:            tasks,
		logger:           logger,
		frontendURL:      frontendURL,
		contextTimeout:   timeout,
		now:              time.Now,
	}
}

// finish closes the span and counts the operation by outcome.
func finish(span trace.Span, operation string, err error) {
	outcome := telemetry.Outcome(err, registrationOutcomes)
	span.SetAttributes(attribute.String("outcome", outcome))
	metrics.RecordRegistrationOp(operation, outcome)
	telemetry.End(span, err)
}

func (s *registrationService) RegisterForEvent(ctx context.Context, eventID, participantID string) (reg *domain.Registration, counts domain.RegistrationCounts, err error) {
	ctx, span := telemetry.Start(ctx, "registrations.Register",
		trace.WithAttributes(attribute.String("event.id", eventID)))
	defer func() { finish(span, "register", err) }()

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, counts, err
	}
	if !event.Status.AcceptsRegistrations() {
		return nil, counts, domain.ErrEventNotOpen
	}

	reg = domain.NewRegistration(eventID, participantID, s.now())
	if err = s.registrationRepo.Create(ctx, reg); err != nil {
		if errors.Is(err, domain.ErrDuplicateRegistration) {
			return nil, counts, domain.ErrDuplicateRegistration
		}
		return nil, counts, fmt.Errorf("create registration: %w", err)
	}

	counts, err = s.registrationRepo.Counts(ctx, eventID)
	if err != nil {
		return nil, counts, fmt.Errorf("count registrations: %w", err)
	}

	s.afterRegistered(reg, event)
	return reg, counts, nil
}

// afterRegistered informs the organizer by email and in-app notification.
func (s *registrationService) afterRegistered(reg *domain.Registration, event *domain.Event) {
	s.tasks.Submit("registration.email_organizer", func(ctx context.Context) error {
		data, err := s.registrationEmail(ctx, event, event.OrganizerID, reg.ParticipantID)
		if err != nil {
			return err
		}
		return s.emailService.SendRegistrationReceived(ctx, data)
	})
	s.tasks.Submit("registration.notify_organizer", func(ctx context.Context) error {
		_, err := s.notifications.Notify(ctx, event.OrganizerID, domain.NotificationInput{
			Type:    domain.NotificationRegistration,
			Title:   "New registration",
			Message: fmt.Sprintf("A participant registered for %s.", event.Title),
			Data: map[string]any{
				"event_id":        event.ID,
				"registration_id": reg.ID,
			},
		}.Clipped())
		return err
	})
	s.publish(domain.RoutingRegistrationCreated, reg, reg.ParticipantID)
}

// ApproveRegistration authorizes the actor, builds the ticket and moves the registration to approved
// only if the event still has a free seat at the moment of the write.
func (s *registrationService) ApproveRegistration(ctx context.Context, regID string, actor domain.Actor) (reg *domain.Registration, err error) {
	ctx, span := telemetry.Start(ctx, "registrations.Approve",
		trace.WithAttributes(attribute.String("registration.id", regID)))
	defer func() { finish(span, "approve", err) }()

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, event, err := s.loadForReview(ctx, regID, actor)
	if err != nil {
		return nil, err
	}
	if reg.Status != domain.RegistrationPending {
		return nil, domain.ErrInvalidTransition
	}

	ics, err := ticket.ForEvent(event, s.frontendURL)
	if err != nil {
		return nil, err
	}

	at := s.now()
	if err = s.registrationRepo.ApproveWithinCapacity(ctx, reg.ID, event.ID, ics, at); err != nil {
		switch {
		case errors.Is(err, domain.ErrCapacityExceeded),
			errors.Is(err, domain.ErrInvalidTransition),
			errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
		return nil, fmt.Errorf("approve registration: %w", err)
	}
	reg.Status = domain.RegistrationApproved
	reg.ICSTicket = &ics
	reg.UpdatedAt = at
	s.logger.InfoContext(ctx, "registration approved",
		"registration_id", reg.ID, "event_id", event.ID, "actor_id", actor.ID)

	s.afterReviewed(reg, event, actor)
	return reg, nil
}

// RejectRegistration moves a pending registration to rejected. No capacity check applies.
func (s *registrationService) RejectRegistration(ctx context.Context, regID string, actor domain.Actor) (reg *domain.Registration, err error) {
	ctx, span := telemetry.Start(ctx, "registrations.Reject",
		trace.WithAttributes(attribute.String("registration.id", regID)))
	defer func() { finish(span, "reject", err) }()

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, event, err := s.loadForReview(ctx, regID, actor)
	if err != nil {
		return nil, err
	}

	at := s.now()
	err = s.registrationRepo.UpdateStatus(ctx, reg.ID,
		[]domain.RegistrationStatus{domain.RegistrationPending}, domain.RegistrationRejected, at)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return nil, domain.ErrInvalidTransition
		}
		return nil, fmt.Errorf("reject registration: %w", err)
	}
	reg.Status = domain.RegistrationRejected
	reg.UpdatedAt = at
	s.logger.InfoContext(ctx, "registration rejected",
		"registration_id", reg.ID, "event_id", event.ID, "actor_id", actor.ID)

	s.afterReviewed(reg, event, actor)
	return reg, nil
}

// loadForReview loads the registration and its event and checks that the actor manages the event.
func (s *registrationService) loadForReview(ctx context.Context, regID string, actor domain.Actor) (*domain.Registration, *domain.Event, error) {
	reg, err := s.registrationRepo.GetByID(ctx, regID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("get registration: %w", err)
	}
	event, err := s.getEvent(ctx, reg.EventID)
	if err != nil {
		return nil, nil, err
	}
	if !actor.CanManage(event) {
		return nil, nil, domain.ErrForbidden
	}
	return reg, event, nil
}

// afterReviewed tells the participant about the decision. Failures are only logged by the runner.
func (s *registrationService) afterReviewed(reg *domain.Registration, event *domain.Event, actor domain.Actor) {
	approved := reg.Status == domain.RegistrationApproved

	title, message := "Registration rejected", fmt.Sprintf("Your registration for %s was not approved.", event.Title)
	if approved {
		title, message = "Registration approved", fmt.Sprintf("Your seat for %s is confirmed. Your ticket is ready to download.", event.Title)
	}
	s.tasks.Submit("registration.notify_participant", func(ctx context.Context) error {
		_, err := s.notifications.Notify(ctx, reg.ParticipantID, domain.NotificationInput{
			Type:     domain.NotificationRegistration,
			Title:    title,
			Message:  message,
			Priority: domain.PriorityHigh,
			Data: map[string]any{
				"event_id":        event.ID,
				"registration_id": reg.ID,
				"status":          string(reg.Status),
			},
		}.Clipped())
		return err
	})
	s.tasks.Submit("registration.email_participant", func(ctx context.Context) error {
		data, err := s.registrationEmail(ctx, event, reg.ParticipantID, reg.ParticipantID)
		if err != nil {
			return err
		}
		if approved {
			return s.emailService.SendRegistrationApproved(ctx, data)
		}
		return s.emailService.SendRegistrationRejected(ctx, data)
	})

	key := domain.RoutingRegistrationRejected
	if approved {
		key = domain.RoutingRegistrationApproved
	}
	s.publish(key, reg, actor.ID)
}

// CancelRegistration withdraws the participant's own pending or approved registration.
// A cancelled approval frees its seat immediately since availability is always counted live.
func (s *registrationService) CancelRegistration(ctx context.Context, regID, participantID string) (reg *domain.Registration, counts domain.RegistrationCounts, err error) {
	ctx, span := telemetry.Start(ctx, "registrations.Cancel",
		trace.WithAttributes(attribute.String("registration.id", regID)))
	defer func() { finish(span, "cancel", err) }()

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, err = s.registrationRepo.GetByID(ctx, regID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, counts, domain.ErrNotFound
		}
		return nil, counts, fmt.Errorf("get registration: %w", err)
	}
	// Someone else's registration is reported as missing.
	if reg.ParticipantID != participantID {
		return nil, counts, domain.ErrNotFound
	}
	if !reg.Cancellable() {
		return nil, counts, domain.ErrInvalidTransition
	}

	at := s.now()
	err = s.registrationRepo.UpdateStatus(ctx, reg.ID,
		[]domain.RegistrationStatus{domain.RegistrationPending, domain.RegistrationApproved},
		domain.RegistrationCancelled, at)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return nil, counts, domain.ErrInvalidTransition
		}
		return nil, counts, fmt.Errorf("cancel registration: %w", err)
	}
	reg.Status = domain.RegistrationCancelled
	reg.UpdatedAt = at

	counts, err = s.registrationRepo.Counts(ctx, reg.EventID)
	if err != nil {
		return nil, counts, fmt.Errorf("count registrations: %w", err)
	}
	s.publish(domain.RoutingRegistrationCancelled, reg, participantID)
	return reg, counts, nil
}

func (s *registrationService) ListMyRegistrations(ctx context.Context, participantID string) ([]*domain.RegistrationWithEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	regs, err := s.registrationRepo.ListByParticipant(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	out := make([]*domain.RegistrationWithEvent, 0, len(regs))
	events := make(map[string]*domain.Event)
	for _, reg := range regs {
		event, ok := events[reg.EventID]
		if !ok {
			event, err = s.eventRepo.GetByID(ctx, reg.EventID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("get event: %w", err)
			}
			events[reg.EventID] = event
		}
		// Registrations of deleted events are skipped.
		if event == nil {
			continue
		}
		out = append(out, &domain.RegistrationWithEvent{Registration: reg, Event: event})
	}
	return out, nil
}

func (s *registrationService) ListEventRegistrations(ctx context.Context, eventID string, actor domain.Actor) ([]*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(event) {
		return nil, domain.ErrForbidden
	}
	regs, err := s.registrationRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event registrations: %w", err)
	}
	return regs, nil
}

// GetAvailableSeats recomputes availability from a fresh count of approved registrations.
func (s *registrationService) GetAvailableSeats(ctx context.Context, eventID string) (*domain.SeatAvailability, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	approved, err := s.registrationRepo.CountByStatus(ctx, eventID, domain.RegistrationApproved)
	if err != nil {
		return nil, fmt.Errorf("count approved: %w", err)
	}
	return domain.Capacity{MaxSeats: event.MaxSeats, Approved: approved}.Availability(), nil
}

func (s *registrationService) DownloadTicket(ctx context.Context, regID, participantID string) (*domain.Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, err := s.registrationRepo.GetByID(ctx, regID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	if reg.ParticipantID != participantID {
		return nil, domain.ErrForbidden
	}
	if reg.Status != domain.RegistrationApproved {
		return nil, domain.ErrNotApproved
	}
	if reg.ICSTicket == nil || *reg.ICSTicket == "" {
		return nil, domain.ErrNotFound
	}
	event, err := s.getEvent(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	return &domain.Ticket{FileName: ticket.FileName(event.Title), Content: *reg.ICSTicket}, nil
}

func (s *registrationService) getEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// registrationEmail resolves the recipient and participant names for a registration email.
func (s *registrationService) registrationEmail(ctx context.Context, event *domain.Event, recipientID, participantID string) (*domain.RegistrationEmailData, error) {
	recipient, err := s.userRepo.GetByID(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("get recipient %s: %w", recipientID, err)
	}
	participant := recipient
	if participantID != recipientID {
		participant, err = s.userRepo.GetByID(ctx, participantID)
		if err != nil {
			return nil, fmt.Errorf("get participant %s: %w", participantID, err)
		}
	}
	return &domain.RegistrationEmailData{
		Email:           recipient.Email,
		RecipientName:   recipient.Username,
		ParticipantName: participant.Username,
		EventTitle:      event.Title,
		EventDate:       event.Date.Format("Monday, January 2, 2006"),
		StartTime:       event.StartTime,
		Venue:           event.Venue,
		EventURL:        eventURL(s.frontendURL, event.ID),
	}, nil
}

func (s *registrationService) publish(routingKey string, reg *domain.Registration, actorID string) {
	payload := domain.RegistrationEvent{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		ParticipantID:  reg.ParticipantID,
		Status:         reg.Status,
		ActorID:        actorID,
		OccurredAt:     s.now().UTC(),
	}
	s.tasks.Submit("publish."+routingKey, func(ctx context.Context) error {
		return s.publisher.Publish(ctx, routingKey, payload)
	})
}

func eventURL(frontendURL, eventID string) string {
	return strings.TrimSuffix(frontendURL, "/") + "/events/" + eventID
}
