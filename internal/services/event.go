package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventsphere/internal/domain"
	"eventsphere/internal/ticket"
)

type eventService struct {
	eventRepo        domain.EventRepository
	registrationRepo domain.RegistrationRepository
	attendanceRepo   domain.AttendanceRepository
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

func NewEventService(eventRepo domain.EventRepository,
	registrationRepo domain.RegistrationRepository,
	attendanceRepo domain.AttendanceRepository,
	userRepo domain.UserRepository,
	notifications domain.NotificationService,
	emailService domain.EmailService,
	publisher domain.EventPublisher,
	tasks domain.TaskRunner,
	logger *slog.Logger,
	frontendURL string,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		attendanceRepo:   attendanceRepo,
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

// CreateEvent stores a new pending event owned by the actor. Clock strings must parse so that
// tickets can be issued for it later.
func (s *eventService) CreateEvent(ctx context.Context, actor domain.Actor, in domain.CreateEventInput) (*domain.Event, error) {
	if actor.Role != domain.RoleOrganizer && !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if err := validateEventInput(in); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	now := s.now()
	y, m, d := in.Date.Date()
	event := &domain.Event{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Date:        time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Venue:       in.Venue,
		MaxSeats:    in.MaxSeats,
		Status:      domain.EventPending,
		OrganizerID: actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.tasks.Submit("event.email_organizer", func(ctx context.Context) error {
		data, err := s.eventEmail(ctx, event)
		if err != nil {
			return err
		}
		return s.emailService.SendEventCreated(ctx, data)
	})
	s.tasks.Submit("event.broadcast", func(ctx context.Context) error {
		return s.broadcast(ctx, event)
	})
	s.publish(domain.RoutingEventCreated, event)
	return event, nil
}

// validateEventInput checks the fields and that the clock strings parse, so that tickets can be built later.
func validateEventInput(in domain.CreateEventInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	start, err := ticket.ParseClock(in.Date, in.StartTime)
	if err != nil {
		return err
	}
	if in.EndTime != "" {
		end, err := ticket.ParseClock(in.Date, in.EndTime)
		if err != nil {
			return err
		}
		if !end.After(start) {
			return fmt.Errorf("%w: end_time must be after start_time", domain.ErrInvalidEventSchedule)
		}
	}
	return nil
}

// broadcast announces a new event to every user except its organizer.
func (s *eventService) broadcast(ctx context.Context, event *domain.Event) error {
	ids, err := s.userRepo.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	recipients := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != event.OrganizerID {
			recipients = append(recipients, id)
		}
	}
	result, err := s.notifications.NotifyBulk(ctx, recipients, domain.NotificationInput{
		Type:    domain.NotificationEvent,
		Title:   "New event: " + event.Title,
		Message: fmt.Sprintf("%s on %s at %s.", event.Title, event.Date.Format("Jan 2, 2006"), event.Venue),
		Data:    map[string]any{"event_id": event.ID},
	}.Clipped())
	if err != nil {
		return fmt.Errorf("broadcast event %s: %w", event.ID, err)
	}
	s.logger.InfoContext(ctx, "event broadcast",
		"event_id", event.ID, "sent", result.SentCount, "failed", result.FailedCount)
	return nil
}

// GetEvent returns the event and counts the view.
func (s *eventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if err := s.eventRepo.IncrementViews(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "increment event views", "event_id", id, "err", err)
	} else {
		event.Views++
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context, actor *domain.Actor, filter domain.EventFilter, page domain.PaginationParams) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if actor == nil || (actor.Role != domain.RoleOrganizer && !actor.IsAdmin()) {
		filter.Status = domain.EventApproved
	}
	events, total, err := s.eventRepo.List(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	return events, total, nil
}

// ReviewEvent lets an admin approve or reject a pending event.
func (s *eventService) ReviewEvent(ctx context.Context, id string, actor domain.Actor, approve bool) (*domain.Event, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.Status != domain.EventPending {
		return nil, fmt.Errorf("%w: event is %s", domain.ErrInvalidTransition, event.Status)
	}
	status := domain.EventRejected
	if approve {
		status = domain.EventApproved
	}
	if err := s.setStatus(ctx, event, status); err != nil {
		return nil, err
	}

	s.tasks.Submit("event.email_review", func(ctx context.Context) error {
		data, err := s.eventEmail(ctx, event)
		if err != nil {
			return err
		}
		return s.emailService.SendEventReviewed(ctx, data)
	})
	s.tasks.Submit("event.notify_review", func(ctx context.Context) error {
		_, err := s.notifications.Notify(ctx, event.OrganizerID, domain.NotificationInput{
			Type:    domain.NotificationAdmin,
			Title:   "Event " + string(status),
			Message: fmt.Sprintf("Your event %s was %s.", event.Title, status),
			Data:    map[string]any{"event_id": event.ID, "status": string(status)},
		}.Clipped())
		return err
	})
	s.publish(domain.RoutingEventReviewed, event)
	return event, nil
}

// UpdateEventStatus changes the lifecycle state. Organizers may only start, complete or cancel their own events.
func (s *eventService) UpdateEventStatus(ctx context.Context, id string, actor domain.Actor, status domain.EventStatus) (*domain.Event, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status is invalid", domain.ErrInvalidInput)
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(event) {
		return nil, domain.ErrForbidden
	}
	if !actor.IsAdmin() {
		switch status {
		case domain.EventOngoing, domain.EventCompleted, domain.EventCancelled:
		default:
			return nil, domain.ErrForbidden
		}
	}
	if err := s.setStatus(ctx, event, status); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, id string, actor domain.Actor) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanManage(event) {
		return domain.ErrForbidden
	}
	if err := s.eventRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// UpdateEvent changes the editable fields of an event the actor manages. The new seat limit may not
// fall below the approved registrations. Approved participants are told when the date, time or venue moves.
func (s *eventService) UpdateEvent(ctx context.Context, id string, actor domain.Actor, in domain.UpdateEventInput) (*domain.Event, error) {
	if in.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(event) {
		return nil, domain.ErrForbidden
	}
	if event.Status == domain.EventCompleted || event.Status == domain.EventCancelled {
		return nil, fmt.Errorf("%w: event is %s", domain.ErrInvalidTransition, event.Status)
	}

	updated := in.Apply(event)
	if err := validateEventInput(updated.Editable()); err != nil {
		return nil, err
	}
	updated.UpdatedAt = s.now()
	if err := s.eventRepo.Update(ctx, updated); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return nil, domain.ErrNotFound
		case errors.Is(err, domain.ErrCapacityExceeded):
			return nil, err
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	s.logger.InfoContext(ctx, "event updated", "event_id", id, "actor_id", actor.ID)

	if in.ScheduleChanged() {
		s.tasks.Submit("event.announce_update", func(ctx context.Context) error {
			return s.announceUpdate(ctx, updated)
		})
	}
	s.publish(domain.RoutingEventUpdated, updated)
	return updated, nil
}

// announceUpdate notifies and emails every approved participant of the event.
func (s *eventService) announceUpdate(ctx context.Context, event *domain.Event) error {
	regs, err := s.registrationRepo.ListByEvent(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("list registrations: %w", err)
	}
	var recipients []string
	for _, reg := range regs {
		if reg.Status == domain.RegistrationApproved {
			recipients = append(recipients, reg.ParticipantID)
		}
	}
	if len(recipients) == 0 {
		return nil
	}

	result, err := s.notifications.NotifyBulk(ctx, recipients, domain.NotificationInput{
		Type:     domain.NotificationEvent,
		Title:    "Event updated: " + event.Title,
		Message:  fmt.Sprintf("%s is now on %s at %s, %s.", event.Title, event.Date.Format("Jan 2, 2006"), event.StartTime, event.Venue),
		Priority: domain.PriorityHigh,
		Data:     map[string]any{"event_id": event.ID},
	}.Clipped())
	if err != nil {
		return fmt.Errorf("notify participants of event %s: %w", event.ID, err)
	}

	base := context.WithoutCancel(ctx)
	var mailFailed int
	for _, id := range recipients {
		if err := s.emailUpdate(base, event, id); err != nil {
			s.logger.WarnContext(ctx, "event update email failed", "event_id", event.ID, "recipient_id", id, "err", err)
			mailFailed++
		}
	}
	s.logger.InfoContext(ctx, "event update announced",
		"event_id", event.ID, "notified", result.SentCount, "emails_failed", mailFailed)
	return nil
}

func (s *eventService) emailUpdate(ctx context.Context, event *domain.Event, participantID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, participantID)
	if err != nil {
		return fmt.Errorf("get participant %s: %w", participantID, err)
	}
	return s.emailService.SendEventUpdated(ctx, &domain.RegistrationEmailData{
		Email:           user.Email,
		RecipientName:   user.Username,
		ParticipantName: user.Username,
		EventTitle:      event.Title,
		EventDate:       event.Date.Format("Monday, January 2, 2006"),
		StartTime:       event.StartTime,
		Venue:           event.Venue,
		EventURL:        eventURL(s.frontendURL, event.ID),
	})
}

// GetEventMetrics reports registrations by status, seats, views and attendance to the event's managers.
func (s *eventService) GetEventMetrics(ctx context.Context, id string, actor domain.Actor) (*domain.EventMetrics, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(event) {
		return nil, domain.ErrForbidden
	}
	counts, err := s.registrationRepo.CountsByStatus(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	attendance, err := s.attendanceRepo.Summary(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("summarise attendance: %w", err)
	}

	m := &domain.EventMetrics{
		EventID:                id,
		ApprovedRegistrations:  counts[domain.RegistrationApproved],
		PendingRegistrations:   counts[domain.RegistrationPending],
		RejectedRegistrations:  counts[domain.RegistrationRejected],
		CancelledRegistrations: counts[domain.RegistrationCancelled],
		Views:                  event.Views,
		PresentCount:           attendance.Present,
		AbsentCount:            attendance.Absent,
		GeneratedAt:            s.now().UTC(),
	}
	for _, n := range counts {
		m.TotalRegistrations += n
	}
	m.AvailableSeats = domain.Capacity{MaxSeats: event.MaxSeats, Approved: m.ApprovedRegistrations}.Available()
	return m, nil
}

// EventCalendar builds a calendar file for the event that anyone may download.
func (s *eventService) EventCalendar(ctx context.Context, id string) (*domain.Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	content, err := ticket.ForEvent(event, s.frontendURL)
	if err != nil {
		return nil, err
	}
	return &domain.Ticket{FileName: ticket.EventFileName(event.ID), Content: content}, nil
}

func (s *eventService) getEvent(ctx context.Context, id string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *eventService) setStatus(ctx context.Context, event *domain.Event, status domain.EventStatus) error {
	now := s.now()
	if err := s.eventRepo.UpdateStatus(ctx, event.ID, status, now); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update event status: %w", err)
	}
	event.Status = status
	event.UpdatedAt = now
	return nil
}

func (s *eventService) eventEmail(ctx context.Context, event *domain.Event) (*domain.EventEmailData, error) {
	organizer, err := s.userRepo.GetByID(ctx, event.OrganizerID)
	if err != nil {
		return nil, fmt.Errorf("get organizer %s: %w", event.OrganizerID, err)
	}
	return &domain.EventEmailData{
		Email:      organizer.Email,
		Organizer:  organizer.Username,
		EventTitle: event.Title,
		EventDate:  event.Date.Format("Monday, January 2, 2006"),
		Status:     string(event.Status),
		EventURL:   eventURL(s.frontendURL, event.ID),
	}, nil
}

func (s *eventService) publish(routingKey string, event *domain.Event) {
	payload := domain.EventLifecycleEvent{
		EventID:     event.ID,
		OrganizerID: event.OrganizerID,
		Status:      event.Status,
		OccurredAt:  s.now().UTC(),
	}
	s.tasks.Submit("publish."+routingKey, func(ctx context.Context) error {
		return s.publisher.Publish(ctx, routingKey, payload)
	})
}
