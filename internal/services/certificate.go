package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventsphere/internal/domain"
)

type certificateService struct {
	eventRepo       domain.EventRepository
	attendanceRepo  domain.AttendanceRepository
	certificateRepo domain.CertificateRepository
	notifications   domain.NotificationService
	tasks           domain.TaskRunner
	contextTimeout  time.Duration
	now             func() time.Time
}

func NewCertificateService(eventRepo domain.EventRepository,
	attendanceRepo domain.AttendanceRepository,
	certificateRepo domain.CertificateRepository,
	notifications domain.NotificationService,
	tasks domain.TaskRunner,
	timeout time.Duration,
) domain.CertificateService {
	return &certificateService{
		eventRepo:       eventRepo,
		attendanceRepo:  attendanceRepo,
		certificateRepo: certificateRepo,
		notifications:   notifications,
		tasks:           tasks,
		contextTimeout:  timeout,
		now:             time.Now,
	}
}

// RequestCertificate files a request for an attended event. A repeated request returns the existing one.
func (s *certificateService) RequestCertificate(ctx context.Context, eventID, participantID string) (*domain.Certificate, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.getEvent(ctx, eventID); err != nil {
		return nil, false, err
	}
	if err := s.requireAttended(ctx, eventID, participantID); err != nil {
		return nil, false, err
	}

	existing, err := s.existing(ctx, eventID, participantID)
	if err != nil || existing != nil {
		return existing, false, err
	}

	now := s.now()
	cert := &domain.Certificate{
		EventID:       eventID,
		ParticipantID: participantID,
		Status:        domain.CertificateRequested,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.certificateRepo.Create(ctx, cert); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Lost a race with a concurrent request for the same pair.
			existing, err := s.existing(ctx, eventID, participantID)
			if err != nil {
				return nil, false, err
			}
			if existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("create certificate: %w", err)
	}
	return cert, true, nil
}

// existing returns the stored certificate for the pair, nil if there is none.
// An issued certificate is reported as ErrCertificateIssued.
func (s *certificateService) existing(ctx context.Context, eventID, participantID string) (*domain.Certificate, error) {
	cert, err := s.certificateRepo.Get(ctx, eventID, participantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	if cert.Status == domain.CertificateIssued {
		return nil, domain.ErrCertificateIssued
	}
	return cert, nil
}

// IssueCertificate stores the certificate URL for an attended participant, replacing any earlier request.
func (s *certificateService) IssueCertificate(ctx context.Context, actor domain.Actor, eventID, participantID, url string, feePaid bool) (*domain.Certificate, error) {
	url = strings.TrimSpace(url)
	if url == "" || participantID == "" {
		return nil, fmt.Errorf("%w: participant_id and certificate_url are required", domain.ErrInvalidInput)
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(event) {
		return nil, domain.ErrForbidden
	}
	if err := s.requireAttended(ctx, eventID, participantID); err != nil {
		return nil, err
	}

	now := s.now()
	cert := &domain.Certificate{
		EventID:        eventID,
		ParticipantID:  participantID,
		CertificateURL: url,
		Status:         domain.CertificateIssued,
		FeePaid:        feePaid,
		IssuedAt:       &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.certificateRepo.UpsertIssued(ctx, cert); err != nil {
		return nil, fmt.Errorf("issue certificate: %w", err)
	}

	s.tasks.Submit("certificate.notify_participant", func(ctx context.Context) error {
		_, err := s.notifications.Notify(ctx, participantID, domain.NotificationInput{
			Type:    domain.NotificationSystem,
			Title:   "Certificate issued",
			Message: fmt.Sprintf("Your certificate for %s is ready.", event.Title),
			Data:    map[string]any{"event_id": eventID, "certificate_url": url},
		}.Clipped())
		return err
	})
	return cert, nil
}

func (s *certificateService) ListMyCertificates(ctx context.Context, participantID string) ([]*domain.Certificate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	certs, err := s.certificateRepo.ListByParticipant(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certs, nil
}

// ListAttendedEvents returns the events the participant attended, skipping deleted ones.
func (s *certificateService) ListAttendedEvents(ctx context.Context, participantID string) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	ids, err := s.attendanceRepo.ListAttendedEventIDs(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("list attended events: %w", err)
	}
	events := make([]*domain.Event, 0, len(ids))
	for _, id := range ids {
		event, err := s.eventRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get event: %w", err)
		}
		events = append(events, event)
	}
	return events, nil
}

func (s *certificateService) requireAttended(ctx context.Context, eventID, participantID string) error {
	a, err := s.attendanceRepo.Get(ctx, eventID, participantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotAttended
		}
		return fmt.Errorf("get attendance: %w", err)
	}
	if !a.Attended {
		return domain.ErrNotAttended
	}
	return nil
}

func (s *certificateService) getEvent(ctx context.Context, id string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}
