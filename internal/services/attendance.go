package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventsphere/internal/domain"
)

type attendanceService struct {
	eventRepo        domain.EventRepository
	registrationRepo domain.RegistrationRepository
	attendanceRepo   domain.AttendanceRepository
	contextTimeout   time.Duration
	now              func() time.Time
}

func NewAttendanceService(eventRepo domain.EventRepository,
	registrationRepo domain.RegistrationRepository,
	attendanceRepo domain.AttendanceRepository,
	timeout time.Duration,
) domain.AttendanceService {
	return &attendanceService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		attendanceRepo:   attendanceRepo,
		contextTimeout:   timeout,
		now:              time.Now,
	}
}

// MarkAttendance records attendance for a participant with an approved registration. Marking again overwrites.
func (s *attendanceService) MarkAttendance(ctx context.Context, actor domain.Actor, eventID, participantID string, attended bool, method domain.CheckInMethod) (*domain.Attendance, error) {
	if method == "" {
		method = domain.CheckInManual
	}
	if !method.Valid() {
		return nil, fmt.Errorf("%w: check_in_method is invalid", domain.ErrInvalidInput)
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !actor.CanManage(event) {
		return nil, domain.ErrForbidden
	}

	reg, err := s.registrationRepo.GetByEventAndParticipant(ctx, eventID, participantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotApproved
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	if reg.Status != domain.RegistrationApproved {
		return nil, domain.ErrNotApproved
	}

	a := &domain.Attendance{
		EventID:       eventID,
		ParticipantID: participantID,
		Attended:      attended,
		CheckInMethod: method,
		MarkedAt:      s.now(),
	}
	if err := s.attendanceRepo.Upsert(ctx, a); err != nil {
		return nil, fmt.Errorf("record attendance: %w", err)
	}
	return a, nil
}

func (s *attendanceService) ListEventAttendance(ctx context.Context, eventID string, actor domain.Actor) ([]*domain.Attendance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !actor.CanManage(event) {
		return nil, domain.ErrForbidden
	}
	list, err := s.attendanceRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return list, nil
}
