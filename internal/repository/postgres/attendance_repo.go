package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventsphere/internal/domain"
)

type attendanceRepository struct {
	DB *sql.DB
}

func NewAttendanceRepository(db *sql.DB) domain.AttendanceRepository {
	return &attendanceRepository{DB: db}
}

func (r *attendanceRepository) Upsert(ctx context.Context, a *domain.Attendance) error {
	query := `
		INSERT INTO attendance (event_id, participant_id, attended, check_in_method, marked_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id, participant_id)
		DO UPDATE SET attended = EXCLUDED.attended, check_in_method = EXCLUDED.check_in_method, marked_at = EXCLUDED.marked_at
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, a.EventID, a.ParticipantID, a.Attended, a.CheckInMethod, a.MarkedAt).Scan(&a.ID)
}

func (r *attendanceRepository) Get(ctx context.Context, eventID, participantID string) (*domain.Attendance, error) {
	query := `
		SELECT id, event_id, participant_id, attended, check_in_method, marked_at
		FROM attendance
		WHERE event_id = $1 AND participant_id = $2
	`
	a := &domain.Attendance{}
	err := r.DB.QueryRowContext(ctx, query, eventID, participantID).
		Scan(&a.ID, &a.EventID, &a.ParticipantID, &a.Attended, &a.CheckInMethod, &a.MarkedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *attendanceRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Attendance, error) {
	query := `
		SELECT id, event_id, participant_id, attended, check_in_method, marked_at
		FROM attendance
		WHERE event_id = $1
		ORDER BY marked_at
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]*domain.Attendance, 0)
	for rows.Next() {
		a := &domain.Attendance{}
		if err := rows.Scan(&a.ID, &a.EventID, &a.ParticipantID, &a.Attended, &a.CheckInMethod, &a.MarkedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (r *attendanceRepository) ListAttendedEventIDs(ctx context.Context, participantID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT event_id FROM attendance WHERE participant_id = $1 AND attended = true ORDER BY marked_at DESC`,
		participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *attendanceRepository) Summary(ctx context.Context, eventID string) (domain.AttendanceSummary, error) {
	query := `
		SELECT COUNT(*) FILTER (WHERE a.attended),
		       COUNT(*) FILTER (WHERE NOT a.attended)
		FROM attendance a
		JOIN registrations r ON r.event_id = a.event_id AND r.participant_id = a.participant_id
		WHERE a.event_id = $1 AND r.status = $2
	`
	var s domain.AttendanceSummary
	err := r.DB.QueryRowContext(ctx, query, eventID, domain.RegistrationApproved).Scan(&s.Present, &s.Absent)
	return s, err
}
