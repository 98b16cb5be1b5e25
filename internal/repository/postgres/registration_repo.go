package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"eventsphere/internal/domain"
)

type registrationRepository struct {
	DB *sql.DB
}

func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{
		DB: db,
	}
}

const registrationColumns = `id, event_id, participant_id, status, ics_ticket, created_at, updated_at`

func scanRegistration(row rowScanner) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var ticket sql.NullString
	if err := row.Scan(&reg.ID, &reg.EventID, &reg.ParticipantID, &reg.Status, &ticket, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
		return nil, err
	}
	if ticket.Valid {
		reg.ICSTicket = &ticket.String
	}
	return reg, nil
}

func (r *registrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	query := `
		INSERT INTO registrations (event_id, participant_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query, reg.EventID, reg.ParticipantID, reg.Status, reg.CreatedAt, reg.UpdatedAt).
		Scan(&reg.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrDuplicateRegistration
		}
		return err
	}
	return nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) GetByEventAndParticipant(ctx context.Context, eventID, participantID string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 AND participant_id = $2`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, eventID, participantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) ListByParticipant(ctx context.Context, participantID string) ([]*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE participant_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, participantID)
}

func (r *registrationRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 ORDER BY created_at ASC`
	return r.list(ctx, query, eventID)
}

func (r *registrationRepository) list(ctx context.Context, query string, arg string) ([]*domain.Registration, error) {
	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := make([]*domain.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *registrationRepository) CountByStatus(ctx context.Context, eventID string, status domain.RegistrationStatus) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2`, eventID, status).
		Scan(&n)
	return n, err
}

func (r *registrationRepository) Counts(ctx context.Context, eventID string) (domain.RegistrationCounts, error) {
	query := `
		SELECT COUNT(*) FILTER (WHERE status = 'approved'),
		       COUNT(*) FILTER (WHERE status = 'pending')
		FROM registrations
		WHERE event_id = $1
	`
	var c domain.RegistrationCounts
	err := r.DB.QueryRowContext(ctx, query, eventID).Scan(&c.Approved, &c.Pending)
	return c, err
}

func (r *registrationRepository) CountsByStatus(ctx context.Context, eventID string) (map[domain.RegistrationStatus]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM registrations WHERE event_id = $1 GROUP BY status`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[domain.RegistrationStatus]int)
	for rows.Next() {
		var (
			status domain.RegistrationStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ApproveWithinCapacity holds a row lock on the event for the whole check-then-write, so concurrent
// approvals for one event serialise and each sees the committed approved count of the others.
func (r *registrationRepository) ApproveWithinCapacity(ctx context.Context, regID, eventID, ticket string, at time.Time) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var maxSeats int
	err = tx.QueryRowContext(ctx, `SELECT max_seats FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&maxSeats)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("lock event row: %w", err)
	}

	var approved int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2`,
		eventID, domain.RegistrationApproved,
	).Scan(&approved)
	if err != nil {
		return fmt.Errorf("count approved: %w", err)
	}
	if !(domain.Capacity{MaxSeats: maxSeats, Approved: approved}).HasRoom() {
		return domain.ErrCapacityExceeded
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE registrations
		SET status = $2, ics_ticket = $3, updated_at = $4
		WHERE id = $1 AND event_id = $5 AND status = $6
	`, regID, domain.RegistrationApproved, ticket, at, eventID, domain.RegistrationPending)
	if err != nil {
		return fmt.Errorf("approve registration: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrInvalidTransition
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *registrationRepository) UpdateStatus(ctx context.Context, regID string, from []domain.RegistrationStatus, to domain.RegistrationStatus, at time.Time) error {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	result, err := r.DB.ExecContext(ctx, `
		UPDATE registrations
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = ANY($4)
	`, regID, to, at, pq.Array(allowed))
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}
