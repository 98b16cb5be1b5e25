package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventsphere/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventColumns = `id, title, description, category, date, start_time, end_time, venue, max_seats, status, organizer_id, views, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Category, &e.Date, &e.StartTime, &e.EndTime,
		&e.Venue, &e.MaxSeats, &e.Status, &e.OrganizerID, &e.Views, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, description, category, date, start_time, end_time, venue, max_seats, status, organizer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.Title, e.Description, e.Category, e.Date, e.StartTime, e.EndTime, e.Venue,
		e.MaxSeats, e.Status, e.OrganizerID, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter, page domain.PaginationParams) ([]*domain.Event, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.OrganizerID != "" {
		args = append(args, filter.OrganizerID)
		where = append(where, fmt.Sprintf("organizer_id = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM events%s ORDER BY date ASC, created_at DESC LIMIT $%d OFFSET $%d`,
		eventColumns, clause, len(args)+1, len(args)+2)
	rows, err := r.DB.QueryContext(ctx, query, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}

func (r *eventRepository) UpdateStatus(ctx context.Context, id string, status domain.EventStatus, updatedAt time.Time) error {
	result, err := r.DB.ExecContext(ctx, `UPDATE events SET status = $2, updated_at = $3 WHERE id = $1`, id, status, updatedAt)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Update locks the event row like an approval does, so a seat limit change and concurrent approvals
// see each other's committed state.
func (r *eventRepository) Update(ctx context.Context, e *domain.Event) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, e.ID).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("lock event row: %w", err)
	}

	var approved int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2`,
		e.ID, domain.RegistrationApproved,
	).Scan(&approved)
	if err != nil {
		return fmt.Errorf("count approved: %w", err)
	}
	if e.MaxSeats < approved {
		return fmt.Errorf("%w: %d seats already approved", domain.ErrCapacityExceeded, approved)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE events
		SET title = $2, description = $3, category = $4, date = $5, start_time = $6, end_time = $7,
		    venue = $8, max_seats = $9, updated_at = $10
		WHERE id = $1
	`, e.ID, e.Title, e.Description, e.Category, e.Date, e.StartTime, e.EndTime, e.Venue, e.MaxSeats, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *eventRepository) IncrementViews(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE events SET views = views + 1 WHERE id = $1`, id)
	return err
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
