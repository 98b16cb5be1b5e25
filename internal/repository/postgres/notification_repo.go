package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventsphere/internal/domain"
)

type notificationRepository struct {
	DB *sql.DB
}

func NewNotificationRepository(db *sql.DB) domain.NotificationRepository {
	return &notificationRepository{
		DB: db,
	}
}

const notificationColumns = `id, recipient_id, type, title, message, data, is_read, read_at, priority, expires_at, created_at, updated_at`

func scanNotification(row rowScanner) (*domain.Notification, error) {
	n := &domain.Notification{}
	var (
		data   []byte
		readAt sql.NullTime
	)
	err := row.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Message, &data, &n.IsRead, &readAt,
		&n.Priority, &n.ExpiresAt, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	n.Data = map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("decode notification data: %w", err)
		}
	}
	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}
	return n, nil
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("encode notification data: %w", err)
	}
	query := `
		INSERT INTO notifications (recipient_id, type, title, message, data, is_read, priority, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		n.RecipientID, n.Type, n.Title, n.Message, data, n.IsRead, n.Priority, n.ExpiresAt, n.CreatedAt, n.UpdatedAt,
	).Scan(&n.ID)
}

func (r *notificationRepository) GetByID(ctx context.Context, id, recipientID string, now time.Time) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1 AND recipient_id = $2 AND expires_at > $3`
	n, err := scanNotification(r.DB.QueryRowContext(ctx, query, id, recipientID, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

func (r *notificationRepository) List(ctx context.Context, recipientID string, filter domain.NotificationFilter, page domain.PaginationParams, now time.Time) ([]*domain.Notification, int, error) {
	where := []string{"recipient_id = $1", "expires_at > $2"}
	args := []any{recipientID, now}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.IsRead != nil {
		args = append(args, *filter.IsRead)
		where = append(where, fmt.Sprintf("is_read = $%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		where = append(where, fmt.Sprintf("priority = $%d", len(args)))
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM notifications%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		notificationColumns, clause, len(args)+1, len(args)+2)
	rows, err := r.DB.QueryContext(ctx, query, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]*domain.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID string, now time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = false AND expires_at > $2`,
		recipientID, now).Scan(&n)
	return n, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID string, now time.Time) (*domain.Notification, error) {
	query := `
		UPDATE notifications
		SET is_read = true, read_at = COALESCE(read_at, $3), updated_at = $3
		WHERE id = $1 AND recipient_id = $2 AND expires_at > $3
		RETURNING ` + notificationColumns
	n, err := scanNotification(r.DB.QueryRowContext(ctx, query, id, recipientID, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string, now time.Time) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE notifications
		SET is_read = true, read_at = $2, updated_at = $2
		WHERE recipient_id = $1 AND is_read = false AND expires_at > $2
	`, recipientID, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *notificationRepository) Delete(ctx context.Context, id, recipientID string, now time.Time) error {
	result, err := r.DB.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND recipient_id = $2 AND expires_at > $3`,
		id, recipientID, now)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *notificationRepository) DeleteRead(ctx context.Context, recipientID string, now time.Time) (int64, error) {
	result, err := r.DB.ExecContext(ctx,
		`DELETE FROM notifications WHERE recipient_id = $1 AND is_read = true AND expires_at > $2`,
		recipientID, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *notificationRepository) Stats(ctx context.Context, recipientID string, now time.Time) (*domain.NotificationStats, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT type, is_read, COUNT(*)
		FROM notifications
		WHERE recipient_id = $1 AND expires_at > $2
		GROUP BY type, is_read
	`, recipientID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &domain.NotificationStats{ByType: map[domain.NotificationType]int{}}
	for rows.Next() {
		var (
			typ    domain.NotificationType
			isRead bool
			count  int
		)
		if err := rows.Scan(&typ, &isRead, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		stats.ByType[typ] += count
		if isRead {
			stats.Read += count
		} else {
			stats.Unread += count
		}
	}
	return stats, rows.Err()
}

func (r *notificationRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM notifications WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
