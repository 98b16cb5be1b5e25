package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventsphere/internal/domain"
	"eventsphere/internal/metrics"
	"eventsphere/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
)

// pushBatchSize bounds how many live pushes one bulk task delivers.
const pushBatchSize = 100

type notificationService struct {
	repo           domain.NotificationRepository
	pusher         domain.Pusher
	tasks          domain.TaskRunner
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewNotificationService returns a NotificationService that stores every notification before
// handing a live push to the task runner.
func NewNotificationService(repo domain.NotificationRepository,
	pusher domain.Pusher,
	tasks domain.TaskRunner,
	logger *slog.Logger,
	timeout time.Duration,
) domain.NotificationService {
	return &notificationService{
		repo:           repo,
		pusher:         pusher,
		tasks:          tasks,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *notificationService) Notify(ctx context.Context, recipientID string, in domain.NotificationInput) (*domain.Notification, error) {
	if recipientID == "" {
		return nil, fmt.Errorf("%w: recipient is required", domain.ErrInvalidInput)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	ctx, span := telemetry.Start(ctx, "notifications.Notify")
	n, err := s.store(ctx, recipientID, in)
	telemetry.End(span, err)
	if err != nil {
		return nil, err
	}
	s.push(n)
	return n, nil
}

// NotifyBulk stores one notification per distinct recipient. A failing recipient is logged and
// counted; it never stops delivery to the others. Each store has its own timeout and outlives the
// caller's deadline, and live pushes are queued in batches of pushBatchSize.
func (s *notificationService) NotifyBulk(ctx context.Context, recipientIDs []string, in domain.NotificationInput) (*domain.BulkResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	ctx, span := telemetry.Start(ctx, "notifications.NotifyBulk")
	defer span.End()

	base := context.WithoutCancel(ctx)
	result := &domain.BulkResult{Failed: []string{}}
	seen := make(map[string]struct{}, len(recipientIDs))
	stored := make([]*domain.Notification, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		n, err := s.store(base, id, in)
		if err != nil {
			s.logger.WarnContext(ctx, "bulk notification failed", "recipient_id", id, "err", err)
			result.FailedCount++
			result.Failed = append(result.Failed, id)
			continue
		}
		result.SentCount++
		stored = append(stored, n)
	}
	for start := 0; start < len(stored); start += pushBatchSize {
		end := min(start+pushBatchSize, len(stored))
		s.pushBatch(stored[start:end])
	}
	span.SetAttributes(
		attribute.Int("notifications.sent", result.SentCount),
		attribute.Int("notifications.failed", result.FailedCount),
	)
	return result, nil
}

// store persists a single notification under its own timeout.
func (s *notificationService) store(ctx context.Context, recipientID string, in domain.NotificationInput) (*domain.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	n := domain.NewNotification(recipientID, in, s.now())
	if err := s.repo.Create(ctx, n); err != nil {
		metrics.RecordNotificationFailure("store")
		return nil, fmt.Errorf("store notification: %w", err)
	}
	metrics.RecordNotificationStored(string(n.Type))
	return n, nil
}

func (s *notificationService) push(n *domain.Notification) {
	ok := s.tasks.Submit("notification.push", func(ctx context.Context) error {
		return s.deliver(ctx, n)
	})
	if !ok {
		metrics.RecordNotificationFailure("push")
	}
}

// pushBatch delivers a slice of stored notifications from one task. A rejected task counts
// every notification in it as a failed push.
func (s *notificationService) pushBatch(batch []*domain.Notification) {
	ok := s.tasks.Submit("notification.push_batch", func(ctx context.Context) error {
		base := context.WithoutCancel(ctx)
		var errs []error
		for _, n := range batch {
			pctx, cancel := context.WithTimeout(base, s.contextTimeout)
			if err := s.deliver(pctx, n); err != nil {
				errs = append(errs, err)
			}
			cancel()
		}
		return errors.Join(errs...)
	})
	if !ok {
		for range batch {
			metrics.RecordNotificationFailure("push")
		}
		s.logger.Warn("push batch dropped", "size", len(batch))
	}
}

func (s *notificationService) deliver(ctx context.Context, n *domain.Notification) error {
	if err := s.pusher.Push(ctx, n.RecipientID, n); err != nil {
		metrics.RecordNotificationFailure("push")
		return fmt.Errorf("push notification %s: %w", n.ID, err)
	}
	return nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	n, err := s.repo.CountUnread(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

func (s *notificationService) List(ctx context.Context, userID string, filter domain.NotificationFilter, page domain.PaginationParams) ([]*domain.Notification, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	list, total, err := s.repo.List(ctx, userID, filter, page, s.now())
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return list, total, nil
}

func (s *notificationService) Get(ctx context.Context, id, userID string) (*domain.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	n, err := s.repo.GetByID(ctx, id, userID, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// MarkRead is idempotent; an already read notification keeps its original read time.
func (s *notificationService) MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	n, err := s.repo.MarkRead(ctx, id, userID, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return n, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	n, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return n, nil
}

func (s *notificationService) Delete(ctx context.Context, id, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.repo.Delete(ctx, id, userID, s.now()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

func (s *notificationService) DeleteRead(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	n, err := s.repo.DeleteRead(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("delete read notifications: %w", err)
	}
	return n, nil
}

func (s *notificationService) Stats(ctx context.Context, userID string) (*domain.NotificationStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	stats, err := s.repo.Stats(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("notification stats: %w", err)
	}
	return stats, nil
}

// PurgeExpired deletes notifications past their expiry. Reads already hide them, so this only reclaims space.
func (s *notificationService) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	n, err := s.repo.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired notifications: %w", err)
	}
	metrics.RecordNotificationsPurged(n)
	if n > 0 {
		s.logger.InfoContext(ctx, "purged expired notifications", "count", n)
	}
	return n, nil
}
