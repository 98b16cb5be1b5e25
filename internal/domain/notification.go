package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// NotificationType classifies an in-app notification.
type NotificationType string

const (
	NotificationEvent        NotificationType = "event"
	NotificationSystem       NotificationType = "system"
	NotificationAnnouncement NotificationType = "announcement"
	NotificationRegistration NotificationType = "registration"
	NotificationBookmark     NotificationType = "bookmark"
	NotificationAdmin        NotificationType = "admin"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationEvent, NotificationSystem, NotificationAnnouncement,
		NotificationRegistration, NotificationBookmark, NotificationAdmin:
		return true
	}
	return false
}

// NotificationPriority orders notifications for display.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p NotificationPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Notification limits and defaults.
const (
	MaxNotificationTitleLen   = 200
	MaxNotificationMessageLen = 1000
	DefaultNotificationTTL    = 30 * 24 * time.Hour
)

// Notification is a persistent in-app message for one recipient.
// Expired notifications are invisible to every query.
// swagger:model Notification
type Notification struct {
	ID          string               `json:"id"`
	RecipientID string               `json:"recipient_id"`
	Type        NotificationType     `json:"type"`
	Title       string               `json:"title"`
	Message     string               `json:"message"`
	Data        map[string]any       `json:"data"`
	IsRead      bool                 `json:"is_read"`
	ReadAt      *time.Time           `json:"read_at"`
	Priority    NotificationPriority `json:"priority"`
	ExpiresAt   time.Time            `json:"expires_at"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// NotificationInput is the content of a notification before it is addressed to a recipient.
type NotificationInput struct {
	Type     NotificationType
	Title    string
	Message  string
	Data     map[string]any
	Priority NotificationPriority
	// ExpiresAt defaults to now + DefaultNotificationTTL when nil.
	ExpiresAt *time.Time
}

// Validate checks type, priority and length limits. An empty priority is allowed and means medium.
func (in NotificationInput) Validate() error {
	var errs []string
	if !in.Type.Valid() {
		errs = append(errs, "type is invalid")
	}
	if in.Priority != "" && !in.Priority.Valid() {
		errs = append(errs, "priority is invalid")
	}
	if strings.TrimSpace(in.Title) == "" {
		errs = append(errs, "title is required")
	} else if utf8.RuneCountInString(in.Title) > MaxNotificationTitleLen {
		errs = append(errs, fmt.Sprintf("title must be at most %d characters", MaxNotificationTitleLen))
	}
	if strings.TrimSpace(in.Message) == "" {
		errs = append(errs, "message is required")
	} else if utf8.RuneCountInString(in.Message) > MaxNotificationMessageLen {
		errs = append(errs, fmt.Sprintf("message must be at most %d characters", MaxNotificationMessageLen))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(errs, "; "))
	}
	return nil
}

// Clipped shortens Title and Message to their limits, ending a cut text with an ellipsis.
// Used for notifications composed from stored data such as event titles.
func (in NotificationInput) Clipped() NotificationInput {
	in.Title = clip(in.Title, MaxNotificationTitleLen)
	in.Message = clip(in.Message, MaxNotificationMessageLen)
	return in
}

func clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}

// NewNotification addresses the input to a recipient, applying defaults.
func NewNotification(recipientID string, in NotificationInput, now time.Time) *Notification {
	n := &Notification{
		RecipientID: recipientID,
		Type:        in.Type,
		Title:       in.Title,
		Message:     in.Message,
		Data:        in.Data,
		Priority:    in.Priority,
		ExpiresAt:   now.Add(DefaultNotificationTTL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if n.Data == nil {
		n.Data = map[string]any{}
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	if in.ExpiresAt != nil {
		n.ExpiresAt = *in.ExpiresAt
	}
	return n
}

// NotificationFilter narrows a notification listing. Nil fields match everything.
type NotificationFilter struct {
	Type     *NotificationType
	IsRead   *bool
	Priority *NotificationPriority
}

// NotificationStats summarises a recipient's live notifications.
// swagger:model NotificationStats
type NotificationStats struct {
	Total  int                      `json:"total"`
	Unread int                      `json:"unread"`
	Read   int                      `json:"read"`
	ByType map[NotificationType]int `json:"by_type"`
}

// BulkResult reports a fan-out. A recipient counts as sent once its notification is stored.
// swagger:model BulkResult
type BulkResult struct {
	SentCount   int      `json:"sent_count"`
	FailedCount int      `json:"failed_count"`
	Failed      []string `json:"failed"`
}

// NotificationRepository stores notifications. Every read and update ignores rows with expires_at <= now.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id, recipientID string, now time.Time) (*Notification, error)
	List(ctx context.Context, recipientID string, filter NotificationFilter, page PaginationParams, now time.Time) ([]*Notification, int, error)
	CountUnread(ctx context.Context, recipientID string, now time.Time) (int, error)
	// MarkRead is idempotent: a second call keeps the first read_at.
	MarkRead(ctx context.Context, id, recipientID string, now time.Time) (*Notification, error)
	MarkAllRead(ctx context.Context, recipientID string, now time.Time) (int64, error)
	Delete(ctx context.Context, id, recipientID string, now time.Time) error
	DeleteRead(ctx context.Context, recipientID string, now time.Time) (int64, error)
	Stats(ctx context.Context, recipientID string, now time.Time) (*NotificationStats, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Pusher delivers a stored notification to the recipient's live connections. Best effort.
type Pusher interface {
	Push(ctx context.Context, recipientID string, n *Notification) error
}

// NotificationService is the notification fan-out and inbox.
type NotificationService interface {
	Notify(ctx context.Context, recipientID string, in NotificationInput) (*Notification, error)
	NotifyBulk(ctx context.Context, recipientIDs []string, in NotificationInput) (*BulkResult, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	List(ctx context.Context, userID string, filter NotificationFilter, page PaginationParams) ([]*Notification, int, error)
	Get(ctx context.Context, id, userID string) (*Notification, error)
	MarkRead(ctx context.Context, id, userID string) (*Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id, userID string) error
	DeleteRead(ctx context.Context, userID string) (int64, error)
	Stats(ctx context.Context, userID string) (*NotificationStats, error)
	PurgeExpired(ctx context.Context) (int64, error)
}
