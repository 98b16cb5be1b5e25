package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"eventsphere/internal/delivery/http/helpers"
	"eventsphere/internal/domain"
)

// NotificationRequest is the content of a notification sent through the API.
type NotificationRequest struct {
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Priority  string         `json:"priority"`
	Data      map[string]any `json:"data"`
	ExpiresAt *time.Time     `json:"expires_at"`
}

func (n NotificationRequest) input() domain.NotificationInput {
	return domain.NotificationInput{
		Type:      domain.NotificationType(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Data:      n.Data,
		Priority:  domain.NotificationPriority(n.Priority),
		ExpiresAt: n.ExpiresAt,
	}
}

// BulkNotificationRequest is the request body for POST /notifications/bulk.
type BulkNotificationRequest struct {
	RecipientIDs []string `json:"recipient_ids"`
	NotificationRequest
}

// Validate implements Validator. Content rules are checked by the service.
func (b BulkNotificationRequest) Validate() []string {
	if len(b.RecipientIDs) == 0 {
		return []string{"recipient_ids is required"}
	}
	return nil
}

// ListNotificationsResponse is the paginated response body for GET /notifications.
type ListNotificationsResponse struct {
	Items      []*domain.Notification `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// UnreadCountResponse is the response body for GET /notifications/unread-count.
type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

// AffectedResponse reports how many notifications a bulk update or delete touched.
type AffectedResponse struct {
	Affected int64 `json:"affected"`
}

// BulkSuccessResponse is the success envelope for POST /notifications/bulk.
type BulkSuccessResponse struct {
	Data  *domain.BulkResult `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

type NotificationController struct {
	Logger  *slog.Logger
	Service domain.NotificationService
}

func NewNotificationController(logger *slog.Logger, svc domain.NotificationService) *NotificationController {
	return &NotificationController{
		Logger:  logger,
		Service: svc,
	}
}

// List godoc
// @Summary List my notifications
// @Description Newest first. Expired notifications are never returned.
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param type query string false "Notification type"
// @Param is_read query bool false "Read state"
// @Param priority query string false "Priority"
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} helpers.APIResponse "data is {items, pagination}"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /notifications [get]
func (c *NotificationController) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var filter domain.NotificationFilter
	q := r.URL.Query()
	if s := q.Get("type"); s != "" {
		t := domain.NotificationType(s)
		if !t.Valid() {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid type")
			return
		}
		filter.Type = &t
	}
	if s := q.Get("priority"); s != "" {
		p := domain.NotificationPriority(s)
		if !p.Valid() {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid priority")
			return
		}
		filter.Priority = &p
	}
	isRead, ok := helpers.QueryBool(r, "is_read")
	if !ok {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid is_read")
		return
	}
	filter.IsRead = isRead

	params := helpers.ParsePagination(r, domain.InboxPageLimits)
	items, total, err := c.Service.List(r.Context(), actor.ID, filter, params)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "op", "list_notifications")
		return
	}
	if items == nil {
		items = []*domain.Notification{}
	}
	meta := helpers.NewPaginationMeta(params, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListNotificationsResponse{Items: items, Pagination: meta})
}

// Stats godoc
// @Summary Notification statistics
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data is {total, unread, read, by_type}"
// @Router /notifications/stats [get]
func (c *NotificationController) Stats(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	stats, err := c.Service.Stats(r.Context(), actor.ID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "op", "notification_stats")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}

// UnreadCount godoc
// @Summary Unread notification count
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data.unread_count"
// @Router /notifications/unread-count [get]
func (c *NotificationController) UnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	n, err := c.Service.UnreadCount(r.Context(), actor.ID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "op", "unread_count")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, UnreadCountResponse{UnreadCount: n})
}

// Get godoc
// @Summary Get one notification
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is the notification"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /notifications/{id} [get]
func (c *NotificationController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	n, err := c.Service.Get(r.Context(), id, actor.ID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "notification_id", id, "op", "get_notification")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, n)
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Description Idempotent: the first read time is kept.
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is the notification"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /notifications/{id}/read [patch]
func (c *NotificationController) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	n, err := c.Service.MarkRead(r.Context(), id, actor.ID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "notification_id", id, "op", "mark_read")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, n)
}

// MarkAllRead godoc
// @Summary Mark all my notifications as read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data.affected"
// @Router /notifications/read-all [patch]
func (c *NotificationController) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	n, err := c.Service.MarkAllRead(r.Context(), actor.ID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "op", "mark_all_read")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, AffectedResponse{Affected: n})
}

// Delete godoc
// @Summary Delete a notification
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data.status: deleted"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /notifications/{id} [delete]
func (c *NotificationController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if err := c.Service.Delete(r.Context(), id, actor.ID); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "notification_id", id, "op", "delete_notification")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteResponse{Status: "deleted"})
}

// DeleteRead godoc
// @Summary Delete all my read notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data.affected"
// @Router /notifications/read-all [delete]
func (c *NotificationController) DeleteRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	n, err := c.Service.DeleteRead(r.Context(), actor.ID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "op", "delete_read")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, AffectedResponse{Affected: n})
}

// SendTest godoc
// @Summary Send a notification to myself
// @Description Stores the notification and pushes it to the caller's live connections.
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body NotificationRequest true "Notification content"
// @Success 201 {object} helpers.APIResponse "data is the notification"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /notifications/test [post]
func (c *NotificationController) SendTest(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req NotificationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	n, err := c.Service.Notify(r.Context(), actor.ID, req.input())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "op", "notify_self")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, n)
}

// SendBulk godoc
// @Summary Send a notification to many users
// @Description Admin only. Each recipient is stored independently; failures are listed and never abort the batch.
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body BulkNotificationRequest true "Recipients and content"
// @Success 200 {object} controllers.BulkSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /notifications/bulk [post]
func (c *NotificationController) SendBulk(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req BulkNotificationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := c.Service.NotifyBulk(r.Context(), req.RecipientIDs, req.input())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "op", "notify_bulk")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}
