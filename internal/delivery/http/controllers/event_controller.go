package controllers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"eventsphere/internal/delivery/http/helpers"
	"eventsphere/internal/delivery/http/middleware"
	"eventsphere/internal/domain"
)

const dateLayout = "2006-01-02"

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	// Date is the calendar day, YYYY-MM-DD.
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Venue     string `json:"venue"`
	MaxSeats  int    `json:"max_seats"`
}

// Validate implements Validator. Field rules beyond the date format are checked by the service.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Title) == "" {
		errs = append(errs, "title is required")
	}
	if _, err := time.Parse(dateLayout, c.Date); err != nil {
		errs = append(errs, "date must be YYYY-MM-DD")
	}
	return errs
}

func (c CreateEventRequest) input() domain.CreateEventInput {
	date, _ := time.Parse(dateLayout, c.Date)
	return domain.CreateEventInput{
		Title:       c.Title,
		Description: c.Description,
		Category:    domain.EventCategory(c.Category),
		Date:        date,
		StartTime:   c.StartTime,
		EndTime:     c.EndTime,
		Venue:       c.Venue,
		MaxSeats:    c.MaxSeats,
	}
}

// EventSuccessResponse is the success envelope for endpoints returning one event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListEventsResponse is the paginated response body for GET /events.
type ListEventsResponse struct {
	Items      []*domain.Event        `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ReviewEventRequest is the request body for PATCH /events/{eventID}/review.
type ReviewEventRequest struct {
	Approve *bool `json:"approve"`
}

// Validate implements Validator.
func (r ReviewEventRequest) Validate() []string {
	if r.Approve == nil {
		return []string{"approve is required"}
	}
	return nil
}

// UpdateEventStatusRequest is the request body for PATCH /events/{eventID}/status.
type UpdateEventStatusRequest struct {
	Status string `json:"status"`
}

// Validate implements Validator.
func (r UpdateEventStatusRequest) Validate() []string {
	if !domain.EventStatus(r.Status).Valid() {
		return []string{"status is invalid"}
	}
	return nil
}

// UpdateEventRequest is the request body for PATCH /events/{eventID}. Omitted fields are kept.
type UpdateEventRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	// Date is the calendar day, YYYY-MM-DD.
	Date      *string `json:"date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Venue     *string `json:"venue"`
	MaxSeats  *int    `json:"max_seats"`
}

// Validate implements Validator.
func (u UpdateEventRequest) Validate() []string {
	var errs []string
	if u.Date != nil {
		if _, err := time.Parse(dateLayout, *u.Date); err != nil {
			errs = append(errs, "date must be YYYY-MM-DD")
		}
	}
	if u.Category != nil && !domain.EventCategory(*u.Category).Valid() {
		errs = append(errs, "category is invalid")
	}
	return errs
}

func (u UpdateEventRequest) input() domain.UpdateEventInput {
	in := domain.UpdateEventInput{
		Title:       u.Title,
		Description: u.Description,
		StartTime:   u.StartTime,
		EndTime:     u.EndTime,
		Venue:       u.Venue,
		MaxSeats:    u.MaxSeats,
	}
	if u.Category != nil {
		c := domain.EventCategory(*u.Category)
		in.Category = &c
	}
	if u.Date != nil {
		d, _ := time.Parse(dateLayout, *u.Date)
		in.Date = &d
	}
	return in
}

// EventMetricsSuccessResponse is the success envelope for GET /events/{eventID}/metrics.
type EventMetricsSuccessResponse struct {
	Data  *domain.EventMetrics `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create an event
// @Description Organizers and admins create events in pending status. Every user is notified of the new event.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 422 {object} helpers.APIResponse "error.code: invalid_event_schedule"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.CreateEvent(r.Context(), actor, req.input())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "op", "create_event")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListEvents godoc
// @Summary List events
// @Description Anonymous callers and participants only see approved events. Organizers and admins may filter by status.
// @Tags events
// @Produce json
// @Param status query string false "Event status"
// @Param category query string false "Event category"
// @Param organizer_id query string false "Organizer ID"
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 12, max 48)"
// @Success 200 {object} helpers.APIResponse "data is {items, pagination}"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.EventFilter{
		Status:      domain.EventStatus(q.Get("status")),
		Category:    domain.EventCategory(q.Get("category")),
		OrganizerID: q.Get("organizer_id"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid status")
		return
	}
	if filter.Category != "" && !filter.Category.Valid() {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid category")
		return
	}
	var actor *domain.Actor
	if a, ok := middleware.ActorFromContext(r.Context()); ok {
		actor = &a
	}
	params := helpers.ParsePagination(r, domain.EventPageLimits)
	events, total, err := c.Service.ListEvents(r.Context(), actor, filter, params)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "op", "list_events")
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	meta := helpers.NewPaginationMeta(params, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListEventsResponse{Items: events, Pagination: meta})
}

// GetEvent godoc
// @Summary Get an event
// @Description Returns the event and counts the view.
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	event, err := c.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "event_id", eventID, "op", "get_event")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ReviewEvent godoc
// @Summary Approve or reject a pending event
// @Description Admin only. The organizer is emailed and notified.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body ReviewEventRequest true "Decision"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_transition"
// @Router /events/{eventID}/review [patch]
func (c *EventController) ReviewEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req ReviewEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.ReviewEvent(r.Context(), eventID, actor, *req.Approve)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "event_id", eventID, "op", "review_event")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// UpdateEventStatus godoc
// @Summary Change an event's status
// @Description Owner organizer or admin. Organizers may only move an event to ongoing, completed or cancelled.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventStatusRequest true "New status"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/status [patch]
func (c *EventController) UpdateEventStatus(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req UpdateEventStatusRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.UpdateEventStatus(r.Context(), eventID, actor, domain.EventStatus(req.Status))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "event_id", eventID, "op", "update_event_status")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Owner organizer or admin. Registrations, attendance and certificates of the event are removed with it.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data.status: deleted"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if err := c.Service.DeleteEvent(r.Context(), eventID, actor); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "event_id", eventID, "op", "delete_event")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteResponse{Status: "deleted"})
}

// UpdateEvent godoc
// @Summary Edit an event
// @Description Owner organizer or admin. max_seats may not drop below the approved registrations. Approved participants are notified and emailed when the date, time or venue changes.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to change"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: capacity_exceeded or invalid_transition"
// @Failure 422 {object} helpers.APIResponse "error.code: invalid_event_schedule"
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), eventID, actor, req.input())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "event_id", eventID, "op", "update_event")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// Metrics godoc
// @Summary Event metrics
// @Description Owner organizer or admin. Registrations by status, free seats, views and attendance.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventMetricsSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/metrics [get]
func (c *EventController) Metrics(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	m, err := c.Service.GetEventMetrics(r.Context(), eventID, actor)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "event_id", eventID, "op", "event_metrics")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, m)
}

// Calendar godoc
// @Summary Download the event calendar file
// @Description Public. Returns an iCalendar file for the event.
// @Tags events
// @Produce text/calendar
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {string} string "calendar file"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/calendar [get]
func (c *EventController) Calendar(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	cal, err := c.Service.EventCalendar(r.Context(), eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "event_id", eventID, "op", "event_calendar")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cal.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(cal.Content))
}
