package controllers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"eventsphere/internal/delivery/http/helpers"
	"eventsphere/internal/domain"
)

// RegisterRequest is the request body for POST /registrations.
type RegisterRequest struct {
	EventID string `json:"event_id"`
}

// Validate implements Validator.
func (r RegisterRequest) Validate() []string {
	var errs []string
	if r.EventID == "" {
		errs = append(errs, "event_id is required")
	} else if !helpers.IsUUID(r.EventID) {
		errs = append(errs, "event_id must be a UUID")
	}
	return errs
}

// RegistrationResponse is a registration with the event's live counters.
type RegistrationResponse struct {
	Registration *domain.Registration      `json:"registration"`
	Counts       domain.RegistrationCounts `json:"counts"`
}

// RegistrationSuccessResponse is the success envelope for register and cancel.
type RegistrationSuccessResponse struct {
	Data  RegistrationResponse `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

type RegistrationController struct {
	Logger  *slog.Logger
	Service domain.RegistrationService
}

func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService) *RegistrationController {
	return &RegistrationController{
		Logger:  logger,
		Service: svc,
	}
}

// Register godoc
// @Summary Register for an event
// @Description Creates a pending registration for the authenticated user. The organizer is notified.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body RegisterRequest true "Event to register for"
// @Success 201 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: duplicate_registration, event_not_open"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations [post]
func (c *RegistrationController) Register(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req RegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	reg, counts, err := c.Service.RegisterForEvent(r.Context(), req.EventID, actor.ID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "event_id", req.EventID, "op", "register")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, RegistrationResponse{Registration: reg, Counts: counts})
}

// ListMine godoc
// @Summary List my registrations
// @Description Returns the caller's registrations with their events. Registrations of deleted events are omitted.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data is an array of {registration, event}"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/me [get]
func (c *RegistrationController) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	list, err := c.Service.ListMyRegistrations(r.Context(), actor.ID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "op", "list_my_registrations")
		return
	}
	if list == nil {
		list = []*domain.RegistrationWithEvent{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}

// ListForEvent godoc
// @Summary List registrations of an event
// @Description Owner organizer or admin only.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is an array of registrations"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/registrations [get]
func (c *RegistrationController) ListForEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	list, err := c.Service.ListEventRegistrations(r.Context(), eventID, actor)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "event_id", eventID, "op", "list_event_registrations")
		return
	}
	if list == nil {
		list = []*domain.Registration{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}

// Approve godoc
// @Summary Approve a registration
// @Description Approves a pending registration if the event still has a free seat and attaches the calendar ticket.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is the approved registration"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: capacity_exceeded, invalid_transition"
// @Failure 422 {object} helpers.APIResponse "error.code: invalid_event_schedule"
// @Router /registrations/{id}/approve [patch]
func (c *RegistrationController) Approve(w http.ResponseWriter, r *http.Request) {
	c.review(w, r, "approve", c.Service.ApproveRegistration)
}

// Reject godoc
// @Summary Reject a registration
// @Description Rejects a pending registration.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is the rejected registration"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_transition"
// @Router /registrations/{id}/reject [patch]
func (c *RegistrationController) Reject(w http.ResponseWriter, r *http.Request) {
	c.review(w, r, "reject", c.Service.RejectRegistration)
}

func (c *RegistrationController) review(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, string, domain.Actor) (*domain.Registration, error)) {
	regID, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	reg, err := fn(r.Context(), regID, actor)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "registration_id", regID, "op", op)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// Cancel godoc
// @Summary Cancel my registration
// @Description Cancels a pending or approved registration owned by the caller. A freed seat is immediately available.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_transition"
// @Router /registrations/{id}/cancel [post]
func (c *RegistrationController) Cancel(w http.ResponseWriter, r *http.Request) {
	regID, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	reg, counts, err := c.Service.CancelRegistration(r.Context(), regID, actor.ID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "registration_id", regID, "op", "cancel")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RegistrationResponse{Registration: reg, Counts: counts})
}

// DownloadTicket godoc
// @Summary Download the calendar ticket
// @Description Returns the iCalendar file of an approved registration owned by the caller.
// @Tags registrations
// @Produce text/calendar
// @Security BearerAuth
// @Param id path string true "Registration ID (UUID)"
// @Success 200 {string} string "calendar file"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: not_approved"
// @Router /registrations/{id}/ticket [get]
func (c *RegistrationController) DownloadTicket(w http.ResponseWriter, r *http.Request) {
	regID, ok := helpers.PathID(w, r, "id")
	if !ok {
		return
	}
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	ticket, err := c.Service.DownloadTicket(r.Context(), regID, actor.ID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "registration_id", regID, "op", "download_ticket")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ticket.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ticket.Content))
}

// SeatsSuccessResponse is the success envelope for GET /events/{eventID}/seats.
type SeatsSuccessResponse struct {
	Data  *domain.SeatAvailability `json:"data"`
	Error *helpers.APIError        `json:"error"`
}

// AvailableSeats godoc
// @Summary Available seats of an event
// @Description Computed from the approved registrations at request time.
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.SeatsSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/seats [get]
func (c *RegistrationController) AvailableSeats(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	seats, err := c.Service.GetAvailableSeats(r.Context(), eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "event_id", eventID, "op", "available_seats")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, seats)
}
