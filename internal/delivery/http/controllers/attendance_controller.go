package controllers

import (
	"log/slog"
	"net/http"

	"eventsphere/internal/delivery/http/helpers"
	"eventsphere/internal/domain"
)

// MarkAttendanceRequest is the request body for POST /attendance.
type MarkAttendanceRequest struct {
	EventID       string `json:"event_id"`
	ParticipantID string `json:"participant_id"`
	Attended      *bool  `json:"attended"`
	// CheckInMethod is manual or qr; empty means manual.
	CheckInMethod string `json:"check_in_method"`
}

// Validate implements Validator.
func (m MarkAttendanceRequest) Validate() []string {
	var errs []string
	if !helpers.IsUUID(m.EventID) {
		errs = append(errs, "event_id must be a UUID")
	}
	if !helpers.IsUUID(m.ParticipantID) {
		errs = append(errs, "participant_id must be a UUID")
	}
	if m.Attended == nil {
		errs = append(errs, "attended is required")
	}
	return errs
}

type AttendanceController struct {
	Logger  *slog.Logger
	Service domain.AttendanceService
}

func NewAttendanceController(logger *slog.Logger, svc domain.AttendanceService) *AttendanceController {
	return &AttendanceController{
		Logger:  logger,
		Service: svc,
	}
}

// Mark godoc
// @Summary Record attendance
// @Description Owner organizer or admin. The participant must hold an approved registration. Marking again overwrites.
// @Tags attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body MarkAttendanceRequest true "Attendance"
// @Success 200 {object} helpers.APIResponse "data is the attendance record"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: not_approved"
// @Router /attendance [post]
func (c *AttendanceController) Mark(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req MarkAttendanceRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	a, err := c.Service.MarkAttendance(r.Context(), actor, req.EventID, req.ParticipantID, *req.Attended, domain.CheckInMethod(req.CheckInMethod))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "event_id", req.EventID, "participant_id", req.ParticipantID, "op", "mark_attendance")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, a)
}

// ListForEvent godoc
// @Summary List attendance of an event
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is an array of attendance records"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /attendance/event/{eventID} [get]
func (c *AttendanceController) ListForEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	list, err := c.Service.ListEventAttendance(r.Context(), eventID, actor)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "event_id", eventID, "op", "list_attendance")
		return
	}
	if list == nil {
		list = []*domain.Attendance{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}
