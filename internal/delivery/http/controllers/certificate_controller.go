package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"eventsphere/internal/delivery/http/helpers"
	"eventsphere/internal/domain"
)

// RequestCertificateRequest is the request body for POST /certificates/request.
type RequestCertificateRequest struct {
	EventID string `json:"event_id"`
}

// Validate implements Validator.
func (r RequestCertificateRequest) Validate() []string {
	if !helpers.IsUUID(r.EventID) {
		return []string{"event_id must be a UUID"}
	}
	return nil
}

// IssueCertificateRequest is the request body for POST /certificates.
type IssueCertificateRequest struct {
	EventID        string `json:"event_id"`
	ParticipantID  string `json:"participant_id"`
	CertificateURL string `json:"certificate_url"`
	FeePaid        bool   `json:"fee_paid"`
}

// Validate implements Validator.
func (r IssueCertificateRequest) Validate() []string {
	var errs []string
	if !helpers.IsUUID(r.EventID) {
		errs = append(errs, "event_id must be a UUID")
	}
	if !helpers.IsUUID(r.ParticipantID) {
		errs = append(errs, "participant_id must be a UUID")
	}
	if strings.TrimSpace(r.CertificateURL) == "" {
		errs = append(errs, "certificate_url is required")
	}
	return errs
}

// CertificateSuccessResponse is the success envelope for endpoints returning one certificate.
type CertificateSuccessResponse struct {
	Data  *domain.Certificate `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

type CertificateController struct {
	Logger  *slog.Logger
	Service domain.CertificateService
}

func NewCertificateController(logger *slog.Logger, svc domain.CertificateService) *CertificateController {
	return &CertificateController{
		Logger:  logger,
		Service: svc,
	}
}

// Request godoc
// @Summary Request a participation certificate
// @Description Requires recorded attendance. Returns 201 for a new request and 200 when one already exists.
// @Tags certificates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body RequestCertificateRequest true "Event"
// @Success 200 {object} controllers.CertificateSuccessResponse "existing request"
// @Success 201 {object} controllers.CertificateSuccessResponse "new request"
// @Failure 403 {object} helpers.APIResponse "error.code: not_attended"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: certificate_issued"
// @Router /certificates/request [post]
func (c *CertificateController) Request(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req RequestCertificateRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	cert, created, err := c.Service.RequestCertificate(r.Context(), req.EventID, actor.ID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "event_id", req.EventID, "op", "request_certificate")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	helpers.WriteJSONSuccess(w, status, cert)
}

// Issue godoc
// @Summary Issue a certificate
// @Description Owner organizer or admin. Creates or replaces the certificate as issued and notifies the participant.
// @Tags certificates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body IssueCertificateRequest true "Certificate"
// @Success 200 {object} controllers.CertificateSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden, not_attended"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /certificates [post]
func (c *CertificateController) Issue(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req IssueCertificateRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	cert, err := c.Service.IssueCertificate(r.Context(), actor, req.EventID, req.ParticipantID, req.CertificateURL, req.FeePaid)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "event_id", req.EventID, "participant_id", req.ParticipantID, "op", "issue_certificate")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, cert)
}

// ListMine godoc
// @Summary List my certificates
// @Tags certificates
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data is an array of certificates"
// @Router /certificates/me [get]
func (c *CertificateController) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	certs, err := c.Service.ListMyCertificates(r.Context(), actor.ID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "op", "list_certificates")
		return
	}
	if certs == nil {
		certs = []*domain.Certificate{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, certs)
}

// AttendedEvents godoc
// @Summary List events I attended
// @Description Events eligible for a certificate request.
// @Tags certificates
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data is an array of events"
// @Router /certificates/attended-events [get]
func (c *CertificateController) AttendedEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	events, err := c.Service.ListAttendedEvents(r.Context(), actor.ID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err, "actor_id", actor.ID, "op", "list_attended_events")
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}
