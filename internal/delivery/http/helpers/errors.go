package helpers

import (
	"errors"
	"log/slog"
	"net/http"

	"eventsphere/internal/domain"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// Order matters: the first sentinel matched by errors.Is wins.
var errorMappings = []errorMapping{
	{domain.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{domain.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
	{domain.ErrDuplicateRegistration, http.StatusConflict, ErrCodeDuplicateRegistration},
	{domain.ErrEventNotOpen, http.StatusConflict, ErrCodeEventNotOpen},
	{domain.ErrCapacityExceeded, http.StatusConflict, ErrCodeCapacityExceeded},
	{domain.ErrInvalidTransition, http.StatusConflict, ErrCodeInvalidTransition},
	{domain.ErrInvalidEventSchedule, http.StatusUnprocessableEntity, ErrCodeInvalidEventSchedule},
	{domain.ErrNotApproved, http.StatusConflict, ErrCodeNotApproved},
	{domain.ErrNotAttended, http.StatusForbidden, ErrCodeNotAttended},
	{domain.ErrCertificateIssued, http.StatusConflict, ErrCodeCertificateIssued},
	{domain.ErrAlreadyExists, http.StatusConflict, ErrCodeConflict},
}

// StatusForError returns the HTTP status and error code for err. Unknown errors map to 500.
func StatusForError(err error) (int, string) {
	if errors.Is(err, domain.ErrInvalidInput) {
		return http.StatusBadRequest, ErrCodeBadRequest
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}

// WriteServiceError maps a service error onto the response. Internal errors are logged with
// the request and attrs, and the client only sees an opaque message.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, attrs ...any) {
	status, code := StatusForError(err)
	switch {
	case status == http.StatusInternalServerError:
		args := append([]any{"path", r.URL.Path, "method", r.Method, "err", err}, attrs...)
		logger.ErrorContext(r.Context(), "request failed", args...)
		WriteJSONError(w, status, code, "internal server error")
	case code == ErrCodeBadRequest:
		WriteJSONError(w, status, code, err.Error())
	default:
		WriteJSONError(w, status, code, sentinelMessage(err))
	}
}

// sentinelMessage strips operation prefixes added by %w wrapping.
func sentinelMessage(err error) string {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.err.Error()
		}
	}
	return err.Error()
}
