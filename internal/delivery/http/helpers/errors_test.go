package helpers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventsphere/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{domain.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
		{domain.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
		{domain.ErrDuplicateRegistration, http.StatusConflict, ErrCodeDuplicateRegistration},
		{domain.ErrEventNotOpen, http.StatusConflict, ErrCodeEventNotOpen},
		{fmt.Errorf("approve registration: %w", domain.ErrCapacityExceeded), http.StatusConflict, ErrCodeCapacityExceeded},
		{domain.ErrInvalidTransition, http.StatusConflict, ErrCodeInvalidTransition},
		{fmt.Errorf("build ticket: %w", domain.ErrInvalidEventSchedule), http.StatusUnprocessableEntity, ErrCodeInvalidEventSchedule},
		{domain.ErrNotApproved, http.StatusConflict, ErrCodeNotApproved},
		{domain.ErrNotAttended, http.StatusForbidden, ErrCodeNotAttended},
		{domain.ErrCertificateIssued, http.StatusConflict, ErrCodeCertificateIssued},
		{fmt.Errorf("%w: title is required", domain.ErrInvalidInput), http.StatusBadRequest, ErrCodeBadRequest},
		{errors.New("connection reset"), http.StatusInternalServerError, ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			status, code := StatusForError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) *APIError {
	t.Helper()
	var envelope APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	require.Nil(t, envelope.Data)
	require.NotNil(t, envelope.Error)
	return envelope.Error
}

func TestWriteServiceError(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	req := httptest.NewRequest(http.MethodPatch, "/registrations/r1/approve", nil)

	t.Run("known error hides the operation prefix", func(t *testing.T) {
		rr := httptest.NewRecorder()
		WriteServiceError(rr, req, logger, fmt.Errorf("approve registration: %w", domain.ErrCapacityExceeded))
		require.Equal(t, http.StatusConflict, rr.Code)
		apiErr := decodeError(t, rr)
		assert.Equal(t, ErrCodeCapacityExceeded, apiErr.Code)
		assert.Equal(t, domain.ErrCapacityExceeded.Error(), apiErr.Message)
		assert.Empty(t, logs.String())
	})

	t.Run("bad request keeps the detail", func(t *testing.T) {
		rr := httptest.NewRecorder()
		WriteServiceError(rr, req, logger, fmt.Errorf("%w: title is required", domain.ErrInvalidInput))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decodeError(t, rr).Message, "title is required")
	})

	t.Run("internal error is opaque and logged", func(t *testing.T) {
		rr := httptest.NewRecorder()
		WriteServiceError(rr, req, logger, errors.New("pq: relation does not exist"), "registration_id", "r1")
		require.Equal(t, http.StatusInternalServerError, rr.Code)
		apiErr := decodeError(t, rr)
		assert.Equal(t, ErrCodeInternalError, apiErr.Code)
		assert.NotContains(t, apiErr.Message, "pq:")
		assert.Contains(t, logs.String(), "registration_id=r1")
		assert.Contains(t, logs.String(), "pq: relation does not exist")
	})
}

func TestPathID(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		wantOK bool
	}{
		{"valid", "6f1c2a2e-8d3b-4b8e-9a57-0e2f3c4d5e6f", true},
		{"uppercase is normalised", "6F1C2A2E-8D3B-4B8E-9A57-0E2F3C4D5E6F", true},
		{"missing", "", false},
		{"not a uuid", "ev-1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/events/x", nil)
			req.SetPathValue("eventID", tt.value)
			rr := httptest.NewRecorder()

			id, ok := PathID(rr, req, "eventID")
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, "6f1c2a2e-8d3b-4b8e-9a57-0e2f3c4d5e6f", id)
				return
			}
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestQueryBool(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/notifications?is_read=true&bad=maybe", nil)

	v, ok := QueryBool(req, "is_read")
	require.True(t, ok)
	require.NotNil(t, v)
	assert.True(t, *v)

	v, ok = QueryBool(req, "missing")
	assert.True(t, ok)
	assert.Nil(t, v)

	_, ok = QueryBool(req, "bad")
	assert.False(t, ok)
}

func TestDecodeAndValidate_UnknownField(t *testing.T) {
	var dest struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewBufferString(`{"name":"x","extra":1}`))
	rr := httptest.NewRecorder()

	require.False(t, DecodeAndValidate(rr, req, &dest))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, ErrCodeBadRequest, decodeError(t, rr).Code)
}
