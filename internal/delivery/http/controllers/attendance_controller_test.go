package controllers

import (
	"net/http"
	"testing"

	"eventsphere/internal/delivery/http/helpers"
	"eventsphere/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceController_Mark(t *testing.T) {
	valid := `{"event_id":"` + eventID + `","participant_id":"` + userID + `","attended":true,"check_in_method":"qr"}`
	tests := []struct {
		name       string
		body       string
		fakeErr    error
		wantStatus int
		wantCode   string
	}{
		{name: "recorded", body: valid, wantStatus: http.StatusOK},
		{name: "attended missing", body: `{"event_id":"` + eventID + `","participant_id":"` + userID + `"}`, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "bad participant id", body: `{"event_id":"` + eventID + `","participant_id":"bob","attended":true}`, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "registration not approved", body: valid, fakeErr: domain.ErrNotApproved, wantStatus: http.StatusConflict, wantCode: helpers.ErrCodeNotApproved},
		{name: "not the organizer", body: valid, fakeErr: domain.ErrForbidden, wantStatus: http.StatusForbidden, wantCode: helpers.ErrCodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAttendanceService{attendance: &domain.Attendance{ID: "att-1", Attended: true, CheckInMethod: domain.CheckInQR}, err: tt.fakeErr}
			ctrl := NewAttendanceController(testLogger, fake)

			rr := do(ctrl.Mark, request{method: http.MethodPost, target: "/attendance", body: tt.body, actor: &organizerActor})

			require.Equal(t, tt.wantStatus, rr.Code)
			apiErr := decode(t, rr, nil)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			assert.True(t, fake.lastBool)
			assert.Equal(t, domain.CheckInQR, fake.lastMethod)
		})
	}
}

func TestAttendanceController_ListForEvent(t *testing.T) {
	ctrl := NewAttendanceController(testLogger, &fakeAttendanceService{})
	rr := do(ctrl.ListForEvent, request{method: http.MethodGet, target: "/attendance/event/" + eventID, actor: &organizerActor, pathValues: map[string]string{"eventID": eventID}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":[],"error":null}`, rr.Body.String())
}
