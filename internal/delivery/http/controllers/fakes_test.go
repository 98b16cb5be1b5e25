package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventsphere/internal/delivery/http/helpers"
	"eventsphere/internal/delivery/http/middleware"
	"eventsphere/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

var errDB = errors.New("db error")

const (
	eventID  = "0b6f1d52-1c1a-4d5e-9f0a-6a7b8c9d0e1f"
	regID    = "3c2d1e0f-4a5b-4c6d-8e7f-9a0b1c2d3e4f"
	userID   = "7e8f9a0b-1c2d-4e3f-8a5b-6c7d8e9f0a1b"
	notifID  = "9a8b7c6d-5e4f-4a3b-9c1d-0e1f2a3b4c5d"
	orgID    = "1f2e3d4c-5b6a-4978-8a69-5b4c3d2e1f00"
	badID    = "not-a-uuid"
	jsonType = "application/json"
)

var (
	participantActor = domain.Actor{ID: userID, Role: domain.RoleParticipant}
	organizerActor   = domain.Actor{ID: orgID, Role: domain.RoleOrganizer}
)

type request struct {
	method     string
	target     string
	body       string
	actor      *domain.Actor
	pathValues map[string]string
}

func do(handler http.HandlerFunc, req request) *httptest.ResponseRecorder {
	var body io.Reader
	if req.body != "" {
		body = bytes.NewBufferString(req.body)
	}
	r := httptest.NewRequest(req.method, "http://test"+req.target, body)
	if req.body != "" {
		r.Header.Set("Content-Type", jsonType)
	}
	for k, v := range req.pathValues {
		r.SetPathValue(k, v)
	}
	if req.actor != nil {
		r = r.WithContext(middleware.SetActor(r.Context(), *req.actor))
	}
	rr := httptest.NewRecorder()
	handler(rr, r)
	return rr
}

// decode reads the envelope and unmarshals data into dest when dest is non-nil.
func decode(t *testing.T, rr *httptest.ResponseRecorder, dest any) *helpers.APIError {
	t.Helper()
	var envelope struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "response must be valid JSON envelope")
	if dest != nil && envelope.Error == nil {
		require.NoError(t, json.Unmarshal(envelope.Data, dest))
	}
	return envelope.Error
}

// fakeRegistrationService implements domain.RegistrationService for handler tests.
type fakeRegistrationService struct {
	reg     *domain.Registration
	counts  domain.RegistrationCounts
	list    []*domain.RegistrationWithEvent
	regs    []*domain.Registration
	seats   *domain.SeatAvailability
	ticket  *domain.Ticket
	err     error
	lastIDs []string
	actor   domain.Actor
}

func (f *fakeRegistrationService) RegisterForEvent(_ context.Context, eventID, participantID string) (*domain.Registration, domain.RegistrationCounts, error) {
	f.lastIDs = []string{eventID, participantID}
	return f.reg, f.counts, f.err
}

func (f *fakeRegistrationService) ApproveRegistration(_ context.Context, id string, actor domain.Actor) (*domain.Registration, error) {
	f.lastIDs, f.actor = []string{id}, actor
	return f.reg, f.err
}

func (f *fakeRegistrationService) RejectRegistration(_ context.Context, id string, actor domain.Actor) (*domain.Registration, error) {
	f.lastIDs, f.actor = []string{id}, actor
	return f.reg, f.err
}

func (f *fakeRegistrationService) CancelRegistration(_ context.Context, id, participantID string) (*domain.Registration, domain.RegistrationCounts, error) {
	f.lastIDs = []string{id, participantID}
	return f.reg, f.counts, f.err
}

func (f *fakeRegistrationService) ListMyRegistrations(_ context.Context, participantID string) ([]*domain.RegistrationWithEvent, error) {
	f.lastIDs = []string{participantID}
	return f.list, f.err
}

func (f *fakeRegistrationService) ListEventRegistrations(_ context.Context, eventID string, actor domain.Actor) ([]*domain.Registration, error) {
	f.lastIDs, f.actor = []string{eventID}, actor
	return f.regs, f.err
}

func (f *fakeRegistrationService) GetAvailableSeats(_ context.Context, eventID string) (*domain.SeatAvailability, error) {
	f.lastIDs = []string{eventID}
	return f.seats, f.err
}

func (f *fakeRegistrationService) DownloadTicket(_ context.Context, id, participantID string) (*domain.Ticket, error) {
	f.lastIDs = []string{id, participantID}
	return f.ticket, f.err
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	event      *domain.Event
	events     []*domain.Event
	total      int
	err        error
	lastInput  domain.CreateEventInput
	lastActor  *domain.Actor
	lastFilter domain.EventFilter
	lastPage   domain.PaginationParams
	lastID     string
	lastBool   bool
	lastStatus domain.EventStatus
	lastUpdate domain.UpdateEventInput
	metrics    *domain.EventMetrics
	calendar   *domain.Ticket
}

func (f *fakeEventService) CreateEvent(_ context.Context, actor domain.Actor, in domain.CreateEventInput) (*domain.Event, error) {
	f.lastActor, f.lastInput = &actor, in
	return f.event, f.err
}

func (f *fakeEventService) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	f.lastID = id
	return f.event, f.err
}

func (f *fakeEventService) ListEvents(_ context.Context, actor *domain.Actor, filter domain.EventFilter, page domain.PaginationParams) ([]*domain.Event, int, error) {
	f.lastActor, f.lastFilter, f.lastPage = actor, filter, page
	return f.events, f.total, f.err
}

func (f *fakeEventService) ReviewEvent(_ context.Context, id string, actor domain.Actor, approve bool) (*domain.Event, error) {
	f.lastID, f.lastActor, f.lastBool = id, &actor, approve
	return f.event, f.err
}

func (f *fakeEventService) UpdateEventStatus(_ context.Context, id string, actor domain.Actor, status domain.EventStatus) (*domain.Event, error) {
	f.lastID, f.lastActor, f.lastStatus = id, &actor, status
	return f.event, f.err
}

func (f *fakeEventService) DeleteEvent(_ context.Context, id string, actor domain.Actor) error {
	f.lastID, f.lastActor = id, &actor
	return f.err
}

func (f *fakeEventService) UpdateEvent(_ context.Context, id string, actor domain.Actor, in domain.UpdateEventInput) (*domain.Event, error) {
	f.lastID, f.lastActor, f.lastUpdate = id, &actor, in
	return f.event, f.err
}

func (f *fakeEventService) GetEventMetrics(_ context.Context, id string, actor domain.Actor) (*domain.EventMetrics, error) {
	f.lastID, f.lastActor = id, &actor
	return f.metrics, f.err
}

func (f *fakeEventService) EventCalendar(_ context.Context, id string) (*domain.Ticket, error) {
	f.lastID = id
	return f.calendar, f.err
}

// fakeNotificationService implements domain.NotificationService for handler tests.
type fakeNotificationService struct {
	notification *domain.Notification
	items        []*domain.Notification
	total        int
	count        int
	affected     int64
	stats        *domain.NotificationStats
	bulk         *domain.BulkResult
	err          error
	lastUser     string
	lastID       string
	lastFilter   domain.NotificationFilter
	lastInput    domain.NotificationInput
	lastIDs      []string
}

func (f *fakeNotificationService) Notify(_ context.Context, recipientID string, in domain.NotificationInput) (*domain.Notification, error) {
	f.lastUser, f.lastInput = recipientID, in
	return f.notification, f.err
}

func (f *fakeNotificationService) NotifyBulk(_ context.Context, ids []string, in domain.NotificationInput) (*domain.BulkResult, error) {
	f.lastIDs, f.lastInput = ids, in
	return f.bulk, f.err
}

func (f *fakeNotificationService) UnreadCount(_ context.Context, userID string) (int, error) {
	f.lastUser = userID
	return f.count, f.err
}

func (f *fakeNotificationService) List(_ context.Context, userID string, filter domain.NotificationFilter, _ domain.PaginationParams) ([]*domain.Notification, int, error) {
	f.lastUser, f.lastFilter = userID, filter
	return f.items, f.total, f.err
}

func (f *fakeNotificationService) Get(_ context.Context, id, userID string) (*domain.Notification, error) {
	f.lastID, f.lastUser = id, userID
	return f.notification, f.err
}

func (f *fakeNotificationService) MarkRead(_ context.Context, id, userID string) (*domain.Notification, error) {
	f.lastID, f.lastUser = id, userID
	return f.notification, f.err
}

func (f *fakeNotificationService) MarkAllRead(_ context.Context, userID string) (int64, error) {
	f.lastUser = userID
	return f.affected, f.err
}

func (f *fakeNotificationService) Delete(_ context.Context, id, userID string) error {
	f.lastID, f.lastUser = id, userID
	return f.err
}

func (f *fakeNotificationService) DeleteRead(_ context.Context, userID string) (int64, error) {
	f.lastUser = userID
	return f.affected, f.err
}

func (f *fakeNotificationService) Stats(_ context.Context, userID string) (*domain.NotificationStats, error) {
	f.lastUser = userID
	return f.stats, f.err
}

func (f *fakeNotificationService) PurgeExpired(context.Context) (int64, error) {
	return f.affected, f.err
}

// fakeAttendanceService implements domain.AttendanceService for handler tests.
type fakeAttendanceService struct {
	attendance *domain.Attendance
	list       []*domain.Attendance
	err        error
	lastMethod domain.CheckInMethod
	lastBool   bool
}

func (f *fakeAttendanceService) MarkAttendance(_ context.Context, _ domain.Actor, _, _ string, attended bool, method domain.CheckInMethod) (*domain.Attendance, error) {
	f.lastBool, f.lastMethod = attended, method
	return f.attendance, f.err
}

func (f *fakeAttendanceService) ListEventAttendance(context.Context, string, domain.Actor) ([]*domain.Attendance, error) {
	return f.list, f.err
}

// fakeCertificateService implements domain.CertificateService for handler tests.
type fakeCertificateService struct {
	cert     *domain.Certificate
	created  bool
	certs    []*domain.Certificate
	events   []*domain.Event
	err      error
	lastURL  string
	lastPaid bool
}

func (f *fakeCertificateService) RequestCertificate(context.Context, string, string) (*domain.Certificate, bool, error) {
	return f.cert, f.created, f.err
}

func (f *fakeCertificateService) IssueCertificate(_ context.Context, _ domain.Actor, _, _, url string, feePaid bool) (*domain.Certificate, error) {
	f.lastURL, f.lastPaid = url, feePaid
	return f.cert, f.err
}

func (f *fakeCertificateService) ListMyCertificates(context.Context, string) ([]*domain.Certificate, error) {
	return f.certs, f.err
}

func (f *fakeCertificateService) ListAttendedEvents(context.Context, string) ([]*domain.Event, error) {
	return f.events, f.err
}
