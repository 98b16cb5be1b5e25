package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"eventsphere/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

var errBoom = errors.New("boom")

var fixedNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// fakeEventRepo is an in-memory EventRepository for tests.
type fakeEventRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.Event
	nextID int
	err    error // if set, Create returns this error
	// approved reports approved registrations for Update's seat check; nil means none.
	approved func(eventID string) int
}

func newFakeEventRepo(events ...*domain.Event) *fakeEventRepo {
	f := &fakeEventRepo{byID: make(map[string]*domain.Event), nextID: 1}
	for _, e := range events {
		f.byID[e.ID] = e
	}
	return f
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	e.ID = fmt.Sprintf("ev-%d", f.nextID)
	f.nextID++
	f.byID[e.ID] = e
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.byID[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) List(ctx context.Context, filter domain.EventFilter, page domain.PaginationParams) ([]*domain.Event, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Event, 0)
	for _, e := range f.byID {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if filter.OrganizerID != "" && e.OrganizerID != filter.OrganizerID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (f *fakeEventRepo) UpdateStatus(ctx context.Context, id string, status domain.EventStatus, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = status
	e.UpdatedAt = updatedAt
	return nil
}

func (f *fakeEventRepo) Update(ctx context.Context, e *domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[e.ID]; !ok {
		return domain.ErrNotFound
	}
	if f.approved != nil && e.MaxSeats < f.approved(e.ID) {
		return domain.ErrCapacityExceeded
	}
	cp := *e
	f.byID[e.ID] = &cp
	return nil
}

func (f *fakeEventRepo) IncrementViews(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.byID[id]; ok {
		e.Views++
	}
	return nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeEventRepo) status(id string) domain.EventStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id].Status
}

// fakeRegistrationRepo is an in-memory RegistrationRepository. The mutex plays the part of the
// event row lock, so ApproveWithinCapacity checks and writes as one step.
type fakeRegistrationRepo struct {
	mu     sync.Mutex
	events *fakeEventRepo
	byID   map[string]*domain.Registration
	nextID int
}

func newFakeRegistrationRepo(events *fakeEventRepo, regs ...*domain.Registration) *fakeRegistrationRepo {
	f := &fakeRegistrationRepo{events: events, byID: make(map[string]*domain.Registration), nextID: 1}
	for _, r := range regs {
		f.byID[r.ID] = r
	}
	return f
}

func (f *fakeRegistrationRepo) Create(ctx context.Context, reg *domain.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if r.EventID == reg.EventID && r.ParticipantID == reg.ParticipantID {
			return domain.ErrDuplicateRegistration
		}
	}
	reg.ID = fmt.Sprintf("reg-%d", f.nextID)
	f.nextID++
	cp := *reg
	f.byID[reg.ID] = &cp
	return nil
}

func (f *fakeRegistrationRepo) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.byID[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRegistrationRepo) GetByEventAndParticipant(ctx context.Context, eventID, participantID string) (*domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if r.EventID == eventID && r.ParticipantID == participantID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRegistrationRepo) filter(keep func(*domain.Registration) bool) []*domain.Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Registration, 0)
	for _, r := range f.byID {
		if keep(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeRegistrationRepo) ListByParticipant(ctx context.Context, participantID string) ([]*domain.Registration, error) {
	return f.filter(func(r *domain.Registration) bool { return r.ParticipantID == participantID }), nil
}

func (f *fakeRegistrationRepo) ListByEvent(ctx context.Context, eventID string) ([]*domain.Registration, error) {
	return f.filter(func(r *domain.Registration) bool { return r.EventID == eventID }), nil
}

func (f *fakeRegistrationRepo) countLocked(eventID string, status domain.RegistrationStatus) int {
	n := 0
	for _, r := range f.byID {
		if r.EventID == eventID && r.Status == status {
			n++
		}
	}
	return n
}

func (f *fakeRegistrationRepo) CountByStatus(ctx context.Context, eventID string, status domain.RegistrationStatus) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countLocked(eventID, status), nil
}

func (f *fakeRegistrationRepo) Counts(ctx context.Context, eventID string) (domain.RegistrationCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.RegistrationCounts{
		Approved: f.countLocked(eventID, domain.RegistrationApproved),
		Pending:  f.countLocked(eventID, domain.RegistrationPending),
	}, nil
}

func (f *fakeRegistrationRepo) CountsByStatus(ctx context.Context, eventID string) (map[domain.RegistrationStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[domain.RegistrationStatus]int)
	for _, r := range f.byID {
		if r.EventID == eventID {
			counts[r.Status]++
		}
	}
	return counts, nil
}

func (f *fakeRegistrationRepo) ApproveWithinCapacity(ctx context.Context, regID, eventID, ticket string, at time.Time) error {
	event, err := f.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	capacity := domain.Capacity{MaxSeats: event.MaxSeats, Approved: f.countLocked(eventID, domain.RegistrationApproved)}
	if !capacity.HasRoom() {
		return domain.ErrCapacityExceeded
	}
	r, ok := f.byID[regID]
	if !ok || r.EventID != eventID || r.Status != domain.RegistrationPending {
		return domain.ErrInvalidTransition
	}
	r.Status = domain.RegistrationApproved
	r.ICSTicket = &ticket
	r.UpdatedAt = at
	return nil
}

func (f *fakeRegistrationRepo) UpdateStatus(ctx context.Context, regID string, from []domain.RegistrationStatus, to domain.RegistrationStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[regID]
	if !ok {
		return domain.ErrInvalidTransition
	}
	for _, s := range from {
		if r.Status == s {
			r.Status = to
			r.UpdatedAt = at
			return nil
		}
	}
	return domain.ErrInvalidTransition
}

func (f *fakeRegistrationRepo) status(id string) domain.RegistrationStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id].Status
}

type fakeUserRepo struct {
	byID map[string]*domain.User
	err  error // if set, ListIDs returns this error
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	f := &fakeUserRepo{byID: make(map[string]*domain.User)}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) ListIDs(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	ids := make([]string, 0, len(f.byID))
	for id := range f.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// fakeNotificationRepo stores notifications in memory. Create fails for recipients in failFor.
type fakeNotificationRepo struct {
	mu      sync.Mutex
	items   []*domain.Notification
	failFor map[string]bool
	nextID  int
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{failFor: map[string]bool{}, nextID: 1}
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[n.RecipientID] {
		return errBoom
	}
	n.ID = fmt.Sprintf("n-%d", f.nextID)
	f.nextID++
	f.items = append(f.items, n)
	return nil
}

func (f *fakeNotificationRepo) live(recipientID string, now time.Time) []*domain.Notification {
	var out []*domain.Notification
	for _, n := range f.items {
		if n.RecipientID == recipientID && n.ExpiresAt.After(now) {
			out = append(out, n)
		}
	}
	return out
}

func (f *fakeNotificationRepo) GetByID(ctx context.Context, id, recipientID string, now time.Time) (*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.live(recipientID, now) {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeNotificationRepo) List(ctx context.Context, recipientID string, filter domain.NotificationFilter, page domain.PaginationParams, now time.Time) ([]*domain.Notification, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Notification, 0)
	for _, n := range f.live(recipientID, now) {
		if filter.IsRead != nil && n.IsRead != *filter.IsRead {
			continue
		}
		if filter.Type != nil && n.Type != *filter.Type {
			continue
		}
		out = append(out, n)
	}
	return out, len(out), nil
}

func (f *fakeNotificationRepo) CountUnread(ctx context.Context, recipientID string, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := 0
	for _, n := range f.live(recipientID, now) {
		if !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id, recipientID string, now time.Time) (*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.live(recipientID, now) {
		if n.ID == id {
			if n.ReadAt == nil {
				at := now
				n.ReadAt = &at
			}
			n.IsRead = true
			return n, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeNotificationRepo) MarkAllRead(ctx context.Context, recipientID string, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c int64
	for _, n := range f.live(recipientID, now) {
		if !n.IsRead {
			at := now
			n.IsRead, n.ReadAt = true, &at
			c++
		}
	}
	return c, nil
}

func (f *fakeNotificationRepo) remove(keep func(*domain.Notification) bool) int64 {
	var (
		kept    []*domain.Notification
		removed int64
	)
	for _, n := range f.items {
		if keep(n) {
			kept = append(kept, n)
		} else {
			removed++
		}
	}
	f.items = kept
	return removed
}

func (f *fakeNotificationRepo) Delete(ctx context.Context, id, recipientID string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	removed := f.remove(func(n *domain.Notification) bool {
		return n.ID != id || n.RecipientID != recipientID || !n.ExpiresAt.After(now)
	})
	if removed == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (f *fakeNotificationRepo) DeleteRead(ctx context.Context, recipientID string, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remove(func(n *domain.Notification) bool {
		return n.RecipientID != recipientID || !n.IsRead || !n.ExpiresAt.After(now)
	}), nil
}

func (f *fakeNotificationRepo) Stats(ctx context.Context, recipientID string, now time.Time) (*domain.NotificationStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &domain.NotificationStats{ByType: map[domain.NotificationType]int{}}
	for _, n := range f.live(recipientID, now) {
		stats.Total++
		stats.ByType[n.Type]++
		if n.IsRead {
			stats.Read++
		} else {
			stats.Unread++
		}
	}
	return stats, nil
}

func (f *fakeNotificationRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remove(func(n *domain.Notification) bool { return n.ExpiresAt.After(now) }), nil
}

func (f *fakeNotificationRepo) forRecipient(id string) []*domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Notification
	for _, n := range f.items {
		if n.RecipientID == id {
			out = append(out, n)
		}
	}
	return out
}

func (f *fakeNotificationRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// fakePusher records pushes and fails for recipients in failFor.
type fakePusher struct {
	mu      sync.Mutex
	pushed  []string
	failFor map[string]bool
}

func (f *fakePusher) Push(ctx context.Context, recipientID string, n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[recipientID] {
		return errBoom
	}
	f.pushed = append(f.pushed, recipientID)
	return nil
}

// inlineRunner runs submitted tasks synchronously and keeps their errors.
// A full runner records the name and rejects the task.
type inlineRunner struct {
	mu    sync.Mutex
	names []string
	errs  []error
	full  bool
}

func (r *inlineRunner) Submit(name string, fn func(ctx context.Context) error) bool {
	if r.full {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.names = append(r.names, name)
		return false
	}
	err := fn(context.Background())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	if err != nil {
		r.errs = append(r.errs, err)
	}
	return true
}

type published struct {
	key     string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{key: routingKey, payload: payload})
	return nil
}

func (f *fakePublisher) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.key)
	}
	return out
}

// fakeEmailService records the template of every email sent.
type fakeEmailService struct {
	mu   sync.Mutex
	sent []string
	to   []string
	err  error
}

func (f *fakeEmailService) record(kind, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, kind)
	f.to = append(f.to, to)
	return nil
}

func (f *fakeEmailService) SendRegistrationReceived(ctx context.Context, d *domain.RegistrationEmailData) error {
	return f.record("registration_received", d.Email)
}

func (f *fakeEmailService) SendRegistrationApproved(ctx context.Context, d *domain.RegistrationEmailData) error {
	return f.record("registration_approved", d.Email)
}

func (f *fakeEmailService) SendRegistrationRejected(ctx context.Context, d *domain.RegistrationEmailData) error {
	return f.record("registration_rejected", d.Email)
}

func (f *fakeEmailService) SendEventCreated(ctx context.Context, d *domain.EventEmailData) error {
	return f.record("event_created", d.Email)
}

func (f *fakeEmailService) SendEventReviewed(ctx context.Context, d *domain.EventEmailData) error {
	return f.record("event_reviewed", d.Email)
}

func (f *fakeEmailService) SendEventUpdated(ctx context.Context, d *domain.RegistrationEmailData) error {
	return f.record("event_updated", d.Email)
}

type fakeAttendanceRepo struct {
	mu    sync.Mutex
	items map[string]*domain.Attendance
}

func newFakeAttendanceRepo(items ...*domain.Attendance) *fakeAttendanceRepo {
	f := &fakeAttendanceRepo{items: make(map[string]*domain.Attendance)}
	for _, a := range items {
		f.items[a.EventID+"/"+a.ParticipantID] = a
	}
	return f
}

func (f *fakeAttendanceRepo) Upsert(ctx context.Context, a *domain.Attendance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := a.EventID + "/" + a.ParticipantID
	if prev, ok := f.items[key]; ok {
		a.ID = prev.ID
	} else {
		a.ID = fmt.Sprintf("att-%d", len(f.items)+1)
	}
	cp := *a
	f.items[key] = &cp
	return nil
}

func (f *fakeAttendanceRepo) Get(ctx context.Context, eventID, participantID string) (*domain.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.items[eventID+"/"+participantID]; ok {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAttendanceRepo) ListByEvent(ctx context.Context, eventID string) ([]*domain.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Attendance, 0)
	for _, a := range f.items {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out, nil
}

func (f *fakeAttendanceRepo) ListAttendedEventIDs(ctx context.Context, participantID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, a := range f.items {
		if a.ParticipantID == participantID && a.Attended {
			ids = append(ids, a.EventID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Summary counts every record of the event; tests seed attendance only for approved participants.
func (f *fakeAttendanceRepo) Summary(ctx context.Context, eventID string) (domain.AttendanceSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s domain.AttendanceSummary
	for _, a := range f.items {
		if a.EventID != eventID {
			continue
		}
		if a.Attended {
			s.Present++
		} else {
			s.Absent++
		}
	}
	return s, nil
}

type fakeCertificateRepo struct {
	mu    sync.Mutex
	items map[string]*domain.Certificate
}

func newFakeCertificateRepo(items ...*domain.Certificate) *fakeCertificateRepo {
	f := &fakeCertificateRepo{items: make(map[string]*domain.Certificate)}
	for _, c := range items {
		f.items[c.EventID+"/"+c.ParticipantID] = c
	}
	return f
}

func (f *fakeCertificateRepo) Create(ctx context.Context, c *domain.Certificate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := c.EventID + "/" + c.ParticipantID
	if _, ok := f.items[key]; ok {
		return domain.ErrAlreadyExists
	}
	c.ID = fmt.Sprintf("cert-%d", len(f.items)+1)
	f.items[key] = c
	return nil
}

func (f *fakeCertificateRepo) Get(ctx context.Context, eventID, participantID string) (*domain.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.items[eventID+"/"+participantID]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeCertificateRepo) UpsertIssued(ctx context.Context, c *domain.Certificate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := c.EventID + "/" + c.ParticipantID
	if prev, ok := f.items[key]; ok {
		c.ID = prev.ID
		c.CreatedAt = prev.CreatedAt
	} else {
		c.ID = fmt.Sprintf("cert-%d", len(f.items)+1)
	}
	f.items[key] = c
	return nil
}

func (f *fakeCertificateRepo) ListByParticipant(ctx context.Context, participantID string) ([]*domain.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Certificate, 0)
	for _, c := range f.items {
		if c.ParticipantID == participantID {
			out = append(out, c)
		}
	}
	return out, nil
}
