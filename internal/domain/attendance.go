package domain

import (
	"context"
	"time"
)

// CheckInMethod records how attendance was captured.
type CheckInMethod string

const (
	CheckInManual CheckInMethod = "manual"
	CheckInQR     CheckInMethod = "qr"
)

// Valid reports whether m is a known check-in method.
func (m CheckInMethod) Valid() bool {
	return m == CheckInManual || m == CheckInQR
}

// Attendance records whether an approved participant attended an event.
// swagger:model Attendance
type Attendance struct {
	ID            string        `json:"id"`
	EventID       string        `json:"event_id"`
	ParticipantID string        `json:"participant_id"`
	Attended      bool          `json:"attended"`
	CheckInMethod CheckInMethod `json:"check_in_method"`
	MarkedAt      time.Time     `json:"marked_at"`
}

// AttendanceSummary counts attendance records of approved participants.
type AttendanceSummary struct {
	Present int
	Absent  int
}

// AttendanceRepository stores attendance, one row per (event, participant).
type AttendanceRepository interface {
	Upsert(ctx context.Context, a *Attendance) error
	Get(ctx context.Context, eventID, participantID string) (*Attendance, error)
	ListByEvent(ctx context.Context, eventID string) ([]*Attendance, error)
	ListAttendedEventIDs(ctx context.Context, participantID string) ([]string, error)
	// Summary counts records of the event whose participant still holds an approved registration.
	Summary(ctx context.Context, eventID string) (AttendanceSummary, error)
}

// AttendanceService records and lists attendance.
type AttendanceService interface {
	MarkAttendance(ctx context.Context, actor Actor, eventID, participantID string, attended bool, method CheckInMethod) (*Attendance, error)
	ListEventAttendance(ctx context.Context, eventID string, actor Actor) ([]*Attendance, error)
}
