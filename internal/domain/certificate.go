package domain

import (
	"context"
	"time"
)

// CertificateStatus is the state of a participation certificate.
type CertificateStatus string

const (
	CertificateRequested CertificateStatus = "requested"
	CertificateIssued    CertificateStatus = "issued"
)

// Certificate is a participation certificate for an attended event.
// swagger:model Certificate
type Certificate struct {
	ID             string            `json:"id"`
	EventID        string            `json:"event_id"`
	ParticipantID  string            `json:"participant_id"`
	CertificateURL string            `json:"certificate_url"`
	Status         CertificateStatus `json:"status"`
	FeePaid        bool              `json:"fee_paid"`
	IssuedAt       *time.Time        `json:"issued_at"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// CertificateRepository stores certificates, one row per (event, participant).
type CertificateRepository interface {
	Create(ctx context.Context, c *Certificate) error
	Get(ctx context.Context, eventID, participantID string) (*Certificate, error)
	// UpsertIssued creates or overwrites the certificate as issued.
	UpsertIssued(ctx context.Context, c *Certificate) error
	ListByParticipant(ctx context.Context, participantID string) ([]*Certificate, error)
}

// CertificateService handles certificate requests and issuance.
type CertificateService interface {
	// RequestCertificate returns (cert, created, err): created is false when a request already existed.
	RequestCertificate(ctx context.Context, eventID, participantID string) (*Certificate, bool, error)
	IssueCertificate(ctx context.Context, actor Actor, eventID, participantID, url string, feePaid bool) (*Certificate, error)
	ListMyCertificates(ctx context.Context, participantID string) ([]*Certificate, error)
	ListAttendedEvents(ctx context.Context, participantID string) ([]*Event, error)
}
