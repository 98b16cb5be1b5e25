package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"eventsphere/internal/domain"
)

type certificateRepository struct {
	DB *sql.DB
}

func NewCertificateRepository(db *sql.DB) domain.CertificateRepository {
	return &certificateRepository{DB: db}
}

const certificateColumns = `id, event_id, participant_id, certificate_url, status, fee_paid, issued_at, created_at, updated_at`

func scanCertificate(row rowScanner) (*domain.Certificate, error) {
	c := &domain.Certificate{}
	var issuedAt sql.NullTime
	err := row.Scan(&c.ID, &c.EventID, &c.ParticipantID, &c.CertificateURL, &c.Status, &c.FeePaid, &issuedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if issuedAt.Valid {
		c.IssuedAt = &issuedAt.Time
	}
	return c, nil
}

// Create inserts a certificate request. Returns domain.ErrAlreadyExists when the pair already has a certificate.
func (r *certificateRepository) Create(ctx context.Context, c *domain.Certificate) error {
	query := `
		INSERT INTO certificates (event_id, participant_id, certificate_url, status, fee_paid, issued_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		c.EventID, c.ParticipantID, c.CertificateURL, c.Status, c.FeePaid, c.IssuedAt, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *certificateRepository) Get(ctx context.Context, eventID, participantID string) (*domain.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE event_id = $1 AND participant_id = $2`
	c, err := scanCertificate(r.DB.QueryRowContext(ctx, query, eventID, participantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *certificateRepository) UpsertIssued(ctx context.Context, c *domain.Certificate) error {
	query := `
		INSERT INTO certificates (event_id, participant_id, certificate_url, status, fee_paid, issued_at, created_at, updated_at)
		VALUES ($1, $2, $3, 'issued', $4, $5, $5, $5)
		ON CONFLICT (event_id, participant_id)
		DO UPDATE SET certificate_url = EXCLUDED.certificate_url, status = 'issued', fee_paid = EXCLUDED.fee_paid,
		              issued_at = EXCLUDED.issued_at, updated_at = EXCLUDED.updated_at
		RETURNING ` + certificateColumns
	got, err := scanCertificate(r.DB.QueryRowContext(ctx, query, c.EventID, c.ParticipantID, c.CertificateURL, c.FeePaid, c.IssuedAt))
	if err != nil {
		return err
	}
	*c = *got
	return nil
}

func (r *certificateRepository) ListByParticipant(ctx context.Context, participantID string) ([]*domain.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE participant_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]*domain.Certificate, 0)
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
