package postgres

import (
	"context"
	"testing"
	"time"

	"eventsphere/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

var certificateRowColumns = []string{"id", "event_id", "participant_id", "certificate_url", "status", "fee_paid", "issued_at", "created_at", "updated_at"}

func TestCertificateRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		mock  func(mock sqlmock.Sqlmock)
		errIs error
	}{
		{
			name: "request stored",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO certificates \(event_id, participant_id, certificate_url, status, fee_paid, issued_at, created_at, updated_at\)`).
					WithArgs("ev-1", "user-1", "", "requested", false, nil, now, now).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cert-1"))
			},
		},
		{
			name: "existing pair",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO certificates`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			errIs: domain.ErrAlreadyExists,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			c := &domain.Certificate{EventID: "ev-1", ParticipantID: "user-1", Status: domain.CertificateRequested, CreatedAt: now, UpdatedAt: now}
			err = NewCertificateRepository(db).Create(ctx, c)
			if tt.errIs != nil {
				require.ErrorIs(t, err, tt.errIs)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "cert-1", c.ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCertificateRepository_UpsertIssued(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	created := now.Add(-24 * time.Hour)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO certificates .* ON CONFLICT \(event_id, participant_id\) DO UPDATE SET certificate_url = EXCLUDED.certificate_url, status = 'issued'`).
		WithArgs("ev-1", "user-1", "https://cdn.example/cert.pdf", true, now).
		WillReturnRows(sqlmock.NewRows(certificateRowColumns).
			AddRow("cert-1", "ev-1", "user-1", "https://cdn.example/cert.pdf", "issued", true, now, created, now))

	c := &domain.Certificate{EventID: "ev-1", ParticipantID: "user-1", CertificateURL: "https://cdn.example/cert.pdf", FeePaid: true, IssuedAt: &now}
	require.NoError(t, NewCertificateRepository(db).UpsertIssued(ctx, c))
	require.Equal(t, "cert-1", c.ID)
	require.Equal(t, domain.CertificateIssued, c.Status)
	require.Equal(t, created, c.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}
