//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsphere/internal/domain"
)

// Run with: TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/repository/postgres/
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Ping())

	schema, err := os.ReadFile("../../../migrations/001_init.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)
	return db
}

func seedUser(t *testing.T, db *sql.DB, role domain.Role) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(`INSERT INTO users (id, email, username, role) VALUES ($1, $2, $3, $4)`,
		id, id+"@example.test", "user "+id[:8], role)
	require.NoError(t, err)
	return id
}

func TestRegistrationRepository_ApproveWithinCapacity_Concurrent(t *testing.T) {
	const (
		seats     = 5
		approvals = 40
	)
	ctx := context.Background()
	db := openTestDB(t)
	db.SetMaxOpenConns(approvals)

	organizerID := seedUser(t, db, domain.RoleOrganizer)
	eventID := uuid.NewString()
	_, err := db.Exec(`INSERT INTO events (id, title, date, start_time, venue, max_seats, status, organizer_id)
		VALUES ($1, 'Load Test', '2030-01-15', '10:00 AM', 'Hall', $2, 'approved', $3)`,
		eventID, seats, organizerID)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = db.Exec(`DELETE FROM events WHERE id = $1`, eventID) })

	regIDs := make([]string, approvals)
	for i := range regIDs {
		regIDs[i] = uuid.NewString()
		_, err := db.Exec(`INSERT INTO registrations (id, event_id, participant_id) VALUES ($1, $2, $3)`,
			regIDs[i], eventID, seedUser(t, db, domain.RoleParticipant))
		require.NoError(t, err)
	}

	repo := NewRegistrationRepository(db)
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		ok    int
		full  int
		other []error
	)
	start := make(chan struct{})
	for _, id := range regIDs {
		wg.Add(1)
		go func(regID string) {
			defer wg.Done()
			<-start
			err := repo.ApproveWithinCapacity(ctx, regID, eventID, "BEGIN:VCALENDAR", time.Now())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrCapacityExceeded):
				full++
			default:
				other = append(other, err)
			}
		}(id)
	}
	close(start)
	wg.Wait()

	require.Empty(t, other)
	assert.Equal(t, seats, ok)
	assert.Equal(t, approvals-seats, full)

	approved, err := repo.CountByStatus(ctx, eventID, domain.RegistrationApproved)
	require.NoError(t, err)
	assert.Equal(t, seats, approved)

	event, err := NewEventRepository(db).GetByID(ctx, eventID)
	require.NoError(t, err)
	event.MaxSeats = seats - 1
	require.ErrorIs(t, NewEventRepository(db).Update(ctx, event), domain.ErrCapacityExceeded)
}
