package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/database"
	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPool connects to TEST_DATABASE_URL and skips the test when it is unset.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, database.Migrate(ctx, pool))
	return pool
}

func TestPostgres_Contract(t *testing.T) {
	pool := newTestPool(t)
	runLedgerContract(t, NewEventRepository(pool), NewRegistrationRepository(pool, time.Second))
}

func TestPostgres_RowLockTimeout(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	events := NewEventRepository(pool)
	ledger := NewRegistrationRepository(pool, 100*time.Millisecond)

	e := &model.Event{
		ID: uuid.NewString(), Title: "locked", DateTime: time.Now().Add(time.Hour),
		Location: "db", MaxCapacity: 1, CreatedBy: "owner", CreatedAt: time.Now(),
	}
	require.NoError(t, events.Create(ctx, e))

	holder, err := ledger.Begin(ctx)
	require.NoError(t, err)
	defer holder.Rollback(ctx)
	_, err = holder.LockEvent(ctx, e.ID)
	require.NoError(t, err)

	waiter, err := ledger.Begin(ctx)
	require.NoError(t, err)
	defer waiter.Rollback(ctx)
	_, err = waiter.LockEvent(ctx, e.ID)
	assert.ErrorIs(t, err, ErrLockTimeout)
}
