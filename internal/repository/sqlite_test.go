package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/database"
	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T, lockTimeout time.Duration) *SQLiteStore {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "ledger.db"), lockTimeout)
	require.NoError(t, err)
	store := NewSQLiteStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	store := newTestSQLiteStore(t, time.Second)
	runLedgerContract(t, store, store)
}

func TestSQLiteStore_BusyWriterTimesOut(t *testing.T) {
	store := newTestSQLiteStore(t, 50*time.Millisecond)
	ctx := context.Background()

	holder, err := store.Begin(ctx)
	require.NoError(t, err)
	defer holder.Rollback(ctx)

	_, err = store.Begin(ctx)
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestSQLiteStore_DuplicateEventID(t *testing.T) {
	store := newTestSQLiteStore(t, time.Second)
	ctx := context.Background()
	e := &model.Event{
		ID: "e1", Title: "t", DateTime: time.Now(), Location: "l",
		MaxCapacity: 1, CreatedBy: "u", CreatedAt: time.Now(),
	}
	require.NoError(t, store.Create(ctx, e))
	assert.ErrorIs(t, store.Create(ctx, e), ErrConstraintViolation)
}

func TestSQLiteStore_ClosedScope(t *testing.T) {
	store := newTestSQLiteStore(t, time.Second)
	ctx := context.Background()

	s, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Rollback(ctx))
	assert.ErrorIs(t, s.Rollback(ctx), ErrScopeClosed)
	assert.ErrorIs(t, s.Commit(ctx), ErrScopeClosed)
}
