package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runLedgerContract exercises the behaviour every catalog/ledger backend must share.
func runLedgerContract(t *testing.T, catalog EventCatalog, ledger Ledger) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	event := &model.Event{
		ID:          uuid.NewString(),
		Title:       "Go meetup",
		Description: "talks and pizza",
		DateTime:    now.Add(24 * time.Hour),
		Location:    "Berlin",
		MaxCapacity: 2,
		CreatedBy:   "owner-" + uuid.NewString(),
		CreatedAt:   now,
	}
	require.NoError(t, catalog.Create(ctx, event))

	userID := "user-" + uuid.NewString()
	regID := uuid.NewString()

	t.Run("get event", func(t *testing.T) {
		got, err := catalog.GetByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, event.Title, got.Title)
		assert.Equal(t, event.MaxCapacity, got.MaxCapacity)
		assert.True(t, event.DateTime.Equal(got.DateTime))

		_, err = catalog.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("lock missing event", func(t *testing.T) {
		err := WithinScope(ctx, ledger, func(s Scope) error {
			_, err := s.LockEvent(ctx, uuid.NewString())
			return err
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rollback discards insert", func(t *testing.T) {
		boom := errors.New("boom")
		err := WithinScope(ctx, ledger, func(s Scope) error {
			_, err := s.LockEvent(ctx, event.ID)
			require.NoError(t, err)
			require.NoError(t, s.InsertRegistration(ctx, &model.Registration{
				ID: uuid.NewString(), UserID: userID, EventID: event.ID,
				Status: model.StatusRegistered, RegistrationDate: now,
			}))
			n, err := s.CountActive(ctx, event.ID)
			require.NoError(t, err)
			assert.Equal(t, 1, n, "scope sees its own insert")
			return boom
		})
		assert.ErrorIs(t, err, boom)

		n, err := ledger.CountActive(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("insert commits", func(t *testing.T) {
		err := WithinScope(ctx, ledger, func(s Scope) error {
			if _, err := s.LockEvent(ctx, event.ID); err != nil {
				return err
			}
			_, err := s.FindRegistration(ctx, userID, event.ID)
			require.ErrorIs(t, err, ErrNotFound)
			return s.InsertRegistration(ctx, &model.Registration{
				ID: regID, UserID: userID, EventID: event.ID,
				Status: model.StatusRegistered, RegistrationDate: now,
			})
		})
		require.NoError(t, err)

		n, err := ledger.CountActive(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("duplicate pair is a constraint violation", func(t *testing.T) {
		err := WithinScope(ctx, ledger, func(s Scope) error {
			if _, err := s.LockEvent(ctx, event.ID); err != nil {
				return err
			}
			return s.InsertRegistration(ctx, &model.Registration{
				ID: uuid.NewString(), UserID: userID, EventID: event.ID,
				Status: model.StatusRegistered, RegistrationDate: now,
			})
		})
		assert.ErrorIs(t, err, ErrConstraintViolation)

		n, err := ledger.CountActive(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("status update keeps the row", func(t *testing.T) {
		later := now.Add(time.Minute)
		var updated *model.Registration
		err := WithinScope(ctx, ledger, func(s Scope) error {
			if _, err := s.LockEvent(ctx, event.ID); err != nil {
				return err
			}
			existing, err := s.FindRegistration(ctx, userID, event.ID)
			if err != nil {
				return err
			}
			updated, err = s.UpdateRegistrationStatus(ctx, existing.ID, model.StatusCancelled, later)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, regID, updated.ID)
		assert.Equal(t, model.StatusCancelled, updated.Status)
		assert.True(t, later.Equal(updated.RegistrationDate))

		n, err := ledger.CountActive(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("update missing registration", func(t *testing.T) {
		err := WithinScope(ctx, ledger, func(s Scope) error {
			_, err := s.UpdateRegistrationStatus(ctx, uuid.NewString(), model.StatusCancelled, now)
			return err
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list by user", func(t *testing.T) {
		regs, err := ledger.ListByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, regs, 1)
		assert.Equal(t, regID, regs[0].ID)
		assert.Equal(t, event.Title, regs[0].Title)
		assert.Equal(t, event.Location, regs[0].Location)
		assert.Equal(t, model.StatusCancelled, regs[0].Status)
	})

	t.Run("list events with counts", func(t *testing.T) {
		err := WithinScope(ctx, ledger, func(s Scope) error {
			if _, err := s.LockEvent(ctx, event.ID); err != nil {
				return err
			}
			return s.InsertRegistration(ctx, &model.Registration{
				ID: uuid.NewString(), UserID: "other-" + uuid.NewString(), EventID: event.ID,
				Status: model.StatusRegistered, RegistrationDate: now,
			})
		})
		require.NoError(t, err)

		past := &model.Event{
			ID: uuid.NewString(), Title: "Yesterday", DateTime: now.Add(-24 * time.Hour),
			Location: "Paris", MaxCapacity: 1, CreatedBy: event.CreatedBy, CreatedAt: now,
		}
		require.NoError(t, catalog.Create(ctx, past))

		upcoming, err := catalog.List(ctx, model.EventFilter{From: now, CreatedBy: event.CreatedBy})
		require.NoError(t, err)
		require.Len(t, upcoming, 1)
		assert.Equal(t, event.ID, upcoming[0].ID)
		assert.Equal(t, 1, upcoming[0].Registrations)
		assert.Equal(t, 1, upcoming[0].AvailableSpots)

		mine, err := catalog.List(ctx, model.EventFilter{CreatedBy: event.CreatedBy, Newest: true})
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, event.ID, mine[0].ID)
		assert.Equal(t, past.ID, mine[1].ID)
		assert.Equal(t, 0, mine[1].Registrations)
		assert.Equal(t, 1, mine[1].AvailableSpots)
	})
}
