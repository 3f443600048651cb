package service

import (
	"context"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/model"
	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestCreateEvent_Validation(t *testing.T) {
	valid := model.CreateEventRequest{
		Title:       "Gophercon",
		Location:    "Berlin",
		DateTime:    time.Now().Add(24 * time.Hour),
		MaxCapacity: intPtr(100),
	}

	tests := []struct {
		name   string
		mutate func(*model.CreateEventRequest)
		msg    string
	}{
		{"blank title", func(r *model.CreateEventRequest) { r.Title = "   " }, "title is required"},
		{"missing location", func(r *model.CreateEventRequest) { r.Location = "" }, "location is required"},
		{"missing date", func(r *model.CreateEventRequest) { r.DateTime = time.Time{} }, "date_time is required"},
		{"missing capacity", func(r *model.CreateEventRequest) { r.MaxCapacity = nil }, "max_capacity is required"},
		{"negative capacity", func(r *model.CreateEventRequest) { r.MaxCapacity = intPtr(-1) }, "non-negative"},
		{"huge capacity", func(r *model.CreateEventRequest) { r.MaxCapacity = intPtr(100_001) }, "cannot exceed"},
	}

	svc := NewEventService(repository.NewMemoryStore(), repository.NewMemoryStore())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)
			_, err := svc.CreateEvent(context.Background(), "owner", req)
			require.ErrorIs(t, err, ErrInvalidEvent)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestCreateEvent_Stores(t *testing.T) {
	st := repository.NewMemoryStore()
	svc := NewEventService(st, st)
	ctx := context.Background()

	event, err := svc.CreateEvent(ctx, "owner", model.CreateEventRequest{
		Title:       "  Meetup ",
		Description: "lightning talks",
		Location:    "Room 1",
		DateTime:    time.Now().Add(time.Hour),
		MaxCapacity: intPtr(0),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "Meetup", event.Title)
	assert.Equal(t, "owner", event.CreatedBy)
	assert.Equal(t, 0, event.MaxCapacity)

	got, err := svc.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, 0, got.Registrations)
	assert.Equal(t, 0, got.AvailableSpots)
}

func TestGetEvent_NotFound(t *testing.T) {
	st := repository.NewMemoryStore()
	svc := NewEventService(st, st)

	_, err := svc.GetEvent(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestListEvents_UpcomingOnly(t *testing.T) {
	st := repository.NewMemoryStore()
	svc := NewEventService(st, st)
	ctx := context.Background()
	now := time.Now()

	for _, e := range []model.Event{
		{ID: "later", Title: "later", DateTime: now.Add(72 * time.Hour), MaxCapacity: 3},
		{ID: "past", Title: "past", DateTime: now.Add(-time.Hour), MaxCapacity: 3},
		{ID: "soon", Title: "soon", DateTime: now.Add(time.Hour), MaxCapacity: 3},
	} {
		require.NoError(t, st.Create(ctx, &e))
	}

	events, err := svc.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "soon", events[0].ID)
	assert.Equal(t, "later", events[1].ID)
	assert.Equal(t, 3, events[0].AvailableSpots)
}

func TestListEvents_EmptyIsNotNil(t *testing.T) {
	st := repository.NewMemoryStore()
	events, err := NewEventService(st, st).ListEvents(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestListCreatedEvents(t *testing.T) {
	st := repository.NewMemoryStore()
	svc := NewEventService(st, st)
	ctx := context.Background()

	for _, offset := range []time.Duration{-time.Hour, time.Hour} {
		_, err := svc.CreateEvent(ctx, "owner", model.CreateEventRequest{
			Title: "e", Location: "l", DateTime: time.Now().Add(offset), MaxCapacity: intPtr(1),
		})
		require.NoError(t, err)
	}
	_, err := svc.CreateEvent(ctx, "someone-else", model.CreateEventRequest{
		Title: "x", Location: "l", DateTime: time.Now().Add(time.Hour), MaxCapacity: intPtr(1),
	})
	require.NoError(t, err)

	mine, err := svc.ListCreatedEvents(ctx, "owner", "owner")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.True(t, mine[0].DateTime.After(mine[1].DateTime), "newest first, past events included")

	_, err = svc.ListCreatedEvents(ctx, "intruder", "owner")
	assert.ErrorIs(t, err, ErrForbidden)
}
