package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvent_AvailableSpots(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		active   int
		want     int
	}{
		{"empty", 10, 0, 10},
		{"partial", 10, 4, 6},
		{"full", 3, 3, 0},
		{"over capacity never negative", 2, 5, 0},
		{"zero capacity", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Event{MaxCapacity: tt.capacity}
			assert.Equal(t, tt.want, e.AvailableSpots(tt.active))
		})
	}
}

func TestEvent_IsFull(t *testing.T) {
	e := Event{MaxCapacity: 2}
	assert.False(t, e.IsFull(1))
	assert.True(t, e.IsFull(2))

	zero := Event{MaxCapacity: 0}
	assert.True(t, zero.IsFull(0))
}

func TestNewEventSummary(t *testing.T) {
	s := NewEventSummary(Event{ID: "e1", MaxCapacity: 5}, 2)
	assert.Equal(t, "e1", s.ID)
	assert.Equal(t, 2, s.Registrations)
	assert.Equal(t, 3, s.AvailableSpots)
}

func TestRegistration_IsActive(t *testing.T) {
	r := Registration{Status: StatusRegistered}
	assert.True(t, r.IsActive())
	r.Status = StatusCancelled
	assert.False(t, r.IsActive())
}
