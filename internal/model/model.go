// Package model defines the core domain types for the event registration system.
package model

import "time"

// Event represents a registerable event owned by the event catalog.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DateTime    time.Time `json:"date_time"`
	Location    string    `json:"location"`
	MaxCapacity int       `json:"max_capacity"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// AvailableSpots returns the number of free places given the current active
// registration count. It is never negative.
func (e *Event) AvailableSpots(active int) int {
	return max(0, e.MaxCapacity-active)
}

// IsFull returns true when no further registration may be accepted.
func (e *Event) IsFull(active int) bool {
	return active >= e.MaxCapacity
}

// EventSummary is an event augmented with its capacity accounting, as shown
// in listings.
type EventSummary struct {
	Event
	Registrations  int `json:"registrations"`
	AvailableSpots int `json:"available_spots"`
}

// NewEventSummary derives the display counters for e from its active count.
func NewEventSummary(e Event, active int) EventSummary {
	return EventSummary{
		Event:          e,
		Registrations:  active,
		AvailableSpots: e.AvailableSpots(active),
	}
}

// EventFilter narrows catalog listings.
type EventFilter struct {
	// From excludes events whose date_time is before it. Zero means no bound.
	From time.Time
	// CreatedBy restricts the listing to one creator.
	CreatedBy string
	// Newest orders by date_time descending instead of ascending.
	Newest bool
}

// RegistrationStatus is the lifecycle state of a registration row.
type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "registered"
	StatusCancelled  RegistrationStatus = "cancelled"
)

// Registration represents a user's registration for an event. There is at
// most one per (user, event) pair; re-registration transitions the same row.
type Registration struct {
	ID               string             `json:"id"`
	UserID           string             `json:"user_id"`
	EventID          string             `json:"event_id"`
	Status           RegistrationStatus `json:"status"`
	RegistrationDate time.Time          `json:"registration_date"`
}

// IsActive reports whether the registration counts against capacity.
func (r *Registration) IsActive() bool {
	return r.Status == StatusRegistered
}

// UserRegistration is a registration joined with the event it refers to.
type UserRegistration struct {
	Registration
	Title    string    `json:"title"`
	DateTime time.Time `json:"date_time"`
	Location string    `json:"location"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DateTime    time.Time `json:"date_time"`
	Location    string    `json:"location"`
	MaxCapacity *int      `json:"max_capacity"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RegistrationResult summarises the outcome of a single registration attempt.
// Used by the concurrent registration tests.
type RegistrationResult struct {
	UserID  string
	Created bool
	Error   error
}
