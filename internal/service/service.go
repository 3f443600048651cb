// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/model"
	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/repository"
	"github.com/google/uuid"
)

const maxEventCapacity = 100_000

// EventService orchestrates event catalog operations.
type EventService struct {
	events repository.EventCatalog
	ledger repository.Ledger
	now    func() time.Time
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events repository.EventCatalog, ledger repository.Ledger) *EventService {
	return &EventService{events: events, ledger: ledger, now: time.Now}
}

// CreateEvent validates the request and stores a new event owned by callerID.
func (s *EventService) CreateEvent(ctx context.Context, callerID string, req model.CreateEventRequest) (*model.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Location = strings.TrimSpace(req.Location)
	switch {
	case req.Title == "":
		return nil, fmt.Errorf("%w: title is required", ErrInvalidEvent)
	case req.Location == "":
		return nil, fmt.Errorf("%w: location is required", ErrInvalidEvent)
	case req.DateTime.IsZero():
		return nil, fmt.Errorf("%w: date_time is required", ErrInvalidEvent)
	case req.MaxCapacity == nil:
		return nil, fmt.Errorf("%w: max_capacity is required", ErrInvalidEvent)
	case *req.MaxCapacity < 0:
		return nil, fmt.Errorf("%w: max_capacity must be a non-negative integer", ErrInvalidEvent)
	case *req.MaxCapacity > maxEventCapacity:
		return nil, fmt.Errorf("%w: max_capacity cannot exceed 100,000", ErrInvalidEvent)
	}

	event := &model.Event{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		DateTime:    req.DateTime.UTC(),
		Location:    req.Location,
		MaxCapacity: *req.MaxCapacity,
		CreatedBy:   callerID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

// ListEvents returns upcoming events, soonest first, with their counts.
func (s *EventService) ListEvents(ctx context.Context) ([]model.EventSummary, error) {
	events, err := s.events.List(ctx, model.EventFilter{From: s.now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []model.EventSummary{}
	}
	return events, nil
}

// GetEvent returns a single event with its active count and free spots.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.EventSummary, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	active, err := s.ledger.CountActive(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	summary := model.NewEventSummary(*event, active)
	return &summary, nil
}

// ListCreatedEvents returns every event userID created, newest first.
// Callers may only list their own.
func (s *EventService) ListCreatedEvents(ctx context.Context, callerID, userID string) ([]model.EventSummary, error) {
	if callerID != userID {
		return nil, ErrForbidden
	}
	events, err := s.events.List(ctx, model.EventFilter{CreatedBy: userID, Newest: true})
	if err != nil {
		return nil, fmt.Errorf("list created events: %w", err)
	}
	if events == nil {
		events = []model.EventSummary{}
	}
	return events, nil
}
