package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/model"
)

type pairKey struct {
	userID  string
	eventID string
}

// MemoryStore is an in-process catalog and ledger. Each event has its own
// lock, so scopes on different events never wait for one another. Writes made
// in a scope are buffered and applied atomically at Commit.
type MemoryStore struct {
	mu            sync.RWMutex
	events        map[string]model.Event
	registrations map[string]model.Registration
	byPair        map[pairKey]string

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:        make(map[string]model.Event),
		registrations: make(map[string]model.Registration),
		byPair:        make(map[pairKey]string),
		locks:         make(map[string]chan struct{}),
	}
}

// Create inserts a new event.
func (m *MemoryStore) Create(ctx context.Context, event *model.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[event.ID]; ok {
		return fmt.Errorf("insert event: %w", ErrConstraintViolation)
	}
	m.events[event.ID] = *event
	return nil
}

// GetByID returns a single event or ErrNotFound.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

// List returns events with their active registration counts.
func (m *MemoryStore) List(ctx context.Context, filter model.EventFilter) ([]model.EventSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	active := make(map[string]int)
	for _, r := range m.registrations {
		if r.IsActive() {
			active[r.EventID]++
		}
	}

	var out []model.EventSummary
	for _, e := range m.events {
		if !filter.From.IsZero() && e.DateTime.Before(filter.From) {
			continue
		}
		if filter.CreatedBy != "" && e.CreatedBy != filter.CreatedBy {
			continue
		}
		out = append(out, model.NewEventSummary(e, active[e.ID]))
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.Newest {
			return out[i].DateTime.After(out[j].DateTime)
		}
		return out[i].DateTime.Before(out[j].DateTime)
	})
	return out, nil
}

// Begin opens a scope. Locks are taken lazily by LockEvent.
func (m *MemoryStore) Begin(ctx context.Context) (Scope, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("begin scope: %w: %w", ErrLockTimeout, err)
	}
	return &memoryScope{
		store:   m,
		updates: make(map[string]model.Registration),
	}, nil
}

// CountActive counts registered rows for an event outside any scope.
func (m *MemoryStore) CountActive(ctx context.Context, eventID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.registrations {
		if r.EventID == eventID && r.IsActive() {
			n++
		}
	}
	return n, nil
}

// ListByUser returns a user's registrations joined with their events, newest first.
func (m *MemoryStore) ListByUser(ctx context.Context, userID string) ([]model.UserRegistration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.UserRegistration
	for _, r := range m.registrations {
		if r.UserID != userID {
			continue
		}
		e, ok := m.events[r.EventID]
		if !ok {
			continue
		}
		out = append(out, model.UserRegistration{
			Registration: r,
			Title:        e.Title,
			DateTime:     e.DateTime,
			Location:     e.Location,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RegistrationDate.After(out[j].RegistrationDate)
	})
	return out, nil
}

func (m *MemoryStore) eventLock(eventID string) chan struct{} {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	ch, ok := m.locks[eventID]
	if !ok {
		ch = make(chan struct{}, 1)
		m.locks[eventID] = ch
	}
	return ch
}

// memoryScope buffers inserts and status updates until Commit.
type memoryScope struct {
	store   *MemoryStore
	held    []chan struct{}
	inserts []model.Registration
	updates map[string]model.Registration
	closed  bool
}

func (s *memoryScope) LockEvent(ctx context.Context, eventID string) (*model.Event, error) {
	if s.closed {
		return nil, ErrScopeClosed
	}
	lock := s.store.eventLock(eventID)
	if !s.holds(lock) {
		select {
		case lock <- struct{}{}:
			s.held = append(s.held, lock)
		case <-ctx.Done():
			return nil, fmt.Errorf("lock event %s: %w: %w", eventID, ErrLockTimeout, ctx.Err())
		}
	}

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	e, ok := s.store.events[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *memoryScope) CountActive(ctx context.Context, eventID string) (int, error) {
	if s.closed {
		return 0, ErrScopeClosed
	}
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	n := 0
	for id, r := range s.store.registrations {
		if u, ok := s.updates[id]; ok {
			r = u
		}
		if r.EventID == eventID && r.IsActive() {
			n++
		}
	}
	for _, r := range s.inserts {
		if u, ok := s.updates[r.ID]; ok {
			r = u
		}
		if r.EventID == eventID && r.IsActive() {
			n++
		}
	}
	return n, nil
}

func (s *memoryScope) FindRegistration(ctx context.Context, userID, eventID string) (*model.Registration, error) {
	if s.closed {
		return nil, ErrScopeClosed
	}
	for _, r := range s.inserts {
		if r.UserID == userID && r.EventID == eventID {
			return s.withUpdate(r), nil
		}
	}

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	id, ok := s.store.byPair[pairKey{userID: userID, eventID: eventID}]
	if !ok {
		return nil, ErrNotFound
	}
	return s.withUpdate(s.store.registrations[id]), nil
}

func (s *memoryScope) InsertRegistration(ctx context.Context, reg *model.Registration) error {
	if s.closed {
		return ErrScopeClosed
	}
	key := pairKey{userID: reg.UserID, eventID: reg.EventID}
	for _, r := range s.inserts {
		if r.ID == reg.ID || (r.UserID == reg.UserID && r.EventID == reg.EventID) {
			return fmt.Errorf("insert registration: %w", ErrConstraintViolation)
		}
	}

	s.store.mu.RLock()
	_, pairTaken := s.store.byPair[key]
	_, idTaken := s.store.registrations[reg.ID]
	s.store.mu.RUnlock()
	if pairTaken || idTaken {
		return fmt.Errorf("insert registration: %w", ErrConstraintViolation)
	}

	s.inserts = append(s.inserts, *reg)
	return nil
}

func (s *memoryScope) UpdateRegistrationStatus(ctx context.Context, id string, status model.RegistrationStatus, at time.Time) (*model.Registration, error) {
	if s.closed {
		return nil, ErrScopeClosed
	}
	var (
		current model.Registration
		found   bool
	)
	if u, ok := s.updates[id]; ok {
		current, found = u, true
	}
	if !found {
		for _, r := range s.inserts {
			if r.ID == id {
				current, found = r, true
				break
			}
		}
	}
	if !found {
		s.store.mu.RLock()
		current, found = s.store.registrations[id]
		s.store.mu.RUnlock()
	}
	if !found {
		return nil, ErrNotFound
	}

	current.Status = status
	current.RegistrationDate = at
	s.updates[id] = current
	out := current
	return &out, nil
}

// Commit applies buffered writes under the store lock. The uniqueness of
// (user, event) is re-checked here, so two scopes that skipped LockEvent
// still cannot both insert the same pair.
func (s *memoryScope) Commit(ctx context.Context) error {
	if s.closed {
		return ErrScopeClosed
	}
	defer s.release()

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	for _, r := range s.inserts {
		key := pairKey{userID: r.UserID, eventID: r.EventID}
		if _, ok := s.store.byPair[key]; ok {
			return fmt.Errorf("commit: %w", ErrConstraintViolation)
		}
	}
	for _, r := range s.inserts {
		if u, ok := s.updates[r.ID]; ok {
			r = u
		}
		s.store.registrations[r.ID] = r
		s.store.byPair[pairKey{userID: r.UserID, eventID: r.EventID}] = r.ID
	}
	for id, u := range s.updates {
		if _, ok := s.store.registrations[id]; ok {
			s.store.registrations[id] = u
		}
	}
	return nil
}

func (s *memoryScope) Rollback(ctx context.Context) error {
	if s.closed {
		return ErrScopeClosed
	}
	s.release()
	return nil
}

func (s *memoryScope) withUpdate(r model.Registration) *model.Registration {
	if u, ok := s.updates[r.ID]; ok {
		r = u
	}
	return &r
}

func (s *memoryScope) holds(lock chan struct{}) bool {
	for _, h := range s.held {
		if h == lock {
			return true
		}
	}
	return false
}

func (s *memoryScope) release() {
	s.closed = true
	s.inserts = nil
	s.updates = nil
	for i := len(s.held) - 1; i >= 0; i-- {
		<-s.held[i]
	}
	s.held = nil
}

var (
	_ EventCatalog = (*MemoryStore)(nil)
	_ Ledger       = (*MemoryStore)(nil)
)
