// Package repository implements the event catalog and the registration
// ledger. Three backends share one contract: PostgreSQL (pgx, row-level event
// locks), SQLite (modernc, immediate-mode transactions) and an in-process
// memory store.
package repository

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/model"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConstraintViolation is returned when a write breaks a uniqueness
	// constraint, e.g. a second registration row for the same user and event.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrLockTimeout is returned when a scope or the lock it needs could not
	// be obtained in time.
	ErrLockTimeout = errors.New("lock not available")

	// ErrScopeClosed is returned when a scope is used after commit or rollback.
	ErrScopeClosed = errors.New("scope already closed")
)

// EventCatalog is the read side of event metadata plus creation.
type EventCatalog interface {
	Create(ctx context.Context, event *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	// List returns events with their active registration counts. Counts are
	// read without locks and may be briefly stale.
	List(ctx context.Context, filter model.EventFilter) ([]model.EventSummary, error)
}

// Ledger is the durable store of registration rows.
type Ledger interface {
	// Begin opens an atomic scope. Every write made through the scope is
	// applied on Commit or discarded on Rollback.
	Begin(ctx context.Context) (Scope, error)
	// CountActive is an unlocked count for display purposes.
	CountActive(ctx context.Context, eventID string) (int, error)
	ListByUser(ctx context.Context, userID string) ([]model.UserRegistration, error)
}

// Scope is one atomic unit of work against the ledger and the catalog.
type Scope interface {
	// LockEvent reads the event and holds its write lock until the scope
	// ends, serialising every other scope that locks the same event.
	LockEvent(ctx context.Context, eventID string) (*model.Event, error)
	CountActive(ctx context.Context, eventID string) (int, error)
	FindRegistration(ctx context.Context, userID, eventID string) (*model.Registration, error)
	InsertRegistration(ctx context.Context, reg *model.Registration) error
	UpdateRegistrationStatus(ctx context.Context, id string, status model.RegistrationStatus, at time.Time) (*model.Registration, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// WithinScope runs fn inside a new scope. The scope is committed when fn
// returns nil and rolled back otherwise, including when fn panics.
func WithinScope(ctx context.Context, ledger Ledger, fn func(Scope) error) (err error) {
	scope, err := ledger.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = scope.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			if rbErr := scope.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, ErrScopeClosed) {
				log.Printf("[ledger] rollback failed: %v", rbErr)
			}
		}
	}()

	if err = fn(scope); err != nil {
		return err
	}
	return scope.Commit(ctx)
}
