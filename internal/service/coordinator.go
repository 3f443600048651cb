package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/model"
	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/notify"
	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/repository"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Shivanand-hulikatti/event-reg-coordinator/internal/service"

// RegisterResult is the outcome of a successful Register call.
type RegisterResult struct {
	Registration *model.Registration
	// Created is true when a new row was inserted and false when a cancelled
	// row was re-activated.
	Created bool
}

// Coordinator decides registrations and cancellations. Each decision runs in
// one ledger scope that holds the event lock, so the capacity check and the
// write it guards cannot interleave with another decision on the same event.
type Coordinator struct {
	ledger      repository.Ledger
	publisher   notify.Publisher
	lockTimeout time.Duration
	now         func() time.Time
	tracer      trace.Tracer
}

// NewCoordinator constructs a Coordinator. lockTimeout bounds each decision;
// zero leaves the caller's context deadline in charge.
func NewCoordinator(ledger repository.Ledger, publisher notify.Publisher, lockTimeout time.Duration) *Coordinator {
	if publisher == nil {
		publisher = notify.Noop{}
	}
	return &Coordinator{
		ledger:      ledger,
		publisher:   publisher,
		lockTimeout: lockTimeout,
		now:         time.Now,
		tracer:      otel.Tracer(tracerName),
	}
}

// Register registers callerID for eventID.
//
// Under the event lock it counts active registrations and rejects the call
// with ErrCapacityExceeded when the event is full. Otherwise a missing row is
// inserted, a cancelled row is re-activated in place and an active row yields
// ErrAlreadyRegistered.
func (c *Coordinator) Register(ctx context.Context, callerID, eventID string) (RegisterResult, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.Register", trace.WithAttributes(
		attribute.String("event.id", eventID),
		attribute.String("user.id", callerID),
	))
	defer span.End()

	scopeCtx, cancel := c.withLockTimeout(ctx)
	defer cancel()

	var result RegisterResult
	err := repository.WithinScope(scopeCtx, c.ledger, func(s repository.Scope) error {
		event, err := s.LockEvent(scopeCtx, eventID)
		if err != nil {
			return err
		}
		active, err := s.CountActive(scopeCtx, eventID)
		if err != nil {
			return err
		}
		if event.IsFull(active) {
			return ErrCapacityExceeded
		}

		existing, err := s.FindRegistration(scopeCtx, callerID, eventID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			reg := &model.Registration{
				ID:               uuid.NewString(),
				UserID:           callerID,
				EventID:          eventID,
				Status:           model.StatusRegistered,
				RegistrationDate: c.now().UTC(),
			}
			if err := s.InsertRegistration(scopeCtx, reg); err != nil {
				return err
			}
			result = RegisterResult{Registration: reg, Created: true}
			return nil
		case err != nil:
			return err
		case existing.IsActive():
			return ErrAlreadyRegistered
		}

		reg, err := s.UpdateRegistrationStatus(scopeCtx, existing.ID, model.StatusRegistered, c.now().UTC())
		if err != nil {
			return err
		}
		result = RegisterResult{Registration: reg}
		return nil
	})
	if err != nil {
		err = classifyLedgerError(err, ErrEventNotFound)
		recordOutcome(span, err)
		return RegisterResult{}, err
	}

	kind := notify.KindReactivated
	if result.Created {
		kind = notify.KindCreated
	}
	span.SetAttributes(attribute.String("registration.outcome", string(kind)))
	c.publish(ctx, kind, result.Registration)
	return result, nil
}

// Cancel cancels callerID's active registration for eventID. The row is kept
// with status cancelled so a later Register re-activates it.
func (c *Coordinator) Cancel(ctx context.Context, callerID, eventID string) (*model.Registration, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.Cancel", trace.WithAttributes(
		attribute.String("event.id", eventID),
		attribute.String("user.id", callerID),
	))
	defer span.End()

	scopeCtx, cancel := c.withLockTimeout(ctx)
	defer cancel()

	var cancelled *model.Registration
	err := repository.WithinScope(scopeCtx, c.ledger, func(s repository.Scope) error {
		// Locking the event orders the freed slot against concurrent registrations.
		if _, err := s.LockEvent(scopeCtx, eventID); err != nil {
			return err
		}
		existing, err := s.FindRegistration(scopeCtx, callerID, eventID)
		if err != nil {
			return err
		}
		if !existing.IsActive() {
			return ErrNoActiveRegistration
		}
		cancelled, err = s.UpdateRegistrationStatus(scopeCtx, existing.ID, model.StatusCancelled, c.now().UTC())
		return err
	})
	if err != nil {
		err = classifyLedgerError(err, ErrNoActiveRegistration)
		recordOutcome(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("registration.outcome", string(notify.KindCancelled)))
	c.publish(ctx, notify.KindCancelled, cancelled)
	return cancelled, nil
}

// ListUserRegistrations returns userID's registrations with event details.
// Callers may only read their own.
func (c *Coordinator) ListUserRegistrations(ctx context.Context, callerID, userID string) ([]model.UserRegistration, error) {
	if callerID != userID {
		return nil, ErrForbidden
	}
	regs, err := c.ledger.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	if regs == nil {
		regs = []model.UserRegistration{}
	}
	return regs, nil
}

func (c *Coordinator) withLockTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.lockTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.lockTimeout)
}

// publish runs after commit, so a delivery failure is only logged.
func (c *Coordinator) publish(ctx context.Context, kind notify.Kind, reg *model.Registration) {
	n := notify.Notification{
		ID:           uuid.NewString(),
		Kind:         kind,
		Timestamp:    c.now().UTC(),
		Registration: *reg,
	}
	if err := c.publisher.Publish(context.WithoutCancel(ctx), n); err != nil {
		log.Printf("[coordinator] publish %s for registration %s failed: %v", kind, reg.ID, err)
	}
}

// classifyLedgerError turns a scope failure into a domain error. notFound is
// what a missing row means for the operation at hand.
func classifyLedgerError(err, notFound error) error {
	switch {
	case errors.Is(err, ErrCapacityExceeded),
		errors.Is(err, ErrAlreadyRegistered),
		errors.Is(err, ErrNoActiveRegistration):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return notFound
	case errors.Is(err, repository.ErrConstraintViolation):
		return ErrAlreadyRegistered
	case errors.Is(err, repository.ErrLockTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return fmt.Errorf("ledger: %w", err)
}

func recordOutcome(span trace.Span, err error) {
	span.SetAttributes(attribute.String("registration.outcome", err.Error()))
	if errors.Is(err, ErrTransient) || !isDomainError(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrEventNotFound, ErrCapacityExceeded, ErrAlreadyRegistered,
		ErrNoActiveRegistration, ErrForbidden, ErrInvalidEvent,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
