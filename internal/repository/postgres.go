package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes the ledger classifies.
const (
	pgUniqueViolation      = "23505"
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, event *model.Event) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, title, description, date_time, location, max_capacity, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.Title, event.Description, event.DateTime, event.Location,
		event.MaxCapacity, event.CreatedBy, event.CreatedAt,
	)
	if err != nil {
		return classifyPgError("insert event", err)
	}
	return nil
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT id, title, description, date_time, location, max_capacity, created_by, created_at
		 FROM events WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classifyPgError("get event", err)
	}
	return e, nil
}

// List returns events with their active registration counts.
func (r *EventRepository) List(ctx context.Context, filter model.EventFilter) ([]model.EventSummary, error) {
	var (
		conds []string
		args  []any
	)
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("e.date_time >= $%d", len(args)))
	}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		conds = append(conds, fmt.Sprintf("e.created_by = $%d", len(args)))
	}

	query := `SELECT e.id, e.title, e.description, e.date_time, e.location, e.max_capacity, e.created_by, e.created_at,
	                 COUNT(r.id) FILTER (WHERE r.status = 'registered')
	          FROM events e
	          LEFT JOIN registrations r ON r.event_id = e.id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " GROUP BY e.id ORDER BY e.date_time " + sortOrder(filter.Newest)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyPgError("list events", err)
	}
	defer rows.Close()

	var out []model.EventSummary
	for rows.Next() {
		var (
			e      model.Event
			active int
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.DateTime, &e.Location,
			&e.MaxCapacity, &e.CreatedBy, &e.CreatedAt, &active); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, model.NewEventSummary(e, active))
	}
	return out, rows.Err()
}

// RegistrationRepository is the PostgreSQL registration ledger.
type RegistrationRepository struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewRegistrationRepository constructs a RegistrationRepository. lockTimeout
// bounds how long a scope waits on a row lock held by another scope.
func NewRegistrationRepository(db *pgxpool.Pool, lockTimeout time.Duration) *RegistrationRepository {
	return &RegistrationRepository{db: db, lockTimeout: lockTimeout}
}

// Begin opens a READ COMMITTED transaction. Serialisation per event comes
// from the row lock taken by LockEvent, not from the isolation level: once
// the lock is granted every later statement in the transaction sees the
// previous holder's committed rows.
func (r *RegistrationRepository) Begin(ctx context.Context) (Scope, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, classifyPgError("begin transaction", err)
	}
	if r.lockTimeout > 0 {
		_, err = tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`,
			fmt.Sprintf("%dms", r.lockTimeout.Milliseconds()))
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			return nil, classifyPgError("set lock timeout", err)
		}
	}
	return &pgScope{tx: tx}, nil
}

// CountActive counts registered rows for an event without locking.
func (r *RegistrationRepository) CountActive(ctx context.Context, eventID string) (int, error) {
	return countActive(ctx, r.db, eventID)
}

// ListByUser returns a user's registrations joined with their events, newest first.
func (r *RegistrationRepository) ListByUser(ctx context.Context, userID string) ([]model.UserRegistration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.id, r.user_id, r.event_id, r.status, r.registration_date, e.title, e.date_time, e.location
		 FROM registrations r
		 JOIN events e ON e.id = r.event_id
		 WHERE r.user_id = $1
		 ORDER BY r.registration_date DESC`,
		userID,
	)
	if err != nil {
		return nil, classifyPgError("list registrations", err)
	}
	defer rows.Close()

	var out []model.UserRegistration
	for rows.Next() {
		var (
			ur     model.UserRegistration
			status string
		)
		if err := rows.Scan(&ur.ID, &ur.UserID, &ur.EventID, &status, &ur.RegistrationDate,
			&ur.Title, &ur.DateTime, &ur.Location); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		ur.Status = model.RegistrationStatus(status)
		out = append(out, ur)
	}
	return out, rows.Err()
}

// pgScope is one PostgreSQL transaction.
type pgScope struct {
	tx pgx.Tx
}

// LockEvent takes an exclusive row lock on the event with SELECT … FOR UPDATE.
// A concurrent scope locking the same event blocks here until this one
// commits or rolls back; scopes on other events are unaffected.
func (s *pgScope) LockEvent(ctx context.Context, eventID string) (*model.Event, error) {
	e, err := scanEvent(s.tx.QueryRow(ctx,
		`SELECT id, title, description, date_time, location, max_capacity, created_by, created_at
		 FROM events
		 WHERE id = $1
		 FOR UPDATE`,
		eventID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classifyPgError("lock event row", err)
	}
	return e, nil
}

func (s *pgScope) CountActive(ctx context.Context, eventID string) (int, error) {
	return countActive(ctx, s.tx, eventID)
}

func (s *pgScope) FindRegistration(ctx context.Context, userID, eventID string) (*model.Registration, error) {
	reg, err := scanRegistration(s.tx.QueryRow(ctx,
		`SELECT id, user_id, event_id, status, registration_date
		 FROM registrations
		 WHERE user_id = $1 AND event_id = $2`,
		userID, eventID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classifyPgError("find registration", err)
	}
	return reg, nil
}

func (s *pgScope) InsertRegistration(ctx context.Context, reg *model.Registration) error {
	_, err := s.tx.Exec(ctx,
		`INSERT INTO registrations (id, user_id, event_id, status, registration_date)
		 VALUES ($1, $2, $3, $4, $5)`,
		reg.ID, reg.UserID, reg.EventID, string(reg.Status), reg.RegistrationDate,
	)
	if err != nil {
		return classifyPgError("insert registration", err)
	}
	return nil
}

func (s *pgScope) UpdateRegistrationStatus(ctx context.Context, id string, status model.RegistrationStatus, at time.Time) (*model.Registration, error) {
	reg, err := scanRegistration(s.tx.QueryRow(ctx,
		`UPDATE registrations SET status = $1, registration_date = $2
		 WHERE id = $3
		 RETURNING id, user_id, event_id, status, registration_date`,
		string(status), at, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classifyPgError("update registration", err)
	}
	return reg, nil
}

func (s *pgScope) Commit(ctx context.Context) error {
	if err := s.tx.Commit(ctx); err != nil {
		if errors.Is(err, pgx.ErrTxClosed) {
			return ErrScopeClosed
		}
		return classifyPgError("commit transaction", err)
	}
	return nil
}

func (s *pgScope) Rollback(ctx context.Context) error {
	if err := s.tx.Rollback(ctx); err != nil {
		if errors.Is(err, pgx.ErrTxClosed) {
			return ErrScopeClosed
		}
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// querier is the subset of pgxpool.Pool and pgx.Tx used by shared helpers.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func countActive(ctx context.Context, q querier, eventID string) (int, error) {
	var n int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = 'registered'`,
		eventID,
	).Scan(&n)
	if err != nil {
		return 0, classifyPgError("count active registrations", err)
	}
	return n, nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	if err := row.Scan(&e.ID, &e.Title, &e.Description, &e.DateTime, &e.Location,
		&e.MaxCapacity, &e.CreatedBy, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var (
		reg    model.Registration
		status string
	)
	if err := row.Scan(&reg.ID, &reg.UserID, &reg.EventID, &status, &reg.RegistrationDate); err != nil {
		return nil, err
	}
	reg.Status = model.RegistrationStatus(status)
	return &reg, nil
}

// classifyPgError maps driver failures onto the ledger's typed errors so
// callers branch on kind rather than message text.
func classifyPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w: %w", op, ErrConstraintViolation, err)
		case pgLockNotAvailable, pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%s: %w: %w", op, ErrLockTimeout, err)
		}
	}
	if pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", op, ErrLockTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func sortOrder(newest bool) string {
	if newest {
		return "DESC"
	}
	return "ASC"
}

var (
	_ EventCatalog = (*EventRepository)(nil)
	_ Ledger       = (*RegistrationRepository)(nil)
)
