package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/model"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// SQLiteStore persists events and registrations in one SQLite file. The
// handle must come from database.OpenSQLite so that every transaction starts
// with BEGIN IMMEDIATE: SQLite has no row locks, so a scope holds the
// database write lock from Begin until it ends.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an opened SQLite handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Create inserts a new event.
func (s *SQLiteStore) Create(ctx context.Context, event *model.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, title, description, date_time, location, max_capacity, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Title, event.Description, toMillis(event.DateTime), event.Location,
		event.MaxCapacity, event.CreatedBy, toMillis(event.CreatedAt),
	)
	if err != nil {
		return classifySQLiteError("insert event", err)
	}
	return nil
}

// GetByID returns a single event or ErrNotFound.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*model.Event, error) {
	return getSQLiteEvent(ctx, s.db, id)
}

// List returns events with their active registration counts.
func (s *SQLiteStore) List(ctx context.Context, filter model.EventFilter) ([]model.EventSummary, error) {
	var (
		conds []string
		args  []any
	)
	if !filter.From.IsZero() {
		conds = append(conds, "e.date_time >= ?")
		args = append(args, toMillis(filter.From))
	}
	if filter.CreatedBy != "" {
		conds = append(conds, "e.created_by = ?")
		args = append(args, filter.CreatedBy)
	}

	query := `SELECT e.id, e.title, e.description, e.date_time, e.location, e.max_capacity, e.created_by, e.created_at,
	                 COALESCE(SUM(CASE WHEN r.status = 'registered' THEN 1 ELSE 0 END), 0)
	          FROM events e
	          LEFT JOIN registrations r ON r.event_id = e.id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " GROUP BY e.id ORDER BY e.date_time " + sortOrder(filter.Newest)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifySQLiteError("list events", err)
	}
	defer rows.Close()

	var out []model.EventSummary
	for rows.Next() {
		var (
			e                   model.Event
			dateTime, createdAt int64
			active              int
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &dateTime, &e.Location,
			&e.MaxCapacity, &e.CreatedBy, &createdAt, &active); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.DateTime = fromMillis(dateTime)
		e.CreatedAt = fromMillis(createdAt)
		out = append(out, model.NewEventSummary(e, active))
	}
	return out, rows.Err()
}

// Begin starts an immediate-mode transaction, waiting at most the configured
// busy timeout for the write lock.
func (s *SQLiteStore) Begin(ctx context.Context) (Scope, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classifySQLiteError("begin transaction", err)
	}
	return &sqliteScope{tx: tx}, nil
}

// CountActive counts registered rows for an event outside any scope.
func (s *SQLiteStore) CountActive(ctx context.Context, eventID string) (int, error) {
	return countSQLiteActive(ctx, s.db, eventID)
}

// ListByUser returns a user's registrations joined with their events, newest first.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string) ([]model.UserRegistration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.user_id, r.event_id, r.status, r.registration_date, e.title, e.date_time, e.location
		 FROM registrations r
		 JOIN events e ON e.id = r.event_id
		 WHERE r.user_id = ?
		 ORDER BY r.registration_date DESC`,
		userID,
	)
	if err != nil {
		return nil, classifySQLiteError("list registrations", err)
	}
	defer rows.Close()

	var out []model.UserRegistration
	for rows.Next() {
		var (
			ur                model.UserRegistration
			status            string
			regDate, dateTime int64
		)
		if err := rows.Scan(&ur.ID, &ur.UserID, &ur.EventID, &status, &regDate,
			&ur.Title, &dateTime, &ur.Location); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		ur.Status = model.RegistrationStatus(status)
		ur.RegistrationDate = fromMillis(regDate)
		ur.DateTime = fromMillis(dateTime)
		out = append(out, ur)
	}
	return out, rows.Err()
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type sqliteScope struct {
	tx *sql.Tx
}

// LockEvent reads the event. The write lock was already taken by Begin.
func (s *sqliteScope) LockEvent(ctx context.Context, eventID string) (*model.Event, error) {
	return getSQLiteEvent(ctx, s.tx, eventID)
}

func (s *sqliteScope) CountActive(ctx context.Context, eventID string) (int, error) {
	return countSQLiteActive(ctx, s.tx, eventID)
}

func (s *sqliteScope) FindRegistration(ctx context.Context, userID, eventID string) (*model.Registration, error) {
	return scanSQLiteRegistration(s.tx.QueryRowContext(ctx,
		`SELECT id, user_id, event_id, status, registration_date
		 FROM registrations
		 WHERE user_id = ? AND event_id = ?`,
		userID, eventID,
	), "find registration")
}

func (s *sqliteScope) InsertRegistration(ctx context.Context, reg *model.Registration) error {
	_, err := s.tx.ExecContext(ctx,
		`INSERT INTO registrations (id, user_id, event_id, status, registration_date)
		 VALUES (?, ?, ?, ?, ?)`,
		reg.ID, reg.UserID, reg.EventID, string(reg.Status), toMillis(reg.RegistrationDate),
	)
	if err != nil {
		return classifySQLiteError("insert registration", err)
	}
	return nil
}

func (s *sqliteScope) UpdateRegistrationStatus(ctx context.Context, id string, status model.RegistrationStatus, at time.Time) (*model.Registration, error) {
	res, err := s.tx.ExecContext(ctx,
		`UPDATE registrations SET status = ?, registration_date = ? WHERE id = ?`,
		string(status), toMillis(at), id,
	)
	if err != nil {
		return nil, classifySQLiteError("update registration", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return scanSQLiteRegistration(s.tx.QueryRowContext(ctx,
		`SELECT id, user_id, event_id, status, registration_date FROM registrations WHERE id = ?`,
		id,
	), "reload registration")
}

func (s *sqliteScope) Commit(ctx context.Context) error {
	if err := s.tx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			// database/sql rolls the transaction back itself once ctx expires.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("commit transaction: %w: %w", ErrLockTimeout, ctxErr)
			}
			return ErrScopeClosed
		}
		return classifySQLiteError("commit transaction", err)
	}
	return nil
}

func (s *sqliteScope) Rollback(ctx context.Context) error {
	if err := s.tx.Rollback(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return ErrScopeClosed
		}
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// sqlQuerier is satisfied by *sql.DB and *sql.Tx.
type sqlQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getSQLiteEvent(ctx context.Context, q sqlQuerier, id string) (*model.Event, error) {
	var (
		e                   model.Event
		dateTime, createdAt int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, title, description, date_time, location, max_capacity, created_by, created_at
		 FROM events WHERE id = ?`,
		id,
	).Scan(&e.ID, &e.Title, &e.Description, &dateTime, &e.Location, &e.MaxCapacity, &e.CreatedBy, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classifySQLiteError("get event", err)
	}
	e.DateTime = fromMillis(dateTime)
	e.CreatedAt = fromMillis(createdAt)
	return &e, nil
}

func countSQLiteActive(ctx context.Context, q sqlQuerier, eventID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = ? AND status = 'registered'`,
		eventID,
	).Scan(&n)
	if err != nil {
		return 0, classifySQLiteError("count active registrations", err)
	}
	return n, nil
}

func scanSQLiteRegistration(row *sql.Row, op string) (*model.Registration, error) {
	var (
		reg     model.Registration
		status  string
		regDate int64
	)
	if err := row.Scan(&reg.ID, &reg.UserID, &reg.EventID, &status, &regDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classifySQLiteError(op, err)
	}
	reg.Status = model.RegistrationStatus(status)
	reg.RegistrationDate = fromMillis(regDate)
	return &reg, nil
}

func classifySQLiteError(op string, err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		switch {
		case code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%s: %w: %w", op, ErrConstraintViolation, err)
		case code&0xff == sqlite3lib.SQLITE_BUSY, code&0xff == sqlite3lib.SQLITE_LOCKED:
			return fmt.Errorf("%s: %w: %w", op, ErrLockTimeout, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", op, ErrLockTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var (
	_ EventCatalog = (*SQLiteStore)(nil)
	_ Ledger       = (*SQLiteStore)(nil)
)
