package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/wricardo/voting-session/voting/model"
)

// Drivers accepted by OpenSQL. The caller must blank-import the driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

// SQLStore implements Store on database/sql. Queries use $N placeholders,
// which SQLite, lib/pq and pgx all accept.
type SQLStore struct {
	db *sql.DB
}

// OpenSQL opens dsn with driver, verifies the connection and creates the schema
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite, DriverPostgres, DriverPgx:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// One connection so an in-memory database is shared by every query
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	s, err := NewSQLStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database and creates the schema
func NewSQLStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	if err := CreateSchema(ctx, db); err != nil {
		return nil, err
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) CreateSession(ctx context.Context, sess *model.Session) error {
	sess.AccessCode = model.NormalizeAccessCode(sess.AccessCode)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO voting_session (id, access_code, active, created_at, closed_at) VALUES ($1, $2, $3, $4, $5)`,
		sess.ID, sess.AccessCode, sess.Active, sess.CreatedAt.UTC(), nullTime(sess.ClosedAt))
	if isUniqueViolation(err) {
		return ErrAccessCodeTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (s *SQLStore) GetSessionByCode(ctx context.Context, accessCode string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, access_code, active, created_at, closed_at FROM voting_session WHERE access_code = $1`,
		model.NormalizeAccessCode(accessCode))
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return sess, nil
}

func (s *SQLStore) ListSessions(ctx context.Context) ([]*model.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, access_code, active, created_at, closed_at FROM voting_session ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var result []*model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		result = append(result, sess)
	}
	return result, rows.Err()
}

func (s *SQLStore) CloseSession(ctx context.Context, accessCode string, closedAt time.Time) (*model.Session, error) {
	code := model.NormalizeAccessCode(accessCode)
	_, err := s.db.ExecContext(ctx,
		`UPDATE voting_session SET active = $1, closed_at = $2 WHERE access_code = $3 AND active = $4`,
		false, closedAt.UTC(), code, true)
	if err != nil {
		return nil, fmt.Errorf("failed to close session: %w", err)
	}
	return s.GetSessionByCode(ctx, code)
}

func (s *SQLStore) DeleteSession(ctx context.Context, accessCode string) error {
	sess, err := s.GetSessionByCode(ctx, accessCode)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM vote WHERE session_id = $1`,
		`DELETE FROM card WHERE session_id = $1`,
		`DELETE FROM participant WHERE session_id = $1`,
		`DELETE FROM voting_session WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, sess.ID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO participant (id, name, is_admin, session_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.IsAdmin, u.SessionID, u.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, is_admin, session_id, created_at FROM participant WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.IsAdmin, &u.SessionID, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

func (s *SQLStore) ListUsers(ctx context.Context, sessionID string) ([]*model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, is_admin, session_id, created_at FROM participant WHERE session_id = $1 ORDER BY created_at, id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var result []*model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.IsAdmin, &u.SessionID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		result = append(result, &u)
	}
	return result, rows.Err()
}

func (s *SQLStore) CreateCard(ctx context.Context, c *model.Card) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO card (id, title, description, session_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Title, c.Description, c.SessionID, c.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert card: %w", err)
	}
	return nil
}

func (s *SQLStore) GetCard(ctx context.Context, id string) (*model.Card, error) {
	var c model.Card
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, session_id, created_at FROM card WHERE id = $1`, id).
		Scan(&c.ID, &c.Title, &c.Description, &c.SessionID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query card: %w", err)
	}
	return &c, nil
}

func (s *SQLStore) ListCards(ctx context.Context, sessionID string) ([]*model.Card, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, session_id, created_at FROM card WHERE session_id = $1 ORDER BY created_at, id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var result []*model.Card
	for rows.Next() {
		var c model.Card
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.SessionID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}

func (s *SQLStore) CreateVote(ctx context.Context, v *model.Vote) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO vote (id, card_id, user_id, vote, session_id, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		v.ID, v.CardID, v.UserID, v.Vote, v.SessionID, v.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrDuplicateVote
	}
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}

func (s *SQLStore) ListVotes(ctx context.Context, sessionID string) ([]*model.Vote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, card_id, user_id, vote, session_id, created_at FROM vote WHERE session_id = $1 ORDER BY created_at, id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	var result []*model.Vote
	for rows.Next() {
		var v model.Vote
		if err := rows.Scan(&v.ID, &v.CardID, &v.UserID, &v.Vote, &v.SessionID, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		result = append(result, &v)
	}
	return result, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*model.Session, error) {
	var (
		sess     model.Session
		closedAt sql.NullTime
	)
	if err := row.Scan(&sess.ID, &sess.AccessCode, &sess.Active, &sess.CreatedAt, &closedAt); err != nil {
		return nil, err
	}
	if closedAt.Valid {
		t := closedAt.Time
		sess.ClosedAt = &t
	}
	return &sess, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// isUniqueViolation reports whether err is a unique constraint failure
// from any of the supported drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE")
		}
	}
	return false
}
