// Package postgres provides a Postgres-backed session store.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	apperrors "github.com/target/dirkeeper/internal/errors"
	"github.com/target/dirkeeper/internal/ports"
)

// ErrDuplicateSession is returned when saving over an existing id.
var ErrDuplicateSession = errors.New("session id already exists")

// SessionStore persists sessions in the sessions table. The full record is kept
// as JSONB; id, stage and expiry are broken out for lookups and sweeping.
type SessionStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a store over an open database handle (pgx stdlib driver).
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

const insertSessionSQL = `
INSERT INTO sessions (id, principal, auth_type, stage, payload, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	if !sess.Valid(s.now()) {
		return errors.New("session is expired")
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	created := sess.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err = s.db.ExecContext(ctx, insertSessionSQL,
		sess.ID, sess.Principal, string(sess.AuthType), string(sess.Stage), payload, created, sess.ExpiresAt)
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsConflict(mapped) {
			return ErrDuplicateSession
		}
		return fmt.Errorf("insert session: %w", mapped)
	}
	return nil
}

const selectSessionSQL = `SELECT payload FROM sessions WHERE id = $1 AND expires_at > $2`

func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, selectSessionSQL, id, s.now()).Scan(&payload)
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsNotFound(mapped) {
			return domainauth.Session{}, ports.ErrSessionNotFound
		}
		return domainauth.Session{}, fmt.Errorf("select session: %w", mapped)
	}
	var sess domainauth.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", apperrors.MapDBError(err))
	}
	return nil
}

// Sweep deletes expired rows and returns the count.
func (s *SessionStore) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", apperrors.MapDBError(err))
	}
	return res.RowsAffected()
}
