package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/volunteer-scheduler/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite
type SessionRepository struct {
	repositoryBase
}

var _ persistence.SessionRepository = (*SessionRepository)(nil)

// CreateSession stores a new session for a user
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	session.ID = strings.TrimSpace(session.ID)
	if session.ID == "" || session.UserID <= 0 {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	session.CreatedAt = session.CreatedAt.UTC()
	session.ExpiresAt = session.ExpiresAt.UTC()

	query := `
		INSERT INTO sessions (id, user_id, created_at, expires_at, revoked_at)
		VALUES (?, ?, ?, ?, ?)
	`

	err := r.retry.WithRetry(ctx, func() error {
		_, execErr := r.helper.Exec(ctx, query,
			session.ID,
			session.UserID,
			formatTime(session.CreatedAt),
			formatTime(session.ExpiresAt),
			nullableTime(session.RevokedAt),
		)
		return execErr
	})
	if err != nil {
		return persistence.Session{}, err
	}
	return session, nil
}

// GetSession retrieves a session by ID
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	var (
		session      persistence.Session
		createdAtStr string
		expiresAtStr string
		revokedAt    sql.NullString
	)
	err := r.helper.QueryRow(ctx,
		`SELECT id, user_id, created_at, expires_at, revoked_at FROM sessions WHERE id = ?`, id,
	).Scan(&session.ID, &session.UserID, &createdAtStr, &expiresAtStr, &revokedAt)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}

	if session.CreatedAt, err = parseTime(createdAtStr, "created_at"); err != nil {
		return persistence.Session{}, err
	}
	if session.ExpiresAt, err = parseTime(expiresAtStr, "expires_at"); err != nil {
		return persistence.Session{}, err
	}
	if revokedAt.Valid {
		t, err := parseTime(revokedAt.String, "revoked_at")
		if err != nil {
			return persistence.Session{}, err
		}
		session.RevokedAt = &t
	}
	return session, nil
}

// RevokeSession marks a session as revoked. Revoking twice keeps the first timestamp.
func (r *SessionRepository) RevokeSession(ctx context.Context, id string, revokedAt time.Time) (persistence.Session, error) {
	var result sql.Result
	err := r.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.helper.Exec(ctx,
			`UPDATE sessions SET revoked_at = COALESCE(revoked_at, ?) WHERE id = ?`,
			formatTime(revokedAt), strings.TrimSpace(id),
		)
		return execErr
	})
	if err != nil {
		return persistence.Session{}, err
	}
	if err := requireAffected(result); err != nil {
		return persistence.Session{}, err
	}
	return r.GetSession(ctx, id)
}

// DeleteExpiredSessions removes sessions that expired before reference
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error) {
	var result sql.Result
	err := r.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.helper.Exec(ctx,
			`DELETE FROM sessions WHERE expires_at < ?`, formatTime(reference))
		return execErr
	})
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}
