package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateSession inserts a new session into the database.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" || session.Token == "" {
		return persistence.ErrConstraintViolation
	}

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sessions (id, member_id, token, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		session.ID,
		session.MemberID,
		session.Token,
		session.ExpiresAt.UTC().Format(time.RFC3339),
		session.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetSession retrieves a session by its token.
func (r *SessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	if token == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, member_id, token, expires_at, created_at
		FROM sessions
		WHERE token = ?
	`

	var session persistence.Session
	var expiresAtStr, createdAtStr string

	err := r.helper.QueryRow(ctx, query, token).Scan(
		&session.ID,
		&session.MemberID,
		&session.Token,
		&expiresAtStr,
		&createdAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Session{}, persistence.ErrNotFound
		}
		return persistence.Session{}, r.mapper.MapError(err)
	}

	if session.ExpiresAt, err = time.Parse(time.RFC3339, expiresAtStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	if session.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return session, nil
}

// DeleteExpiredSessions removes sessions whose expiry is at or before the
// reference time and reports how many were removed.
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error) {
	result, err := r.helper.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, reference.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, r.mapper.MapError(err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return removed, nil
}
