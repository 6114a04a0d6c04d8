package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

// TeamMemberRepository implements persistence.TeamMemberRepository using SQLite.
type TeamMemberRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewTeamMemberRepository creates a new SQLite team member repository.
func NewTeamMemberRepository(pool *ConnectionPool) *TeamMemberRepository {
	return &TeamMemberRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const memberColumns = `id, name, email, active, meeting_count, access_token, refresh_token, calendar_id, calendar_sync_enabled, created_at`

// CreateTeamMember inserts a new team member into the database.
func (r *TeamMemberRepository) CreateTeamMember(ctx context.Context, member persistence.TeamMember) error {
	if member.ID == "" {
		return persistence.ErrConstraintViolation
	}

	if member.CreatedAt.IsZero() {
		member.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO team_members (` + memberColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		member.ID,
		member.Name,
		normalizeEmail(member.Email),
		member.Active,
		member.MeetingCount,
		member.AccessToken,
		member.RefreshToken,
		member.CalendarID,
		member.CalendarSyncEnabled,
		member.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetTeamMember retrieves a team member by ID from the database.
func (r *TeamMemberRepository) GetTeamMember(ctx context.Context, id string) (persistence.TeamMember, error) {
	if id == "" {
		return persistence.TeamMember{}, persistence.ErrNotFound
	}

	query := `SELECT ` + memberColumns + ` FROM team_members WHERE id = ?`
	return r.scanMember(r.helper.QueryRow(ctx, query, id))
}

// GetTeamMemberByEmail retrieves a team member by email address from the database.
func (r *TeamMemberRepository) GetTeamMemberByEmail(ctx context.Context, email string) (persistence.TeamMember, error) {
	if email == "" {
		return persistence.TeamMember{}, persistence.ErrNotFound
	}

	query := `SELECT ` + memberColumns + ` FROM team_members WHERE email = ?`
	return r.scanMember(r.helper.QueryRow(ctx, query, normalizeEmail(email)))
}

// ListActiveTeamMembers returns active members ordered by ascending meeting
// count, ties broken by ID.
func (r *TeamMemberRepository) ListActiveTeamMembers(ctx context.Context) ([]persistence.TeamMember, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM team_members
		WHERE active = 1
		ORDER BY meeting_count ASC, id ASC
	`
	return r.queryMembers(ctx, query)
}

// ListCalendarMembers returns active members that have calendar sync enabled
// and a stored access token.
func (r *TeamMemberRepository) ListCalendarMembers(ctx context.Context) ([]persistence.TeamMember, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM team_members
		WHERE active = 1 AND calendar_sync_enabled = 1 AND access_token IS NOT NULL
		ORDER BY meeting_count ASC, id ASC
	`
	return r.queryMembers(ctx, query)
}

// UpdateCalendarCredential stores a calendar credential for the member and
// enables calendar sync.
func (r *TeamMemberRepository) UpdateCalendarCredential(ctx context.Context, id string, accessToken, refreshToken, calendarID string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE team_members
		SET access_token = ?, refresh_token = ?, calendar_id = ?, calendar_sync_enabled = 1
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query, accessToken, refreshToken, calendarID, id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

func (r *TeamMemberRepository) queryMembers(ctx context.Context, query string, args ...interface{}) ([]persistence.TeamMember, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var members []persistence.TeamMember
	for rows.Next() {
		member, err := scanMemberRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return members, nil
}

func (r *TeamMemberRepository) scanMember(row *sql.Row) (persistence.TeamMember, error) {
	member, err := scanMemberRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.TeamMember{}, persistence.ErrNotFound
		}
		return persistence.TeamMember{}, r.mapper.MapError(err)
	}
	return member, nil
}

func scanMemberRow(scan func(dest ...interface{}) error) (persistence.TeamMember, error) {
	var member persistence.TeamMember
	var accessToken, refreshToken, calendarID sql.NullString
	var createdAtStr string

	err := scan(
		&member.ID,
		&member.Name,
		&member.Email,
		&member.Active,
		&member.MeetingCount,
		&accessToken,
		&refreshToken,
		&calendarID,
		&member.CalendarSyncEnabled,
		&createdAtStr,
	)
	if err != nil {
		return persistence.TeamMember{}, err
	}

	if accessToken.Valid {
		member.AccessToken = &accessToken.String
	}
	if refreshToken.Valid {
		member.RefreshToken = &refreshToken.String
	}
	if calendarID.Valid {
		member.CalendarID = &calendarID.String
	}

	if member.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.TeamMember{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return member, nil
}

// normalizeEmail normalizes email addresses for consistent storage and lookup.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
