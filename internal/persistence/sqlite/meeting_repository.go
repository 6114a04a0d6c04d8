package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

// MeetingRepository implements persistence.MeetingRepository using SQLite.
type MeetingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewMeetingRepository creates a new SQLite meeting repository.
func NewMeetingRepository(pool *ConnectionPool) *MeetingRepository {
	return &MeetingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const meetingColumns = `id, customer_name, customer_email, title, description, start_time, end_time, status, assigned_to, external_event_id, created_at`

// CreateMeeting inserts a new meeting into the database.
func (r *MeetingRepository) CreateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	if meeting.ID == "" {
		return persistence.ErrConstraintViolation
	}

	if meeting.Status == "" {
		meeting.Status = persistence.MeetingStatusPending
	}
	if meeting.CreatedAt.IsZero() {
		meeting.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO meetings (` + meetingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		meeting.ID,
		meeting.CustomerName,
		normalizeEmail(meeting.CustomerEmail),
		meeting.Title,
		meeting.Description,
		meeting.Start.UTC().Format(time.RFC3339),
		meeting.End.UTC().Format(time.RFC3339),
		string(meeting.Status),
		meeting.AssignedTo,
		meeting.ExternalEventID,
		meeting.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetMeeting retrieves a meeting by ID from the database.
func (r *MeetingRepository) GetMeeting(ctx context.Context, id string) (persistence.Meeting, error) {
	if id == "" {
		return persistence.Meeting{}, persistence.ErrNotFound
	}

	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = ?`

	meeting, err := scanMeetingRow(r.helper.QueryRow(ctx, query, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Meeting{}, persistence.ErrNotFound
		}
		return persistence.Meeting{}, r.mapper.MapError(err)
	}
	return meeting, nil
}

// ListPendingMeetings returns pending meetings ordered by start time.
func (r *MeetingRepository) ListPendingMeetings(ctx context.Context) ([]persistence.Meeting, error) {
	query := `
		SELECT ` + meetingColumns + `
		FROM meetings
		WHERE status = ?
		ORDER BY start_time ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, string(persistence.MeetingStatusPending))
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var meetings []persistence.Meeting
	for rows.Next() {
		meeting, err := scanMeetingRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return meetings, nil
}

// ClaimMeeting atomically transitions a pending meeting to assigned and
// increments the claiming member's meeting count in the same transaction.
// The conditional update makes concurrent claims race-safe: exactly one
// claimer observes an affected row, every other one gets ErrAlreadyClaimed.
func (r *MeetingRepository) ClaimMeeting(ctx context.Context, meetingID, memberID string) error {
	if meetingID == "" || memberID == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(tx, `
			UPDATE meetings
			SET status = ?, assigned_to = ?
			WHERE id = ? AND status = ?
		`,
			string(persistence.MeetingStatusAssigned),
			memberID,
			meetingID,
			string(persistence.MeetingStatusPending),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			var status string
			err := r.helper.QueryRowTx(tx, `SELECT status FROM meetings WHERE id = ?`, meetingID).Scan(&status)
			if err == sql.ErrNoRows {
				return persistence.ErrNotFound
			}
			if err != nil {
				return r.mapper.MapError(err)
			}
			return persistence.ErrAlreadyClaimed
		}

		result, err = r.helper.ExecTx(tx, `
			UPDATE team_members
			SET meeting_count = meeting_count + 1
			WHERE id = ?
		`, memberID)
		if err != nil {
			return r.mapper.MapError(err)
		}

		rowsAffected, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}

		return nil
	})
}

// SetExternalEventID stores the calendar event identifier created for a meeting.
func (r *MeetingRepository) SetExternalEventID(ctx context.Context, meetingID, eventID string) error {
	if meetingID == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE meetings
		SET external_event_id = ?
		WHERE id = ?
	`, eventID, meetingID)
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

func scanMeetingRow(scan func(dest ...interface{}) error) (persistence.Meeting, error) {
	var meeting persistence.Meeting
	var status string
	var assignedTo, externalEventID sql.NullString
	var startStr, endStr, createdAtStr string

	err := scan(
		&meeting.ID,
		&meeting.CustomerName,
		&meeting.CustomerEmail,
		&meeting.Title,
		&meeting.Description,
		&startStr,
		&endStr,
		&status,
		&assignedTo,
		&externalEventID,
		&createdAtStr,
	)
	if err != nil {
		return persistence.Meeting{}, err
	}

	meeting.Status = persistence.MeetingStatus(status)
	if assignedTo.Valid {
		meeting.AssignedTo = &assignedTo.String
	}
	if externalEventID.Valid {
		meeting.ExternalEventID = &externalEventID.String
	}

	if meeting.Start, err = time.Parse(time.RFC3339, startStr); err != nil {
		return persistence.Meeting{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if meeting.End, err = time.Parse(time.RFC3339, endStr); err != nil {
		return persistence.Meeting{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if meeting.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Meeting{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return meeting, nil
}
