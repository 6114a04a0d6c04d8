package sqlite

import (
	"context"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

// SlotTemplateRepository implements persistence.SlotTemplateRepository using SQLite.
type SlotTemplateRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSlotTemplateRepository creates a new SQLite slot template repository.
func NewSlotTemplateRepository(pool *ConnectionPool) *SlotTemplateRepository {
	return &SlotTemplateRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateSlotTemplateEntry inserts a new weekly template entry into the database.
func (r *SlotTemplateRepository) CreateSlotTemplateEntry(ctx context.Context, entry persistence.SlotTemplateEntry) error {
	if entry.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO slot_templates (id, day_of_week, start_minute, end_minute, duration_minutes, active)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		entry.ID,
		int(entry.DayOfWeek),
		entry.StartMinute,
		entry.EndMinute,
		entry.DurationMinutes,
		entry.Active,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// ListActiveSlotTemplateEntries returns the full active template set ordered
// by weekday then start minute.
func (r *SlotTemplateRepository) ListActiveSlotTemplateEntries(ctx context.Context) ([]persistence.SlotTemplateEntry, error) {
	query := `
		SELECT id, day_of_week, start_minute, end_minute, duration_minutes, active
		FROM slot_templates
		WHERE active = 1
		ORDER BY day_of_week ASC, start_minute ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var entries []persistence.SlotTemplateEntry
	for rows.Next() {
		var entry persistence.SlotTemplateEntry
		var dayOfWeek int

		err := rows.Scan(
			&entry.ID,
			&dayOfWeek,
			&entry.StartMinute,
			&entry.EndMinute,
			&entry.DurationMinutes,
			&entry.Active,
		)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}

		entry.DayOfWeek = time.Weekday(dayOfWeek)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return entries, nil
}
