package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/volunteer-scheduler/internal/persistence"
)

// ScheduleRepository implements persistence.ScheduleRepository using SQLite
type ScheduleRepository struct {
	repositoryBase
}

var _ persistence.ScheduleRepository = (*ScheduleRepository)(nil)

const scheduleColumns = `
	s.id, s.department_id, s.sector, s.member_id, s.service_id, s.date, s.day_of_week,
	COALESCE(d.name, ''), COALESCE(m.name, ''), COALESCE(sv.name, ''),
	s.created_at, s.updated_at
`

const scheduleJoins = `
	FROM schedules s
	LEFT JOIN departments d ON d.id = s.department_id
	LEFT JOIN members m ON m.id = s.member_id
	LEFT JOIN services sv ON sv.id = s.service_id
`

// CreateSchedule inserts a schedule row. Conflict detection happens before
// this call; the table carries no uniqueness on the assignment triple.
func (r *ScheduleRepository) CreateSchedule(ctx context.Context, schedule persistence.Schedule) (persistence.Schedule, error) {
	createdAt := stamp(schedule.CreatedAt)
	updatedAt := stamp(schedule.UpdatedAt)

	query := `
		INSERT INTO schedules (department_id, sector, member_id, service_id, date, day_of_week, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var result sql.Result
	err := r.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.helper.Exec(ctx, query,
			schedule.DepartmentID,
			schedule.Sector,
			schedule.MemberID,
			schedule.ServiceID,
			schedule.Date,
			schedule.DayOfWeek,
			formatTime(createdAt),
			formatTime(updatedAt),
		)
		return execErr
	})
	if err != nil {
		return persistence.Schedule{}, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return persistence.Schedule{}, fmt.Errorf("failed to read schedule id: %w", err)
	}
	return r.GetSchedule(ctx, id)
}

// UpdateSchedule overwrites every editable column of a schedule
func (r *ScheduleRepository) UpdateSchedule(ctx context.Context, schedule persistence.Schedule) (persistence.Schedule, error) {
	query := `
		UPDATE schedules
		SET department_id = ?, sector = ?, member_id = ?, service_id = ?, date = ?, day_of_week = ?, updated_at = ?
		WHERE id = ?
	`

	var result sql.Result
	err := r.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.helper.Exec(ctx, query,
			schedule.DepartmentID,
			schedule.Sector,
			schedule.MemberID,
			schedule.ServiceID,
			schedule.Date,
			schedule.DayOfWeek,
			formatTime(stamp(schedule.UpdatedAt)),
			schedule.ID,
		)
		return execErr
	})
	if err != nil {
		return persistence.Schedule{}, err
	}
	if err := requireAffected(result); err != nil {
		return persistence.Schedule{}, err
	}

	return r.GetSchedule(ctx, schedule.ID)
}

// GetSchedule retrieves a schedule with its joined names
func (r *ScheduleRepository) GetSchedule(ctx context.Context, id int64) (persistence.Schedule, error) {
	query := `SELECT ` + scheduleColumns + scheduleJoins + ` WHERE s.id = ?`

	schedule, err := scanSchedule(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Schedule{}, r.mapper.MapError(err)
	}
	return schedule, nil
}

// ListSchedules returns schedules in the inclusive date range ordered by
// date, then service, then ID.
func (r *ScheduleRepository) ListSchedules(ctx context.Context, filter persistence.ScheduleFilter) ([]persistence.Schedule, error) {
	where, args, empty := buildScheduleWhere(filter)
	if empty {
		return []persistence.Schedule{}, nil
	}

	query := `SELECT ` + scheduleColumns + scheduleJoins + where + ` ORDER BY s.date ASC, s.service_id ASC, s.id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	schedules := make([]persistence.Schedule, 0)
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		schedules = append(schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return schedules, nil
}

// CountSchedules counts schedules matching the filter
func (r *ScheduleRepository) CountSchedules(ctx context.Context, filter persistence.ScheduleFilter) (int, error) {
	where, args, empty := buildScheduleWhere(filter)
	if empty {
		return 0, nil
	}
	return r.count(ctx, `SELECT COUNT(*) FROM schedules s`+where, args...)
}

// buildScheduleWhere renders the filter. empty reports a department
// restriction that can match nothing.
func buildScheduleWhere(filter persistence.ScheduleFilter) (string, []any, bool) {
	var (
		conditions []string
		args       []any
	)
	if filter.From != "" {
		conditions = append(conditions, "s.date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		conditions = append(conditions, "s.date <= ?")
		args = append(args, filter.To)
	}
	if filter.DepartmentIDs != nil {
		if len(filter.DepartmentIDs) == 0 {
			return "", nil, true
		}
		ids := uniqueIDs(filter.DepartmentIDs)
		conditions = append(conditions, "s.department_id IN ("+placeholders(len(ids))+")")
		args = append(args, int64Args(ids)...)
	}
	if len(conditions) == 0 {
		return "", nil, false
	}
	return " WHERE " + strings.Join(conditions, " AND "), args, false
}

// DeleteSchedule removes a schedule by ID
func (r *ScheduleRepository) DeleteSchedule(ctx context.Context, id int64) error {
	var result sql.Result
	err := r.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.helper.Exec(ctx, `DELETE FROM schedules WHERE id = ?`, id)
		return execErr
	})
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// FindAssignments returns every schedule for the member, service and date
func (r *ScheduleRepository) FindAssignments(ctx context.Context, memberID, serviceID int64, date string) ([]persistence.Schedule, error) {
	query := `SELECT ` + scheduleColumns + scheduleJoins + `
		WHERE s.member_id = ? AND s.service_id = ? AND s.date = ?
		ORDER BY s.id ASC`

	rows, err := r.helper.Query(ctx, query, memberID, serviceID, date)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	matches := make([]persistence.Schedule, 0)
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		matches = append(matches, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return matches, nil
}

// ListScheduleDays returns the stored date and weekday of every schedule
func (r *ScheduleRepository) ListScheduleDays(ctx context.Context) ([]persistence.ScheduleDay, error) {
	rows, err := r.helper.Query(ctx, `SELECT id, date, day_of_week FROM schedules ORDER BY id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	days := make([]persistence.ScheduleDay, 0)
	for rows.Next() {
		var day persistence.ScheduleDay
		if err := rows.Scan(&day.ID, &day.Date, &day.DayOfWeek); err != nil {
			return nil, r.mapper.MapError(err)
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return days, nil
}

// UpdateDayOfWeek rewrites the cached weekday of a single schedule. The row's
// updated_at is left alone since the assignment itself did not change.
func (r *ScheduleRepository) UpdateDayOfWeek(ctx context.Context, id int64, dayOfWeek int) error {
	var result sql.Result
	err := r.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.helper.Exec(ctx,
			`UPDATE schedules SET day_of_week = ? WHERE id = ?`,
			dayOfWeek, id,
		)
		return execErr
	})
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func scanSchedule(row rowScanner) (persistence.Schedule, error) {
	var (
		schedule     persistence.Schedule
		createdAtStr string
		updatedAtStr string
	)
	err := row.Scan(
		&schedule.ID,
		&schedule.DepartmentID,
		&schedule.Sector,
		&schedule.MemberID,
		&schedule.ServiceID,
		&schedule.Date,
		&schedule.DayOfWeek,
		&schedule.DepartmentName,
		&schedule.MemberName,
		&schedule.ServiceName,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Schedule{}, err
	}

	if schedule.CreatedAt, err = parseTime(createdAtStr, "created_at"); err != nil {
		return persistence.Schedule{}, err
	}
	if schedule.UpdatedAt, err = parseTime(updatedAtStr, "updated_at"); err != nil {
		return persistence.Schedule{}, err
	}
	return schedule, nil
}
