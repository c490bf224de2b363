package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/volunteer-scheduler/internal/access"
	"github.com/example/volunteer-scheduler/internal/calendar"
)

// RepairReport summarises a day-of-week repair run.
type RepairReport struct {
	Total   int
	Fixed   int
	Correct int
	Invalid int
}

// MaintenanceService runs administrative data repairs.
type MaintenanceService struct {
	schedules ScheduleRepository
	logger    *slog.Logger
}

// NewMaintenanceService wires the schedule store used by repairs.
func NewMaintenanceService(schedules ScheduleRepository) *MaintenanceService {
	return NewMaintenanceServiceWithLogger(schedules, nil)
}

// NewMaintenanceServiceWithLogger wires the schedule store with a specified logger.
func NewMaintenanceServiceWithLogger(schedules ScheduleRepository, logger *slog.Logger) *MaintenanceService {
	return &MaintenanceService{schedules: schedules, logger: defaultLogger(logger)}
}

// RepairDaysOfWeek recomputes the weekday of every stored schedule and
// rewrites the rows whose stored value disagrees. Running it twice reports no
// fixes the second time.
func (s *MaintenanceService) RepairDaysOfWeek(ctx context.Context, principal Principal) (report RepairReport, err error) {
	if s == nil {
		err = fmt.Errorf("MaintenanceService is nil")
		return
	}
	if s.schedules == nil {
		err = fmt.Errorf("schedule repository not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "MaintenanceService", "RepairDaysOfWeek", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "day of week repair failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "day of week repair finished",
			"total", report.Total,
			"fixed", report.Fixed,
			"correct", report.Correct,
			"invalid", report.Invalid,
		)
	}()

	if !principal.can(access.VerbEdit, access.EntitySchedule) {
		err = ErrUnauthorized
		return
	}

	var days []ScheduleDay
	days, err = s.schedules.ListScheduleDays(ctx)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	report.Total = len(days)
	for _, day := range days {
		computed, derr := calendar.DayOfWeek(day.Date)
		if derr != nil {
			report.Invalid++
			logger.WarnContext(ctx, "schedule has an invalid date", "schedule_id", day.ID, "date", day.Date)
			continue
		}
		if computed == day.DayOfWeek {
			report.Correct++
			continue
		}
		if err = s.schedules.UpdateDayOfWeek(ctx, day.ID, computed); err != nil {
			err = mapRepoError(err)
			return
		}
		logger.DebugContext(ctx, "day of week corrected",
			"schedule_id", day.ID,
			"stored_day_of_week", day.DayOfWeek,
			"computed_day_of_week", computed,
		)
		report.Fixed++
	}
	return
}
