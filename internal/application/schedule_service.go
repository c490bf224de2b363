package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/volunteer-scheduler/internal/access"
	"github.com/example/volunteer-scheduler/internal/calendar"
	"github.com/example/volunteer-scheduler/internal/scheduler"
)

// ScheduleService orchestrates validation, duplicate detection and persistence
// for schedule operations.
type ScheduleService struct {
	schedules   ScheduleRepository
	departments DepartmentRepository
	members     MemberRepository
	links       DepartmentLinks
	checker     *scheduler.Checker
	now         func() time.Time
	logger      *slog.Logger
}

// NewScheduleService wires dependencies for schedule operations.
func NewScheduleService(schedules ScheduleRepository, departments DepartmentRepository, members MemberRepository, links DepartmentLinks, now func() time.Time) *ScheduleService {
	return NewScheduleServiceWithLogger(schedules, departments, members, links, now, nil)
}

// NewScheduleServiceWithLogger wires dependencies for schedule operations with a specified logger.
func NewScheduleServiceWithLogger(schedules ScheduleRepository, departments DepartmentRepository, members MemberRepository, links DepartmentLinks, now func() time.Time, logger *slog.Logger) *ScheduleService {
	if now == nil {
		now = time.Now
	}
	var checker *scheduler.Checker
	if schedules != nil {
		checker = scheduler.NewChecker(schedules)
	}
	return &ScheduleService{
		schedules:   schedules,
		departments: departments,
		members:     members,
		links:       links,
		checker:     checker,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ScheduleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ScheduleService", operation, attrs...)
}

// ListSchedules resolves the month and department filter for the principal,
// then returns the matching schedules grouped by date.
func (s *ScheduleService) ListSchedules(ctx context.Context, params ListSchedulesParams) (listing ScheduleListing, err error) {
	if s == nil {
		err = fmt.Errorf("ScheduleService is nil")
		return
	}
	if s.schedules == nil {
		err = fmt.Errorf("schedule repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListSchedules",
		"principal_id", params.Principal.UserID,
		"month", params.MonthYear,
		"department", params.Department.String(),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list schedules", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", listing.Total).DebugContext(ctx, "schedules listed")
	}()

	var rows []Schedule
	rows, err = s.query(ctx, logger, params)
	if err != nil {
		return
	}

	var groups []ScheduleGroup
	groups, err = scheduler.GroupByDate(rows, func(row Schedule) string { return row.Date })
	if err != nil {
		return
	}

	listing = ScheduleListing{
		MonthYear:  params.MonthYear,
		Department: params.Department,
		Groups:     groups,
		Total:      len(rows),
	}
	return
}

// query resolves access, fetches rows and replaces stale stored weekdays with
// the computed ones. Rows with an unreadable date are skipped.
func (s *ScheduleService) query(ctx context.Context, logger *slog.Logger, params ListSchedulesParams) ([]Schedule, error) {
	if !access.CanSee(params.Principal.Role, access.SectionSchedules) {
		return nil, ErrUnauthorized
	}
	actor, err := s.actor(ctx, params.Principal)
	if err != nil {
		return nil, err
	}

	query, err := scheduler.ResolveQuery(params.MonthYear, params.Department, actor)
	if err != nil {
		return nil, mapQueryError(err)
	}

	rows, err := s.schedules.ListSchedules(ctx, query)
	if err != nil {
		return nil, mapRepoError(err)
	}

	out := make([]Schedule, 0, len(rows))
	for _, row := range rows {
		computed, stale, cerr := scheduler.CheckStoredDay(row.Date, row.DayOfWeek)
		if cerr != nil {
			logger.WarnContext(ctx, "schedule with invalid date skipped",
				"schedule_id", row.ID,
				"date", row.Date,
				"error", cerr,
			)
			continue
		}
		if stale {
			logger.WarnContext(ctx, "stored day of week is stale",
				"schedule_id", row.ID,
				"date", row.Date,
				"stored_day_of_week", row.DayOfWeek,
				"computed_day_of_week", computed,
			)
			row.DayOfWeek = computed
		}
		out = append(out, row)
	}
	return out, nil
}

// GetSchedule returns a single schedule visible to the principal.
func (s *ScheduleService) GetSchedule(ctx context.Context, principal Principal, scheduleID int64) (Schedule, error) {
	if s == nil {
		return Schedule{}, fmt.Errorf("ScheduleService is nil")
	}
	if s.schedules == nil {
		return Schedule{}, fmt.Errorf("schedule repository not configured")
	}

	if !access.CanSee(principal.Role, access.SectionSchedules) {
		return Schedule{}, ErrUnauthorized
	}
	actor, err := s.actor(ctx, principal)
	if err != nil {
		return Schedule{}, err
	}

	schedule, err := s.schedules.GetSchedule(ctx, scheduleID)
	if err != nil {
		return Schedule{}, mapRepoError(err)
	}
	if err := authorizeSchedule(actor, access.VerbView, schedule.DepartmentID); err != nil {
		return Schedule{}, err
	}

	if computed, stale, cerr := scheduler.CheckStoredDay(schedule.Date, schedule.DayOfWeek); cerr == nil && stale {
		schedule.DayOfWeek = computed
	}
	return schedule, nil
}

// CreateSchedule validates the request, rejects duplicates and persists a new schedule.
func (s *ScheduleService) CreateSchedule(ctx context.Context, params CreateScheduleParams) (schedule Schedule, err error) {
	if s == nil {
		err = fmt.Errorf("ScheduleService is nil")
		return
	}
	if s.schedules == nil {
		err = fmt.Errorf("schedule repository not configured")
		return
	}

	input := normalizeScheduleInput(params.Input)
	logger := s.loggerWith(ctx, "CreateSchedule",
		"principal_id", params.Principal.UserID,
		"department_id", input.DepartmentID,
		"member_id", input.MemberID,
		"service_id", input.ServiceID,
		"date", input.Date,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("schedule_id", schedule.ID).InfoContext(ctx, "schedule created")
	}()

	var actor scheduler.Actor
	actor, err = s.actor(ctx, params.Principal)
	if err != nil {
		return
	}
	if !access.CanSee(actor.Role, access.SectionSchedules) {
		err = ErrUnauthorized
		return
	}

	var day int
	day, err = validateScheduleFields(input)
	if err != nil {
		return
	}
	if err = authorizeSchedule(actor, access.VerbCreate, input.DepartmentID); err != nil {
		return
	}
	if err = s.validateReferences(ctx, input); err != nil {
		return
	}
	if err = s.ensureUnique(ctx, input, nil); err != nil {
		return
	}

	now := s.now()
	schedule, err = s.schedules.CreateSchedule(ctx, Schedule{
		DepartmentID: input.DepartmentID,
		Sector:       input.Sector,
		MemberID:     input.MemberID,
		ServiceID:    input.ServiceID,
		Date:         input.Date,
		DayOfWeek:    day,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	err = mapRepoError(err)
	return
}

// UpdateSchedule validates the request, rejects duplicates other than the
// schedule itself and persists the change.
func (s *ScheduleService) UpdateSchedule(ctx context.Context, params UpdateScheduleParams) (schedule Schedule, err error) {
	if s == nil {
		err = fmt.Errorf("ScheduleService is nil")
		return
	}
	if s.schedules == nil {
		err = fmt.Errorf("schedule repository not configured")
		return
	}

	input := normalizeScheduleInput(params.Input)
	logger := s.loggerWith(ctx, "UpdateSchedule",
		"principal_id", params.Principal.UserID,
		"schedule_id", params.ScheduleID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "schedule updated")
	}()

	var actor scheduler.Actor
	actor, err = s.actor(ctx, params.Principal)
	if err != nil {
		return
	}
	if !access.CanSee(actor.Role, access.SectionSchedules) {
		err = ErrUnauthorized
		return
	}

	var existing Schedule
	existing, err = s.schedules.GetSchedule(ctx, params.ScheduleID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if err = authorizeSchedule(actor, access.VerbEdit, existing.DepartmentID); err != nil {
		return
	}

	var day int
	day, err = validateScheduleFields(input)
	if err != nil {
		return
	}
	if err = authorizeSchedule(actor, access.VerbEdit, input.DepartmentID); err != nil {
		return
	}
	if err = s.validateReferences(ctx, input); err != nil {
		return
	}
	if err = s.ensureUnique(ctx, input, &existing.ID); err != nil {
		return
	}

	updated := existing
	updated.DepartmentID = input.DepartmentID
	updated.Sector = input.Sector
	updated.MemberID = input.MemberID
	updated.ServiceID = input.ServiceID
	updated.Date = input.Date
	updated.DayOfWeek = day
	updated.UpdatedAt = s.now()

	schedule, err = s.schedules.UpdateSchedule(ctx, updated)
	err = mapRepoError(err)
	return
}

// DeleteSchedule removes a schedule the principal may manage.
func (s *ScheduleService) DeleteSchedule(ctx context.Context, principal Principal, scheduleID int64) error {
	if s == nil {
		return fmt.Errorf("ScheduleService is nil")
	}
	if s.schedules == nil {
		return fmt.Errorf("schedule repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteSchedule",
		"principal_id", principal.UserID,
		"schedule_id", scheduleID,
	)

	err := func() error {
		actor, err := s.actor(ctx, principal)
		if err != nil {
			return err
		}
		if !access.CanSee(actor.Role, access.SectionSchedules) {
			return ErrUnauthorized
		}
		existing, err := s.schedules.GetSchedule(ctx, scheduleID)
		if err != nil {
			return mapRepoError(err)
		}
		if err := authorizeSchedule(actor, access.VerbDelete, existing.DepartmentID); err != nil {
			return err
		}
		return mapRepoError(s.schedules.DeleteSchedule(ctx, scheduleID))
	}()
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete schedule", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "schedule deleted")
	return nil
}

// actor resolves the principal's current department links. Leaders are
// re-read from the store so that link changes apply without signing in again.
func (s *ScheduleService) actor(ctx context.Context, principal Principal) (scheduler.Actor, error) {
	actor := scheduler.Actor{Role: principal.Role, Departments: principal.DepartmentIDs}
	if !access.DepartmentScoped(principal.Role) || s.links == nil || principal.UserID == FallbackUserID {
		return actor, nil
	}
	ids, err := s.links.ListUserDepartmentIDs(ctx, principal.UserID)
	if err != nil {
		return scheduler.Actor{}, mapRepoError(err)
	}
	actor.Departments = ids
	return actor, nil
}

// validateScheduleFields checks the input without touching the store and
// returns the day of week of its date.
func validateScheduleFields(input ScheduleInput) (int, error) {
	vErr := &ValidationError{}

	if input.DepartmentID <= 0 {
		vErr.add("department_id", "Departamento é obrigatório")
	}
	if input.Sector == "" {
		vErr.add("sector", "Setor é obrigatório")
	}
	if input.MemberID <= 0 {
		vErr.add("member_id", "Membro é obrigatório")
	}
	if input.ServiceID <= 0 {
		vErr.add("service_id", "Culto é obrigatório")
	}

	day := -1
	if input.Date == "" {
		vErr.add("date", "Data é obrigatória")
	} else {
		computed, err := calendar.DayOfWeek(input.Date)
		if err != nil {
			vErr.add("date", "Data inválida. Use o formato AAAA-MM-DD")
		} else {
			day = computed
		}
	}
	if vErr.HasErrors() {
		return 0, vErr
	}
	return day, nil
}

// validateReferences checks that the department, sector and member exist and
// belong together. Callers authorize the department first.
func (s *ScheduleService) validateReferences(ctx context.Context, input ScheduleInput) error {
	vErr := &ValidationError{}

	if s.departments != nil {
		department, err := s.departments.GetDepartment(ctx, input.DepartmentID)
		if err != nil {
			err = mapRepoError(err)
			if errors.Is(err, ErrNotFound) {
				return fieldError("department_id", "Departamento não encontrado")
			}
			return err
		}
		if !department.HasSector(input.Sector) {
			vErr.add("sector", "Setor não pertence ao departamento selecionado")
		}
	}
	if s.members != nil {
		member, err := s.members.GetMember(ctx, input.MemberID)
		if err != nil {
			err = mapRepoError(err)
			if errors.Is(err, ErrNotFound) {
				return fieldError("member_id", "Membro não encontrado")
			}
			return err
		}
		if !containsID(member.DepartmentIDs, input.DepartmentID) {
			vErr.add("member_id", "Membro não pertence ao departamento selecionado")
		}
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

// ensureUnique refuses the write when the member is already scheduled for the
// same service and date, or when that cannot be ruled out.
func (s *ScheduleService) ensureUnique(ctx context.Context, input ScheduleInput, excluding *int64) error {
	conflict, err := s.checker.HasConflict(ctx, scheduler.Proposed{
		MemberID:  input.MemberID,
		ServiceID: input.ServiceID,
		Date:      input.Date,
	}, excluding)
	if err != nil {
		return mapQueryError(err)
	}
	if conflict {
		return ErrScheduleConflict
	}
	return nil
}

func authorizeSchedule(actor scheduler.Actor, verb access.Verb, departmentID int64) error {
	action := access.Action{Verb: verb, Entity: access.EntitySchedule}
	if access.Can(actor.Role, action, access.InDepartment(actor.Departments, departmentID)) {
		return nil
	}
	if access.DepartmentScoped(actor.Role) {
		if len(actor.Departments) == 0 {
			return ErrNoDepartmentsAssigned
		}
		return ErrDepartmentAccessDenied
	}
	return ErrUnauthorized
}

func normalizeScheduleInput(input ScheduleInput) ScheduleInput {
	input.Sector = strings.TrimSpace(input.Sector)
	input.Date = strings.TrimSpace(input.Date)
	return input
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
