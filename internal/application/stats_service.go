package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/volunteer-scheduler/internal/access"
	"github.com/example/volunteer-scheduler/internal/calendar"
	"github.com/example/volunteer-scheduler/internal/scheduler"
)

// DashboardStats are the counters shown on the dashboard.
type DashboardStats struct {
	Members     int
	Departments int
	Services    int
	Users       int
	// Schedules counts the current month only.
	Schedules int
	MonthYear string
}

// StatsService computes dashboard counters.
type StatsService struct {
	members     MemberRepository
	departments DepartmentRepository
	services    ServiceRepository
	users       UserRepository
	schedules   ScheduleRepository
	links       DepartmentLinks
	now         func() time.Time
	logger      *slog.Logger
}

// NewStatsService wires the repositories counted by the dashboard.
func NewStatsService(members MemberRepository, departments DepartmentRepository, services ServiceRepository, users UserRepository, schedules ScheduleRepository, links DepartmentLinks, now func() time.Time) *StatsService {
	return NewStatsServiceWithLogger(members, departments, services, users, schedules, links, now, nil)
}

// NewStatsServiceWithLogger wires the dashboard repositories with a specified logger.
func NewStatsServiceWithLogger(members MemberRepository, departments DepartmentRepository, services ServiceRepository, users UserRepository, schedules ScheduleRepository, links DepartmentLinks, now func() time.Time, logger *slog.Logger) *StatsService {
	if now == nil {
		now = time.Now
	}
	return &StatsService{
		members:     members,
		departments: departments,
		services:    services,
		users:       users,
		schedules:   schedules,
		links:       links,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// Dashboard returns the entity counts and the number of schedules in the
// current month that the principal can see.
func (s *StatsService) Dashboard(ctx context.Context, principal Principal) (stats DashboardStats, err error) {
	if s == nil {
		err = fmt.Errorf("StatsService is nil")
		return
	}
	if s.members == nil || s.departments == nil || s.services == nil || s.users == nil || s.schedules == nil {
		err = fmt.Errorf("stats repositories not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "StatsService", "Dashboard", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to compute dashboard", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if !access.CanSee(principal.Role, access.SectionDashboard) {
		err = ErrUnauthorized
		return
	}

	now := s.now()
	stats.MonthYear = calendar.MonthKey(now.Year(), int(now.Month()))

	if stats.Members, err = s.members.CountMembers(ctx); err != nil {
		err = mapRepoError(err)
		return
	}
	if stats.Departments, err = s.departments.CountDepartments(ctx); err != nil {
		err = mapRepoError(err)
		return
	}
	if stats.Services, err = s.services.CountServices(ctx); err != nil {
		err = mapRepoError(err)
		return
	}
	if stats.Users, err = s.users.CountUsers(ctx); err != nil {
		err = mapRepoError(err)
		return
	}

	actor := scheduler.Actor{Role: principal.Role, Departments: principal.DepartmentIDs}
	if access.DepartmentScoped(principal.Role) && s.links != nil && principal.UserID != FallbackUserID {
		actor.Departments, err = s.links.ListUserDepartmentIDs(ctx, principal.UserID)
		if err != nil {
			err = mapRepoError(err)
			return
		}
	}

	var query scheduler.Query
	query, err = scheduler.ResolveQuery(stats.MonthYear, scheduler.AllDepartments, actor)
	if err != nil {
		// A leader without departments still sees the dashboard, with no schedules.
		if access.DepartmentScoped(principal.Role) && len(actor.Departments) == 0 {
			err = nil
			return
		}
		err = mapQueryError(err)
		return
	}

	stats.Schedules, err = s.schedules.CountSchedules(ctx, query)
	err = mapRepoError(err)
	return
}
