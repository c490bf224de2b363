package main

import (
	"context"
	"slices"
	"time"

	"github.com/example/volunteer-scheduler/internal/access"
	"github.com/example/volunteer-scheduler/internal/application"
	"github.com/example/volunteer-scheduler/internal/persistence"
	"github.com/example/volunteer-scheduler/internal/scheduler"
)

// The adapters below translate between persistence rows and application
// models. Errors pass through unchanged; the services map store sentinels.

type departmentStore struct {
	repo persistence.DepartmentRepository
}

func (a departmentStore) CreateDepartment(ctx context.Context, department application.Department) (application.Department, error) {
	stored, err := a.repo.CreateDepartment(ctx, toPersistenceDepartment(department))
	if err != nil {
		return application.Department{}, err
	}
	return toApplicationDepartment(stored), nil
}

func (a departmentStore) GetDepartment(ctx context.Context, id int64) (application.Department, error) {
	stored, err := a.repo.GetDepartment(ctx, id)
	if err != nil {
		return application.Department{}, err
	}
	return toApplicationDepartment(stored), nil
}

func (a departmentStore) UpdateDepartment(ctx context.Context, department application.Department) (application.Department, error) {
	stored, err := a.repo.UpdateDepartment(ctx, toPersistenceDepartment(department))
	if err != nil {
		return application.Department{}, err
	}
	return toApplicationDepartment(stored), nil
}

func (a departmentStore) DeleteDepartment(ctx context.Context, id int64) error {
	return a.repo.DeleteDepartment(ctx, id)
}

func (a departmentStore) ListDepartments(ctx context.Context, ids []int64) ([]application.Department, error) {
	models, err := a.repo.ListDepartments(ctx, persistence.DepartmentFilter{IDs: ids})
	if err != nil {
		return nil, err
	}
	out := make([]application.Department, 0, len(models))
	for _, model := range models {
		out = append(out, toApplicationDepartment(model))
	}
	return out, nil
}

func (a departmentStore) CountDepartments(ctx context.Context) (int, error) {
	return a.repo.CountDepartments(ctx)
}

func toPersistenceDepartment(d application.Department) persistence.Department {
	return persistence.Department{
		ID:        d.ID,
		Name:      d.Name,
		Sectors:   slices.Clone(d.Sectors),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func toApplicationDepartment(d persistence.Department) application.Department {
	return application.Department{
		ID:        d.ID,
		Name:      d.Name,
		Sectors:   slices.Clone(d.Sectors),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type memberStore struct {
	repo persistence.MemberRepository
}

func (a memberStore) CreateMember(ctx context.Context, member application.Member) (application.Member, error) {
	stored, err := a.repo.CreateMember(ctx, toPersistenceMember(member))
	if err != nil {
		return application.Member{}, err
	}
	return toApplicationMember(stored), nil
}

func (a memberStore) GetMember(ctx context.Context, id int64) (application.Member, error) {
	stored, err := a.repo.GetMember(ctx, id)
	if err != nil {
		return application.Member{}, err
	}
	return toApplicationMember(stored), nil
}

func (a memberStore) UpdateMember(ctx context.Context, member application.Member) (application.Member, error) {
	stored, err := a.repo.UpdateMember(ctx, toPersistenceMember(member))
	if err != nil {
		return application.Member{}, err
	}
	return toApplicationMember(stored), nil
}

func (a memberStore) DeleteMember(ctx context.Context, id int64) error {
	return a.repo.DeleteMember(ctx, id)
}

func (a memberStore) ListMembers(ctx context.Context, departmentID *int64) ([]application.Member, error) {
	models, err := a.repo.ListMembers(ctx, persistence.MemberFilter{DepartmentID: departmentID})
	if err != nil {
		return nil, err
	}
	out := make([]application.Member, 0, len(models))
	for _, model := range models {
		out = append(out, toApplicationMember(model))
	}
	return out, nil
}

func (a memberStore) CountMembers(ctx context.Context) (int, error) {
	return a.repo.CountMembers(ctx)
}

func toPersistenceMember(m application.Member) persistence.Member {
	return persistence.Member{
		ID:            m.ID,
		Name:          m.Name,
		Email:         copyString(m.Email),
		Phone:         m.Phone,
		Type:          string(m.Type),
		DepartmentIDs: slices.Clone(m.DepartmentIDs),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toApplicationMember(m persistence.Member) application.Member {
	return application.Member{
		ID:            m.ID,
		Name:          m.Name,
		Email:         copyString(m.Email),
		Phone:         m.Phone,
		Type:          application.MemberType(m.Type),
		DepartmentIDs: slices.Clone(m.DepartmentIDs),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

type serviceStore struct {
	repo persistence.ServiceRepository
}

func (a serviceStore) CreateService(ctx context.Context, service application.Service) (application.Service, error) {
	stored, err := a.repo.CreateService(ctx, persistence.Service(service))
	return application.Service(stored), err
}

func (a serviceStore) GetService(ctx context.Context, id int64) (application.Service, error) {
	stored, err := a.repo.GetService(ctx, id)
	return application.Service(stored), err
}

func (a serviceStore) UpdateService(ctx context.Context, service application.Service) (application.Service, error) {
	stored, err := a.repo.UpdateService(ctx, persistence.Service(service))
	return application.Service(stored), err
}

func (a serviceStore) DeleteService(ctx context.Context, id int64) error {
	return a.repo.DeleteService(ctx, id)
}

func (a serviceStore) ListServices(ctx context.Context) ([]application.Service, error) {
	models, err := a.repo.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]application.Service, 0, len(models))
	for _, model := range models {
		out = append(out, application.Service(model))
	}
	return out, nil
}

func (a serviceStore) CountServices(ctx context.Context) (int, error) {
	return a.repo.CountServices(ctx)
}

type userStore struct {
	repo persistence.UserRepository
}

func (a userStore) CreateUser(ctx context.Context, credentials application.UserCredentials) (application.User, error) {
	stored, err := a.repo.CreateUser(ctx, toPersistenceUser(credentials))
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a userStore) UpdateUser(ctx context.Context, credentials application.UserCredentials) (application.User, error) {
	stored, err := a.repo.UpdateUser(ctx, toPersistenceUser(credentials))
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a userStore) GetUserCredentials(ctx context.Context, id int64) (application.UserCredentials, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return toApplicationCredentials(stored), nil
}

func (a userStore) GetUserCredentialsByUsername(ctx context.Context, username string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return toApplicationCredentials(stored), nil
}

func (a userStore) DeleteUser(ctx context.Context, id int64) error {
	return a.repo.DeleteUser(ctx, id)
}

func (a userStore) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]application.User, 0, len(models))
	for _, model := range models {
		out = append(out, toApplicationUser(model))
	}
	return out, nil
}

func (a userStore) CountUsers(ctx context.Context) (int, error) {
	return a.repo.CountUsers(ctx)
}

func (a userStore) ListUserDepartmentIDs(ctx context.Context, userID int64) ([]int64, error) {
	return a.repo.ListUserDepartmentIDs(ctx, userID)
}

func toPersistenceUser(c application.UserCredentials) persistence.User {
	return persistence.User{
		ID:            c.User.ID,
		Username:      c.User.Username,
		PasswordHash:  c.PasswordHash,
		Level:         string(c.User.Level),
		DepartmentIDs: slices.Clone(c.User.DepartmentIDs),
		CreatedAt:     c.User.CreatedAt,
		UpdatedAt:     c.User.UpdatedAt,
	}
}

func toApplicationUser(u persistence.User) application.User {
	return application.User{
		ID:            u.ID,
		Username:      u.Username,
		Level:         access.Role(u.Level),
		DepartmentIDs: slices.Clone(u.DepartmentIDs),
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func toApplicationCredentials(u persistence.User) application.UserCredentials {
	return application.UserCredentials{User: toApplicationUser(u), PasswordHash: u.PasswordHash}
}

type scheduleStore struct {
	repo persistence.ScheduleRepository
}

func (a scheduleStore) FindAssignments(ctx context.Context, memberID, serviceID int64, date string) ([]scheduler.Assignment, error) {
	rows, err := a.repo.FindAssignments(ctx, memberID, serviceID, date)
	if err != nil {
		return nil, err
	}
	out := make([]scheduler.Assignment, 0, len(rows))
	for _, row := range rows {
		out = append(out, scheduler.Assignment{ID: row.ID, MemberID: row.MemberID, ServiceID: row.ServiceID, Date: row.Date})
	}
	return out, nil
}

func (a scheduleStore) CreateSchedule(ctx context.Context, schedule application.Schedule) (application.Schedule, error) {
	stored, err := a.repo.CreateSchedule(ctx, persistence.Schedule(schedule))
	return application.Schedule(stored), err
}

func (a scheduleStore) GetSchedule(ctx context.Context, id int64) (application.Schedule, error) {
	stored, err := a.repo.GetSchedule(ctx, id)
	return application.Schedule(stored), err
}

func (a scheduleStore) UpdateSchedule(ctx context.Context, schedule application.Schedule) (application.Schedule, error) {
	stored, err := a.repo.UpdateSchedule(ctx, persistence.Schedule(schedule))
	return application.Schedule(stored), err
}

func (a scheduleStore) DeleteSchedule(ctx context.Context, id int64) error {
	return a.repo.DeleteSchedule(ctx, id)
}

func (a scheduleStore) ListSchedules(ctx context.Context, query scheduler.Query) ([]application.Schedule, error) {
	rows, err := a.repo.ListSchedules(ctx, toScheduleFilter(query))
	if err != nil {
		return nil, err
	}
	out := make([]application.Schedule, 0, len(rows))
	for _, row := range rows {
		out = append(out, application.Schedule(row))
	}
	return out, nil
}

func (a scheduleStore) CountSchedules(ctx context.Context, query scheduler.Query) (int, error) {
	return a.repo.CountSchedules(ctx, toScheduleFilter(query))
}

func (a scheduleStore) ListScheduleDays(ctx context.Context) ([]application.ScheduleDay, error) {
	rows, err := a.repo.ListScheduleDays(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]application.ScheduleDay, 0, len(rows))
	for _, row := range rows {
		out = append(out, application.ScheduleDay(row))
	}
	return out, nil
}

func (a scheduleStore) UpdateDayOfWeek(ctx context.Context, id int64, dayOfWeek int) error {
	return a.repo.UpdateDayOfWeek(ctx, id, dayOfWeek)
}

func toScheduleFilter(query scheduler.Query) persistence.ScheduleFilter {
	return persistence.ScheduleFilter{
		From:          query.From,
		To:            query.To,
		DepartmentIDs: slices.Clone(query.DepartmentIDs),
	}
}

type sessionStore struct {
	repo persistence.SessionRepository
}

func (a sessionStore) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, persistence.Session(session))
	return application.Session(stored), err
}

func (a sessionStore) GetSession(ctx context.Context, id string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, id)
	return application.Session(stored), err
}

func (a sessionStore) RevokeSession(ctx context.Context, id string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, id, revokedAt)
	return application.Session(stored), err
}

func (a sessionStore) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error) {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

func copyString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
