package persistence

import (
	"context"
	"time"
)

// DepartmentRepository exposes CRUD operations for departments.
type DepartmentRepository interface {
	CreateDepartment(ctx context.Context, department Department) (Department, error)
	UpdateDepartment(ctx context.Context, department Department) (Department, error)
	GetDepartment(ctx context.Context, id int64) (Department, error)
	ListDepartments(ctx context.Context, filter DepartmentFilter) ([]Department, error)
	DeleteDepartment(ctx context.Context, id int64) error
	CountDepartments(ctx context.Context) (int, error)
}

// DepartmentFilter narrows department listings. Nil IDs means every department.
type DepartmentFilter struct {
	IDs []int64
}

// MemberFilter narrows member listings.
type MemberFilter struct {
	DepartmentID *int64
}

// MemberRepository exposes CRUD operations for members and their department links.
type MemberRepository interface {
	CreateMember(ctx context.Context, member Member) (Member, error)
	UpdateMember(ctx context.Context, member Member) (Member, error)
	GetMember(ctx context.Context, id int64) (Member, error)
	ListMembers(ctx context.Context, filter MemberFilter) ([]Member, error)
	DeleteMember(ctx context.Context, id int64) error
	CountMembers(ctx context.Context) (int, error)
}

// ServiceRepository exposes CRUD operations for services.
type ServiceRepository interface {
	CreateService(ctx context.Context, service Service) (Service, error)
	UpdateService(ctx context.Context, service Service) (Service, error)
	GetService(ctx context.Context, id int64) (Service, error)
	ListServices(ctx context.Context) ([]Service, error)
	DeleteService(ctx context.Context, id int64) error
	CountServices(ctx context.Context) (int, error)
}

// UserRepository exposes CRUD operations for users and their department links.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id int64) error
	CountUsers(ctx context.Context) (int, error)
	ListUserDepartmentIDs(ctx context.Context, userID int64) ([]int64, error)
}

// ScheduleFilter narrows schedule queries. Dates are inclusive YYYY-MM-DD
// bounds; nil DepartmentIDs means every department.
type ScheduleFilter struct {
	From          string
	To            string
	DepartmentIDs []int64
}

// ScheduleRepository stores schedule assignments.
type ScheduleRepository interface {
	CreateSchedule(ctx context.Context, schedule Schedule) (Schedule, error)
	UpdateSchedule(ctx context.Context, schedule Schedule) (Schedule, error)
	GetSchedule(ctx context.Context, id int64) (Schedule, error)
	// ListSchedules returns rows ordered by date, then service.
	ListSchedules(ctx context.Context, filter ScheduleFilter) ([]Schedule, error)
	CountSchedules(ctx context.Context, filter ScheduleFilter) (int, error)
	DeleteSchedule(ctx context.Context, id int64) error
	// FindAssignments returns rows matching the member, service and date exactly.
	FindAssignments(ctx context.Context, memberID, serviceID int64, date string) ([]Schedule, error)
	ListScheduleDays(ctx context.Context) ([]ScheduleDay, error)
	UpdateDayOfWeek(ctx context.Context, id int64, dayOfWeek int) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	RevokeSession(ctx context.Context, id string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}
