package application

import (
	"context"
	"time"

	"github.com/example/volunteer-scheduler/internal/scheduler"
)

// DepartmentRepository captures the persistence operations needed for departments.
type DepartmentRepository interface {
	CreateDepartment(ctx context.Context, department Department) (Department, error)
	GetDepartment(ctx context.Context, id int64) (Department, error)
	UpdateDepartment(ctx context.Context, department Department) (Department, error)
	DeleteDepartment(ctx context.Context, id int64) error
	// ListDepartments returns the departments in ids, or every department when ids is nil.
	ListDepartments(ctx context.Context, ids []int64) ([]Department, error)
	CountDepartments(ctx context.Context) (int, error)
}

// MemberRepository captures the persistence operations needed for members.
type MemberRepository interface {
	CreateMember(ctx context.Context, member Member) (Member, error)
	GetMember(ctx context.Context, id int64) (Member, error)
	UpdateMember(ctx context.Context, member Member) (Member, error)
	DeleteMember(ctx context.Context, id int64) error
	ListMembers(ctx context.Context, departmentID *int64) ([]Member, error)
	CountMembers(ctx context.Context) (int, error)
}

// ServiceRepository captures the persistence operations needed for services.
type ServiceRepository interface {
	CreateService(ctx context.Context, service Service) (Service, error)
	GetService(ctx context.Context, id int64) (Service, error)
	UpdateService(ctx context.Context, service Service) (Service, error)
	DeleteService(ctx context.Context, id int64) error
	ListServices(ctx context.Context) ([]Service, error)
	CountServices(ctx context.Context) (int, error)
}

// UserRepository captures the persistence operations needed for users.
type UserRepository interface {
	CreateUser(ctx context.Context, credentials UserCredentials) (User, error)
	UpdateUser(ctx context.Context, credentials UserCredentials) (User, error)
	GetUserCredentials(ctx context.Context, id int64) (UserCredentials, error)
	GetUserCredentialsByUsername(ctx context.Context, username string) (UserCredentials, error)
	DeleteUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context) ([]User, error)
	CountUsers(ctx context.Context) (int, error)
}

// DepartmentLinks resolves the departments a user is linked to.
type DepartmentLinks interface {
	ListUserDepartmentIDs(ctx context.Context, userID int64) ([]int64, error)
}

// ScheduleRepository captures the persistence interactions needed for schedules.
type ScheduleRepository interface {
	scheduler.AssignmentFinder

	CreateSchedule(ctx context.Context, schedule Schedule) (Schedule, error)
	GetSchedule(ctx context.Context, id int64) (Schedule, error)
	UpdateSchedule(ctx context.Context, schedule Schedule) (Schedule, error)
	DeleteSchedule(ctx context.Context, id int64) error
	// ListSchedules returns rows ordered by date, then service.
	ListSchedules(ctx context.Context, query scheduler.Query) ([]Schedule, error)
	CountSchedules(ctx context.Context, query scheduler.Query) (int, error)
	ListScheduleDays(ctx context.Context) ([]ScheduleDay, error)
	UpdateDayOfWeek(ctx context.Context, id int64, dayOfWeek int) error
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	RevokeSession(ctx context.Context, id string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}
