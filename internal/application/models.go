package application

import (
	"slices"
	"time"

	"github.com/example/volunteer-scheduler/internal/access"
	"github.com/example/volunteer-scheduler/internal/scheduler"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID        int64
	Username      string
	Role          access.Role
	DepartmentIDs []int64
	SessionID     string
}

func (p Principal) can(verb access.Verb, entity access.Entity) bool {
	return access.Can(p.Role, access.Action{Verb: verb, Entity: entity}, access.Scope{})
}

func (p Principal) canInDepartment(verb access.Verb, departmentID int64) bool {
	return access.Can(p.Role, access.Action{Verb: verb, Entity: access.EntitySchedule}, access.InDepartment(p.DepartmentIDs, departmentID))
}

// Department groups sectors and members.
type Department struct {
	ID        int64
	Name      string
	Sectors   []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSector reports whether sector is one of the department's sectors.
func (d Department) HasSector(sector string) bool {
	return slices.Contains(d.Sectors, sector)
}

// DepartmentInput captures caller provided department fields.
type DepartmentInput struct {
	Name    string
	Sectors []string
}

// CreateDepartmentParams wraps the data required to create a department.
type CreateDepartmentParams struct {
	Principal Principal
	Input     DepartmentInput
}

// UpdateDepartmentParams wraps the data required to update a department.
type UpdateDepartmentParams struct {
	Principal    Principal
	DepartmentID int64
	Input        DepartmentInput
}

// MemberType classifies a member.
type MemberType string

const (
	MemberTypeLed   MemberType = "Liderado"
	MemberTypeGuest MemberType = "Convidado"
)

// Valid reports whether t is a known member type.
func (t MemberType) Valid() bool {
	return t == MemberTypeLed || t == MemberTypeGuest
}

// Member is a volunteer that can be scheduled.
type Member struct {
	ID            int64
	Name          string
	Email         *string
	Phone         string
	Type          MemberType
	DepartmentIDs []int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MemberInput captures caller provided member fields.
type MemberInput struct {
	Name          string
	Email         *string
	Phone         string
	Type          MemberType
	DepartmentIDs []int64
}

// CreateMemberParams wraps the data required to create a member.
type CreateMemberParams struct {
	Principal Principal
	Input     MemberInput
}

// UpdateMemberParams wraps the data required to update a member.
type UpdateMemberParams struct {
	Principal Principal
	MemberID  int64
	Input     MemberInput
}

// ListMembersParams narrows a member listing.
type ListMembersParams struct {
	Principal    Principal
	DepartmentID *int64
}

// Service is a worship time label such as "Domingo Manhã".
type Service struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ServiceInput captures caller provided service fields.
type ServiceInput struct {
	Name string
}

// CreateServiceParams wraps the data required to create a service.
type CreateServiceParams struct {
	Principal Principal
	Input     ServiceInput
}

// UpdateServiceParams wraps the data required to update a service.
type UpdateServiceParams struct {
	Principal Principal
	ServiceID int64
	Input     ServiceInput
}

// User represents a dashboard account exposed by the application services.
type User struct {
	ID              int64
	Username        string
	Level           access.Role
	DepartmentIDs   []int64
	DepartmentNames []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UserCredentials pairs a user with its stored password hash.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// UserInput captures caller provided user attributes. A blank password on
// update keeps the stored hash.
type UserInput struct {
	Username      string
	Password      string
	Level         access.Role
	DepartmentIDs []int64
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user.
type UpdateUserParams struct {
	Principal Principal
	UserID    int64
	Input     UserInput
}

// Schedule assigns a member to a department sector for a service on a date.
type Schedule struct {
	ID             int64
	DepartmentID   int64
	Sector         string
	MemberID       int64
	ServiceID      int64
	Date           string
	DayOfWeek      int
	DepartmentName string
	MemberName     string
	ServiceName    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ScheduleInput captures caller provided schedule fields. The day of week is
// always derived from Date.
type ScheduleInput struct {
	DepartmentID int64
	Sector       string
	MemberID     int64
	ServiceID    int64
	Date         string
}

// CreateScheduleParams wraps the data required to create a schedule.
type CreateScheduleParams struct {
	Principal Principal
	Input     ScheduleInput
}

// UpdateScheduleParams wraps the data required to update an existing schedule.
type UpdateScheduleParams struct {
	Principal  Principal
	ScheduleID int64
	Input      ScheduleInput
}

// ListSchedulesParams selects a month and a department filter.
type ListSchedulesParams struct {
	Principal  Principal
	MonthYear  string
	Department scheduler.DepartmentFilter
}

// ScheduleGroup is every schedule on one date.
type ScheduleGroup = scheduler.DateGroup[Schedule]

// ScheduleListing is the grouped result of a schedule query.
type ScheduleListing struct {
	MonthYear  string
	Department scheduler.DepartmentFilter
	Groups     []ScheduleGroup
	Total      int
}

// Empty reports whether the period has no schedules.
func (l ScheduleListing) Empty() bool {
	return l.Total == 0
}

// ScheduleDay is the stored date and weekday of a schedule.
type ScheduleDay struct {
	ID        int64
	Date      string
	DayOfWeek int
}

// Session is the server-side record of a login.
type Session struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// SessionInfo is the session object handed to clients.
type SessionInfo struct {
	ID          string
	UserID      int64
	Username    string
	Level       access.Role
	Departments []int64
	Department  *int64
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Principal converts the session object into a service principal.
func (s SessionInfo) Principal() Principal {
	return Principal{
		UserID:        s.UserID,
		Username:      s.Username,
		Role:          s.Level,
		DepartmentIDs: slices.Clone(s.Departments),
		SessionID:     s.ID,
	}
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Username string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	Session SessionInfo
	Token   string
}
