// Package testfixtures builds deterministic domain records and a migrated
// SQLite store for integration tests.
package testfixtures

import (
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/example/volunteer-scheduler/internal/access"
	"github.com/example/volunteer-scheduler/internal/application"
	"github.com/example/volunteer-scheduler/internal/calendar"
	"github.com/example/volunteer-scheduler/internal/persistence"
)

var (
	departmentCounter uint64
	memberCounter     uint64
	serviceCounter    uint64
	userCounter       uint64
)

// referenceTime is a Wednesday in the middle of a month so that both the
// current month and next Sunday are inside the default listing period.
var referenceTime = time.Date(2025, time.October, 15, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ---------------------------- Department fixtures ----------------------------

// DepartmentFixture is a department record with its sectors.
type DepartmentFixture struct {
	Name    string
	Sectors []string
}

// DepartmentOption configures a DepartmentFixture.
type DepartmentOption func(*DepartmentFixture)

// NewDepartmentFixture returns a uniquely named department with two sectors.
func NewDepartmentFixture(opts ...DepartmentOption) DepartmentFixture {
	idx := atomic.AddUint64(&departmentCounter, 1)
	fixture := DepartmentFixture{
		Name:    fmt.Sprintf("Departamento %03d", idx),
		Sectors: []string{"Geral", "Apoio"},
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithDepartmentName overrides the generated name.
func WithDepartmentName(name string) DepartmentOption {
	return func(f *DepartmentFixture) { f.Name = name }
}

// WithSectors replaces the sector list.
func WithSectors(sectors ...string) DepartmentOption {
	return func(f *DepartmentFixture) { f.Sectors = sectors }
}

// Persistence returns the fixture as a persistence.Department.
func (f DepartmentFixture) Persistence() persistence.Department {
	return persistence.Department{Name: f.Name, Sectors: slices.Clone(f.Sectors)}
}

// ------------------------------ Member fixtures ------------------------------

// MemberFixture is a volunteer linked to zero or more departments.
type MemberFixture struct {
	Name          string
	Email         *string
	Phone         string
	Type          application.MemberType
	DepartmentIDs []int64
}

// MemberOption configures a MemberFixture.
type MemberOption func(*MemberFixture)

// NewMemberFixture returns a led member without email.
func NewMemberFixture(opts ...MemberOption) MemberFixture {
	idx := atomic.AddUint64(&memberCounter, 1)
	fixture := MemberFixture{
		Name:  fmt.Sprintf("Membro %03d", idx),
		Phone: fmt.Sprintf("(11) 90000-%04d", idx),
		Type:  application.MemberTypeLed,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMemberName overrides the generated name.
func WithMemberName(name string) MemberOption {
	return func(f *MemberFixture) { f.Name = name }
}

// WithMemberEmail sets the optional email.
func WithMemberEmail(email string) MemberOption {
	return func(f *MemberFixture) { f.Email = &email }
}

// AsGuest marks the member as Convidado.
func AsGuest() MemberOption {
	return func(f *MemberFixture) { f.Type = application.MemberTypeGuest }
}

// InDepartments links the member to the given departments.
func InDepartments(ids ...int64) MemberOption {
	return func(f *MemberFixture) { f.DepartmentIDs = ids }
}

// Persistence returns the fixture as a persistence.Member.
func (f MemberFixture) Persistence() persistence.Member {
	var email *string
	if f.Email != nil {
		v := *f.Email
		email = &v
	}
	return persistence.Member{
		Name:          f.Name,
		Email:         email,
		Phone:         f.Phone,
		Type:          string(f.Type),
		DepartmentIDs: slices.Clone(f.DepartmentIDs),
	}
}

// ------------------------------ Service fixtures -----------------------------

// NewServiceFixture returns a uniquely named service unless name is given.
func NewServiceFixture(name string) persistence.Service {
	if name == "" {
		name = fmt.Sprintf("Culto %03d", atomic.AddUint64(&serviceCounter, 1))
	}
	return persistence.Service{Name: name}
}

// ------------------------------- User fixtures -------------------------------

// UserFixture is a dashboard account together with its clear-text password.
type UserFixture struct {
	Username      string
	Password      string
	Level         access.Role
	DepartmentIDs []int64
}

// UserOption configures a UserFixture.
type UserOption func(*UserFixture)

// NewUserFixture returns an administrator with a generated username.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	fixture := UserFixture{
		Username: fmt.Sprintf("usuario%03d", idx),
		Password: fmt.Sprintf("senha-%03d", idx),
		Level:    access.RoleAdministrator,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUsername overrides the generated username.
func WithUsername(username string) UserOption {
	return func(f *UserFixture) { f.Username = username }
}

// WithPassword overrides the generated password.
func WithPassword(password string) UserOption {
	return func(f *UserFixture) { f.Password = password }
}

// AsLeaderOf makes the user a Líder of the given departments.
func AsLeaderOf(ids ...int64) UserOption {
	return func(f *UserFixture) {
		f.Level = access.RoleLeader
		f.DepartmentIDs = ids
	}
}

// AsPending makes the user an account awaiting approval.
func AsPending() UserOption {
	return func(f *UserFixture) { f.Level = access.RolePending }
}

// Persistence hashes the password and returns the persistence.User to insert.
func (f UserFixture) Persistence() (persistence.User, error) {
	hash, err := application.NewPasswordHasher().Hash(f.Password)
	if err != nil {
		return persistence.User{}, err
	}
	return persistence.User{
		Username:      f.Username,
		PasswordHash:  hash,
		Level:         string(f.Level),
		DepartmentIDs: slices.Clone(f.DepartmentIDs),
	}, nil
}

// ----------------------------- Schedule fixtures -----------------------------

// ScheduleFixture assigns a member to a sector of a department for a service.
type ScheduleFixture struct {
	DepartmentID int64
	Sector       string
	MemberID     int64
	ServiceID    int64
	Date         string
}

// Persistence returns the row to insert, with the day of week derived from Date.
// An unparseable date keeps day_of_week at zero.
func (f ScheduleFixture) Persistence() persistence.Schedule {
	day, _ := calendar.DayOfWeek(f.Date)
	return persistence.Schedule{
		DepartmentID: f.DepartmentID,
		Sector:       f.Sector,
		MemberID:     f.MemberID,
		ServiceID:    f.ServiceID,
		Date:         f.Date,
		DayOfWeek:    day,
	}
}
