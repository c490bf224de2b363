package persistence

import "time"

// User is a dashboard account.
type User struct {
	ID            int64
	Username      string
	PasswordHash  string
	Level         string
	DepartmentIDs []int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Department groups sectors and members.
type Department struct {
	ID        int64
	Name      string
	Sectors   []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member is a volunteer that can be scheduled.
type Member struct {
	ID            int64
	Name          string
	Email         *string
	Phone         string
	Type          string
	DepartmentIDs []int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Service is a recurring worship time label.
type Service struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Schedule assigns a member to a sector of a department for a service on a date.
// The name fields are filled by read queries and ignored on write.
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

// ScheduleDay is the subset of a schedule row touched by the day-of-week repair.
type ScheduleDay struct {
	ID        int64
	Date      string
	DayOfWeek int
}

// Session is a server-side record of an issued login.
type Session struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}
