package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/volunteer-scheduler/internal/persistence"
	"github.com/example/volunteer-scheduler/internal/persistence/sqlite"
	"github.com/example/volunteer-scheduler/internal/persistence/sqlite/migration"
)

// SQLiteHarness wraps a migrated temporary SQLite storage and seeds records
// into it, failing the test on any store error.
type SQLiteHarness struct {
	Storage *sqlite.Storage
	Path    string

	tb      testing.TB
	cleanup func()
}

// Close releases the underlying storage. It is safe to call more than once.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a database in a temporary directory.
// The harness registers its own cleanup with tb.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "scheduler.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	storage, err := sqlite.OpenWithConfig(migration.TempFileTestSQLiteConfig(path), sqlite.Options{Logger: logger})
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage: storage,
		Path:    path,
		tb:      tb,
		cleanup: func() { _ = storage.Close() },
	}
	tb.Cleanup(harness.Close)
	return harness
}

// Department inserts a department.
func (h *SQLiteHarness) Department(opts ...DepartmentOption) persistence.Department {
	h.tb.Helper()
	department, err := h.Storage.Departments.CreateDepartment(context.Background(), NewDepartmentFixture(opts...).Persistence())
	if err != nil {
		h.tb.Fatalf("seed department: %v", err)
	}
	return department
}

// Member inserts a member.
func (h *SQLiteHarness) Member(opts ...MemberOption) persistence.Member {
	h.tb.Helper()
	member, err := h.Storage.Members.CreateMember(context.Background(), NewMemberFixture(opts...).Persistence())
	if err != nil {
		h.tb.Fatalf("seed member: %v", err)
	}
	return member
}

// Service inserts a service; an empty name is generated.
func (h *SQLiteHarness) Service(name string) persistence.Service {
	h.tb.Helper()
	service, err := h.Storage.Services.CreateService(context.Background(), NewServiceFixture(name))
	if err != nil {
		h.tb.Fatalf("seed service: %v", err)
	}
	return service
}

// User inserts an account and returns it with the fixture holding the password.
func (h *SQLiteHarness) User(opts ...UserOption) (persistence.User, UserFixture) {
	h.tb.Helper()
	fixture := NewUserFixture(opts...)
	model, err := fixture.Persistence()
	if err != nil {
		h.tb.Fatalf("hash password: %v", err)
	}
	user, err := h.Storage.Users.CreateUser(context.Background(), model)
	if err != nil {
		h.tb.Fatalf("seed user: %v", err)
	}
	return user, fixture
}

// Schedule inserts an assignment directly, bypassing the duplicate check.
func (h *SQLiteHarness) Schedule(fixture ScheduleFixture) persistence.Schedule {
	h.tb.Helper()
	schedule, err := h.Storage.Schedules.CreateSchedule(context.Background(), fixture.Persistence())
	if err != nil {
		h.tb.Fatalf("seed schedule: %v", err)
	}
	return schedule
}
