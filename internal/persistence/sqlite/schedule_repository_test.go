package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/volunteer-scheduler/internal/persistence"
)

type scheduleFixture struct {
	storage *Storage
	louvor  persistence.Department
	midia   persistence.Department
	ana     persistence.Member
	bruno   persistence.Member
	manha   persistence.Service
	noite   persistence.Service
}

func setupScheduleFixture(t *testing.T) scheduleFixture {
	t.Helper()
	ctx := context.Background()
	storage := newTestStorage(t)

	f := scheduleFixture{storage: storage}
	f.louvor = mustDepartment(t, storage, "Louvor", "Vocal")
	f.midia = mustDepartment(t, storage, "Mídia", "Projeção")

	var err error
	if f.ana, err = storage.Members.CreateMember(ctx, persistence.Member{Name: "Ana", Phone: "1", Type: "Liderado", DepartmentIDs: []int64{f.louvor.ID}}); err != nil {
		t.Fatalf("CreateMember failed: %v", err)
	}
	if f.bruno, err = storage.Members.CreateMember(ctx, persistence.Member{Name: "Bruno", Phone: "2", Type: "Liderado", DepartmentIDs: []int64{f.midia.ID}}); err != nil {
		t.Fatalf("CreateMember failed: %v", err)
	}
	if f.manha, err = storage.Services.CreateService(ctx, persistence.Service{Name: "Manhã"}); err != nil {
		t.Fatalf("CreateService failed: %v", err)
	}
	if f.noite, err = storage.Services.CreateService(ctx, persistence.Service{Name: "Noite"}); err != nil {
		t.Fatalf("CreateService failed: %v", err)
	}
	return f
}

func (f scheduleFixture) create(t *testing.T, department persistence.Department, member persistence.Member, service persistence.Service, date string, day int) persistence.Schedule {
	t.Helper()
	schedule, err := f.storage.Schedules.CreateSchedule(context.Background(), persistence.Schedule{
		DepartmentID: department.ID,
		Sector:       department.Sectors[0],
		MemberID:     member.ID,
		ServiceID:    service.ID,
		Date:         date,
		DayOfWeek:    day,
	})
	if err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}
	return schedule
}

func TestScheduleRepository_CreateJoinsNames(t *testing.T) {
	f := setupScheduleFixture(t)

	schedule := f.create(t, f.louvor, f.ana, f.manha, "2025-10-05", 0)
	if schedule.DepartmentName != "Louvor" || schedule.MemberName != "Ana" || schedule.ServiceName != "Manhã" {
		t.Fatalf("expected joined names, got %#v", schedule)
	}
	if schedule.DayOfWeek != 0 || schedule.Date != "2025-10-05" {
		t.Fatalf("unexpected date fields: %#v", schedule)
	}
}

func TestScheduleRepository_ListOrderingAndFilter(t *testing.T) {
	ctx := context.Background()
	f := setupScheduleFixture(t)

	f.create(t, f.louvor, f.ana, f.noite, "2025-10-05", 0)
	f.create(t, f.midia, f.bruno, f.manha, "2025-10-05", 0)
	f.create(t, f.louvor, f.ana, f.manha, "2025-10-01", 3)
	f.create(t, f.louvor, f.ana, f.manha, "2025-11-02", 0)

	october, err := f.storage.Schedules.ListSchedules(ctx, persistence.ScheduleFilter{From: "2025-10-01", To: "2025-10-31"})
	if err != nil {
		t.Fatalf("ListSchedules failed: %v", err)
	}
	if len(october) != 3 {
		t.Fatalf("expected 3 rows in October, got %d", len(october))
	}
	if october[0].Date != "2025-10-01" || october[1].ServiceID != f.manha.ID || october[2].ServiceID != f.noite.ID {
		t.Fatalf("unexpected ordering: %#v", october)
	}

	louvorOnly, err := f.storage.Schedules.ListSchedules(ctx, persistence.ScheduleFilter{
		From:          "2025-10-01",
		To:            "2025-10-31",
		DepartmentIDs: []int64{f.louvor.ID},
	})
	if err != nil {
		t.Fatalf("ListSchedules failed: %v", err)
	}
	if len(louvorOnly) != 2 {
		t.Fatalf("expected 2 Louvor rows, got %d", len(louvorOnly))
	}

	none, err := f.storage.Schedules.ListSchedules(ctx, persistence.ScheduleFilter{DepartmentIDs: []int64{}})
	if err != nil {
		t.Fatalf("ListSchedules failed: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no rows for empty department set, got %d", len(none))
	}

	count, err := f.storage.Schedules.CountSchedules(ctx, persistence.ScheduleFilter{From: "2025-11-01", To: "2025-11-30"})
	if err != nil || count != 1 {
		t.Fatalf("CountSchedules = %d, %v", count, err)
	}
}

func TestScheduleRepository_FindAssignments(t *testing.T) {
	ctx := context.Background()
	f := setupScheduleFixture(t)

	existing := f.create(t, f.louvor, f.ana, f.manha, "2025-10-02", 4)

	matches, err := f.storage.Schedules.FindAssignments(ctx, f.ana.ID, f.manha.ID, "2025-10-02")
	if err != nil {
		t.Fatalf("FindAssignments failed: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != existing.ID {
		t.Fatalf("unexpected matches: %#v", matches)
	}

	matches, err = f.storage.Schedules.FindAssignments(ctx, f.ana.ID, f.noite.ID, "2025-10-02")
	if err != nil {
		t.Fatalf("FindAssignments failed: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no matches for another service, got %#v", matches)
	}
}

func TestScheduleRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	f := setupScheduleFixture(t)

	schedule := f.create(t, f.louvor, f.ana, f.manha, "2025-10-02", 4)
	schedule.ServiceID = f.noite.ID
	schedule.Date = "2025-10-03"
	schedule.DayOfWeek = 5

	updated, err := f.storage.Schedules.UpdateSchedule(ctx, schedule)
	if err != nil {
		t.Fatalf("UpdateSchedule failed: %v", err)
	}
	if updated.ServiceName != "Noite" || updated.DayOfWeek != 5 {
		t.Fatalf("unexpected update result: %#v", updated)
	}

	if err := f.storage.Schedules.DeleteSchedule(ctx, schedule.ID); err != nil {
		t.Fatalf("DeleteSchedule failed: %v", err)
	}
	if _, err := f.storage.Schedules.GetSchedule(ctx, schedule.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScheduleRepository_PersistsCallerTimestamps(t *testing.T) {
	ctx := context.Background()
	f := setupScheduleFixture(t)

	createdAt := time.Date(2025, 9, 1, 8, 30, 0, 0, time.UTC)
	schedule, err := f.storage.Schedules.CreateSchedule(ctx, persistence.Schedule{
		DepartmentID: f.louvor.ID,
		Sector:       "Vocal",
		MemberID:     f.ana.ID,
		ServiceID:    f.manha.ID,
		Date:         "2025-10-02",
		DayOfWeek:    4,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	})
	if err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}
	if !schedule.CreatedAt.Equal(createdAt) || !schedule.UpdatedAt.Equal(createdAt) {
		t.Fatalf("expected stored timestamps %v, got created %v updated %v", createdAt, schedule.CreatedAt, schedule.UpdatedAt)
	}

	editedAt := createdAt.Add(48 * time.Hour)
	schedule.ServiceID = f.noite.ID
	schedule.UpdatedAt = editedAt
	updated, err := f.storage.Schedules.UpdateSchedule(ctx, schedule)
	if err != nil {
		t.Fatalf("UpdateSchedule failed: %v", err)
	}
	if !updated.CreatedAt.Equal(createdAt) || !updated.UpdatedAt.Equal(editedAt) {
		t.Fatalf("expected created %v updated %v, got %v %v", createdAt, editedAt, updated.CreatedAt, updated.UpdatedAt)
	}

	if err := f.storage.Schedules.UpdateDayOfWeek(ctx, schedule.ID, 3); err != nil {
		t.Fatalf("UpdateDayOfWeek failed: %v", err)
	}
	repaired, err := f.storage.Schedules.GetSchedule(ctx, schedule.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if !repaired.UpdatedAt.Equal(editedAt) {
		t.Fatalf("weekday repair must not touch updated_at, got %v", repaired.UpdatedAt)
	}
}

func TestScheduleRepository_ZeroTimestampsFallBackToClock(t *testing.T) {
	f := setupScheduleFixture(t)
	before := time.Now().UTC().Add(-time.Second)

	schedule := f.create(t, f.louvor, f.ana, f.manha, "2025-10-02", 4)
	if schedule.CreatedAt.Before(before) || schedule.UpdatedAt.Before(before) {
		t.Fatalf("expected wall-clock timestamps, got %v %v", schedule.CreatedAt, schedule.UpdatedAt)
	}
}

func TestScheduleRepository_ReferencesBlockDeletes(t *testing.T) {
	ctx := context.Background()
	f := setupScheduleFixture(t)
	f.create(t, f.louvor, f.ana, f.manha, "2025-10-02", 4)

	if err := f.storage.Members.DeleteMember(ctx, f.ana.ID); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected member delete to be refused, got %v", err)
	}
	if err := f.storage.Services.DeleteService(ctx, f.manha.ID); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected service delete to be refused, got %v", err)
	}
	if err := f.storage.Departments.DeleteDepartment(ctx, f.louvor.ID); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected department delete to be refused, got %v", err)
	}
	if err := f.storage.Services.DeleteService(ctx, f.noite.ID); err != nil {
		t.Fatalf("unreferenced service delete failed: %v", err)
	}
}

func TestScheduleRepository_DayOfWeekRepairColumns(t *testing.T) {
	ctx := context.Background()
	f := setupScheduleFixture(t)
	schedule := f.create(t, f.louvor, f.ana, f.manha, "2025-10-02", 3)

	days, err := f.storage.Schedules.ListScheduleDays(ctx)
	if err != nil {
		t.Fatalf("ListScheduleDays failed: %v", err)
	}
	if len(days) != 1 || days[0].DayOfWeek != 3 {
		t.Fatalf("unexpected days: %#v", days)
	}

	if err := f.storage.Schedules.UpdateDayOfWeek(ctx, schedule.ID, 4); err != nil {
		t.Fatalf("UpdateDayOfWeek failed: %v", err)
	}
	fetched, err := f.storage.Schedules.GetSchedule(ctx, schedule.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if fetched.DayOfWeek != 4 {
		t.Fatalf("expected day 4, got %d", fetched.DayOfWeek)
	}

	if err := f.storage.Schedules.UpdateDayOfWeek(ctx, schedule.ID, 9); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected CHECK to reject day 9, got %v", err)
	}
	if err := f.storage.Schedules.UpdateDayOfWeek(ctx, 999, 1); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("invalid time %q: %v", value, err)
	}
	return parsed
}
