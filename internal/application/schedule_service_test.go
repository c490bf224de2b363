package application

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/example/volunteer-scheduler/internal/access"
	"github.com/example/volunteer-scheduler/internal/persistence"
	"github.com/example/volunteer-scheduler/internal/scheduler"
)

func newScheduleServiceForTest(store *memoryStore, logger *slog.Logger) *ScheduleService {
	clock := &fixedClock{t: time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)}
	return NewScheduleServiceWithLogger(store, store, store, store, clock.Now, logger)
}

func TestScheduleService_ListSchedules_AdministratorMonthIsUnconstrained(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	seedChurch(store)
	store.addSchedule(Schedule{DepartmentID: 2, Sector: "Voz", MemberID: 13, ServiceID: 4, Date: "2025-10-05", DayOfWeek: 0})
	store.addSchedule(Schedule{DepartmentID: 2, Sector: "Voz", MemberID: 13, ServiceID: 4, Date: "2025-11-02", DayOfWeek: 0})
	svc := newScheduleServiceForTest(store, nil)

	listing, err := svc.ListSchedules(context.Background(), ListSchedulesParams{
		Principal:  adminPrincipal,
		MonthYear:  "2025-10",
		Department: scheduler.AllDepartments,
	})
	if err != nil {
		t.Fatalf("ListSchedules returned error: %v", err)
	}

	if store.lastQuery == nil {
		t.Fatalf("expected the store to be queried")
	}
	if store.lastQuery.From != "2025-10-01" || store.lastQuery.To != "2025-10-31" {
		t.Fatalf("unexpected range %s..%s", store.lastQuery.From, store.lastQuery.To)
	}
	if store.lastQuery.DepartmentIDs != nil {
		t.Fatalf("expected no department constraint, got %v", store.lastQuery.DepartmentIDs)
	}

	if listing.Total != 2 || len(listing.Groups) != 2 {
		t.Fatalf("expected 2 rows in 2 groups, got %d rows in %d groups", listing.Total, len(listing.Groups))
	}
	if listing.Groups[0].Date != "2025-10-02" || listing.Groups[0].DayOfWeek != 4 {
		t.Fatalf("unexpected first group %+v", listing.Groups[0])
	}
	if listing.Groups[1].Date != "2025-10-05" || listing.Groups[1].DayOfWeek != 0 {
		t.Fatalf("unexpected second group %+v", listing.Groups[1])
	}
	if got := listing.Groups[0].Rows[0].MemberName; got != "Ana" {
		t.Fatalf("expected joined member name, got %q", got)
	}
}

func TestScheduleService_ListSchedules_LeaderWithoutDepartmentsNeverQueriesRows(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	seedChurch(store)
	svc := newScheduleServiceForTest(store, nil)

	_, err := svc.ListSchedules(context.Background(), ListSchedulesParams{
		Principal:  leaderPrincipal(21),
		MonthYear:  "2025-10",
		Department: scheduler.AllDepartments,
	})
	if !errors.Is(err, ErrNoDepartmentsAssigned) {
		t.Fatalf("expected ErrNoDepartmentsAssigned, got %v", err)
	}
	if got := store.count("ListSchedules"); got != 0 {
		t.Fatalf("expected no row fetches, got %d", got)
	}
}

func TestScheduleService_ListSchedules_LeaderScopedToLinkedDepartments(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	seedChurch(store)
	store.addSchedule(Schedule{DepartmentID: 2, Sector: "Voz", MemberID: 13, ServiceID: 4, Date: "2025-10-05", DayOfWeek: 0})
	svc := newScheduleServiceForTest(store, nil)

	// The token carries no departments; links are read from the store.
	listing, err := svc.ListSchedules(context.Background(), ListSchedulesParams{
		Principal:  leaderPrincipal(20),
		MonthYear:  "2025-10",
		Department: scheduler.AllDepartments,
	})
	if err != nil {
		t.Fatalf("ListSchedules returned error: %v", err)
	}
	if len(store.lastQuery.DepartmentIDs) != 1 || store.lastQuery.DepartmentIDs[0] != 1 {
		t.Fatalf("expected query constrained to department 1, got %v", store.lastQuery.DepartmentIDs)
	}
	if listing.Total != 1 {
		t.Fatalf("expected 1 visible schedule, got %d", listing.Total)
	}

	_, err = svc.ListSchedules(context.Background(), ListSchedulesParams{
		Principal:  leaderPrincipal(20),
		MonthYear:  "2025-10",
		Department: scheduler.OnlyDepartment(2),
	})
	if !errors.Is(err, ErrDepartmentAccessDenied) {
		t.Fatalf("expected ErrDepartmentAccessDenied, got %v", err)
	}
}

func TestScheduleService_ListSchedules_EmptyPeriodAndInvalidMonth(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	seedChurch(store)
	svc := newScheduleServiceForTest(store, nil)

	listing, err := svc.ListSchedules(context.Background(), ListSchedulesParams{
		Principal:  adminPrincipal,
		MonthYear:  "2025-12",
		Department: scheduler.AllDepartments,
	})
	if err != nil {
		t.Fatalf("ListSchedules returned error: %v", err)
	}
	if !listing.Empty() || len(listing.Groups) != 0 {
		t.Fatalf("expected empty listing, got %+v", listing)
	}

	_, err = svc.ListSchedules(context.Background(), ListSchedulesParams{
		Principal:  adminPrincipal,
		MonthYear:  "2025-13",
		Department: scheduler.AllDepartments,
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["month"] == "" {
		t.Fatalf("expected month validation error, got %v", err)
	}
}

func TestScheduleService_ListSchedules_WarnsOnStaleStoredDay(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store := newMemoryStore()
	seedChurch(store)
	store.addSchedule(Schedule{ID: 150, DepartmentID: 1, Sector: "Hall", MemberID: 12, ServiceID: 4, Date: "2025-10-05", DayOfWeek: 3})
	svc := newScheduleServiceForTest(store, logger)

	listing, err := svc.ListSchedules(context.Background(), ListSchedulesParams{
		Principal:  adminPrincipal,
		MonthYear:  "2025-10",
		Department: scheduler.AllDepartments,
	})
	if err != nil {
		t.Fatalf("ListSchedules returned error: %v", err)
	}

	row := listing.Groups[1].Rows[0]
	if row.ID != 150 || row.DayOfWeek != 0 {
		t.Fatalf("expected computed day 0 for schedule 150, got %+v", row)
	}
	out := logs.String()
	if !strings.Contains(out, `"stored_day_of_week":3`) || !strings.Contains(out, `"computed_day_of_week":0`) {
		t.Fatalf("expected stale day warning, got %s", out)
	}
}

func TestScheduleService_CreateSchedule(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	seedChurch(store)
	svc := newScheduleServiceForTest(store, nil)

	created, err := svc.CreateSchedule(context.Background(), CreateScheduleParams{
		Principal: leaderPrincipal(20),
		Input: ScheduleInput{
			DepartmentID: 1,
			Sector:       " Hall ",
			MemberID:     12,
			ServiceID:    4,
			Date:         "2025-10-05",
		},
	})
	if err != nil {
		t.Fatalf("CreateSchedule returned error: %v", err)
	}
	if created.ID == 0 || created.DayOfWeek != 0 || created.Sector != "Hall" {
		t.Fatalf("unexpected schedule %+v", created)
	}
	if created.ServiceName != "Domingo Manhã" {
		t.Fatalf("expected joined service name, got %q", created.ServiceName)
	}
}

func TestScheduleService_CreateSchedule_DuplicateIsRejected(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	seedChurch(store)
	svc := newScheduleServiceForTest(store, nil)

	_, err := svc.CreateSchedule(context.Background(), CreateScheduleParams{
		Principal: adminPrincipal,
		Input: ScheduleInput{
			DepartmentID: 1,
			Sector:       "Hall",
			MemberID:     12,
			ServiceID:    3,
			Date:         "2025-10-02",
		},
	})
	if !errors.Is(err, ErrScheduleConflict) {
		t.Fatalf("expected ErrScheduleConflict, got %v", err)
	}
	if got := store.count("CreateSchedule"); got != 0 {
		t.Fatalf("expected no insert, got %d", got)
	}
}

func TestScheduleService_CreateSchedule_ConflictCheckUnavailable(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	seedChurch(store)
	store.failWith("FindAssignments", persistence.ErrUnavailable)
	svc := newScheduleServiceForTest(store, nil)

	_, err := svc.CreateSchedule(context.Background(), CreateScheduleParams{
		Principal: adminPrincipal,
		Input: ScheduleInput{
			DepartmentID: 1,
			Sector:       "Hall",
			MemberID:     12,
			ServiceID:    4,
			Date:         "2025-10-09",
		},
	})
	if !errors.Is(err, ErrConflictCheckUnavailable) {
		t.Fatalf("expected ErrConflictCheckUnavailable, got %v", err)
	}
	if got := store.count("CreateSchedule"); got != 0 {
		t.Fatalf("expected write to be refused, got %d inserts", got)
	}
}

func TestScheduleService_CreateSchedule_Validation(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	seedChurch(store)
	svc := newScheduleServiceForTest(store, nil)

	tests := []struct {
		name  string
		input ScheduleInput
		field string
	}{
		{
			name:  "missing fields",
			input: ScheduleInput{},
			field: "department_id",
		},
		{
			name:  "malformed date",
			input: ScheduleInput{DepartmentID: 1, Sector: "Hall", MemberID: 12, ServiceID: 4, Date: "05/10/2025"},
			field: "date",
		},
		{
			name:  "impossible date",
			input: ScheduleInput{DepartmentID: 1, Sector: "Hall", MemberID: 12, ServiceID: 4, Date: "2025-02-30"},
			field: "date",
		},
		{
			name:  "sector outside department",
			input: ScheduleInput{DepartmentID: 1, Sector: "Voz", MemberID: 12, ServiceID: 4, Date: "2025-10-05"},
			field: "sector",
		},
		{
			name:  "member outside department",
			input: ScheduleInput{DepartmentID: 1, Sector: "Hall", MemberID: 13, ServiceID: 4, Date: "2025-10-05"},
			field: "member_id",
		},
		{
			name:  "unknown department",
			input: ScheduleInput{DepartmentID: 77, Sector: "Hall", MemberID: 12, ServiceID: 4, Date: "2025-10-05"},
			field: "department_id",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateSchedule(context.Background(), CreateScheduleParams{Principal: adminPrincipal, Input: tc.input})
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if vErr.FieldErrors[tc.field] == "" {
				t.Fatalf("expected error on %q, got %v", tc.field, vErr.FieldErrors)
			}
		})
	}
	if got := store.count("CreateSchedule"); got != 0 {
		t.Fatalf("expected no insert, got %d", got)
	}
}

func TestScheduleService_CreateSchedule_AccessRules(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	seedChurch(store)
	svc := newScheduleServiceForTest(store, nil)
	input := ScheduleInput{DepartmentID: 2, Sector: "Voz", MemberID: 13, ServiceID: 4, Date: "2025-10-05"}

	_, err := svc.CreateSchedule(context.Background(), CreateScheduleParams{Principal: leaderPrincipal(20), Input: input})
	if !errors.Is(err, ErrDepartmentAccessDenied) {
		t.Fatalf("expected ErrDepartmentAccessDenied, got %v", err)
	}

	_, err = svc.CreateSchedule(context.Background(), CreateScheduleParams{Principal: leaderPrincipal(21), Input: input})
	if !errors.Is(err, ErrNoDepartmentsAssigned) {
		t.Fatalf("expected ErrNoDepartmentsAssigned, got %v", err)
	}

	pending := Principal{UserID: 30, Role: access.RolePending}
	_, err = svc.CreateSchedule(context.Background(), CreateScheduleParams{Principal: pending, Input: input})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestScheduleService_CreateSchedule_ForeignDepartmentRejectedBeforeLookups(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		departmentID int64
	}{
		{name: "missing department", departmentID: 7},
		{name: "existing department outside scope", departmentID: 2},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := newMemoryStore()
			seedChurch(store)
			svc := newScheduleServiceForTest(store, nil)

			_, err := svc.CreateSchedule(context.Background(), CreateScheduleParams{
				Principal: leaderPrincipal(20),
				Input:     ScheduleInput{DepartmentID: tc.departmentID, Sector: "Voz", MemberID: 13, ServiceID: 4, Date: "2025-10-05"},
			})
			if !errors.Is(err, ErrDepartmentAccessDenied) {
				t.Fatalf("expected ErrDepartmentAccessDenied, got %v", err)
			}
			if got := store.count("GetDepartment"); got != 0 {
				t.Fatalf("expected no department lookup, got %d", got)
			}
			if got := store.count("GetMember"); got != 0 {
				t.Fatalf("expected no member lookup, got %d", got)
			}
			if got := store.count("FindAssignments"); got != 0 {
				t.Fatalf("expected no conflict lookup, got %d", got)
			}
		})
	}
}

func TestScheduleService_UpdateSchedule_ForeignDepartmentRejectedBeforeLookups(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	seedChurch(store)
	svc := newScheduleServiceForTest(store, nil)

	_, err := svc.UpdateSchedule(context.Background(), UpdateScheduleParams{
		Principal:  leaderPrincipal(20),
		ScheduleID: 99,
		Input:      ScheduleInput{DepartmentID: 7, Sector: "Voz", MemberID: 13, ServiceID: 3, Date: "2025-10-02"},
	})
	if !errors.Is(err, ErrDepartmentAccessDenied) {
		t.Fatalf("expected ErrDepartmentAccessDenied, got %v", err)
	}
	if got := store.count("GetDepartment") + store.count("GetMember"); got != 0 {
		t.Fatalf("expected no reference lookups, got %d", got)
	}
	if got := store.count("UpdateSchedule"); got != 0 {
		t.Fatalf("expected no update, got %d", got)
	}
}

func TestScheduleService_UpdateSchedule_UnchangedDoesNotConflictWithItself(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	seedChurch(store)
	svc := newScheduleServiceForTest(store, nil)

	updated, err := svc.UpdateSchedule(context.Background(), UpdateScheduleParams{
		Principal:  adminPrincipal,
		ScheduleID: 99,
		Input: ScheduleInput{
			DepartmentID: 1,
			Sector:       "Porta",
			MemberID:     12,
			ServiceID:    3,
			Date:         "2025-10-02",
		},
	})
	if err != nil {
		t.Fatalf("UpdateSchedule returned error: %v", err)
	}
	if updated.ID != 99 || updated.DayOfWeek != 4 {
		t.Fatalf("unexpected schedule %+v", updated)
	}
}

func TestScheduleService_UpdateSchedule_ConflictsWithAnotherRow(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	seedChurch(store)
	other := store.addSchedule(Schedule{DepartmentID: 1, Sector: "Hall", MemberID: 12, ServiceID: 4, Date: "2025-10-05", DayOfWeek: 0})
	svc := newScheduleServiceForTest(store, nil)

	_, err := svc.UpdateSchedule(context.Background(), UpdateScheduleParams{
		Principal:  adminPrincipal,
		ScheduleID: other.ID,
		Input: ScheduleInput{
			DepartmentID: 1,
			Sector:       "Hall",
			MemberID:     12,
			ServiceID:    3,
			Date:         "2025-10-02",
		},
	})
	if !errors.Is(err, ErrScheduleConflict) {
		t.Fatalf("expected ErrScheduleConflict, got %v", err)
	}
	if got := store.count("UpdateSchedule"); got != 0 {
		t.Fatalf("expected no update, got %d", got)
	}
}

func TestScheduleService_UpdateSchedule_LeaderCannotMoveOutOfDepartment(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	seedChurch(store)
	svc := newScheduleServiceForTest(store, nil)

	_, err := svc.UpdateSchedule(context.Background(), UpdateScheduleParams{
		Principal:  leaderPrincipal(20),
		ScheduleID: 99,
		Input:      ScheduleInput{DepartmentID: 2, Sector: "Voz", MemberID: 13, ServiceID: 3, Date: "2025-10-02"},
	})
	if !errors.Is(err, ErrDepartmentAccessDenied) {
		t.Fatalf("expected ErrDepartmentAccessDenied, got %v", err)
	}
}

func TestScheduleService_GetAndDeleteSchedule(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	seedChurch(store)
	store.addSchedule(Schedule{ID: 120, DepartmentID: 2, Sector: "Voz", MemberID: 13, ServiceID: 4, Date: "2025-10-05", DayOfWeek: 0})
	svc := newScheduleServiceForTest(store, nil)
	ctx := context.Background()

	if _, err := svc.GetSchedule(ctx, leaderPrincipal(20), 120); !errors.Is(err, ErrDepartmentAccessDenied) {
		t.Fatalf("expected ErrDepartmentAccessDenied, got %v", err)
	}
	got, err := svc.GetSchedule(ctx, leaderPrincipal(20), 99)
	if err != nil || got.ID != 99 {
		t.Fatalf("expected schedule 99, got %+v (%v)", got, err)
	}

	if err := svc.DeleteSchedule(ctx, leaderPrincipal(20), 120); !errors.Is(err, ErrDepartmentAccessDenied) {
		t.Fatalf("expected ErrDepartmentAccessDenied, got %v", err)
	}
	if err := svc.DeleteSchedule(ctx, leaderPrincipal(20), 99); err != nil {
		t.Fatalf("DeleteSchedule returned error: %v", err)
	}
	if _, err := svc.GetSchedule(ctx, adminPrincipal, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
