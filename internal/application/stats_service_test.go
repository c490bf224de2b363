package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/volunteer-scheduler/internal/access"
	"github.com/example/volunteer-scheduler/internal/persistence"
)

func newStatsServiceForTest(store *memoryStore) *StatsService {
	now := func() time.Time { return time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC) }
	return NewStatsService(store, store, store, store, store, store, now)
}

func TestStatsService_Dashboard(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	seedChurch(store)
	store.addSchedule(Schedule{DepartmentID: 2, Sector: "Voz", MemberID: 13, ServiceID: 4, Date: "2025-10-05", DayOfWeek: 0})
	store.addSchedule(Schedule{DepartmentID: 2, Sector: "Voz", MemberID: 13, ServiceID: 4, Date: "2025-11-02", DayOfWeek: 0})
	svc := newStatsServiceForTest(store)
	ctx := context.Background()

	stats, err := svc.Dashboard(ctx, adminPrincipal)
	if err != nil {
		t.Fatalf("Dashboard returned error: %v", err)
	}
	want := DashboardStats{Members: 2, Departments: 2, Services: 2, Users: 2, Schedules: 2, MonthYear: "2025-10"}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}

	leader, err := svc.Dashboard(ctx, leaderPrincipal(20))
	if err != nil {
		t.Fatalf("Dashboard for leader returned error: %v", err)
	}
	if leader.Schedules != 1 {
		t.Fatalf("expected leader to count only department 1, got %d", leader.Schedules)
	}

	unlinked, err := svc.Dashboard(ctx, leaderPrincipal(21))
	if err != nil {
		t.Fatalf("Dashboard for unlinked leader returned error: %v", err)
	}
	if unlinked.Schedules != 0 || unlinked.Members != 2 {
		t.Fatalf("unexpected stats for unlinked leader %+v", unlinked)
	}
}

func TestStatsService_Dashboard_Failures(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	seedChurch(store)
	svc := newStatsServiceForTest(store)
	ctx := context.Background()

	if _, err := svc.Dashboard(ctx, Principal{UserID: 5, Role: access.RolePending}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	store.failWith("CountUsers", persistence.ErrUnavailable)
	if _, err := svc.Dashboard(ctx, adminPrincipal); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
