package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/volunteer-scheduler/internal/access"
	"github.com/example/volunteer-scheduler/internal/application"
)

var (
	adminPrincipal  = application.Principal{UserID: 1, Username: "admin", Role: access.RoleAdministrator, SessionID: "s-admin"}
	leaderPrincipal = application.Principal{UserID: 20, Username: "lider", Role: access.RoleLeader, DepartmentIDs: []int64{1}, SessionID: "s-leader"}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubSessions struct {
	principals map[string]application.Principal
	errs       map[string]error
}

func (s stubSessions) ValidateSession(_ context.Context, token string) (application.Principal, error) {
	if err, ok := s.errs[token]; ok {
		return application.Principal{}, err
	}
	if p, ok := s.principals[token]; ok {
		return p, nil
	}
	return application.Principal{}, application.ErrUnauthorized
}

func defaultSessions() stubSessions {
	return stubSessions{
		principals: map[string]application.Principal{
			"admin-token":  adminPrincipal,
			"leader-token": leaderPrincipal,
		},
		errs: map[string]error{
			"expired-token": application.ErrSessionExpired,
			"revoked-token": application.ErrSessionRevoked,
			"down-token":    application.ErrStoreUnavailable,
		},
	}
}

type stubAuth struct {
	result     application.AuthenticateResult
	err        error
	revoked    []string
	revokeErr  error
	lastParams application.AuthenticateParams
}

func (s *stubAuth) Authenticate(_ context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	s.lastParams = params
	return s.result, s.err
}

func (s *stubAuth) RevokeSession(_ context.Context, token string) error {
	s.revoked = append(s.revoked, token)
	return s.revokeErr
}

func (s *stubAuth) CurrentSession(_ context.Context, principal application.Principal) (application.SessionInfo, []access.Section, error) {
	info := application.SessionInfo{
		ID:          principal.SessionID,
		UserID:      principal.UserID,
		Username:    principal.Username,
		Level:       principal.Role,
		Departments: principal.DepartmentIDs,
	}
	return info, access.Sections(principal.Role), nil
}

type stubSchedules struct {
	listing    application.ScheduleListing
	listErr    error
	lastList   application.ListSchedulesParams
	schedule   application.Schedule
	err        error
	lastCreate application.CreateScheduleParams
	lastUpdate application.UpdateScheduleParams
	deleted    []int64
}

func (s *stubSchedules) ListSchedules(_ context.Context, params application.ListSchedulesParams) (application.ScheduleListing, error) {
	s.lastList = params
	return s.listing, s.listErr
}

func (s *stubSchedules) GetSchedule(_ context.Context, _ application.Principal, id int64) (application.Schedule, error) {
	if s.err != nil {
		return application.Schedule{}, s.err
	}
	out := s.schedule
	out.ID = id
	return out, nil
}

func (s *stubSchedules) CreateSchedule(_ context.Context, params application.CreateScheduleParams) (application.Schedule, error) {
	s.lastCreate = params
	return s.schedule, s.err
}

func (s *stubSchedules) UpdateSchedule(_ context.Context, params application.UpdateScheduleParams) (application.Schedule, error) {
	s.lastUpdate = params
	return s.schedule, s.err
}

func (s *stubSchedules) DeleteSchedule(_ context.Context, _ application.Principal, id int64) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

type stubExporter struct {
	file application.ExportFile
	err  error
	last application.ExportParams
}

func (s *stubExporter) Export(_ context.Context, params application.ExportParams) (application.ExportFile, error) {
	s.last = params
	return s.file, s.err
}

type stubDepartments struct {
	departments []application.Department
	err         error
	lastMine    bool
	lastCreate  application.CreateDepartmentParams
}

func (s *stubDepartments) ListDepartments(_ context.Context, _ application.Principal, mine bool) ([]application.Department, error) {
	s.lastMine = mine
	return s.departments, s.err
}

func (s *stubDepartments) GetDepartment(_ context.Context, _ application.Principal, id int64) (application.Department, error) {
	for _, d := range s.departments {
		if d.ID == id {
			return d, nil
		}
	}
	return application.Department{}, application.ErrNotFound
}

func (s *stubDepartments) ListSectors(ctx context.Context, principal application.Principal, id int64) ([]string, error) {
	d, err := s.GetDepartment(ctx, principal, id)
	return d.Sectors, err
}

func (s *stubDepartments) CreateDepartment(_ context.Context, params application.CreateDepartmentParams) (application.Department, error) {
	s.lastCreate = params
	return application.Department{ID: 7, Name: params.Input.Name, Sectors: params.Input.Sectors}, s.err
}

func (s *stubDepartments) UpdateDepartment(_ context.Context, params application.UpdateDepartmentParams) (application.Department, error) {
	return application.Department{ID: params.DepartmentID, Name: params.Input.Name, Sectors: params.Input.Sectors}, s.err
}

func (s *stubDepartments) DeleteDepartment(context.Context, application.Principal, int64) error {
	return s.err
}

type stubMembers struct {
	members []application.Member
	err     error
	last    application.ListMembersParams
}

func (s *stubMembers) ListMembers(_ context.Context, params application.ListMembersParams) ([]application.Member, error) {
	s.last = params
	return s.members, s.err
}

func (s *stubMembers) GetMember(context.Context, application.Principal, int64) (application.Member, error) {
	return application.Member{}, application.ErrNotFound
}

func (s *stubMembers) CreateMember(_ context.Context, params application.CreateMemberParams) (application.Member, error) {
	return application.Member{ID: 30, Name: params.Input.Name, Type: params.Input.Type, DepartmentIDs: params.Input.DepartmentIDs}, s.err
}

func (s *stubMembers) UpdateMember(_ context.Context, params application.UpdateMemberParams) (application.Member, error) {
	return application.Member{ID: params.MemberID, Name: params.Input.Name}, s.err
}

func (s *stubMembers) DeleteMember(context.Context, application.Principal, int64) error {
	return s.err
}

type stubUsers struct {
	users      []application.User
	err        error
	lastUpdate application.UpdateUserParams
}

func (s *stubUsers) ListUsers(context.Context, application.Principal) ([]application.User, error) {
	return s.users, s.err
}

func (s *stubUsers) CreateUser(_ context.Context, params application.CreateUserParams) (application.User, error) {
	return application.User{ID: 40, Username: params.Input.Username, Level: params.Input.Level}, s.err
}

func (s *stubUsers) UpdateUser(_ context.Context, params application.UpdateUserParams) (application.User, error) {
	s.lastUpdate = params
	return application.User{ID: params.UserID, Username: params.Input.Username, Level: params.Input.Level}, s.err
}

func (s *stubUsers) DeleteUser(context.Context, application.Principal, int64) error {
	return s.err
}

type stubCatalog struct {
	services []application.Service
	err      error
}

func (s *stubCatalog) ListServices(context.Context, application.Principal) ([]application.Service, error) {
	return s.services, s.err
}

func (s *stubCatalog) CreateService(_ context.Context, params application.CreateServiceParams) (application.Service, error) {
	return application.Service{ID: 5, Name: params.Input.Name}, s.err
}

func (s *stubCatalog) UpdateService(_ context.Context, params application.UpdateServiceParams) (application.Service, error) {
	return application.Service{ID: params.ServiceID, Name: params.Input.Name}, s.err
}

func (s *stubCatalog) DeleteService(context.Context, application.Principal, int64) error {
	return s.err
}

type stubStats struct {
	stats application.DashboardStats
	err   error
}

func (s stubStats) Dashboard(context.Context, application.Principal) (application.DashboardStats, error) {
	return s.stats, s.err
}

type stubMaintenance struct {
	report application.RepairReport
	err    error
}

func (s stubMaintenance) RepairDaysOfWeek(context.Context, application.Principal) (application.RepairReport, error) {
	return s.report, s.err
}

type testServer struct {
	auth        *stubAuth
	schedules   *stubSchedules
	exporter    *stubExporter
	departments *stubDepartments
	members     *stubMembers
	users       *stubUsers
	catalog     *stubCatalog
	stats       stubStats
	maintenance stubMaintenance
	limiter     *RateLimiter
}

var testNow = time.Date(2025, time.October, 15, 9, 0, 0, 0, time.UTC)

func newTestServer() *testServer {
	return &testServer{
		auth:        &stubAuth{},
		schedules:   &stubSchedules{},
		exporter:    &stubExporter{},
		departments: &stubDepartments{},
		members:     &stubMembers{},
		users:       &stubUsers{},
		catalog:     &stubCatalog{},
	}
}

func (ts *testServer) handler() http.Handler {
	logger := discardLogger()
	now := func() time.Time { return testNow }
	return NewRouter(RouterConfig{
		Logger:       logger,
		Sessions:     defaultSessions(),
		Auth:         NewAuthHandler(ts.auth, logger),
		Dashboard:    NewDashboardHandler(ts.stats, ts.maintenance, logger),
		Departments:  NewDepartmentHandler(ts.departments, logger),
		Members:      NewMemberHandler(ts.members, logger),
		Services:     NewServiceHandler(ts.catalog, logger),
		Users:        NewUserHandler(ts.users, logger),
		Schedules:    NewScheduleHandler(ts.schedules, now, logger),
		Export:       NewExportHandler(ts.exporter, now, logger),
		LoginLimiter: ts.limiter,
	})
}

func (ts *testServer) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler().ServeHTTP(rec, req)
	return rec
}
