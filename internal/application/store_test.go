package application

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/volunteer-scheduler/internal/access"
	"github.com/example/volunteer-scheduler/internal/persistence"
	"github.com/example/volunteer-scheduler/internal/scheduler"
)

// memoryStore implements every repository interface over maps. Errors can be
// injected per operation name through fail.
type memoryStore struct {
	mu          sync.Mutex
	nextID      int64
	departments map[int64]Department
	members     map[int64]Member
	services    map[int64]Service
	users       map[int64]UserCredentials
	schedules   map[int64]Schedule
	sessions    map[string]Session
	fail        map[string]error
	calls       map[string]int
	lastQuery   *scheduler.Query
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		nextID:      100,
		departments: map[int64]Department{},
		members:     map[int64]Member{},
		services:    map[int64]Service{},
		users:       map[int64]UserCredentials{},
		schedules:   map[int64]Schedule{},
		sessions:    map[string]Session{},
		fail:        map[string]error{},
		calls:       map[string]int{},
	}
}

func (m *memoryStore) call(op string) error {
	m.calls[op]++
	return m.fail[op]
}

func (m *memoryStore) failWith(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = err
}

func (m *memoryStore) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *memoryStore) id(requested int64) int64 {
	if requested > 0 {
		return requested
	}
	m.nextID++
	return m.nextID
}

// seeding helpers keep explicit ids when given.

func (m *memoryStore) addDepartment(d Department) Department {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = m.id(d.ID)
	m.departments[d.ID] = d
	return d
}

func (m *memoryStore) addMember(member Member) Member {
	m.mu.Lock()
	defer m.mu.Unlock()
	member.ID = m.id(member.ID)
	m.members[member.ID] = member
	return member
}

func (m *memoryStore) addService(s Service) Service {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id(s.ID)
	m.services[s.ID] = s
	return s
}

func (m *memoryStore) addUser(creds UserCredentials) UserCredentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	creds.User.ID = m.id(creds.User.ID)
	m.users[creds.User.ID] = creds
	return creds
}

func (m *memoryStore) addSchedule(s Schedule) Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id(s.ID)
	m.schedules[s.ID] = s
	return s
}

// Departments

func (m *memoryStore) CreateDepartment(_ context.Context, d Department) (Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CreateDepartment"); err != nil {
		return Department{}, err
	}
	d.ID = m.id(0)
	m.departments[d.ID] = d
	return d, nil
}

func (m *memoryStore) GetDepartment(_ context.Context, id int64) (Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("GetDepartment"); err != nil {
		return Department{}, err
	}
	d, ok := m.departments[id]
	if !ok {
		return Department{}, persistence.ErrNotFound
	}
	return d, nil
}

func (m *memoryStore) UpdateDepartment(_ context.Context, d Department) (Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("UpdateDepartment"); err != nil {
		return Department{}, err
	}
	if _, ok := m.departments[d.ID]; !ok {
		return Department{}, persistence.ErrNotFound
	}
	m.departments[d.ID] = d
	return d, nil
}

func (m *memoryStore) DeleteDepartment(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("DeleteDepartment"); err != nil {
		return err
	}
	if _, ok := m.departments[id]; !ok {
		return persistence.ErrNotFound
	}
	for _, s := range m.schedules {
		if s.DepartmentID == id {
			return persistence.ErrForeignKeyViolation
		}
	}
	delete(m.departments, id)
	return nil
}

func (m *memoryStore) ListDepartments(_ context.Context, ids []int64) ([]Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ListDepartments"); err != nil {
		return nil, err
	}
	out := []Department{}
	for _, d := range m.departments {
		if ids == nil || slices.Contains(ids, d.ID) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) CountDepartments(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CountDepartments"); err != nil {
		return 0, err
	}
	return len(m.departments), nil
}

// Members

func (m *memoryStore) CreateMember(_ context.Context, member Member) (Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CreateMember"); err != nil {
		return Member{}, err
	}
	member.ID = m.id(0)
	m.members[member.ID] = member
	return member, nil
}

func (m *memoryStore) GetMember(_ context.Context, id int64) (Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("GetMember"); err != nil {
		return Member{}, err
	}
	member, ok := m.members[id]
	if !ok {
		return Member{}, persistence.ErrNotFound
	}
	return member, nil
}

func (m *memoryStore) UpdateMember(_ context.Context, member Member) (Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("UpdateMember"); err != nil {
		return Member{}, err
	}
	if _, ok := m.members[member.ID]; !ok {
		return Member{}, persistence.ErrNotFound
	}
	m.members[member.ID] = member
	return member, nil
}

func (m *memoryStore) DeleteMember(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("DeleteMember"); err != nil {
		return err
	}
	if _, ok := m.members[id]; !ok {
		return persistence.ErrNotFound
	}
	for _, s := range m.schedules {
		if s.MemberID == id {
			return persistence.ErrForeignKeyViolation
		}
	}
	delete(m.members, id)
	return nil
}

func (m *memoryStore) ListMembers(_ context.Context, departmentID *int64) ([]Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ListMembers"); err != nil {
		return nil, err
	}
	out := []Member{}
	for _, member := range m.members {
		if departmentID == nil || slices.Contains(member.DepartmentIDs, *departmentID) {
			out = append(out, member)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) CountMembers(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CountMembers"); err != nil {
		return 0, err
	}
	return len(m.members), nil
}

// Services

func (m *memoryStore) CreateService(_ context.Context, s Service) (Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CreateService"); err != nil {
		return Service{}, err
	}
	s.ID = m.id(0)
	m.services[s.ID] = s
	return s, nil
}

func (m *memoryStore) GetService(_ context.Context, id int64) (Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("GetService"); err != nil {
		return Service{}, err
	}
	s, ok := m.services[id]
	if !ok {
		return Service{}, persistence.ErrNotFound
	}
	return s, nil
}

func (m *memoryStore) UpdateService(_ context.Context, s Service) (Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("UpdateService"); err != nil {
		return Service{}, err
	}
	if _, ok := m.services[s.ID]; !ok {
		return Service{}, persistence.ErrNotFound
	}
	m.services[s.ID] = s
	return s, nil
}

func (m *memoryStore) DeleteService(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("DeleteService"); err != nil {
		return err
	}
	if _, ok := m.services[id]; !ok {
		return persistence.ErrNotFound
	}
	for _, s := range m.schedules {
		if s.ServiceID == id {
			return persistence.ErrForeignKeyViolation
		}
	}
	delete(m.services, id)
	return nil
}

func (m *memoryStore) ListServices(context.Context) ([]Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ListServices"); err != nil {
		return nil, err
	}
	out := []Service{}
	for _, s := range m.services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) CountServices(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CountServices"); err != nil {
		return 0, err
	}
	return len(m.services), nil
}

// Users

func (m *memoryStore) CreateUser(_ context.Context, creds UserCredentials) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CreateUser"); err != nil {
		return User{}, err
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.User.Username, creds.User.Username) {
			return User{}, persistence.ErrDuplicate
		}
	}
	creds.User.ID = m.id(0)
	m.users[creds.User.ID] = creds
	return creds.User, nil
}

func (m *memoryStore) UpdateUser(_ context.Context, creds UserCredentials) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("UpdateUser"); err != nil {
		return User{}, err
	}
	if _, ok := m.users[creds.User.ID]; !ok {
		return User{}, persistence.ErrNotFound
	}
	for id, existing := range m.users {
		if id != creds.User.ID && strings.EqualFold(existing.User.Username, creds.User.Username) {
			return User{}, persistence.ErrDuplicate
		}
	}
	m.users[creds.User.ID] = creds
	return creds.User, nil
}

func (m *memoryStore) GetUserCredentials(_ context.Context, id int64) (UserCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("GetUserCredentials"); err != nil {
		return UserCredentials{}, err
	}
	creds, ok := m.users[id]
	if !ok {
		return UserCredentials{}, persistence.ErrNotFound
	}
	return creds, nil
}

func (m *memoryStore) GetUserCredentialsByUsername(_ context.Context, username string) (UserCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("GetUserCredentialsByUsername"); err != nil {
		return UserCredentials{}, err
	}
	for _, creds := range m.users {
		if strings.EqualFold(creds.User.Username, strings.TrimSpace(username)) {
			return creds, nil
		}
	}
	return UserCredentials{}, persistence.ErrNotFound
}

func (m *memoryStore) DeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("DeleteUser"); err != nil {
		return err
	}
	if _, ok := m.users[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memoryStore) ListUsers(context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ListUsers"); err != nil {
		return nil, err
	}
	out := []User{}
	for _, creds := range m.users {
		out = append(out, creds.User)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) CountUsers(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CountUsers"); err != nil {
		return 0, err
	}
	return len(m.users), nil
}

func (m *memoryStore) ListUserDepartmentIDs(_ context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ListUserDepartmentIDs"); err != nil {
		return nil, err
	}
	creds, ok := m.users[userID]
	if !ok {
		return []int64{}, nil
	}
	ids := slices.Clone(creds.User.DepartmentIDs)
	slices.Sort(ids)
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

// Schedules

func (m *memoryStore) FindAssignments(_ context.Context, memberID, serviceID int64, date string) ([]scheduler.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("FindAssignments"); err != nil {
		return nil, err
	}
	out := []scheduler.Assignment{}
	for _, s := range m.schedules {
		if s.MemberID == memberID && s.ServiceID == serviceID && s.Date == date {
			out = append(out, scheduler.Assignment{ID: s.ID, MemberID: s.MemberID, ServiceID: s.ServiceID, Date: s.Date})
		}
	}
	return out, nil
}

func (m *memoryStore) withNames(s Schedule) Schedule {
	s.DepartmentName = m.departments[s.DepartmentID].Name
	s.MemberName = m.members[s.MemberID].Name
	s.ServiceName = m.services[s.ServiceID].Name
	return s
}

func (m *memoryStore) CreateSchedule(_ context.Context, s Schedule) (Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CreateSchedule"); err != nil {
		return Schedule{}, err
	}
	s.ID = m.id(0)
	m.schedules[s.ID] = s
	return m.withNames(s), nil
}

func (m *memoryStore) GetSchedule(_ context.Context, id int64) (Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("GetSchedule"); err != nil {
		return Schedule{}, err
	}
	s, ok := m.schedules[id]
	if !ok {
		return Schedule{}, persistence.ErrNotFound
	}
	return m.withNames(s), nil
}

func (m *memoryStore) UpdateSchedule(_ context.Context, s Schedule) (Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("UpdateSchedule"); err != nil {
		return Schedule{}, err
	}
	if _, ok := m.schedules[s.ID]; !ok {
		return Schedule{}, persistence.ErrNotFound
	}
	m.schedules[s.ID] = s
	return m.withNames(s), nil
}

func (m *memoryStore) DeleteSchedule(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("DeleteSchedule"); err != nil {
		return err
	}
	if _, ok := m.schedules[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.schedules, id)
	return nil
}

func (m *memoryStore) matching(query scheduler.Query) []Schedule {
	out := []Schedule{}
	for _, s := range m.schedules {
		if s.Date < query.From || s.Date > query.To {
			continue
		}
		if query.DepartmentIDs != nil && !slices.Contains(query.DepartmentIDs, s.DepartmentID) {
			continue
		}
		out = append(out, m.withNames(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].ServiceID != out[j].ServiceID {
			return out[i].ServiceID < out[j].ServiceID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *memoryStore) ListSchedules(_ context.Context, query scheduler.Query) ([]Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ListSchedules"); err != nil {
		return nil, err
	}
	m.lastQuery = &query
	return m.matching(query), nil
}

func (m *memoryStore) CountSchedules(_ context.Context, query scheduler.Query) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CountSchedules"); err != nil {
		return 0, err
	}
	return len(m.matching(query)), nil
}

func (m *memoryStore) ListScheduleDays(context.Context) ([]ScheduleDay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ListScheduleDays"); err != nil {
		return nil, err
	}
	out := []ScheduleDay{}
	for _, s := range m.schedules {
		out = append(out, ScheduleDay{ID: s.ID, Date: s.Date, DayOfWeek: s.DayOfWeek})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) UpdateDayOfWeek(_ context.Context, id int64, dayOfWeek int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("UpdateDayOfWeek"); err != nil {
		return err
	}
	s, ok := m.schedules[id]
	if !ok {
		return persistence.ErrNotFound
	}
	s.DayOfWeek = dayOfWeek
	m.schedules[id] = s
	return nil
}

// Sessions

func (m *memoryStore) CreateSession(_ context.Context, s Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CreateSession"); err != nil {
		return Session{}, err
	}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *memoryStore) GetSession(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("GetSession"); err != nil {
		return Session{}, err
	}
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	return s, nil
}

func (m *memoryStore) RevokeSession(_ context.Context, id string, revokedAt time.Time) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("RevokeSession"); err != nil {
		return Session{}, err
	}
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	if s.RevokedAt == nil {
		s.RevokedAt = &revokedAt
	}
	m.sessions[id] = s
	return s, nil
}

func (m *memoryStore) DeleteExpiredSessions(_ context.Context, reference time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("DeleteExpiredSessions"); err != nil {
		return 0, err
	}
	var removed int64
	for id, s := range m.sessions {
		if !reference.Before(s.ExpiresAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

var (
	_ DepartmentRepository = (*memoryStore)(nil)
	_ MemberRepository     = (*memoryStore)(nil)
	_ ServiceRepository    = (*memoryStore)(nil)
	_ UserRepository       = (*memoryStore)(nil)
	_ DepartmentLinks      = (*memoryStore)(nil)
	_ ScheduleRepository   = (*memoryStore)(nil)
	_ SessionRepository    = (*memoryStore)(nil)
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var adminPrincipal = Principal{UserID: 1, Username: "admin", Role: access.RoleAdministrator}

func leaderPrincipal(id int64, departments ...int64) Principal {
	return Principal{UserID: id, Username: "lider", Role: access.RoleLeader, DepartmentIDs: departments}
}

// seedChurch stores two departments, two members, two services, two leaders
// and schedule 99 (member 12, service 3, 2025-10-02).
func seedChurch(store *memoryStore) {
	store.addDepartment(Department{ID: 1, Name: "Recepção", Sectors: []string{"Porta", "Hall"}})
	store.addDepartment(Department{ID: 2, Name: "Louvor", Sectors: []string{"Voz"}})
	store.addMember(Member{ID: 12, Name: "Ana", Phone: "11999990000", Type: MemberTypeLed, DepartmentIDs: []int64{1}})
	store.addMember(Member{ID: 13, Name: "Bruno", Phone: "11999990001", Type: MemberTypeGuest, DepartmentIDs: []int64{2}})
	store.addService(Service{ID: 3, Name: "Quinta Noite"})
	store.addService(Service{ID: 4, Name: "Domingo Manhã"})
	store.addUser(UserCredentials{User: User{ID: 20, Username: "lider.recepcao", Level: access.RoleLeader, DepartmentIDs: []int64{1}}})
	store.addUser(UserCredentials{User: User{ID: 21, Username: "lider.sem.departamento", Level: access.RoleLeader}})
	store.addSchedule(Schedule{ID: 99, DepartmentID: 1, Sector: "Porta", MemberID: 12, ServiceID: 3, Date: "2025-10-02", DayOfWeek: 4})
}
