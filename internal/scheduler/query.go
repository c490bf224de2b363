package scheduler

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/example/volunteer-scheduler/internal/access"
	"github.com/example/volunteer-scheduler/internal/calendar"
)

var (
	// ErrAccessDenied is returned when the actor may not see the requested department.
	ErrAccessDenied = errors.New("scheduler: department access denied")
	// ErrNoDepartmentsAssigned is returned when a department-scoped actor has no departments.
	ErrNoDepartmentsAssigned = errors.New("scheduler: no departments assigned")
	// ErrInvalidDepartmentFilter is returned for a filter that is neither "all" nor an id.
	ErrInvalidDepartmentFilter = errors.New("scheduler: invalid department filter")
)

// DepartmentFilter selects either every visible department or a single one.
type DepartmentFilter struct {
	All          bool
	DepartmentID int64
}

// AllDepartments is the filter that selects every department visible to the actor.
var AllDepartments = DepartmentFilter{All: true}

// OnlyDepartment selects a single department.
func OnlyDepartment(id int64) DepartmentFilter {
	return DepartmentFilter{DepartmentID: id}
}

// ParseDepartmentFilter reads "all", "" or a positive department id.
func ParseDepartmentFilter(value string) (DepartmentFilter, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || strings.EqualFold(trimmed, "all") {
		return AllDepartments, nil
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || id <= 0 {
		return DepartmentFilter{}, fmt.Errorf("%w: %q", ErrInvalidDepartmentFilter, value)
	}
	return OnlyDepartment(id), nil
}

func (f DepartmentFilter) String() string {
	if f.All {
		return "all"
	}
	return strconv.FormatInt(f.DepartmentID, 10)
}

// Actor is the role and department links of whoever runs the query.
type Actor struct {
	Role        access.Role
	Departments []int64
}

// Query holds the constraints passed to the store.
type Query struct {
	From string
	To   string
	// DepartmentIDs restricts results to these departments. Nil means unrestricted.
	DepartmentIDs []int64
}

// ResolveQuery turns a month, a department filter and the acting user into
// store constraints. Access errors are returned before anything is queried.
func ResolveQuery(monthYear string, filter DepartmentFilter, actor Actor) (Query, error) {
	from, to, err := calendar.MonthRange(monthYear)
	if err != nil {
		return Query{}, err
	}

	query := Query{From: from, To: to}
	if !filter.All {
		query.DepartmentIDs = []int64{filter.DepartmentID}
	}

	view := access.Action{Verb: access.VerbView, Entity: access.EntitySchedule}
	if access.Can(actor.Role, view, access.Scope{}) {
		return query, nil
	}
	if !access.DepartmentScoped(actor.Role) {
		return Query{}, ErrAccessDenied
	}

	if len(actor.Departments) == 0 {
		return Query{}, ErrNoDepartmentsAssigned
	}

	if !filter.All {
		if !access.Can(actor.Role, view, access.InDepartment(actor.Departments, filter.DepartmentID)) {
			return Query{}, ErrAccessDenied
		}
		return query, nil
	}

	query.DepartmentIDs = slices.Clone(actor.Departments)
	slices.Sort(query.DepartmentIDs)
	query.DepartmentIDs = slices.Compact(query.DepartmentIDs)
	return query, nil
}
