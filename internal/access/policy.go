// Package access decides which role may perform which action, and which
// navigation sections each role sees.
package access

import "slices"

// Role is the access level stored on a user.
type Role string

const (
	RoleAdministrator Role = "Administrador"
	RoleLeader        Role = "Líder"
	RolePending       Role = "Pendente"
)

// Roles lists every assignable role.
var Roles = []Role{RoleAdministrator, RoleLeader, RolePending}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

// Entity is a kind of record protected by the policy.
type Entity string

const (
	EntityDepartment Entity = "department"
	EntityMember     Entity = "member"
	EntityService    Entity = "service"
	EntityUser       Entity = "user"
	EntitySchedule   Entity = "schedule"
)

// Verb is the operation attempted on an entity.
type Verb string

const (
	VerbView   Verb = "view"
	VerbCreate Verb = "create"
	VerbEdit   Verb = "edit"
	VerbDelete Verb = "delete"
)

// Action combines a verb with its target entity.
type Action struct {
	Verb   Verb
	Entity Entity
}

func (a Action) String() string {
	return string(a.Verb) + ":" + string(a.Entity)
}

// Scope carries the department context of a schedule action.
type Scope struct {
	// ActorDepartments are the departments linked to the acting user.
	ActorDepartments []int64
	// TargetDepartment is the department of the schedule being read or written.
	// Nil means the action is not bound to a single department.
	TargetDepartment *int64
}

// InDepartment builds a Scope for a schedule that belongs to departmentID.
func InDepartment(actorDepartments []int64, departmentID int64) Scope {
	return Scope{ActorDepartments: actorDepartments, TargetDepartment: &departmentID}
}

// Can reports whether role may perform action within scope.
//
// Administrators may do everything. Leaders may view departments, members,
// services and users, and may act on schedules only inside a department they
// are linked to. Pending users may do nothing.
func Can(role Role, action Action, scope Scope) bool {
	switch role {
	case RoleAdministrator:
		return true
	case RoleLeader:
		if action.Entity == EntitySchedule {
			if scope.TargetDepartment == nil {
				return false
			}
			return slices.Contains(scope.ActorDepartments, *scope.TargetDepartment)
		}
		return action.Verb == VerbView
	default:
		return false
	}
}

// DepartmentScoped reports whether role sees schedules only through its
// linked departments.
func DepartmentScoped(role Role) bool {
	return role == RoleLeader
}

// AwaitingApproval reports whether role belongs to an account that exists but
// has not been granted any access yet.
func AwaitingApproval(role Role) bool {
	return role == RolePending
}

// CanSignIn reports whether a user with role may hold a session.
func CanSignIn(role Role) bool {
	return role.Valid() && !AwaitingApproval(role)
}

// RequiresDepartments reports whether a user with role must be linked to at
// least one department.
func RequiresDepartments(role Role) bool {
	return role == RoleLeader
}
