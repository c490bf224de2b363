package access

// Section is a navigable area of the dashboard.
type Section int

const (
	SectionDashboard Section = iota + 1
	SectionSchedules
	SectionMembers
	SectionDepartments
	SectionServices
	SectionUsers
)

var allSections = []Section{
	SectionDashboard,
	SectionSchedules,
	SectionMembers,
	SectionDepartments,
	SectionServices,
	SectionUsers,
}

// Sections returns the sections visible to role in display order.
func Sections(role Role) []Section {
	switch role {
	case RoleAdministrator:
		out := make([]Section, len(allSections))
		copy(out, allSections)
		return out
	case RoleLeader:
		return []Section{SectionDashboard, SectionSchedules}
	default:
		return nil
	}
}

// CanSee reports whether section is visible to role.
func CanSee(role Role, section Section) bool {
	for _, s := range Sections(role) {
		if s == section {
			return true
		}
	}
	return false
}

// Key is the stable identifier clients use to route to the section.
func (s Section) Key() string {
	switch s {
	case SectionDashboard:
		return "dashboard"
	case SectionSchedules:
		return "schedules"
	case SectionMembers:
		return "members"
	case SectionDepartments:
		return "departments"
	case SectionServices:
		return "services"
	case SectionUsers:
		return "users"
	default:
		return ""
	}
}

// Path is the API resource that loads the section's data.
func (s Section) Path() string {
	if s == SectionDashboard {
		return "/dashboard"
	}
	if key := s.Key(); key != "" {
		return "/" + key
	}
	return ""
}

// Label returns the menu label of the section as shown to role.
func (s Section) Label(role Role) string {
	switch s {
	case SectionDashboard:
		return "Dashboard"
	case SectionSchedules:
		if role == RoleLeader {
			return "Gerenciar Escalas"
		}
		return "Escalas"
	case SectionMembers:
		return "Membros"
	case SectionDepartments:
		return "Departamentos"
	case SectionServices:
		return "Cultos"
	case SectionUsers:
		return "Usuários"
	default:
		return ""
	}
}
