package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/volunteer-scheduler/internal/access"
)

// DepartmentService orchestrates validation, authorization, and persistence for departments.
type DepartmentService struct {
	departments DepartmentRepository
	now         func() time.Time
	logger      *slog.Logger
}

// NewDepartmentService constructs a department service with the provided dependencies.
func NewDepartmentService(departments DepartmentRepository, now func() time.Time) *DepartmentService {
	return NewDepartmentServiceWithLogger(departments, now, nil)
}

// NewDepartmentServiceWithLogger constructs a department service with a specified logger.
func NewDepartmentServiceWithLogger(departments DepartmentRepository, now func() time.Time, logger *slog.Logger) *DepartmentService {
	if now == nil {
		now = time.Now
	}
	return &DepartmentService{departments: departments, now: now, logger: defaultLogger(logger)}
}

func (s *DepartmentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DepartmentService", operation, attrs...)
}

// ListDepartments returns departments sorted by name. With mine set, a leader
// only gets the departments linked to them.
func (s *DepartmentService) ListDepartments(ctx context.Context, principal Principal, mine bool) ([]Department, error) {
	if s == nil {
		return nil, fmt.Errorf("DepartmentService is nil")
	}
	if !principal.can(access.VerbView, access.EntityDepartment) {
		return nil, ErrUnauthorized
	}
	if s.departments == nil {
		return nil, fmt.Errorf("department repository not configured")
	}

	var ids []int64
	if mine && access.DepartmentScoped(principal.Role) {
		ids = append([]int64{}, principal.DepartmentIDs...)
		if len(ids) == 0 {
			return []Department{}, nil
		}
	}

	departments, err := s.departments.ListDepartments(ctx, ids)
	if err != nil {
		return nil, mapRepoError(err)
	}

	out := make([]Department, len(departments))
	copy(out, departments)
	sort.Slice(out, func(i, j int) bool {
		if strings.EqualFold(out[i].Name, out[j].Name) {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// GetDepartment returns a single department.
func (s *DepartmentService) GetDepartment(ctx context.Context, principal Principal, departmentID int64) (Department, error) {
	if s == nil {
		return Department{}, fmt.Errorf("DepartmentService is nil")
	}
	if !principal.can(access.VerbView, access.EntityDepartment) {
		return Department{}, ErrUnauthorized
	}
	if s.departments == nil {
		return Department{}, fmt.Errorf("department repository not configured")
	}

	department, err := s.departments.GetDepartment(ctx, departmentID)
	if err != nil {
		return Department{}, mapRepoError(err)
	}
	return department, nil
}

// ListSectors returns the sectors of a department in alphabetical order.
func (s *DepartmentService) ListSectors(ctx context.Context, principal Principal, departmentID int64) ([]string, error) {
	department, err := s.GetDepartment(ctx, principal, departmentID)
	if err != nil {
		return nil, err
	}
	sectors := append([]string{}, department.Sectors...)
	sort.Slice(sectors, func(i, j int) bool {
		return strings.ToLower(sectors[i]) < strings.ToLower(sectors[j])
	})
	return sectors, nil
}

// CreateDepartment validates input and persists a new department for administrators.
func (s *DepartmentService) CreateDepartment(ctx context.Context, params CreateDepartmentParams) (department Department, err error) {
	if s == nil {
		err = fmt.Errorf("DepartmentService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateDepartment",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create department", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("department_id", department.ID).InfoContext(ctx, "department created")
	}()

	if !params.Principal.can(access.VerbCreate, access.EntityDepartment) {
		err = ErrUnauthorized
		return
	}
	if s.departments == nil {
		err = fmt.Errorf("department repository not configured")
		return
	}

	input := normalizeDepartmentInput(params.Input)
	if vErr := validateDepartmentInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	department, err = s.departments.CreateDepartment(ctx, Department{
		Name:      input.Name,
		Sectors:   input.Sectors,
		CreatedAt: now,
		UpdatedAt: now,
	})
	err = mapRepoError(err)
	return
}

// UpdateDepartment validates input and updates an existing department for administrators.
func (s *DepartmentService) UpdateDepartment(ctx context.Context, params UpdateDepartmentParams) (department Department, err error) {
	if s == nil {
		err = fmt.Errorf("DepartmentService is nil")
		return
	}
	if !params.Principal.can(access.VerbEdit, access.EntityDepartment) {
		err = ErrUnauthorized
		return
	}
	if s.departments == nil {
		err = fmt.Errorf("department repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateDepartment",
		"principal_id", params.Principal.UserID,
		"department_id", params.DepartmentID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update department", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "department updated")
	}()

	var existing Department
	existing, err = s.departments.GetDepartment(ctx, params.DepartmentID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	input := normalizeDepartmentInput(params.Input)
	if vErr := validateDepartmentInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Name = input.Name
	updated.Sectors = input.Sectors
	updated.UpdatedAt = s.now()

	department, err = s.departments.UpdateDepartment(ctx, updated)
	err = mapRepoError(err)
	return
}

// DeleteDepartment removes a department that no schedule references.
func (s *DepartmentService) DeleteDepartment(ctx context.Context, principal Principal, departmentID int64) error {
	if s == nil {
		return fmt.Errorf("DepartmentService is nil")
	}
	if !principal.can(access.VerbDelete, access.EntityDepartment) {
		return ErrUnauthorized
	}
	if s.departments == nil {
		return fmt.Errorf("department repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteDepartment",
		"principal_id", principal.UserID,
		"department_id", departmentID,
	)

	if err := s.departments.DeleteDepartment(ctx, departmentID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete department", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "department deleted")
	return nil
}

// ParseSectors splits a comma separated sector list.
func ParseSectors(raw string) []string {
	return normalizeSectors(strings.Split(raw, ","))
}

// normalizeSectors trims sectors and drops blanks and case-insensitive duplicates,
// keeping the first spelling and the original order.
func normalizeSectors(sectors []string) []string {
	out := make([]string, 0, len(sectors))
	seen := make(map[string]struct{}, len(sectors))
	for _, sector := range sectors {
		trimmed := strings.TrimSpace(sector)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func normalizeDepartmentInput(input DepartmentInput) DepartmentInput {
	return DepartmentInput{
		Name:    strings.TrimSpace(input.Name),
		Sectors: normalizeSectors(input.Sectors),
	}
}

func validateDepartmentInput(input DepartmentInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("name", "Nome do departamento é obrigatório")
	}
	return vErr
}
