package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/example/volunteer-scheduler/internal/access"
)

// MemberService orchestrates validation, authorization, and persistence for members.
type MemberService struct {
	members     MemberRepository
	departments DepartmentRepository
	now         func() time.Time
	logger      *slog.Logger
}

// NewMemberService wires dependencies for the member service.
func NewMemberService(members MemberRepository, departments DepartmentRepository, now func() time.Time) *MemberService {
	return NewMemberServiceWithLogger(members, departments, now, nil)
}

// NewMemberServiceWithLogger wires dependencies for the member service with a specified logger.
func NewMemberServiceWithLogger(members MemberRepository, departments DepartmentRepository, now func() time.Time, logger *slog.Logger) *MemberService {
	if now == nil {
		now = time.Now
	}
	return &MemberService{members: members, departments: departments, now: now, logger: defaultLogger(logger)}
}

func (s *MemberService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MemberService", operation, attrs...)
}

// ListMembers returns members sorted by name, optionally limited to one department.
func (s *MemberService) ListMembers(ctx context.Context, params ListMembersParams) ([]Member, error) {
	if s == nil {
		return nil, fmt.Errorf("MemberService is nil")
	}
	if !params.Principal.can(access.VerbView, access.EntityMember) {
		return nil, ErrUnauthorized
	}
	if s.members == nil {
		return nil, fmt.Errorf("member repository not configured")
	}

	members, err := s.members.ListMembers(ctx, params.DepartmentID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	out := make([]Member, len(members))
	copy(out, members)
	sort.Slice(out, func(i, j int) bool {
		if strings.EqualFold(out[i].Name, out[j].Name) {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// GetMember returns a single member.
func (s *MemberService) GetMember(ctx context.Context, principal Principal, memberID int64) (Member, error) {
	if s == nil {
		return Member{}, fmt.Errorf("MemberService is nil")
	}
	if !principal.can(access.VerbView, access.EntityMember) {
		return Member{}, ErrUnauthorized
	}
	if s.members == nil {
		return Member{}, fmt.Errorf("member repository not configured")
	}

	member, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		return Member{}, mapRepoError(err)
	}
	return member, nil
}

// CreateMember validates input and persists a new member for administrators.
func (s *MemberService) CreateMember(ctx context.Context, params CreateMemberParams) (member Member, err error) {
	if s == nil {
		err = fmt.Errorf("MemberService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateMember",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create member", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("member_id", member.ID).InfoContext(ctx, "member created")
	}()

	if !params.Principal.can(access.VerbCreate, access.EntityMember) {
		err = ErrUnauthorized
		return
	}
	if s.members == nil {
		err = fmt.Errorf("member repository not configured")
		return
	}

	input := normalizeMemberInput(params.Input)
	if err = s.validate(ctx, input); err != nil {
		return
	}

	now := s.now()
	member, err = s.members.CreateMember(ctx, Member{
		Name:          input.Name,
		Email:         input.Email,
		Phone:         input.Phone,
		Type:          input.Type,
		DepartmentIDs: input.DepartmentIDs,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	err = mapRepoError(err)
	return
}

// UpdateMember validates input and replaces a member and its department links.
func (s *MemberService) UpdateMember(ctx context.Context, params UpdateMemberParams) (member Member, err error) {
	if s == nil {
		err = fmt.Errorf("MemberService is nil")
		return
	}
	if !params.Principal.can(access.VerbEdit, access.EntityMember) {
		err = ErrUnauthorized
		return
	}
	if s.members == nil {
		err = fmt.Errorf("member repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateMember",
		"principal_id", params.Principal.UserID,
		"member_id", params.MemberID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update member", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "member updated")
	}()

	var existing Member
	existing, err = s.members.GetMember(ctx, params.MemberID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	input := normalizeMemberInput(params.Input)
	if err = s.validate(ctx, input); err != nil {
		return
	}

	updated := existing
	updated.Name = input.Name
	updated.Email = input.Email
	updated.Phone = input.Phone
	updated.Type = input.Type
	updated.DepartmentIDs = input.DepartmentIDs
	updated.UpdatedAt = s.now()

	member, err = s.members.UpdateMember(ctx, updated)
	err = mapRepoError(err)
	return
}

// DeleteMember removes a member that no schedule references.
func (s *MemberService) DeleteMember(ctx context.Context, principal Principal, memberID int64) error {
	if s == nil {
		return fmt.Errorf("MemberService is nil")
	}
	if !principal.can(access.VerbDelete, access.EntityMember) {
		return ErrUnauthorized
	}
	if s.members == nil {
		return fmt.Errorf("member repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteMember",
		"principal_id", principal.UserID,
		"member_id", memberID,
	)

	if err := s.members.DeleteMember(ctx, memberID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete member", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "member deleted")
	return nil
}

func (s *MemberService) validate(ctx context.Context, input MemberInput) error {
	vErr := validateMemberInput(input)
	if vErr.HasErrors() {
		return vErr
	}
	if s.departments == nil {
		return nil
	}
	for _, id := range input.DepartmentIDs {
		if _, err := s.departments.GetDepartment(ctx, id); err != nil {
			err = mapRepoError(err)
			if errors.Is(err, ErrNotFound) {
				return fieldError("department_ids", "Departamento não encontrado")
			}
			return err
		}
	}
	return nil
}

func normalizeMemberInput(input MemberInput) MemberInput {
	out := MemberInput{
		Name:  strings.TrimSpace(input.Name),
		Phone: strings.TrimSpace(input.Phone),
		Type:  MemberType(strings.TrimSpace(string(input.Type))),
		Email: normalizeOptionalString(input.Email),
	}
	if out.Email != nil {
		lowered := strings.ToLower(*out.Email)
		out.Email = &lowered
	}
	ids := slices.Clone(input.DepartmentIDs)
	slices.Sort(ids)
	out.DepartmentIDs = slices.Compact(ids)
	return out
}

func validateMemberInput(input MemberInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Name == "" {
		vErr.add("name", "Nome é obrigatório")
	}
	if input.Phone == "" {
		vErr.add("phone", "Telefone é obrigatório")
	}
	if input.Type == "" {
		vErr.add("type", "Tipo é obrigatório")
	} else if !input.Type.Valid() {
		vErr.add("type", "Tipo deve ser Liderado ou Convidado")
	}
	if input.Email != nil {
		if _, err := mail.ParseAddress(*input.Email); err != nil {
			vErr.add("email", "E-mail inválido")
		}
	}
	if len(input.DepartmentIDs) == 0 {
		vErr.add("department_ids", "Selecione pelo menos um departamento")
	}
	for _, id := range input.DepartmentIDs {
		if id <= 0 {
			vErr.add("department_ids", "Departamento inválido")
		}
	}

	return vErr
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
