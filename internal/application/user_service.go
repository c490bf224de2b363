package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/example/volunteer-scheduler/internal/access"
)

// IdentityInvalidator drops cached identities after a user changes.
type IdentityInvalidator interface {
	InvalidateUser(userID int64)
}

// UserService orchestrates validation, authorization, and persistence for users.
type UserService struct {
	users       UserRepository
	departments DepartmentRepository
	hasher      PasswordHasher
	identities  IdentityInvalidator
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, departments DepartmentRepository, hasher PasswordHasher, identities IdentityInvalidator, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, departments, hasher, identities, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specified logger.
func NewUserServiceWithLogger(users UserRepository, departments DepartmentRepository, hasher PasswordHasher, identities IdentityInvalidator, now func() time.Time, logger *slog.Logger) *UserService {
	if hasher == nil {
		hasher = NewPasswordHasher()
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:       users,
		departments: departments,
		hasher:      hasher,
		identities:  identities,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// ListUsers returns all users sorted by username, with their department names.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if !principal.can(access.VerbView, access.EntityUser) {
		return nil, ErrUnauthorized
	}
	if s.users == nil {
		return nil, fmt.Errorf("user repository not configured")
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}

	names := map[int64]string{}
	if s.departments != nil {
		departments, err := s.departments.ListDepartments(ctx, nil)
		if err != nil {
			return nil, mapRepoError(err)
		}
		for _, d := range departments {
			names[d.ID] = d.Name
		}
	}

	out := make([]User, len(users))
	for i, user := range users {
		user.DepartmentNames = make([]string, 0, len(user.DepartmentIDs))
		for _, id := range user.DepartmentIDs {
			if name, ok := names[id]; ok {
				user.DepartmentNames = append(user.DepartmentNames, name)
			}
		}
		out[i] = user
	}

	sort.Slice(out, func(i, j int) bool {
		if strings.EqualFold(out[i].Username, out[j].Username) {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Username) < strings.ToLower(out[j].Username)
	})
	return out, nil
}

// CreateUser validates input, hashes the password and persists a new user for administrators.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateUser", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user created")
	}()

	if !params.Principal.can(access.VerbCreate, access.EntityUser) {
		err = ErrUnauthorized
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	input := normalizeUserInput(params.Input)
	vErr := validateUserInput(input)
	if input.Password == "" {
		vErr.add("password", "Senha é obrigatória")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if err = s.ensureUsernameFree(ctx, input.Username, 0); err != nil {
		return
	}
	if err = s.ensureDepartmentsExist(ctx, input.DepartmentIDs); err != nil {
		return
	}

	var hash string
	hash, err = s.hasher.Hash(input.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	now := s.now()
	user, err = s.users.CreateUser(ctx, UserCredentials{
		User: User{
			Username:      input.Username,
			Level:         input.Level,
			DepartmentIDs: input.DepartmentIDs,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		PasswordHash: hash,
	})
	err = usernameError(mapRepoError(err))
	return
}

// UpdateUser validates input and updates an existing user for administrators.
// A blank password keeps the stored hash.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if !params.Principal.can(access.VerbEdit, access.EntityUser) {
		err = ErrUnauthorized
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateUser",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user updated")
	}()

	var existing UserCredentials
	existing, err = s.users.GetUserCredentials(ctx, params.UserID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	input := normalizeUserInput(params.Input)
	if vErr := validateUserInput(input); vErr.HasErrors() {
		err = vErr
		return
	}
	if err = s.ensureUsernameFree(ctx, input.Username, existing.User.ID); err != nil {
		return
	}
	if err = s.ensureDepartmentsExist(ctx, input.DepartmentIDs); err != nil {
		return
	}

	updated := existing
	updated.User.Username = input.Username
	updated.User.Level = input.Level
	updated.User.DepartmentIDs = input.DepartmentIDs
	updated.User.UpdatedAt = s.now()
	if input.Password != "" {
		updated.PasswordHash, err = s.hasher.Hash(input.Password)
		if err != nil {
			err = fmt.Errorf("hash password: %w", err)
			return
		}
	}

	user, err = s.users.UpdateUser(ctx, updated)
	if err != nil {
		err = usernameError(mapRepoError(err))
		return
	}
	s.invalidate(params.UserID)
	return
}

// DeleteUser removes a user when requested by an administrator.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID int64) error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if !principal.can(access.VerbDelete, access.EntityUser) {
		return ErrUnauthorized
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteUser",
		"principal_id", principal.UserID,
		"user_id", userID,
	)

	if principal.UserID == userID {
		err := fieldError("id", "Você não pode excluir o próprio usuário")
		logger.ErrorContext(ctx, "failed to delete user", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if err := s.users.DeleteUser(ctx, userID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete user", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	s.invalidate(userID)

	logger.InfoContext(ctx, "user deleted")
	return nil
}

func (s *UserService) invalidate(userID int64) {
	if s.identities != nil {
		s.identities.InvalidateUser(userID)
	}
}

// ensureUsernameFree rejects username when a user other than selfID holds it.
// Lookups are case-insensitive in the store.
func (s *UserService) ensureUsernameFree(ctx context.Context, username string, selfID int64) error {
	holder, err := s.users.GetUserCredentialsByUsername(ctx, username)
	if err != nil {
		err = mapRepoError(err)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if holder.User.ID != selfID {
		return ErrUsernameTaken
	}
	return nil
}

// usernameError narrows a duplicate write on users to ErrUsernameTaken, the
// only unique column the table carries.
func usernameError(err error) error {
	if errors.Is(err, ErrAlreadyExists) {
		return ErrUsernameTaken
	}
	return err
}

func (s *UserService) ensureDepartmentsExist(ctx context.Context, ids []int64) error {
	if s.departments == nil {
		return nil
	}
	for _, id := range ids {
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

// normalizeUserInput trims the username and clears department links for
// roles that do not use them.
func normalizeUserInput(input UserInput) UserInput {
	out := UserInput{
		Username: strings.TrimSpace(input.Username),
		Password: input.Password,
		Level:    access.Role(strings.TrimSpace(string(input.Level))),
	}
	if access.RequiresDepartments(out.Level) {
		ids := slices.Clone(input.DepartmentIDs)
		slices.Sort(ids)
		out.DepartmentIDs = slices.Compact(ids)
	} else {
		out.DepartmentIDs = []int64{}
	}
	return out
}

func validateUserInput(input UserInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Username == "" {
		vErr.add("username", "Nome de usuário é obrigatório")
	}
	if input.Level == "" {
		vErr.add("level", "Nível de acesso é obrigatório")
	} else if !input.Level.Valid() {
		vErr.add("level", "Nível de acesso inválido")
	}
	if access.RequiresDepartments(input.Level) && len(input.DepartmentIDs) == 0 {
		vErr.add("department_ids", "Selecione pelo menos um departamento para o líder")
	}

	return vErr
}
