package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/volunteer-scheduler/internal/access"
	"github.com/example/volunteer-scheduler/internal/application"
)

// UserService is the subset of the user service used by the handler.
type UserService interface {
	ListUsers(ctx context.Context, principal application.Principal) ([]application.User, error)
	CreateUser(ctx context.Context, params application.CreateUserParams) (application.User, error)
	UpdateUser(ctx context.Context, params application.UpdateUserParams) (application.User, error)
	DeleteUser(ctx context.Context, principal application.Principal, userID int64) error
}

// UserHandler serves /users.
type UserHandler struct {
	service   UserService
	responder responder
	logger    *slog.Logger
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(service UserService, logger *slog.Logger) *UserHandler {
	logger = defaultLogger(logger)
	return &UserHandler{service: service, responder: newResponder(logger), logger: logger}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

// userRequest carries a plaintext password only on the way in; it is never echoed.
type userRequest struct {
	Username      string  `json:"username" validate:"max=50"`
	Password      string  `json:"password" validate:"max=128"`
	Level         string  `json:"level" validate:"omitempty,oneof=Administrador Líder Pendente"`
	DepartmentIDs []int64 `json:"department_ids" validate:"dive,gt=0"`
}

func (req userRequest) input() application.UserInput {
	return application.UserInput{
		Username:      req.Username,
		Password:      req.Password,
		Level:         access.Role(req.Level),
		DepartmentIDs: req.DepartmentIDs,
	}
}

type userDTO struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	Level           string    `json:"level"`
	DepartmentIDs   []int64   `json:"department_ids"`
	DepartmentNames []string  `json:"department_names"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toUserDTO(u application.User) userDTO {
	return userDTO{
		ID:              u.ID,
		Username:        u.Username,
		Level:           string(u.Level),
		DepartmentIDs:   nonNilIDs(u.DepartmentIDs),
		DepartmentNames: nonNilStrings(u.DepartmentNames),
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}

	users, err := h.service.ListUsers(ctx, principal)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	out := make([]userDTO, 0, len(users))
	for _, u := range users {
		out = append(out, toUserDTO(u))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, out)
}

// Create handles POST /users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}

	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeDecodeError(ctx, w, err)
		return
	}

	user, err := h.service.CreateUser(ctx, application.CreateUserParams{Principal: principal, Input: req.input()})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.log(ctx, "Create", "user_id", user.ID).InfoContext(ctx, "user created")
	h.responder.writeJSON(ctx, w, http.StatusCreated, toUserDTO(user))
}

// Update handles PUT /users/{id}. A blank password keeps the stored one.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}
	id, ok := h.responder.pathID(w, r)
	if !ok {
		return
	}

	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeDecodeError(ctx, w, err)
		return
	}

	user, err := h.service.UpdateUser(ctx, application.UpdateUserParams{Principal: principal, UserID: id, Input: req.input()})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.log(ctx, "Update", "user_id", user.ID).InfoContext(ctx, "user updated")
	h.responder.writeJSON(ctx, w, http.StatusOK, toUserDTO(user))
}

// Delete handles DELETE /users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}
	id, ok := h.responder.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(ctx, principal, id); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.log(ctx, "Delete", "user_id", id).InfoContext(ctx, "user deleted")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}
