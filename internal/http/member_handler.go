package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/volunteer-scheduler/internal/application"
)

// MemberService is the subset of the member service used by the handler.
type MemberService interface {
	ListMembers(ctx context.Context, params application.ListMembersParams) ([]application.Member, error)
	GetMember(ctx context.Context, principal application.Principal, memberID int64) (application.Member, error)
	CreateMember(ctx context.Context, params application.CreateMemberParams) (application.Member, error)
	UpdateMember(ctx context.Context, params application.UpdateMemberParams) (application.Member, error)
	DeleteMember(ctx context.Context, principal application.Principal, memberID int64) error
}

// MemberHandler serves /members.
type MemberHandler struct {
	service   MemberService
	responder responder
	logger    *slog.Logger
}

// NewMemberHandler constructs a MemberHandler.
func NewMemberHandler(service MemberService, logger *slog.Logger) *MemberHandler {
	logger = defaultLogger(logger)
	return &MemberHandler{service: service, responder: newResponder(logger), logger: logger}
}

func (h *MemberHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "MemberHandler", operation, attrs...)
}

type memberRequest struct {
	Name          string  `json:"name" validate:"max=150"`
	Email         *string `json:"email" validate:"omitempty,max=254"`
	Phone         string  `json:"phone" validate:"max=30"`
	Type          string  `json:"type" validate:"omitempty,oneof=Liderado Convidado"`
	DepartmentIDs []int64 `json:"department_ids" validate:"dive,gt=0"`
}

func (req memberRequest) input() application.MemberInput {
	return application.MemberInput{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Type:          application.MemberType(req.Type),
		DepartmentIDs: req.DepartmentIDs,
	}
}

type memberDTO struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         *string   `json:"email"`
	Phone         string    `json:"phone"`
	Type          string    `json:"type"`
	DepartmentIDs []int64   `json:"department_ids"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toMemberDTO(m application.Member) memberDTO {
	return memberDTO{
		ID:            m.ID,
		Name:          m.Name,
		Email:         m.Email,
		Phone:         m.Phone,
		Type:          string(m.Type),
		DepartmentIDs: nonNilIDs(m.DepartmentIDs),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// List handles GET /members with an optional department_id filter.
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}

	departmentID, err := optionalIDQuery(r, "department_id")
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	members, err := h.service.ListMembers(ctx, application.ListMembersParams{Principal: principal, DepartmentID: departmentID})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	out := make([]memberDTO, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberDTO(m))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, out)
}

// Get handles GET /members/{id}.
func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}
	id, ok := h.responder.pathID(w, r)
	if !ok {
		return
	}

	member, err := h.service.GetMember(ctx, principal, id)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toMemberDTO(member))
}

// Create handles POST /members.
func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}

	var req memberRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeDecodeError(ctx, w, err)
		return
	}

	member, err := h.service.CreateMember(ctx, application.CreateMemberParams{Principal: principal, Input: req.input()})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.log(ctx, "Create", "member_id", member.ID).InfoContext(ctx, "member created")
	h.responder.writeJSON(ctx, w, http.StatusCreated, toMemberDTO(member))
}

// Update handles PUT /members/{id}.
func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}
	id, ok := h.responder.pathID(w, r)
	if !ok {
		return
	}

	var req memberRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeDecodeError(ctx, w, err)
		return
	}

	member, err := h.service.UpdateMember(ctx, application.UpdateMemberParams{Principal: principal, MemberID: id, Input: req.input()})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toMemberDTO(member))
}

// Delete handles DELETE /members/{id}.
func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}
	id, ok := h.responder.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteMember(ctx, principal, id); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.log(ctx, "Delete", "member_id", id).InfoContext(ctx, "member deleted")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}
