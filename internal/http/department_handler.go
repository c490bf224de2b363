package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/volunteer-scheduler/internal/application"
)

// DepartmentService is the subset of the department service used by the handler.
type DepartmentService interface {
	ListDepartments(ctx context.Context, principal application.Principal, mine bool) ([]application.Department, error)
	GetDepartment(ctx context.Context, principal application.Principal, departmentID int64) (application.Department, error)
	ListSectors(ctx context.Context, principal application.Principal, departmentID int64) ([]string, error)
	CreateDepartment(ctx context.Context, params application.CreateDepartmentParams) (application.Department, error)
	UpdateDepartment(ctx context.Context, params application.UpdateDepartmentParams) (application.Department, error)
	DeleteDepartment(ctx context.Context, principal application.Principal, departmentID int64) error
}

// DepartmentHandler serves /departments.
type DepartmentHandler struct {
	service   DepartmentService
	responder responder
	logger    *slog.Logger
}

// NewDepartmentHandler constructs a DepartmentHandler.
func NewDepartmentHandler(service DepartmentService, logger *slog.Logger) *DepartmentHandler {
	logger = defaultLogger(logger)
	return &DepartmentHandler{service: service, responder: newResponder(logger), logger: logger}
}

func (h *DepartmentHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "DepartmentHandler", operation, attrs...)
}

// departmentRequest accepts sectors either as a list or as the comma
// separated text typed into the dashboard form.
type departmentRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Sectors     []string `json:"sectors" validate:"dive,max=100"`
	SectorsText *string  `json:"sectors_text"`
}

func (req departmentRequest) input() application.DepartmentInput {
	sectors := req.Sectors
	if req.SectorsText != nil {
		sectors = append(sectors, application.ParseSectors(*req.SectorsText)...)
	}
	return application.DepartmentInput{Name: req.Name, Sectors: sectors}
}

type departmentDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Sectors   []string  `json:"sectors"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toDepartmentDTO(d application.Department) departmentDTO {
	return departmentDTO{
		ID:        d.ID,
		Name:      d.Name,
		Sectors:   nonNilStrings(d.Sectors),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// List handles GET /departments. scope=mine narrows a leader to their own departments.
func (h *DepartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}

	mine := r.URL.Query().Get("scope") == "mine"
	departments, err := h.service.ListDepartments(ctx, principal, mine)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	out := make([]departmentDTO, 0, len(departments))
	for _, d := range departments {
		out = append(out, toDepartmentDTO(d))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, out)
}

// Get handles GET /departments/{id}.
func (h *DepartmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}
	id, ok := h.responder.pathID(w, r)
	if !ok {
		return
	}

	department, err := h.service.GetDepartment(ctx, principal, id)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toDepartmentDTO(department))
}

// Sectors handles GET /departments/{id}/sectors.
func (h *DepartmentHandler) Sectors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}
	id, ok := h.responder.pathID(w, r)
	if !ok {
		return
	}

	sectors, err := h.service.ListSectors(ctx, principal, id)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, nonNilStrings(sectors))
}

// Create handles POST /departments.
func (h *DepartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}

	var req departmentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeDecodeError(ctx, w, err)
		return
	}

	department, err := h.service.CreateDepartment(ctx, application.CreateDepartmentParams{Principal: principal, Input: req.input()})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.log(ctx, "Create", "department_id", department.ID).InfoContext(ctx, "department created")
	h.responder.writeJSON(ctx, w, http.StatusCreated, toDepartmentDTO(department))
}

// Update handles PUT /departments/{id}.
func (h *DepartmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}
	id, ok := h.responder.pathID(w, r)
	if !ok {
		return
	}

	var req departmentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeDecodeError(ctx, w, err)
		return
	}

	department, err := h.service.UpdateDepartment(ctx, application.UpdateDepartmentParams{Principal: principal, DepartmentID: id, Input: req.input()})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toDepartmentDTO(department))
}

// Delete handles DELETE /departments/{id}.
func (h *DepartmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}
	id, ok := h.responder.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteDepartment(ctx, principal, id); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.log(ctx, "Delete", "department_id", id).InfoContext(ctx, "department deleted")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}
