package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/volunteer-scheduler/internal/application"
)

// ServiceCatalog is the subset of the worship service catalog used by the handler.
type ServiceCatalog interface {
	ListServices(ctx context.Context, principal application.Principal) ([]application.Service, error)
	CreateService(ctx context.Context, params application.CreateServiceParams) (application.Service, error)
	UpdateService(ctx context.Context, params application.UpdateServiceParams) (application.Service, error)
	DeleteService(ctx context.Context, principal application.Principal, serviceID int64) error
}

// ServiceHandler serves /services, the worship times members are scheduled for.
type ServiceHandler struct {
	catalog   ServiceCatalog
	responder responder
	logger    *slog.Logger
}

// NewServiceHandler constructs a ServiceHandler.
func NewServiceHandler(catalog ServiceCatalog, logger *slog.Logger) *ServiceHandler {
	logger = defaultLogger(logger)
	return &ServiceHandler{catalog: catalog, responder: newResponder(logger), logger: logger}
}

type serviceRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type serviceDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toServiceDTO(s application.Service) serviceDTO {
	return serviceDTO{ID: s.ID, Name: s.Name, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt}
}

// List handles GET /services.
func (h *ServiceHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}

	services, err := h.catalog.ListServices(ctx, principal)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	out := make([]serviceDTO, 0, len(services))
	for _, s := range services {
		out = append(out, toServiceDTO(s))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, out)
}

// Create handles POST /services.
func (h *ServiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}

	var req serviceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeDecodeError(ctx, w, err)
		return
	}

	service, err := h.catalog.CreateService(ctx, application.CreateServiceParams{Principal: principal, Input: application.ServiceInput{Name: req.Name}})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	handlerLogger(ctx, h.logger, "ServiceHandler", "Create", "service_id", service.ID).InfoContext(ctx, "service created")
	h.responder.writeJSON(ctx, w, http.StatusCreated, toServiceDTO(service))
}

// Update handles PUT /services/{id}.
func (h *ServiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}
	id, ok := h.responder.pathID(w, r)
	if !ok {
		return
	}

	var req serviceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeDecodeError(ctx, w, err)
		return
	}

	service, err := h.catalog.UpdateService(ctx, application.UpdateServiceParams{Principal: principal, ServiceID: id, Input: application.ServiceInput{Name: req.Name}})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toServiceDTO(service))
}

// Delete handles DELETE /services/{id}.
func (h *ServiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.responder.principal(ctx, w)
	if !ok {
		return
	}
	id, ok := h.responder.pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteService(ctx, principal, id); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}
