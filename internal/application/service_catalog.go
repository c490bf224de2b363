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

// ServiceCatalog manages the worship services members are scheduled for.
type ServiceCatalog struct {
	services ServiceRepository
	now      func() time.Time
	logger   *slog.Logger
}

// NewServiceCatalog constructs a service catalog.
func NewServiceCatalog(services ServiceRepository, now func() time.Time) *ServiceCatalog {
	return NewServiceCatalogWithLogger(services, now, nil)
}

// NewServiceCatalogWithLogger constructs a service catalog with a specified logger.
func NewServiceCatalogWithLogger(services ServiceRepository, now func() time.Time, logger *slog.Logger) *ServiceCatalog {
	if now == nil {
		now = time.Now
	}
	return &ServiceCatalog{services: services, now: now, logger: defaultLogger(logger)}
}

func (s *ServiceCatalog) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ServiceCatalog", operation, attrs...)
}

// ListServices returns every service sorted by name.
func (s *ServiceCatalog) ListServices(ctx context.Context, principal Principal) ([]Service, error) {
	if s == nil {
		return nil, fmt.Errorf("ServiceCatalog is nil")
	}
	if !principal.can(access.VerbView, access.EntityService) {
		return nil, ErrUnauthorized
	}
	if s.services == nil {
		return nil, fmt.Errorf("service repository not configured")
	}

	services, err := s.services.ListServices(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}

	out := make([]Service, len(services))
	copy(out, services)
	sort.Slice(out, func(i, j int) bool {
		if strings.EqualFold(out[i].Name, out[j].Name) {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// CreateService persists a new service for administrators.
func (s *ServiceCatalog) CreateService(ctx context.Context, params CreateServiceParams) (service Service, err error) {
	if s == nil {
		err = fmt.Errorf("ServiceCatalog is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateService", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create service", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("service_id", service.ID).InfoContext(ctx, "service created")
	}()

	if !params.Principal.can(access.VerbCreate, access.EntityService) {
		err = ErrUnauthorized
		return
	}
	if s.services == nil {
		err = fmt.Errorf("service repository not configured")
		return
	}

	name := strings.TrimSpace(params.Input.Name)
	if name == "" {
		err = fieldError("name", "Nome do culto é obrigatório")
		return
	}

	now := s.now()
	service, err = s.services.CreateService(ctx, Service{Name: name, CreatedAt: now, UpdatedAt: now})
	err = mapRepoError(err)
	return
}

// UpdateService renames a service for administrators.
func (s *ServiceCatalog) UpdateService(ctx context.Context, params UpdateServiceParams) (service Service, err error) {
	if s == nil {
		err = fmt.Errorf("ServiceCatalog is nil")
		return
	}
	if !params.Principal.can(access.VerbEdit, access.EntityService) {
		err = ErrUnauthorized
		return
	}
	if s.services == nil {
		err = fmt.Errorf("service repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateService",
		"principal_id", params.Principal.UserID,
		"service_id", params.ServiceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update service", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "service updated")
	}()

	var existing Service
	existing, err = s.services.GetService(ctx, params.ServiceID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	name := strings.TrimSpace(params.Input.Name)
	if name == "" {
		err = fieldError("name", "Nome do culto é obrigatório")
		return
	}

	existing.Name = name
	existing.UpdatedAt = s.now()
	service, err = s.services.UpdateService(ctx, existing)
	err = mapRepoError(err)
	return
}

// DeleteService removes a service that no schedule references.
func (s *ServiceCatalog) DeleteService(ctx context.Context, principal Principal, serviceID int64) error {
	if s == nil {
		return fmt.Errorf("ServiceCatalog is nil")
	}
	if !principal.can(access.VerbDelete, access.EntityService) {
		return ErrUnauthorized
	}
	if s.services == nil {
		return fmt.Errorf("service repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteService",
		"principal_id", principal.UserID,
		"service_id", serviceID,
	)
	if err := s.services.DeleteService(ctx, serviceID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete service", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "service deleted")
	return nil
}
