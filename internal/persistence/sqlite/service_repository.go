package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/volunteer-scheduler/internal/persistence"
)

// ServiceRepository implements persistence.ServiceRepository using SQLite
type ServiceRepository struct {
	repositoryBase
}

var _ persistence.ServiceRepository = (*ServiceRepository)(nil)

// CreateService inserts a service
func (r *ServiceRepository) CreateService(ctx context.Context, service persistence.Service) (persistence.Service, error) {
	service.CreatedAt = stamp(service.CreatedAt)
	service.UpdatedAt = stamp(service.UpdatedAt)

	var result sql.Result
	err := r.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.helper.Exec(ctx,
			`INSERT INTO services (name, created_at, updated_at) VALUES (?, ?, ?)`,
			service.Name, formatTime(service.CreatedAt), formatTime(service.UpdatedAt),
		)
		return execErr
	})
	if err != nil {
		return persistence.Service{}, err
	}

	if service.ID, err = result.LastInsertId(); err != nil {
		return persistence.Service{}, fmt.Errorf("failed to read service id: %w", err)
	}
	return service, nil
}

// UpdateService renames a service
func (r *ServiceRepository) UpdateService(ctx context.Context, service persistence.Service) (persistence.Service, error) {
	service.UpdatedAt = stamp(service.UpdatedAt)

	var result sql.Result
	err := r.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.helper.Exec(ctx,
			`UPDATE services SET name = ?, updated_at = ? WHERE id = ?`,
			service.Name, formatTime(service.UpdatedAt), service.ID,
		)
		return execErr
	})
	if err != nil {
		return persistence.Service{}, err
	}
	if err := requireAffected(result); err != nil {
		return persistence.Service{}, err
	}

	return r.GetService(ctx, service.ID)
}

// GetService retrieves a service by ID
func (r *ServiceRepository) GetService(ctx context.Context, id int64) (persistence.Service, error) {
	service, err := scanService(r.helper.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM services WHERE id = ?`, id))
	if err != nil {
		return persistence.Service{}, r.mapper.MapError(err)
	}
	return service, nil
}

// ListServices returns every service ordered by name
func (r *ServiceRepository) ListServices(ctx context.Context) ([]persistence.Service, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT id, name, created_at, updated_at FROM services ORDER BY name COLLATE NOCASE ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	services := make([]persistence.Service, 0)
	for rows.Next() {
		service, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, service)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return services, nil
}

// DeleteService removes a service. Services referenced by schedules are
// rejected with persistence.ErrForeignKeyViolation.
func (r *ServiceRepository) DeleteService(ctx context.Context, id int64) error {
	var result sql.Result
	err := r.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.helper.Exec(ctx, `DELETE FROM services WHERE id = ?`, id)
		return execErr
	})
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// CountServices returns the number of services
func (r *ServiceRepository) CountServices(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM services`)
}

func scanService(row rowScanner) (persistence.Service, error) {
	var (
		service      persistence.Service
		createdAtStr string
		updatedAtStr string
	)
	if err := row.Scan(&service.ID, &service.Name, &createdAtStr, &updatedAtStr); err != nil {
		return persistence.Service{}, err
	}

	var err error
	if service.CreatedAt, err = parseTime(createdAtStr, "created_at"); err != nil {
		return persistence.Service{}, err
	}
	if service.UpdatedAt, err = parseTime(updatedAtStr, "updated_at"); err != nil {
		return persistence.Service{}, err
	}
	return service, nil
}
