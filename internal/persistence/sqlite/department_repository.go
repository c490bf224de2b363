package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/example/volunteer-scheduler/internal/persistence"
)

// DepartmentRepository implements persistence.DepartmentRepository using SQLite
type DepartmentRepository struct {
	repositoryBase
}

var _ persistence.DepartmentRepository = (*DepartmentRepository)(nil)

// CreateDepartment inserts a department and returns it with its new ID
func (r *DepartmentRepository) CreateDepartment(ctx context.Context, department persistence.Department) (persistence.Department, error) {
	sectors, err := encodeSectors(department.Sectors)
	if err != nil {
		return persistence.Department{}, err
	}

	department.CreatedAt = stamp(department.CreatedAt)
	department.UpdatedAt = stamp(department.UpdatedAt)

	query := `
		INSERT INTO departments (name, sectors, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`

	var result sql.Result
	err = r.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.helper.Exec(ctx, query, department.Name, sectors, formatTime(department.CreatedAt), formatTime(department.UpdatedAt))
		return execErr
	})
	if err != nil {
		return persistence.Department{}, err
	}

	if department.ID, err = result.LastInsertId(); err != nil {
		return persistence.Department{}, fmt.Errorf("failed to read department id: %w", err)
	}
	return department, nil
}

// UpdateDepartment overwrites the name and sectors of a department
func (r *DepartmentRepository) UpdateDepartment(ctx context.Context, department persistence.Department) (persistence.Department, error) {
	sectors, err := encodeSectors(department.Sectors)
	if err != nil {
		return persistence.Department{}, err
	}

	department.UpdatedAt = stamp(department.UpdatedAt)

	query := `
		UPDATE departments
		SET name = ?, sectors = ?, updated_at = ?
		WHERE id = ?
	`

	var result sql.Result
	err = r.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.helper.Exec(ctx, query, department.Name, sectors, formatTime(department.UpdatedAt), department.ID)
		return execErr
	})
	if err != nil {
		return persistence.Department{}, err
	}

	if err := requireAffected(result); err != nil {
		return persistence.Department{}, err
	}

	return r.GetDepartment(ctx, department.ID)
}

// GetDepartment retrieves a department by ID
func (r *DepartmentRepository) GetDepartment(ctx context.Context, id int64) (persistence.Department, error) {
	query := `
		SELECT id, name, sectors, created_at, updated_at
		FROM departments
		WHERE id = ?
	`

	department, err := scanDepartment(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Department{}, r.mapper.MapError(err)
	}
	return department, nil
}

// ListDepartments returns departments ordered by name
func (r *DepartmentRepository) ListDepartments(ctx context.Context, filter persistence.DepartmentFilter) ([]persistence.Department, error) {
	query := `SELECT id, name, sectors, created_at, updated_at FROM departments`
	var args []any
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []persistence.Department{}, nil
		}
		ids := uniqueIDs(filter.IDs)
		query += ` WHERE id IN (` + placeholders(len(ids)) + `)`
		args = int64Args(ids)
	}
	query += ` ORDER BY name COLLATE NOCASE ASC, id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	departments := make([]persistence.Department, 0)
	for rows.Next() {
		department, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		departments = append(departments, department)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return departments, nil
}

// DeleteDepartment removes a department. Departments referenced by schedules
// are rejected with persistence.ErrForeignKeyViolation.
func (r *DepartmentRepository) DeleteDepartment(ctx context.Context, id int64) error {
	var result sql.Result
	err := r.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.helper.Exec(ctx, `DELETE FROM departments WHERE id = ?`, id)
		return execErr
	})
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// CountDepartments returns the number of departments
func (r *DepartmentRepository) CountDepartments(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM departments`)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDepartment(row rowScanner) (persistence.Department, error) {
	var (
		department   persistence.Department
		sectorsJSON  string
		createdAtStr string
		updatedAtStr string
	)

	if err := row.Scan(&department.ID, &department.Name, &sectorsJSON, &createdAtStr, &updatedAtStr); err != nil {
		return persistence.Department{}, err
	}

	if err := json.Unmarshal([]byte(sectorsJSON), &department.Sectors); err != nil {
		return persistence.Department{}, fmt.Errorf("failed to decode sectors of department %d: %w", department.ID, err)
	}
	if department.Sectors == nil {
		department.Sectors = []string{}
	}

	var err error
	if department.CreatedAt, err = parseTime(createdAtStr, "created_at"); err != nil {
		return persistence.Department{}, err
	}
	if department.UpdatedAt, err = parseTime(updatedAtStr, "updated_at"); err != nil {
		return persistence.Department{}, err
	}
	return department, nil
}

func encodeSectors(sectors []string) (string, error) {
	if sectors == nil {
		sectors = []string{}
	}
	encoded, err := json.Marshal(sectors)
	if err != nil {
		return "", fmt.Errorf("failed to encode sectors: %w", err)
	}
	return string(encoded), nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (b repositoryBase) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := b.helper.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, b.mapper.MapError(err)
	}
	return n, nil
}
