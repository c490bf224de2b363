package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/volunteer-scheduler/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite
type UserRepository struct {
	repositoryBase
}

var _ persistence.UserRepository = (*UserRepository)(nil)

// CreateUser inserts a user and its department links in one transaction
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	user.Username = normalizeUsername(user.Username)
	user.CreatedAt = stamp(user.CreatedAt)
	user.UpdatedAt = stamp(user.UpdatedAt)
	user.DepartmentIDs = uniqueIDs(user.DepartmentIDs)

	query := `
		INSERT INTO users (username, password_hash, level, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := r.helper.ExecTx(ctx, tx, query,
				user.Username,
				user.PasswordHash,
				user.Level,
				formatTime(user.CreatedAt),
				formatTime(user.UpdatedAt),
			)
			if err != nil {
				return err
			}
			if user.ID, err = result.LastInsertId(); err != nil {
				return fmt.Errorf("failed to read user id: %w", err)
			}
			return r.replaceLinks(ctx, tx, user.ID, user.DepartmentIDs)
		})
	})
	if err != nil {
		return persistence.User{}, err
	}

	return user, nil
}

// UpdateUser overwrites a user and replaces its department links
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	user.Username = normalizeUsername(user.Username)
	user.UpdatedAt = stamp(user.UpdatedAt)
	user.DepartmentIDs = uniqueIDs(user.DepartmentIDs)

	query := `
		UPDATE users
		SET username = ?, password_hash = ?, level = ?, updated_at = ?
		WHERE id = ?
	`

	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := r.helper.ExecTx(ctx, tx, query,
				user.Username,
				user.PasswordHash,
				user.Level,
				formatTime(user.UpdatedAt),
				user.ID,
			)
			if err != nil {
				return err
			}
			if err := requireAffected(result); err != nil {
				return err
			}
			return r.replaceLinks(ctx, tx, user.ID, user.DepartmentIDs)
		})
	})
	if err != nil {
		return persistence.User{}, err
	}

	return r.GetUser(ctx, user.ID)
}

func (r *UserRepository) replaceLinks(ctx context.Context, tx *sql.Tx, userID int64, departmentIDs []int64) error {
	if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM user_departments WHERE user_id = ?`, userID); err != nil {
		return err
	}
	for _, departmentID := range departmentIDs {
		if _, err := r.helper.ExecTx(ctx, tx,
			`INSERT INTO user_departments (user_id, department_id) VALUES (?, ?)`,
			userID, departmentID,
		); err != nil {
			return err
		}
	}
	return nil
}

// GetUser retrieves a user by ID
func (r *UserRepository) GetUser(ctx context.Context, id int64) (persistence.User, error) {
	return r.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByUsername retrieves a user by username, ignoring case
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	username = normalizeUsername(username)
	if username == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getUser(ctx, `WHERE username = ?`, username)
}

func (r *UserRepository) getUser(ctx context.Context, where string, arg any) (persistence.User, error) {
	query := `SELECT id, username, password_hash, level, created_at, updated_at FROM users ` + where

	user, err := scanUser(r.helper.QueryRow(ctx, query, arg))
	if err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}

	if user.DepartmentIDs, err = r.ListUserDepartmentIDs(ctx, user.ID); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

// ListUsers returns all users ordered by username
func (r *UserRepository) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, username, password_hash, level, created_at, updated_at
		FROM users
		ORDER BY username COLLATE NOCASE ASC, id ASC
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}

	users := make([]persistence.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, r.mapper.MapError(err)
	}
	rows.Close()

	links, err := r.loadLinks(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if ids, ok := links[users[i].ID]; ok {
			users[i].DepartmentIDs = ids
		} else {
			users[i].DepartmentIDs = []int64{}
		}
	}
	return users, nil
}

func (r *UserRepository) loadLinks(ctx context.Context) (map[int64][]int64, error) {
	rows, err := r.helper.Query(ctx, `SELECT user_id, department_id FROM user_departments ORDER BY user_id, department_id`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	links := make(map[int64][]int64)
	for rows.Next() {
		var userID, departmentID int64
		if err := rows.Scan(&userID, &departmentID); err != nil {
			return nil, r.mapper.MapError(err)
		}
		links[userID] = append(links[userID], departmentID)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return links, nil
}

// ListUserDepartmentIDs returns the departments linked to a user in ascending order
func (r *UserRepository) ListUserDepartmentIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT department_id FROM user_departments WHERE user_id = ? ORDER BY department_id`, userID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, r.mapper.MapError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return ids, nil
}

// DeleteUser removes a user; links and sessions cascade
func (r *UserRepository) DeleteUser(ctx context.Context, id int64) error {
	var result sql.Result
	err := r.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.helper.Exec(ctx, `DELETE FROM users WHERE id = ?`, id)
		return execErr
	})
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// CountUsers returns the number of users
func (r *UserRepository) CountUsers(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM users`)
}

func scanUser(row rowScanner) (persistence.User, error) {
	var (
		user         persistence.User
		createdAtStr string
		updatedAtStr string
	)
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Level, &createdAtStr, &updatedAtStr); err != nil {
		return persistence.User{}, err
	}

	var err error
	if user.CreatedAt, err = parseTime(createdAtStr, "created_at"); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime(updatedAtStr, "updated_at"); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

func normalizeUsername(username string) string {
	return strings.TrimSpace(username)
}
