package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/volunteer-scheduler/internal/persistence"
)

// MemberRepository implements persistence.MemberRepository using SQLite
type MemberRepository struct {
	repositoryBase
}

var _ persistence.MemberRepository = (*MemberRepository)(nil)

// CreateMember inserts a member together with its department links
func (r *MemberRepository) CreateMember(ctx context.Context, member persistence.Member) (persistence.Member, error) {
	member.CreatedAt = stamp(member.CreatedAt)
	member.UpdatedAt = stamp(member.UpdatedAt)
	member.DepartmentIDs = uniqueIDs(member.DepartmentIDs)

	query := `
		INSERT INTO members (name, email, phone, type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := r.helper.ExecTx(ctx, tx, query,
				member.Name,
				nullableString(member.Email),
				member.Phone,
				member.Type,
				formatTime(member.CreatedAt),
				formatTime(member.UpdatedAt),
			)
			if err != nil {
				return err
			}
			if member.ID, err = result.LastInsertId(); err != nil {
				return fmt.Errorf("failed to read member id: %w", err)
			}
			return r.replaceLinks(ctx, tx, member.ID, member.DepartmentIDs)
		})
	})
	if err != nil {
		return persistence.Member{}, err
	}

	return member, nil
}

// UpdateMember overwrites a member and replaces its department links
func (r *MemberRepository) UpdateMember(ctx context.Context, member persistence.Member) (persistence.Member, error) {
	member.UpdatedAt = stamp(member.UpdatedAt)
	member.DepartmentIDs = uniqueIDs(member.DepartmentIDs)

	query := `
		UPDATE members
		SET name = ?, email = ?, phone = ?, type = ?, updated_at = ?
		WHERE id = ?
	`

	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := r.helper.ExecTx(ctx, tx, query,
				member.Name,
				nullableString(member.Email),
				member.Phone,
				member.Type,
				formatTime(member.UpdatedAt),
				member.ID,
			)
			if err != nil {
				return err
			}
			if err := requireAffected(result); err != nil {
				return err
			}
			return r.replaceLinks(ctx, tx, member.ID, member.DepartmentIDs)
		})
	})
	if err != nil {
		return persistence.Member{}, err
	}

	return r.GetMember(ctx, member.ID)
}

func (r *MemberRepository) replaceLinks(ctx context.Context, tx *sql.Tx, memberID int64, departmentIDs []int64) error {
	if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM member_departments WHERE member_id = ?`, memberID); err != nil {
		return err
	}
	for _, departmentID := range departmentIDs {
		if _, err := r.helper.ExecTx(ctx, tx,
			`INSERT INTO member_departments (member_id, department_id) VALUES (?, ?)`,
			memberID, departmentID,
		); err != nil {
			return err
		}
	}
	return nil
}

// GetMember retrieves a member and its department links by ID
func (r *MemberRepository) GetMember(ctx context.Context, id int64) (persistence.Member, error) {
	query := `
		SELECT id, name, email, phone, type, created_at, updated_at
		FROM members
		WHERE id = ?
	`

	member, err := scanMember(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Member{}, r.mapper.MapError(err)
	}

	links, err := r.loadLinks(ctx, []int64{member.ID})
	if err != nil {
		return persistence.Member{}, err
	}
	member.DepartmentIDs = links[member.ID]
	return member, nil
}

// ListMembers returns members ordered by name, optionally limited to a department
func (r *MemberRepository) ListMembers(ctx context.Context, filter persistence.MemberFilter) ([]persistence.Member, error) {
	query := `SELECT id, name, email, phone, type, created_at, updated_at FROM members`
	var args []any
	if filter.DepartmentID != nil {
		query += ` WHERE id IN (SELECT member_id FROM member_departments WHERE department_id = ?)`
		args = append(args, *filter.DepartmentID)
	}
	query += ` ORDER BY name COLLATE NOCASE ASC, id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}

	members := make([]persistence.Member, 0)
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, r.mapper.MapError(err)
	}
	rows.Close()

	ids := make([]int64, len(members))
	for i, member := range members {
		ids[i] = member.ID
	}
	links, err := r.loadLinks(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range members {
		members[i].DepartmentIDs = links[members[i].ID]
	}

	return members, nil
}

func (r *MemberRepository) loadLinks(ctx context.Context, memberIDs []int64) (map[int64][]int64, error) {
	links := make(map[int64][]int64, len(memberIDs))
	for _, id := range memberIDs {
		links[id] = []int64{}
	}
	if len(memberIDs) == 0 {
		return links, nil
	}

	query := `
		SELECT member_id, department_id
		FROM member_departments
		WHERE member_id IN (` + placeholders(len(memberIDs)) + `)
		ORDER BY member_id, department_id
	`

	rows, err := r.helper.Query(ctx, query, int64Args(memberIDs)...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var memberID, departmentID int64
		if err := rows.Scan(&memberID, &departmentID); err != nil {
			return nil, r.mapper.MapError(err)
		}
		links[memberID] = append(links[memberID], departmentID)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return links, nil
}

// DeleteMember removes a member. Members referenced by schedules are rejected
// with persistence.ErrForeignKeyViolation.
func (r *MemberRepository) DeleteMember(ctx context.Context, id int64) error {
	var result sql.Result
	err := r.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.helper.Exec(ctx, `DELETE FROM members WHERE id = ?`, id)
		return execErr
	})
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// CountMembers returns the number of members
func (r *MemberRepository) CountMembers(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM members`)
}

func scanMember(row rowScanner) (persistence.Member, error) {
	var (
		member       persistence.Member
		email        sql.NullString
		createdAtStr string
		updatedAtStr string
	)

	if err := row.Scan(&member.ID, &member.Name, &email, &member.Phone, &member.Type, &createdAtStr, &updatedAtStr); err != nil {
		return persistence.Member{}, err
	}
	if email.Valid {
		value := email.String
		member.Email = &value
	}

	var err error
	if member.CreatedAt, err = parseTime(createdAtStr, "created_at"); err != nil {
		return persistence.Member{}, err
	}
	if member.UpdatedAt, err = parseTime(updatedAtStr, "updated_at"); err != nil {
		return persistence.Member{}, err
	}
	return member, nil
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
