// Package sqlite implements the persistence repositories on an embedded
// SQLite database (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/volunteer-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Options tune a Storage.
type Options struct {
	Logger             *slog.Logger
	SlowQueryThreshold time.Duration
	Retry              RetryConfig
}

// Storage owns the connection pool and every repository built on it.
type Storage struct {
	pool   *ConnectionPool
	logger *slog.Logger

	Departments *DepartmentRepository
	Members     *MemberRepository
	Services    *ServiceRepository
	Users       *UserRepository
	Schedules   *ScheduleRepository
	Sessions    *SessionRepository
}

// Open opens the database file at path with the default configuration.
func Open(path string, opts Options) (*Storage, error) {
	return OpenWithConfig(migration.DefaultSQLiteConfig(path), opts)
}

// OpenWithConfig opens a database using an explicit SQLite configuration.
func OpenWithConfig(config migration.SQLiteConfig, opts Options) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retry := opts.Retry
	if retry.MaxRetries == 0 && retry.InitialDelay == 0 {
		retry = DefaultRetryConfig()
	}

	base := repositoryBase{
		pool:   pool,
		helper: NewQueryHelper(pool, logger.With("component", "sqlite"), opts.SlowQueryThreshold),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(retry),
	}

	return &Storage{
		pool:        pool,
		logger:      logger,
		Departments: &DepartmentRepository{repositoryBase: base},
		Members:     &MemberRepository{repositoryBase: base},
		Services:    &ServiceRepository{repositoryBase: base},
		Users:       &UserRepository{repositoryBase: base},
		Schedules:   &ScheduleRepository{repositoryBase: base},
		Sessions:    &SessionRepository{repositoryBase: base},
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(s.pool.DB()),
		s.logger,
	)
	if _, err := manager.Run(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping checks that the database answers.
func (s *Storage) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return NewErrorMapper().MapError(err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Close()
}

// repositoryBase carries the helpers shared by every repository.
type repositoryBase struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// stamp keeps a caller-supplied timestamp and falls back to the wall clock when
// it is unset.
func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value, column string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return t, nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			buf = append(buf, ", "...)
		}
		buf = append(buf, '?')
	}
	return string(buf)
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
