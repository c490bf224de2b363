// Package migration applies versioned SQL files to a SQLite database.
//
// Migration files are read from an fs.FS (normally an embed.FS compiled into
// the binary) and must be named {version}_{description}.sql, for example
// "001_initial_schema.sql". Each file runs inside its own transaction and is
// recorded in the schema_migrations table together with its checksum, so a
// file is applied at most once and later edits to an applied file are
// reported instead of silently ignored.
//
// Example usage:
//
//	manager := migration.NewManager(migration.NewScanner(files, "migrations"), migration.NewSQLiteExecutor(db), logger)
//	if _, err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
