package migrations

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"

	"github.com/pressly/goose/v3"

	embedded "github.com/Simplici0/partquote/migrations"
)

const sqliteDialect = "sqlite3"

// Up runs all pending SQL migrations. An empty migrationsDir uses the
// migrations compiled into the binary.
func Up(db *sql.DB, migrationsDir string) error {
	fsys, dir := source(migrationsDir)
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(sqliteDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("run goose up migrations: %w", err)
	}

	return nil
}

// Version reports the current schema version.
func Version(db *sql.DB) (int64, error) {
	if err := goose.SetDialect(sqliteDialect); err != nil {
		return 0, fmt.Errorf("set goose dialect: %w", err)
	}
	v, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func source(migrationsDir string) (fs.FS, string) {
	if migrationsDir == "" {
		return embedded.FS, "."
	}
	return os.DirFS(migrationsDir), "."
}
