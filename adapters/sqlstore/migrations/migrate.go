package migrations

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed sql
var migrationFS embed.FS

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

// ErrNoMigrations is returned by Down when nothing has been applied
var ErrNoMigrations = errors.New("no migrations to roll back")

// Migrator handles database schema migrations for the key/value store
type Migrator struct {
	db  *sqlx.DB
	dir string
}

// NewMigrator creates a migrator for the db's driver ("postgres" or "sqlite3")
func NewMigrator(db *sqlx.DB) (*Migrator, error) {
	dir, err := dialectDir(db.DriverName())
	if err != nil {
		return nil, err
	}
	return &Migrator{db: db, dir: dir}, nil
}

func dialectDir(driver string) (string, error) {
	switch driver {
	case "postgres":
		return "sql/postgres", nil
	case "sqlite3":
		return "sql/sqlite", nil
	}
	return "", fmt.Errorf("unsupported migration dialect %q", driver)
}

// MigrationFile represents one versioned migration
type MigrationFile struct {
	Version  string
	Name     string
	UpPath   string
	DownPath string
}

// MigrationStatus reports whether a migration has been applied
type MigrationStatus struct {
	Version string
	Name    string
	Applied bool
}

// Up executes all pending migrations and returns the versions it applied
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	files, err := m.findMigrationFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to find migration files: %w", err)
	}

	var ran []string
	for _, file := range files {
		if checksum, ok := applied[file.Version]; ok {
			current, err := m.checksum(file.UpPath)
			if err != nil {
				return ran, err
			}
			if checksum != current {
				return ran, fmt.Errorf("migration %s was modified after it was applied", file.Version)
			}
			continue
		}

		if err := m.applyMigration(ctx, file); err != nil {
			return ran, fmt.Errorf("failed to apply migration %s: %w", file.Version, err)
		}
		ran = append(ran, file.Version)
	}

	return ran, nil
}

// Down rolls back the most recent migration and returns its version
func (m *Migrator) Down(ctx context.Context) (string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return "", err
	}

	var version string
	err := m.db.GetContext(ctx, &version, `
		SELECT version FROM schema_migrations
		ORDER BY version DESC LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoMigrations
		}
		return "", fmt.Errorf("failed to get last migration: %w", err)
	}

	files, err := m.findMigrationFiles()
	if err != nil {
		return "", fmt.Errorf("failed to find migration files: %w", err)
	}
	var file *MigrationFile
	for i := range files {
		if files[i].Version == version {
			file = &files[i]
		}
	}
	if file == nil || file.DownPath == "" {
		return "", fmt.Errorf("no down migration for version %s", version)
	}

	downSQL, err := fs.ReadFile(migrationFS, file.DownPath)
	if err != nil {
		return "", fmt.Errorf("failed to read migration file: %w", err)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(downSQL)); err != nil {
		return "", fmt.Errorf("failed to execute down migration %s: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM schema_migrations WHERE version = ?"), version); err != nil {
		return "", fmt.Errorf("failed to remove migration record: %w", err)
	}
	return version, tx.Commit()
}

// Status lists every known migration and whether it has been applied
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	files, err := m.findMigrationFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to find migration files: %w", err)
	}

	statuses := make([]MigrationStatus, 0, len(files))
	for _, file := range files {
		_, ok := applied[file.Version]
		statuses = append(statuses, MigrationStatus{Version: file.Version, Name: file.Name, Applied: ok})
	}
	return statuses, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// getAppliedMigrations returns applied versions mapped to their recorded checksum
func (m *Migrator) getAppliedMigrations(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		Version  string `db:"version"`
		Checksum string `db:"checksum"`
	}
	if err := m.db.SelectContext(ctx, &rows, "SELECT version, checksum FROM schema_migrations"); err != nil {
		return nil, err
	}

	applied := make(map[string]string, len(rows))
	for _, r := range rows {
		applied[r.Version] = r.Checksum
	}
	return applied, nil
}

// calculateChecksum computes SHA256 checksum of migration content
func calculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

func (m *Migrator) checksum(p string) (string, error) {
	data, err := fs.ReadFile(migrationFS, p)
	if err != nil {
		return "", fmt.Errorf("failed to read migration file: %w", err)
	}
	return calculateChecksum(data), nil
}

// findMigrationFiles pairs NNN_name.up.sql / NNN_name.down.sql files in the dialect directory
func (m *Migrator) findMigrationFiles() ([]MigrationFile, error) {
	entries, err := fs.ReadDir(migrationFS, m.dir)
	if err != nil {
		return nil, err
	}

	byVersion := make(map[string]*MigrationFile)
	for _, entry := range entries {
		base := entry.Name()
		if entry.IsDir() {
			continue
		}

		var stem string
		var up bool
		switch {
		case strings.HasSuffix(base, upSuffix):
			stem, up = strings.TrimSuffix(base, upSuffix), true
		case strings.HasSuffix(base, downSuffix):
			stem = strings.TrimSuffix(base, downSuffix)
		default:
			continue
		}

		parts := strings.SplitN(stem, "_", 2)
		if len(parts) < 2 {
			continue // skip invalid filenames
		}

		file, ok := byVersion[parts[0]]
		if !ok {
			file = &MigrationFile{Version: parts[0], Name: parts[1]}
			byVersion[parts[0]] = file
		}
		if up {
			file.UpPath = path.Join(m.dir, base)
		} else {
			file.DownPath = path.Join(m.dir, base)
		}
	}

	files := make([]MigrationFile, 0, len(byVersion))
	for _, f := range byVersion {
		if f.UpPath == "" {
			return nil, fmt.Errorf("migration %s has no up file", f.Version)
		}
		files = append(files, *f)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Version < files[j].Version
	})
	return files, nil
}

// applyMigration executes a single migration file in a transaction
func (m *Migrator) applyMigration(ctx context.Context, file MigrationFile) error {
	sqlBytes, err := fs.ReadFile(migrationFS, file.UpPath)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		tx.Rebind("INSERT INTO schema_migrations (version, checksum) VALUES (?, ?)"),
		file.Version, calculateChecksum(sqlBytes))
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}
