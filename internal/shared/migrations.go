package shared

import (
	"database/sql"
	"embed"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"
)

// Queue schema migrations are embedded file pairs named NNNN_<name>_up.sql and NNNN_<name>_down.sql.
// Applied versions are recorded in schema_migrations.
//
//go:embed sql/*.sql
var migrationFiles embed.FS

// queueSchema lists the columns the queue repository reads and writes.
var queueSchema = []struct {
	table   string
	columns []string
}{
	{"sessions", []string{"id", "sequence", "fairness", "queue_loop", "track_loop", "auto_continue", "created_at", "updated_at"}},
	{"sessions_sequence", []string{"id", "value"}},
	{"queue_entries", []string{
		"session_id", "position", "entry_id", "title", "url", "service_id",
		"length_seconds", "thumbnail", "is_live", "added_by_id", "added_by_name",
	}},
}

// Migration is one versioned change to the queue schema.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

func (m Migration) String() string { return fmt.Sprintf("%04d_%s", m.Version, m.Name) }

// RunMigrations applies every pending migration, then checks that the sessions and queue_entries
// tables carry the columns the repository uses.
func RunMigrations(db *sql.DB) error {
	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	if err := createMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := runScript(db, m.Up, "INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m, err)
		}
	}
	return VerifyQueueSchema(db)
}

// RollbackMigration reverts the most recently applied migration and returns it.
func RollbackMigration(db *sql.DB) (Migration, error) {
	migrations, err := loadMigrations()
	if err != nil {
		return Migration{}, fmt.Errorf("failed to load migrations: %w", err)
	}
	if err := createMigrationsTable(db); err != nil {
		return Migration{}, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return Migration{}, err
	}
	if len(applied) == 0 {
		return Migration{}, fmt.Errorf("%w: the queue schema has no applied migrations", ErrInvalidInput)
	}
	latest := -1
	for v := range applied {
		latest = max(latest, v)
	}

	i := slices.IndexFunc(migrations, func(m Migration) bool { return m.Version == latest })
	if i < 0 {
		return Migration{}, fmt.Errorf("%w: applied migration %04d has no script", ErrInvalidConfig, latest)
	}
	m := migrations[i]
	if err := runScript(db, m.Down, "DELETE FROM schema_migrations WHERE version = ?", m.Version); err != nil {
		return Migration{}, fmt.Errorf("failed to roll back migration %s: %w", m, err)
	}
	return m, nil
}

// VerifyQueueSchema reports the first queue table or column missing from db.
func VerifyQueueSchema(db *sql.DB) error {
	for _, t := range queueSchema {
		have, err := tableColumns(db, t.table)
		if err != nil {
			return err
		}
		if len(have) == 0 {
			return fmt.Errorf("%w: queue schema has no %s table", ErrInvalidConfig, t.table)
		}
		for _, col := range t.columns {
			if !have[col] {
				return fmt.Errorf("%w: queue schema is missing %s.%s", ErrInvalidConfig, t.table, col)
			}
		}
	}
	return nil
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to inspect %s: %w", table, err)
		}
		columns[name] = true
	}
	return columns, rows.Err()
}

func loadMigrations() ([]Migration, error) {
	files, err := migrationFiles.ReadDir("sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, f := range files {
		version, name, direction, ok := parseMigrationName(f.Name())
		if f.IsDir() || !ok {
			continue
		}
		content, err := migrationFiles.ReadFile(path.Join("sql", f.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", f.Name(), err)
		}

		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if m.Name != name {
			return nil, fmt.Errorf("%w: migration %04d is named both %q and %q", ErrInvalidConfig, version, m.Name, name)
		}
		if direction == "up" {
			m.Up = string(content)
		} else {
			m.Down = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("%w: migration %s needs both an up and a down script", ErrInvalidConfig, m)
		}
		migrations = append(migrations, *m)
	}
	slices.SortFunc(migrations, func(a, b Migration) int { return a.Version - b.Version })
	return migrations, nil
}

// parseMigrationName splits "0000_create_queue_tables_up.sql" into 0, "create_queue_tables" and "up".
func parseMigrationName(file string) (version int, name, direction string, ok bool) {
	base, found := strings.CutSuffix(file, ".sql")
	if !found {
		return 0, "", "", false
	}
	prefix, rest, found := strings.Cut(base, "_")
	if !found {
		return 0, "", "", false
	}
	version, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, "", "", false
	}
	i := strings.LastIndex(rest, "_")
	if i <= 0 {
		return 0, "", "", false
	}
	name, direction = rest[:i], rest[i+1:]
	if direction != "up" && direction != "down" {
		return 0, "", "", false
	}
	return version, name, direction, true
}

func createMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func appliedVersions(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to read applied migrations: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// runScript executes every statement of script plus the schema_migrations bookkeeping in one
// transaction.
func runScript(db *sql.DB, script, bookkeeping string, version int) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(script) {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute statement: %w\nStatement: %s", err, stmt)
		}
	}
	if _, err := tx.Exec(bookkeeping, version); err != nil {
		return err
	}
	return tx.Commit()
}

// splitStatements drops "--" comments and splits script on semicolons.
func splitStatements(script string) []string {
	var b strings.Builder
	for line := range strings.Lines(script) {
		if i := strings.Index(line, "--"); i >= 0 {
			line = line[:i] + "\n"
		}
		b.WriteString(line)
	}

	var stmts []string
	for stmt := range strings.SplitSeq(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
