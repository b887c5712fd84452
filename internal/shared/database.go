package shared

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const memoryDatabase = ":memory:"

// NewDatabase opens the SQLite queue store at path, or a private in-memory store for ":memory:".
//
// Connections enforce foreign keys, so deleting a session cascades to its queue_entries, and wait
// on a locked file instead of failing while a running server flushes snapshots.
func NewDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", queueDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database %s: %w", path, err)
	}

	// Every pooled connection to ":memory:" would open its own empty database.
	if isMemory(path) {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping queue database %s: %w", path, err)
	}
	return db, nil
}

// ConfigureDatabase applies the pool limits of cfg. Zero values keep the driver defaults, and an
// in-memory store stays on its single connection.
func ConfigureDatabase(db *sql.DB, cfg DatabaseConfig) {
	if cfg.MaxOpenConns > 0 && !isMemory(cfg.Path) {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
}

func queueDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}

func isMemory(path string) bool {
	return path == memoryDatabase || strings.HasPrefix(path, memoryDatabase+"?")
}
