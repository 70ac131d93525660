package database

import (
	"fmt"
	"strings"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"gorm.io/driver/sqlite"
)

// SQLiteBusyTimeoutMs is how long a writer waits on the database lock
const SQLiteBusyTimeoutMs = 5000

func newSQLite(config models.DatabaseConfig) (*DB, error) {
	if config.FilePath == "" {
		return nil, fmt.Errorf("file_path is required for SQLite")
	}
	return connect(config, "sqlite3", "SQLite", sqlite.Open(sqliteDSN(config.FilePath)), nil)
}

// sqliteDSN appends the go-sqlite3 connection pragmas. In-memory databases
// cannot use WAL, so they only get the busy timeout.
func sqliteDSN(path string) string {
	params := []string{fmt.Sprintf("_busy_timeout=%d", SQLiteBusyTimeoutMs)}
	if !isMemoryPath(path) {
		params = append(params, "_journal_mode=WAL")
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}
