package database

import (
	"path/filepath"
	"testing"

	"github.com/Egham-7/bedtime-stories/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

func TestNew_SQLiteMigratesStoreTables(t *testing.T) {
	db, err := New(models.DatabaseConfig{Type: models.SQLite, FilePath: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, "sqlite3", db.DriverName())
	require.NoError(t, db.Ping())

	for _, table := range []string{"library_items", "parental_settings", "subscriptions", "leads"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New(models.DatabaseConfig{Type: "oracle"})
	assert.ErrorContains(t, err, "unsupported database type")

	_, err = New(models.DatabaseConfig{Type: models.SQLite})
	assert.ErrorContains(t, err, "file_path is required")
}

func TestPing_NilDB(t *testing.T) {
	var db *DB
	assert.Error(t, db.Ping())
	assert.NoError(t, db.Close())
}

func TestNew_SQLiteFileUsesWALAndBusyTimeout(t *testing.T) {
	db, err := New(models.DatabaseConfig{
		Type:     models.SQLite,
		FilePath: filepath.Join(t.TempDir(), "bedtime.db"),
		LogLevel: "debug",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var journalMode string
	require.NoError(t, db.Raw("PRAGMA journal_mode").Scan(&journalMode).Error)
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, db.Raw("PRAGMA busy_timeout").Scan(&busyTimeout).Error)
	assert.Equal(t, SQLiteBusyTimeoutMs, busyTimeout)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:?_busy_timeout=5000", sqliteDSN(":memory:"))
	assert.Equal(t, "bedtime.db?_busy_timeout=5000&_journal_mode=WAL", sqliteDSN("bedtime.db"))
	assert.Equal(t, "file:x.db?cache=shared&_busy_timeout=5000&_journal_mode=WAL", sqliteDSN("file:x.db?cache=shared"))
}

func TestPostgresDSN(t *testing.T) {
	dsn := postgresDSN(models.DatabaseConfig{
		Host:     "db",
		Username: "story teller",
		Password: "p@ss word",
		Database: "bedtime",
	})
	assert.Equal(t, "postgres://story%20teller:p%40ss%20word@db:5432/bedtime?application_name=bedtime-stories&sslmode=disable", dsn)

	dsn = postgresDSN(models.DatabaseConfig{Port: 6432, SSLMode: "require", Database: "bedtime"})
	assert.Contains(t, dsn, "@localhost:6432/bedtime")
	assert.Contains(t, dsn, "sslmode=require")

	assert.Equal(t, "host=x", postgresDSN(models.DatabaseConfig{DSN: "host=x", Host: "ignored"}))
}

func TestMySQLDSN(t *testing.T) {
	dsn := mysqlDSN(models.DatabaseConfig{Host: "db", Port: 3307, Username: "app", Password: "secret", Database: "bedtime"})
	assert.Contains(t, dsn, "app:secret@tcp(db:3307)/bedtime?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
	assert.NotContains(t, dsn, "tls=")

	assert.Contains(t, mysqlDSN(models.DatabaseConfig{SSLMode: "require"}), "tls=true")
}

func TestClickHouseDSN(t *testing.T) {
	assert.Equal(t, "clickhouse://default:@localhost:9000/bedtime",
		clickhouseDSN(models.DatabaseConfig{Username: "default", Database: "bedtime"}))
	assert.Equal(t, "clickhouse://u:p@ch:9440/bedtime?secure=true",
		clickhouseDSN(models.DatabaseConfig{Host: "ch", Port: 9440, Username: "u", Password: "p", Database: "bedtime", SSLMode: "require"}))
}

func TestGormLogLevel(t *testing.T) {
	cases := map[string]gormlogger.LogLevel{
		"DEBUG":  gormlogger.Info,
		"trace":  gormlogger.Info,
		"info":   gormlogger.Warn,
		"warn":   gormlogger.Warn,
		"":       gormlogger.Warn,
		"error":  gormlogger.Error,
		"silent": gormlogger.Silent,
	}
	for level, want := range cases {
		assert.Equal(t, want, gormLogLevel(level), level)
	}

	l := newGormLogger("error").LogMode(gormlogger.Info)
	assert.Equal(t, gormlogger.Info, l.(*fiberLogger).level)
}
