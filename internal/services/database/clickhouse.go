package database

import (
	"net/url"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"gorm.io/driver/clickhouse"
	"gorm.io/gorm"
)

func newClickHouse(config models.DatabaseConfig) (*DB, error) {
	dialector := clickhouse.New(clickhouse.Config{
		DSN:                    clickhouseDSN(config),
		DefaultGranularity:     3,
		DefaultCompression:     "LZ4",
		DefaultIndexType:       "minmax",
		DefaultTableEngineOpts: "ENGINE=ReplacingMergeTree() ORDER BY id",
	})
	// Prepared statements panic on column introspection (go-gorm/gorm#7493)
	return connect(config, "clickhouse", "ClickHouse", dialector, &gorm.Config{PrepareStmt: false})
}

func clickhouseDSN(config models.DatabaseConfig) string {
	if config.DSN != "" {
		return config.DSN
	}

	u := url.URL{
		Scheme: "clickhouse",
		User:   url.UserPassword(config.Username, config.Password),
		Host:   hostPort(config.Host, config.Port, 9000),
		Path:   "/" + config.Database,
	}
	if config.SSLMode != "" && config.SSLMode != "disable" {
		u.RawQuery = url.Values{"secure": {"true"}}.Encode()
	}
	return u.String()
}
