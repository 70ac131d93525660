package database

import (
	"time"

	"github.com/Egham-7/bedtime-stories/internal/models"
	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
)

func newMySQL(config models.DatabaseConfig) (*DB, error) {
	return connect(config, "mysql", "MySQL", mysql.Open(mysqlDSN(config)), nil)
}

// mysqlDSN formats the discrete fields with the driver's own encoder. Times are
// parsed as UTC so blackout windows and subscription periods match SQLite.
func mysqlDSN(config models.DatabaseConfig) string {
	if config.DSN != "" {
		return config.DSN
	}

	dsn := mysqldriver.NewConfig()
	dsn.User = config.Username
	dsn.Passwd = config.Password
	dsn.Net = "tcp"
	dsn.Addr = hostPort(config.Host, config.Port, 3306)
	dsn.DBName = config.Database
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	dsn.Params = map[string]string{"charset": "utf8mb4"}
	if config.SSLMode != "" && config.SSLMode != "disable" {
		dsn.TLSConfig = "true"
	}
	return dsn.FormatDSN()
}
