package database

import (
	"fmt"
	"net/url"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"gorm.io/driver/postgres"
)

const postgresApplicationName = "bedtime-stories"

func newPostgreSQL(config models.DatabaseConfig) (*DB, error) {
	dialector := postgres.New(postgres.Config{
		DSN: postgresDSN(config),
		// pgx's statement cache breaks behind PgBouncer in transaction mode
		PreferSimpleProtocol: config.SimpleProtocol,
	})
	return connect(config, "postgres", "PostgreSQL", dialector, nil)
}

// postgresDSN prefers an explicit DSN, otherwise builds a URL so credentials
// with spaces or quotes survive.
func postgresDSN(config models.DatabaseConfig) string {
	if config.DSN != "" {
		return config.DSN
	}

	query := url.Values{}
	query.Set("sslmode", sslModeOr(config.SSLMode, "disable"))
	query.Set("application_name", postgresApplicationName)

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(config.Username, config.Password),
		Host:     hostPort(config.Host, config.Port, 5432),
		Path:     "/" + config.Database,
		RawQuery: query.Encode(),
	}
	return u.String()
}

func sslModeOr(mode, fallback string) string {
	if mode == "" {
		return fallback
	}
	return mode
}

func hostPort(host string, port, defaultPort int) string {
	if host == "" {
		host = "localhost"
	}
	if port <= 0 {
		port = defaultPort
	}
	return fmt.Sprintf("%s:%d", host, port)
}
