package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Egham-7/bedtime-stories/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// DB wraps the gorm handle backing the library, parental, subscription and lead stores
type DB struct {
	*gorm.DB
	config     models.DatabaseConfig
	driverName string
}

func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (db *DB) Ping() error {
	return db.PingContext(context.Background())
}

// PingContext is used by the health check so a hung database cannot stall it
func (db *DB) PingContext(ctx context.Context) error {
	if db == nil || db.DB == nil {
		return fmt.Errorf("database not connected")
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (db *DB) DriverName() string {
	return db.driverName
}

func (db *DB) setConnectionPool() {
	if db.DB == nil {
		return
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return
	}

	if db.config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(db.config.MaxOpenConns)
	}
	if db.config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(db.config.MaxIdleConns)
	}
	if db.config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(db.config.ConnMaxLifetime) * time.Second)
	}
}

// New opens the configured database and migrates the user-state tables
func New(config models.DatabaseConfig) (*DB, error) {
	db, err := open(config)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", db.driverName, err)
	}
	return db, nil
}

// Migrate creates or updates the tables the stores rely on
func (db *DB) Migrate() error {
	if db.driverName == "clickhouse" {
		return RunClickHouseMigrations(db.DB)
	}
	return db.AutoMigrate(
		&models.LibraryItem{},
		&models.ParentalSettings{},
		&models.Subscription{},
		&models.Lead{},
	)
}

// connect opens dialector with the shared gorm settings, applies the pool limits and pings
func connect(config models.DatabaseConfig, driverName, label string, dialector gorm.Dialector, gormConfig *gorm.Config) (*DB, error) {
	if gormConfig == nil {
		gormConfig = &gorm.Config{}
	}
	gormConfig.Logger = newGormLogger(config.LogLevel)

	gormDB, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", label, err)
	}

	db := &DB{
		DB:         gormDB,
		config:     config,
		driverName: driverName,
	}
	db.setConnectionPool()

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", label, err)
	}

	fiberlog.Infof("Database connected: %s", label)
	return db, nil
}

func open(config models.DatabaseConfig) (*DB, error) {
	switch config.Type {
	case models.PostgreSQL:
		return newPostgreSQL(config)
	case models.MySQL:
		return newMySQL(config)
	case models.SQLite:
		return newSQLite(config)
	case models.ClickHouse:
		return newClickHouse(config)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}
}
