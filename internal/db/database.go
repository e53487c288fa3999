package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/pos-backend/config"
	appLogger "github.com/ikkim/pos-backend/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

const (
	maxIdleConns    = 10
	maxOpenConns    = 100
	connMaxLifetime = time.Hour

	slowQueryThreshold = 200 * time.Millisecond
)

// Initialize opens the postgres pool. Slow queries are reported through the
// app logger.
func Initialize(cfg *config.DatabaseConfig) error {
	appLogger.Info("Connecting to database", map[string]interface{}{
		"host":     cfg.Host,
		"port":     cfg.Port,
		"database": cfg.DBName,
		"user":     cfg.User,
	})

	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: queryLogger{},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	appLogger.Info("Database connection established successfully", map[string]interface{}{
		"max_idle_conns": maxIdleConns,
		"max_open_conns": maxOpenConns,
	})
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// queryLogger routes gorm output to the app logger. Only slow statements and
// unexpected errors are logged; repositories log their own failures.
type queryLogger struct{}

func (l queryLogger) LogMode(logger.LogLevel) logger.Interface { return l }

func (queryLogger) Info(_ context.Context, msg string, args ...interface{}) {
	appLogger.Debug(fmt.Sprintf(msg, args...))
}

func (queryLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	appLogger.Warn(fmt.Sprintf(msg, args...))
}

func (queryLogger) Error(_ context.Context, msg string, args ...interface{}) {
	appLogger.Error(fmt.Sprintf(msg, args...), nil)
}

func (queryLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		appLogger.Debug("Query failed", map[string]interface{}{
			"sql":     sql,
			"rows":    rows,
			"error":   err.Error(),
			"elapsed": elapsed.String(),
		})
	case elapsed > slowQueryThreshold:
		sql, rows := fc()
		appLogger.Warn("Slow query", map[string]interface{}{
			"sql":     sql,
			"rows":    rows,
			"elapsed": elapsed.String(),
		})
	}
}
