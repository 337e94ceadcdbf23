package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/movie-recommender/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PoolOptions bounds the connection pool behind the corpus source
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN builds a Postgres connection string, filling defaults for empty values
func DSN(cfg *config.DatabaseConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == "" {
		port = "5432"
	}

	user := cfg.User
	if user == "" {
		user = "postgres"
	}

	dbName := cfg.DBName
	if dbName == "" {
		dbName = "movies"
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	// empty password is valid for local development
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		host, user, cfg.Password, dbName, port, sslMode)
}

// ParsePoolOptions converts raw pool settings. Rebuilds read the whole ratings
// table at once, so a handful of connections is plenty.
func ParsePoolOptions(cfg *config.DatabaseConfig) (PoolOptions, error) {
	opts := PoolOptions{
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}

	if cfg.MaxOpenConns != "" {
		n, err := strconv.Atoi(cfg.MaxOpenConns)
		if err != nil || n <= 0 {
			return opts, fmt.Errorf("invalid max open conns '%s': must be a positive integer", cfg.MaxOpenConns)
		}
		opts.MaxOpenConns = n
	}
	if cfg.MaxIdleConns != "" {
		n, err := strconv.Atoi(cfg.MaxIdleConns)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("invalid max idle conns '%s': must be a non-negative integer", cfg.MaxIdleConns)
		}
		opts.MaxIdleConns = n
	}
	if cfg.ConnMaxLifetime != "" {
		d, err := time.ParseDuration(cfg.ConnMaxLifetime)
		if err != nil || d < 0 {
			return opts, fmt.Errorf("invalid conn max lifetime '%s'", cfg.ConnMaxLifetime)
		}
		opts.ConnMaxLifetime = d
	}
	if opts.MaxIdleConns > opts.MaxOpenConns {
		opts.MaxIdleConns = opts.MaxOpenConns
	}
	return opts, nil
}

// NewConnection opens a pooled gorm connection and verifies it with a ping
func NewConnection(ctx context.Context, cfg *config.DatabaseConfig) (*gorm.DB, error) {
	pool, err := ParsePoolOptions(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
