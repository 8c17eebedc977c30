package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/it-Barath/fpms-sub006/common/config"

	_ "github.com/lib/pq"
)

// NewPostgresDB opens a pooled connection to the registry database and pings it.
func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Close closes db; nil is a no-op.
func Close(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
