// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"email-analyzer/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the connection to the mailbox database.
type PostgresClient struct {
	DB *sql.DB
}

// reservedConns covers the readiness probe and schema migration alongside
// the connections held by in-flight categorization jobs.
const reservedConns = 2

// NewPostgres opens a pooled PostgreSQL connection. The pool connects lazily;
// call Ping to verify reachability. When the config leaves the pool size
// unset it is sized to the worker's concurrent jobs.
func NewPostgres(cfg config.PostgresConfig, maxJobsActive int) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	maxOpen := cfg.MaxConnections
	if maxOpen <= 0 {
		maxOpen = max(maxJobsActive, 1) + reservedConns
	}
	maxIdle := cfg.MaxIdle
	if maxIdle <= 0 || maxIdle > maxOpen {
		maxIdle = maxOpen
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)
	// batches are bursty; let idle connections go between them
	db.SetConnMaxIdleTime(2 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
