// Package database provides database access layers for PostgreSQL and Redis.
// Implements connection management with automatic retry logic and
// connection pooling.
//
// PostgreSQL holds the durable statistics series written during the
// historical backfill. Redis holds the short-lived latest-snapshot cache.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/datalexum/aquawiz-monitor/pkg/config"
	"github.com/datalexum/aquawiz-monitor/pkg/utils"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// TxFunc is a function that runs within a database transaction.
// Used with WithTransaction to ensure atomic operations.
type TxFunc func(tx *sql.Tx) error

// PostgresDB wraps a PostgreSQL database connection with connection pooling.
//
// Features:
//   - Automatic connection retry with exponential backoff
//   - Connection pooling (configurable max connections)
//   - Transaction support with automatic rollback on errors
//   - Health check support
type PostgresDB struct {
	db *sql.DB // Underlying connection pool
}

// NewPostgresDB creates a new PostgreSQL connection with automatic retry.
// Implements exponential backoff retry logic to handle transient connection
// failures during startup (e.g., database container not ready yet).
//
// Connection pool settings:
//   - MaxOpenConns: From configuration (default: 25)
//   - MaxIdleConns: Half of MaxOpenConns
//   - ConnMaxLifetime: 1 hour
//
// Returns the connected database or an error if all retries fail.
func NewPostgresDB(cfg *config.DatabaseConfig) (*PostgresDB, error) {
	var db *sql.DB
	var connErr error

	// Retry database connection with exponential backoff
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	retryConfig := utils.DatabaseRetryConfig()
	retryConfig.MaxAttempts = 5
	retryConfig.InitialDelay = 100 * time.Millisecond
	retryConfig.MaxDelay = 3 * time.Second

	err := utils.Retry(ctx, retryConfig, func() error {
		var err error
		db, err = sql.Open("postgres", cfg.DSN())
		if err != nil {
			connErr = err
			log.Warn().Err(err).Msg("Failed to open database connection, retrying...")
			return err
		}

		// Set connection pool settings
		db.SetMaxOpenConns(cfg.MaxConns)
		db.SetMaxIdleConns(cfg.MaxConns / 2)
		db.SetConnMaxLifetime(time.Hour)

		// Verify connection with ping
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pingCancel()

		if err := db.PingContext(pingCtx); err != nil {
			connErr = err
			log.Warn().Err(err).Msg("Failed to ping database, retrying...")
			db.Close() // Clean up failed connection
			return err
		}

		return nil
	})

	if err != nil {
		if connErr != nil {
			return nil, fmt.Errorf("failed to connect to database after retries: %w", connErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info().Msg("Successfully connected to PostgreSQL")

	return &PostgresDB{db: db}, nil
}

// Close closes the database connection and releases all resources.
// Should be called when shutting down the application, typically
// with defer in main().
func (p *PostgresDB) Close() error {
	return p.db.Close()
}

// Ping checks if the database connection is alive.
// Used by the readiness endpoint to verify database availability.
func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// RunMigrations executes database migrations from SQL string.
// Should be called during application startup to ensure the statistics
// schema is up to date. The migration SQL must be idempotent (safe to
// run multiple times) using CREATE TABLE IF NOT EXISTS, etc.
func (p *PostgresDB) RunMigrations(ctx context.Context, migrationSQL string) error {
	_, err := p.db.ExecContext(ctx, migrationSQL)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Msg("Database migrations completed successfully")
	return nil
}

// WithTransaction executes a function within a database transaction.
// Automatically handles commit on success and rollback on error or panic.
// The statistics sink uses this so a series' metadata and points land
// atomically.
func (p *PostgresDB) WithTransaction(ctx context.Context, fn TxFunc) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Ensure transaction is closed
	defer func() {
		if r := recover(); r != nil {
			// Panic occurred, rollback and re-panic
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction after panic")
			}
			panic(r)
		}
	}()

	// Execute the function
	if err := fn(tx); err != nil {
		// Function returned error, rollback
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("Failed to rollback transaction")
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	// Success, commit transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
