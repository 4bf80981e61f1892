package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/inboxmarket/datagate/config"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// InitSchema initializes the database schema
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
		-- Per-owner sharing policies, one row per owner, replaced wholesale
		CREATE TABLE IF NOT EXISTS policies (
			owner_id UUID PRIMARY KEY,
			global_data_sharing BOOLEAN NOT NULL DEFAULT false,
			allow_subscription_proof BOOLEAN NOT NULL DEFAULT false,
			allow_delivery_proof BOOLEAN NOT NULL DEFAULT false,
			allow_purchase_proof BOOLEAN NOT NULL DEFAULT false,
			allow_financial_proof BOOLEAN NOT NULL DEFAULT false,
			price_subscription DOUBLE PRECISION NOT NULL DEFAULT 0,
			price_delivery DOUBLE PRECISION NOT NULL DEFAULT 0,
			price_purchase DOUBLE PRECISION NOT NULL DEFAULT 0,
			price_financial DOUBLE PRECISION NOT NULL DEFAULT 0,
			redact_email_bodies BOOLEAN NOT NULL DEFAULT true,
			redact_personal_info BOOLEAN NOT NULL DEFAULT true,
			show_subject_info BOOLEAN NOT NULL DEFAULT true,
			show_sender_info BOOLEAN NOT NULL DEFAULT false,
			max_emails_per_request INTEGER NOT NULL DEFAULT 10,
			max_email_age_days INTEGER NOT NULL DEFAULT 30,
			wallet_address VARCHAR(42) NOT NULL DEFAULT '',
			version INTEGER NOT NULL DEFAULT 1,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Durable negotiation archive for offline audit
		CREATE TABLE IF NOT EXISTS negotiation_archive (
			id UUID PRIMARY KEY,
			owner_id UUID NOT NULL,
			category VARCHAR(32) NOT NULL,
			accepted BOOLEAN NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			record_count INTEGER NOT NULL DEFAULT 0,
			reason TEXT NOT NULL DEFAULT '',
			timestamp TIMESTAMP NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_archive_owner_ts
			ON negotiation_archive (owner_id, timestamp DESC);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized")
	return nil
}

// Stats returns database connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}
