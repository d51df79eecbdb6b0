package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"asset-inventory-api/internal/config"
)

// assetSchema bootstraps the assets table. Every statement is idempotent so
// applying it on startup is safe. The unique constraint name is load-bearing:
// the repository recognizes duplicate-code violations by it.
const assetSchema = `
CREATE TABLE IF NOT EXISTS assets (
	id UUID PRIMARY KEY,
	asset_code TEXT NOT NULL,
	asset_type TEXT NOT NULL,
	brand TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	serial_number TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	branch_id UUID,
	assigned_person_id UUID,
	purchase_date TIMESTAMPTZ,
	delivery_date TIMESTAMPTZ,
	received_date TIMESTAMPTZ,
	notes TEXT NOT NULL DEFAULT '',
	attributes JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT assets_asset_code_key UNIQUE (asset_code)
);
CREATE INDEX IF NOT EXISTS idx_assets_type_status ON assets (asset_type, status);
CREATE INDEX IF NOT EXISTS idx_assets_assigned_person ON assets (assigned_person_id) WHERE assigned_person_id IS NOT NULL;
`

// InitDB opens the Postgres connection, tunes the pool and verifies
// connectivity with a bounded ping.
func InitDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// EnsureSchema applies the assets table DDL.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, assetSchema); err != nil {
		return fmt.Errorf("failed to apply database schema: %w", err)
	}
	return nil
}
