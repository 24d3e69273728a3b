package config

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

func InitDB() (*sql.DB, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

		`CREATE TABLE IF NOT EXISTS organizations (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			org_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			role VARCHAR(50) NOT NULL DEFAULT 'foreman',
			totp_secret VARCHAR(255),
			totp_enabled BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS projects (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			org_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS smetas (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			org_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		// org_id is denormalized from the owning smeta so tenant checks are a
		// single-column comparison instead of a three-table join chain.
		`CREATE TABLE IF NOT EXISTS smeta_items (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			smeta_id UUID NOT NULL REFERENCES smetas(id) ON DELETE CASCADE,
			org_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			unit VARCHAR(50) NOT NULL DEFAULT '',
			category VARCHAR(100) NOT NULL DEFAULT '',
			quantity NUMERIC(18,3) NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			unit_price NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (unit_price >= 0),
			amount NUMERIC(18,2) NOT NULL DEFAULT 0,
			consumed_qty NUMERIC(18,3) NOT NULL DEFAULT 0,
			consumed_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS purchase_requests (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			smeta_item_id UUID NOT NULL REFERENCES smeta_items(id),
			org_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
			requested_by UUID NOT NULL REFERENCES users(id),
			requested_qty NUMERIC(18,3) NOT NULL CHECK (requested_qty >= 0),
			requested_amount NUMERIC(18,2) NOT NULL CHECK (requested_amount >= 0),
			note TEXT NOT NULL DEFAULT '',
			is_overrun BOOLEAN NOT NULL DEFAULT FALSE,
			overrun_qty NUMERIC(18,3) NOT NULL DEFAULT 0,
			overrun_percent NUMERIC(7,2) NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			approved_by UUID REFERENCES users(id),
			approved_at TIMESTAMP,
			approved_qty NUMERIC(18,3),
			approved_amount NUMERIC(18,2),
			rejection_reason TEXT,
			fulfilled_by UUID REFERENCES users(id),
			fulfilled_at TIMESTAMP,
			fulfilled_qty NUMERIC(18,3),
			fulfilled_amount NUMERIC(18,2),
			supplier_name VARCHAR(255),
			proof_ref TEXT,
			driver_id UUID REFERENCES users(id),
			collected_qty NUMERIC(18,3),
			collected_at TIMESTAMP,
			collected_proof TEXT,
			delivered_qty NUMERIC(18,3),
			delivered_at TIMESTAMP,
			delivered_proof TEXT,
			received_qty NUMERIC(18,3),
			received_at TIMESTAMP,
			received_proof TEXT,
			final_amount NUMERIC(18,2),
			final_unit_price NUMERIC(18,2),
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			refresh_token VARCHAR(500) UNIQUE NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_org_id ON users(org_id)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_org_id ON projects(org_id)`,
		`CREATE INDEX IF NOT EXISTS idx_smetas_project_id ON smetas(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_smeta_items_smeta_id ON smeta_items(smeta_id)`,
		`CREATE INDEX IF NOT EXISTS idx_smeta_items_org_id ON smeta_items(org_id)`,
		`CREATE INDEX IF NOT EXISTS idx_purchase_requests_org_id ON purchase_requests(org_id)`,
		`CREATE INDEX IF NOT EXISTS idx_purchase_requests_item_id ON purchase_requests(smeta_item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_purchase_requests_status ON purchase_requests(status)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
