// Package database owns the Postgres connection and Liquibase-style
// migrations for the MME core's persistence layer, adapted from the
// teacher's pkg/database/database.go. The teacher's generic multi-protocol
// session/transaction/topology/dictionary/alarm schema is replaced with a
// schema scoped to this core's own domain: completed EMM/ESM procedures,
// per-procedure KPI rollups, the operator-console audit log, and operator
// accounts (see DESIGN.md for the dropped tables and why).
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the database connection and migration runner.
type DB struct {
	conn   *sql.DB
	config *Config
}

// Config holds database configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// New opens a connection pool and runs pending migrations.
func New(config *Config) (*DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.Database, config.SSLMode)

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(config.MaxConns)
	conn.SetMaxIdleConns(config.MaxIdle)
	conn.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, config: config}

	if err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// RunMigrations executes Liquibase-style migrations.
func (db *DB) RunMigrations() error {
	createChangeLogTable := `
	CREATE TABLE IF NOT EXISTS databasechangelog (
		id VARCHAR(255) NOT NULL,
		author VARCHAR(255) NOT NULL,
		filename VARCHAR(255) NOT NULL,
		dateexecuted TIMESTAMP NOT NULL,
		orderexecuted INTEGER NOT NULL,
		exectype VARCHAR(10) NOT NULL,
		description VARCHAR(255)
	);
	CREATE TABLE IF NOT EXISTS databasechangeloglock (
		id INTEGER NOT NULL PRIMARY KEY,
		locked BOOLEAN NOT NULL,
		lockgranted TIMESTAMP,
		lockedby VARCHAR(255)
	);
	INSERT INTO databasechangeloglock (id, locked) VALUES (1, FALSE) ON CONFLICT DO NOTHING;
	`

	if _, err := db.conn.Exec(createChangeLogTable); err != nil {
		return fmt.Errorf("failed to create changelog table: %w", err)
	}

	migrations := []Migration{
		{
			ID:          "001-create-procedure-log-table",
			Author:      "mme-core",
			Description: "Create ue_procedure_log table recording completed EMM/ESM procedures",
			SQL: `
			CREATE TABLE IF NOT EXISTS ue_procedure_log (
				id BIGSERIAL PRIMARY KEY,
				imsi VARCHAR(15),
				mme_ue_s1ap_id BIGINT,
				procedure VARCHAR(50) NOT NULL,
				ebi SMALLINT,
				start_time TIMESTAMP NOT NULL,
				end_time TIMESTAMP,
				duration_ms INTEGER,
				result VARCHAR(20),
				cause_code SMALLINT,
				plmn VARCHAR(10),
				tac INTEGER,
				apn VARCHAR(100),
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_ue_procedure_log_imsi ON ue_procedure_log(imsi);
			CREATE INDEX IF NOT EXISTS idx_ue_procedure_log_procedure ON ue_procedure_log(procedure);
			CREATE INDEX IF NOT EXISTS idx_ue_procedure_log_start_time ON ue_procedure_log(start_time);
			`,
		},
		{
			ID:          "002-create-kpi-counters-table",
			Author:      "mme-core",
			Description: "Create kpi_counters table for periodic EMM/ESM KPI rollups",
			SQL: `
			CREATE TABLE IF NOT EXISTS kpi_counters (
				id BIGSERIAL PRIMARY KEY,
				time_bucket TIMESTAMP NOT NULL,
				procedure VARCHAR(50) NOT NULL,
				total_count BIGINT DEFAULT 0,
				success_count BIGINT DEFAULT 0,
				failure_count BIGINT DEFAULT 0,
				timeout_count BIGINT DEFAULT 0,
				avg_latency_us INTEGER,
				p95_latency_us INTEGER,
				p99_latency_us INTEGER,
				cause_codes JSONB,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (time_bucket, procedure)
			);
			CREATE INDEX IF NOT EXISTS idx_kpi_time_bucket ON kpi_counters(time_bucket);
			`,
		},
		{
			ID:          "003-create-audit-log-table",
			Author:      "mme-core",
			Description: "Create audit_log table for operator-console actions",
			SQL: `
			CREATE TABLE IF NOT EXISTS audit_log (
				id BIGSERIAL PRIMARY KEY,
				timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				user_name VARCHAR(100) NOT NULL,
				user_ip VARCHAR(45),
				action VARCHAR(100) NOT NULL,
				imsi VARCHAR(15),
				details JSONB,
				result VARCHAR(20)
			);
			CREATE INDEX IF NOT EXISTS idx_audit_log_timestamp ON audit_log(timestamp);
			CREATE INDEX IF NOT EXISTS idx_audit_log_user_name ON audit_log(user_name);
			`,
		},
		{
			ID:          "004-create-user-accounts-table",
			Author:      "mme-core",
			Description: "Create user_accounts table for operator console logins",
			SQL: `
			CREATE TABLE IF NOT EXISTS user_accounts (
				id SERIAL PRIMARY KEY,
				username VARCHAR(100) UNIQUE NOT NULL,
				password_hash VARCHAR(255) NOT NULL,
				full_name VARCHAR(200),
				email VARCHAR(200),
				role VARCHAR(50) NOT NULL,
				permissions JSONB,
				enabled BOOLEAN DEFAULT TRUE,
				last_login TIMESTAMP,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			`,
		},
	}

	for _, migration := range migrations {
		if err := db.executeMigration(migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.ID, err)
		}
	}

	return nil
}

// Migration represents a single database migration.
type Migration struct {
	ID          string
	Author      string
	Description string
	SQL         string
}

func (db *DB) executeMigration(migration Migration) error {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM databasechangelog WHERE id = $1",
		migration.ID,
	).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if _, err := db.conn.Exec(migration.SQL); err != nil {
		return err
	}

	_, err = db.conn.Exec(`
		INSERT INTO databasechangelog (id, author, filename, dateexecuted, orderexecuted, exectype, description)
		VALUES ($1, $2, 'init', $3, (SELECT COALESCE(MAX(orderexecuted), 0) + 1 FROM databasechangelog), 'EXECUTED', $4)
	`, migration.ID, migration.Author, time.Now(), migration.Description)

	return err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// GetConnection returns the underlying SQL connection.
func (db *DB) GetConnection() *sql.DB {
	return db.conn
}
