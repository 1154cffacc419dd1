// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cre-workers/internal/common/config"

	_ "github.com/lib/pq"
)

// AnalysesSchema creates the analysis history table.
const AnalysesSchema = `
CREATE TABLE IF NOT EXISTS lease_analyses (
    id                 UUID PRIMARY KEY,
    deal_name          TEXT NOT NULL,
    input_hash         TEXT NOT NULL,
    convention         TEXT NOT NULL,
    ner                DOUBLE PRECISION NOT NULL,
    ger                DOUBLE PRECISION NOT NULL,
    ner_with_fixturing DOUBLE PRECISION NOT NULL,
    payload            JSONB NOT NULL,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS lease_analyses_deal_name_idx ON lease_analyses (deal_name, created_at DESC);
`

const insertAnalysisSQL = `INSERT INTO lease_analyses
    (id, deal_name, input_hash, convention, ner, ger, ner_with_fixturing, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO NOTHING`

// AnalysisRecord is one row of the analysis history.
type AnalysisRecord struct {
	ID               string
	DealName         string
	InputHash        string
	Convention       string
	NER              float64
	GER              float64
	NERWithFixturing float64
	Payload          []byte
	CreatedAt        time.Time
}

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres creates a new PostgreSQL client
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// NewPostgresFromDB wraps an open handle.
func NewPostgresFromDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{DB: db}
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// EnsureSchema creates the analysis tables if they do not exist.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, AnalysesSchema); err != nil {
		return fmt.Errorf("create lease_analyses: %w", err)
	}
	return nil
}

// SaveAnalysis inserts a record. Re-saving the same id is a no-op.
func (c *PostgresClient) SaveAnalysis(ctx context.Context, rec AnalysisRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := c.DB.ExecContext(ctx, insertAnalysisSQL,
		rec.ID, rec.DealName, rec.InputHash, rec.Convention,
		rec.NER, rec.GER, rec.NERWithFixturing, rec.Payload, createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis %s: %w", rec.ID, err)
	}
	return nil
}
