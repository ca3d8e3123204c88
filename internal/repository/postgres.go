// Package repository implements the Persistence Gateway against Postgres
// via pgx: connection pooling, schema application, and queries over
// users, subscriptions, filters, listings, and notifications.
package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the Postgres-backed Persistence Gateway.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository opens a connection pool against dbURL, tuned by the
// DB_MAX_OPEN_CONNS / DB_MAX_IDLE_CONNS / DB_STATEMENT_TIMEOUT /
// DB_IDLE_TX_TIMEOUT environment variables.
func NewRepository(ctx context.Context, dbURL string) (*Repository, error) {
	poolCfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("repository: parse db url: %w", err)
	}

	poolCfg.MaxConns = int32(getEnvInt("DB_MAX_OPEN_CONNS", 20))
	poolCfg.MinConns = int32(getEnvInt("DB_MAX_IDLE_CONNS", 4))
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	statementTimeout := getEnvString("DB_STATEMENT_TIMEOUT", "300000")
	idleTxTimeout := getEnvString("DB_IDLE_TX_TIMEOUT", "120000")
	poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = statementTimeout
	poolCfg.ConnConfig.RuntimeParams["idle_in_transaction_session_timeout"] = idleTxTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("repository: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("repository: ping: %w", err)
	}

	return &Repository{db: pool}, nil
}

// Migrate applies the schema file at schemaPath. cmd/server calls it at
// startup when SCHEMA_PATH is set; it is not transactional
// across statements beyond what a single Exec call provides.
func (r *Repository) Migrate(ctx context.Context, schemaPath string) error {
	sql, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("repository: read schema: %w", err)
	}
	if _, err := r.db.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("repository: apply schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Repository) Close() {
	r.db.Close()
}

// TerminateIdleConnections kills backends idle for longer than
// threshold, a maintenance operation useful after a deploy that
// otherwise leaves the prior process's connections pinned.
func (r *Repository) TerminateIdleConnections(ctx context.Context, threshold time.Duration) (int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE state = 'idle'
		  AND pid <> pg_backend_pid()
		  AND query_start < now() - $1::interval
	`, threshold.String())
	if err != nil {
		return 0, fmt.Errorf("repository: terminate idle connections: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		count++
	}
	if err := rows.Err(); err != nil {
		return count, err
	}
	if count > 0 {
		log.Printf("[repository] terminated %d idle connections older than %s", count, threshold)
	}
	return count, nil
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
