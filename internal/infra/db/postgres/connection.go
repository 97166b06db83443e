package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// NewPgxPool builds a pool from a DSN with a bounded connection count.
func NewPgxPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// pickRow runs a single-row query against a tx/conn when supplied, or
// the pool otherwise.
func pickRow(pool *pgxpool.Pool, qx any, sql string, args ...any) pgx.Row {
	switch v := qx.(type) {
	case pgx.Tx:
		return v.QueryRow(context.Background(), sql, args...)
	case *pgxpool.Conn:
		return v.QueryRow(context.Background(), sql, args...)
	default:
		return pool.QueryRow(context.Background(), sql, args...)
	}
}
