// Package db holds the Postgres connection pool backing the card store.
package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var pool *pgxpool.Pool

// Connect initializes the connection pool against dsn and verifies it with
// a ping.
func Connect(dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, err
	}

	pool = p
	return p, nil
}

// ClosePool is for graceful shutdown
func ClosePool() {
	if pool != nil {
		pool.Close()
	}
}
