// Package repository is a Postgres-backed store of recorded market history.
// It implements the same data-source interface as the marketdata client, so
// a backtest can replay locally gathered snapshots without touching the
// upstream API.
package repository

import (
	"context"
	"errors"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Global error declarations.
var ErrNoPrice = errors.New("no trade price in datasource")

// Database holds the connection pool to the snapshot store.
type Database struct {
	conn *pgxpool.Pool
}

// NewDatabase creates a new Database instance and verifies connectivity.
func NewDatabase(dbURL string) (*Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}
	// Ensure the connection is established.
	if err := conn.Ping(context.Background()); err != nil {
		return nil, err
	}

	return &Database{conn: conn}, nil
}

// Close releases the connection pool.
func (db *Database) Close() {
	db.conn.Close()
}
