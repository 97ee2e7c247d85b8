package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"venue_pos_backend/internal/config"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

//go:embed schema.sql
var schema string

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database %s@%s:%s: %w", cfg.Name, cfg.Host, cfg.Port, err)
	}
	log.Info().Str("host", cfg.Host).Str("database", cfg.Name).Msg("Connected to the database")

	if cfg.ApplySchema {
		if err := ApplySchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// ApplySchema runs the embedded schema script. Every statement is idempotent.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("could not execute schema script: %w", err)
	}
	log.Info().Msg("Database schema applied")
	return nil
}
