// Package database wraps the pgx connection pool behind a small service
// interface so handlers can be constructed against an abstraction.
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/config"
)

// Service exposes the connection pool and a health probe.
type Service interface {
	GetPool() *pgxpool.Pool
	Health() map[string]string
	Close()
}

type service struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and exits the process when the database is
// unreachable — the API cannot serve anything without it.
func New(cfg *config.DBConfig) Service {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		log.Fatalf("Invalid DATABASE_URL: %v", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Println("Connected to PostgreSQL")
	return &service{pool: pool}
}

// GetPool returns the underlying pgx pool.
func (s *service) GetPool() *pgxpool.Pool {
	return s.pool
}

// Health reports database reachability and pool stats.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.pool.Ping(ctx); err != nil {
		return map[string]string{
			"status": "down",
			"error":  err.Error(),
		}
	}

	stats := s.pool.Stat()
	return map[string]string{
		"status":            "up",
		"total_connections": fmt.Sprintf("%d", stats.TotalConns()),
		"idle_connections":  fmt.Sprintf("%d", stats.IdleConns()),
	}
}

// Close releases the pool.
func (s *service) Close() {
	s.pool.Close()
}
