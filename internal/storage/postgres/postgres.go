// Package postgres persists simulation reports in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/idlesim/internal/config"
)

// connectAttempts bounds the startup pings made before Connect gives up.
const connectAttempts = 5

// Store owns the connection pool behind the report repository.
type Store struct {
	pool    *pgxpool.Pool
	reports *ReportRepository
	logger  *zap.Logger
}

// Connect opens a pool for cfg and pings it, backing off between attempts
// while the server comes up.
//
// Precondition: cfg must pass config validation; logger may be nil.
// Postcondition: Returns a Store whose pool answered a ping, or a non-nil error
// with no open connections.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	start := time.Now()
	delay := 100 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			break
		}
		if attempt == connectAttempts {
			pool.Close()
			return nil, fmt.Errorf("pinging database after %d attempts: %w", attempt, err)
		}
		logger.Warn("database not ready",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	logger.Info("database connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Store{pool: pool, reports: NewReportRepository(pool), logger: logger}, nil
}

// Reports returns the report repository on this pool.
func (s *Store) Reports() *ReportRepository {
	return s.reports
}

// Health pings the database with a deadline.
//
// Precondition: The store must not be closed.
func (s *Store) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Close releases every pooled connection.
func (s *Store) Close() {
	s.pool.Close()
	s.logger.Debug("database pool closed")
}
