package aclkit

import (
	"context"
	"fmt"
	"time"

	"github.com/fernandezvara/dbkit"
)

// Health performs a comprehensive health check of the database connection.
// Returns detailed status including latency, connection pool statistics,
// and error information.
func (b *PostgresBackend) Health(ctx context.Context) dbkit.HealthStatus {
	if db, ok := b.db.(*dbkit.DBKit); ok {
		return db.Health(ctx)
	}

	// Transaction-bound or wrapped instance, do a basic ping
	return dbkit.HealthStatus{
		Healthy: b.IsHealthy(ctx),
		Error:   "Limited health check - not a DBKit instance",
	}
}

// IsHealthy performs a simple health check of the database connection.
// Returns true if the database is reachable, false otherwise.
func (b *PostgresBackend) IsHealthy(ctx context.Context) bool {
	if db, ok := b.db.(*dbkit.DBKit); ok {
		return db.IsHealthy(ctx)
	}

	var count int
	err := b.db.NewSelect().Model((*struct{})(nil)).ColumnExpr("1").Limit(1).Scan(ctx, &count)
	return err == nil
}

// Ping performs a basic connectivity test to the database.
// Returns an error if the database is not reachable.
func (b *PostgresBackend) Ping(ctx context.Context) error {
	var result int
	return b.db.NewSelect().Model((*struct{})(nil)).ColumnExpr("1").Limit(1).Scan(ctx, &result)
}

// GetPoolStats returns connection pool statistics for monitoring.
// Returns zero values if the database instance doesn't support pool
// statistics.
func (b *PostgresBackend) GetPoolStats() dbkit.PoolStats {
	if db, ok := b.db.(*dbkit.DBKit); ok {
		sqlStats := db.Stats()
		return dbkit.PoolStatsFromSQL(sqlStats)
	}

	return dbkit.PoolStats{}
}

// PoolConfig holds connection pool settings for the backend.
type PoolConfig struct {
	MaxOpenConnections    int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
	ConnectionMaxIdleTime time.Duration
}

// DefaultPoolConfig returns balanced pool settings for typical workloads.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConnections:    25,
		MaxIdleConnections:    10,
		ConnectionMaxLifetime: 30 * time.Minute,
		ConnectionMaxIdleTime: 5 * time.Minute,
	}
}

// HighThroughputPoolConfig returns pool settings for check-heavy services
// with many concurrent requests.
func HighThroughputPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConnections:    100,
		MaxIdleConnections:    50,
		ConnectionMaxLifetime: 15 * time.Minute,
		ConnectionMaxIdleTime: 2 * time.Minute,
	}
}

// LowResourcePoolConfig returns conservative pool settings for constrained
// environments.
func LowResourcePoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConnections:    5,
		MaxIdleConnections:    2,
		ConnectionMaxLifetime: time.Hour,
		ConnectionMaxIdleTime: 15 * time.Minute,
	}
}

// ConfigurePool updates the database connection pool settings.
func (b *PostgresBackend) ConfigurePool(config PoolConfig) error {
	db, ok := b.db.(*dbkit.DBKit)
	if !ok {
		return fmt.Errorf("pool configuration requires a dbkit.DBKit instance")
	}

	bunDB := db.Bun()
	if bunDB == nil {
		return fmt.Errorf("database instance not available")
	}

	bunDB.SetMaxOpenConns(config.MaxOpenConnections)
	bunDB.SetMaxIdleConns(config.MaxIdleConnections)
	bunDB.SetConnMaxLifetime(config.ConnectionMaxLifetime)
	bunDB.SetConnMaxIdleTime(config.ConnectionMaxIdleTime)

	return nil
}
