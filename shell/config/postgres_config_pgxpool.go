package config

import (
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPGXPoolSingleConfig creates a pgxpool.Config for a single database.
func PostgresPGXPoolSingleConfig() *pgxpool.Config {
	return pgxPoolConfig(PostgresSingleDSN(), 50)
}

// PostgresPGXPoolPrimaryConfig creates a pgxpool.Config for the primary node of a replicated database.
func PostgresPGXPoolPrimaryConfig() *pgxpool.Config {
	return pgxPoolConfig(PostgresPrimaryDSN(), 200)
}

// PostgresPGXPoolReplicaConfig creates a pgxpool.Config for the replica node of a replicated database.
func PostgresPGXPoolReplicaConfig() *pgxpool.Config {
	return pgxPoolConfig(PostgresReplicaDSN(), 200)
}

// PostgresPGXPoolTestConfig creates a pgxpool.Config for the test database.
func PostgresPGXPoolTestConfig() *pgxpool.Config {
	return pgxPoolConfig(PostgresTestDSN(), 8)
}

func pgxPoolConfig(dsn string, maxConnections int32) *pgxpool.Config {
	const defaultMinConnections = int32(2)
	const defaultMaxConnLifetime = time.Hour
	const defaultMaxConnIdleTime = time.Minute * 5
	const defaultHealthCheckPeriod = time.Minute
	const defaultConnectTimeout = time.Second * 5

	dbConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		log.Fatal("Failed to create a config, error: ", err)
	}

	dbConfig.MaxConns = maxConnections
	dbConfig.MinConns = defaultMinConnections
	dbConfig.MaxConnLifetime = defaultMaxConnLifetime
	dbConfig.MaxConnIdleTime = defaultMaxConnIdleTime
	dbConfig.HealthCheckPeriod = defaultHealthCheckPeriod
	dbConfig.ConnConfig.ConnectTimeout = defaultConnectTimeout

	return dbConfig
}
