package config

import (
	"context"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

// PostgresSQLXSingleConfig creates a configured *sqlx.DB for a single database.
func PostgresSQLXSingleConfig() *sqlx.DB {
	return sqlxConfig(PostgresSingleDSN(), 50, 10)
}

// PostgresSQLXPrimaryConfig creates a configured *sqlx.DB for the primary node of a replicated database.
func PostgresSQLXPrimaryConfig() *sqlx.DB {
	return sqlxConfig(PostgresPrimaryDSN(), 200, 20)
}

// PostgresSQLXReplicaConfig creates a configured *sqlx.DB for the replica node of a replicated database.
func PostgresSQLXReplicaConfig() *sqlx.DB {
	return sqlxConfig(PostgresReplicaDSN(), 200, 20)
}

// PostgresSQLXTestConfig creates a configured *sqlx.DB for the test database.
func PostgresSQLXTestConfig() *sqlx.DB {
	return sqlxConfig(PostgresTestDSN(), 50, 10)
}

func sqlxConfig(dsn string, maxOpenConnections int, maxIdleConnections int) *sqlx.DB {
	const defaultMaxConnLifetime = time.Hour
	const defaultMaxConnIdleTime = time.Minute * 5

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		log.Fatal("Failed to open database connection, error: ", err)
	}

	// Configure connection pool settings
	db.SetMaxOpenConns(maxOpenConnections)
	db.SetMaxIdleConns(maxIdleConnections)
	db.SetConnMaxLifetime(defaultMaxConnLifetime)
	db.SetConnMaxIdleTime(defaultMaxConnIdleTime)

	// Test the connection
	if pingErr := db.PingContext(context.Background()); pingErr != nil {
		log.Fatal("Failed to ping database, error: ", pingErr)
	}

	return db
}
