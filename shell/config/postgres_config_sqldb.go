package config

import (
	"context"
	"database/sql"
	"log"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

// PostgresSQLDBSingleConfig creates a configured *sql.DB for a single database.
func PostgresSQLDBSingleConfig() *sql.DB {
	return sqlDBConfig(PostgresSingleDSN(), 50, 10)
}

// PostgresSQLDBPrimaryConfig creates a configured *sql.DB for the primary node of a replicated database.
func PostgresSQLDBPrimaryConfig() *sql.DB {
	return sqlDBConfig(PostgresPrimaryDSN(), 200, 20)
}

// PostgresSQLDBReplicaConfig creates a configured *sql.DB for the replica node of a replicated database.
func PostgresSQLDBReplicaConfig() *sql.DB {
	return sqlDBConfig(PostgresReplicaDSN(), 200, 20)
}

// PostgresSQLDBTestConfig creates a configured *sql.DB for the test database.
func PostgresSQLDBTestConfig() *sql.DB {
	return sqlDBConfig(PostgresTestDSN(), 50, 10)
}

func sqlDBConfig(dsn string, maxOpenConnections int, maxIdleConnections int) *sql.DB {
	const defaultMaxConnLifetime = time.Hour
	const defaultMaxConnIdleTime = time.Minute * 5

	db, err := sql.Open("postgres", dsn)
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
