// Package config provides configuration helpers for the circulation tracker:
// PostgreSQL connections, OpenTelemetry providers and borrowing policies.
//
// This package contains factory functions for creating database connections
// using different PostgreSQL drivers (pgx.Pool, sql.DB, sqlx.DB) with
// env-overridable DSNs, plus the yaml-based borrowing-policy loader with an
// embedded default policy set.
//
// This package is part of the shell (infrastructure) layer.
package config
