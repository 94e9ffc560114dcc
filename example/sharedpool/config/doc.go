// Package config provides the configuration of the sharedpool example: an optional
// sharedpool.yaml with defaults, and factory functions for the three PostgreSQL
// connection flavours (pgxpool.Pool, sql.DB, sqlx.DB).
package config
