// Package database manages the SQLite connection for Latchwork Core.
//
// It opens the database with WAL mode and foreign keys enabled, applies
// embedded schema migrations, and exposes health checks. SQLite is configured
// with a single connection because it supports only one writer.
package database
