// Package db carries the schema applied by repository.RunMigrations at boot.
package db

import _ "embed"

// Schema is the DDL for the customers, products, orders and order_lines
// tables. The statements are idempotent, so re-running them against an
// existing database is safe.
//
//go:embed migrations/001_schema.sql
var Schema string
