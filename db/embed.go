// Package db provides the embedded database schema and seed data.
package db

import _ "embed"

// Schema contains the DDL statements for all storefront tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedMenu is the demo catalog loaded by seed-db when no file is given.
//
//go:embed seed/menu.json
var SeedMenu []byte
