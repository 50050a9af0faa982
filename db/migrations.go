// Package db ships the postgres schema migrations inside the binary.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the root of Migrations goose reads from.
const MigrationsDir = "migrations"
