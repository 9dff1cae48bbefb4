package migrations

import "embed"

// Files exposes the SQL migration files embedded in the binary.
//
//go:embed *.sql
var Files embed.FS
