package migrations

import "embed"

// FS содержит SQL-миграции для goose.
//
//go:embed *.sql
var FS embed.FS
