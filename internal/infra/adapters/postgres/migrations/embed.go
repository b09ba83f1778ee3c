package migrations

import "embed"

// MigrationsFS содержит goose миграции в порядке имен файлов.
//
//go:embed *.sql
var MigrationsFS embed.FS
