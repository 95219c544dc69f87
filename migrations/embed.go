// Package migrations embeds the schema migrations applied by cmd/migrate
// and by the integration tests.
package migrations

import "embed"

// FS holds the *.sql migration files.
//
//go:embed *.sql
var FS embed.FS
