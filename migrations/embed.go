// Package migrations embeds the goose SQL migrations so the binary can apply
// them itself (`tours migrate`, `tours serve --migrate`) and tests can run
// them in TestMain.
package migrations

import "embed"

// FS holds every *.sql migration, embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
